package rpc

import (
	"context"
	"io"
	"sync"
)

type item struct {
	event Event
	err   error
}

// Subscription is a live stream of events for one query. Events are
// returned in the order the node sent them.
//
// Undelivered events queue without bound, so the driver keeps reading the
// socket (and answering keepalives) while the consumer is slow.
type Subscription struct {
	id    string
	query string

	// ready holds a token when items were queued since the last wake-up.
	ready chan struct{}
	done  chan struct{}

	mu    sync.Mutex
	queue []item
	err   error
}

func newSubscription(id, query string, capacity int) *Subscription {
	return &Subscription{
		id:    id,
		query: query,
		ready: make(chan struct{}, 1),
		done:  make(chan struct{}),
		queue: make([]item, 0, capacity),
	}
}

// ID returns the id of the subscribe request that created the subscription.
func (s *Subscription) ID() string { return s.id }

// Query returns the subscription query.
func (s *Subscription) Query() string { return s.query }

// Next blocks until the next item arrives. An error that accompanies an item
// (a node error or an undecodable event) does not end the stream. Queued
// items are returned even after the connection ended; once they are drained
// Next returns the error that ended it, if any, and io.EOF from then on.
func (s *Subscription) Next(ctx context.Context) (Event, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Event{}, err
		}
		if it, ok := s.pop(); ok {
			return it.event, it.err
		}
		select {
		case <-s.done:
			if it, ok := s.pop(); ok {
				return it.event, it.err
			}
			return Event{}, s.terminalErr()
		default:
		}

		select {
		case <-s.ready:
		case <-s.done:
		case <-ctx.Done():
			return Event{}, ctx.Err()
		}
	}
}

// push queues it without blocking. Only the driver calls it.
func (s *Subscription) push(it item) {
	s.mu.Lock()
	s.queue = append(s.queue, it)
	s.mu.Unlock()

	select {
	case s.ready <- struct{}{}:
	default:
	}
}

func (s *Subscription) pop() (item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return item{}, false
	}
	it := s.queue[0]
	s.queue[0] = item{}
	s.queue = s.queue[1:]
	return it, true
}

// pending returns the number of queued items.
func (s *Subscription) pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

func (s *Subscription) finish(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	close(s.done)
}

func (s *Subscription) terminalErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.err
	s.err = nil
	if err != nil {
		return err
	}
	return io.EOF
}
