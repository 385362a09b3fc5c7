package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"nhooyr.io/websocket"

	"github.com/bft-labs/nodesub/pkg/log"
)

// writeTimeout bounds a single request write. The websocket library closes
// the connection when a write times out.
const writeTimeout = 10 * time.Second

// eventIDSuffix is appended to the subscribe request id by Tendermint 0.34
// nodes when they deliver events.
const eventIDSuffix = "#event"

type command struct {
	query string
	reply chan subscribeResult
}

type subscribeResult struct {
	sub *Subscription
	err error
}

type pendingSubscribe struct {
	query string
	reply chan subscribeResult
}

// router tracks in-flight subscribe requests and live subscriptions. It is
// owned by the driver goroutine.
type router struct {
	pending map[string]pendingSubscribe
	byID    map[string]*Subscription
	byQuery map[string]*Subscription
}

func newRouter() *router {
	return &router{
		pending: make(map[string]pendingSubscribe),
		byID:    make(map[string]*Subscription),
		byQuery: make(map[string]*Subscription),
	}
}

func (r *router) has(query string) bool {
	if _, ok := r.byQuery[query]; ok {
		return true
	}
	for _, p := range r.pending {
		if p.query == query {
			return true
		}
	}
	return false
}

func (r *router) add(sub *Subscription) {
	r.byID[sub.id] = sub
	r.byQuery[sub.query] = sub
}

func (r *router) lookup(id, query string) *Subscription {
	if sub, ok := r.byID[strings.TrimSuffix(id, eventIDSuffix)]; ok {
		return sub
	}
	return r.byQuery[query]
}

// shutdown ends every subscription with err (io.EOF when nil) and fails
// in-flight requests.
func (r *router) shutdown(err error) {
	for id, p := range r.pending {
		perr := err
		if perr == nil {
			perr = ErrClientClosed
		}
		p.reply <- subscribeResult{err: perr}
		delete(r.pending, id)
	}
	for id, sub := range r.byID {
		sub.finish(err)
		delete(r.byID, id)
		delete(r.byQuery, sub.query)
	}
}

func (s *session) run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgs := make(chan []byte)
	readErr := make(chan error, 1)
	go s.readLoop(ctx, msgs, readErr)
	if s.opts.pingInterval > 0 {
		go s.pingLoop(ctx)
	}

	r := newRouter()
	defer s.opts.collector.SetActiveSubscriptions(0)

	for {
		select {
		case <-s.closing:
			r.shutdown(nil)
			if err := s.conn.Close(websocket.StatusNormalClosure, ""); err != nil {
				s.opts.logger.Debug("close websocket", log.Err(err))
			}
			return nil

		case cmd := <-s.cmds:
			s.subscribe(ctx, r, cmd)

		case data := <-msgs:
			s.dispatch(r, data)

		case err := <-readErr:
			select {
			case <-s.closing:
				r.shutdown(nil)
				return nil
			default:
			}
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				s.opts.logger.Info("node closed the connection")
				r.shutdown(nil)
				return nil
			}
			err = fmt.Errorf("rpc: read: %w", err)
			r.shutdown(err)
			return err
		}
	}
}

func (s *session) readLoop(ctx context.Context, msgs chan<- []byte, errc chan<- error) {
	for {
		typ, data, err := s.conn.Read(ctx)
		if err != nil {
			errc <- err
			return
		}
		if typ != websocket.MessageText {
			s.opts.logger.Debug("ignoring binary message", log.Int("bytes", len(data)))
			continue
		}
		select {
		case msgs <- data:
		case <-ctx.Done():
			return
		}
	}
}

func (s *session) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(s.opts.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, s.opts.pingInterval)
			err := s.conn.Ping(pingCtx)
			cancel()
			if err != nil && ctx.Err() == nil {
				s.opts.logger.Warn("ping failed", log.Err(err))
			}
		}
	}
}

func (s *session) subscribe(ctx context.Context, r *router, cmd command) {
	if r.has(cmd.query) {
		cmd.reply <- subscribeResult{err: ErrAlreadySubscribed}
		return
	}

	req := newRequest(methodSubscribe, queryParams{Query: cmd.query})
	data, err := json.Marshal(req)
	if err != nil {
		cmd.reply <- subscribeResult{err: fmt.Errorf("rpc: encode subscribe: %w", err)}
		return
	}

	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := s.conn.Write(writeCtx, websocket.MessageText, data); err != nil {
		cmd.reply <- subscribeResult{err: fmt.Errorf("rpc: write subscribe: %w", err)}
		return
	}

	r.pending[req.ID] = pendingSubscribe{query: cmd.query, reply: cmd.reply}
	s.opts.logger.Debug("subscribe sent", log.String("query", cmd.query), log.String("id", req.ID))
}

func (s *session) dispatch(r *router, data []byte) {
	var resp response
	if err := json.Unmarshal(data, &resp); err != nil {
		s.opts.collector.IncDecodeErrors()
		s.opts.logger.Warn("undecodable message", log.Err(err))
		return
	}
	id := resp.idString()

	if p, ok := r.pending[id]; ok {
		delete(r.pending, id)
		if resp.Error != nil {
			p.reply <- subscribeResult{err: resp.Error}
			return
		}
		sub := newSubscription(id, p.query, s.opts.bufferSize)
		r.add(sub)
		s.opts.collector.SetActiveSubscriptions(len(r.byID))
		p.reply <- subscribeResult{sub: sub}
		return
	}

	if resp.Error != nil {
		sub := r.lookup(id, "")
		if sub == nil {
			s.opts.logger.Warn("node error for unknown request", log.String("id", id), log.Err(resp.Error))
			return
		}
		s.deliver(sub, item{err: resp.Error})
		return
	}
	if resp.emptyResult() {
		return
	}

	var ev Event
	if err := json.Unmarshal(resp.Result, &ev); err != nil {
		s.opts.collector.IncDecodeErrors()
		sub := r.lookup(id, "")
		if sub == nil {
			s.opts.logger.Warn("undecodable event", log.String("id", id), log.Err(err))
			return
		}
		s.deliver(sub, item{err: fmt.Errorf("rpc: decode event: %w", err)})
		return
	}

	sub := r.lookup(id, ev.Query)
	if sub == nil {
		s.opts.logger.Debug("event for unknown subscription", log.String("id", id), log.String("query", ev.Query))
		return
	}
	s.opts.collector.IncEventsReceived(sub.query)
	s.deliver(sub, item{event: ev})
}

// deliver queues it on the subscription. It never waits for the consumer,
// so the read loop keeps draining the socket.
func (s *session) deliver(sub *Subscription, it item) {
	sub.push(it)
	if n := sub.pending(); n > 0 && n%s.opts.bufferSize == 0 {
		s.opts.logger.Debug("subscription backlog", log.String("query", sub.query), log.Int("pending", n))
	}
}
