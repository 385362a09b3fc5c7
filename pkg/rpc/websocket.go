package rpc

import (
	"context"
	"fmt"
	"sync"

	"nhooyr.io/websocket"

	"github.com/bft-labs/nodesub/pkg/log"
)

// session is the connection state shared by a WSClient and its WSDriver.
type session struct {
	conn *websocket.Conn
	opts options

	cmds    chan command
	closing chan struct{}
	done    chan struct{}

	mu      sync.Mutex
	started bool
	closed  bool
	err     error // terminal driver error, valid once done is closed
}

// WSClient issues requests over a websocket connection. It is safe for
// concurrent use.
type WSClient struct {
	s *session
}

// WSDriver pumps I/O for the connection shared with its WSClient.
type WSDriver struct {
	s *session
}

// Dial opens a websocket connection to uri and returns the request half and
// the I/O driver. The connection is idle until the driver runs.
func Dial(ctx context.Context, uri string, opts ...Option) (*WSClient, *WSDriver, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	conn, _, err := websocket.Dial(ctx, uri, &websocket.DialOptions{
		HTTPClient:      o.httpClient,
		HTTPHeader:      o.header,
		CompressionMode: websocket.CompressionDisabled,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("rpc: dial %s: %w", uri, err)
	}
	conn.SetReadLimit(o.readLimit)

	s := &session{
		conn:    conn,
		opts:    o,
		cmds:    make(chan command),
		closing: make(chan struct{}),
		done:    make(chan struct{}),
	}
	o.logger.Debug("websocket connected",
		log.String("uri", uri),
		log.Int64("read_limit", o.readLimit),
		log.Duration("ping_interval", o.pingInterval),
	)

	return &WSClient{s: s}, &WSDriver{s: s}, nil
}

// Subscribe asks the node to stream events matching query. It blocks until
// the node acknowledges the request, which requires the driver to be
// running.
func (c *WSClient) Subscribe(ctx context.Context, query string) (*Subscription, error) {
	reply := make(chan subscribeResult, 1)
	cmd := command{query: query, reply: reply}

	select {
	case c.s.cmds <- cmd:
	case <-c.s.closing:
		return nil, ErrClientClosed
	case <-c.s.done:
		return nil, c.s.terminalErr()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-reply:
		return res.sub, res.err
	case <-c.s.done:
		return nil, c.s.terminalErr()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close releases the connection. A running driver is told to close the
// socket and exit; Close does not wait for it. If the driver never ran the
// socket is closed directly.
func (c *WSClient) Close() error {
	s := c.s
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClientClosed
	}
	s.closed = true
	started := s.started
	s.mu.Unlock()

	close(s.closing)
	if started {
		return nil
	}
	if err := s.conn.Close(websocket.StatusNormalClosure, ""); err != nil {
		return fmt.Errorf("rpc: close: %w", err)
	}
	return nil
}

// Run pumps I/O until the connection is closed by either side or fails.
// It returns nil after a normal closure.
func (d *WSDriver) Run() error {
	s := d.s
	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		return ErrClientClosed
	case s.started:
		s.mu.Unlock()
		return ErrDriverRunning
	}
	s.started = true
	s.mu.Unlock()

	err := s.run()

	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	close(s.done)
	return err
}

func (s *session) terminalErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	return ErrClientClosed
}
