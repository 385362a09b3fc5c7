package client

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/bft-labs/nodesub/pkg/log"
	"github.com/bft-labs/nodesub/pkg/rpc"
)

// Client is a connection to a node in one lifecycle state. A nil *Client is
// Uninitialized.
//
// The mutex only guards the state tag and the fields moved out by
// transitions; it is never held across a transport call.
type Client struct {
	mu     sync.Mutex
	state  State
	conn   Conn
	driver Driver        // set while Initialized
	handle *DriverHandle // set while Running
	logger log.Logger
}

// Initialize opens a connection to the node described by cfg and returns an
// Initialized client. On failure no resources are held and the error is a
// *TransportError.
func Initialize(ctx context.Context, cfg NodeConfig, opts ...Option) (*Client, error) {
	o := options{logger: log.NewNoopLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.transport == nil {
		o.transport = WebSocketTransport{Options: o.rpcOpts}
	}

	uri := cfg.URI()
	conn, driver, err := o.transport.Open(ctx, uri)
	if err != nil {
		return nil, transportError("open", err)
	}
	o.logger.Debug("connection initialized", log.String("uri", uri), log.Bool("secure", cfg.Secure))

	return &Client{
		state:  StateInitialized,
		conn:   conn,
		driver: driver,
		logger: o.logger,
	}, nil
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	if c == nil {
		return StateUninitialized
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start launches the driver in a new goroutine and returns the Running
// client. The receiver is consumed and becomes Uninitialized. Start does not
// block.
//
// Start fails with *InvalidStateError, leaving the receiver untouched, when
// the receiver is not Initialized.
func (c *Client) Start() (*Client, error) {
	if c == nil {
		return nil, invalidState(StateInitialized, StateUninitialized)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateInitialized {
		return nil, invalidState(StateInitialized, c.state)
	}

	running := &Client{
		state:  StateRunning,
		conn:   c.conn,
		handle: newDriverHandle(),
		logger: c.logger,
	}
	driver := c.driver

	c.state = StateUninitialized
	c.conn = nil
	c.driver = nil

	go running.handle.run(driver, running.logger)
	c.logger.Debug("driver started")

	return running, nil
}

// Subscribe requests events of the given type and returns them as a lazy
// sequence. It blocks until the node acknowledges the subscription.
//
// Subscribe fails with *InvalidStateError unless the client is Running, and
// with *TransportError when the request fails.
func (c *Client) Subscribe(ctx context.Context, eventType rpc.EventType) (*Subscription, error) {
	if c == nil {
		return nil, invalidState(StateRunning, StateUninitialized)
	}
	c.mu.Lock()
	state, conn := c.state, c.conn
	c.mu.Unlock()

	if state != StateRunning {
		return nil, invalidState(StateRunning, state)
	}

	stream, err := conn.Subscribe(ctx, eventType.Query())
	if err != nil {
		return nil, transportError("subscribe", err)
	}
	c.logger.Debug("subscribed", log.String("event", string(eventType)))

	return &Subscription{eventType: eventType, stream: stream}, nil
}

// Close releases the connection of an Initialized or Running client and
// consumes the receiver. A running driver is not stopped or awaited; it
// exits once it observes the closed connection.
func (c *Client) Close() error {
	if c == nil {
		return invalidState(StateInitialized, StateUninitialized)
	}
	c.mu.Lock()
	state, conn := c.state, c.conn
	if state == StateUninitialized {
		c.mu.Unlock()
		return invalidState(StateInitialized, state)
	}
	c.state = StateUninitialized
	c.conn = nil
	c.driver = nil
	c.handle = nil
	c.mu.Unlock()

	if err := conn.Close(); err != nil {
		return transportError("close", err)
	}
	c.logger.Debug("connection closed", log.Stringer("from", state))
	return nil
}

// Driver returns the handle of the running driver, or nil unless the client
// is Running.
func (c *Client) Driver() *DriverHandle {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handle
}

// DriverHandle observes a driver goroutine started by Start.
type DriverHandle struct {
	done chan struct{}
	err  error
}

func newDriverHandle() *DriverHandle {
	return &DriverHandle{done: make(chan struct{})}
}

func (h *DriverHandle) run(d Driver, logger log.Logger) {
	defer close(h.done)
	h.err = d.Run()
	if h.err != nil {
		logger.Warn("driver exited", log.Err(h.err))
		return
	}
	logger.Debug("driver exited")
}

// Done is closed when the driver returns.
func (h *DriverHandle) Done() <-chan struct{} {
	return h.done
}

// Err returns the driver's result once Done is closed, and nil before.
func (h *DriverHandle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

// Subscription is the event sequence returned by Subscribe.
type Subscription struct {
	eventType rpc.EventType
	stream    EventStream
}

// EventType returns the subscribed event type.
func (s *Subscription) EventType() rpc.EventType {
	return s.eventType
}

// Next returns the next event in arrival order. A *TransportError for one
// item does not end the sequence; io.EOF does. Context errors are returned
// as is.
func (s *Subscription) Next(ctx context.Context) (rpc.Event, error) {
	ev, err := s.stream.Next(ctx)
	switch {
	case err == nil:
		return ev, nil
	case errors.Is(err, io.EOF):
		return rpc.Event{}, io.EOF
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		return rpc.Event{}, err
	}
	return rpc.Event{}, transportError("receive", err)
}
