package client

import (
	"context"

	"github.com/bft-labs/nodesub/pkg/rpc"
)

// Transport opens connections to a node.
type Transport interface {
	// Open connects to uri and returns the connection together with the
	// driver that must run for the connection to deliver anything.
	Open(ctx context.Context, uri string) (Conn, Driver, error)
}

// Conn is an open connection. Implementations synchronize access between
// the caller and the running driver.
type Conn interface {
	// Subscribe requests events matching query. Delivery requires a
	// running driver.
	Subscribe(ctx context.Context, query string) (EventStream, error)

	// Close releases the connection.
	Close() error
}

// Driver pumps I/O for a connection.
type Driver interface {
	// Run blocks until the connection ends.
	Run() error
}

// EventStream yields subscription events in arrival order and io.EOF at
// the end.
type EventStream interface {
	Next(ctx context.Context) (rpc.Event, error)
}

// WebSocketTransport connects with the JSON-RPC websocket client in pkg/rpc.
type WebSocketTransport struct {
	Options []rpc.Option
}

// Open dials uri.
func (t WebSocketTransport) Open(ctx context.Context, uri string) (Conn, Driver, error) {
	c, d, err := rpc.Dial(ctx, uri, t.Options...)
	if err != nil {
		return nil, nil, err
	}
	return wsConn{c: c}, d, nil
}

type wsConn struct {
	c *rpc.WSClient
}

func (w wsConn) Subscribe(ctx context.Context, query string) (EventStream, error) {
	sub, err := w.c.Subscribe(ctx, query)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (w wsConn) Close() error {
	return w.c.Close()
}
