package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/bft-labs/nodesub/pkg/log"
	"github.com/bft-labs/nodesub/pkg/rpc"
)

const timeout = 5 * time.Second

// fakeTransport hands out a single fakeConn.
type fakeTransport struct {
	openErr error
	conn    *fakeConn
	uri     string
}

func (f *fakeTransport) Open(ctx context.Context, uri string) (Conn, Driver, error) {
	f.uri = uri
	if f.openErr != nil {
		return nil, nil, f.openErr
	}
	return f.conn, fakeDriver{conn: f.conn}, nil
}

// fakeConn streams a fixed list of items per subscription. Its driver runs
// until the connection is closed.
type fakeConn struct {
	items    []streamItem
	subErr   error
	closeErr error

	closeOnce sync.Once
	closed    chan struct{}
	runs      atomic.Int32

	mu      sync.Mutex
	queries []string
}

type streamItem struct {
	event rpc.Event
	err   error
}

func newFakeConn(items ...streamItem) *fakeConn {
	return &fakeConn{items: items, closed: make(chan struct{})}
}

func (f *fakeConn) Subscribe(ctx context.Context, query string) (EventStream, error) {
	if f.subErr != nil {
		return nil, f.subErr
	}
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()

	ch := make(chan streamItem, len(f.items))
	for _, it := range f.items {
		ch <- it
	}
	close(ch)
	return fakeStream{ch: ch}, nil
}

func (f *fakeConn) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return f.closeErr
}

func (f *fakeConn) subscribed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

type fakeDriver struct {
	conn *fakeConn
}

func (d fakeDriver) Run() error {
	d.conn.runs.Add(1)
	<-d.conn.closed
	return nil
}

type fakeStream struct {
	ch chan streamItem
}

func (s fakeStream) Next(ctx context.Context) (rpc.Event, error) {
	select {
	case it, ok := <-s.ch:
		if !ok {
			return rpc.Event{}, io.EOF
		}
		return it.event, it.err
	case <-ctx.Done():
		return rpc.Event{}, ctx.Err()
	}
}

func blockEvent(height string) streamItem {
	return streamItem{event: rpc.Event{
		Query: rpc.EventNewBlock.Query(),
		Data: rpc.EventData{
			Type:  "tendermint/event/NewBlock",
			Value: []byte(`{"block":{"header":{"chain_id":"test","height":"` + height + `"}}}`),
		},
	}}
}

func initialize(t *testing.T, conn *fakeConn) *Client {
	t.Helper()
	c, err := Initialize(context.Background(), LocalNodeConfig(), WithTransport(&fakeTransport{conn: conn}))
	require.NoError(t, err)
	require.Equal(t, StateInitialized, c.State())
	return c
}

func waitDriver(t *testing.T, h *DriverHandle) {
	t.Helper()
	select {
	case <-h.Done():
	case <-time.After(timeout):
		t.Fatal("driver did not exit")
	}
}

// closeRunning closes a Running client and waits for its driver to exit.
// The handle is taken first since Close consumes it.
func closeRunning(t *testing.T, c *Client) {
	t.Helper()
	handle := c.Driver()
	require.NotNil(t, handle)
	require.NoError(t, c.Close())
	waitDriver(t, handle)
}

func requireInvalidState(t *testing.T, err error, expected, current State) {
	t.Helper()
	require.ErrorIs(t, err, ErrInvalidState)
	var ise *InvalidStateError
	require.True(t, errors.As(err, &ise))
	require.Equal(t, expected, ise.Expected)
	require.Equal(t, current, ise.Current)
}

func TestNodeConfig_URI(t *testing.T) {
	tests := []struct {
		name string
		cfg  NodeConfig
		want string
	}{
		{"local", LocalNodeConfig(), "ws://localhost:26657/websocket"},
		{"secure", NodeConfig{Address: "rpc.example.com", Port: 443, Secure: true}, "wss://rpc.example.com:443/websocket"},
		{"ipv6", NodeConfig{Address: "::1", Port: 26657}, "ws://[::1]:26657/websocket"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.cfg.URI())
		})
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateUninitialized, "Uninitialized"},
		{StateInitialized, "Initialized"},
		{StateRunning, "Running"},
		{State(99), "Unknown"},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, tt.state.String())
	}
}

func TestInitialize_OpensURI(t *testing.T) {
	transport := &fakeTransport{conn: newFakeConn()}
	cfg := NodeConfig{Address: "node.example.com", Port: 443, Secure: true}

	c, err := Initialize(context.Background(), cfg, WithTransport(transport))
	require.NoError(t, err)
	require.Equal(t, "wss://node.example.com:443/websocket", transport.uri)
	require.Nil(t, c.Driver())
	require.NoError(t, c.Close())
}

func TestInitialize_TransportError(t *testing.T) {
	cause := errors.New("connection refused")
	transport := &fakeTransport{openErr: cause}

	c, err := Initialize(context.Background(), LocalNodeConfig(), WithTransport(transport))
	require.Nil(t, c)
	require.ErrorIs(t, err, ErrTransport)
	require.ErrorIs(t, err, cause)

	var te *TransportError
	require.True(t, errors.As(err, &te))
	require.Equal(t, "open", te.Op)
}

func TestInitialize_LogsConnection(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewZerologAdapterWithLogger(zerolog.New(&buf))

	cfg := NodeConfig{Address: "node.example", Port: 443, Secure: true}
	c, err := Initialize(context.Background(), cfg,
		WithTransport(&fakeTransport{conn: newFakeConn()}),
		WithLogger(logger),
	)
	require.NoError(t, err)
	require.NoError(t, c.Close())

	line, _, _ := bytes.Cut(buf.Bytes(), []byte("\n"))
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(line, &got))
	require.Equal(t, "connection initialized", got["message"])
	require.Equal(t, "wss://node.example:443/websocket", got["uri"])
	require.Equal(t, true, got["secure"])
}

func TestStart_ReturnsRunning(t *testing.T) {
	defer goleak.VerifyNone(t)

	conn := newFakeConn()
	initialized := initialize(t, conn)

	running, err := initialized.Start()
	require.NoError(t, err)
	require.Equal(t, StateRunning, running.State())
	require.Equal(t, StateUninitialized, initialized.State())
	require.NotNil(t, running.Driver())

	handle := running.Driver()
	require.NoError(t, running.Close())
	require.Nil(t, running.Driver())
	waitDriver(t, handle)
	require.NoError(t, handle.Err())
	require.EqualValues(t, 1, conn.runs.Load())
}

func TestStart_Twice(t *testing.T) {
	defer goleak.VerifyNone(t)

	conn := newFakeConn(blockEvent("1"))
	running, err := initialize(t, conn).Start()
	require.NoError(t, err)
	handle := running.Driver()

	again, err := running.Start()
	require.Nil(t, again)
	requireInvalidState(t, err, StateInitialized, StateRunning)

	// The running client is untouched and still subscribes.
	require.Equal(t, StateRunning, running.State())
	require.Same(t, handle, running.Driver())
	sub, err := running.Subscribe(context.Background(), rpc.EventNewBlock)
	require.NoError(t, err)
	_, err = sub.Next(context.Background())
	require.NoError(t, err)

	require.NoError(t, running.Close())
	waitDriver(t, handle)
	require.EqualValues(t, 1, conn.runs.Load())
}

func TestStart_ConsumedReceiver(t *testing.T) {
	defer goleak.VerifyNone(t)

	conn := newFakeConn()
	initialized := initialize(t, conn)
	running, err := initialized.Start()
	require.NoError(t, err)

	_, err = initialized.Start()
	requireInvalidState(t, err, StateInitialized, StateUninitialized)

	_, err = initialized.Subscribe(context.Background(), rpc.EventNewBlock)
	requireInvalidState(t, err, StateRunning, StateUninitialized)

	requireInvalidState(t, initialized.Close(), StateInitialized, StateUninitialized)

	closeRunning(t, running)
}

func TestSubscribe_BeforeStart(t *testing.T) {
	conn := newFakeConn(blockEvent("1"))
	initialized := initialize(t, conn)

	sub, err := initialized.Subscribe(context.Background(), rpc.EventNewBlock)
	require.Nil(t, sub)
	requireInvalidState(t, err, StateRunning, StateInitialized)
	require.Empty(t, conn.subscribed())

	// Still Initialized: it can be started afterwards.
	require.Equal(t, StateInitialized, initialized.State())
	running, err := initialized.Start()
	require.NoError(t, err)
	closeRunning(t, running)
}

func TestSubscribe_ArrivalOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	heights := []string{"10", "11", "12", "13", "14", "15"}
	items := make([]streamItem, 0, len(heights))
	for _, h := range heights {
		items = append(items, blockEvent(h))
	}
	conn := newFakeConn(items...)

	running, err := initialize(t, conn).Start()
	require.NoError(t, err)

	sub, err := running.Subscribe(context.Background(), rpc.EventNewBlock)
	require.NoError(t, err)
	require.Equal(t, rpc.EventNewBlock, sub.EventType())
	require.Equal(t, []string{"tm.event = 'NewBlock'"}, conn.subscribed())

	for _, want := range heights[:4] {
		ev, err := sub.Next(context.Background())
		require.NoError(t, err)
		nb, err := ev.NewBlock()
		require.NoError(t, err)
		require.Equal(t, want, nb.Block.Header.Height)
	}

	closeRunning(t, running)
}

func TestSubscribe_PerItemError(t *testing.T) {
	cause := errors.New("bad frame")
	conn := newFakeConn(blockEvent("1"), streamItem{err: cause}, blockEvent("2"))

	running, err := initialize(t, conn).Start()
	require.NoError(t, err)
	sub, err := running.Subscribe(context.Background(), rpc.EventNewBlock)
	require.NoError(t, err)

	_, err = sub.Next(context.Background())
	require.NoError(t, err)

	_, err = sub.Next(context.Background())
	require.ErrorIs(t, err, ErrTransport)
	require.ErrorIs(t, err, cause)

	ev, err := sub.Next(context.Background())
	require.NoError(t, err)
	nb, err := ev.NewBlock()
	require.NoError(t, err)
	require.Equal(t, "2", nb.Block.Header.Height)

	_, err = sub.Next(context.Background())
	require.ErrorIs(t, err, io.EOF)

	closeRunning(t, running)
}

func TestSubscribe_ContextCanceled(t *testing.T) {
	conn := newFakeConn()
	running, err := initialize(t, conn).Start()
	require.NoError(t, err)

	// An unbuffered, never-closed stream blocks until the context ends.
	sub := &Subscription{eventType: rpc.EventNewBlock, stream: fakeStream{ch: make(chan streamItem)}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = sub.Next(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.NotErrorIs(t, err, ErrTransport)

	closeRunning(t, running)
}

func TestSubscribe_TransportError(t *testing.T) {
	conn := newFakeConn()
	conn.subErr = rpc.ErrAlreadySubscribed

	running, err := initialize(t, conn).Start()
	require.NoError(t, err)

	_, err = running.Subscribe(context.Background(), rpc.EventNewBlock)
	require.ErrorIs(t, err, ErrTransport)
	require.ErrorIs(t, err, rpc.ErrAlreadySubscribed)

	var te *TransportError
	require.True(t, errors.As(err, &te))
	require.Equal(t, "subscribe", te.Op)
	require.Equal(t, StateRunning, running.State())

	closeRunning(t, running)
}

func TestClose(t *testing.T) {
	tests := []struct {
		name  string
		start bool
	}{
		{"initialized", false},
		{"running", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := newFakeConn()
			c := initialize(t, conn)
			if tt.start {
				var err error
				c, err = c.Start()
				require.NoError(t, err)
			}
			handle := c.Driver()

			require.NoError(t, c.Close())
			require.Equal(t, StateUninitialized, c.State())
			require.Nil(t, c.Driver())

			select {
			case <-conn.closed:
			default:
				t.Fatal("connection was not closed")
			}

			if handle != nil {
				waitDriver(t, handle)
			}
			requireInvalidState(t, c.Close(), StateInitialized, StateUninitialized)
		})
	}
}

func TestClose_TransportError(t *testing.T) {
	cause := errors.New("already closed")
	conn := newFakeConn()
	conn.closeErr = cause

	err := initialize(t, conn).Close()
	require.ErrorIs(t, err, ErrTransport)
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "transport close")
}

func TestNilClient(t *testing.T) {
	var c *Client

	require.Equal(t, StateUninitialized, c.State())
	require.Nil(t, c.Driver())

	_, err := c.Start()
	requireInvalidState(t, err, StateInitialized, StateUninitialized)

	_, err = c.Subscribe(context.Background(), rpc.EventNewBlock)
	requireInvalidState(t, err, StateRunning, StateUninitialized)

	requireInvalidState(t, c.Close(), StateInitialized, StateUninitialized)
}

func TestInvalidStateError_Message(t *testing.T) {
	err := invalidState(StateRunning, StateInitialized)
	require.EqualError(t, err, "client: invalid state: expected Running, current Initialized")
}
