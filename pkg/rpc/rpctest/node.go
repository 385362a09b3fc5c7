// Package rpctest provides an in-process CometBFT websocket endpoint for
// tests. It speaks enough JSON-RPC to acknowledge subscriptions and stream
// synthetic NewBlock events.
package rpctest

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"nhooyr.io/websocket"
)

// DefaultChainID is the chain id stamped on generated blocks.
const DefaultChainID = "rpctest-1"

// Config controls what the node sends after a subscription is acknowledged.
type Config struct {
	// ChainID stamped on every block header.
	ChainID string

	// Blocks is the number of events emitted per subscription. Zero streams
	// until the connection closes.
	Blocks int

	// Interval between events.
	Interval time.Duration

	// MalformedAt emits an undecodable event in place of the block at this
	// 1-based position. Zero disables it.
	MalformedAt int

	// RejectSubscribe answers subscribe requests with a JSON-RPC error.
	RejectSubscribe bool

	// CloseAfter closes the connection with a normal closure once Blocks
	// events were sent.
	CloseAfter bool
}

// Node is a fake CometBFT node serving /websocket.
type Node struct {
	cfg    Config
	server *httptest.Server

	subscribes  atomic.Int64
	connections atomic.Int64
}

// NewNode starts a node. Callers must Close it.
func NewNode(cfg Config) *Node {
	if cfg.ChainID == "" {
		cfg.ChainID = DefaultChainID
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Millisecond
	}
	n := &Node{cfg: cfg}

	mux := http.NewServeMux()
	mux.HandleFunc("/websocket", n.serveWS)
	n.server = httptest.NewServer(mux)
	return n
}

// Close shuts the node down.
func (n *Node) Close() {
	n.server.Close()
}

// URI returns the ws:// URI of the endpoint.
func (n *Node) URI() string {
	return "ws" + strings.TrimPrefix(n.server.URL, "http") + "/websocket"
}

// HostPort returns the host and port the node listens on.
func (n *Node) HostPort() (string, uint16) {
	host, port, err := net.SplitHostPort(n.server.Listener.Addr().String())
	if err != nil {
		panic(err)
	}
	p, err := strconv.ParseUint(port, 10, 16)
	if err != nil {
		panic(err)
	}
	return host, uint16(p)
}

// Subscribes returns the number of subscribe requests received.
func (n *Node) Subscribes() int {
	return int(n.subscribes.Load())
}

// Connections returns the number of accepted websocket connections.
func (n *Node) Connections() int {
	return int(n.connections.Load())
}

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  struct {
		Query string `json:"query"`
	} `json:"params"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  interface{}     `json:"result,omitempty"`
	Error   interface{}     `json:"error,omitempty"`
}

func (n *Node) serveWS(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionDisabled,
	})
	if err != nil {
		return
	}
	n.connections.Add(1)
	defer c.Close(websocket.StatusInternalError, "")

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
	}()

	for {
		_, data, err := c.Read(ctx)
		if err != nil {
			return
		}
		var req rpcRequest
		if err := json.Unmarshal(data, &req); err != nil {
			_ = writeJSON(ctx, c, rpcResponse{
				JSONRPC: "2.0",
				ID:      json.RawMessage(`-1`),
				Error:   map[string]interface{}{"code": -32700, "message": "Parse error"},
			})
			continue
		}

		switch {
		case req.Method != "subscribe":
			_ = writeJSON(ctx, c, rpcResponse{
				JSONRPC: "2.0",
				ID:      req.ID,
				Error:   map[string]interface{}{"code": -32601, "message": "Method not found"},
			})
		case n.cfg.RejectSubscribe:
			n.subscribes.Add(1)
			_ = writeJSON(ctx, c, rpcResponse{
				JSONRPC: "2.0",
				ID:      req.ID,
				Error: map[string]interface{}{
					"code":    -32603,
					"message": "Internal error",
					"data":    "max_subscriptions_per_client reached",
				},
			})
		default:
			n.subscribes.Add(1)
			if err := writeJSON(ctx, c, rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: struct{}{}}); err != nil {
				return
			}
			wg.Add(1)
			go func(id json.RawMessage, query string) {
				defer wg.Done()
				n.emit(ctx, c, id, query)
			}(req.ID, req.Params.Query)
		}
	}
}

func (n *Node) emit(ctx context.Context, c *websocket.Conn, id json.RawMessage, query string) {
	ticker := time.NewTicker(n.cfg.Interval)
	defer ticker.Stop()

	for height := 1; n.cfg.Blocks == 0 || height <= n.cfg.Blocks; height++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		var err error
		if height == n.cfg.MalformedAt {
			err = c.Write(ctx, websocket.MessageText,
				[]byte(fmt.Sprintf(`{"jsonrpc":"2.0","id":%s,"result":{"query":7}}`, id)))
		} else {
			err = writeJSON(ctx, c, rpcResponse{
				JSONRPC: "2.0",
				ID:      id,
				Result:  NewBlockResult(query, n.cfg.ChainID, int64(height)),
			})
		}
		if err != nil {
			return
		}
	}

	if n.cfg.CloseAfter {
		_ = c.Close(websocket.StatusNormalClosure, "")
	}
}

// NewBlockResult builds the result object of a NewBlock event at height.
func NewBlockResult(query, chainID string, height int64) map[string]interface{} {
	h := strconv.FormatInt(height, 10)
	return map[string]interface{}{
		"query": query,
		"data": map[string]interface{}{
			"type": "tendermint/event/NewBlock",
			"value": map[string]interface{}{
				"block": map[string]interface{}{
					"header": map[string]interface{}{
						"chain_id":         chainID,
						"height":           h,
						"time":             time.Unix(1700000000+height, 0).UTC().Format(time.RFC3339Nano),
						"proposer_address": "9F3C0A1B2D4E5F60718293A4B5C6D7E8F9012345",
					},
					"data": map[string]interface{}{"txs": []string{}},
				},
				"block_id": map[string]interface{}{"hash": fmt.Sprintf("%064X", height)},
			},
		},
		"events": map[string][]string{
			"tm.event": {"NewBlock"},
		},
	}
}

func writeJSON(ctx context.Context, c *websocket.Conn, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Write(ctx, websocket.MessageText, b)
}
