// Package nodesub subscribes to the event stream of a CometBFT node.
//
// Example usage:
//
//	c, err := nodesub.Initialize(ctx, nodesub.LocalNodeConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	c, err = c.Start()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Close()
//	sub, err := c.Subscribe(ctx, nodesub.EventNewBlock)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for {
//	    ev, err := sub.Next(ctx)
//	    if err == io.EOF {
//	        break
//	    }
//	    ...
//	}
package nodesub

import (
	"context"

	"github.com/bft-labs/nodesub/pkg/client"
	"github.com/bft-labs/nodesub/pkg/rpc"
)

// Client is a connection to a node in one of the lifecycle states.
type Client = client.Client

// NodeConfig addresses a node's RPC endpoint.
type NodeConfig = client.NodeConfig

// State is the lifecycle state of a Client.
type State = client.State

// Subscription is a stream of events for one event type.
type Subscription = client.Subscription

// Event is a single event pushed by the node.
type Event = rpc.Event

// EventType names an event stream, such as NewBlock.
type EventType = rpc.EventType

// Option configures Initialize.
type Option = client.Option

const (
	StateUninitialized = client.StateUninitialized
	StateInitialized   = client.StateInitialized
	StateRunning       = client.StateRunning
)

const (
	EventNewBlock       = rpc.EventNewBlock
	EventNewBlockHeader = rpc.EventNewBlockHeader
	EventTx             = rpc.EventTx
)

var (
	// ErrInvalidState matches errors from operations called in the wrong state.
	ErrInvalidState = client.ErrInvalidState
	// ErrTransport matches errors from the underlying connection.
	ErrTransport = client.ErrTransport
)

// Initialize connects to the node and returns an Initialized client.
func Initialize(ctx context.Context, cfg NodeConfig, opts ...Option) (*Client, error) {
	return client.Initialize(ctx, cfg, opts...)
}

// LocalNodeConfig returns the config of a node on localhost:26657 without TLS.
func LocalNodeConfig() NodeConfig {
	return client.LocalNodeConfig()
}
