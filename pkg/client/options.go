package client

import (
	"github.com/bft-labs/nodesub/pkg/log"
	"github.com/bft-labs/nodesub/pkg/rpc"
)

// Option configures Initialize.
type Option func(*options)

type options struct {
	transport Transport
	logger    log.Logger
	rpcOpts   []rpc.Option
}

// WithTransport replaces the websocket transport, typically in tests.
func WithTransport(t Transport) Option {
	return func(o *options) {
		o.transport = t
	}
}

// WithLogger sets the logger for lifecycle transitions. The default logger
// discards everything.
func WithLogger(l log.Logger) Option {
	return func(o *options) {
		o.logger = log.OrNoop(l)
	}
}

// WithRPCOptions passes options to the default websocket transport. They
// are ignored when WithTransport is used.
func WithRPCOptions(opts ...rpc.Option) Option {
	return func(o *options) {
		o.rpcOpts = append(o.rpcOpts, opts...)
	}
}
