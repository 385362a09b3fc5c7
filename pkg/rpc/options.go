package rpc

import (
	"net/http"
	"time"

	"github.com/bft-labs/nodesub/pkg/log"
)

const (
	// DefaultReadLimit bounds the size of a single websocket message.
	// NewBlock events routinely exceed the websocket library's 32 KiB default.
	DefaultReadLimit = 1 << 20

	// DefaultPingInterval matches the keepalive period of the CometBFT
	// websocket server, which drops peers that stay silent for 30s.
	DefaultPingInterval = 27 * time.Second

	// DefaultBufferSize is the initial capacity of a subscription's queue.
	// The queue grows past it when the consumer falls behind.
	DefaultBufferSize = 64
)

// Option configures Dial.
type Option func(*options)

type options struct {
	logger       log.Logger
	collector    Collector
	readLimit    int64
	pingInterval time.Duration
	bufferSize   int
	httpClient   *http.Client
	header       http.Header
}

func defaultOptions() options {
	return options{
		logger:       log.NewNoopLogger(),
		collector:    NoopCollector{},
		readLimit:    DefaultReadLimit,
		pingInterval: DefaultPingInterval,
		bufferSize:   DefaultBufferSize,
	}
}

// WithLogger sets the logger used by the driver.
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = log.OrNoop(logger)
	}
}

// WithCollector sets the metrics collector.
func WithCollector(c Collector) Option {
	return func(o *options) {
		if c == nil {
			c = NoopCollector{}
		}
		o.collector = c
	}
}

// WithReadLimit sets the maximum message size in bytes. Non-positive values
// keep the default.
func WithReadLimit(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.readLimit = n
		}
	}
}

// WithPingInterval sets the keepalive interval. Zero disables pings.
func WithPingInterval(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.pingInterval = d
		}
	}
}

// WithBufferSize sets the initial per-subscription queue capacity. It also
// sets how often a growing backlog is logged. Non-positive values keep the
// default.
func WithBufferSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.bufferSize = n
		}
	}
}

// WithHTTPClient sets the HTTP client used for the websocket handshake.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithHeader sets extra headers sent with the handshake, for example
// authorization for a node behind a gateway.
func WithHeader(h http.Header) Option {
	return func(o *options) {
		o.header = h
	}
}
