package rpc

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector receives transport telemetry. Calls happen inline on the driver
// goroutine and must not block.
type Collector interface {
	IncEventsReceived(query string)
	IncDecodeErrors()
	SetActiveSubscriptions(n int)
}

// NoopCollector discards all metrics.
type NoopCollector struct{}

func (NoopCollector) IncEventsReceived(string)   {}
func (NoopCollector) IncDecodeErrors()           {}
func (NoopCollector) SetActiveSubscriptions(int) {}

// PrometheusCollector exposes transport metrics via Prometheus.
type PrometheusCollector struct {
	eventsReceived *prometheus.CounterVec
	decodeErrors   prometheus.Counter
	subscriptions  prometheus.Gauge
}

// NewPrometheusCollector registers the transport metrics with reg, or with
// the default registerer when reg is nil. Metrics that are already
// registered are reused.
func NewPrometheusCollector(reg prometheus.Registerer) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nodesub_events_received_total",
		Help: "Number of subscription events received per query.",
	}, []string{"query"})
	if err := register(reg, events, &events); err != nil {
		return nil, err
	}

	decodeErrors := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nodesub_event_decode_errors_total",
		Help: "Number of messages from the node that could not be decoded.",
	})
	if err := register(reg, decodeErrors, &decodeErrors); err != nil {
		return nil, err
	}

	subscriptions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "nodesub_subscriptions_active",
		Help: "Number of live subscriptions on the connection.",
	})
	if err := register(reg, subscriptions, &subscriptions); err != nil {
		return nil, err
	}

	return &PrometheusCollector{
		eventsReceived: events,
		decodeErrors:   decodeErrors,
		subscriptions:  subscriptions,
	}, nil
}

// register registers c, replacing *dst with the existing collector when an
// identical one is already registered.
func register[T prometheus.Collector](reg prometheus.Registerer, c T, dst *T) error {
	err := reg.Register(c)
	if err == nil {
		return nil
	}
	var already prometheus.AlreadyRegisteredError
	if !errors.As(err, &already) {
		return err
	}
	existing, ok := already.ExistingCollector.(T)
	if !ok {
		return err
	}
	*dst = existing
	return nil
}

func (p *PrometheusCollector) IncEventsReceived(query string) {
	p.eventsReceived.WithLabelValues(query).Inc()
}

func (p *PrometheusCollector) IncDecodeErrors() {
	p.decodeErrors.Inc()
}

func (p *PrometheusCollector) SetActiveSubscriptions(n int) {
	p.subscriptions.Set(float64(n))
}
