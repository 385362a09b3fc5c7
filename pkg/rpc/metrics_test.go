package rpc

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestPrometheusCollector(t *testing.T) {
	reg := prometheus.NewRegistry()

	c, err := NewPrometheusCollector(reg)
	require.NoError(t, err)

	c.IncEventsReceived("tm.event = 'NewBlock'")
	c.IncEventsReceived("tm.event = 'NewBlock'")
	c.IncDecodeErrors()
	c.SetActiveSubscriptions(1)

	require.Equal(t, 2.0, testutil.ToFloat64(c.eventsReceived.WithLabelValues("tm.event = 'NewBlock'")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.decodeErrors))
	require.Equal(t, 1.0, testutil.ToFloat64(c.subscriptions))
}

func TestPrometheusCollector_ReusesRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()

	first, err := NewPrometheusCollector(reg)
	require.NoError(t, err)
	second, err := NewPrometheusCollector(reg)
	require.NoError(t, err)

	first.IncDecodeErrors()
	require.Equal(t, 1.0, testutil.ToFloat64(second.decodeErrors))
}
