package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestZerologAdapter_Fields(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewZerologAdapterWithLogger(zerolog.New(&buf))

	adapter.Info("subscribed",
		String("query", "tm.event = 'NewBlock'"),
		Int("count", 5),
		Int64("height", 42),
		Bool("secure", false),
		Duration("elapsed", time.Second),
		Err(errors.New("boom")),
	)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Equal(t, "info", got["level"])
	require.Equal(t, "subscribed", got["message"])
	require.Equal(t, "tm.event = 'NewBlock'", got["query"])
	require.EqualValues(t, 5, got["count"])
	require.EqualValues(t, 42, got["height"])
	require.Equal(t, false, got["secure"])
	require.Equal(t, "boom", got["error"])
}

func TestZerologAdapter_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewZerologAdapterWithLogger(zerolog.New(&buf).Level(zerolog.WarnLevel))

	adapter.Debug("hidden")
	adapter.Info("hidden")
	require.Zero(t, buf.Len())

	adapter.Warn("shown")
	require.Contains(t, buf.String(), "shown")
}

func TestOrNoop(t *testing.T) {
	require.IsType(t, NoopLogger{}, OrNoop(nil))

	l := NewNoopLogger()
	require.Equal(t, Logger(l), OrNoop(l))
}
