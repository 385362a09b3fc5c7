package cliconfig

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ParseLevel parses a log level name such as "debug" or "warn".
func ParseLevel(s string) (zerolog.Level, error) {
	if s == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("parse log level: %w", err)
	}
	return level, nil
}

// Logger returns a console logger on stderr at the given level.
func Logger(level zerolog.Level) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger().
		Level(level)
}

// NewLogger parses name and returns a console logger at that level.
func NewLogger(name string) (zerolog.Logger, error) {
	level, err := ParseLevel(name)
	if err != nil {
		return zerolog.Nop(), err
	}
	return Logger(level), nil
}
