package cliconfig

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bft-labs/nodesub/pkg/client"
	"github.com/bft-labs/nodesub/pkg/rpc"
)

// Config holds CLI configuration for nodesub.
type Config struct {
	RPCAddr string
	RPCPort int
	Secure  bool

	Event   string
	Count   int
	Compact bool

	NodeHome string
	ChainID  string

	DialTimeout  time.Duration
	PingInterval time.Duration
	ReadLimit    int

	LogLevel    string
	MetricsAddr string
}

// DefaultConfig returns a Config with default values: a local node, five
// NewBlock events.
func DefaultConfig() Config {
	local := client.LocalNodeConfig()
	return Config{
		RPCAddr:      local.Address,
		RPCPort:      int(local.Port),
		Secure:       local.Secure,
		Event:        string(rpc.EventNewBlock),
		Count:        5,
		DialTimeout:  10 * time.Second,
		PingInterval: rpc.DefaultPingInterval,
		ReadLimit:    rpc.DefaultReadLimit,
		LogLevel:     "info",
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.RPCAddr == "" {
		return fmt.Errorf("rpc-addr is required")
	}
	if c.RPCPort <= 0 || c.RPCPort > 65535 {
		return fmt.Errorf("rpc-port must be between 1 and 65535, got %d", c.RPCPort)
	}
	if c.Event == "" {
		return fmt.Errorf("event is required")
	}
	if strings.ContainsAny(c.Event, "' ") {
		return fmt.Errorf("event %q is not a valid event type", c.Event)
	}
	if c.Count < 0 {
		return fmt.Errorf("count must not be negative")
	}
	if c.DialTimeout <= 0 {
		return fmt.Errorf("dial timeout must be positive")
	}
	if c.PingInterval < 0 {
		return fmt.Errorf("ping interval must not be negative")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// NodeConfig returns the connection settings for the client.
// Validate must have succeeded.
func (c Config) NodeConfig() client.NodeConfig {
	return client.NodeConfig{
		Address: c.RPCAddr,
		Port:    uint16(c.RPCPort),
		Secure:  c.Secure,
	}
}

// EventType returns the configured event as an rpc.EventType.
func (c Config) EventType() rpc.EventType {
	return rpc.EventType(c.Event)
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Zero is accepted so that count can be set to "unbounded" from the environment.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i < 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
