package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (NODESUB_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("rpc-addr", os.Getenv("NODESUB_RPC_ADDR"), &cfg.RPCAddr)
	s.setString("event", os.Getenv("NODESUB_EVENT"), &cfg.Event)
	s.setString("node-home", os.Getenv("NODESUB_NODE_HOME"), &cfg.NodeHome)
	s.setString("chain-id", os.Getenv("NODESUB_CHAIN_ID"), &cfg.ChainID)
	s.setString("log-level", os.Getenv("NODESUB_LOG_LEVEL"), &cfg.LogLevel)
	s.setString("metrics-addr", os.Getenv("NODESUB_METRICS_ADDR"), &cfg.MetricsAddr)

	if err := s.setDuration("dial-timeout", os.Getenv("NODESUB_DIAL_TIMEOUT"), &cfg.DialTimeout); err != nil {
		return err
	}
	if err := s.setDuration("ping-interval", os.Getenv("NODESUB_PING_INTERVAL"), &cfg.PingInterval); err != nil {
		return err
	}

	if err := s.setIntFromString("rpc-port", os.Getenv("NODESUB_RPC_PORT"), &cfg.RPCPort); err != nil {
		return err
	}
	if err := s.setIntFromString("count", os.Getenv("NODESUB_COUNT"), &cfg.Count); err != nil {
		return err
	}
	if err := s.setIntFromString("read-limit", os.Getenv("NODESUB_READ_LIMIT"), &cfg.ReadLimit); err != nil {
		return err
	}

	s.setBoolFromString("secure", os.Getenv("NODESUB_SECURE"), &cfg.Secure)
	s.setBoolFromString("compact", os.Getenv("NODESUB_COMPACT"), &cfg.Compact)

	return nil
}
