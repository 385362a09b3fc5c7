package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	RPCAddr      string `toml:"rpc_addr"`
	RPCPort      int    `toml:"rpc_port"`
	Secure       *bool  `toml:"secure"`
	Event        string `toml:"event"`
	Count        *int   `toml:"count"`
	Compact      *bool  `toml:"compact"`
	NodeHome     string `toml:"node_home"`
	ChainID      string `toml:"chain_id"`
	DialTimeout  string `toml:"dial_timeout"`
	PingInterval string `toml:"ping_interval"`
	ReadLimit    int    `toml:"read_limit"`
	LogLevel     string `toml:"log_level"`
	MetricsAddr  string `toml:"metrics_addr"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.nodesub/config.toml, or "" when the home
// directory is unknown.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".nodesub", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("rpc-addr", fc.RPCAddr, &cfg.RPCAddr)
	s.setString("event", fc.Event, &cfg.Event)
	s.setString("node-home", fc.NodeHome, &cfg.NodeHome)
	s.setString("chain-id", fc.ChainID, &cfg.ChainID)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("metrics-addr", fc.MetricsAddr, &cfg.MetricsAddr)

	if err := s.setDuration("dial-timeout", fc.DialTimeout, &cfg.DialTimeout); err != nil {
		return err
	}
	if err := s.setDuration("ping-interval", fc.PingInterval, &cfg.PingInterval); err != nil {
		return err
	}

	s.setInt("rpc-port", fc.RPCPort, &cfg.RPCPort)
	s.setInt("read-limit", fc.ReadLimit, &cfg.ReadLimit)
	if fc.Count != nil && !changed["count"] {
		cfg.Count = *fc.Count
	}

	s.setBool("secure", fc.Secure, &cfg.Secure)
	s.setBool("compact", fc.Compact, &cfg.Compact)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
