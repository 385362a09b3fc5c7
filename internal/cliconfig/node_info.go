package cliconfig

import (
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/bft-labs/nodesub/pkg/client"
)

const (
	DefaultConfigDir       = "config"
	DefaultGenesisJSONName = "genesis.json"
	DefaultNodeConfigName  = "config.toml"
)

// LoadNodeInfo fills in settings from the node home directory when one is
// configured: the chain id from genesis.json, and the RPC listen address
// from config.toml unless rpc-addr or rpc-port were set explicitly or moved
// off their defaults.
func LoadNodeInfo(cfg *Config, changed map[string]bool) error {
	if cfg.NodeHome == "" {
		return nil
	}

	if cfg.ChainID == "" {
		chainID, err := readChainID(cfg.NodeHome)
		if err != nil {
			return fmt.Errorf("read chain id: %w", err)
		}
		cfg.ChainID = chainID
	}

	def := DefaultConfig()
	if changed["rpc-addr"] || changed["rpc-port"] || cfg.RPCAddr != def.RPCAddr || cfg.RPCPort != def.RPCPort {
		return nil
	}

	path := rootify(filepath.Join(DefaultConfigDir, DefaultNodeConfigName), cfg.NodeHome)
	if !FileExists(path) {
		return nil
	}
	host, port, err := readRPCListenAddr(path)
	if err != nil {
		return fmt.Errorf("read rpc laddr: %w", err)
	}
	cfg.RPCAddr = host
	cfg.RPCPort = port
	return nil
}

func readChainID(nodeHome string) (string, error) {
	path := rootify(filepath.Join(DefaultConfigDir, DefaultGenesisJSONName), nodeHome)
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	var doc genesisDoc
	if err := json.Unmarshal(b, &doc); err != nil {
		return "", err
	}
	return doc.ChainID, nil
}

// readRPCListenAddr reads [rpc] laddr, e.g. "tcp://127.0.0.1:26657".
// Wildcard hosts are reached through localhost.
func readRPCListenAddr(path string) (string, int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", 0, err
	}
	var nc nodeConfig
	if err := toml.Unmarshal(b, &nc); err != nil {
		return "", 0, err
	}
	if nc.RPC.ListenAddress == "" {
		return "", 0, fmt.Errorf("%s has no [rpc] laddr", path)
	}

	u, err := url.Parse(nc.RPC.ListenAddress)
	if err != nil {
		return "", 0, err
	}
	if u.Scheme != "tcp" {
		return "", 0, fmt.Errorf("unsupported rpc listen address %q", nc.RPC.ListenAddress)
	}
	host, portStr, err := net.SplitHostPort(u.Host)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("parse rpc port: %w", err)
	}

	switch host {
	case "", "0.0.0.0", "::":
		host = client.LocalhostAddr
	}
	return host, port, nil
}

// rootify returns the absolute path if path is absolute,
// otherwise it joins nodeHome and path.
func rootify(path, nodeHome string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(nodeHome, path)
}

type genesisDoc struct {
	ChainID string `json:"chain_id"`
}

// nodeConfig is the subset of CometBFT's config.toml read by LoadNodeInfo.
type nodeConfig struct {
	RPC struct {
		ListenAddress string `toml:"laddr"`
	} `toml:"rpc"`
}
