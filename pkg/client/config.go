package client

import (
	"fmt"
	"net"
	"strconv"
)

// LocalhostAddr and DefaultRPCPort describe a node running on the same host
// with the default CometBFT RPC listener.
const (
	LocalhostAddr  = "localhost"
	DefaultRPCPort = 26657
)

// NodeConfig is the address of a node's RPC endpoint.
type NodeConfig struct {
	Address string
	Port    uint16
	Secure  bool
}

// LocalNodeConfig returns the config of a local node without TLS.
func LocalNodeConfig() NodeConfig {
	return NodeConfig{
		Address: LocalhostAddr,
		Port:    DefaultRPCPort,
		Secure:  false,
	}
}

// URI returns the websocket endpoint, using wss when Secure is set.
func (c NodeConfig) URI() string {
	scheme := "ws"
	if c.Secure {
		scheme = "wss"
	}
	return fmt.Sprintf("%s://%s/websocket", scheme, net.JoinHostPort(c.Address, strconv.Itoa(int(c.Port))))
}
