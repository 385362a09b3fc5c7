package rpc

import (
	"errors"
	"fmt"
)

var (
	// ErrClientClosed is returned by operations on a client that was closed.
	ErrClientClosed = errors.New("rpc: client closed")

	// ErrDriverRunning is returned when Run is called on a driver that is
	// already running or has finished.
	ErrDriverRunning = errors.New("rpc: driver already started")

	// ErrAlreadySubscribed is returned when a query already has a live
	// subscription on the connection.
	ErrAlreadySubscribed = errors.New("rpc: already subscribed to query")
)

// Error is a JSON-RPC error object returned by the node.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

func (e *Error) Error() string {
	if e.Data != "" {
		return fmt.Sprintf("rpc: node error %d: %s: %s", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("rpc: node error %d: %s", e.Code, e.Message)
}
