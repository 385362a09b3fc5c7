package client

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidState matches every *InvalidStateError with errors.Is.
	ErrInvalidState = errors.New("client: invalid state")

	// ErrTransport matches every *TransportError with errors.Is.
	ErrTransport = errors.New("client: transport error")
)

// InvalidStateError is returned when an operation is not legal in the
// client's current state. The client is left unchanged.
type InvalidStateError struct {
	Expected State
	Current  State
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("client: invalid state: expected %s, current %s", e.Expected, e.Current)
}

// Is reports whether target is ErrInvalidState.
func (e *InvalidStateError) Is(target error) bool {
	return target == ErrInvalidState
}

// TransportError wraps a failure reported by the transport.
type TransportError struct {
	// Op is the operation that failed: open, subscribe, receive or close.
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("client: transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrTransport.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

func invalidState(expected, current State) error {
	return &InvalidStateError{Expected: expected, Current: current}
}

func transportError(op string, err error) error {
	return &TransportError{Op: op, Err: err}
}
