package client

// State is the lifecycle state of a Client.
type State int

const (
	// StateUninitialized holds no transport resources. It is the state of a
	// zero Client and of a Client consumed by Start or Close.
	StateUninitialized State = iota

	// StateInitialized holds an open connection and a driver that has not
	// been started.
	StateInitialized

	// StateRunning holds an open connection whose driver is running.
	StateRunning
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "Uninitialized"
	case StateInitialized:
		return "Initialized"
	case StateRunning:
		return "Running"
	default:
		return "Unknown"
	}
}
