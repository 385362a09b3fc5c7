// Package client provides the connection lifecycle for a CometBFT node's
// event stream.
//
// A connection moves through three states:
//
//	Uninitialized --Initialize()--> Initialized --Start()--> Running
//
// Initialize opens the transport and returns a client holding the
// connection and an idle driver. Start launches the driver in its own
// goroutine and returns a new Running client. Only a Running client can
// Subscribe, and only an Initialized client can Start, so a subscription is
// never issued before the driver pumps I/O and the driver is never started
// twice. Close is valid in both Initialized and Running.
//
// Every transition consumes its receiver: after Start or Close the receiver
// holds nothing and reports StateUninitialized, so a superseded client
// cannot be used by accident.
//
// # Usage
//
//	initialized, err := client.Initialize(ctx, client.LocalNodeConfig())
//	if err != nil {
//	    return err
//	}
//	running, err := initialized.Start()
//	if err != nil {
//	    return err
//	}
//	sub, err := running.Subscribe(ctx, rpc.EventNewBlock)
//	if err != nil {
//	    return err
//	}
//	ev, err := sub.Next(ctx)
//	...
//	return running.Close()
//
// # Driver shutdown
//
// Close releases the connection but neither stops nor waits for the driver.
// The driver notices the closed connection and exits on its own; callers
// that need to observe this can wait on Driver().Done().
package client
