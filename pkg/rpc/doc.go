// Package rpc implements a JSON-RPC 2.0 client for the event stream exposed
// by CometBFT (Tendermint) nodes on their /websocket endpoint.
//
// Dial returns two halves sharing one connection: a WSClient used to issue
// requests and a WSDriver that pumps I/O. Nothing is delivered until the
// driver runs, so callers normally start it in its own goroutine:
//
//	client, driver, err := rpc.Dial(ctx, "ws://localhost:26657/websocket")
//	if err != nil {
//	    return err
//	}
//	go driver.Run()
//
//	sub, err := client.Subscribe(ctx, rpc.EventNewBlock.Query())
//	if err != nil {
//	    return err
//	}
//	for {
//	    ev, err := sub.Next(ctx)
//	    if errors.Is(err, io.EOF) {
//	        break
//	    }
//	    ...
//	}
//	_ = client.Close()
//
// The driver is the only goroutine that reads or writes the socket. Requests
// from WSClient reach it over a command channel, which makes WSClient safe
// for concurrent use.
package rpc
