// Package printer consumes subscription events: it bounds a stream to a
// number of items and renders each one as JSON.
package printer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/bft-labs/nodesub/pkg/rpc"
)

// Source yields events until io.EOF. *client.Subscription satisfies it.
type Source interface {
	Next(ctx context.Context) (rpc.Event, error)
}

// Take hands events from src to fn until n events were handled or src ends.
// n <= 0 takes every event. Per-item errors are passed to onErr and do not
// count toward n. Take returns the number of events handled, and stops early
// on a context error or an error from fn.
func Take(ctx context.Context, src Source, n int, fn func(rpc.Event) error, onErr func(error)) (int, error) {
	taken := 0
	for n <= 0 || taken < n {
		ev, err := src.Next(ctx)
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			return taken, nil
		case ctx.Err() != nil:
			return taken, ctx.Err()
		default:
			if onErr != nil {
				onErr(err)
			}
			continue
		}

		if err := fn(ev); err != nil {
			return taken, err
		}
		taken++
	}
	return taken, nil
}

// Printer writes events as JSON documents separated by newlines.
type Printer struct {
	w       io.Writer
	compact bool
}

// New returns a Printer writing indented JSON to w, or single-line JSON when
// compact is set.
func New(w io.Writer, compact bool) *Printer {
	return &Printer{w: w, compact: compact}
}

// Print writes ev.
func (p *Printer) Print(ev rpc.Event) error {
	var (
		b   []byte
		err error
	)
	if p.compact {
		b, err = json.Marshal(ev)
	} else {
		b, err = json.MarshalIndent(ev, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	b = append(b, '\n')
	if _, err := p.w.Write(b); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}
