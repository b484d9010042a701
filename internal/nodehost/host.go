// Package nodehost provides the node side's consumer of the action-tick
// clock: a single goroutine that pulls ticks as fast as tick.Stream
// produces them and hands each to a sink, the minimal caller that makes
// internal/tick observable end-to-end (it is not itself part of the
// specified core — see SPEC_FULL.md §5).
package nodehost

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aesteve/flo/internal/tick"
)

// RunHostLoop pulls ticks from stream until ctx is done or stream
// returns a non-cancellation error, handing each Tick to sink in order.
// sink is called synchronously from this goroutine; a slow sink delays
// the next Next() call exactly the way a slow consumer would on the
// original's pollable stream.
func RunHostLoop(ctx context.Context, stream *tick.Stream, sink func(tick.Tick)) error {
	for {
		t, err := stream.Next(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			slog.Error("node host loop", "err", err)
			return err
		}
		sink(t)
	}
}
