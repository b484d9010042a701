package nodehost

import (
	"context"
	"testing"
	"time"

	"github.com/aesteve/flo/internal/tick"
	"github.com/aesteve/flo/internal/w3gs"
)

func TestRunHostLoopDeliversTicksInOrder(t *testing.T) {
	stream := tick.New(15)
	stream.AddAction(w3gs.PlayerAction{PlayerID: 1})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	ticks := make(chan tick.Tick, 4)
	done := make(chan error, 1)
	go func() {
		done <- RunHostLoop(ctx, stream, func(tk tick.Tick) { ticks <- tk })
	}()

	select {
	case tk := <-ticks:
		if len(tk.Actions) != 1 || tk.Actions[0].PlayerID != 1 {
			t.Errorf("tick actions = %+v, want one action from player 1", tk.Actions)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for first tick")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("RunHostLoop returned %v, want nil on context cancellation", err)
	}
}
