package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/aesteve/flo/internal/w3gs"
)

type fakeClientStream struct {
	sendErr error
}

func (f *fakeClientStream) Send(context.Context, w3gs.Packet) error { return f.sendErr }
func (f *fakeClientStream) Recv(context.Context) (w3gs.Packet, error) {
	return w3gs.Packet{}, nil
}
func (f *fakeClientStream) Flush(context.Context) error { return nil }

func TestCountingClientStreamCountsOnSuccess(t *testing.T) {
	counters := &SessionCounters{}
	c := NewCountingClientStream(&fakeClientStream{}, counters)

	if err := c.Send(context.Background(), w3gs.Packet{Body: []byte{1, 2, 3}}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got := counters.NodeToClientPackets.Load(); got != 1 {
		t.Errorf("NodeToClientPackets = %d, want 1", got)
	}
	if got := counters.NodeToClientBytes.Load(); got != 4 {
		t.Errorf("NodeToClientBytes = %d, want 4", got)
	}
}

func TestCountingClientStreamSkipsFailedSend(t *testing.T) {
	counters := &SessionCounters{}
	wantErr := errors.New("boom")
	c := NewCountingClientStream(&fakeClientStream{sendErr: wantErr}, counters)

	if err := c.Send(context.Background(), w3gs.Packet{}); !errors.Is(err, wantErr) {
		t.Fatalf("Send: %v", err)
	}
	if got := counters.NodeToClientPackets.Load(); got != 0 {
		t.Errorf("NodeToClientPackets = %d, want 0", got)
	}
}

type fakeNodeSender struct {
	sendErr error
}

func (f *fakeNodeSender) Send(context.Context, w3gs.Packet) error { return f.sendErr }

func TestCountingNodeSenderCountsOnSuccess(t *testing.T) {
	counters := &SessionCounters{}
	n := NewCountingNodeSender(&fakeNodeSender{}, counters)

	if err := n.Send(context.Background(), w3gs.Packet{Body: []byte{1, 2}}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got := counters.ClientToNodePackets.Load(); got != 1 {
		t.Errorf("ClientToNodePackets = %d, want 1", got)
	}
	if got := counters.ClientToNodeBytes.Load(); got != 3 {
		t.Errorf("ClientToNodeBytes = %d, want 3", got)
	}
}
