package metrics

import (
	"context"

	"github.com/aesteve/flo/internal/relay"
	"github.com/aesteve/flo/internal/w3gs"
)

// CountingClientStream wraps a relay.ClientStream and tallies every
// packet successfully sent to the client into the NodeToClient counters:
// forwarded node packets and synthesized chat, and also the relay's own
// pings and leave acks. The registry is fed without the relay package
// needing to know metrics exists.
type CountingClientStream struct {
	relay.ClientStream
	counters *SessionCounters
}

// NewCountingClientStream wraps inner, counting through counters.
func NewCountingClientStream(inner relay.ClientStream, counters *SessionCounters) *CountingClientStream {
	return &CountingClientStream{ClientStream: inner, counters: counters}
}

// Send forwards to the wrapped stream, counting on success.
func (c *CountingClientStream) Send(ctx context.Context, p w3gs.Packet) error {
	err := c.ClientStream.Send(ctx, p)
	if err == nil {
		c.counters.NodeToClientPackets.Add(1)
		c.counters.NodeToClientBytes.Add(uint64(len(p.Body) + 1))
	}
	return err
}

// CountingNodeSender wraps a relay.NodeSender and tallies every
// successfully sent client→node packet into counters.
type CountingNodeSender struct {
	relay.NodeSender
	counters *SessionCounters
}

// NewCountingNodeSender wraps inner, counting through counters.
func NewCountingNodeSender(inner relay.NodeSender, counters *SessionCounters) *CountingNodeSender {
	return &CountingNodeSender{NodeSender: inner, counters: counters}
}

// Send forwards to the wrapped sender, counting on success.
func (n *CountingNodeSender) Send(ctx context.Context, p w3gs.Packet) error {
	err := n.NodeSender.Send(ctx, p)
	if err == nil {
		n.counters.ClientToNodePackets.Add(1)
		n.counters.ClientToNodeBytes.Add(uint64(len(p.Body) + 1))
	}
	return err
}
