package relay

import (
	"context"
	"sync"

	"github.com/aesteve/flo/internal/w3gs"
)

// ClientStream is the relay's view of the client-facing LAN connection:
// a bidirectional stream of W3GS frames. Implemented by
// internal/transport/lan.
type ClientStream interface {
	Send(ctx context.Context, p w3gs.Packet) error
	Recv(ctx context.Context) (w3gs.Packet, error)
	Flush(ctx context.Context) error
}

// NodeSender is the relay's one-way view of the node stream: packets the
// relay forwards towards the node. Implemented by internal/transport/node.
type NodeSender interface {
	Send(ctx context.Context, p w3gs.Packet) error
}

// StatusWatch is a single-slot latch for the node's reported game status,
// mirroring a Rust tokio::sync::watch channel: only the latest value
// matters, and a consumer that misses an update just sees the next one.
// Close marks the watch as permanently gone (the node status sender was
// dropped), which the relay treats as fatal.
type StatusWatch struct {
	mu        sync.Mutex
	value     NodeGameStatus
	hasValue  bool
	changed   chan struct{}
	closed    chan struct{}
	closeOnce sync.Once
}

// NewStatusWatch creates an empty, open StatusWatch.
func NewStatusWatch() *StatusWatch {
	return &StatusWatch{
		changed: make(chan struct{}),
		closed:  make(chan struct{}),
	}
}

// Set records a new status and wakes any goroutine parked on Changed.
func (w *StatusWatch) Set(s NodeGameStatus) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.value = s
	w.hasValue = true
	close(w.changed)
	w.changed = make(chan struct{})
}

// Close marks the watch as closed. Safe to call more than once.
func (w *StatusWatch) Close() {
	w.closeOnce.Do(func() { close(w.closed) })
}

// Changed returns a channel that closes the next time Set is called.
// Callers must re-fetch it after every wake, since it is replaced on
// every Set.
func (w *StatusWatch) Changed() <-chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.changed
}

// Closed returns a channel that closes once the watch is permanently shut
// down.
func (w *StatusWatch) Closed() <-chan struct{} {
	return w.closed
}

// Latest returns the most recently Set status.
func (w *StatusWatch) Latest() (NodeGameStatus, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.value, w.hasValue
}

// Inbound is the queue of packets destined for handleIncomingFromNode: both
// genuine packets forwarded from the node stream, and chat synthesized by
// the relay's own background tasks (stats, mute confirmations). It has
// many writers and exactly one reader (the relay's main loop), so unlike
// a Rust mpsc channel it cannot auto-close when the last sender drops;
// instead Close is called once, by whichever goroutine owns the node
// stream's read side, and Send simply stops succeeding afterwards.
type Inbound struct {
	ch        chan w3gs.Packet
	closed    chan struct{}
	closeOnce sync.Once
}

// NewInbound creates an Inbound queue with the given buffer size.
func NewInbound(buffer int) *Inbound {
	return &Inbound{
		ch:     make(chan w3gs.Packet, buffer),
		closed: make(chan struct{}),
	}
}

// Send enqueues p. It reports false if the queue has been closed.
func (q *Inbound) Send(p w3gs.Packet) bool {
	select {
	case <-q.closed:
		return false
	default:
	}
	select {
	case q.ch <- p:
		return true
	case <-q.closed:
		return false
	}
}

// SendCtx enqueues p, also giving up if ctx is done. Detached background
// tasks (chat synthesis, stats replies) use this so they don't outlive
// the session that spawned them indefinitely.
func (q *Inbound) SendCtx(ctx context.Context, p w3gs.Packet) bool {
	select {
	case <-q.closed:
		return false
	default:
	}
	select {
	case q.ch <- p:
		return true
	case <-q.closed:
		return false
	case <-ctx.Done():
		return false
	}
}

// Close marks the queue as permanently closed. Safe to call more than
// once; only the first call has effect.
func (q *Inbound) Close() {
	q.closeOnce.Do(func() { close(q.closed) })
}

// C returns the receive side of the queue, for use in a select statement.
func (q *Inbound) C() <-chan w3gs.Packet { return q.ch }

// Closed returns a channel that closes once Close has been called.
func (q *Inbound) Closed() <-chan struct{} { return q.closed }
