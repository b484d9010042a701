// Package metrics periodically logs relay throughput: the number of
// active sessions and the packets/bytes those sessions have forwarded in
// each direction; a session's counts drop out of the totals once it is
// unregistered. It mirrors the teacher's RunMetrics loop
// (room-wide datagram/byte counters on a ticker), generalized to the
// relay's per-session, two-directional packet counters.
package metrics

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
)

// SessionCounters tracks one session's forwarded packet/byte totals.
// Safe for concurrent use; the CountingClientStream/CountingNodeSender
// decorators update it on every successful Send.
type SessionCounters struct {
	ClientToNodePackets atomic.Uint64
	ClientToNodeBytes   atomic.Uint64
	NodeToClientPackets atomic.Uint64
	NodeToClientBytes   atomic.Uint64
}

// Registry tracks every active session's counters, keyed by an
// operator-assigned session id (e.g. the game id).
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*SessionCounters
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*SessionCounters)}
}

// Register creates and tracks counters for a new session.
func (r *Registry) Register(id string) *SessionCounters {
	c := &SessionCounters{}
	r.mu.Lock()
	r.sessions[id] = c
	r.mu.Unlock()
	return c
}

// Unregister stops tracking a session, e.g. once its Relay.Run returns.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// totals sums every tracked session's counters.
func (r *Registry) totals() (sessions int, packets, bytes uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.sessions {
		packets += c.ClientToNodePackets.Load() + c.NodeToClientPackets.Load()
		bytes += c.ClientToNodeBytes.Load() + c.NodeToClientBytes.Load()
	}
	return len(r.sessions), packets, bytes
}

// Totals exposes the same aggregate totals returned to Run, for
// operator-facing surfaces (internal/httpapi's /health).
func (r *Registry) Totals() (sessions int, packets, bytes uint64) {
	return r.totals()
}

// Snapshot returns a copy of the currently tracked sessions, keyed by id.
// Safe to call concurrently with Register/Unregister.
func (r *Registry) Snapshot() map[string]*SessionCounters {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]*SessionCounters, len(r.sessions))
	for id, c := range r.sessions {
		out[id] = c
	}
	return out
}

// Run logs aggregate relay throughput every interval until ctx is
// canceled.
func Run(ctx context.Context, registry *Registry, interval time.Duration, log *slog.Logger) {
	if log == nil {
		log = slog.Default()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sessions, packets, bytes := registry.totals()
			if sessions == 0 && packets == 0 {
				continue
			}
			rate := float64(bytes) / interval.Seconds()
			log.Info("relay throughput",
				"sessions", sessions,
				"packets", humanize.Comma(int64(packets)),
				"bytes", humanize.Bytes(bytes),
				"rate", humanize.Bytes(uint64(rate))+"/s",
			)
		}
	}
}
