// Package tick implements the node-side action-tick clock: a lazy,
// infinite, non-restartable sequence of fixed-cadence ticks that batches
// player actions, and supports dynamic step adjustment and pause/resume
// with no dropped actions.
package tick

import (
	"context"
	"sync"
	"time"

	"github.com/aesteve/flo/internal/w3gs"
)

// MinStep and MaxStep bound the configurable tick cadence, in milliseconds.
const (
	MinStep uint16 = 15
	MaxStep uint16 = 250
)

func clampStep(v uint16) uint16 {
	switch {
	case v < MinStep:
		return MinStep
	case v > MaxStep:
		return MaxStep
	default:
		return v
	}
}

// Tick is one quantum of the simulation clock.
type Tick struct {
	TimeIncrementMs uint16
	Actions         []w3gs.PlayerAction
}

// Stream is the action-tick clock. The owning task mutates configuration
// and pending actions (AddAction, ReplaceActions, Pause, Resume, SetStep);
// a single consumer task pulls ticks via Next. Dropping a Stream is simply
// ceasing to call Next — there is no separate Close.
type Stream struct {
	mu       sync.Mutex
	paused   bool
	step     uint16
	deadline time.Time
	pending  []w3gs.PlayerAction
	wake     chan struct{}
}

// New creates a Stream with the given step, clamped to [MinStep, MaxStep],
// and arms the first deadline at now+step.
func New(step uint16) *Stream {
	s := &Stream{
		step: clampStep(step),
		wake: make(chan struct{}),
	}
	s.deadline = time.Now().Add(time.Duration(s.step) * time.Millisecond)
	return s
}

// signal wakes any goroutine parked in Next on the current wake channel.
// Must be called with mu held.
func (s *Stream) signal() {
	close(s.wake)
	s.wake = make(chan struct{})
}

// SetStep clamps value to [MinStep, MaxStep] and re-arms the next deadline
// at now+clamped-value. Both the stored step and the armed deadline use
// the clamped value — resolving the open question in spec §9 in favor of
// the non-buggy reading: the new cadence begins from the call site, not
// the previous deadline.
func (s *Stream) SetStep(value uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.step = clampStep(value)
	s.deadline = time.Now().Add(time.Duration(s.step) * time.Millisecond)
	s.signal()
}

// Step returns the current clamped step.
func (s *Stream) Step() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// AddAction appends a to the pending queue.
func (s *Stream) AddAction(a w3gs.PlayerAction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, a)
}

// ReplaceActions atomically replaces the pending queue.
func (s *Stream) ReplaceActions(actions []w3gs.PlayerAction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = actions
}

// Pause stops tick emission. No tick is emitted while paused; actions
// added during the pause are held and emitted in the first tick after
// Resume.
func (s *Stream) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = true
	s.deadline = time.Now()
	s.signal()
}

// IsPaused reports whether the stream is currently paused.
func (s *Stream) IsPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// Resume re-arms the deadline at now+step and wakes the parked consumer
// exactly once.
func (s *Stream) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = false
	s.deadline = time.Now().Add(time.Duration(s.step) * time.Millisecond)
	s.signal()
}

// Next blocks until the next Tick is ready, or ctx is done. While paused,
// Next blocks until Resume (or ctx cancellation) without emitting.
func (s *Stream) Next(ctx context.Context) (Tick, error) {
	for {
		s.mu.Lock()
		if s.paused {
			wake := s.wake
			s.mu.Unlock()
			select {
			case <-wake:
				continue
			case <-ctx.Done():
				return Tick{}, ctx.Err()
			}
		}
		deadline := s.deadline
		wake := s.wake
		s.mu.Unlock()

		timer := time.NewTimer(time.Until(deadline))
		select {
		case <-timer.C:
		case <-wake:
			timer.Stop()
			continue
		case <-ctx.Done():
			timer.Stop()
			return Tick{}, ctx.Err()
		}

		s.mu.Lock()
		if s.paused || !s.deadline.Equal(deadline) {
			// State changed (Pause/SetStep/Resume) between the timer firing
			// and acquiring the lock; don't emit against a stale deadline.
			s.mu.Unlock()
			continue
		}

		now := time.Now()
		overshoot := saturatingU16Millis(now.Sub(deadline))
		step := s.step
		s.deadline = deadline.Add(time.Duration(step) * time.Millisecond)
		actions := s.pending
		s.pending = nil
		s.mu.Unlock()

		return Tick{
			TimeIncrementMs: step + overshoot,
			Actions:         actions,
		}, nil
	}
}

// saturatingU16Millis converts d to milliseconds, clamped to [0, 65535].
func saturatingU16Millis(d time.Duration) uint16 {
	ms := d.Milliseconds()
	switch {
	case ms < 0:
		return 0
	case ms > 0xffff:
		return 0xffff
	default:
		return uint16(ms)
	}
}
