// Package mute implements the per-session set of muted peer slot ids and
// the inbound scoped-chat filter built on top of it. It owns no
// persistence: GameRelay calls out to its controller collaborator when a
// mute/unmute should survive the session (see spec §4.2, §4.4.3).
package mute

import (
	"sort"

	"github.com/aesteve/flo/internal/w3gs"
)

// Policy is the mutable set of muted slot player ids for one session. It
// has exactly one owner — the relay goroutine — so, unlike state the
// teacher shares across goroutines (e.g. Room.clients), it carries no
// mutex.
type Policy struct {
	mySlot uint8
	muted  map[uint8]struct{}
}

// New creates an empty Policy for the session owned by mySlotPlayerID.
// mySlotPlayerID is never added to the muted set (invariant 1).
func New(mySlotPlayerID uint8) *Policy {
	return &Policy{
		mySlot: mySlotPlayerID,
		muted:  make(map[uint8]struct{}),
	}
}

// Mute adds slotPlayerID to the muted set. No-op if already muted, or if
// slotPlayerID is the policy's own slot.
func (p *Policy) Mute(slotPlayerID uint8) {
	if slotPlayerID == p.mySlot {
		return
	}
	p.muted[slotPlayerID] = struct{}{}
}

// Unmute removes slotPlayerID from the muted set. No-op if not muted.
func (p *Policy) Unmute(slotPlayerID uint8) {
	delete(p.muted, slotPlayerID)
}

// MuteMany mutes every id in ids, applying the same rules as Mute.
func (p *Policy) MuteMany(ids ...uint8) {
	for _, id := range ids {
		p.Mute(id)
	}
}

// UnmuteAll clears the muted set.
func (p *Policy) UnmuteAll() {
	p.muted = make(map[uint8]struct{})
}

// IsMuted reports whether slotPlayerID is currently muted.
func (p *Policy) IsMuted(slotPlayerID uint8) bool {
	_, ok := p.muted[slotPlayerID]
	return ok
}

// Empty reports whether the muted set has no entries.
func (p *Policy) Empty() bool {
	return len(p.muted) == 0
}

// Muted returns the currently muted slot ids in ascending order. Insertion
// order is irrelevant per spec, so a sorted slice gives deterministic
// output for commands that list muted players.
func (p *Policy) Muted() []uint8 {
	out := make([]uint8, 0, len(p.muted))
	for id := range p.muted {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ShouldDropChat reports whether an inbound ChatFromHost whose inner
// message is from fromSlotPlayerID and has the given kind should be
// dropped. Only Scoped chat from a muted sender is ever dropped; all other
// chat (broadcast/system) always passes.
func (p *Policy) ShouldDropChat(fromSlotPlayerID uint8, kind w3gs.ChatMessageKind) bool {
	return kind == w3gs.ChatScoped && p.IsMuted(fromSlotPlayerID)
}
