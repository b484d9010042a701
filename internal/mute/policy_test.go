package mute

import (
	"reflect"
	"testing"

	"github.com/aesteve/flo/internal/w3gs"
)

func TestMuteIsIdempotent(t *testing.T) {
	p := New(1)
	p.Mute(2)
	p.Mute(2)
	if !p.IsMuted(2) {
		t.Fatal("expected 2 to be muted")
	}
	if got := p.Muted(); !reflect.DeepEqual(got, []uint8{2}) {
		t.Errorf("Muted() = %v, want [2]", got)
	}
}

func TestUnmuteRestoresPreState(t *testing.T) {
	p := New(1)
	p.Mute(2)
	p.Unmute(2)
	if p.IsMuted(2) {
		t.Fatal("expected 2 to be unmuted")
	}
	if !p.Empty() {
		t.Fatal("expected policy to be empty")
	}
}

func TestOwnSlotNeverMuted(t *testing.T) {
	p := New(1)
	p.Mute(1)
	if p.IsMuted(1) {
		t.Fatal("own slot must never be muted")
	}
	p.MuteMany(1, 2, 3)
	if p.IsMuted(1) {
		t.Fatal("own slot must never be muted, even via MuteMany")
	}
	if !p.IsMuted(2) || !p.IsMuted(3) {
		t.Fatal("expected 2 and 3 to be muted")
	}
}

func TestMuteAllThenUnmuteAllIsIdentity(t *testing.T) {
	p := New(1)
	p.MuteMany(2, 3, 4)
	p.UnmuteAll()
	if !p.Empty() {
		t.Fatal("expected empty policy after mute-all/unmute-all")
	}
}

func TestShouldDropChat(t *testing.T) {
	p := New(1)
	p.Mute(2)

	if !p.ShouldDropChat(2, w3gs.ChatScoped) {
		t.Error("expected scoped chat from muted sender to be dropped")
	}
	if p.ShouldDropChat(3, w3gs.ChatScoped) {
		t.Error("expected scoped chat from unmuted sender to pass")
	}
	if p.ShouldDropChat(2, w3gs.ChatBroadcast) {
		t.Error("expected broadcast chat to never be dropped, even from a muted sender")
	}
}

func TestMutedSortedDeterministic(t *testing.T) {
	p := New(1)
	p.MuteMany(5, 2, 9, 3)
	want := []uint8{2, 3, 5, 9}
	if got := p.Muted(); !reflect.DeepEqual(got, want) {
		t.Errorf("Muted() = %v, want %v", got, want)
	}
}
