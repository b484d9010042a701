package relay

import (
	"context"
	"testing"

	"github.com/aesteve/flo/internal/chatcmd"
	"github.com/aesteve/flo/internal/w3gs"
)

func parseCmd(t *testing.T, text string) chatcmd.Command {
	t.Helper()
	cmd, ok := chatcmd.Parse(text)
	if !ok {
		t.Fatalf("failed to parse command %q", text)
	}
	return cmd
}

func TestHelpCommandListsCommands(t *testing.T) {
	info := twoPlayerInfo(0, 1)
	r, inbound, _ := newTestRelay(info, newFakeClient(), &fakeNodeSender{}, &fakeController{})

	if !r.handleChatCommand(context.Background(), parseCmd(t, "-flo")) {
		t.Fatal("expected -flo to be handled as a command")
	}
	msgs := drainChatText(t, inbound, len(helpText))
	if msgs[0] != helpText[0] {
		t.Errorf("first help line = %q, want %q", msgs[0], helpText[0])
	}
}

func TestUnrecognisedDashWordFallsThroughAsChat(t *testing.T) {
	info := twoPlayerInfo(0, 1)
	r, _, _ := newTestRelay(info, newFakeClient(), &fakeNodeSender{}, &fakeController{})

	if r.handleChatCommand(context.Background(), parseCmd(t, "-notacommand")) {
		t.Fatal("expected unrecognised command to fall through (return false)")
	}
}

func TestBlacklistedCommandFallsThroughAsChatWithoutBlacklist(t *testing.T) {
	info := twoPlayerInfo(0, 1)
	r, _, _ := newTestRelay(info, newFakeClient(), &fakeNodeSender{}, &fakeController{})

	if r.handleChatCommand(context.Background(), parseCmd(t, "-blacklisted")) {
		t.Fatal("expected -blacklisted to fall through (return false) with no blacklist collaborator wired")
	}
}

func TestMuteCommandSingleOpponentMutesImmediately(t *testing.T) {
	info := twoPlayerInfo(0, 1)
	r, inbound, _ := newTestRelay(info, newFakeClient(), &fakeNodeSender{}, &fakeController{})

	if !r.handleChatCommand(context.Background(), parseCmd(t, "-mute")) {
		t.Fatal("expected -mute to be handled")
	}
	msgs := drainChatText(t, inbound, 1)
	if msgs[0] != "Muted: Bob" {
		t.Errorf("got %q, want %q", msgs[0], "Muted: Bob")
	}
	if !r.mutes.IsMuted(2) {
		t.Error("expected slot 2 to be muted")
	}
}

func TestMuteCommandCannotMuteSelf(t *testing.T) {
	info := twoPlayerInfo(0, 1)
	r, inbound, _ := newTestRelay(info, newFakeClient(), &fakeNodeSender{}, &fakeController{})

	if !r.handleChatCommand(context.Background(), parseCmd(t, "-mute 1")) {
		t.Fatal("expected -mute 1 to be handled")
	}
	msgs := drainChatText(t, inbound, 1)
	if msgs[0] != "You cannot mute yourself." {
		t.Errorf("got %q", msgs[0])
	}
	if r.mutes.IsMuted(1) {
		t.Error("own slot must never become muted")
	}
}

func TestMuteAllThenIncomingScopedChatIsFiltered(t *testing.T) {
	info := twoPlayerInfo(0, 1)
	client := newFakeClient()
	r, inbound, _ := newTestRelay(info, client, &fakeNodeSender{}, &fakeController{})

	if !r.handleChatCommand(context.Background(), parseCmd(t, "-muteall")) {
		t.Fatal("expected -muteall to be handled")
	}
	drainChatText(t, inbound, 1) // "All players muted."

	if !r.mutes.IsMuted(2) {
		t.Fatal("expected opponent to be muted after -muteall")
	}

	chat := w3gs.ChatFromHost{Inner: w3gs.ChatToHost{
		FromPlayer: 2,
		ToPlayers:  []uint8{1},
		Message:    w3gs.ChatMessage{Kind: w3gs.ChatScoped, Text: "hi"},
	}}
	pkt, err := w3gs.Simple(chat)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := r.handleIncomingFromNode(context.Background(), pkt); err != nil {
		t.Fatalf("handleIncomingFromNode: %v", err)
	}
	if len(client.Sent()) != 0 {
		t.Errorf("expected scoped chat from muted opponent to be filtered, got %+v", client.Sent())
	}
}

func TestUnmuteAllCommand(t *testing.T) {
	info := twoPlayerInfo(0, 1)
	r, inbound, _ := newTestRelay(info, newFakeClient(), &fakeNodeSender{}, &fakeController{})
	r.mutes.Mute(2)

	if !r.handleChatCommand(context.Background(), parseCmd(t, "-unmuteall")) {
		t.Fatal("expected -unmuteall to be handled")
	}
	drainChatText(t, inbound, 1)
	if r.mutes.IsMuted(2) {
		t.Error("expected slot 2 to be unmuted")
	}
}

type fakeStats struct {
	calls []string
}

func (f *fakeStats) GetStats(_ context.Context, name string, race uint32, solo bool) (string, error) {
	f.calls = append(f.calls, name)
	return name + " stats", nil
}

func TestStatsCommandSoloLookupsOpponent(t *testing.T) {
	info := twoPlayerInfo(0, 1)
	inbound := NewInbound(inboundQueueBuffer)
	status := NewStatusWatch()
	stats := &fakeStats{}
	r := New(info, NodeInfo{}, newFakeClient(), &fakeNodeSender{}, status, inbound, &fakeController{}, stats, nil, &EndReasonCell{}, testLogger())

	if !r.handleChatCommand(context.Background(), parseCmd(t, "-stats")) {
		t.Fatal("expected -stats to be handled")
	}
	msgs := drainChatText(t, inbound, 1)
	if msgs[0] != "Bob stats" {
		t.Errorf("got %q, want %q", msgs[0], "Bob stats")
	}
}

func TestGameCommandReportsRoster(t *testing.T) {
	info := twoPlayerInfo(0, 1)
	r, inbound, _ := newTestRelay(info, newFakeClient(), &fakeNodeSender{}, &fakeController{})

	if !r.handleChatCommand(context.Background(), parseCmd(t, "-game")) {
		t.Fatal("expected -game to be handled")
	}
	msgs := drainChatText(t, inbound, 3+2)
	if msgs[0] != "Game: Test Game (#42)" {
		t.Errorf("got %q", msgs[0])
	}
}
