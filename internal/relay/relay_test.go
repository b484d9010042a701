package relay

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/aesteve/flo/internal/w3gs"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeClient is a ClientStream backed by a channel, so tests can feed
// packets and observe what the relay sends back.
type fakeClient struct {
	mu   sync.Mutex
	sent []w3gs.Packet
	recv chan w3gs.Packet
}

func newFakeClient() *fakeClient {
	return &fakeClient{recv: make(chan w3gs.Packet, 8)}
}

func (f *fakeClient) Send(_ context.Context, p w3gs.Packet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, p)
	return nil
}

func (f *fakeClient) Recv(ctx context.Context) (w3gs.Packet, error) {
	select {
	case pkt, ok := <-f.recv:
		if !ok {
			return w3gs.Packet{}, io.EOF
		}
		return pkt, nil
	case <-ctx.Done():
		return w3gs.Packet{}, ctx.Err()
	}
}

func (f *fakeClient) Flush(context.Context) error { return nil }

func (f *fakeClient) Sent() []w3gs.Packet {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]w3gs.Packet(nil), f.sent...)
}

// fakeNodeSender is a NodeSender capturing what's forwarded towards the
// node.
type fakeNodeSender struct {
	mu   sync.Mutex
	sent []w3gs.Packet
}

func (f *fakeNodeSender) Send(_ context.Context, p w3gs.Packet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, p)
	return nil
}

func (f *fakeNodeSender) Sent() []w3gs.Packet {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]w3gs.Packet(nil), f.sent...)
}

// fakeController records mute persistence calls and serves a canned mute
// list.
type fakeController struct {
	muteList []int32
	muted    []int32
	unmuted  []int32
}

func (c *fakeController) GetMuteList(context.Context) ([]int32, error) {
	return c.muteList, nil
}

func (c *fakeController) MutePlayer(_ context.Context, playerID int32) error {
	c.muted = append(c.muted, playerID)
	return nil
}

func (c *fakeController) UnmutePlayer(_ context.Context, playerID int32) error {
	c.unmuted = append(c.unmuted, playerID)
	return nil
}

func twoPlayerInfo(myTeam, opponentTeam int) LanGameInfo {
	return LanGameInfo{
		Game: GameInfo{
			ID:   42,
			Name: "Test Game",
			Slots: []Slot{
				{Team: myTeam, Race: RaceHuman},
				{Team: opponentTeam, Race: RaceOrc},
			},
		},
		Slot: SlotInfo{
			MySlotPlayerID: 1,
			MySlotTeam:     myTeam,
			PlayerInfos: []PlayerInfo{
				{SlotPlayerID: 1, SlotIndex: 0, PlayerID: 100, Name: "Me"},
				{SlotPlayerID: 2, SlotIndex: 1, PlayerID: 200, Name: "Bob"},
			},
		},
	}
}

func newTestRelay(info LanGameInfo, client ClientStream, node NodeSender, ctrl Controller) (*Relay, *Inbound, *StatusWatch) {
	inbound := NewInbound(inboundQueueBuffer)
	status := NewStatusWatch()
	r := New(info, NodeInfo{Name: "node-1"}, client, node, status, inbound, ctrl, nil, nil, &EndReasonCell{}, testLogger())
	return r, inbound, status
}

// drainChatText receives n packets off inbound and decodes each as a
// ChatFromHost, returning its text. Fails the test if they don't arrive
// within the timeout — background chat delivery is asynchronous.
func drainChatText(t *testing.T, inbound *Inbound, n int) []string {
	t.Helper()
	var out []string
	for i := 0; i < n; i++ {
		select {
		case pkt := <-inbound.C():
			chat, err := w3gs.DecodeChatFromHost(pkt.Body)
			if err != nil {
				t.Fatalf("decode chat: %v", err)
			}
			out = append(out, chat.Inner.Message.Text)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for chat message %d/%d", i+1, n)
		}
	}
	return out
}

func TestStartupAnnouncesAutoMute(t *testing.T) {
	info := twoPlayerInfo(0, 1)
	ctrl := &fakeController{muteList: []int32{200}}
	r, inbound, _ := newTestRelay(info, newFakeClient(), &fakeNodeSender{}, ctrl)

	r.startup(context.Background())

	msgs := drainChatText(t, inbound, 1)
	if msgs[0] != "Auto muted: Bob" {
		t.Errorf("got %q, want %q", msgs[0], "Auto muted: Bob")
	}
	if !r.mutes.IsMuted(2) {
		t.Error("expected slot 2 to be muted after startup")
	}
}

func TestHandleGamePacketLeaveReqRecordsReasonAndAcks(t *testing.T) {
	info := twoPlayerInfo(0, 1)
	client := newFakeClient()
	node := &fakeNodeSender{}
	r, _, _ := newTestRelay(info, client, node, &fakeController{})

	leave := w3gs.LeaveReq{Reason: 7}
	pkt, err := w3gs.Simple(leave)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	if err := r.handleGamePacket(context.Background(), pkt); err != nil {
		t.Fatalf("handleGamePacket: %v", err)
	}

	reason, ok := r.endReason.Get()
	if !ok || reason.Kind != EndReasonLeaveReq || reason.ReasonCode != 7 {
		t.Errorf("end reason = %+v, ok=%v, want LeaveReq/7", reason, ok)
	}

	sent := client.Sent()
	if len(sent) != 1 || sent[0].TypeID != w3gs.TypeLeaveAck {
		t.Errorf("expected a LeaveAck sent to client, got %+v", sent)
	}
	forwarded := node.Sent()
	if len(forwarded) != 1 || forwarded[0].TypeID != w3gs.TypeLeaveReq {
		t.Errorf("expected LeaveReq forwarded to node, got %+v", forwarded)
	}
}

func TestHandleIncomingFromNodeDropsMutedScopedChat(t *testing.T) {
	info := twoPlayerInfo(0, 1)
	client := newFakeClient()
	r, _, _ := newTestRelay(info, client, &fakeNodeSender{}, &fakeController{})
	r.mutes.Mute(2)

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
		t.Errorf("expected scoped chat from muted player to be dropped, got %+v", client.Sent())
	}
}

func TestHandleIncomingFromNodePassesBroadcastChatEvenIfMuted(t *testing.T) {
	info := twoPlayerInfo(0, 1)
	client := newFakeClient()
	r, _, _ := newTestRelay(info, client, &fakeNodeSender{}, &fakeController{})
	r.mutes.Mute(2)

	chat := w3gs.ChatFromHost{Inner: w3gs.ChatToHost{
		FromPlayer: 2,
		Message:    w3gs.ChatMessage{Kind: w3gs.ChatBroadcast, Text: "gl hf"},
	}}
	pkt, err := w3gs.Simple(chat)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	if err := r.handleIncomingFromNode(context.Background(), pkt); err != nil {
		t.Fatalf("handleIncomingFromNode: %v", err)
	}
	if len(client.Sent()) != 1 {
		t.Errorf("expected broadcast chat to pass through even when sender is muted, got %+v", client.Sent())
	}
}

func TestRunLeaveAckSequenceReturnsResultLeave(t *testing.T) {
	info := twoPlayerInfo(0, 1)
	client := newFakeClient()
	r, _, _ := newTestRelay(info, client, &fakeNodeSender{}, &fakeController{})

	ackPkt, err := w3gs.Simple(w3gs.LeaveAck{})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	client.recv <- ackPkt

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	result, err := r.Run(ctx, nil, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result != ResultLeave {
		t.Errorf("result = %v, want ResultLeave", result)
	}
}

func TestRunClientDisconnectReturnsResultDisconnected(t *testing.T) {
	info := twoPlayerInfo(0, 1)
	client := newFakeClient()
	r, _, _ := newTestRelay(info, client, &fakeNodeSender{}, &fakeController{})
	close(client.recv)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	result, err := r.Run(ctx, nil, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result != ResultDisconnected {
		t.Errorf("result = %v, want ResultDisconnected", result)
	}
}

func TestRunFatalOnClosedStatusWatch(t *testing.T) {
	info := twoPlayerInfo(0, 1)
	client := newFakeClient()
	r, _, status := newTestRelay(info, client, &fakeNodeSender{}, &fakeController{})
	status.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := r.Run(ctx, nil, nil)
	if !errors.Is(err, ErrTaskCancelled) {
		t.Errorf("err = %v, want ErrTaskCancelled", err)
	}
}

func TestRunFatalOnClosedInboundQueue(t *testing.T) {
	info := twoPlayerInfo(0, 1)
	client := newFakeClient()
	r, inbound, _ := newTestRelay(info, client, &fakeNodeSender{}, &fakeController{})
	inbound.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := r.Run(ctx, nil, nil)
	if !errors.Is(err, ErrTaskCancelled) {
		t.Errorf("err = %v, want ErrTaskCancelled", err)
	}
}
