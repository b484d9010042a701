// Package relay implements GameRelay: the single-goroutine state machine
// that sits between one LAN client and its hosting node, forwarding W3GS
// packets, filtering muted chat, intercepting chat commands, and
// terminating the session exactly once a leave or disconnect is observed
// (spec §4.4).
package relay

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aesteve/flo/internal/chatcmd"
	"github.com/aesteve/flo/internal/mute"
	"github.com/aesteve/flo/internal/w3gs"
)

// Relay is one session's state: a single client, the node hosting it, and
// the session-scoped mute policy layered on top of the wire protocol.
type Relay struct {
	info LanGameInfo
	node NodeInfo

	client  ClientStream
	nodeOut NodeSender
	status  *StatusWatch
	inbound *Inbound

	controller Controller
	stats      StatsClient
	blacklist  Blacklist

	mutes     *mute.Policy
	endReason *EndReasonCell
	log       *slog.Logger
}

// New builds a Relay for one session. blacklist and stats may be nil,
// disabling the corresponding chat commands.
func New(
	info LanGameInfo,
	node NodeInfo,
	client ClientStream,
	nodeOut NodeSender,
	status *StatusWatch,
	inbound *Inbound,
	controller Controller,
	stats StatsClient,
	blacklist Blacklist,
	endReason *EndReasonCell,
	log *slog.Logger,
) *Relay {
	if log == nil {
		log = slog.Default()
	}
	return &Relay{
		info:       info,
		node:       node,
		client:     client,
		nodeOut:    nodeOut,
		status:     status,
		inbound:    inbound,
		controller: controller,
		stats:      stats,
		blacklist:  blacklist,
		mutes:      mute.New(info.Slot.MySlotPlayerID),
		endReason:  endReason,
		log:        log,
	}
}

// clientMsg carries one Recv result (or the terminal error) from the
// detached client-reading goroutine into the main select loop.
type clientMsg struct {
	pkt w3gs.Packet
	err error
}

// Run drives the session to completion: startup (mute-list seeding,
// deferred-packet replay, ping arming), then the four-way select loop
// (ping tick, client inbound, node status change, node/synthesized
// inbound) until a clean Result or a fatal error.
func (r *Relay) Run(ctx context.Context, deferredIn, deferredOut []w3gs.Packet) (Result, error) {
	r.startup(ctx)

	for _, pkt := range deferredIn {
		r.log.Warn("deferred in packet", "type", pkt.TypeID)
		if err := r.handleIncomingFromNode(ctx, pkt); err != nil {
			return ResultDisconnected, err
		}
	}
	for _, pkt := range deferredOut {
		r.log.Warn("deferred out packet", "type", pkt.TypeID)
		if err := r.nodeOut.Send(ctx, pkt); err != nil {
			return ResultDisconnected, err
		}
	}

	pingTicker := time.NewTicker(pingInterval)
	defer pingTicker.Stop()
	pingPkt, err := w3gs.Simple(w3gs.WithPayload(0))
	if err != nil {
		return ResultDisconnected, err
	}

	clientCh := make(chan clientMsg)
	go r.readClientLoop(ctx, clientCh)

	for {
		select {
		case <-ctx.Done():
			return ResultDisconnected, ctx.Err()

		case <-pingTicker.C:
			if err := r.client.Send(ctx, pingPkt); err != nil {
				return ResultDisconnected, err
			}

		case m := <-clientCh:
			if m.err != nil {
				r.log.Error("game connection", "err", m.err)
				return ResultDisconnected, nil
			}
			if m.pkt.TypeID == w3gs.TypeLeaveAck {
				r.log.Info("game leave ack received")
				ack, err := w3gs.Simple(w3gs.LeaveAck{})
				if err != nil {
					return ResultDisconnected, err
				}
				if err := r.client.Send(ctx, ack); err != nil {
					return ResultDisconnected, err
				}
				if err := r.client.Flush(ctx); err != nil {
					return ResultDisconnected, err
				}
				return ResultLeave, nil
			}
			if err := r.handleGamePacket(ctx, m.pkt); err != nil {
				return ResultDisconnected, err
			}

		case <-r.status.Changed():
			if s, ok := r.status.Latest(); ok {
				r.handleGameStatusChange(s)
			}

		case <-r.status.Closed():
			return ResultDisconnected, fmt.Errorf("%w: game status tx dropped", ErrTaskCancelled)

		case pkt := <-r.inbound.C():
			if err := r.handleIncomingFromNode(ctx, pkt); err != nil {
				return ResultDisconnected, err
			}

		case <-r.inbound.Closed():
			return ResultDisconnected, fmt.Errorf("%w: w3gs tx dropped", ErrTaskCancelled)
		}
	}
}

// readClientLoop feeds every Recv result from the client stream into out,
// including the terminal error, and exits once it has delivered one.
func (r *Relay) readClientLoop(ctx context.Context, out chan<- clientMsg) {
	for {
		pkt, err := r.client.Recv(ctx)
		select {
		case out <- clientMsg{pkt: pkt, err: err}:
		case <-ctx.Done():
			return
		}
		if err != nil {
			return
		}
	}
}

// startup seeds the mute policy from the controller's persisted mute list,
// announces auto-muted and (if a blacklist collaborator is wired)
// blacklisted players in a single private chat line each.
func (r *Relay) startup(ctx context.Context) {
	muteList, err := r.controller.GetMuteList(ctx)
	if err != nil {
		r.log.Warn("get mute list", "err", err)
		muteList = nil
	}

	var mutedNames []string
	for _, p := range r.info.Slot.PlayerInfos {
		if containsInt32(muteList, p.PlayerID) {
			mutedNames = append(mutedNames, p.Name)
			r.mutes.Mute(p.SlotPlayerID)
		}
	}
	if len(mutedNames) > 0 {
		r.sendChatsToSelf(ctx, []string{fmt.Sprintf("Auto muted: %s", strings.Join(mutedNames, ", "))})
	}

	if r.blacklist != nil {
		var blacklisted []string
		for _, p := range r.info.Slot.PlayerInfos {
			reason, found, err := r.blacklist.Reason(ctx, p.Name)
			if err != nil {
				r.log.Warn("blacklist lookup", "player", p.Name, "err", err)
				continue
			}
			if found {
				blacklisted = append(blacklisted, fmt.Sprintf("%s for %s", p.Name, reason))
			}
		}
		if len(blacklisted) > 0 {
			r.sendChatsToSelf(ctx, []string{fmt.Sprintf("Blacklisted: %s", strings.Join(blacklisted, ", "))})
		}
	}
}

// handleGamePacket dispatches one client→node packet (spec §4.4.1):
// PongToHost is swallowed, scoped ChatToHost is checked for a chat
// command first, LeaveReq records the end reason and short-circuits the
// reply, and everything else (including unrecognised types) is forwarded
// to the node unchanged.
func (r *Relay) handleGamePacket(ctx context.Context, pkt w3gs.Packet) error {
	switch pkt.TypeID {
	case w3gs.TypePongToHost:
		return nil

	case w3gs.TypeChatToHost:
		chat, err := w3gs.DecodeChatToHost(pkt.Body)
		if err != nil {
			return fmt.Errorf("decode chat: %w", err)
		}
		if chat.Message.Kind == w3gs.ChatScoped {
			if cmd, ok := chatcmd.Parse(chat.Message.Text); ok {
				if r.handleChatCommand(ctx, cmd) {
					return nil
				}
			}
		}

	case w3gs.TypeOutgoingKeepAlive, w3gs.TypeOutgoingAction, w3gs.TypeDropReq:
		// pass through unchanged

	case w3gs.TypeLeaveReq:
		leave, err := w3gs.DecodeLeaveReq(pkt.Body)
		if err != nil {
			return fmt.Errorf("decode leave request: %w", err)
		}
		r.log.Info("request to leave received", "reason", leave.Reason)
		r.endReason.Set(GameEndReason{Kind: EndReasonLeaveReq, ReasonCode: leave.Reason})
		if err := r.nodeOut.Send(ctx, pkt); err != nil {
			r.log.Error("report request to leave", "err", err)
		}
		ack, err := w3gs.Simple(w3gs.LeaveAck{})
		if err != nil {
			return err
		}
		return r.client.Send(ctx, ack)

	default:
		r.log.Debug("unknown game packet", "type", pkt.TypeID)
	}

	return r.nodeOut.Send(ctx, pkt)
}

// handleIncomingFromNode dispatches one node→client packet (spec §4.4.2):
// a Scoped ChatFromHost from a muted sender is dropped, everything else
// (including every synthesized reply pushed through the same queue) is
// forwarded to the client unchanged.
func (r *Relay) handleIncomingFromNode(ctx context.Context, pkt w3gs.Packet) error {
	if pkt.TypeID == w3gs.TypeChatFromHost && !r.mutes.Empty() {
		chat, err := w3gs.DecodeChatFromHost(pkt.Body)
		if err != nil {
			return fmt.Errorf("decode chat: %w", err)
		}
		if r.mutes.ShouldDropChat(chat.FromPlayer(), chat.Inner.Message.Kind) {
			return nil
		}
	}
	return r.client.Send(ctx, pkt)
}

func (r *Relay) handleGameStatusChange(status NodeGameStatus) {
	r.log.Debug("game status changed", "status", status)
}

// sendChatsToSelf detaches a background task that pushes each message as
// a private ChatFromHost into the inbound queue, to be picked up by the
// main loop and forwarded to the client — mirroring the teacher's pattern
// of spawning a goroutine that holds only cloned handles (see client.go's
// link-preview fetch).
func (r *Relay) sendChatsToSelf(ctx context.Context, messages []string) {
	playerID := r.info.Slot.MySlotPlayerID
	inbound := r.inbound
	log := r.log
	go deliverChatsToSelf(ctx, inbound, log, playerID, messages)
}

func deliverChatsToSelf(ctx context.Context, inbound *Inbound, log *slog.Logger, playerID uint8, messages []string) {
	for _, msg := range messages {
		pkt, err := w3gs.Simple(w3gs.PrivateToSelf(playerID, msg))
		if err != nil {
			log.Error("encode chat packet", "err", err)
			continue
		}
		inbound.SendCtx(ctx, pkt)
	}
}

// statTarget is one opponent whose stats the "-stats" command resolves.
type statTarget struct {
	name string
	race uint32
}

// sendStatsToSelf detaches a background task that fetches stats for each
// target (one collaborator call at a time, in order) and delivers each
// result as a private chat line as soon as it arrives.
func (r *Relay) sendStatsToSelf(ctx context.Context, targets []statTarget, solo bool) {
	playerID := r.info.Slot.MySlotPlayerID
	inbound := r.inbound
	log := r.log
	stats := r.stats
	go func() {
		if stats == nil {
			return
		}
		for _, t := range targets {
			text, err := stats.GetStats(ctx, t.name, t.race, solo)
			if err != nil {
				log.Warn("get stats", "player", t.name, "err", err)
				continue
			}
			deliverChatsToSelf(ctx, inbound, log, playerID, []string{text})
		}
	}()
}

// saveMute persists a mute/unmute decision through the controller
// collaborator and reports back whether it stuck permanently or only for
// the session.
func (r *Relay) saveMute(ctx context.Context, playerID int32, name string, muted bool) {
	myID := r.info.Slot.MySlotPlayerID
	controller := r.controller
	inbound := r.inbound
	log := r.log
	go func() {
		action := "Muted"
		if !muted {
			action = "Un-muted"
		}
		var err error
		if muted {
			err = controller.MutePlayer(ctx, playerID)
		} else {
			err = controller.UnmutePlayer(ctx, playerID)
		}
		if err != nil {
			log.Error("save mute failed", "err", err)
			deliverChatsToSelf(ctx, inbound, log, myID, []string{fmt.Sprintf("%s temporary: %s", action, name)})
		} else {
			deliverChatsToSelf(ctx, inbound, log, myID, []string{fmt.Sprintf("%s forever: %s", action, name)})
		}
	}()
}

func containsInt32(haystack []int32, needle int32) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}
