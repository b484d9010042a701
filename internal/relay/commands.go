package relay

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/aesteve/flo/internal/chatcmd"
)

// helpText is the literal "-flo" reply, restored from original_source
// (spec.md's distillation dropped the exact wording; §4.4 "Supplemented
// from original_source" calls for carrying it over verbatim). "-rtt" is
// listed here for parity with the original help text but is not
// implemented as a command: it falls through and is treated as ordinary
// scoped chat, exactly as in the source this was distilled from.
var helpText = []string{
	"-game: print game information.",
	"-muteall: Mute all players.",
	"-muteopps: Mute all opponents.",
	"-unmuteall: Unmute all players.",
	"-mute/mutef: Mute your opponent (1v1), or display a player list.",
	"-mute/mutef <ID>: Mute a player.",
	"-unmute/unmutef: Unmute your opponent (1v1), or display a player list.",
	"-unmute/unmutef <ID>: Unmute a player.",
	"-rtt: Print round-trip time information.",
	"-stats: Print opponent/opponents statistics.",
	"-stats <ID>: Print player statistics, or display a player list.",
}

// muteTarget is one player eligible for a mute/unmute/stats/blacklist
// command: its slot id, display name, and stable player id (for
// persistence).
type muteTarget struct {
	slotPlayerID uint8
	name         string
	playerID     int32
}

// handleChatCommand dispatches a parsed chat command (spec §4.4.3). It
// reports whether the text was consumed as a command (true) or should be
// treated as ordinary chat (false) — an unrecognised "-word" falls
// through to false, same as plain text.
func (r *Relay) handleChatCommand(ctx context.Context, cmd chatcmd.Command) bool {
	raw := cmd.Raw()
	myID := r.info.Slot.MySlotPlayerID

	switch raw {
	case "flo":
		r.sendChatsToSelf(ctx, helpText)
		return true

	case "game":
		r.sendChatsToSelf(ctx, r.gameInfoLines())
		return true

	case "muteall":
		r.mutes.MuteMany(r.info.Slot.OpponentSlotPlayerIDs()...)
		r.sendChatsToSelf(ctx, []string{"All players muted."})
		return true

	case "muteopps":
		r.mutes.MuteMany(r.opponentTeamSlotIDs()...)
		r.sendChatsToSelf(ctx, []string{"All opponents muted."})
		return true

	case "unmuteall":
		r.mutes.UnmuteAll()
		r.sendChatsToSelf(ctx, []string{"All players un-muted."})
		return true

	case "blacklisted":
		if r.blacklist == nil {
			// No blacklist collaborator wired: treat as unrecognised,
			// same as the original's #[cfg(feature = "blacklist")] arm
			// not existing at all when the feature is off.
			break
		}
		if summary, err := r.blacklist.Summary(ctx); err == nil {
			r.sendChatsToSelf(ctx, []string{summary})
		} else {
			r.log.Warn("blacklist summary", "err", err)
		}
		return true
	}

	switch {
	case strings.HasPrefix(raw, "stats"):
		r.handleStatsCommand(ctx, strings.TrimRight(raw, " \t"))
		return true

	case r.blacklist != nil && (strings.HasPrefix(raw, "blacklist") || strings.HasPrefix(raw, "unblacklist")):
		r.handleBlacklistCommand(ctx, strings.TrimRight(raw, " \t"))
		return true

	case strings.HasPrefix(raw, "mute"):
		r.handleMuteCommand(ctx, strings.TrimRight(raw, " \t"), myID)
		return true

	case strings.HasPrefix(raw, "unmute"):
		r.handleUnmuteCommand(ctx, strings.TrimRight(raw, " \t"))
		return true
	}

	return false
}

func (r *Relay) gameInfoLines() []string {
	lines := []string{
		fmt.Sprintf("Game: %s (#%d)", r.info.Game.Name, r.info.Game.ID),
		fmt.Sprintf("Server: %s, %s, %s (#%d)", r.node.Name, r.node.Location, r.node.Country, r.node.ID),
		"Players:",
	}
	for _, pi := range r.info.Slot.PlayerInfos {
		slot := r.info.Game.Slots[pi.SlotIndex]
		lines = append(lines, fmt.Sprintf("  %s: Team %d, %s", pi.Name, slot.Team, slot.Race))
	}
	return lines
}

// opponentTeamSlotIDs returns the occupied slots on a different team than
// the caller, excluding the caller's own slot.
func (r *Relay) opponentTeamSlotIDs() []uint8 {
	myTeam := r.info.Slot.MySlotTeam
	var out []uint8
	for _, pi := range r.info.Slot.PlayerInfos {
		if pi.SlotPlayerID == r.info.Slot.MySlotPlayerID {
			continue
		}
		if r.info.Game.Slots[pi.SlotIndex].Team == myTeam {
			continue
		}
		out = append(out, pi.SlotPlayerID)
	}
	return out
}

// unmutedOpponents returns every occupied slot other than the caller's
// own, excluding already-muted ones.
func (r *Relay) unmutedOpponents() []muteTarget {
	var out []muteTarget
	for _, pi := range r.info.Slot.PlayerInfos {
		if pi.SlotPlayerID == r.info.Slot.MySlotPlayerID {
			continue
		}
		if r.mutes.IsMuted(pi.SlotPlayerID) {
			continue
		}
		out = append(out, muteTarget{pi.SlotPlayerID, pi.Name, pi.PlayerID})
	}
	return out
}

// mutedOpponents returns every currently-muted slot other than the
// caller's own, with name/player id resolved from the roster.
func (r *Relay) mutedOpponents() []muteTarget {
	var out []muteTarget
	for _, id := range r.mutes.Muted() {
		if id == r.info.Slot.MySlotPlayerID {
			continue
		}
		if name, ok := r.info.Slot.PlayerNameBySlot(id); ok {
			pid, _ := r.playerIDBySlot(id)
			out = append(out, muteTarget{id, name, pid})
		}
	}
	return out
}

func (r *Relay) playerIDBySlot(slotPlayerID uint8) (int32, bool) {
	for _, pi := range r.info.Slot.PlayerInfos {
		if pi.SlotPlayerID == slotPlayerID {
			return pi.PlayerID, true
		}
	}
	return 0, false
}

func listLines(header string, targets []muteTarget) []string {
	lines := []string{header}
	for _, t := range targets {
		lines = append(lines, fmt.Sprintf(" ID=%d %s", t.slotPlayerID, t.name))
	}
	return lines
}

func (r *Relay) handleMuteCommand(ctx context.Context, cmd string, myID uint8) {
	targets := r.unmutedOpponents()

	if cmd == "mute" || cmd == "mutef" {
		forever := cmd == "mutef"
		switch len(targets) {
		case 0:
			r.sendChatsToSelf(ctx, []string{"You have silenced all the players."})
		case 1:
			t := targets[0]
			r.mutes.Mute(t.slotPlayerID)
			if forever {
				r.saveMute(ctx, t.playerID, t.name, true)
			} else {
				r.sendChatsToSelf(ctx, []string{fmt.Sprintf("Muted: %s", t.name)})
			}
		default:
			r.sendChatsToSelf(ctx, listLines("Type `-mute or -mutef <ID>` to mute a player:", targets))
		}
		return
	}

	forever := strings.HasPrefix(cmd, "mutef")
	var arg string
	if forever {
		arg = strings.TrimPrefix(cmd, "mutef ")
	} else {
		arg = strings.TrimPrefix(cmd, "mute ")
	}

	id, err := strconv.ParseUint(arg, 10, 8)
	if err != nil {
		r.sendChatsToSelf(ctx, []string{"Invalid syntax. Example: -mute 1"})
		return
	}
	slotID := uint8(id)
	if slotID == myID {
		r.sendChatsToSelf(ctx, []string{"You cannot mute yourself."})
		return
	}

	if name, ok := r.info.Slot.PlayerNameBySlot(slotID); ok {
		r.mutes.Mute(slotID)
		if forever {
			pid, _ := r.playerIDBySlot(slotID)
			r.saveMute(ctx, pid, name, true)
		} else {
			r.sendChatsToSelf(ctx, []string{fmt.Sprintf("Muted: %s", name)})
		}
	} else {
		r.sendChatsToSelf(ctx, listLines("Invalid player id. Players:", targets))
	}
}

func (r *Relay) handleUnmuteCommand(ctx context.Context, cmd string) {
	targets := r.mutedOpponents()

	if cmd == "unmute" || cmd == "unmutef" {
		forever := cmd == "unmutef"
		switch len(targets) {
		case 0:
			r.sendChatsToSelf(ctx, []string{"No player to unmute."})
		case 1:
			t := targets[0]
			r.mutes.Unmute(t.slotPlayerID)
			if forever {
				r.saveMute(ctx, t.playerID, t.name, false)
			} else {
				r.sendChatsToSelf(ctx, []string{fmt.Sprintf("Un-muted: %s", t.name)})
			}
		default:
			r.sendChatsToSelf(ctx, listLines("Type `-unmute <ID>` to unmute a player:", targets))
		}
		return
	}

	forever := strings.HasPrefix(cmd, "unmutef")
	var arg string
	if forever {
		arg = strings.TrimPrefix(cmd, "unmutef ")
	} else {
		arg = strings.TrimPrefix(cmd, "unmute ")
	}

	id, err := strconv.ParseUint(arg, 10, 8)
	if err != nil {
		r.sendChatsToSelf(ctx, []string{"Invalid syntax. Example: -unmute 1"})
		return
	}
	slotID := uint8(id)

	for _, t := range targets {
		if t.slotPlayerID == slotID {
			r.mutes.Unmute(slotID)
			if forever {
				r.saveMute(ctx, t.playerID, t.name, false)
			} else {
				r.sendChatsToSelf(ctx, []string{fmt.Sprintf("Un-muted: %s", t.name)})
			}
			return
		}
	}
	r.sendChatsToSelf(ctx, listLines("Invalid player id. Muted players:", targets))
}

func (r *Relay) handleStatsCommand(ctx context.Context, cmd string) {
	players := r.info.Slot.PlayerInfos
	solo := len(players) == 2

	var targets []statTarget
	var unresolvedHeader string

	switch {
	case cmd == "stats":
		myTeam := r.info.Slot.MySlotTeam
		for _, pi := range players {
			if pi.SlotPlayerID == r.info.Slot.MySlotPlayerID {
				continue
			}
			if r.info.Game.Slots[pi.SlotIndex].Team == myTeam {
				continue
			}
			targets = append(targets, statTarget{pi.Name, uint32(r.info.Game.Slots[pi.SlotIndex].Race)})
		}
		unresolvedHeader = ""

	default:
		idOrName := strings.TrimPrefix(cmd, "stats ")
		if id, err := strconv.ParseUint(idOrName, 10, 8); err == nil {
			for _, pi := range players {
				if pi.SlotPlayerID == uint8(id) {
					targets = append(targets, statTarget{pi.Name, uint32(r.info.Game.Slots[pi.SlotIndex].Race)})
				}
			}
		} else {
			lower := strings.ToLower(idOrName)
			for _, pi := range players {
				if strings.HasPrefix(strings.ToLower(pi.Name), lower) {
					targets = append(targets, statTarget{pi.Name, uint32(r.info.Game.Slots[pi.SlotIndex].Race)})
				}
			}
		}
		unresolvedHeader = "Type `-stats <ID>` to get stats for:"
	}

	if len(targets) > 0 {
		r.sendStatsToSelf(ctx, targets, solo)
		return
	}
	if unresolvedHeader != "" {
		r.sendChatsToSelf(ctx, playerListLines(unresolvedHeader, players))
	}
}

func (r *Relay) handleBlacklistCommand(ctx context.Context, cmd string) {
	unblacklist := strings.HasPrefix(cmd, "unblacklist")
	var args string
	if unblacklist {
		args = strings.TrimPrefix(cmd, "unblacklist ")
	} else {
		args = strings.TrimPrefix(cmd, "blacklist ")
	}
	if cmd == "blacklist" || cmd == "unblacklist" {
		args = ""
	}

	players := r.info.Slot.PlayerInfos
	if args == "" {
		r.sendChatsToSelf(ctx, playerListLines("Type `-blacklist <ID>` to blacklist:", players))
		return
	}

	fields := strings.Fields(args)
	idOrName := fields[0]
	reason := "no reason"
	if len(fields) > 1 {
		reason = strings.Join(fields[1:], " ")
	}

	var name string
	if id, err := strconv.ParseUint(idOrName, 10, 8); err == nil {
		for _, pi := range players {
			if pi.SlotPlayerID == uint8(id) {
				name = pi.Name
				break
			}
		}
	} else {
		lower := strings.ToLower(idOrName)
		for _, pi := range players {
			if strings.HasPrefix(strings.ToLower(pi.Name), lower) {
				name = pi.Name
				break
			}
		}
	}
	if name == "" {
		return
	}

	if unblacklist {
		if err := r.blacklist.Unblacklist(ctx, name); err == nil {
			r.sendChatsToSelf(ctx, []string{fmt.Sprintf("%s un-blacklisted", name)})
		} else {
			r.log.Warn("unblacklist", "player", name, "err", err)
		}
	} else {
		if err := r.blacklist.Blacklist(ctx, name, reason); err == nil {
			r.sendChatsToSelf(ctx, []string{fmt.Sprintf("%s blacklisted", name)})
		} else {
			r.log.Warn("blacklist", "player", name, "err", err)
		}
	}
}

func playerListLines(header string, players []PlayerInfo) []string {
	lines := []string{header}
	for _, pi := range players {
		lines = append(lines, fmt.Sprintf(" ID=%d %s", pi.SlotPlayerID, pi.Name))
	}
	return lines
}
