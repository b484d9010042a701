package relay

import "context"

// Controller is the relay's collaborator for mute-list persistence: the
// side that remembers mutes across sessions (spec §6). The relay calls
// out to it at startup to seed mute.Policy, and again whenever a mute
// command should survive the session.
type Controller interface {
	GetMuteList(ctx context.Context) ([]int32, error)
	MutePlayer(ctx context.Context, playerID int32) error
	UnmutePlayer(ctx context.Context, playerID int32) error
}
