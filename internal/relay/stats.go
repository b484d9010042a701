package relay

import "context"

// StatsClient is the relay's collaborator for the "-stats" chat command.
// A nil StatsClient means the feature is unavailable in this deployment;
// callers must nil-check before invoking it (spec §6).
type StatsClient interface {
	GetStats(ctx context.Context, name string, race uint32, solo bool) (string, error)
}
