package relay

import "context"

// Blacklist is the relay's optional collaborator for the "-blacklist"
// family of chat commands. It is realized as a nilable interface rather
// than a Rust-style cfg(feature) build tag: a nil Blacklist disables the
// commands entirely, and GameRelay nil-checks before every call (spec §6).
type Blacklist interface {
	// Reason returns the recorded blacklist reason for playerName, if any.
	Reason(ctx context.Context, playerName string) (reason string, found bool, err error)
	// Summary returns a single human-readable line listing every
	// currently blacklisted player and their reason, for the
	// "-blacklisted" command.
	Summary(ctx context.Context) (string, error)
	Blacklist(ctx context.Context, playerName, reason string) error
	Unblacklist(ctx context.Context, playerName string) error
}
