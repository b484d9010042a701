// Package store provides persistent relay state backed by an embedded
// SQLite database: the per-player mute list, the name-based blacklist,
// and the connect tokens issued by the CLI. It owns the database
// lifecycle and exposes a minimal API used by the rest of the relay.
//
// Migration design: SQL statements are kept in the [migrations] slice as
// ordered strings. Each is applied exactly once; the applied version is
// tracked in the schema_migrations table. To add a migration, append a
// new string — never edit or reorder existing entries.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"

	_ "modernc.org/sqlite"
)

// migrations holds the ordered list of DDL/DML statements that bring the
// schema up to date. Index i corresponds to version i+1.
var migrations = []string{
	// v1 — persisted mutes (keyed by the player's stable id, not the
	// per-session slot id)
	`CREATE TABLE IF NOT EXISTS mutes (
		player_id INTEGER PRIMARY KEY,
		name      TEXT NOT NULL,
		muted_at  INTEGER NOT NULL DEFAULT (unixepoch())
	)`,
	// v2 — name-based blacklist
	`CREATE TABLE IF NOT EXISTS blacklist (
		name           TEXT PRIMARY KEY COLLATE NOCASE,
		reason         TEXT NOT NULL,
		blacklisted_at INTEGER NOT NULL DEFAULT (unixepoch())
	)`,
	// v3 — CLI-issued connect tokens
	`CREATE TABLE IF NOT EXISTS tokens (
		token      TEXT PRIMARY KEY,
		player_id  INTEGER NOT NULL,
		created_at INTEGER NOT NULL DEFAULT (unixepoch()),
		expires_at INTEGER NOT NULL
	)`,
	// v4 — index for token expiry sweeps
	`CREATE INDEX IF NOT EXISTS idx_tokens_expires ON tokens(expires_at)`,
	// v5 — enable WAL mode
	`PRAGMA journal_mode=WAL`,
	// v6 — free-form operator settings, used by the "settings" CLI subcommand
	`CREATE TABLE IF NOT EXISTS settings (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
}

// Store wraps a SQLite database and exposes the relay's persistence
// operations. It implements both relay.Controller and relay.Blacklist.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the SQLite database at path and applies any
// pending migrations. Use ":memory:" for ephemeral in-process storage
// (tests).
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)

	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		log.Printf("[store] WAL mode: %v (non-fatal)", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout=5000`); err != nil {
		log.Printf("[store] busy_timeout: %v (non-fatal)", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	var current int
	if err := s.db.QueryRow(
		`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`,
	).Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for i, stmt := range migrations {
		v := i + 1
		if v <= current {
			continue
		}
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d: %w", v, err)
		}
		if _, err := s.db.Exec(
			`INSERT INTO schema_migrations(version) VALUES(?)`, v,
		); err != nil {
			return fmt.Errorf("record migration %d: %w", v, err)
		}
		log.Printf("[store] applied migration v%d", v)
	}
	return nil
}

// GetMuteList returns every persistently-muted player id.
// Implements relay.Controller.
func (s *Store) GetMuteList(ctx context.Context) ([]int32, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT player_id FROM mutes`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int32
	for rows.Next() {
		var id int32
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// MutePlayer persists a mute for playerID with an empty display name.
// Implements relay.Controller; Relay.saveMute calls it through that
// interface, which carries no name, so mutes saved from chat commands
// are stored without one. MutePlayerNamed stores a name as well.
func (s *Store) MutePlayer(ctx context.Context, playerID int32) error {
	return s.MutePlayerNamed(ctx, playerID, "")
}

// MutePlayerNamed persists a mute for playerID along with a display name,
// for later listing.
func (s *Store) MutePlayerNamed(ctx context.Context, playerID int32, name string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO mutes(player_id, name) VALUES(?, ?)
		 ON CONFLICT(player_id) DO UPDATE SET name = excluded.name`,
		playerID, name,
	)
	return err
}

// UnmutePlayer removes a persisted mute. Implements relay.Controller.
func (s *Store) UnmutePlayer(ctx context.Context, playerID int32) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM mutes WHERE player_id = ?`, playerID)
	return err
}

// Reason returns the blacklist reason recorded for playerName, if any.
// Implements relay.Blacklist.
func (s *Store) Reason(ctx context.Context, playerName string) (string, bool, error) {
	var reason string
	err := s.db.QueryRowContext(ctx,
		`SELECT reason FROM blacklist WHERE name = ?`, playerName,
	).Scan(&reason)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return reason, true, nil
}

// Summary returns a single human-readable line listing every blacklisted
// player and their reason. Implements relay.Blacklist.
func (s *Store) Summary(ctx context.Context) (string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, reason FROM blacklist ORDER BY name`)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	var parts []string
	for rows.Next() {
		var name, reason string
		if err := rows.Scan(&name, &reason); err != nil {
			return "", err
		}
		parts = append(parts, fmt.Sprintf("%s (%s)", name, reason))
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	if len(parts) == 0 {
		return "No players are blacklisted.", nil
	}
	return "Blacklisted: " + strings.Join(parts, ", "), nil
}

// Blacklist records playerName as blacklisted for reason. Implements
// relay.Blacklist.
func (s *Store) Blacklist(ctx context.Context, playerName, reason string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO blacklist(name, reason) VALUES(?, ?)
		 ON CONFLICT(name) DO UPDATE SET reason = excluded.reason`,
		playerName, reason,
	)
	return err
}

// Unblacklist removes playerName from the blacklist. Implements
// relay.Blacklist.
func (s *Store) Unblacklist(ctx context.Context, playerName string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM blacklist WHERE name = ?`, playerName)
	return err
}

// CreateToken persists a freshly issued connect token for playerID,
// valid until expiresAtUnix.
func (s *Store) CreateToken(ctx context.Context, token string, playerID int32, expiresAtUnix int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tokens(token, player_id, expires_at) VALUES(?, ?, ?)`,
		token, playerID, expiresAtUnix,
	)
	return err
}

// GetSetting returns the value stored under key. The second return value
// is false when the key does not exist; an error is only returned for
// real I/O failures.
func (s *Store) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var val string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// SetSetting upserts key → value in the settings table.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings(key, value) VALUES(?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

// GetAllSettings returns every key/value pair from the settings table, for
// the "settings" CLI subcommand.
func (s *Store) GetAllSettings(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

// LookupToken returns the player id a still-valid token was issued for.
func (s *Store) LookupToken(ctx context.Context, token string, nowUnix int64) (int32, bool, error) {
	var playerID int32
	var expiresAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT player_id, expires_at FROM tokens WHERE token = ?`, token,
	).Scan(&playerID, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	if expiresAt < nowUnix {
		return 0, false, nil
	}
	return playerID, true, nil
}

// Counts reports the size of every table the "status" CLI subcommand
// summarizes, mirroring the teacher's cliStatus (channel/version print).
type Counts struct {
	Mutes     int
	Blacklist int
	Tokens    int
}

// Status returns table row counts for the "status" CLI subcommand.
func (s *Store) Status(ctx context.Context) (Counts, error) {
	var c Counts
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM mutes`).Scan(&c.Mutes); err != nil {
		return Counts{}, err
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM blacklist`).Scan(&c.Blacklist); err != nil {
		return Counts{}, err
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tokens`).Scan(&c.Tokens); err != nil {
		return Counts{}, err
	}
	return c, nil
}

// Optimize runs SQLite's query-planner optimization pragma, mirroring the
// teacher's periodic main.go maintenance tick.
func (s *Store) Optimize(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `PRAGMA optimize`)
	return err
}

// PurgeExpiredTokens deletes every token past its expiry, mirroring the
// teacher's periodic ban-purge sweep in main.go. Returns the number of
// rows removed.
func (s *Store) PurgeExpiredTokens(ctx context.Context, nowUnix int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tokens WHERE expires_at < ?`, nowUnix)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
