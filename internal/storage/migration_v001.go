package storage

import (
	"context"
	"database/sql"
)

// migrateV001 creates the initial schema: the stopwatch singleton, the
// counter list and session snapshots with their timestamp index. Every
// statement uses IF NOT EXISTS for idempotency.
func migrateV001(ctx context.Context, tx *sql.Tx) error {
	return execAll(ctx, tx, []string{
		// ── Tables ──────────────────────────────────────────────

		`CREATE TABLE IF NOT EXISTS stopwatch (
			id           TEXT PRIMARY KEY,
			elapsed_time INTEGER NOT NULL DEFAULT 0 CHECK (elapsed_time >= 0),
			running      BOOLEAN NOT NULL DEFAULT 0
		)`,

		`CREATE TABLE IF NOT EXISTS counters (
			id    INTEGER PRIMARY KEY AUTOINCREMENT,
			name  TEXT NOT NULL,
			value INTEGER NOT NULL DEFAULT 0
		)`,

		`CREATE TABLE IF NOT EXISTS sessions (
			id           TEXT PRIMARY KEY,
			name         TEXT NOT NULL DEFAULT '',
			date         TEXT NOT NULL DEFAULT '',
			timestamp    INTEGER NOT NULL DEFAULT 0,
			elapsed_time INTEGER NOT NULL DEFAULT 0,
			counters     TEXT NOT NULL DEFAULT '[]'
		)`,

		// ── Indexes ────────────────────────────────────────────

		`CREATE INDEX IF NOT EXISTS idx_sessions_timestamp ON sessions(timestamp)`,
	})
}
