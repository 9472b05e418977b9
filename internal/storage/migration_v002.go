package storage

import (
	"context"
	"database/sql"
)

// migrateV002 adds the time-series event log and its indexes.
func migrateV002(ctx context.Context, tx *sql.Tx) error {
	return execAll(ctx, tx, []string{
		`CREATE TABLE IF NOT EXISTS time_series (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp    TEXT NOT NULL,
			counter_name TEXT NOT NULL,
			value        INTEGER NOT NULL,
			action       TEXT NOT NULL CHECK (action IN ('increment', 'decrement')),
			elapsed_time INTEGER NOT NULL DEFAULT 0
		)`,

		`CREATE INDEX IF NOT EXISTS idx_time_series_counter_name ON time_series(counter_name)`,
		`CREATE INDEX IF NOT EXISTS idx_time_series_timestamp    ON time_series(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_time_series_elapsed_time ON time_series(elapsed_time)`,
	})
}
