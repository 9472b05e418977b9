package storage

import (
	"context"
	"database/sql"
)

// migrateV003 adds name lookups for counters and name/date lookups for
// sessions. Existing tables are left untouched.
func migrateV003(ctx context.Context, tx *sql.Tx) error {
	return execAll(ctx, tx, []string{
		`CREATE INDEX IF NOT EXISTS idx_counters_name ON counters(name)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_name ON sessions(name)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_date ON sessions(date)`,
	})
}
