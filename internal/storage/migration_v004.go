package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// migrateV004 records when the running stopwatch was started so elapsed time
// can be recomputed after a restart. SQLite has no ADD COLUMN IF NOT EXISTS,
// so the column is checked first.
func migrateV004(ctx context.Context, tx *sql.Tx) error {
	exists, err := hasColumn(ctx, tx, "stopwatch", "started_at")
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	_, err = tx.ExecContext(ctx,
		`ALTER TABLE stopwatch ADD COLUMN started_at INTEGER NOT NULL DEFAULT 0`,
	)
	return err
}

// hasColumn reports whether table has a column with the given name.
func hasColumn(ctx context.Context, tx *sql.Tx, table, column string) (bool, error) {
	rows, err := tx.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, fmt.Errorf("table info %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
