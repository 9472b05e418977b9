package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
)

// migrateMu serializes migration runners inside one process. Runners in other
// processes are serialized by SQLite's write lock.
var migrateMu sync.Mutex

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	Apply   func(ctx context.Context, tx *sql.Tx) error
}

// MigrationRunner applies pending migrations to a SQLite database.
type MigrationRunner struct {
	db         *sql.DB
	migrations []migration
}

// NewMigrationRunner creates a MigrationRunner with all registered migrations.
func NewMigrationRunner(db *sql.DB) *MigrationRunner {
	return &MigrationRunner{
		db: db,
		migrations: []migration{
			{Version: 1, Name: "initial_schema", Apply: migrateV001},
			{Version: 2, Name: "time_series", Apply: migrateV002},
			{Version: 3, Name: "name_and_date_indexes", Apply: migrateV003},
			{Version: 4, Name: "stopwatch_started_at", Apply: migrateV004},
		},
	}
}

// Run applies every pending migration up to SchemaVersion.
func (r *MigrationRunner) Run(ctx context.Context) error {
	return r.RunTo(ctx, SchemaVersion)
}

// RunTo applies pending migrations in order, stopping after target. It
// creates the schema_migrations tracking table first. Each migration runs in
// its own transaction and is re-checked under the write lock, so concurrent
// runners apply it exactly once.
func (r *MigrationRunner) RunTo(ctx context.Context, target int) error {
	if target < 1 || target > SchemaVersion {
		return fmt.Errorf("target schema version %d out of range 1..%d", target, SchemaVersion)
	}

	migrateMu.Lock()
	defer migrateMu.Unlock()

	if _, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	for _, m := range r.migrations {
		if m.Version > target {
			break
		}
		if err := r.apply(ctx, m); err != nil {
			return fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Name, err)
		}
	}

	return nil
}

// Version returns the highest applied migration, or 0 for an empty database.
func (r *MigrationRunner) Version(ctx context.Context) (int, error) {
	var exists int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'schema_migrations'",
	).Scan(&exists)
	if err != nil {
		return 0, fmt.Errorf("check schema_migrations: %w", err)
	}
	if exists == 0 {
		return 0, nil
	}

	var version int
	err = r.db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(version), 0) FROM schema_migrations",
	).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}

// isApplied checks whether a migration version has already been recorded.
func isApplied(ctx context.Context, tx *sql.Tx, version int) (bool, error) {
	var count int
	err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM schema_migrations WHERE version = ?", version,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// apply executes a migration inside a transaction and records it. A
// migration another runner already recorded is skipped.
func (r *MigrationRunner) apply(ctx context.Context, m migration) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	applied, err := isApplied(ctx, tx, m.Version)
	if err != nil {
		return fmt.Errorf("check migration: %w", err)
	}
	if applied {
		return nil
	}

	if err := m.Apply(ctx, tx); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, name) VALUES (?, ?)",
		m.Version, m.Name,
	); err != nil {
		return fmt.Errorf("record migration: %w", err)
	}

	return tx.Commit()
}

// execAll runs statements in order inside tx.
func execAll(ctx context.Context, tx *sql.Tx, stmts []string) error {
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
