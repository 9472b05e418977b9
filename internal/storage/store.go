package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Options configures Open.
type Options struct {
	Path        string        // database file, or MemoryPath
	JournalMode string        // SQLite journal mode; empty keeps the default
	BusyTimeout time.Duration // how long to wait on a locked database
}

var journalModes = map[string]bool{
	"delete": true, "truncate": true, "persist": true,
	"memory": true, "wal": true, "off": true,
}

// Store is a handle on the migrated database. All units of work go through a
// single connection, so they apply one at a time in the order issued.
type Store struct {
	db     *sql.DB
	ownsDB bool
}

// Open opens the database at opts.Path, upgrades its schema to
// SchemaVersion and returns a ready Store. Any failure is wrapped in ErrOpen
// and leaves nothing open.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("%w: empty database path", ErrOpen)
	}
	mode := strings.ToLower(opts.JournalMode)
	if mode != "" && !journalModes[mode] {
		return nil, fmt.Errorf("%w: unsupported journal mode %q", ErrOpen, opts.JournalMode)
	}

	db, err := sql.Open("sqlite3", dsn(opts))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpen, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %w", ErrOpen, classify(err))
	}

	if mode != "" {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = "+mode); err != nil {
			db.Close()
			return nil, fmt.Errorf("%w: set journal mode: %w", ErrOpen, classify(err))
		}
	}

	if err := NewMigrationRunner(db).Run(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: run migrations: %w", ErrOpen, classify(err))
	}

	return &Store{db: db, ownsDB: true}, nil
}

func dsn(opts Options) string {
	params := url.Values{}
	params.Set("_txlock", "immediate")
	if opts.BusyTimeout > 0 {
		params.Set("_busy_timeout", strconv.FormatInt(opts.BusyTimeout.Milliseconds(), 10))
	}
	return opts.Path + "?" + params.Encode()
}

// NewStore wraps an already opened and migrated database. Closing the Store
// does not close db.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for maintenance queries.
func (s *Store) DB() *sql.DB { return s.db }

// Version reports the applied schema version.
func (s *Store) Version(ctx context.Context) (int, error) {
	return NewMigrationRunner(s.db).Version(ctx)
}

// Close releases the database if Open created it.
func (s *Store) Close() error {
	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}

// Update runs fn inside one read-write unit of work. If fn returns an error
// nothing it wrote is kept. fn must use the Tx it is given; calling Store
// methods from inside fn blocks on the single connection.
func (s *Store) Update(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", classify(err))
	}
	defer sqlTx.Rollback() //nolint:errcheck

	if err := fn(&Tx{tx: sqlTx}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", classify(err))
	}
	return nil
}

// View runs fn inside a unit of work that is always rolled back.
func (s *Store) View(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", classify(err))
	}
	defer sqlTx.Rollback() //nolint:errcheck

	return fn(&Tx{tx: sqlTx})
}

// Get reads one record by key.
func (s *Store) Get(ctx context.Context, collection string, key any) (Record, error) {
	var rec Record
	err := s.View(ctx, func(tx *Tx) error {
		var err error
		rec, err = tx.Get(ctx, collection, key)
		return err
	})
	return rec, err
}

// GetAll reads every record of a collection in key order.
func (s *Store) GetAll(ctx context.Context, collection string) ([]Record, error) {
	var recs []Record
	err := s.View(ctx, func(tx *Tx) error {
		var err error
		recs, err = tx.GetAll(ctx, collection)
		return err
	})
	return recs, err
}

// GetAllByIndex reads the records whose indexed field falls in r.
func (s *Store) GetAllByIndex(ctx context.Context, collection, index string, r KeyRange) ([]Record, error) {
	var recs []Record
	err := s.View(ctx, func(tx *Tx) error {
		var err error
		recs, err = tx.GetAllByIndex(ctx, collection, index, r)
		return err
	})
	return recs, err
}

// Put inserts or replaces a record and returns its key.
func (s *Store) Put(ctx context.Context, collection string, rec Record) (any, error) {
	var key any
	err := s.Update(ctx, func(tx *Tx) error {
		var err error
		key, err = tx.Put(ctx, collection, rec)
		return err
	})
	return key, err
}

// Add inserts a new record and returns its key.
func (s *Store) Add(ctx context.Context, collection string, rec Record) (any, error) {
	var key any
	err := s.Update(ctx, func(tx *Tx) error {
		var err error
		key, err = tx.Add(ctx, collection, rec)
		return err
	})
	return key, err
}

// Delete removes a record by key.
func (s *Store) Delete(ctx context.Context, collection string, key any) error {
	return s.Update(ctx, func(tx *Tx) error {
		return tx.Delete(ctx, collection, key)
	})
}

// Clear removes every record of a collection.
func (s *Store) Clear(ctx context.Context, collection string) error {
	return s.Update(ctx, func(tx *Tx) error {
		return tx.Clear(ctx, collection)
	})
}

// Count returns the number of records in a collection.
func (s *Store) Count(ctx context.Context, collection string) (int64, error) {
	c, err := lookup(collection)
	if err != nil {
		return 0, err
	}
	var n int64
	err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+c.Table).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", c.Name, classify(err))
	}
	return n, nil
}

// Tx is one unit of work over any of the collections.
type Tx struct {
	tx *sql.Tx
}

// Get reads one record by key. A missing key returns ErrNotFound.
func (t *Tx) Get(ctx context.Context, collection string, key any) (Record, error) {
	c, err := lookup(collection)
	if err != nil {
		return nil, err
	}
	k, err := encodeValue(c.Key, key)
	if err != nil {
		return nil, err
	}

	recs, err := t.query(ctx, c,
		fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?", columnList(c), c.Table, c.Key.Column), k)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("%w: %s %v", ErrNotFound, c.Name, key)
	}
	return recs[0], nil
}

// GetAll reads every record in ascending key order. An empty collection
// yields an empty, non-nil slice.
func (t *Tx) GetAll(ctx context.Context, collection string) ([]Record, error) {
	c, err := lookup(collection)
	if err != nil {
		return nil, err
	}
	return t.query(ctx, c,
		fmt.Sprintf("SELECT %s FROM %s ORDER BY %s", columnList(c), c.Table, c.Key.Column))
}

// GetAllByIndex reads records whose indexed field matches r. Bounds are
// inclusive. Results are ordered by the indexed value, then by key.
func (t *Tx) GetAllByIndex(ctx context.Context, collection, index string, r KeyRange) ([]Record, error) {
	c, err := lookup(collection)
	if err != nil {
		return nil, err
	}
	_, f, err := c.index(index)
	if err != nil {
		return nil, err
	}

	var (
		clauses []string
		args    []interface{}
	)
	if r.only {
		v, err := encodeValue(f, r.lower)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, f.Column+" = ?")
		args = append(args, v)
	} else {
		if r.lower != nil {
			v, err := encodeValue(f, r.lower)
			if err != nil {
				return nil, err
			}
			clauses = append(clauses, f.Column+" >= ?")
			args = append(args, v)
		}
		if r.upper != nil {
			v, err := encodeValue(f, r.upper)
			if err != nil {
				return nil, err
			}
			clauses = append(clauses, f.Column+" <= ?")
			args = append(args, v)
		}
	}

	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}

	q := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s, %s",
		columnList(c), c.Table, where, f.Column, c.Key.Column)
	return t.query(ctx, c, q, args...)
}

// Put inserts rec or replaces the record with the same key, returning the
// key. A key is required unless the collection assigns keys itself.
func (t *Tx) Put(ctx context.Context, collection string, rec Record) (any, error) {
	c, err := lookup(collection)
	if err != nil {
		return nil, err
	}
	if !hasKey(c, rec) {
		if c.AutoIncrement {
			return t.insert(ctx, c, rec)
		}
		return nil, fmt.Errorf("%w: %s requires key %q", ErrInvalidRecord, c.Name, c.Key.Name)
	}

	cols, args, err := encodeRecord(c, rec, true)
	if err != nil {
		return nil, err
	}
	updates := make([]string, 0, len(c.Fields))
	for _, f := range c.Fields {
		updates = append(updates, fmt.Sprintf("%s = excluded.%s", f.Column, f.Column))
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT(%s) DO UPDATE SET %s",
		c.Table, strings.Join(cols, ", "), placeholders(len(cols)), c.Key.Column, strings.Join(updates, ", "))
	if _, err := t.tx.ExecContext(ctx, q, args...); err != nil {
		return nil, fmt.Errorf("put %s: %w", c.Name, classify(err))
	}
	return args[0], nil
}

// Add inserts rec and returns its key. Collections with surrogate keys
// assign one when rec has none. A colliding key returns ErrDuplicateKey.
func (t *Tx) Add(ctx context.Context, collection string, rec Record) (any, error) {
	c, err := lookup(collection)
	if err != nil {
		return nil, err
	}
	if !hasKey(c, rec) && !c.AutoIncrement {
		return nil, fmt.Errorf("%w: %s requires key %q", ErrInvalidRecord, c.Name, c.Key.Name)
	}
	return t.insert(ctx, c, rec)
}

func (t *Tx) insert(ctx context.Context, c *Collection, rec Record) (any, error) {
	withKey := hasKey(c, rec)
	cols, args, err := encodeRecord(c, rec, withKey)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		c.Table, strings.Join(cols, ", "), placeholders(len(cols)))
	res, err := t.tx.ExecContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", c.Name, classify(err))
	}
	if withKey {
		return args[0], nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", c.Name, err)
	}
	return id, nil
}

// Delete removes the record with key. Deleting a missing key is a no-op.
func (t *Tx) Delete(ctx context.Context, collection string, key any) error {
	c, err := lookup(collection)
	if err != nil {
		return err
	}
	k, err := encodeValue(c.Key, key)
	if err != nil {
		return err
	}
	q := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", c.Table, c.Key.Column)
	if _, err := t.tx.ExecContext(ctx, q, k); err != nil {
		return fmt.Errorf("delete %s: %w", c.Name, classify(err))
	}
	return nil
}

// Clear removes every record of a collection. Surrogate keys are not reused
// afterwards.
func (t *Tx) Clear(ctx context.Context, collection string) error {
	c, err := lookup(collection)
	if err != nil {
		return err
	}
	if _, err := t.tx.ExecContext(ctx, "DELETE FROM "+c.Table); err != nil {
		return fmt.Errorf("clear %s: %w", c.Name, classify(err))
	}
	return nil
}

// query executes a SELECT over the collection's columns and scans records.
func (t *Tx) query(ctx context.Context, c *Collection, q string, args ...interface{}) ([]Record, error) {
	rows, err := t.tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", c.Name, classify(err))
	}
	defer rows.Close()

	fields := c.columns()
	recs := []Record{}
	for rows.Next() {
		dests := make([]any, len(fields))
		for i, f := range fields {
			dests[i] = scanTarget(f)
		}
		if err := rows.Scan(dests...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", c.Name, err)
		}
		rec := make(Record, len(fields))
		for i, f := range fields {
			rec[f.Name] = decodeValue(f, dests[i])
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", c.Name, classify(err))
	}
	return recs, nil
}

// hasKey reports whether rec carries a usable key. For surrogate keys the
// zero value counts as absent.
func hasKey(c *Collection, rec Record) bool {
	v, ok := rec[c.Key.Name]
	if !ok || v == nil {
		return false
	}
	if c.AutoIncrement {
		n, ok := toInt64(v)
		return !ok || n != 0
	}
	if s, ok := v.(string); ok {
		return s != ""
	}
	return true
}

// encodeRecord returns column names and encoded values in schema order. The
// key comes first when withKey is set. Unknown fields are rejected.
func encodeRecord(c *Collection, rec Record, withKey bool) ([]string, []interface{}, error) {
	for name := range rec {
		if _, ok := c.field(name); !ok {
			return nil, nil, fmt.Errorf("%w: %s has no field %q", ErrInvalidRecord, c.Name, name)
		}
	}

	cols := make([]string, 0, len(c.Fields)+1)
	args := make([]interface{}, 0, len(c.Fields)+1)
	if withKey {
		k, err := encodeValue(c.Key, rec[c.Key.Name])
		if err != nil {
			return nil, nil, err
		}
		cols = append(cols, c.Key.Column)
		args = append(args, k)
	}
	for _, f := range c.Fields {
		v, err := encodeValue(f, rec[f.Name])
		if err != nil {
			return nil, nil, err
		}
		cols = append(cols, f.Column)
		args = append(args, v)
	}
	return cols, args, nil
}

func columnList(c *Collection) string {
	fields := c.columns()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Column
	}
	return strings.Join(names, ", ")
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// IsNotFound reports whether err means a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
