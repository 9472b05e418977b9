package storage

import (
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

var (
	// ErrOpen means the database could not be opened or migrated.
	ErrOpen = errors.New("open store")

	// ErrNotFound is returned when a read or update targets a missing key.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateKey is returned when an insert collides with an existing key.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrTransientIO marks a single failed operation. Retrying a read is safe;
	// retrying an insert with an auto-assigned key may create a duplicate.
	ErrTransientIO = errors.New("transient I/O failure")

	// ErrInvalidRecord is returned when a record fails validation or cannot
	// be encoded for its collection.
	ErrInvalidRecord = errors.New("invalid record")

	// ErrUnknownCollection is returned for collection or index names that
	// are not part of the schema.
	ErrUnknownCollection = errors.New("unknown collection")
)

// classify maps SQLite driver errors onto the package's error categories.
// The driver error stays in the chain.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return err
	}
	switch se.Code {
	case sqlite3.ErrConstraint:
		if se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
			se.ExtendedCode == sqlite3.ErrConstraintUnique {
			return fmt.Errorf("%w: %w", ErrDuplicateKey, err)
		}
	case sqlite3.ErrBusy, sqlite3.ErrLocked, sqlite3.ErrIoErr:
		return fmt.Errorf("%w: %w", ErrTransientIO, err)
	}
	return err
}
