package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ErrStorage marks a failure of the underlying store: I/O, locking, timeouts,
// or constraint violations not mapped to a domain error. Repositories wrap
// it so callers can classify failures with errors.Is.
var ErrStorage = errors.New("database: storage failure")

// Querier is satisfied by *sql.DB, *sql.Tx and *DB, letting repositories run
// either standalone or inside a caller's transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// StorageError wraps err with ErrStorage and a short description of the
// failed operation. A nil err returns nil.
func StorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}

// IsUniqueConstraintError reports whether err is a SQLite UNIQUE violation.
func IsUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// IsForeignKeyError reports whether err is a SQLite FOREIGN KEY violation.
func IsForeignKeyError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
