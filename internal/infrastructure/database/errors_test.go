package database

import (
	"context"
	"errors"
	"testing"
)

func TestStorageError(t *testing.T) {
	if StorageError("op", nil) != nil {
		t.Error("StorageError(nil) should be nil")
	}

	err := StorageError("loading device", context.DeadlineExceeded)
	if !errors.Is(err, ErrStorage) {
		t.Errorf("errors.Is(err, ErrStorage) = false for %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("cause lost in %v", err)
	}
}

func TestConstraintErrors(t *testing.T) {
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE parent (id TEXT PRIMARY KEY, code TEXT UNIQUE);
		CREATE TABLE child (id TEXT PRIMARY KEY, parent_id TEXT REFERENCES parent(id));
	`); err != nil {
		t.Fatalf("CREATE error = %v", err)
	}
	if _, err := db.ExecContext(ctx, "INSERT INTO parent VALUES ('p1', 'A')"); err != nil {
		t.Fatalf("INSERT error = %v", err)
	}

	_, err := db.ExecContext(ctx, "INSERT INTO parent VALUES ('p2', 'A')")
	if !IsUniqueConstraintError(err) {
		t.Errorf("IsUniqueConstraintError(%v) = false", err)
	}

	_, err = db.ExecContext(ctx, "INSERT INTO child VALUES ('c1', 'missing')")
	if !IsForeignKeyError(err) {
		t.Errorf("IsForeignKeyError(%v) = false", err)
	}
	if IsForeignKeyError(nil) || IsUniqueConstraintError(nil) {
		t.Error("nil error classified as constraint error")
	}
}
