package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/nerrad567/gatekeeper-core/internal/access"
	"github.com/nerrad567/gatekeeper-core/internal/clock"
	"github.com/nerrad567/gatekeeper-core/internal/device"
	"github.com/nerrad567/gatekeeper-core/internal/infrastructure/database"
	"github.com/nerrad567/gatekeeper-core/internal/relay"
)

// Page sizes used when Options leaves them unset.
const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// Store is the database surface the log needs: plain queries for reads and
// a transaction runner for standalone appends. *database.DB satisfies it.
type Store interface {
	database.Querier
	WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// Options tunes pagination.
type Options struct {
	DefaultPageSize int
	MaxPageSize     int
}

// Page selects a window of entries, newest first.
type Page struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// ListResult contains a page of entries and the device's total count.
type ListResult struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
}

// Log is the append-only audit ledger. It has no update or delete
// operations; the schema rejects updates as well.
type Log struct {
	db          Store
	clock       clock.Clock
	defaultSize int
	maxSize     int
}

// NewLog creates a log over db.
func NewLog(db Store, clk clock.Clock, opts Options) *Log {
	l := &Log{db: db, clock: clk, defaultSize: opts.DefaultPageSize, maxSize: opts.MaxPageSize}
	if l.maxSize <= 0 {
		l.maxSize = MaxPageSize
	}
	if l.defaultSize <= 0 || l.defaultSize > l.maxSize {
		l.defaultSize = min(DefaultPageSize, l.maxSize)
	}
	return l
}

// Append persists e in its own transaction. See AppendTx.
func (l *Log) Append(ctx context.Context, e *Entry) error {
	err := l.db.WithTx(ctx, func(tx *sql.Tx) error {
		return l.AppendTx(ctx, tx, e)
	})
	if err != nil && !isDomainError(err) && !errors.Is(err, database.ErrStorage) {
		return database.StorageError("appending audit entry", err)
	}
	return err
}

// AppendTx persists e inside tx, filling ID (when empty), CreatedAt, Seq,
// PrevHash and Hash. CreatedAt never precedes the newest existing entry,
// so (created_at, seq) order always equals append order.
func (l *Log) AppendTx(ctx context.Context, tx *sql.Tx, e *Entry) error {
	if err := e.validate(); err != nil {
		return err
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	createdAt := l.clock.Now().UTC()
	var latest sql.NullString
	err := tx.QueryRowContext(ctx,
		`SELECT MAX(created_at) FROM audit_entries`).Scan(&latest)
	if err != nil {
		return database.StorageError("reading latest audit timestamp", err)
	}
	if latest.Valid {
		last, err := database.ParseTime(latest.String)
		if err != nil {
			return database.StorageError("reading latest audit timestamp", err)
		}
		if createdAt.Before(last) {
			createdAt = last
		}
	}
	e.CreatedAt = createdAt

	var prevHash string
	err = tx.QueryRowContext(ctx,
		`SELECT hash FROM audit_entries WHERE device_id = ? ORDER BY seq DESC LIMIT 1`,
		e.DeviceID).Scan(&prevHash)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return database.StorageError("reading previous audit hash", err)
	}
	e.PrevHash = prevHash
	e.Hash = computeHash(e, prevHash)

	result, err := tx.ExecContext(ctx, `
		INSERT INTO audit_entries (id, device_id, command, outcome, reason, description,
			caller, resulting_state, created_at, prev_hash, hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID,
		e.DeviceID,
		string(e.Command),
		string(e.Outcome),
		string(e.Reason),
		e.Description,
		e.Caller,
		string(e.ResultingState),
		database.FormatTime(e.CreatedAt),
		e.PrevHash,
		e.Hash,
	)
	if err != nil {
		if database.IsForeignKeyError(err) {
			return fmt.Errorf("%w: %s", device.ErrDeviceNotFound, e.DeviceID)
		}
		return database.StorageError("inserting audit entry", err)
	}
	if e.Seq, err = result.LastInsertId(); err != nil {
		return database.StorageError("reading audit sequence", err)
	}
	return nil
}

// List returns one page of a device's entries ordered by
// (created_at DESC, seq DESC). An unknown device has no entries.
func (l *Log) List(ctx context.Context, deviceID string, page Page) (*ListResult, error) {
	page = l.normalize(page)

	var total int
	err := l.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM audit_entries WHERE device_id = ?`, deviceID).Scan(&total)
	if err != nil {
		return nil, database.StorageError("counting audit entries", err)
	}

	entries, err := l.query(ctx, `
		SELECT `+entryColumns+`, '' FROM audit_entries
		WHERE device_id = ?
		ORDER BY created_at DESC, seq DESC
		LIMIT ? OFFSET ?`, deviceID, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}

	return &ListResult{
		Entries: entries,
		Total:   total,
		Limit:   page.Limit,
		Offset:  page.Offset,
	}, nil
}

// ListRecent returns the newest entries across all devices, each carrying
// its device's name.
func (l *Log) ListRecent(ctx context.Context, limit int) ([]Entry, error) {
	page := l.normalize(Page{Limit: limit})
	return l.query(ctx, `
		SELECT `+prefixed("a.", entryColumnList)+`, d.name
		FROM audit_entries a
		JOIN devices d ON d.id = a.device_id
		ORDER BY a.created_at DESC, a.seq DESC
		LIMIT ?`, page.Limit)
}

func (l *Log) normalize(p Page) Page {
	if p.Limit <= 0 {
		p.Limit = l.defaultSize
	}
	if p.Limit > l.maxSize {
		p.Limit = l.maxSize
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

var entryColumnList = []string{
	"seq", "id", "device_id", "command", "outcome", "reason", "description",
	"caller", "resulting_state", "created_at", "prev_hash", "hash",
}

var entryColumns = prefixed("", entryColumnList)

func prefixed(prefix string, cols []string) string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = prefix + c
	}
	return strings.Join(out, ", ")
}

func (l *Log) query(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, database.StorageError("querying audit entries", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntryRow(rows)
		if err != nil {
			return nil, database.StorageError("scanning audit entry", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, database.StorageError("iterating audit entries", err)
	}
	return entries, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanEntryRow scans entryColumns followed by a device name column.
func scanEntryRow(scanner rowScanner) (*Entry, error) {
	var e Entry
	var command, outcome, reason, state, createdAt string

	err := scanner.Scan(
		&e.Seq,
		&e.ID,
		&e.DeviceID,
		&command,
		&outcome,
		&reason,
		&e.Description,
		&e.Caller,
		&state,
		&createdAt,
		&e.PrevHash,
		&e.Hash,
		&e.DeviceName,
	)
	if err != nil {
		return nil, err
	}

	e.Command = relay.Command(command)
	e.Outcome = access.Outcome(outcome)
	e.Reason = access.Reason(reason)
	e.ResultingState = relay.State(state)
	if e.CreatedAt, err = database.ParseTime(createdAt); err != nil {
		return nil, err
	}
	return &e, nil
}

func isDomainError(err error) bool {
	return errors.Is(err, ErrInvalidEntry) || errors.Is(err, device.ErrDeviceNotFound)
}
