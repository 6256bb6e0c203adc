package device

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nerrad567/gatekeeper-core/internal/clock"
	"github.com/nerrad567/gatekeeper-core/internal/infrastructure/database"
	"github.com/nerrad567/gatekeeper-core/internal/relay"
)

// Repository defines the interface for device persistence operations.
type Repository interface {
	// GetByID retrieves a device by its unique identifier.
	// Returns ErrDeviceNotFound if the device does not exist.
	GetByID(ctx context.Context, id string) (*Device, error)

	// List retrieves all devices, newest first.
	List(ctx context.Context) ([]Device, error)

	// Create inserts a new device in the closed state.
	// Returns ErrDeviceExists on a duplicate ID or phone number.
	Create(ctx context.Context, device *Device) error

	// Update modifies the descriptive fields, access mode and password of a
	// device. RelayState is ignored.
	// Returns ErrDeviceNotFound if the device does not exist.
	Update(ctx context.Context, device *Device) error

	// Delete removes a device and, by cascade, its users and audit entries.
	// Returns ErrDeviceNotFound if the device does not exist.
	Delete(ctx context.Context, id string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db    database.Querier
	clock clock.Clock
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db database.Querier, clk clock.Clock) *SQLiteRepository {
	return &SQLiteRepository{db: db, clock: clk}
}

// WithTx returns a repository whose queries run inside tx.
func (r *SQLiteRepository) WithTx(tx *sql.Tx) *SQLiteRepository {
	return &SQLiteRepository{db: tx, clock: r.clock}
}

const deviceColumns = `id, name, type, phone_number, access_mode, password_hash,
	relay_state, created_at, updated_at`

// GetByID retrieves a device by its unique identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Device, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+deviceColumns+` FROM devices WHERE id = ?`, id)
	device, err := scanDeviceRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, database.StorageError("querying device by id", err)
	}
	return device, nil
}

// List retrieves all devices, newest first.
func (r *SQLiteRepository) List(ctx context.Context) ([]Device, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+deviceColumns+` FROM devices ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, database.StorageError("querying devices", err)
	}
	defer rows.Close()

	devices := []Device{}
	for rows.Next() {
		device, err := scanDeviceRow(rows)
		if err != nil {
			return nil, database.StorageError("scanning device", err)
		}
		devices = append(devices, *device)
	}
	if err := rows.Err(); err != nil {
		return nil, database.StorageError("iterating devices", err)
	}
	return devices, nil
}

// Create inserts a new device. The relay always starts closed.
func (r *SQLiteRepository) Create(ctx context.Context, device *Device) error {
	if err := ValidateDevice(device); err != nil {
		return err
	}

	now := r.clock.Now().UTC()
	if device.CreatedAt.IsZero() {
		device.CreatedAt = now
	}
	device.UpdatedAt = now
	device.RelayState = relay.StateClosed

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO devices (`+deviceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		device.ID,
		device.Name,
		device.Type,
		device.PhoneNumber,
		string(device.AccessMode),
		device.PasswordHash,
		string(device.RelayState),
		database.FormatTime(device.CreatedAt),
		database.FormatTime(device.UpdatedAt),
	)
	if err != nil {
		if database.IsUniqueConstraintError(err) {
			return fmt.Errorf("%w: id or phone number %q already registered", ErrDeviceExists, device.PhoneNumber)
		}
		return database.StorageError("inserting device", err)
	}
	return nil
}

// Update modifies an existing device. RelayState is never written here.
func (r *SQLiteRepository) Update(ctx context.Context, device *Device) error {
	if err := ValidateDevice(device); err != nil {
		return err
	}

	device.UpdatedAt = r.clock.Now().UTC()

	result, err := r.db.ExecContext(ctx, `
		UPDATE devices SET
			name = ?, type = ?, phone_number = ?, access_mode = ?,
			password_hash = ?, updated_at = ?
		WHERE id = ?`,
		device.Name,
		device.Type,
		device.PhoneNumber,
		string(device.AccessMode),
		device.PasswordHash,
		database.FormatTime(device.UpdatedAt),
		device.ID,
	)
	if err != nil {
		if database.IsUniqueConstraintError(err) {
			return fmt.Errorf("%w: phone number %q already registered", ErrDeviceExists, device.PhoneNumber)
		}
		return database.StorageError("updating device", err)
	}
	return requireAffected(result)
}

// Delete removes a device by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM devices WHERE id = ?", id)
	if err != nil {
		return database.StorageError("deleting device", err)
	}
	return requireAffected(result)
}

// requireAffected maps a zero-row write to ErrDeviceNotFound.
func requireAffected(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return database.StorageError("checking rows affected", err)
	}
	if rowsAffected == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanDeviceRow scans a row or rows result into a Device.
func scanDeviceRow(scanner rowScanner) (*Device, error) {
	var (
		d                    Device
		accessMode, state    string
		createdAt, updatedAt string
	)

	err := scanner.Scan(
		&d.ID,
		&d.Name,
		&d.Type,
		&d.PhoneNumber,
		&accessMode,
		&d.PasswordHash,
		&state,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	d.AccessMode = AccessMode(accessMode)
	d.RelayState = relay.State(state)

	if d.CreatedAt, err = database.ParseTime(createdAt); err != nil {
		return nil, err
	}
	if d.UpdatedAt, err = database.ParseTime(updatedAt); err != nil {
		return nil, err
	}
	return &d, nil
}
