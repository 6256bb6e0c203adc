package access

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/gatekeeper-core/internal/clock"
	"github.com/nerrad567/gatekeeper-core/internal/device"
	"github.com/nerrad567/gatekeeper-core/internal/infrastructure/database"
)

// Repository defines persistence for authorized users. It applies no
// validity-window filtering; ActiveAt and the Evaluator own that policy.
type Repository interface {
	UserFinder

	// GetByID retrieves a user. Returns ErrUserNotFound if absent.
	GetByID(ctx context.Context, id string) (*AuthorizedUser, error)

	// ListByDevice returns every user of a device, newest first. An unknown
	// device yields an empty list.
	ListByDevice(ctx context.Context, deviceID string) ([]AuthorizedUser, error)

	// Create inserts a user. Returns device.ErrDeviceNotFound if the device
	// does not exist and ErrUserExists on a duplicate external ID.
	Create(ctx context.Context, user *AuthorizedUser) error

	// Delete removes a user. Returns ErrUserNotFound if absent.
	Delete(ctx context.Context, id string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db    database.Querier
	clock clock.Clock
}

// NewSQLiteRepository creates a new SQLite-backed user repository.
func NewSQLiteRepository(db database.Querier, clk clock.Clock) *SQLiteRepository {
	return &SQLiteRepository{db: db, clock: clk}
}

// WithTx returns a repository whose queries run inside tx.
func (r *SQLiteRepository) WithTx(tx *sql.Tx) *SQLiteRepository {
	return &SQLiteRepository{db: tx, clock: r.clock}
}

const userColumns = `id, device_id, name, phone_number, serial_number,
	valid_from, valid_until, source, external_id, created_at, updated_at`

// GetByID retrieves a user by ID.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*AuthorizedUser, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM authorized_users WHERE id = ?`, id)
	user, err := scanUserRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, database.StorageError("querying user by id", err)
	}
	return user, nil
}

// ListByDevice returns the users of a device, newest first.
func (r *SQLiteRepository) ListByDevice(ctx context.Context, deviceID string) ([]AuthorizedUser, error) {
	return r.queryUsers(ctx, `
		SELECT `+userColumns+` FROM authorized_users
		WHERE device_id = ?
		ORDER BY created_at DESC, id`, deviceID)
}

// FindByIdentity returns users of the device matching either factor.
func (r *SQLiteRepository) FindByIdentity(ctx context.Context, deviceID string, id Identity) ([]AuthorizedUser, error) {
	if id.IsZero() {
		return []AuthorizedUser{}, nil
	}
	return r.queryUsers(ctx, `
		SELECT `+userColumns+` FROM authorized_users
		WHERE device_id = ?
		  AND ((? <> '' AND phone_number = ?) OR (? <> '' AND serial_number = ?))
		ORDER BY created_at DESC, id`,
		deviceID, id.Phone, id.Phone, id.Serial, id.Serial)
}

// Create inserts a user after normalising and validating it.
func (r *SQLiteRepository) Create(ctx context.Context, user *AuthorizedUser) error {
	if user.ID == "" || user.DeviceID == "" {
		return fmt.Errorf("%w: id and device id are required", ErrInvalidUser)
	}
	if err := user.Normalize(); err != nil {
		return err
	}

	now := r.clock.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO authorized_users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.DeviceID,
		database.NullString(user.Name),
		database.NullString(user.PhoneNumber),
		database.NullString(user.SerialNumber),
		database.FormatTime(user.ValidFrom),
		database.NullTime(user.ValidUntil),
		string(user.Source),
		database.NullString(user.ExternalID),
		database.FormatTime(user.CreatedAt),
		database.FormatTime(user.UpdatedAt),
	)
	if err != nil {
		switch {
		case database.IsForeignKeyError(err):
			return fmt.Errorf("%w: %s", device.ErrDeviceNotFound, user.DeviceID)
		case database.IsUniqueConstraintError(err):
			return fmt.Errorf("%w: %s", ErrUserExists, user.ID)
		}
		return database.StorageError("inserting user", err)
	}
	return nil
}

// Delete removes a user by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM authorized_users WHERE id = ?", id)
	if err != nil {
		return database.StorageError("deleting user", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return database.StorageError("checking rows affected", err)
	}
	if rowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ListActiveAt returns the users of a device valid at the given instant.
// The window check is delegated to IsValidAt so that listing and
// evaluation apply the same predicate.
func (r *SQLiteRepository) ListActiveAt(ctx context.Context, deviceID string, at time.Time) ([]AuthorizedUser, error) {
	users, err := r.ListByDevice(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	return ActiveAt(users, at), nil
}

func (r *SQLiteRepository) queryUsers(ctx context.Context, query string, args ...any) ([]AuthorizedUser, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, database.StorageError("querying users", err)
	}
	defer rows.Close()

	users := []AuthorizedUser{}
	for rows.Next() {
		user, err := scanUserRow(rows)
		if err != nil {
			return nil, database.StorageError("scanning user", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, database.StorageError("iterating users", err)
	}
	return users, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUserRow(scanner rowScanner) (*AuthorizedUser, error) {
	var (
		u                                      AuthorizedUser
		name, phone, serial, extID, validUntil sql.NullString
		validFrom, createdAt, updated, source  string
	)

	err := scanner.Scan(
		&u.ID,
		&u.DeviceID,
		&name,
		&phone,
		&serial,
		&validFrom,
		&validUntil,
		&source,
		&extID,
		&createdAt,
		&updated,
	)
	if err != nil {
		return nil, err
	}

	u.Name = name.String
	u.PhoneNumber = phone.String
	u.SerialNumber = serial.String
	u.ExternalID = extID.String
	u.Source = Source(source)

	if u.ValidFrom, err = database.ParseTime(validFrom); err != nil {
		return nil, err
	}
	if u.ValidUntil, err = database.ParseNullTime(validUntil); err != nil {
		return nil, err
	}
	if u.CreatedAt, err = database.ParseTime(createdAt); err != nil {
		return nil, err
	}
	if u.UpdatedAt, err = database.ParseTime(updated); err != nil {
		return nil, err
	}
	return &u, nil
}
