package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gatekeeper-core/internal/access"
	"github.com/nerrad567/gatekeeper-core/internal/audit"
	"github.com/nerrad567/gatekeeper-core/internal/auth"
	"github.com/nerrad567/gatekeeper-core/internal/clock"
	"github.com/nerrad567/gatekeeper-core/internal/device"
	"github.com/nerrad567/gatekeeper-core/internal/dispatch"
	"github.com/nerrad567/gatekeeper-core/internal/infrastructure/database"
	"github.com/nerrad567/gatekeeper-core/internal/relay"
)

// Logger is the logging interface used by the engine.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options configures an Engine. Zero values select defaults.
type Options struct {
	Clock    clock.Clock    // default system clock
	Actuator relay.Actuator // default relay.Nop
	Logger   Logger

	LockTimeout    time.Duration
	StorageTimeout time.Duration

	DefaultPageSize int
	MaxPageSize     int
}

// Engine is the public operation surface of Gatekeeper Core. It wires the
// stores, the evaluator, the dispatcher and the audit log over one
// database.
//
// Thread Safety: all methods are safe for concurrent use.
type Engine struct {
	db             *database.DB
	devices        *device.SQLiteRepository
	users          *access.SQLiteRepository
	audit          *audit.Log
	dispatcher     *dispatch.Dispatcher
	clock          clock.Clock
	logger         Logger
	storageTimeout time.Duration
}

// New creates an engine over a migrated database.
func New(db *database.DB, opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = clock.System()
	}
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}
	if opts.StorageTimeout <= 0 {
		opts.StorageTimeout = dispatch.DefaultStorageTimeout
	}

	e := &Engine{
		db:             db,
		devices:        device.NewSQLiteRepository(db, opts.Clock),
		users:          access.NewSQLiteRepository(db, opts.Clock),
		audit:          audit.NewLog(db, opts.Clock, audit.Options{DefaultPageSize: opts.DefaultPageSize, MaxPageSize: opts.MaxPageSize}),
		clock:          opts.Clock,
		logger:         opts.Logger,
		storageTimeout: opts.StorageTimeout,
	}
	e.dispatcher = dispatch.New(dispatch.Deps{
		DB:       db,
		Devices:  e.devices,
		Users:    e.users,
		Audit:    e.audit,
		Clock:    opts.Clock,
		Actuator: opts.Actuator,
		Logger:   opts.Logger,
	}, dispatch.Options{
		LockTimeout:    opts.LockTimeout,
		StorageTimeout: opts.StorageTimeout,
	})
	return e
}

// AddObserver registers o for every completed dispatch. Call before the
// engine starts serving.
func (e *Engine) AddObserver(o dispatch.Observer) {
	e.dispatcher.AddObserver(o)
}

// bounded applies the storage timeout to a non-dispatch operation.
func (e *Engine) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.storageTimeout)
}

// ListDevices returns every device, newest first.
func (e *Engine) ListDevices(ctx context.Context) ([]device.Device, error) {
	ctx, cancel := e.bounded(ctx)
	defer cancel()
	return e.devices.List(ctx)
}

// GetDevice returns one device.
func (e *Engine) GetDevice(ctx context.Context, id string) (*device.Device, error) {
	ctx, cancel := e.bounded(ctx)
	defer cancel()
	return e.devices.GetByID(ctx, id)
}

// CreateDevice registers a device in the closed state. The shared secret
// defaults to device.DefaultPassword and is stored only as a hash.
func (e *Engine) CreateDevice(ctx context.Context, spec DeviceSpec) (*device.Device, error) {
	phone, err := device.NormalizePhoneNumber(spec.PhoneNumber)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", device.ErrInvalidDevice, err)
	}

	password := spec.Password
	if password == "" {
		password = device.DefaultPassword
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hashing device password: %w", err)
	}

	d := &device.Device{
		ID:           spec.ID,
		Name:         strings.TrimSpace(spec.Name),
		Type:         strings.TrimSpace(spec.Type),
		PhoneNumber:  phone,
		AccessMode:   spec.AccessMode,
		PasswordHash: hash,
	}
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.AccessMode == "" {
		d.AccessMode = device.AccessAuthorizedOnly
	}

	ctx, cancel := e.bounded(ctx)
	defer cancel()
	if err := e.devices.Create(ctx, d); err != nil {
		return nil, err
	}

	e.logger.Info("device created", "device_id", d.ID, "name", d.Name, "access_mode", d.AccessMode)
	return d, nil
}

// UpdateDevice applies patch to a device. The relay state is untouched.
func (e *Engine) UpdateDevice(ctx context.Context, id string, patch DevicePatch) (*device.Device, error) {
	var hash string
	if patch.Password != nil {
		if *patch.Password == "" {
			return nil, fmt.Errorf("%w: password must not be empty", device.ErrInvalidDevice)
		}
		h, err := auth.HashPassword(*patch.Password)
		if err != nil {
			return nil, fmt.Errorf("hashing device password: %w", err)
		}
		hash = h
	}

	ctx, cancel := e.bounded(ctx)
	defer cancel()

	d, err := e.devices.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		d.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Type != nil {
		d.Type = strings.TrimSpace(*patch.Type)
	}
	if patch.PhoneNumber != nil {
		phone, err := device.NormalizePhoneNumber(*patch.PhoneNumber)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", device.ErrInvalidDevice, err)
		}
		d.PhoneNumber = phone
	}
	if patch.AccessMode != nil {
		d.AccessMode = *patch.AccessMode
	}
	if hash != "" {
		d.PasswordHash = hash
	}

	if err := e.devices.Update(ctx, d); err != nil {
		return nil, err
	}

	e.logger.Info("device updated", "device_id", d.ID, "access_mode", d.AccessMode)
	return d, nil
}

// DeleteDevice removes a device together with its users and audit entries.
func (e *Engine) DeleteDevice(ctx context.Context, id string) error {
	ctx, cancel := e.bounded(ctx)
	defer cancel()
	if err := e.devices.Delete(ctx, id); err != nil {
		return err
	}
	e.logger.Info("device deleted", "device_id", id)
	return nil
}

// VerifyDevicePassword checks a device's shared secret.
func (e *Engine) VerifyDevicePassword(ctx context.Context, id, password string) (bool, error) {
	d, err := e.GetDevice(ctx, id)
	if err != nil {
		return false, err
	}
	ok, err := auth.VerifyPassword(password, d.PasswordHash)
	if err != nil {
		return false, fmt.Errorf("verifying password of device %s: %w", id, err)
	}
	return ok, nil
}

// ListUsers returns all users of a device, newest first, regardless of
// their validity windows. An unknown device has no users.
func (e *Engine) ListUsers(ctx context.Context, deviceID string) ([]access.AuthorizedUser, error) {
	ctx, cancel := e.bounded(ctx)
	defer cancel()
	return e.users.ListByDevice(ctx, deviceID)
}

// ListActiveUsers returns the users of a device valid right now.
func (e *Engine) ListActiveUsers(ctx context.Context, deviceID string) ([]access.AuthorizedUser, error) {
	ctx, cancel := e.bounded(ctx)
	defer cancel()
	return e.users.ListActiveAt(ctx, deviceID, e.clock.Now())
}

// GrantAccess authorises a caller on a device.
func (e *Engine) GrantAccess(ctx context.Context, deviceID string, spec UserSpec) (*access.AuthorizedUser, error) {
	u := &access.AuthorizedUser{
		ID:           uuid.NewString(),
		DeviceID:     deviceID,
		Name:         spec.Name,
		PhoneNumber:  spec.PhoneNumber,
		SerialNumber: spec.SerialNumber,
		ValidUntil:   spec.ValidUntil,
		Source:       spec.Source,
		ExternalID:   spec.ExternalID,
	}
	if spec.ValidFrom != nil {
		u.ValidFrom = spec.ValidFrom.UTC()
	} else {
		u.ValidFrom = e.clock.Now().UTC()
	}
	if u.ValidUntil != nil {
		until := u.ValidUntil.UTC()
		u.ValidUntil = &until
	}

	ctx, cancel := e.bounded(ctx)
	defer cancel()
	if err := e.users.Create(ctx, u); err != nil {
		return nil, err
	}

	e.logger.Info("access granted",
		"device_id", deviceID,
		"user_id", u.ID,
		"source", u.Source,
	)
	return u, nil
}

// RevokeAccess deletes an authorized user.
func (e *Engine) RevokeAccess(ctx context.Context, userID string) error {
	ctx, cancel := e.bounded(ctx)
	defer cancel()
	if err := e.users.Delete(ctx, userID); err != nil {
		return err
	}
	e.logger.Info("access revoked", "user_id", userID)
	return nil
}

// CheckAccess evaluates caller against a device without dispatching,
// locking or auditing.
func (e *Engine) CheckAccess(ctx context.Context, deviceID, caller string) (access.Decision, error) {
	ctx, cancel := e.bounded(ctx)
	defer cancel()

	d, err := e.devices.GetByID(ctx, deviceID)
	if err != nil {
		return access.Decision{}, err
	}
	return access.NewEvaluator(e.users).Evaluate(ctx, d, caller, e.clock.Now().UTC())
}

// DispatchCommand applies cmd to a device on behalf of caller. Denials are
// returned as a rejected Result, not an error.
func (e *Engine) DispatchCommand(ctx context.Context, deviceID string, cmd relay.Command, caller string) (*dispatch.Result, error) {
	return e.dispatcher.Dispatch(ctx, deviceID, cmd, caller)
}

// ListAuditEntries returns a page of a device's audit entries, newest first.
func (e *Engine) ListAuditEntries(ctx context.Context, deviceID string, page audit.Page) (*audit.ListResult, error) {
	ctx, cancel := e.bounded(ctx)
	defer cancel()
	return e.audit.List(ctx, deviceID, page)
}

// ListRecentAuditEntries returns the newest entries across all devices.
func (e *Engine) ListRecentAuditEntries(ctx context.Context, limit int) ([]audit.Entry, error) {
	ctx, cancel := e.bounded(ctx)
	defer cancel()
	return e.audit.ListRecent(ctx, limit)
}

// VerifyAuditChain checks the hash chain of a device's audit entries.
func (e *Engine) VerifyAuditChain(ctx context.Context, deviceID string) (*audit.Verification, error) {
	ctx, cancel := e.bounded(ctx)
	defer cancel()
	return e.audit.Verify(ctx, deviceID)
}

// HealthCheck verifies the database is reachable.
func (e *Engine) HealthCheck(ctx context.Context) error {
	ctx, cancel := e.bounded(ctx)
	defer cancel()
	return e.db.HealthCheck(ctx)
}
