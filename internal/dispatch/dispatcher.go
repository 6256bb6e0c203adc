package dispatch

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/gatekeeper-core/internal/access"
	"github.com/nerrad567/gatekeeper-core/internal/audit"
	"github.com/nerrad567/gatekeeper-core/internal/clock"
	"github.com/nerrad567/gatekeeper-core/internal/device"
	"github.com/nerrad567/gatekeeper-core/internal/infrastructure/database"
	"github.com/nerrad567/gatekeeper-core/internal/relay"
)

// Default budgets used when Options leaves them unset.
const (
	DefaultLockTimeout    = 2 * time.Second
	DefaultStorageTimeout = 3 * time.Second
)

// Logger is the logging interface used by the dispatcher.
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

// TxRunner runs fn inside a transaction, committing when fn returns nil.
// *database.DB satisfies it.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// Observer is told about every completed dispatch while the device's slot
// is still held, so observations for one device arrive in audit order.
// Implementations must not block.
type Observer interface {
	Dispatched(ctx context.Context, res *Result)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, res *Result)

// Dispatched calls f(ctx, res).
func (f ObserverFunc) Dispatched(ctx context.Context, res *Result) {
	f(ctx, res)
}

// Deps are the collaborators a Dispatcher drives.
type Deps struct {
	DB       TxRunner
	Devices  *device.SQLiteRepository
	Users    *access.SQLiteRepository
	Audit    *audit.Log
	Clock    clock.Clock
	Actuator relay.Actuator // nil drops signals
	Logger   Logger         // nil discards logs
}

// Options bounds how long a dispatch may wait and work.
type Options struct {
	// LockTimeout bounds the wait for the device's slot.
	LockTimeout time.Duration

	// StorageTimeout bounds the transaction that evaluates, transitions
	// and audits.
	StorageTimeout time.Duration

	// ActuateTimeout bounds relay signal delivery. Defaults to StorageTimeout.
	ActuateTimeout time.Duration
}

// Dispatcher serialises commands per device and applies each one as a
// single transaction: load, evaluate, transition, audit.
//
// Thread Safety: Dispatch is safe for concurrent use. Dispatches to the
// same device run one at a time in arrival order; different devices never
// block each other.
type Dispatcher struct {
	db        TxRunner
	devices   *device.SQLiteRepository
	users     *access.SQLiteRepository
	audit     *audit.Log
	clock     clock.Clock
	actuator  relay.Actuator
	logger    Logger
	observers []Observer
	locks     *lockTable
	opts      Options
}

// New creates a dispatcher. Observers must be added before the first
// Dispatch.
func New(deps Deps, opts Options) *Dispatcher {
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = DefaultLockTimeout
	}
	if opts.StorageTimeout <= 0 {
		opts.StorageTimeout = DefaultStorageTimeout
	}
	if opts.ActuateTimeout <= 0 {
		opts.ActuateTimeout = opts.StorageTimeout
	}
	d := &Dispatcher{
		db:       deps.DB,
		devices:  deps.Devices,
		users:    deps.Users,
		audit:    deps.Audit,
		clock:    deps.Clock,
		actuator: deps.Actuator,
		logger:   deps.Logger,
		locks:    newLockTable(),
		opts:     opts,
	}
	if d.actuator == nil {
		d.actuator = relay.Nop
	}
	if d.logger == nil {
		d.logger = noopLogger{}
	}
	return d
}

// AddObserver registers o to be notified of every completed dispatch.
func (d *Dispatcher) AddObserver(o Observer) {
	d.observers = append(d.observers, o)
}

// Dispatch applies cmd to the device on behalf of caller.
//
// Policy outcomes, including denials and malformed identities, are
// returned as a Result with a nil error; each has been audited. Errors are
// returned only when nothing was committed:
//   - ErrInvalidCommand for an unknown command
//   - ctx.Err() if the caller gave up while waiting for the slot
//   - ErrLockTimeout if the slot stayed busy past the lock budget
//   - device.ErrDeviceNotFound if the device does not exist
//   - an error wrapping database.ErrStorage for any persistence failure,
//     including the storage timeout
//
// Once the slot is held the caller's cancellation is no longer honoured;
// the transaction runs to completion or to the storage timeout.
func (d *Dispatcher) Dispatch(ctx context.Context, deviceID string, cmd relay.Command, caller string) (*Result, error) {
	if !cmd.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCommand, cmd)
	}

	release, err := d.locks.acquire(ctx, deviceID, d.opts.LockTimeout)
	if err != nil {
		d.logger.Warn("dispatch slot not acquired", "device_id", deviceID, "command", cmd, "error", err)
		return nil, err
	}
	defer release()

	detached := context.WithoutCancel(ctx)
	workCtx, cancel := context.WithTimeout(detached, d.opts.StorageTimeout)
	defer cancel()

	res, err := d.apply(workCtx, deviceID, cmd, caller)
	if err != nil {
		if !errors.Is(err, device.ErrDeviceNotFound) && !errors.Is(err, database.ErrStorage) {
			err = database.StorageError("dispatching command", err)
		}
		if !errors.Is(err, device.ErrDeviceNotFound) {
			d.logger.Error("dispatch failed", "device_id", deviceID, "command", cmd, "error", err)
		}
		return nil, err
	}

	d.logResult(res)

	if res.Transitioned() {
		res.Actuated = d.actuate(detached, res)
	}

	for _, o := range d.observers {
		o.Dispatched(detached, res)
	}

	return res, nil
}

// apply runs the critical section as one transaction. Nothing is visible
// to other readers until it commits.
func (d *Dispatcher) apply(ctx context.Context, deviceID string, cmd relay.Command, caller string) (*Result, error) {
	var res *Result

	err := d.db.WithTx(ctx, func(tx *sql.Tx) error {
		dev, err := d.devices.WithTx(tx).GetByID(ctx, deviceID)
		if err != nil {
			return err
		}

		now := d.clock.Now().UTC()
		decision, err := access.NewEvaluator(d.users.WithTx(tx)).Evaluate(ctx, dev, caller, now)
		if err != nil {
			return err
		}

		prev := dev.RelayState
		next := prev
		redundant := false
		if decision.Allowed() {
			target := cmd.Target()
			if prev == target {
				redundant = true
			} else {
				if err := setRelayState(ctx, tx, deviceID, target, now); err != nil {
					return err
				}
				next = target
			}
		}

		entry := audit.Entry{
			DeviceID:       deviceID,
			Command:        cmd,
			Outcome:        decision.Outcome,
			Reason:         decision.Reason,
			Description:    describe(cmd, decision, prev, next, redundant),
			Caller:         decision.Caller,
			ResultingState: next,
		}
		if err := d.audit.AppendTx(ctx, tx, &entry); err != nil {
			return err
		}

		outcome := OutcomeRejected
		if decision.Allowed() {
			outcome = OutcomeApplied
		}
		res = &Result{
			DeviceID:      deviceID,
			Command:       cmd,
			Outcome:       outcome,
			State:         next,
			PreviousState: prev,
			Reason:        decision.Reason,
			Caller:        decision.Caller,
			Redundant:     redundant,
			Entry:         entry,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// setRelayState is the only write to devices.relay_state.
func setRelayState(ctx context.Context, tx *sql.Tx, deviceID string, state relay.State, at time.Time) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE devices SET relay_state = ?, updated_at = ? WHERE id = ?`,
		string(state), database.FormatTime(at), deviceID)
	if err != nil {
		return database.StorageError("updating relay state", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return database.StorageError("checking rows affected", err)
	}
	if rows == 0 {
		return device.ErrDeviceNotFound
	}
	return nil
}

// actuate delivers the signal for a committed transition. It is called
// with the slot held and is never retried.
func (d *Dispatcher) actuate(ctx context.Context, res *Result) bool {
	ctx, cancel := context.WithTimeout(ctx, d.opts.ActuateTimeout)
	defer cancel()

	sig := relay.Signal{
		DeviceID:     res.DeviceID,
		Command:      res.Command,
		Target:       res.State,
		AuditEntryID: res.Entry.ID,
		At:           res.Entry.CreatedAt,
	}
	if err := d.actuator.Actuate(ctx, sig); err != nil {
		d.logger.Error("relay actuation failed",
			"device_id", res.DeviceID,
			"target", res.State,
			"audit_entry_id", res.Entry.ID,
			"error", err,
		)
		return false
	}
	return true
}

func (d *Dispatcher) logResult(res *Result) {
	switch {
	case !res.Applied():
		d.logger.Info("command rejected",
			"device_id", res.DeviceID,
			"command", res.Command,
			"reason", res.Reason,
			"caller", res.Caller,
		)
	case res.Redundant:
		d.logger.Debug("command redundant",
			"device_id", res.DeviceID,
			"command", res.Command,
			"state", res.State,
		)
	default:
		d.logger.Info("relay transitioned",
			"device_id", res.DeviceID,
			"command", res.Command,
			"from", res.PreviousState,
			"to", res.State,
			"audit_entry_id", res.Entry.ID,
		)
	}
}
