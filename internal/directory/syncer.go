package directory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nerrad567/gatekeeper-core/internal/access"
	"github.com/nerrad567/gatekeeper-core/internal/clock"
	"github.com/nerrad567/gatekeeper-core/internal/device"
	"github.com/nerrad567/gatekeeper-core/internal/engine"
	"github.com/nerrad567/gatekeeper-core/internal/infrastructure/mqtt"
)

// DefaultInterval applies when Options.Interval is not positive.
const DefaultInterval = 5 * time.Minute

// Store is the engine surface the syncer writes through. Going through it
// keeps directory users subject to the same validation as local ones.
type Store interface {
	ListDevices(ctx context.Context) ([]device.Device, error)
	ListUsers(ctx context.Context, deviceID string) ([]access.AuthorizedUser, error)
	GrantAccess(ctx context.Context, deviceID string, spec engine.UserSpec) (*access.AuthorizedUser, error)
	RevokeAccess(ctx context.Context, userID string) error
}

// Subscriber is the subset of the MQTT client used for sync triggers.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Logger is the logging interface used by the syncer.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options configures a Syncer.
type Options struct {
	Interval time.Duration
	Clock    clock.Clock
	Logger   Logger
}

// Report counts what one reconciliation did.
type Report struct {
	Granted   int `json:"granted"`
	Updated   int `json:"updated"`
	Revoked   int `json:"revoked"`
	Unchanged int `json:"unchanged"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// Syncer reconciles directory-sourced users with a remote snapshot.
// Users with source "local" are never touched.
type Syncer struct {
	store    Store
	source   Source
	interval time.Duration
	clock    clock.Clock
	logger   Logger
	trigger  chan struct{}
	mu       sync.Mutex // serialises SyncOnce
}

// New creates a syncer.
func New(store Store, source Source, opts Options) *Syncer {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Clock == nil {
		opts.Clock = clock.System()
	}
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}
	return &Syncer{
		store:    store,
		source:   source,
		interval: opts.Interval,
		clock:    opts.Clock,
		logger:   opts.Logger,
		trigger:  make(chan struct{}, 1),
	}
}

// Trigger requests a sync as soon as Run is free. Repeated triggers while
// one is pending collapse into one.
func (s *Syncer) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// SubscribeTrigger calls Trigger whenever a message arrives on topic.
func (s *Syncer) SubscribeTrigger(sub Subscriber, topic string, qos byte) error {
	return sub.Subscribe(topic, qos, func(_ string, _ []byte) error {
		s.logger.Debug("directory sync requested over mqtt", "topic", topic)
		s.Trigger()
		return nil
	})
}

// Run syncs immediately, then on every interval tick and trigger, until
// ctx is done. Sync failures are logged and retried on the next tick.
func (s *Syncer) Run(ctx context.Context) error {
	ticker := s.clock.Ticker(s.interval)
	defer ticker.Stop()

	s.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.runOnce(ctx)
		case <-s.trigger:
			s.runOnce(ctx)
		}
	}
}

func (s *Syncer) runOnce(ctx context.Context) {
	report, err := s.SyncOnce(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.logger.Error("directory sync failed", "error", err)
		}
		return
	}
	s.logger.Info("directory sync complete",
		"granted", report.Granted,
		"updated", report.Updated,
		"revoked", report.Revoked,
		"unchanged", report.Unchanged,
		"skipped", report.Skipped,
		"failed", report.Failed,
	)
}

// SyncOnce fetches a snapshot and reconciles it. Failures on individual
// grants are counted and logged; only fetch and listing failures abort.
func (s *Syncer) SyncOnce(ctx context.Context) (Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var report Report

	snap, err := s.source.Fetch(ctx)
	if err != nil {
		return report, err
	}

	devices, err := s.store.ListDevices(ctx)
	if err != nil {
		return report, err
	}

	desired := make(map[string]map[string]Grant, len(devices))
	for _, d := range devices {
		desired[d.ID] = make(map[string]Grant)
	}
	for _, g := range snap.Grants {
		byExternal, ok := desired[g.DeviceID]
		switch {
		case g.ExternalID == "":
			s.logger.Warn("directory grant without external id", "device_id", g.DeviceID)
			report.Skipped++
			continue
		case !ok:
			s.logger.Warn("directory grant for unknown device", "device_id", g.DeviceID, "external_id", g.ExternalID)
			report.Skipped++
			continue
		}
		if _, dup := byExternal[g.ExternalID]; dup {
			s.logger.Warn("duplicate directory grant", "device_id", g.DeviceID, "external_id", g.ExternalID)
			report.Skipped++
			continue
		}
		byExternal[g.ExternalID] = g
	}

	for _, d := range devices {
		if err := s.reconcileDevice(ctx, d.ID, desired[d.ID], &report); err != nil {
			return report, err
		}
	}
	return report, nil
}

func (s *Syncer) reconcileDevice(ctx context.Context, deviceID string, want map[string]Grant, report *Report) error {
	users, err := s.store.ListUsers(ctx, deviceID)
	if err != nil {
		return err
	}

	have := make(map[string]access.AuthorizedUser)
	for _, u := range users {
		if u.Source == access.SourceDirectory && u.ExternalID != "" {
			have[u.ExternalID] = u
		}
	}

	for extID, u := range have {
		g, keep := want[extID]
		if !keep {
			if s.revoke(ctx, u) {
				report.Revoked++
			} else {
				report.Failed++
			}
			continue
		}

		if c, err := candidate(g, u.ValidFrom); err == nil && matches(&u, &c) {
			report.Unchanged++
			continue
		}
		// A grant that cannot be stored never displaces the current one.
		if _, err := candidate(g, s.clock.Now().UTC()); err != nil {
			s.logger.Warn("invalid directory grant, keeping current access",
				"device_id", g.DeviceID, "external_id", extID, "error", err)
			report.Failed++
			continue
		}
		if !s.revoke(ctx, u) {
			report.Failed++
			continue
		}
		if s.grant(ctx, g) {
			report.Updated++
		} else {
			report.Failed++
		}
	}

	for extID, g := range want {
		if _, existed := have[extID]; existed {
			continue
		}
		if s.grant(ctx, g) {
			report.Granted++
		} else {
			report.Failed++
		}
	}
	return nil
}

func (s *Syncer) revoke(ctx context.Context, u access.AuthorizedUser) bool {
	if err := s.store.RevokeAccess(ctx, u.ID); err != nil && !errors.Is(err, access.ErrUserNotFound) {
		s.logger.Error("revoking directory user", "user_id", u.ID, "error", err)
		return false
	}
	return true
}

func (s *Syncer) grant(ctx context.Context, g Grant) bool {
	_, err := s.store.GrantAccess(ctx, g.DeviceID, engine.UserSpec{
		Name:         g.Name,
		PhoneNumber:  g.PhoneNumber,
		SerialNumber: g.SerialNumber,
		ValidFrom:    g.ValidFrom,
		ValidUntil:   g.ValidUntil,
		Source:       access.SourceDirectory,
		ExternalID:   g.ExternalID,
	})
	if err != nil {
		s.logger.Warn("granting directory user", "device_id", g.DeviceID, "external_id", g.ExternalID, "error", err)
		return false
	}
	return true
}

// candidate returns the user g would be stored as, normalised. A grant
// without ValidFrom starts at from.
func candidate(g Grant, from time.Time) (access.AuthorizedUser, error) {
	u := access.AuthorizedUser{
		Name:         g.Name,
		PhoneNumber:  g.PhoneNumber,
		SerialNumber: g.SerialNumber,
		ValidFrom:    from,
		ValidUntil:   g.ValidUntil,
		Source:       access.SourceDirectory,
	}
	if g.ValidFrom != nil {
		u.ValidFrom = g.ValidFrom.UTC()
	}
	if u.ValidUntil != nil {
		until := u.ValidUntil.UTC()
		u.ValidUntil = &until
	}
	if err := u.Normalize(); err != nil {
		return access.AuthorizedUser{}, err
	}
	return u, nil
}

// matches reports whether the stored user already reflects the candidate.
func matches(u, c *access.AuthorizedUser) bool {
	return c.Name == u.Name &&
		c.PhoneNumber == u.PhoneNumber &&
		c.SerialNumber == u.SerialNumber &&
		c.ValidFrom.Equal(u.ValidFrom) &&
		equalTimes(c.ValidUntil, u.ValidUntil)
}

func equalTimes(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
