package engine

import (
	"context"
	"errors"

	"github.com/nerrad567/gatekeeper-core/internal/access"
	"github.com/nerrad567/gatekeeper-core/internal/device"
	"github.com/nerrad567/gatekeeper-core/internal/dispatch"
	"github.com/nerrad567/gatekeeper-core/internal/infrastructure/database"
)

// Kind classifies an engine error for callers that need to react to the
// category rather than the specific cause.
type Kind string

// Error kinds.
const (
	KindNotFound        Kind = "not_found"
	KindConflict        Kind = "conflict"
	KindInvalidIdentity Kind = "invalid_identity"
	KindInvalid         Kind = "invalid"
	KindStorage         Kind = "storage_error"
	KindLockTimeout     Kind = "lock_timeout"
	KindCanceled        Kind = "canceled"
	KindInternal        Kind = "internal"
)

// Retryable reports whether an operation failing with k may succeed if
// repeated unchanged.
func (k Kind) Retryable() bool {
	return k == KindStorage || k == KindLockTimeout
}

// KindOf returns the kind of err. A nil error has no kind.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, device.ErrDeviceNotFound), errors.Is(err, access.ErrUserNotFound):
		return KindNotFound
	case errors.Is(err, device.ErrDeviceExists), errors.Is(err, access.ErrUserExists):
		return KindConflict
	case errors.Is(err, access.ErrInvalidIdentity):
		return KindInvalidIdentity
	case errors.Is(err, device.ErrInvalidDevice),
		errors.Is(err, access.ErrInvalidUser),
		errors.Is(err, dispatch.ErrInvalidCommand):
		return KindInvalid
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.Is(err, database.ErrStorage):
		// Storage timeouts wrap context.DeadlineExceeded; they are still
		// storage failures.
		return KindStorage
	case errors.Is(err, dispatch.ErrLockTimeout):
		return KindLockTimeout
	case errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	default:
		return KindInternal
	}
}
