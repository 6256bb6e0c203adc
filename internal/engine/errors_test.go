package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/nerrad567/gatekeeper-core/internal/access"
	"github.com/nerrad567/gatekeeper-core/internal/device"
	"github.com/nerrad567/gatekeeper-core/internal/dispatch"
	"github.com/nerrad567/gatekeeper-core/internal/infrastructure/database"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, ""},
		{"device not found", fmt.Errorf("loading: %w", device.ErrDeviceNotFound), KindNotFound},
		{"user not found", access.ErrUserNotFound, KindNotFound},
		{"device exists", device.ErrDeviceExists, KindConflict},
		{"user exists", access.ErrUserExists, KindConflict},
		{"invalid identity", access.ErrInvalidIdentity, KindInvalidIdentity},
		{"invalid device", device.ErrInvalidDevice, KindInvalid},
		{"invalid user", access.ErrInvalidUser, KindInvalid},
		{"invalid command", dispatch.ErrInvalidCommand, KindInvalid},
		{"storage", database.StorageError("inserting", errors.New("disk I/O error")), KindStorage},
		{"storage timeout", database.StorageError("querying", context.DeadlineExceeded), KindStorage},
		{"lock timeout", dispatch.ErrLockTimeout, KindLockTimeout},
		{"caller canceled", context.Canceled, KindCanceled},
		{"canceled during read", database.StorageError("querying", context.Canceled), KindCanceled},
		{"caller deadline", context.DeadlineExceeded, KindCanceled},
		{"unknown", errors.New("boom"), KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestKind_Retryable(t *testing.T) {
	for _, k := range []Kind{KindStorage, KindLockTimeout} {
		if !k.Retryable() {
			t.Errorf("%s.Retryable() = false", k)
		}
	}
	for _, k := range []Kind{KindNotFound, KindConflict, KindInvalid, KindInvalidIdentity, KindCanceled, KindInternal} {
		if k.Retryable() {
			t.Errorf("%s.Retryable() = true", k)
		}
	}
}
