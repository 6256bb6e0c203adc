package device

import (
	"time"

	"github.com/nerrad567/gatekeeper-core/internal/relay"
)

// AccessMode governs whether authorized-user membership is checked.
type AccessMode string

// Access modes.
const (
	// AccessAuthorizedOnly admits only callers on the device's authorized list.
	AccessAuthorizedOnly AccessMode = "authorized_only"

	// AccessAnyCaller admits every caller.
	AccessAnyCaller AccessMode = "any_caller"
)

// Valid reports whether m is a known access mode.
func (m AccessMode) Valid() bool {
	return m == AccessAuthorizedOnly || m == AccessAnyCaller
}

// DefaultPassword is the shared secret assigned when none is supplied.
const DefaultPassword = "1234"

// Device is a relay-controlled endpoint such as a gate or door opener.
//
// RelayState is read-only outside the dispatch package; the repository
// never writes it.
type Device struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Type        string      `json:"type"`
	PhoneNumber string      `json:"phone_number"`
	AccessMode  AccessMode  `json:"access_mode"`
	RelayState  relay.State `json:"relay_state"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`

	// PasswordHash is an argon2id PHC string. Never serialised.
	PasswordHash string `json:"-"`
}
