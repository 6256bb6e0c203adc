package access

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/nerrad567/gatekeeper-core/internal/device"
)

// Source records who manages an authorized user.
type Source string

// User sources.
const (
	// SourceLocal users are granted by an operator through the API.
	SourceLocal Source = "local"

	// SourceDirectory users are managed by the remote directory sync and
	// may be revoked by it.
	SourceDirectory Source = "directory"
)

const maxUserNameLength = 100

// AuthorizedUser is a time-bounded credential allowing a caller to command
// one device.
type AuthorizedUser struct {
	ID           string     `json:"id"`
	DeviceID     string     `json:"device_id"`
	Name         string     `json:"name,omitempty"`
	PhoneNumber  string     `json:"phone_number,omitempty"`
	SerialNumber string     `json:"serial_number,omitempty"`
	ValidFrom    time.Time  `json:"valid_from"`
	ValidUntil   *time.Time `json:"valid_until,omitempty"`
	Source       Source     `json:"source"`
	ExternalID   string     `json:"external_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Normalize canonicalises the credential factors in place and validates
// the user. A zero ValidFrom must be filled by the caller beforehand.
func (u *AuthorizedUser) Normalize() error {
	u.Name = strings.TrimSpace(u.Name)
	if utf8.RuneCountInString(u.Name) > maxUserNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidUser, maxUserNameLength)
	}

	if strings.TrimSpace(u.PhoneNumber) == "" && strings.TrimSpace(u.SerialNumber) == "" {
		return fmt.Errorf("%w: phone number or serial number is required", ErrInvalidUser)
	}

	if strings.TrimSpace(u.PhoneNumber) != "" {
		phone, err := device.NormalizePhoneNumber(u.PhoneNumber)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidUser, err)
		}
		u.PhoneNumber = phone
	} else {
		u.PhoneNumber = ""
	}

	if strings.TrimSpace(u.SerialNumber) != "" {
		serial, err := NormalizeSerial(u.SerialNumber)
		if err != nil {
			return err
		}
		u.SerialNumber = serial
	} else {
		u.SerialNumber = ""
	}

	if u.ValidFrom.IsZero() {
		return fmt.Errorf("%w: valid_from is required", ErrInvalidUser)
	}
	if u.ValidUntil != nil && u.ValidUntil.Before(u.ValidFrom) {
		return fmt.Errorf("%w: valid_until is before valid_from", ErrInvalidUser)
	}

	if u.Source == "" {
		u.Source = SourceLocal
	}
	if u.Source != SourceLocal && u.Source != SourceDirectory {
		return fmt.Errorf("%w: unknown source %q", ErrInvalidUser, u.Source)
	}

	return nil
}
