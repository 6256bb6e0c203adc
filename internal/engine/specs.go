package engine

import (
	"time"

	"github.com/nerrad567/gatekeeper-core/internal/access"
	"github.com/nerrad567/gatekeeper-core/internal/device"
)

// DeviceSpec describes a device to register.
type DeviceSpec struct {
	// ID is generated when empty.
	ID          string            `json:"id,omitempty"`
	Name        string            `json:"name"`
	Type        string            `json:"type,omitempty"`
	PhoneNumber string            `json:"phone_number"`
	AccessMode  device.AccessMode `json:"access_mode,omitempty"` // default authorized_only
	Password    string            `json:"password,omitempty"`    // default device.DefaultPassword
}

// DevicePatch lists the device fields to change; nil fields are kept.
// The relay state cannot be patched.
type DevicePatch struct {
	Name        *string            `json:"name,omitempty"`
	Type        *string            `json:"type,omitempty"`
	PhoneNumber *string            `json:"phone_number,omitempty"`
	AccessMode  *device.AccessMode `json:"access_mode,omitempty"`
	Password    *string            `json:"password,omitempty"`
}

// UserSpec describes an access grant.
type UserSpec struct {
	Name         string     `json:"name,omitempty"`
	PhoneNumber  string     `json:"phone_number,omitempty"`
	SerialNumber string     `json:"serial_number,omitempty"`
	ValidFrom    *time.Time `json:"valid_from,omitempty"` // default now
	ValidUntil   *time.Time `json:"valid_until,omitempty"`

	// Source and ExternalID are set by the directory sync.
	Source     access.Source `json:"source,omitempty"`
	ExternalID string        `json:"external_id,omitempty"`
}
