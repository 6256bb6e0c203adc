package access

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/nerrad567/gatekeeper-core/internal/device"
)

// maxCallerLength bounds the raw caller string kept in audit entries.
const maxCallerLength = 64

// serialRegex matches a normalised serial number.
var serialRegex = regexp.MustCompile(`^[A-Z0-9][A-Z0-9-]{0,63}$`)

// Identity is a caller credential presented with a command. A raw value
// may be read as a phone number, a serial number, or both (e.g. "5550100"),
// and matches a user through either factor.
type Identity struct {
	Phone  string
	Serial string
}

// ParseIdentity normalises a raw caller identity.
// It returns ErrInvalidIdentity if the value is neither a valid phone
// number nor a valid serial number.
func ParseIdentity(raw string) (Identity, error) {
	var id Identity

	if phone, err := device.NormalizePhoneNumber(raw); err == nil {
		id.Phone = phone
	}
	if serial, err := NormalizeSerial(raw); err == nil {
		id.Serial = serial
	}

	if id.IsZero() {
		return Identity{}, fmt.Errorf("%w: %q", ErrInvalidIdentity, truncate(raw))
	}
	return id, nil
}

// NormalizeSerial trims and upper-cases a serial number and validates it.
func NormalizeSerial(raw string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if !serialRegex.MatchString(s) {
		return "", fmt.Errorf("%w: serial number %q", ErrInvalidUser, truncate(raw))
	}
	return s, nil
}

// IsZero reports whether neither factor is set.
func (id Identity) IsZero() bool {
	return id.Phone == "" && id.Serial == ""
}

// String returns the canonical form recorded in the audit log.
func (id Identity) String() string {
	if id.Phone != "" {
		return id.Phone
	}
	return id.Serial
}

// Matches reports whether u carries either of the identity's factors.
func (id Identity) Matches(u *AuthorizedUser) bool {
	if id.Phone != "" && u.PhoneNumber == id.Phone {
		return true
	}
	return id.Serial != "" && u.SerialNumber == id.Serial
}

// DescribeCaller returns the form of raw that is safe to record: the
// canonical identity when it parses, otherwise the trimmed, truncated input.
func DescribeCaller(raw string) string {
	if id, err := ParseIdentity(raw); err == nil {
		return id.String()
	}
	return truncate(strings.TrimSpace(raw))
}

// truncate cuts s to at most maxCallerLength bytes without splitting a
// UTF-8 sequence.
func truncate(s string) string {
	if len(s) <= maxCallerLength {
		return s
	}
	n := maxCallerLength
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
