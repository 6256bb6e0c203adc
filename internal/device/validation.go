package device

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Validation constants.
const (
	maxNameLength = 100
	maxTypeLength = 50
)

// phoneRegex matches a normalised phone number: optional leading +, then
// 3 to 20 digits.
var phoneRegex = regexp.MustCompile(`^\+?[0-9]{3,20}$`)

// phoneFormatting lists characters stripped before validating a phone number.
const phoneFormatting = " -().\t"

// NormalizePhoneNumber strips common formatting characters and validates
// the result. "+1 (555) 010-2030" becomes "+15550102030".
func NormalizePhoneNumber(raw string) (string, error) {
	cleaned := strings.Map(func(r rune) rune {
		if strings.ContainsRune(phoneFormatting, r) {
			return -1
		}
		return r
	}, strings.TrimSpace(raw))

	if !phoneRegex.MatchString(cleaned) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPhoneNumber, raw)
	}
	return cleaned, nil
}

// ValidateDevice checks a device before it is written.
// Phone numbers must already be normalised.
func ValidateDevice(d *Device) error {
	if d.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidDevice)
	}

	name := strings.TrimSpace(d.Name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		return fmt.Errorf("%w: %w: must be 1-%d characters", ErrInvalidDevice, ErrInvalidName, maxNameLength)
	}

	if utf8.RuneCountInString(d.Type) > maxTypeLength {
		return fmt.Errorf("%w: type exceeds %d characters", ErrInvalidDevice, maxTypeLength)
	}

	if !phoneRegex.MatchString(d.PhoneNumber) {
		return fmt.Errorf("%w: %w: %q", ErrInvalidDevice, ErrInvalidPhoneNumber, d.PhoneNumber)
	}

	if !d.AccessMode.Valid() {
		return fmt.Errorf("%w: %w: %q", ErrInvalidDevice, ErrInvalidAccessMode, d.AccessMode)
	}

	if d.PasswordHash == "" {
		return fmt.Errorf("%w: password hash is required", ErrInvalidDevice)
	}

	return nil
}
