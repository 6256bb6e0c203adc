package audit

import "errors"

// Domain errors for the audit package.
var (
	// ErrInvalidEntry is returned when an entry is missing required fields.
	ErrInvalidEntry = errors.New("audit: invalid entry")

	// ErrChainBroken is returned by Verification.Err when a device's hash
	// chain does not verify.
	ErrChainBroken = errors.New("audit: hash chain broken")
)
