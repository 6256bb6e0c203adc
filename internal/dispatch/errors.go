package dispatch

import "errors"

// Domain errors for the dispatch package.
var (
	// ErrLockTimeout is returned when the device's dispatch slot could not
	// be acquired within the configured budget. Nothing was changed.
	ErrLockTimeout = errors.New("dispatch: device lock timeout")

	// ErrInvalidCommand is returned for a command other than activate or
	// deactivate.
	ErrInvalidCommand = errors.New("dispatch: invalid command")
)
