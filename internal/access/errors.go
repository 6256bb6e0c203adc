package access

import "errors"

// Domain errors for the access package.
var (
	// ErrUserNotFound is returned when an authorized user ID does not exist.
	ErrUserNotFound = errors.New("access: user not found")

	// ErrUserExists is returned when a directory user is granted twice on
	// the same device.
	ErrUserExists = errors.New("access: user already exists")

	// ErrInvalidUser is returned when an authorized user fails validation.
	ErrInvalidUser = errors.New("access: invalid user")

	// ErrInvalidIdentity is returned when a caller identity is empty or
	// malformed.
	ErrInvalidIdentity = errors.New("access: invalid caller identity")
)
