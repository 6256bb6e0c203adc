package auth

import "errors"

// Role is the authorisation tier of an API operator.
type Role string

const (
	// RoleViewer may read devices, users and the audit log.
	RoleViewer Role = "viewer"

	// RoleOperator may also dispatch relay commands.
	RoleOperator Role = "operator"

	// RoleAdmin may also manage devices and grant or revoke access.
	RoleAdmin Role = "admin"
)

// ValidRoles lists every role an operator token may carry.
var ValidRoles = []Role{RoleViewer, RoleOperator, RoleAdmin}

// IsValidRole returns true if r is a known role.
func IsValidRole(r Role) bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

// Domain errors for the auth package.
var (
	ErrTokenInvalid = errors.New("invalid token")
	ErrInvalidHash  = errors.New("invalid password hash")
	ErrInvalidRole  = errors.New("invalid role")
)
