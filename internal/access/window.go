package access

import "time"

// IsValidAt reports whether the user's validity window contains at.
// Both bounds are inclusive; a nil ValidUntil is unbounded.
func (u *AuthorizedUser) IsValidAt(at time.Time) bool {
	if at.Before(u.ValidFrom) {
		return false
	}
	return u.ValidUntil == nil || !at.After(*u.ValidUntil)
}

// ActiveAt filters users to those valid at the given instant.
func ActiveAt(users []AuthorizedUser, at time.Time) []AuthorizedUser {
	active := make([]AuthorizedUser, 0, len(users))
	for i := range users {
		if users[i].IsValidAt(at) {
			active = append(active, users[i])
		}
	}
	return active
}
