package dispatch

import (
	"fmt"

	"github.com/nerrad567/gatekeeper-core/internal/access"
	"github.com/nerrad567/gatekeeper-core/internal/audit"
	"github.com/nerrad567/gatekeeper-core/internal/relay"
)

// Outcome is the externally visible result of a dispatch.
type Outcome string

// Dispatch outcomes.
const (
	// OutcomeApplied: the command was authorised. State is the new (or,
	// when Redundant, unchanged) relay state.
	OutcomeApplied Outcome = "applied"

	// OutcomeRejected: the command was denied. State is unchanged.
	OutcomeRejected Outcome = "rejected"
)

// Result describes one completed dispatch. Every Result corresponds to
// exactly one committed audit entry.
type Result struct {
	DeviceID      string        `json:"device_id"`
	Command       relay.Command `json:"command"`
	Outcome       Outcome       `json:"outcome"`
	State         relay.State   `json:"state"`
	PreviousState relay.State   `json:"previous_state"`
	Reason        access.Reason `json:"reason"`
	Caller        string        `json:"caller"`

	// Redundant is set when an allowed command found the relay already in
	// its target state. No signal is emitted for it.
	Redundant bool `json:"redundant"`

	// Actuated reports whether the relay signal was delivered. It is false
	// for rejections, redundant commands and failed deliveries.
	Actuated bool `json:"actuated"`

	Entry audit.Entry `json:"audit_entry"`
}

// Applied reports whether the command was authorised.
func (r *Result) Applied() bool {
	return r.Outcome == OutcomeApplied
}

// Transitioned reports whether the relay state changed.
func (r *Result) Transitioned() bool {
	return r.Applied() && !r.Redundant
}

// Err returns access.ErrInvalidIdentity for a rejection caused by a
// malformed caller so that callers can surface it as an input error. All
// other outcomes, including policy denials, return nil.
func (r *Result) Err() error {
	if r.Outcome == OutcomeRejected && r.Reason == access.ReasonInvalidIdentity {
		return fmt.Errorf("%w: %q", access.ErrInvalidIdentity, r.Caller)
	}
	return nil
}

// describe builds the human-readable audit description.
func describe(cmd relay.Command, d access.Decision, prev, next relay.State, redundant bool) string {
	switch {
	case !d.Allowed():
		return fmt.Sprintf("%s denied: %s", cmd, d.Reason)
	case redundant:
		return fmt.Sprintf("%s allowed (%s), redundant: relay already %s", cmd, d.Reason, next)
	default:
		return fmt.Sprintf("%s allowed (%s): relay %s -> %s", cmd, d.Reason, prev, next)
	}
}
