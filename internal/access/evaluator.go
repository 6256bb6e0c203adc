package access

import (
	"context"
	"time"

	"github.com/nerrad567/gatekeeper-core/internal/device"
)

// Outcome is the result of an authorization decision.
type Outcome string

// Decision outcomes.
const (
	OutcomeAllowed Outcome = "allowed"
	OutcomeDenied  Outcome = "denied"
)

// Reason explains an authorization decision.
type Reason string

// Decision reasons.
const (
	// ReasonOpenAccessMode: the device admits any caller.
	ReasonOpenAccessMode Reason = "open_access_mode"

	// ReasonAuthorizedUserMatch: a matching user is inside its window.
	ReasonAuthorizedUserMatch Reason = "authorized_user_match"

	// ReasonNoMatchingUser: no user on the device carries the identity.
	ReasonNoMatchingUser Reason = "no_matching_user"

	// ReasonExpiredOrNotYetValid: matching users exist but none is inside
	// its validity window.
	ReasonExpiredOrNotYetValid Reason = "expired_or_not_yet_valid"

	// ReasonInvalidIdentity: the caller identity is empty or malformed.
	ReasonInvalidIdentity Reason = "invalid_identity"
)

// Decision is the evaluator's verdict for one caller at one instant.
type Decision struct {
	Outcome Outcome `json:"outcome"`
	Reason  Reason  `json:"reason"`

	// Caller is the canonical identity, or the sanitised raw input when the
	// identity is invalid.
	Caller string `json:"caller"`

	// MatchedUserID is set when a specific user authorised the caller.
	MatchedUserID string `json:"matched_user_id,omitempty"`
}

// Allowed reports whether the decision permits the command.
func (d Decision) Allowed() bool {
	return d.Outcome == OutcomeAllowed
}

// UserFinder looks up the users of a device that carry either factor of
// an identity. It applies no time filtering.
type UserFinder interface {
	FindByIdentity(ctx context.Context, deviceID string, id Identity) ([]AuthorizedUser, error)
}

// Evaluator decides whether a caller may command a device.
type Evaluator struct {
	users UserFinder
}

// NewEvaluator returns an evaluator that reads candidates from users.
func NewEvaluator(users UserFinder) *Evaluator {
	return &Evaluator{users: users}
}

// Evaluate returns the decision for caller on dev at now. Policy failures
// (unknown caller, expired window, malformed identity) are denials, not
// errors; only lookup failures are returned as errors.
func (e *Evaluator) Evaluate(ctx context.Context, dev *device.Device, caller string, now time.Time) (Decision, error) {
	if dev.AccessMode == device.AccessAnyCaller {
		return Decision{
			Outcome: OutcomeAllowed,
			Reason:  ReasonOpenAccessMode,
			Caller:  DescribeCaller(caller),
		}, nil
	}

	id, err := ParseIdentity(caller)
	if err != nil {
		return Decide(dev, Identity{}, nil, now, DescribeCaller(caller)), nil
	}

	candidates, err := e.users.FindByIdentity(ctx, dev.ID, id)
	if err != nil {
		return Decision{}, err
	}

	return Decide(dev, id, candidates, now, id.String()), nil
}

// Decide is the pure decision rule. candidates may contain users that do not
// match id or belong to other devices; they are ignored.
func Decide(dev *device.Device, id Identity, candidates []AuthorizedUser, now time.Time, caller string) Decision {
	if dev.AccessMode == device.AccessAnyCaller {
		return Decision{Outcome: OutcomeAllowed, Reason: ReasonOpenAccessMode, Caller: caller}
	}

	if id.IsZero() {
		return Decision{Outcome: OutcomeDenied, Reason: ReasonInvalidIdentity, Caller: caller}
	}

	matched := false
	for i := range candidates {
		u := &candidates[i]
		if u.DeviceID != dev.ID || !id.Matches(u) {
			continue
		}
		matched = true
		if u.IsValidAt(now) {
			return Decision{
				Outcome:       OutcomeAllowed,
				Reason:        ReasonAuthorizedUserMatch,
				Caller:        caller,
				MatchedUserID: u.ID,
			}
		}
	}

	if matched {
		return Decision{Outcome: OutcomeDenied, Reason: ReasonExpiredOrNotYetValid, Caller: caller}
	}
	return Decision{Outcome: OutcomeDenied, Reason: ReasonNoMatchingUser, Caller: caller}
}
