package audit

import (
	"context"
	"fmt"
)

// Verification reports the outcome of walking one device's hash chain.
type Verification struct {
	DeviceID string `json:"device_id"`
	Entries  int    `json:"entries"`
	Valid    bool   `json:"valid"`

	// BrokenAt is the ID of the first entry that fails verification.
	BrokenAt string `json:"broken_at,omitempty"`
	Problem  string `json:"problem,omitempty"`
}

// Err returns nil for a valid chain, otherwise an error wrapping
// ErrChainBroken.
func (v *Verification) Err() error {
	if v.Valid {
		return nil
	}
	return fmt.Errorf("%w: device %s at entry %s: %s", ErrChainBroken, v.DeviceID, v.BrokenAt, v.Problem)
}

// Verify recomputes the hash chain of a device in insertion order and
// reports the first entry whose link or content does not match. A device
// without entries verifies trivially.
func (l *Log) Verify(ctx context.Context, deviceID string) (*Verification, error) {
	entries, err := l.query(ctx, `
		SELECT `+entryColumns+`, '' FROM audit_entries
		WHERE device_id = ?
		ORDER BY seq ASC`, deviceID)
	if err != nil {
		return nil, err
	}

	v := &Verification{DeviceID: deviceID, Entries: len(entries), Valid: true}
	prev := ""
	for i := range entries {
		e := &entries[i]
		switch {
		case e.PrevHash != prev:
			v.Valid, v.BrokenAt, v.Problem = false, e.ID, "previous hash does not match"
		case computeHash(e, prev) != e.Hash:
			v.Valid, v.BrokenAt, v.Problem = false, e.ID, "content hash does not match"
		}
		if !v.Valid {
			break
		}
		prev = e.Hash
	}
	return v, nil
}
