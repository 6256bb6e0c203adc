package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/nerrad567/gatekeeper-core/internal/access"
	"github.com/nerrad567/gatekeeper-core/internal/infrastructure/database"
	"github.com/nerrad567/gatekeeper-core/internal/relay"
)

// Entry is one immutable record of an authorization decision and the relay
// state it left behind.
type Entry struct {
	// Seq is the insertion sequence. It breaks CreatedAt ties.
	Seq int64 `json:"seq"`

	ID       string `json:"id"`
	DeviceID string `json:"device_id"`

	// DeviceName is populated only by ListRecent.
	DeviceName string `json:"device_name,omitempty"`

	Command        relay.Command  `json:"command"`
	Outcome        access.Outcome `json:"outcome"`
	Reason         access.Reason  `json:"reason"`
	Description    string         `json:"description"`
	Caller         string         `json:"caller"`
	ResultingState relay.State    `json:"resulting_state"`
	CreatedAt      time.Time      `json:"created_at"`

	PrevHash string `json:"prev_hash"`
	Hash     string `json:"hash"`
}

func (e *Entry) validate() error {
	switch {
	case e.DeviceID == "":
		return fmt.Errorf("%w: device id is required", ErrInvalidEntry)
	case !e.Command.Valid():
		return fmt.Errorf("%w: command %q", ErrInvalidEntry, e.Command)
	case e.Outcome != access.OutcomeAllowed && e.Outcome != access.OutcomeDenied:
		return fmt.Errorf("%w: outcome %q", ErrInvalidEntry, e.Outcome)
	case e.Reason == "":
		return fmt.Errorf("%w: reason is required", ErrInvalidEntry)
	case !e.ResultingState.Valid():
		return fmt.Errorf("%w: resulting state %q", ErrInvalidEntry, e.ResultingState)
	}
	return nil
}

// computeHash returns the SHA-256 of the entry's content chained to
// prevHash. Fields are length-prefixed so no two entries share an encoding.
func computeHash(e *Entry, prevHash string) string {
	h := sha256.New()
	for _, field := range []string{
		prevHash,
		e.ID,
		e.DeviceID,
		string(e.Command),
		string(e.Outcome),
		string(e.Reason),
		e.Description,
		e.Caller,
		string(e.ResultingState),
		database.FormatTime(e.CreatedAt),
	} {
		h.Write([]byte(strconv.Itoa(len(field))))
		h.Write([]byte{':'})
		h.Write([]byte(field))
	}
	return hex.EncodeToString(h.Sum(nil))
}
