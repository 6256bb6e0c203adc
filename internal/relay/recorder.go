package relay

import (
	"context"
	"sync"
)

// Recorder is an in-memory Actuator that keeps every signal it receives.
// Tests use it to assert which transitions reached hardware.
type Recorder struct {
	mu      sync.Mutex
	signals []Signal
	err     error
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Actuate records sig. If FailWith has been set the signal is still
// recorded and the error returned.
func (r *Recorder) Actuate(_ context.Context, sig Signal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signals = append(r.signals, sig)
	return r.err
}

// FailWith makes subsequent Actuate calls return err (nil to clear).
func (r *Recorder) FailWith(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}

// Signals returns a copy of the recorded signals in delivery order.
func (r *Recorder) Signals() []Signal {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Signal, len(r.signals))
	copy(out, r.signals)
	return out
}

// Count returns the number of recorded signals.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.signals)
}
