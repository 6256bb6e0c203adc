// Package relay defines the vocabulary of relay commands and states, and the
// actuator collaborator that carries genuine transitions to hardware.
package relay

import (
	"context"
	"time"
)

// State is the physical or logical state of a relay.
type State string

// Relay states.
const (
	StateOpen   State = "open"
	StateClosed State = "closed"
)

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	return s == StateOpen || s == StateClosed
}

// Command is a request to change a relay's state.
type Command string

// Relay commands.
const (
	CommandActivate   Command = "activate"
	CommandDeactivate Command = "deactivate"
)

// Valid reports whether c is a known command.
func (c Command) Valid() bool {
	return c == CommandActivate || c == CommandDeactivate
}

// Target returns the state a command drives the relay to.
// Activate opens; deactivate closes.
func (c Command) Target() State {
	if c == CommandActivate {
		return StateOpen
	}
	return StateClosed
}

// Signal is emitted once per genuine transition, never for redundant
// commands.
type Signal struct {
	DeviceID     string    `json:"device_id"`
	Command      Command   `json:"command"`
	Target       State     `json:"target"`
	AuditEntryID string    `json:"audit_entry_id"`
	At           time.Time `json:"at"`
}

// Actuator delivers relay signals to hardware.
//
// Actuate is called while the device's dispatch lock is held, after the
// transition and its audit entry are committed, so signals for one device
// are delivered in audit order. Implementations must not retry internally.
type Actuator interface {
	Actuate(ctx context.Context, sig Signal) error
}

// ActuatorFunc adapts a function to the Actuator interface.
type ActuatorFunc func(ctx context.Context, sig Signal) error

// Actuate calls f(ctx, sig).
func (f ActuatorFunc) Actuate(ctx context.Context, sig Signal) error {
	return f(ctx, sig)
}

// Nop is an Actuator that drops every signal. It is used when relay output
// is disabled; the dispatcher still logs each transition.
var Nop Actuator = ActuatorFunc(func(context.Context, Signal) error { return nil })
