// Package clock supplies the current instant to the engine.
//
// Production code uses System; tests use NewMock to pin and advance time
// deterministically.
package clock

import (
	bclock "github.com/benbjohnson/clock"
)

// Clock is the time source used throughout the engine.
type Clock = bclock.Clock

// Mock is a manually advanced clock for tests.
type Mock = bclock.Mock

// System returns the wall clock.
func System() Clock {
	return bclock.New()
}

// NewMock returns a clock frozen at the Unix epoch until Set or Add is called.
func NewMock() *Mock {
	return bclock.NewMock()
}
