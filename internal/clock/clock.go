// Package clock supplies the current instant to services so tests can
// control time.
package clock

import "time"

// Clock returns the current instant.
type Clock interface {
	Now() time.Time
}

// System reads the wall clock in UTC.
type System struct{}

// Now returns the current UTC time.
func (System) Now() time.Time { return time.Now().UTC() }

// Fixed always returns the same instant; intended for tests.
type Fixed struct {
	T time.Time
}

// Now returns the fixed instant.
func (f Fixed) Now() time.Time { return f.T }
