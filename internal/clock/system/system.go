// Package system provides the wall clock that stamps ledger rows and
// notifications.
package system

import "time"

// Precision matches Postgres TIMESTAMPTZ.
const Precision = time.Microsecond

// Clock implements artifact.Clock.
type Clock struct{}

// New creates a new Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current UTC time truncated to Precision.
func (Clock) Now() time.Time {
	return time.Now().UTC().Truncate(Precision)
}
