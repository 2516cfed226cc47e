// Package clock provides an injectable current-time source so period,
// overdue, and projection logic stay deterministic in tests.
package clock

import "time"

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// System is the wall-clock implementation used in production.
type System struct{}

// Now returns the current wall-clock time.
func (System) Now() time.Time { return time.Now() }

// Fixed is a Clock frozen at a specific instant.
type Fixed struct {
	Time time.Time
}

// Now returns the frozen instant.
func (f Fixed) Now() time.Time { return f.Time }
