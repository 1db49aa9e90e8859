package engine

import (
	"context"
	"time"
)

// Clock supplies current local wall-clock time. Now reports false
// while the clock is unsynchronized; attendance processing is
// disabled until a resync succeeds.
type Clock interface {
	Now() (time.Time, bool)
	Resync(ctx context.Context) error
}

// SystemClock is the host clock, assumed NTP-disciplined by the OS.
type SystemClock struct {
	location *time.Location
}

// NewSystemClock constructs a system clock reporting time in loc.
// A nil loc means local time.
func NewSystemClock(loc *time.Location) *SystemClock {
	if loc == nil {
		loc = time.Local
	}
	return &SystemClock{location: loc}
}

// Now returns the current time. The host clock is always considered
// synchronized.
func (c *SystemClock) Now() (time.Time, bool) {
	return time.Now().In(c.location), true
}

// Resync is a no-op; the OS owns time discipline.
func (c *SystemClock) Resync(ctx context.Context) error {
	return nil
}
