package clock

import "time"

// FakeClock is a Clock frozen at a programmable instant, normalized to UTC.
// Tests advance it explicitly so timestamp ordering stays deterministic.
type FakeClock struct {
	now time.Time
}

// NewFakeClock returns a FakeClock pinned to t.
func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{now: t.UTC()}
}

// Now returns the pinned instant.
func (c *FakeClock) Now() time.Time {
	return c.now
}

// Advance moves the pinned instant forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}
