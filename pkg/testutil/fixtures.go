package testutil

import (
	"context"
	"sync"
	"time"

	"escrowgate/pkg/requestcontext"
)

// Epoch is a fixed instant used as the starting point of test clocks.
var Epoch = time.Date(2026, 1, 15, 9, 30, 0, 0, time.UTC)

// Test fingerprints in the ip-hash form produced by the fingerprint package.
const (
	FingerprintA = "203.0.113.10-1b2c3d"
	FingerprintB = "198.51.100.7-9z8y7x"
)

// Clock is a manually advanced clock for driving request-scoped time.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Context returns ctx pinned to the clock's current time.
func (c *Clock) Context(ctx context.Context) context.Context {
	return requestcontext.WithTime(ctx, c.Now())
}
