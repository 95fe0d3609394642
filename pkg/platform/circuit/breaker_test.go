package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	b := New("redis", WithFailureThreshold(3))

	assert.Equal(t, NoTransition, b.RecordFailure())
	assert.Equal(t, NoTransition, b.RecordFailure())
	b.RecordSuccess()
	assert.Equal(t, StateClosed, b.State(), "success resets the failure streak")

	b.RecordFailure()
	b.RecordFailure()
	assert.Equal(t, Opened, b.RecordFailure())
	assert.Equal(t, StateOpen, b.State())
	assert.Equal(t, "open", b.State().String())
}

func TestBreakerProbesWhileOpen(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	b := New("redis",
		WithFailureThreshold(1),
		WithProbeInterval(time.Second),
		WithClock(clock.Now),
	)

	assert.True(t, b.Allow())
	b.RecordFailure()
	assert.False(t, b.Allow())

	clock.Advance(time.Second)
	assert.True(t, b.Allow())
	assert.False(t, b.Allow(), "one probe per interval")
}

func TestBreakerClosesAfterProbeSuccesses(t *testing.T) {
	b := New("redis", WithFailureThreshold(1), WithSuccessThreshold(2), WithProbeInterval(0))
	b.RecordFailure()

	assert.Equal(t, NoTransition, b.RecordSuccess())
	assert.Equal(t, StateOpen, b.State())
	assert.Equal(t, Closed, b.RecordSuccess())
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerReset(t *testing.T) {
	b := New("redis", WithFailureThreshold(1))
	b.RecordFailure()
	b.Reset()
	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.Allow())
}
