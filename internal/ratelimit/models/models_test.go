package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecordBlockBoundary(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	r := NewRecord(now, time.Minute)
	assert.False(t, r.IsBlocked(now))

	r.Block(now.Add(30*time.Second), ReasonQuotaExceeded)
	assert.True(t, r.IsBlocked(now.Add(29*time.Second)))
	assert.False(t, r.IsBlocked(now.Add(30*time.Second)), "block ends at blockedUntil")
}

func TestRecordWindowBoundary(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	r := NewRecord(now, time.Minute)
	assert.False(t, r.WindowExpired(now.Add(time.Minute)), "window is inclusive of resetTime")
	assert.True(t, r.WindowExpired(now.Add(time.Minute+time.Millisecond)))
}

func TestResetWindowClearsEverything(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	r := &Record{Count: 9, FailedAttempts: 2, ResetTime: now}
	r.Block(now.Add(time.Hour), ReasonFailedAttempts)

	r.ResetWindow(now, 15*time.Minute)
	assert.Zero(t, r.Count)
	assert.Zero(t, r.FailedAttempts)
	assert.Nil(t, r.BlockedUntil)
	assert.Equal(t, ReasonNone, r.BlockReason)
	assert.Equal(t, now.Add(15*time.Minute), r.ResetTime)
}

func TestExpiryAndClone(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	r := NewRecord(now, time.Minute)
	assert.Equal(t, now.Add(time.Minute), r.Expiry())

	r.Block(now.Add(time.Hour), ReasonQuotaExceeded)
	assert.Equal(t, now.Add(time.Hour), r.Expiry())

	c := r.Clone()
	*c.BlockedUntil = now
	assert.Equal(t, now.Add(time.Hour), *r.BlockedUntil, "clone does not alias BlockedUntil")
}

func TestPolicyValidate(t *testing.T) {
	ok := Policy{Prefix: "/api/auth/login", Window: time.Minute, Max: 5, BlockDuration: time.Minute, FailureThreshold: 3}
	assert.NoError(t, ok.Validate())
	assert.True(t, ok.HasFailureThreshold())

	bad := ok
	bad.Prefix = "api"
	assert.Error(t, bad.Validate())
	bad = ok
	bad.Max = 0
	assert.Error(t, bad.Validate())
	bad = ok
	bad.Window = 0
	assert.Error(t, bad.Validate())
}

func TestRecordKey(t *testing.T) {
	assert.Equal(t, "10.0.0.1-abc:/api/auth/login", RecordKey("10.0.0.1-abc", "/api/auth/login"))
}

func TestStricterKeepsBlockAndHigherCounts(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	shared := NewRecord(now, 15*time.Minute)
	shared.Count = 4

	local := NewRecord(now.Add(time.Minute), 15*time.Minute)
	local.Count = 1
	local.FailedAttempts = 3
	local.Block(now.Add(30*time.Minute), ReasonFailedAttempts)

	got := Stricter(shared, local)
	assert.Equal(t, 4, got.Count)
	assert.Equal(t, 3, got.FailedAttempts)
	assert.Equal(t, now.Add(16*time.Minute), got.ResetTime)
	if assert.NotNil(t, got.BlockedUntil) {
		assert.Equal(t, now.Add(30*time.Minute), *got.BlockedUntil)
	}
	assert.Equal(t, ReasonFailedAttempts, got.BlockReason)
	assert.Equal(t, 4, shared.Count, "inputs are not modified")
	assert.Nil(t, shared.BlockedUntil)

	assert.Equal(t, local, Stricter(nil, local))
	assert.Equal(t, shared, Stricter(shared, nil))
	assert.Nil(t, Stricter(nil, nil))
}
