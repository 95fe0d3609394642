package models

import (
	"strings"
	"time"

	dErrors "escrowgate/pkg/domain-errors"
)

// Policy limits requests to every path under Prefix.
type Policy struct {
	Prefix        string        `json:"prefix"`
	Window        time.Duration `json:"window"`
	Max           int           `json:"max"`
	BlockDuration time.Duration `json:"block_duration"`
	// FailureThreshold is the number of failed attempts in a window that
	// blocks the key. Zero means failures are counted as ordinary requests.
	FailureThreshold int `json:"failure_threshold,omitempty"`
}

func (p Policy) HasFailureThreshold() bool {
	return p.FailureThreshold > 0
}

func (p Policy) Validate() error {
	switch {
	case !strings.HasPrefix(p.Prefix, "/"):
		return dErrors.New(dErrors.CodeInvariantViolation, "policy prefix must start with /")
	case p.Window <= 0:
		return dErrors.New(dErrors.CodeInvariantViolation, "policy window must be positive")
	case p.Max <= 0:
		return dErrors.New(dErrors.CodeInvariantViolation, "policy max must be positive")
	case p.BlockDuration <= 0:
		return dErrors.New(dErrors.CodeInvariantViolation, "policy block duration must be positive")
	case p.FailureThreshold < 0:
		return dErrors.New(dErrors.CodeInvariantViolation, "policy failure threshold cannot be negative")
	}
	return nil
}

// BlockReason says why a key is blocked.
type BlockReason string

const (
	ReasonNone           BlockReason = ""
	ReasonQuotaExceeded  BlockReason = "rate_limit_exceeded"
	ReasonFailedAttempts BlockReason = "too_many_failed_attempts"
)

// Record is the per client and policy counter state.
type Record struct {
	Count          int         `json:"count"`
	ResetTime      time.Time   `json:"reset_time"`
	FailedAttempts int         `json:"failed_attempts"`
	BlockedUntil   *time.Time  `json:"blocked_until,omitempty"`
	BlockReason    BlockReason `json:"block_reason,omitempty"`
}

// NewRecord starts a fresh window at now.
func NewRecord(now time.Time, window time.Duration) *Record {
	return &Record{ResetTime: now.Add(window)}
}

// IsBlocked reports whether now falls before BlockedUntil.
func (r *Record) IsBlocked(now time.Time) bool {
	return r.BlockedUntil != nil && now.Before(*r.BlockedUntil)
}

// WindowExpired reports whether now is past ResetTime.
func (r *Record) WindowExpired(now time.Time) bool {
	return now.After(r.ResetTime)
}

// ResetWindow clears counters and any block and starts a new window at now.
func (r *Record) ResetWindow(now time.Time, window time.Duration) {
	r.Count = 0
	r.FailedAttempts = 0
	r.BlockedUntil = nil
	r.BlockReason = ReasonNone
	r.ResetTime = now.Add(window)
}

func (r *Record) Block(until time.Time, reason BlockReason) {
	r.BlockedUntil = &until
	r.BlockReason = reason
}

// Expiry is the later of ResetTime and BlockedUntil; the record carries no
// information after it.
func (r *Record) Expiry() time.Time {
	if r.BlockedUntil != nil && r.BlockedUntil.After(r.ResetTime) {
		return *r.BlockedUntil
	}
	return r.ResetTime
}

func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	if r.BlockedUntil != nil {
		until := *r.BlockedUntil
		c.BlockedUntil = &until
	}
	return &c
}

// Stricter combines two records for one key, keeping the later block and
// window and the higher counters. Either record may be nil.
func Stricter(a, b *Record) *Record {
	switch {
	case a == nil:
		return b.Clone()
	case b == nil:
		return a.Clone()
	}
	out := a.Clone()
	out.Count = max(a.Count, b.Count)
	out.FailedAttempts = max(a.FailedAttempts, b.FailedAttempts)
	if b.ResetTime.After(out.ResetTime) {
		out.ResetTime = b.ResetTime
	}
	if b.BlockedUntil != nil && (out.BlockedUntil == nil || b.BlockedUntil.After(*out.BlockedUntil)) {
		out.Block(*b.BlockedUntil, b.BlockReason)
	}
	return out
}

// RecordKey joins a client fingerprint and a policy prefix. Every path under
// one prefix shares a record.
func RecordKey(identifier, prefix string) string {
	return identifier + ":" + prefix
}

// Result is the outcome of one limit check.
type Result struct {
	Allowed bool `json:"allowed"`
	// Matched is false when no policy covers the path.
	Matched    bool        `json:"matched"`
	Policy     string      `json:"policy,omitempty"`
	Limit      int         `json:"limit,omitempty"`
	Remaining  int         `json:"remaining"`
	Reset      time.Time   `json:"reset,omitempty"`
	RetryAfter int         `json:"retry_after,omitempty"`
	Blocked    bool        `json:"blocked"`
	Reason     BlockReason `json:"reason,omitempty"`
}
