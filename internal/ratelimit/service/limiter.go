// Package service implements the sliding-window, failure-aware limiter.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"escrowgate/internal/ratelimit/config"
	"escrowgate/internal/ratelimit/metrics"
	"escrowgate/internal/ratelimit/models"
	"escrowgate/internal/ratelimit/store"
	"escrowgate/internal/sentinel"
	dErrors "escrowgate/pkg/domain-errors"
	"escrowgate/pkg/platform/audit"
	"escrowgate/pkg/platform/privacy"
	keyedsync "escrowgate/pkg/platform/sync"
	"escrowgate/pkg/requestcontext"
)

// Limiter decides per request whether a client may proceed. Records are
// keyed by fingerprint and matched policy prefix; each key's
// read-modify-write runs under its own lock.
type Limiter struct {
	policies *config.PolicySet
	store    store.Store
	locks    *keyedsync.KeyedMutex
	logger   *slog.Logger
	metrics  *metrics.Metrics
	auditor  *audit.Logger
	tracer   trace.Tracer
}

type Option func(*Limiter)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) {
		if logger != nil {
			l.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Limiter) {
		l.metrics = m
	}
}

func WithAuditLogger(a *audit.Logger) Option {
	return func(l *Limiter) {
		l.auditor = a
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(l *Limiter) {
		if t != nil {
			l.tracer = t
		}
	}
}

func New(st store.Store, policies *config.PolicySet, opts ...Option) (*Limiter, error) {
	if st == nil {
		return nil, fmt.Errorf("record store is required")
	}
	if policies == nil {
		return nil, fmt.Errorf("policy set is required")
	}
	l := &Limiter{
		policies: policies,
		store:    st,
		locks:    keyedsync.NewKeyedMutex(),
		logger:   slog.Default(),
		tracer:   otel.Tracer("escrowgate/ratelimit"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

func (l *Limiter) Policies() *config.PolicySet {
	return l.policies
}

// CheckLimit applies the policy matching path to identifier. Paths no
// policy covers are always allowed and leave no record. Store failures
// come back as CodeUnavailable so callers can fail closed.
func (l *Limiter) CheckLimit(ctx context.Context, identifier, path string, failed bool) (*models.Result, error) {
	policy, ok := l.policies.Match(path)
	if !ok {
		return &models.Result{Allowed: true}, nil
	}

	ctx, span := l.tracer.Start(ctx, "ratelimit.CheckLimit", trace.WithAttributes(
		attribute.String("ratelimit.policy", policy.Prefix),
		attribute.Bool("ratelimit.failed_attempt", failed),
	))
	defer span.End()

	now := requestcontext.Now(ctx)
	key := models.RecordKey(identifier, policy.Prefix)

	var result *models.Result
	err := l.locks.With(key, func() error {
		var err error
		result, err = l.apply(ctx, key, identifier, policy, now, failed)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		l.logger.ErrorContext(ctx, "rate limit check failed",
			"policy", policy.Prefix,
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "rate limit store unavailable")
	}

	span.SetAttributes(
		attribute.Bool("ratelimit.allowed", result.Allowed),
		attribute.Int("ratelimit.remaining", result.Remaining),
	)
	l.metrics.ObserveDecision(policy.Prefix, result.Allowed)
	return result, nil
}

func (l *Limiter) apply(ctx context.Context, key, identifier string, policy models.Policy, now time.Time, failed bool) (*models.Result, error) {
	rec, err := l.store.Get(ctx, key)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		rec = models.NewRecord(now, policy.Window)
	case err != nil:
		return nil, err
	}

	if rec.IsBlocked(now) {
		return rejected(policy, rec, now), nil
	}
	if rec.WindowExpired(now) {
		rec.ResetWindow(now, policy.Window)
	}

	if failed && policy.HasFailureThreshold() {
		rec.FailedAttempts++
		l.metrics.IncrementFailedAttempts(policy.Prefix)
		if rec.FailedAttempts >= policy.FailureThreshold {
			rec.Block(now.Add(policy.BlockDuration), models.ReasonFailedAttempts)
			if err := l.store.Set(ctx, key, rec); err != nil {
				return nil, err
			}
			l.blocked(ctx, identifier, policy, rec)
			return rejected(policy, rec, now), nil
		}
		if err := l.store.Set(ctx, key, rec); err != nil {
			return nil, err
		}
		return allowed(policy, rec), nil
	}

	rec.Count++
	if rec.Count > policy.Max {
		rec.Block(now.Add(policy.BlockDuration), models.ReasonQuotaExceeded)
		if err := l.store.Set(ctx, key, rec); err != nil {
			return nil, err
		}
		l.blocked(ctx, identifier, policy, rec)
		return rejected(policy, rec, now), nil
	}
	if err := l.store.Set(ctx, key, rec); err != nil {
		return nil, err
	}
	return allowed(policy, rec), nil
}

// TrackFailedAttempt records a failed authentication against the policy
// covering endpoint.
func (l *Limiter) TrackFailedAttempt(ctx context.Context, identifier, endpoint string) (*models.Result, error) {
	return l.CheckLimit(ctx, identifier, endpoint, true)
}

// ResetLimit deletes the record for identifier under the policy covering
// endpoint. Resetting an unknown or unmatched key is a no-op.
func (l *Limiter) ResetLimit(ctx context.Context, identifier, endpoint string) error {
	policy, ok := l.policies.Match(endpoint)
	if !ok {
		return nil
	}
	key := models.RecordKey(identifier, policy.Prefix)
	err := l.locks.With(key, func() error {
		return l.store.Delete(ctx, key)
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "rate limit store unavailable")
	}

	l.metrics.IncrementResets()
	l.auditor.Log(ctx, audit.ActionLimitReset,
		"subject", privacy.AnonymizeFingerprint(identifier),
		"endpoint", policy.Prefix,
	)
	return nil
}

// Status reports the verdict for identifier under the policy covering
// endpoint without counting a request or touching the record.
func (l *Limiter) Status(ctx context.Context, identifier, endpoint string) (*models.Result, error) {
	policy, ok := l.policies.Match(endpoint)
	if !ok {
		return &models.Result{Allowed: true}, nil
	}
	now := requestcontext.Now(ctx)

	rec, err := l.store.Get(ctx, models.RecordKey(identifier, policy.Prefix))
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return allowed(policy, models.NewRecord(now, policy.Window)), nil
	case err != nil:
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "rate limit store unavailable")
	}

	if rec.IsBlocked(now) {
		return rejected(policy, rec, now), nil
	}
	if rec.WindowExpired(now) {
		rec = models.NewRecord(now, policy.Window)
	}
	return allowed(policy, rec), nil
}

// ClearFailures drops identifier's record under the policy covering
// endpoint after a successful sign-in. An active block is kept and runs
// its full duration.
func (l *Limiter) ClearFailures(ctx context.Context, identifier, endpoint string) error {
	policy, ok := l.policies.Match(endpoint)
	if !ok {
		return nil
	}
	now := requestcontext.Now(ctx)
	key := models.RecordKey(identifier, policy.Prefix)

	cleared := false
	err := l.locks.With(key, func() error {
		rec, err := l.store.Get(ctx, key)
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil
		case err != nil:
			return err
		}
		if rec.IsBlocked(now) {
			return nil
		}
		if err := l.store.Delete(ctx, key); err != nil {
			return err
		}
		cleared = true
		return nil
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "rate limit store unavailable")
	}
	if cleared {
		l.metrics.IncrementResets()
	}
	return nil
}

func (l *Limiter) blocked(ctx context.Context, identifier string, policy models.Policy, rec *models.Record) {
	l.metrics.IncrementBlocks(policy.Prefix, string(rec.BlockReason))

	action := audit.ActionRateLimited
	if rec.BlockReason == models.ReasonFailedAttempts {
		action = audit.ActionLockedOut
	}
	subject := privacy.AnonymizeFingerprint(identifier)
	l.logger.WarnContext(ctx, "rate limit block placed",
		"policy", policy.Prefix,
		"reason", rec.BlockReason,
		"fingerprint", subject,
		"blocked_until", rec.BlockedUntil,
		"request_id", requestcontext.RequestID(ctx),
	)
	l.auditor.Log(ctx, action,
		"subject", subject,
		"endpoint", policy.Prefix,
		"reason", string(rec.BlockReason),
	)
}

func allowed(policy models.Policy, rec *models.Record) *models.Result {
	return &models.Result{
		Allowed:   true,
		Matched:   true,
		Policy:    policy.Prefix,
		Limit:     policy.Max,
		Remaining: max(policy.Max-rec.Count, 0),
		Reset:     rec.ResetTime,
	}
}

func rejected(policy models.Policy, rec *models.Record, now time.Time) *models.Result {
	reason := rec.BlockReason
	if reason == models.ReasonNone {
		reason = models.ReasonQuotaExceeded
	}
	return &models.Result{
		Allowed:    false,
		Matched:    true,
		Policy:     policy.Prefix,
		Limit:      policy.Max,
		Remaining:  0,
		Reset:      *rec.BlockedUntil,
		RetryAfter: RetryAfterSeconds(*rec.BlockedUntil, now),
		Blocked:    true,
		Reason:     reason,
	}
}

// RetryAfterSeconds is ceil((until-now)/1s), never below zero.
func RetryAfterSeconds(until, now time.Time) int {
	d := until.Sub(now)
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}
