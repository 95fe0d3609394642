package store

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"escrowgate/internal/ratelimit/models"
	"escrowgate/internal/sentinel"
	"escrowgate/pkg/platform/circuit"
)

// FallbackObserver is told when the resilient store switches backends.
type FallbackObserver interface {
	SetFallback(active bool)
	IncrementStoreErrors(op string)
}

// Resilient sends calls to a shared primary store and, while the circuit is
// open, to a process-local fallback. An outage of the primary degrades
// limiting to per-instance state instead of rejecting every request.
type Resilient struct {
	primary  Store
	fallback Store
	breaker  *circuit.Breaker
	logger   *slog.Logger
	observer FallbackObserver
}

type ResilientOption func(*Resilient)

func WithLogger(logger *slog.Logger) ResilientOption {
	return func(r *Resilient) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func WithBreaker(b *circuit.Breaker) ResilientOption {
	return func(r *Resilient) {
		if b != nil {
			r.breaker = b
		}
	}
}

func WithObserver(o FallbackObserver) ResilientOption {
	return func(r *Resilient) {
		r.observer = o
	}
}

func NewResilient(primary, fallback Store, opts ...ResilientOption) *Resilient {
	r := &Resilient{
		primary:  primary,
		fallback: fallback,
		breaker:  circuit.New("ratelimit-store"),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Degraded reports whether calls are currently served by the fallback.
func (r *Resilient) Degraded() bool {
	return r.breaker.State() == circuit.StateOpen
}

// Get reads the primary. A record the fallback took while the primary was
// unreachable is merged into the primary's copy, keeping the stricter
// state, and handed back to the primary.
func (r *Resilient) Get(ctx context.Context, key string) (*models.Record, error) {
	if !r.breaker.Allow() {
		return r.fallback.Get(ctx, key)
	}
	rec, err := r.primary.Get(ctx, key)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		r.failure(ctx, "get", err)
		return r.fallback.Get(ctx, key)
	}
	r.success(ctx)

	held, fbErr := r.fallback.Get(ctx, key)
	if fbErr != nil {
		return rec, err
	}
	merged := models.Stricter(rec, held)
	if setErr := r.primary.Set(ctx, key, merged); setErr != nil {
		r.failure(ctx, "set", setErr)
		return merged, nil
	}
	_ = r.fallback.Delete(ctx, key)
	r.logger.DebugContext(ctx, "fallback record handed back to primary", "key", key)
	return merged, nil
}

func (r *Resilient) Set(ctx context.Context, key string, record *models.Record) error {
	if !r.breaker.Allow() {
		return r.fallback.Set(ctx, key, record)
	}
	if err := r.primary.Set(ctx, key, record); err != nil {
		r.failure(ctx, "set", err)
		return r.fallback.Set(ctx, key, record)
	}
	r.success(ctx)
	return nil
}

// Delete removes the key from both backends so a reset made while degraded
// is not undone when the primary comes back.
func (r *Resilient) Delete(ctx context.Context, key string) error {
	fbErr := r.fallback.Delete(ctx, key)
	if !r.breaker.Allow() {
		return fbErr
	}
	if err := r.primary.Delete(ctx, key); err != nil {
		r.failure(ctx, "delete", err)
		return fbErr
	}
	r.success(ctx)
	return fbErr
}

func (r *Resilient) DeleteExpired(ctx context.Context, cutoff, now time.Time) (int, error) {
	deleted, err := r.fallback.DeleteExpired(ctx, cutoff, now)
	if err != nil {
		return deleted, err
	}
	if !r.breaker.Allow() {
		return deleted, nil
	}
	n, err := r.primary.DeleteExpired(ctx, cutoff, now)
	if err != nil {
		r.failure(ctx, "delete_expired", err)
		return deleted, nil
	}
	r.success(ctx)
	return deleted + n, nil
}

func (r *Resilient) failure(ctx context.Context, op string, err error) {
	if r.observer != nil {
		r.observer.IncrementStoreErrors(op)
	}
	if r.breaker.RecordFailure() == circuit.Opened {
		r.logger.WarnContext(ctx, "rate limit store degraded to in-memory fallback",
			"breaker", r.breaker.Name(),
			"op", op,
			"error", err,
		)
		if r.observer != nil {
			r.observer.SetFallback(true)
		}
		return
	}
	r.logger.DebugContext(ctx, "rate limit store call failed", "op", op, "error", err)
}

func (r *Resilient) success(ctx context.Context) {
	if r.breaker.RecordSuccess() == circuit.Closed {
		r.logger.InfoContext(ctx, "rate limit store recovered", "breaker", r.breaker.Name())
		if r.observer != nil {
			r.observer.SetFallback(false)
		}
	}
}
