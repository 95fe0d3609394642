// Package store defines the record store the limiter reads and writes, and
// a circuit-broken wrapper that falls back to process memory.
package store

import (
	"context"
	"time"

	"escrowgate/internal/ratelimit/models"
)

//go:generate mockgen -source=store.go -destination=mocks/store_mock.go -package=mocks Store

// Store persists rate limit records by key. Get returns sentinel.ErrNotFound
// for unknown keys. Implementations are safe for concurrent use; callers
// serialize read-modify-write sequences per key.
type Store interface {
	Get(ctx context.Context, key string) (*models.Record, error)
	Set(ctx context.Context, key string, record *models.Record) error
	Delete(ctx context.Context, key string) error
	// DeleteExpired removes records whose window ended before cutoff and
	// that are not blocked at now. It returns the number removed.
	DeleteExpired(ctx context.Context, cutoff, now time.Time) (int, error)
}

// Sweepable reports whether a record may be garbage collected.
func Sweepable(r *models.Record, cutoff, now time.Time) bool {
	return r.ResetTime.Before(cutoff) && !r.IsBlocked(now)
}
