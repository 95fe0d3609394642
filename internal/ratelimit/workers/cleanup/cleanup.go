package cleanup

import (
	"context"
	"log/slog"
	"time"

	"escrowgate/internal/ratelimit/metrics"
)

// Result summarizes one sweep.
type Result struct {
	Deleted  int
	Cutoff   time.Time
	Duration time.Duration
}

// RecordStore is the subset of the record store the sweeper needs.
type RecordStore interface {
	DeleteExpired(ctx context.Context, cutoff, now time.Time) (int, error)
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithInterval sets the time between sweeps. Default 5m.
func WithInterval(interval time.Duration) Option {
	return func(s *Service) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

// WithGrace sets how long after its window ends a record is kept. Default 1h.
func WithGrace(grace time.Duration) Option {
	return func(s *Service) {
		if grace > 0 {
			s.grace = grace
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Service periodically removes records whose window ended more than the
// grace period ago and that are not blocked.
type Service struct {
	store    RecordStore
	logger   *slog.Logger
	interval time.Duration
	grace    time.Duration
	metrics  *metrics.Metrics
	now      func() time.Time
}

func New(store RecordStore, opts ...Option) *Service {
	s := &Service{
		store:    store,
		logger:   slog.Default(),
		interval: 5 * time.Minute,
		grace:    time.Hour,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start sweeps every interval until ctx is cancelled. A failed sweep is
// logged and retried on the next tick.
func (s *Service) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("rate limit cleanup worker started",
		"interval", s.interval.String(),
		"grace", s.grace.String(),
	)
	for {
		select {
		case <-ticker.C:
			res, err := s.RunOnce(ctx)
			if err != nil {
				s.logger.Error("ratelimit_cleanup_failed", "error", err)
				continue
			}
			s.logger.Info("ratelimit_cleanup_completed",
				"records_deleted", res.Deleted,
				"duration_ms", res.Duration.Milliseconds(),
			)
		case <-ctx.Done():
			s.logger.Info("rate limit cleanup worker stopping", "reason", ctx.Err())
			return ctx.Err()
		}
	}
}

// RunOnce performs a single sweep and records its metrics.
func (s *Service) RunOnce(ctx context.Context) (*Result, error) {
	start := time.Now()
	now := s.now()
	cutoff := now.Add(-s.grace)

	deleted, err := s.store.DeleteExpired(ctx, cutoff, now)
	duration := time.Since(start)
	if s.metrics != nil {
		s.metrics.CleanupDurationSec.Observe(duration.Seconds())
	}
	if err != nil {
		if s.metrics != nil {
			s.metrics.CleanupRunsTotal.WithLabelValues("error").Inc()
		}
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.CleanupRunsTotal.WithLabelValues("success").Inc()
		s.metrics.CleanupDeleted.Add(float64(deleted))
	}
	return &Result{Deleted: deleted, Cutoff: cutoff, Duration: duration}, nil
}
