package store_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"escrowgate/internal/ratelimit/models"
	"escrowgate/internal/ratelimit/store"
	"escrowgate/internal/ratelimit/store/memory"
	"escrowgate/internal/sentinel"
	"escrowgate/pkg/platform/circuit"
)

// flakyStore wraps a memory store and fails every call while down is set.
type flakyStore struct {
	*memory.InMemoryRecordStore
	down bool
}

var errDown = errors.New("connection refused")

func (f *flakyStore) Get(ctx context.Context, key string) (*models.Record, error) {
	if f.down {
		return nil, errDown
	}
	return f.InMemoryRecordStore.Get(ctx, key)
}

func (f *flakyStore) Set(ctx context.Context, key string, r *models.Record) error {
	if f.down {
		return errDown
	}
	return f.InMemoryRecordStore.Set(ctx, key, r)
}

func (f *flakyStore) Delete(ctx context.Context, key string) error {
	if f.down {
		return errDown
	}
	return f.InMemoryRecordStore.Delete(ctx, key)
}

type observer struct {
	fallback bool
	errors   int
}

func (o *observer) SetFallback(active bool)     { o.fallback = active }
func (o *observer) IncrementStoreErrors(string) { o.errors++ }

type ResilientSuite struct {
	suite.Suite
	primary  *flakyStore
	fallback *memory.InMemoryRecordStore
	observer *observer
	store    *store.Resilient
	ctx      context.Context
	now      time.Time
}

func TestResilientSuite(t *testing.T) {
	suite.Run(t, new(ResilientSuite))
}

func (s *ResilientSuite) SetupTest() {
	s.primary = &flakyStore{InMemoryRecordStore: memory.New()}
	s.fallback = memory.New()
	s.observer = &observer{}
	s.store = store.NewResilient(s.primary, s.fallback,
		store.WithBreaker(circuit.New("test", circuit.WithFailureThreshold(2), circuit.WithSuccessThreshold(1), circuit.WithProbeInterval(0))),
		store.WithObserver(s.observer),
		store.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	s.ctx = context.Background()
	s.now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
}

func (s *ResilientSuite) TestHealthyPrimaryIsUsed() {
	s.Require().NoError(s.store.Set(s.ctx, "k", models.NewRecord(s.now, time.Minute)))
	s.Equal(1, s.primary.Len())
	s.Equal(0, s.fallback.Len())

	_, err := s.store.Get(s.ctx, "missing")
	s.ErrorIs(err, sentinel.ErrNotFound, "not found is not a failure")
	s.False(s.store.Degraded())
}

func (s *ResilientSuite) TestFailuresFallBackAndOpen() {
	s.primary.down = true

	s.Require().NoError(s.store.Set(s.ctx, "k", models.NewRecord(s.now, time.Minute)))
	s.Equal(1, s.fallback.Len(), "a failed write lands in the fallback")
	s.False(s.store.Degraded())

	_, err := s.store.Get(s.ctx, "k")
	s.NoError(err)
	s.True(s.store.Degraded())
	s.True(s.observer.fallback)
	s.Equal(2, s.observer.errors)
}

func (s *ResilientSuite) TestRecoveryClosesCircuit() {
	s.primary.down = true
	_ = s.store.Set(s.ctx, "a", models.NewRecord(s.now, time.Minute))
	_ = s.store.Set(s.ctx, "b", models.NewRecord(s.now, time.Minute))
	s.Require().True(s.store.Degraded())

	s.primary.down = false
	s.Require().NoError(s.store.Set(s.ctx, "c", models.NewRecord(s.now, time.Minute)))
	s.False(s.store.Degraded())
	s.False(s.observer.fallback)
}

func (s *ResilientSuite) TestDeleteClearsBothBackends() {
	r := models.NewRecord(s.now, time.Minute)
	s.Require().NoError(s.primary.InMemoryRecordStore.Set(s.ctx, "k", r))
	s.Require().NoError(s.fallback.Set(s.ctx, "k", r))

	s.Require().NoError(s.store.Delete(s.ctx, "k"))
	s.Equal(0, s.primary.Len())
	s.Equal(0, s.fallback.Len())
}

func (s *ResilientSuite) TestDeleteExpiredSumsBackends() {
	stale := models.NewRecord(s.now.Add(-3*time.Hour), time.Minute)
	s.Require().NoError(s.primary.InMemoryRecordStore.Set(s.ctx, "a", stale))
	s.Require().NoError(s.fallback.Set(s.ctx, "b", stale))

	n, err := s.store.DeleteExpired(s.ctx, s.now.Add(-time.Hour), s.now)
	s.Require().NoError(err)
	s.Equal(2, n)
}

func (s *ResilientSuite) TestBlockPlacedWhileDegradedSurvivesRecovery() {
	stale := models.NewRecord(s.now, 15*time.Minute)
	stale.Count = 2
	s.Require().NoError(s.primary.InMemoryRecordStore.Set(s.ctx, "k", stale))

	s.primary.down = true
	blocked := models.NewRecord(s.now, 15*time.Minute)
	blocked.FailedAttempts = 3
	blocked.Block(s.now.Add(30*time.Minute), models.ReasonFailedAttempts)
	s.Require().NoError(s.store.Set(s.ctx, "k", blocked))
	_, _ = s.store.Get(s.ctx, "k")
	s.Require().True(s.store.Degraded())

	s.primary.down = false
	rec, err := s.store.Get(s.ctx, "k")
	s.Require().NoError(err)
	s.False(s.store.Degraded())
	s.Require().NotNil(rec.BlockedUntil)
	s.Equal(s.now.Add(30*time.Minute), *rec.BlockedUntil)
	s.Equal(models.ReasonFailedAttempts, rec.BlockReason)
	s.Equal(2, rec.Count, "the shared count is kept")

	onPrimary, err := s.primary.InMemoryRecordStore.Get(s.ctx, "k")
	s.Require().NoError(err)
	s.Require().NotNil(onPrimary.BlockedUntil, "the block is handed back to the primary")
	s.Equal(0, s.fallback.Len())

	again, err := s.store.Get(s.ctx, "k")
	s.Require().NoError(err)
	s.Require().NotNil(again.BlockedUntil)
}

func (s *ResilientSuite) TestRecordOnlyInFallbackIsReturnedAfterRecovery() {
	s.primary.down = true
	r := models.NewRecord(s.now, time.Minute)
	r.Count = 5
	s.Require().NoError(s.store.Set(s.ctx, "k", r))

	s.primary.down = false
	rec, err := s.store.Get(s.ctx, "k")
	s.Require().NoError(err)
	s.Equal(5, rec.Count)
	s.Equal(1, s.primary.Len())
}
