package cleanup

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"escrowgate/internal/ratelimit/metrics"
	"escrowgate/internal/ratelimit/models"
	"escrowgate/internal/ratelimit/store/memory"
	tu "escrowgate/pkg/testutil"
)

type recordingStore struct {
	mu      sync.Mutex
	calls   int
	cutoffs []time.Time
	deleted int
	err     error
}

func (r *recordingStore) DeleteExpired(_ context.Context, cutoff, _ time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.cutoffs = append(r.cutoffs, cutoff)
	return r.deleted, r.err
}

func (r *recordingStore) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type CleanupSuite struct {
	suite.Suite
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func TestCleanupSuite(t *testing.T) {
	suite.Run(t, new(CleanupSuite))
}

func (s *CleanupSuite) SetupTest() {
	s.logger = slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	s.metrics = metrics.NewWith(prometheus.NewRegistry())
}

func (s *CleanupSuite) TestRunOnceUsesGraceCutoff() {
	st := &recordingStore{deleted: 4}
	svc := New(st, WithGrace(time.Hour), WithClock(func() time.Time { return tu.Epoch }), WithMetrics(s.metrics))

	res, err := svc.RunOnce(context.Background())
	s.Require().NoError(err)
	s.Equal(4, res.Deleted)
	s.Equal(tu.Epoch.Add(-time.Hour), res.Cutoff)
	s.InDelta(4, testutil.ToFloat64(s.metrics.CleanupDeleted), 0)
	s.InDelta(1, testutil.ToFloat64(s.metrics.CleanupRunsTotal.WithLabelValues("success")), 0)
}

func (s *CleanupSuite) TestRunOncePropagatesErrors() {
	st := &recordingStore{err: errors.New("db down")}
	svc := New(st, WithMetrics(s.metrics))

	_, err := svc.RunOnce(context.Background())
	s.Error(err)
	s.InDelta(1, testutil.ToFloat64(s.metrics.CleanupRunsTotal.WithLabelValues("error")), 0)
}

func (s *CleanupSuite) TestRunOnceAgainstMemoryStore() {
	st := memory.New()
	ctx := context.Background()
	s.Require().NoError(st.Set(ctx, "stale", models.NewRecord(tu.Epoch.Add(-2*time.Hour), time.Minute)))
	s.Require().NoError(st.Set(ctx, "recent", models.NewRecord(tu.Epoch.Add(-30*time.Minute), time.Minute)))

	svc := New(st, WithClock(func() time.Time { return tu.Epoch }))
	res, err := svc.RunOnce(ctx)
	s.Require().NoError(err)
	s.Equal(1, res.Deleted)
	s.Equal(1, st.Len())
}

func (s *CleanupSuite) TestStartSweepsUntilCancelled() {
	st := &recordingStore{}
	svc := New(st, WithInterval(5*time.Millisecond), WithLogger(s.logger))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Start(ctx) }()

	s.Eventually(func() bool { return st.callCount() >= 2 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		s.ErrorIs(err, context.Canceled)
	case <-time.After(time.Second):
		s.Fail("worker did not stop")
	}
}

func (s *CleanupSuite) TestStartSurvivesFailedSweeps() {
	st := &recordingStore{err: errors.New("transient")}
	svc := New(st, WithInterval(5*time.Millisecond), WithLogger(s.logger))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = svc.Start(ctx) }()

	s.Eventually(func() bool { return st.callCount() >= 3 }, time.Second, time.Millisecond)
}
