package audit

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"escrowgate/pkg/requestcontext"
)

type captureEmitter struct {
	events []Event
	err    error
}

func (c *captureEmitter) Emit(_ context.Context, e Event) error {
	c.events = append(c.events, e)
	return c.err
}

func TestLoggerLiftsKnownAttributes(t *testing.T) {
	var buf bytes.Buffer
	emitter := &captureEmitter{}
	l := NewLogger(slog.New(slog.NewJSONHandler(&buf, nil)), emitter)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithRequestID(requestcontext.WithTime(context.Background(), now), "req-9")
	l.Log(ctx, ActionLockedOut, "subject", "10.0.0.0-abc", "endpoint", "/api/auth/login", "reason", "failure_threshold", "attempts", 3)

	require.Len(t, emitter.events, 1)
	e := emitter.events[0]
	assert.Equal(t, "locked_out", e.Action)
	assert.Equal(t, "10.0.0.0-abc", e.Subject)
	assert.Equal(t, "/api/auth/login", e.Endpoint)
	assert.Equal(t, "failure_threshold", e.Reason)
	assert.Equal(t, "req-9", e.RequestID)
	assert.Equal(t, now, e.Timestamp)

	assert.Contains(t, buf.String(), `"log_type":"audit"`)
	assert.Contains(t, buf.String(), `"request_id":"req-9"`)
}

func TestLoggerReportsEmitFailure(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(slog.New(slog.NewJSONHandler(&buf, nil)), &captureEmitter{err: errors.New("kafka down")})

	l.Log(context.Background(), ActionLimitReset)
	assert.Contains(t, buf.String(), "failed to emit audit event")
}

func TestNilLoggerIsNoop(t *testing.T) {
	var l *Logger
	assert.NotPanics(t, func() { l.Log(context.Background(), ActionSignInFailed) })
}
