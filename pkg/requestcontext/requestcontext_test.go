package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNow_FallbackToRealTime(t *testing.T) {
	before := time.Now()
	result := Now(context.Background())
	after := time.Now()

	assert.False(t, result.Before(before))
	assert.False(t, result.After(after))
}

func TestWithTime_OverridesExistingTime(t *testing.T) {
	original := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	pinned := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

	ctx := WithTime(context.Background(), original)
	ctx = WithTime(ctx, pinned)

	assert.Equal(t, pinned, Now(ctx))
}

func TestClientValues(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, RequestID(ctx))
	assert.Empty(t, ClientIP(ctx))
	assert.Empty(t, Fingerprint(ctx))

	ctx = WithRequestID(ctx, "req-1")
	ctx = WithClientMetadata(ctx, "203.0.113.7", "curl/8.0")
	ctx = WithFingerprint(ctx, "203.0.113.7-abc")

	assert.Equal(t, "req-1", RequestID(ctx))
	assert.Equal(t, "203.0.113.7", ClientIP(ctx))
	assert.Equal(t, "curl/8.0", UserAgent(ctx))
	assert.Equal(t, "203.0.113.7-abc", Fingerprint(ctx))
}
