package link

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"escrowgate/internal/sentinel"
	"escrowgate/pkg/requestcontext"
)

// MemoryUsedTokens keeps consumed token IDs until their token would have
// expired anyway.
type MemoryUsedTokens struct {
	mu   sync.Mutex
	used map[string]time.Time
}

func NewMemoryUsedTokens() *MemoryUsedTokens {
	return &MemoryUsedTokens{used: make(map[string]time.Time)}
}

func (m *MemoryUsedTokens) MarkUsed(ctx context.Context, jti string, expiresAt time.Time) error {
	now := requestcontext.Now(ctx)
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, exp := range m.used {
		if !now.Before(exp) {
			delete(m.used, id)
		}
	}
	if _, ok := m.used[jti]; ok {
		return sentinel.ErrAlreadyUsed
	}
	m.used[jti] = expiresAt
	return nil
}

const defaultUsedTokenPrefix = "escrowgate:link:used:"

// RedisUsedTokens shares consumed token IDs across instances with SETNX.
type RedisUsedTokens struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisUsedTokens(client redis.UniversalClient) *RedisUsedTokens {
	return &RedisUsedTokens{client: client, prefix: defaultUsedTokenPrefix}
}

func (r *RedisUsedTokens) MarkUsed(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := max(expiresAt.Sub(requestcontext.Now(ctx)), time.Second)
	ok, err := r.client.SetNX(ctx, r.prefix+jti, 1, ttl).Result()
	if err != nil {
		return fmt.Errorf("%w: mark link used: %w", sentinel.ErrUnavailable, err)
	}
	if !ok {
		return sentinel.ErrAlreadyUsed
	}
	return nil
}
