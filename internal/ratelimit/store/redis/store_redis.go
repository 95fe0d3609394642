package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"escrowgate/internal/ratelimit/models"
	"escrowgate/internal/ratelimit/store"
	"escrowgate/internal/sentinel"
	"escrowgate/pkg/requestcontext"
)

const defaultKeyPrefix = "escrowgate:ratelimit:"

// RedisRecordStore keeps records as JSON strings. Each key expires grace
// after the record's window or block ends, so Redis collects stale records
// on its own and the sweep only catches stragglers.
type RedisRecordStore struct {
	client redis.UniversalClient
	prefix string
	grace  time.Duration
}

type Option func(*RedisRecordStore)

func WithKeyPrefix(prefix string) Option {
	return func(s *RedisRecordStore) {
		s.prefix = prefix
	}
}

// WithGrace sets how long a key outlives its record's expiry. Default 1h.
func WithGrace(d time.Duration) Option {
	return func(s *RedisRecordStore) {
		if d > 0 {
			s.grace = d
		}
	}
}

func New(client redis.UniversalClient, opts ...Option) *RedisRecordStore {
	s := &RedisRecordStore{client: client, prefix: defaultKeyPrefix, grace: time.Hour}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisRecordStore) Get(ctx context.Context, key string) (*models.Record, error) {
	raw, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get rate limit record: %w", err)
	}
	var r models.Record
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("decode rate limit record: %w", err)
	}
	return &r, nil
}

func (s *RedisRecordStore) Set(ctx context.Context, key string, record *models.Record) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode rate limit record: %w", err)
	}
	if err := s.client.Set(ctx, s.prefix+key, raw, s.ttl(ctx, record)).Err(); err != nil {
		return fmt.Errorf("set rate limit record: %w", err)
	}
	return nil
}

func (s *RedisRecordStore) ttl(ctx context.Context, record *models.Record) time.Duration {
	remaining := record.Expiry().Sub(requestcontext.Now(ctx))
	if remaining < 0 {
		remaining = 0
	}
	return remaining + s.grace
}

func (s *RedisRecordStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("delete rate limit record: %w", err)
	}
	return nil
}

// DeleteExpired scans the key prefix and removes sweepable records. Each
// delete runs under WATCH so a concurrent update wins over the sweep.
func (s *RedisRecordStore) DeleteExpired(ctx context.Context, cutoff, now time.Time) (int, error) {
	deleted := 0
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 200).Iterator()
	for iter.Next(ctx) {
		fullKey := iter.Val()
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			raw, err := tx.Get(ctx, fullKey).Bytes()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					return nil
				}
				return err
			}
			var r models.Record
			if err := json.Unmarshal(raw, &r); err != nil {
				return err
			}
			if !store.Sweepable(&r, cutoff, now) {
				return nil
			}
			_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
				p.Del(ctx, fullKey)
				return nil
			})
			if err == nil {
				deleted++
			}
			return err
		}, fullKey)
		if err != nil && !errors.Is(err, redis.TxFailedErr) {
			return deleted, fmt.Errorf("sweep %s: %w", fullKey, err)
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("scan rate limit records: %w", err)
	}
	return deleted, nil
}
