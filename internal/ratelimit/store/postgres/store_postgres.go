package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"escrowgate/internal/ratelimit/models"
	"escrowgate/internal/sentinel"
)

// PostgresRecordStore persists records in rate_limit_records. It is pure
// I/O; window and block rules live in the limiter.
type PostgresRecordStore struct {
	db *sql.DB
}

func New(db *sql.DB) *PostgresRecordStore {
	return &PostgresRecordStore{db: db}
}

func (s *PostgresRecordStore) Get(ctx context.Context, key string) (*models.Record, error) {
	query := `
		SELECT count, reset_time, failed_attempts, blocked_until, block_reason
		FROM rate_limit_records
		WHERE key = $1
	`
	var (
		r            models.Record
		blockedUntil sql.NullTime
		reason       string
	)
	err := s.db.QueryRowContext(ctx, query, key).Scan(&r.Count, &r.ResetTime, &r.FailedAttempts, &blockedUntil, &reason)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get rate limit record: %w", err)
	}
	if blockedUntil.Valid {
		until := blockedUntil.Time
		r.BlockedUntil = &until
	}
	r.BlockReason = models.BlockReason(reason)
	return &r, nil
}

func (s *PostgresRecordStore) Set(ctx context.Context, key string, record *models.Record) error {
	if record == nil {
		return fmt.Errorf("rate limit record is required")
	}
	query := `
		INSERT INTO rate_limit_records (key, count, reset_time, failed_attempts, blocked_until, block_reason, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (key) DO UPDATE SET
			count = EXCLUDED.count,
			reset_time = EXCLUDED.reset_time,
			failed_attempts = EXCLUDED.failed_attempts,
			blocked_until = EXCLUDED.blocked_until,
			block_reason = EXCLUDED.block_reason,
			updated_at = NOW()
	`
	var blockedUntil sql.NullTime
	if record.BlockedUntil != nil {
		blockedUntil = sql.NullTime{Time: *record.BlockedUntil, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, query,
		key,
		record.Count,
		record.ResetTime,
		record.FailedAttempts,
		blockedUntil,
		string(record.BlockReason),
	)
	if err != nil {
		return fmt.Errorf("set rate limit record: %w", err)
	}
	return nil
}

func (s *PostgresRecordStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM rate_limit_records WHERE key = $1`, key); err != nil {
		return fmt.Errorf("delete rate limit record: %w", err)
	}
	return nil
}

func (s *PostgresRecordStore) DeleteExpired(ctx context.Context, cutoff, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM rate_limit_records
		WHERE reset_time < $1
		  AND (blocked_until IS NULL OR blocked_until <= $2)
	`, cutoff, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired rate limit records: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count deleted rate limit records: %w", err)
	}
	return int(n), nil
}
