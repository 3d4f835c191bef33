package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/argussec/argus/internal/domain/ratelimit"
	"github.com/argussec/argus/internal/pkg/errors"
)

type CounterRepository struct {
	db *sql.DB
}

func NewCounterRepository(db *sql.DB) ratelimit.CounterRepository {
	return &CounterRepository{db: db}
}

func (r *CounterRepository) Increment(ctx context.Context, bucketKey, actorKey string, windowStart time.Time) (int, error) {
	// Single statement so two racing requests cannot both read the
	// pre-increment count
	query := `
		INSERT INTO rate_limit_counters (bucket_key, actor_key, window_start, count)
		VALUES (?, ?, ?, 1)
		ON CONFLICT (bucket_key, actor_key, window_start)
		DO UPDATE SET count = rate_limit_counters.count + 1
		RETURNING count
	`

	var count int
	err := r.db.QueryRowContext(ctx, query, bucketKey, actorKey, windowStart.Format(time.RFC3339)).Scan(&count)
	if err != nil {
		return 0, errors.StoreUnavailable("Failed to increment counter", err)
	}
	return count, nil
}

func (r *CounterRepository) Peek(ctx context.Context, bucketKey, actorKey string, windowStart time.Time) (int, error) {
	query := `
		SELECT count FROM rate_limit_counters
		WHERE bucket_key = ? AND actor_key = ? AND window_start = ?
	`

	var count int
	err := r.db.QueryRowContext(ctx, query, bucketKey, actorKey, windowStart.Format(time.RFC3339)).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, errors.StoreUnavailable("Failed to read counter", err)
	}
	return count, nil
}

func (r *CounterRepository) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM rate_limit_counters WHERE window_start < ?", cutoff.Format(time.RFC3339))
	if err != nil {
		return 0, errors.StoreUnavailable("Failed to purge counters", err)
	}
	return result.RowsAffected()
}

type ActivityRepository struct {
	db *sql.DB
}

func NewActivityRepository(db *sql.DB) ratelimit.ActivityRepository {
	return &ActivityRepository{db: db}
}

func (r *ActivityRepository) Insert(ctx context.Context, rl *ratelimit.RequestLog) error {
	query := `
		INSERT INTO api_request_logs
			(actor_key, endpoint, method, status_code, response_time_ms, risk_score,
			 is_suspicious, user_agent, ip_address, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		rl.ActorKey, rl.Endpoint, rl.Method, rl.StatusCode, rl.ResponseTimeMs,
		rl.RiskScore, rl.IsSuspicious, rl.UserAgent, rl.IPAddress,
		rl.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return errors.StoreUnavailable("Failed to insert request log", err)
	}
	return nil
}

func (r *ActivityRepository) CountSince(ctx context.Context, actorKey string, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM api_request_logs WHERE actor_key = ? AND created_at >= ?",
		actorKey, since.Format(time.RFC3339)).Scan(&count)
	if err != nil {
		return 0, errors.StoreUnavailable("Failed to count requests", err)
	}
	return count, nil
}

func (r *ActivityRepository) ActivitySince(ctx context.Context, actorKey string, since time.Time) (int, int, error) {
	query := `
		SELECT COUNT(*), COUNT(DISTINCT endpoint)
		FROM api_request_logs
		WHERE actor_key = ? AND created_at >= ?
	`

	var requests, distinctEndpoints int
	err := r.db.QueryRowContext(ctx, query, actorKey, since.Format(time.RFC3339)).Scan(&requests, &distinctEndpoints)
	if err != nil {
		return 0, 0, errors.StoreUnavailable("Failed to read request activity", err)
	}
	return requests, distinctEndpoints, nil
}

func (r *ActivityRepository) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM api_request_logs WHERE created_at < ?", cutoff.Format(time.RFC3339))
	if err != nil {
		return 0, errors.StoreUnavailable("Failed to purge request logs", err)
	}
	return result.RowsAffected()
}
