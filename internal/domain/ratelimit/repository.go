package ratelimit

import (
	"context"
	"time"
)

// CounterRepository is the fixed-window counter store. Increment must be
// atomic (increment-and-read as one operation) so two racing requests cannot
// both observe the pre-increment count.
type CounterRepository interface {
	// Increment bumps the counter for (bucketKey, actorKey, windowStart) and
	// returns the post-increment count
	Increment(ctx context.Context, bucketKey, actorKey string, windowStart time.Time) (int, error)

	// Peek reads the current count without incrementing
	Peek(ctx context.Context, bucketKey, actorKey string, windowStart time.Time) (int, error)

	// PurgeBefore drops counters for windows that started before cutoff
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// ActivityRepository stores the API request log consumed by the abuse
// heuristics.
type ActivityRepository interface {
	// Insert appends one request log row
	Insert(ctx context.Context, rl *RequestLog) error

	// CountSince counts an actor's requests since the given time
	CountSince(ctx context.Context, actorKey string, since time.Time) (int, error)

	// ActivitySince returns the actor's request count and distinct endpoint
	// count since the given time
	ActivitySince(ctx context.Context, actorKey string, since time.Time) (requests int, distinctEndpoints int, err error)

	// PurgeBefore drops request log rows older than cutoff
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
