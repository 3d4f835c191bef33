package event

import (
	"context"
	"time"
)

// Repository defines the interface for security event data access
type Repository interface {
	// Insert appends an event
	Insert(ctx context.Context, ev *SecurityEvent) error

	// GetByID retrieves an event by ID
	GetByID(ctx context.Context, id string) (*SecurityEvent, error)

	// List retrieves events with filters and pagination, newest first
	List(ctx context.Context, filter Filter, limit, offset int) ([]*SecurityEvent, int64, error)

	// CountMatching counts events a rule would match since the given time
	CountMatching(ctx context.Context, rule *AlertRule, since time.Time) (int, error)

	// Resolve marks an event resolved. Resolving twice is a no-op.
	Resolve(ctx context.Context, id, resolvedBy string, at time.Time) error

	// CountBySeverity returns event counts grouped by severity
	CountBySeverity(ctx context.Context, resolved *bool) (map[string]int, error)

	// PurgeResolvedBefore deletes resolved events older than cutoff
	PurgeResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// RuleRepository persists alert rules so they survive restarts and are
// consistent across instances.
type RuleRepository interface {
	Create(ctx context.Context, r *AlertRule) (string, error)
	GetByID(ctx context.Context, id string) (*AlertRule, error)
	Update(ctx context.Context, r *AlertRule) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*AlertRule, error)
	ListActive(ctx context.Context) ([]*AlertRule, error)

	// MarkFired records the rule's last firing time
	MarkFired(ctx context.Context, id string, at time.Time) error

	// Count returns how many rules exist (used to decide whether to seed)
	Count(ctx context.Context) (int64, error)
}
