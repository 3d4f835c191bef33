package event

import "context"

// Notifier is the fire-and-forget action surface owned by the surrounding
// application. Implementations are expected to be idempotent.
type Notifier interface {
	NotifyAdmin(ctx context.Context, ev *SecurityEvent) error
	CreateIncident(ctx context.Context, ev *SecurityEvent) error
	BlockIP(ctx context.Context, ip string) error
	DisableUser(ctx context.Context, userID int64) error
}

// RecentFilter narrows ring-buffer reads
type RecentFilter struct {
	EventType string
	Severity  Severity
	Limit     int
}

// Bus is the event pipeline contract: publish, buffer, evaluate rules, fire
// actions.
type Bus interface {
	// Publish buffers the event, persists it, and evaluates alert rules.
	// Persistence failures are logged, never propagated; rule failures are
	// isolated per rule.
	Publish(ctx context.Context, ev *SecurityEvent) (string, error)

	// Recent reads the in-memory ring buffer, newest first
	Recent(filter RecentFilter) []*SecurityEvent

	// List reads persisted events
	List(ctx context.Context, filter Filter, limit, offset int) ([]*SecurityEvent, int64, error)

	// Resolve closes an event
	Resolve(ctx context.Context, id, resolvedBy string) error

	// Summary returns unresolved event counts by severity
	Summary(ctx context.Context) (map[string]int, error)
}
