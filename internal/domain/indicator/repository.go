package indicator

import "context"

// Repository defines the interface for indicator data access
type Repository interface {
	// Upsert inserts an indicator or, when one exists for the same
	// (type, value, source), refreshes its severity, confidence, last_seen
	// and is_active. Returns the indicator ID.
	Upsert(ctx context.Context, ind *ThreatIndicator) (string, error)

	// FindActive returns active indicators matching (type, value)
	FindActive(ctx context.Context, typ Type, value string) ([]*ThreatIndicator, error)

	// List retrieves indicators with filters and pagination
	List(ctx context.Context, filter Filter, limit, offset int) ([]*ThreatIndicator, int64, error)

	// Deactivate soft-deletes an indicator
	Deactivate(ctx context.Context, id string) error
}
