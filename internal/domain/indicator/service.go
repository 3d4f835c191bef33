package indicator

import "context"

// Feed is an external threat intelligence source. Adapters must honor the
// context deadline and return an error on network/auth failures; the service
// skips failing feeds rather than aborting a lookup.
type Feed interface {
	Name() string
	Lookup(ctx context.Context, typ Type, value string) ([]*ThreatIndicator, error)
}

// Service defines the threat intelligence lookup contract
type Service interface {
	// CheckIndicator merges active local-store records with external feed
	// results for (type, value), aggregates a risk score and recommendation,
	// and caches the outcome. Store outages fail open: the result is a clear
	// verdict, never an error.
	CheckIndicator(ctx context.Context, typ Type, value string) (*CheckResult, error)

	// AddIndicator upserts an indicator into the store and invalidates the
	// cache entry for its (type, value)
	AddIndicator(ctx context.Context, ind *ThreatIndicator) (string, error)

	// List retrieves stored indicators
	List(ctx context.Context, filter Filter, limit, offset int) ([]*ThreatIndicator, int64, error)
}
