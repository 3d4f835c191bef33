package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "argus",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "argus",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// Threat intelligence metrics
	threatLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "argus",
			Subsystem: "threat",
			Name:      "lookups_total",
			Help:      "Total number of threat indicator lookups",
		},
		[]string{"type", "outcome"},
	)

	threatCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "argus",
			Subsystem: "threat",
			Name:      "cache_hits_total",
			Help:      "Threat check results served from the TTL cache",
		},
	)

	feedErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "argus",
			Subsystem: "threat",
			Name:      "feed_errors_total",
			Help:      "External threat feed lookup failures",
		},
		[]string{"feed"},
	)

	// Rate limiting metrics
	rateLimitChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "argus",
			Subsystem: "ratelimit",
			Name:      "checks_total",
			Help:      "Total number of rate limit checks",
		},
		[]string{"endpoint_class", "outcome"},
	)

	abuseDetectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "argus",
			Subsystem: "ratelimit",
			Name:      "abuse_detections_total",
			Help:      "Abusive request patterns detected",
		},
		[]string{"reason"},
	)

	// Session metrics
	sessionsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "argus",
			Subsystem: "session",
			Name:      "created_total",
			Help:      "Sessions created",
		},
	)

	sessionsEnded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "argus",
			Subsystem: "session",
			Name:      "ended_total",
			Help:      "Sessions ended, by terminal state",
		},
		[]string{"reason"},
	)

	// Event pipeline metrics
	eventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "argus",
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Security events published",
		},
		[]string{"type", "severity"},
	)

	alertRulesFired = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "argus",
			Subsystem: "events",
			Name:      "rules_fired_total",
			Help:      "Alert rules whose threshold was crossed",
		},
		[]string{"rule"},
	)
)

// RecordThreatLookup records a threat check and its outcome (hit, clear, error)
func RecordThreatLookup(indicatorType, outcome string) {
	threatLookupsTotal.WithLabelValues(indicatorType, outcome).Inc()
}

// RecordThreatCacheHit records a cache-served threat check
func RecordThreatCacheHit() {
	threatCacheHits.Inc()
}

// RecordFeedError records an external feed failure
func RecordFeedError(feed string) {
	feedErrorsTotal.WithLabelValues(feed).Inc()
}

// RecordRateLimitCheck records a rate limit decision (allowed, denied, error)
func RecordRateLimitCheck(endpointClass, outcome string) {
	rateLimitChecksTotal.WithLabelValues(endpointClass, outcome).Inc()
}

// RecordAbuseDetection records a detected abuse pattern
func RecordAbuseDetection(reason string) {
	abuseDetectionsTotal.WithLabelValues(reason).Inc()
}

// RecordSessionCreated records a created session
func RecordSessionCreated() {
	sessionsCreated.Inc()
}

// RecordSessionEnded records a session reaching a terminal state
func RecordSessionEnded(reason string) {
	sessionsEnded.WithLabelValues(reason).Inc()
}

// RecordEventPublished records a published security event
func RecordEventPublished(eventType, severity string) {
	eventsPublished.WithLabelValues(eventType, severity).Inc()
}

// RecordRuleFired records an alert rule firing
func RecordRuleFired(rule string) {
	alertRulesFired.WithLabelValues(rule).Inc()
}

// Handler returns the Prometheus scrape handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// statusRecorder captures the response status for metrics
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware instruments HTTP requests with count and duration metrics.
// The route pattern (not the raw path) is used to keep cardinality bounded.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}

		status := strconv.Itoa(rec.status)
		httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
	})
}
