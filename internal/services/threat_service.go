package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/argussec/argus/internal/domain/event"
	"github.com/argussec/argus/internal/domain/indicator"
	"github.com/argussec/argus/internal/pkg/clock"
	"github.com/argussec/argus/internal/pkg/errors"
	"github.com/argussec/argus/internal/pkg/logger"
	"github.com/argussec/argus/internal/pkg/metrics"
	"github.com/google/uuid"
)

// ThreatService implements indicator.Service: local store plus external feed
// lookups behind a per-process TTL cache. The cache is best-effort
// acceleration only; correctness holds with a cold cache.
type ThreatService struct {
	repo        indicator.Repository
	feeds       []indicator.Feed
	bus         event.Bus
	clock       clock.Clock
	logger      *logger.Logger
	cacheTTL    time.Duration
	feedTimeout time.Duration

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	result    *indicator.CheckResult
	expiresAt time.Time
}

// ThreatServiceOptions tunes the threat service
type ThreatServiceOptions struct {
	CacheTTL    time.Duration
	FeedTimeout time.Duration
}

// NewThreatService creates a new threat intelligence service
func NewThreatService(repo indicator.Repository, feeds []indicator.Feed, bus event.Bus, clk clock.Clock, log *logger.Logger, opts ThreatServiceOptions) *ThreatService {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 6 * time.Hour
	}
	if opts.FeedTimeout <= 0 {
		opts.FeedTimeout = 10 * time.Second
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &ThreatService{
		repo:        repo,
		feeds:       feeds,
		bus:         bus,
		clock:       clk,
		logger:      log,
		cacheTTL:    opts.CacheTTL,
		feedTimeout: opts.FeedTimeout,
		cache:       make(map[string]cacheEntry),
	}
}

func cacheKey(typ indicator.Type, value string) string {
	return string(typ) + ":" + value
}

// CheckIndicator looks up (type, value) against the local store and all
// configured feeds. Store outages fail open; failing feeds are skipped.
func (s *ThreatService) CheckIndicator(ctx context.Context, typ indicator.Type, value string) (*indicator.CheckResult, error) {
	if !typ.IsValid() {
		return nil, errors.BadRequest("unknown indicator type")
	}

	now := s.clock.Now()
	key := cacheKey(typ, value)

	if cached, ok := s.cacheGet(key, now); ok {
		metrics.RecordThreatCacheHit()
		return cached, nil
	}

	local, err := s.repo.FindActive(ctx, typ, value)
	if err != nil {
		// Fail open: an infrastructure outage must not block all traffic.
		s.logger.WithFields(map[string]interface{}{
			"type":  typ,
			"value": value,
		}).ErrorWithErr(err, "Indicator store unreachable, failing open")
		metrics.RecordThreatLookup(string(typ), "error")
		return &indicator.CheckResult{
			IsThreat:       false,
			Indicators:     []*indicator.ThreatIndicator{},
			RiskScore:      0,
			Recommendation: indicator.RecommendationClear,
			Sources:        []string{},
			CheckedAt:      now,
		}, nil
	}

	merged := append([]*indicator.ThreatIndicator{}, local...)
	merged = append(merged, s.queryFeeds(ctx, typ, value)...)

	result := s.aggregate(merged, now)
	s.cachePut(key, result, now)

	if result.IsThreat {
		metrics.RecordThreatLookup(string(typ), "hit")
	} else {
		metrics.RecordThreatLookup(string(typ), "clear")
	}

	if result.RiskScore >= 60 && s.bus != nil {
		s.publishThreatEvent(ctx, typ, value, result)
	}

	return result, nil
}

// queryFeeds fans out to all feeds concurrently; each call is bounded by the
// feed timeout and failures degrade to partial results.
func (s *ThreatService) queryFeeds(ctx context.Context, typ indicator.Type, value string) []*indicator.ThreatIndicator {
	if len(s.feeds) == 0 {
		return nil
	}

	type feedResult struct {
		name       string
		indicators []*indicator.ThreatIndicator
		err        error
	}

	results := make(chan feedResult, len(s.feeds))
	for _, feed := range s.feeds {
		go func(f indicator.Feed) {
			fctx, cancel := context.WithTimeout(ctx, s.feedTimeout)
			defer cancel()
			inds, err := f.Lookup(fctx, typ, value)
			results <- feedResult{name: f.Name(), indicators: inds, err: err}
		}(feed)
	}

	var merged []*indicator.ThreatIndicator
	for range s.feeds {
		res := <-results
		if res.err != nil {
			s.logger.WithFields(map[string]interface{}{
				"feed": res.name,
			}).ErrorWithErr(res.err, "Threat feed lookup failed, skipping")
			metrics.RecordFeedError(res.name)
			continue
		}
		merged = append(merged, res.indicators...)
	}
	return merged
}

// aggregate computes the max per-indicator score. A single high-confidence
// critical indicator must dominate, so scores are never averaged.
func (s *ThreatService) aggregate(inds []*indicator.ThreatIndicator, now time.Time) *indicator.CheckResult {
	var riskScore float64
	sources := make(map[string]struct{})
	for _, ind := range inds {
		if score := ind.Score(now); score > riskScore {
			riskScore = score
		}
		if ind.Source != "" {
			sources[ind.Source] = struct{}{}
		}
	}
	if riskScore > 100 {
		riskScore = 100
	}

	sourceList := make([]string, 0, len(sources))
	for src := range sources {
		sourceList = append(sourceList, src)
	}
	sort.Strings(sourceList)

	if inds == nil {
		inds = []*indicator.ThreatIndicator{}
	}
	return &indicator.CheckResult{
		IsThreat:       len(inds) > 0,
		Indicators:     inds,
		RiskScore:      riskScore,
		Recommendation: indicator.RecommendationFor(riskScore, len(inds)),
		Sources:        sourceList,
		CheckedAt:      now,
	}
}

func (s *ThreatService) publishThreatEvent(ctx context.Context, typ indicator.Type, value string, result *indicator.CheckResult) {
	severity := event.SeverityHigh
	if result.RiskScore >= 80 {
		severity = event.SeverityCritical
	}
	_, err := s.bus.Publish(ctx, &event.SecurityEvent{
		EventType:   event.TypeThreatDetected,
		Severity:    severity,
		Source:      "threat_intelligence",
		Title:       "Threat indicator matched",
		Description: "A lookup matched one or more active threat indicators",
		Metadata: map[string]interface{}{
			"indicator_type": string(typ),
			"value":          value,
			"risk_score":     result.RiskScore,
			"recommendation": result.Recommendation,
		},
	})
	if err != nil {
		s.logger.ErrorWithErr(err, "Failed to publish threat event")
	}
}

// AddIndicator upserts an indicator by (type, value, source)
func (s *ThreatService) AddIndicator(ctx context.Context, ind *indicator.ThreatIndicator) (string, error) {
	if !ind.Type.IsValid() {
		return "", errors.BadRequest("unknown indicator type")
	}
	if ind.Confidence < 0 || ind.Confidence > 100 {
		return "", errors.BadRequest("confidence must be between 0 and 100")
	}

	now := s.clock.Now()
	if ind.ID == "" {
		ind.ID = uuid.New().String()
	}
	if ind.FirstSeen.IsZero() {
		ind.FirstSeen = now
	}
	if ind.LastSeen.IsZero() {
		ind.LastSeen = now
	}
	ind.IsActive = true

	id, err := s.repo.Upsert(ctx, ind)
	if err != nil {
		s.logger.ErrorWithErr(err, "Failed to upsert indicator")
		return "", errors.StoreUnavailable("failed to store indicator", err)
	}

	// A fresh indicator must be visible on the next lookup
	s.cacheInvalidate(cacheKey(ind.Type, ind.Value))

	s.logger.WithFields(map[string]interface{}{
		"indicator_id": id,
		"type":         ind.Type,
		"severity":     ind.Severity,
		"source":       ind.Source,
	}).Info("Threat indicator stored")

	return id, nil
}

// List retrieves stored indicators
func (s *ThreatService) List(ctx context.Context, filter indicator.Filter, limit, offset int) ([]*indicator.ThreatIndicator, int64, error) {
	return s.repo.List(ctx, filter, limit, offset)
}

// EvictExpired drops expired cache entries. The sweeper calls this; reads
// also evict lazily.
func (s *ThreatService) EvictExpired() int {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := 0
	for key, entry := range s.cache {
		if now.After(entry.expiresAt) {
			delete(s.cache, key)
			evicted++
		}
	}
	return evicted
}

func (s *ThreatService) cacheGet(key string, now time.Time) (*indicator.CheckResult, bool) {
	s.mu.RLock()
	entry, ok := s.cache[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if now.After(entry.expiresAt) {
		s.mu.Lock()
		// Re-check under the write lock; another reader may have refreshed it
		if current, still := s.cache[key]; still && now.After(current.expiresAt) {
			delete(s.cache, key)
		}
		s.mu.Unlock()
		return nil, false
	}
	return entry.result, true
}

func (s *ThreatService) cachePut(key string, result *indicator.CheckResult, now time.Time) {
	s.mu.Lock()
	s.cache[key] = cacheEntry{result: result, expiresAt: now.Add(s.cacheTTL)}
	s.mu.Unlock()
}

func (s *ThreatService) cacheInvalidate(key string) {
	s.mu.Lock()
	delete(s.cache, key)
	s.mu.Unlock()
}
