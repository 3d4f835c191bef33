package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/argussec/argus/internal/domain/event"
	"github.com/argussec/argus/internal/domain/ratelimit"
	"github.com/argussec/argus/internal/pkg/clock"
	"github.com/argussec/argus/internal/pkg/logger"
	"github.com/argussec/argus/internal/pkg/metrics"
)

// botSignatures match known automation user agents. An empty user agent is
// handled separately.
var botSignatures = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(bot|crawler|spider|scraper)`),
	regexp.MustCompile(`(?i)(curl|wget|python-requests|go-http-client|java/|okhttp)`),
	regexp.MustCompile(`(?i)headless`),
}

// RateLimitService implements ratelimit.Service: fixed-window counting plus
// behavioral abuse heuristics over the request log.
type RateLimitService struct {
	counters   ratelimit.CounterRepository
	activity   ratelimit.ActivityRepository
	bus        event.Bus
	clock      clock.Clock
	logger     *logger.Logger
	policies   []ratelimit.Policy
	signingKey []byte
	maxSkew    time.Duration
}

// RateLimitServiceOptions tunes the rate limit service
type RateLimitServiceOptions struct {
	Policies         []ratelimit.Policy
	SigningKey       string
	SignatureMaxSkew time.Duration
}

// NewRateLimitService creates a new rate limiting and abuse detection service
func NewRateLimitService(counters ratelimit.CounterRepository, activity ratelimit.ActivityRepository, bus event.Bus, clk clock.Clock, log *logger.Logger, opts RateLimitServiceOptions) *RateLimitService {
	if len(opts.Policies) == 0 {
		opts.Policies = ratelimit.DefaultPolicies()
	}
	if opts.SignatureMaxSkew <= 0 {
		opts.SignatureMaxSkew = 5 * time.Minute
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &RateLimitService{
		counters:   counters,
		activity:   activity,
		bus:        bus,
		clock:      clk,
		logger:     log,
		policies:   opts.Policies,
		signingKey: []byte(opts.SigningKey),
		maxSkew:    opts.SignatureMaxSkew,
	}
}

// CheckRateLimit consumes one request from the actor's fixed window and
// decides admission. Counter-store errors deny: unlimited traffic on a broken
// counter is the unsafe failure mode.
func (s *RateLimitService) CheckRateLimit(ctx context.Context, endpointClass, actorKey string) (*ratelimit.Decision, error) {
	policy := ratelimit.MatchPolicy(s.policies, endpointClass)
	now := s.clock.Now()
	windowStart := ratelimit.WindowStart(now, policy.Window)
	resetAt := windowStart.Add(policy.Window)

	count, err := s.counters.Increment(ctx, policy.Prefix, actorKey, windowStart)
	if err != nil {
		s.logger.WithFields(map[string]interface{}{
			"endpoint_class": endpointClass,
			"actor":          actorKey,
		}).ErrorWithErr(err, "Counter store unreachable, failing closed")
		metrics.RecordRateLimitCheck(policy.Prefix, "error")
		return &ratelimit.Decision{
			Allowed:    false,
			Limit:      policy.Limit,
			Remaining:  0,
			ResetAt:    resetAt,
			RetryAfter: int(policy.Window.Seconds()),
		}, nil
	}

	decision := &ratelimit.Decision{
		Allowed:   count <= policy.Limit,
		Limit:     policy.Limit,
		Remaining: policy.Limit - count,
		ResetAt:   resetAt,
	}
	if decision.Remaining < 0 {
		decision.Remaining = 0
	}
	if !decision.Allowed {
		decision.RetryAfter = int(resetAt.Sub(now).Seconds()) + 1
		metrics.RecordRateLimitCheck(policy.Prefix, "denied")
	} else {
		metrics.RecordRateLimitCheck(policy.Prefix, "allowed")
	}
	return decision, nil
}

// PeekRateLimit reads the actor's current window without consuming a request
func (s *RateLimitService) PeekRateLimit(ctx context.Context, endpointClass, actorKey string) (*ratelimit.Decision, error) {
	policy := ratelimit.MatchPolicy(s.policies, endpointClass)
	now := s.clock.Now()
	windowStart := ratelimit.WindowStart(now, policy.Window)
	resetAt := windowStart.Add(policy.Window)

	count, err := s.counters.Peek(ctx, policy.Prefix, actorKey, windowStart)
	if err != nil {
		return &ratelimit.Decision{Allowed: false, Limit: policy.Limit, ResetAt: resetAt, RetryAfter: int(policy.Window.Seconds())}, nil
	}

	remaining := policy.Limit - count
	if remaining < 0 {
		remaining = 0
	}
	return &ratelimit.Decision{
		Allowed:   count < policy.Limit,
		Limit:     policy.Limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}

// DetectAbuse evaluates bot signatures, burst volume and endpoint fan-out for
// the request being processed. The request itself counts toward the window.
func (s *RateLimitService) DetectAbuse(ctx context.Context, endpoint, userAgent, actorKey string) (bool, string, error) {
	if isBotUserAgent(userAgent) {
		s.reportAbuse(ctx, endpoint, userAgent, actorKey, ratelimit.AbuseReasonBotSignature)
		return true, ratelimit.AbuseReasonBotSignature, nil
	}

	now := s.clock.Now()
	since := now.Add(-ratelimit.BurstWindow)

	requests, distinct, err := s.activity.ActivitySince(ctx, actorKey, since)
	if err != nil {
		// Fail open: no history means not enough data to call abuse
		s.logger.WithFields(map[string]interface{}{
			"actor": actorKey,
		}).ErrorWithErr(err, "Activity store unreachable, skipping abuse heuristics")
		return false, "", nil
	}

	// Include the in-flight request
	requests++

	if requests > ratelimit.BurstMaxRequests {
		s.reportAbuse(ctx, endpoint, userAgent, actorKey, ratelimit.AbuseReasonBurst)
		return true, ratelimit.AbuseReasonBurst, nil
	}

	if requests >= ratelimit.FanOutMinRequests && distinct > ratelimit.FanOutMaxDistinct {
		s.reportAbuse(ctx, endpoint, userAgent, actorKey, ratelimit.AbuseReasonFanOut)
		return true, ratelimit.AbuseReasonFanOut, nil
	}

	return false, "", nil
}

func isBotUserAgent(userAgent string) bool {
	if strings.TrimSpace(userAgent) == "" {
		return true
	}
	for _, re := range botSignatures {
		if re.MatchString(userAgent) {
			return true
		}
	}
	return false
}

func (s *RateLimitService) reportAbuse(ctx context.Context, endpoint, userAgent, actorKey, reason string) {
	metrics.RecordAbuseDetection(reason)
	if s.bus == nil {
		return
	}
	_, err := s.bus.Publish(ctx, &event.SecurityEvent{
		EventType:   event.TypeAPIAbuseDetected,
		Severity:    event.SeverityMedium,
		Source:      "rate_limiter",
		Title:       "API abuse pattern detected",
		Description: fmt.Sprintf("Actor %s matched abuse pattern %s", actorKey, reason),
		Metadata: map[string]interface{}{
			"endpoint": endpoint,
			"reason":   reason,
			"actor":    actorKey,
		},
		UserAgent: userAgent,
	})
	if err != nil {
		s.logger.ErrorWithErr(err, "Failed to publish abuse event")
	}
}

// ValidateRequest composes rate limiting, signature verification and abuse
// detection, then logs the request with its computed risk score.
func (s *RateLimitService) ValidateRequest(ctx context.Context, p ratelimit.ValidateParams) (*ratelimit.Outcome, error) {
	decision, err := s.CheckRateLimit(ctx, p.Endpoint, p.ActorKey)
	if err != nil {
		return nil, err
	}

	outcome := &ratelimit.Outcome{Allowed: true, RateLimit: *decision}

	if !decision.Allowed {
		outcome.Allowed = false
		outcome.Reason = ratelimit.ReasonRateLimitExceeded
		s.publishRateLimitEvent(ctx, p, decision)
		s.logRequest(ctx, p, outcome)
		return outcome, nil
	}

	if p.Signature != "" {
		if reason, ok := s.verifySignature(p); !ok {
			outcome.Allowed = false
			outcome.Reason = reason
			s.publishSignatureEvent(ctx, p, reason)
			s.logRequest(ctx, p, outcome)
			return outcome, nil
		}
	}

	abusive, _, err := s.DetectAbuse(ctx, p.Endpoint, p.UserAgent, p.ActorKey)
	if err != nil {
		return nil, err
	}
	outcome.IsSuspicious = abusive

	s.logRequest(ctx, p, outcome)
	return outcome, nil
}

// verifySignature checks the HMAC over method:endpoint:body:timestamp with a
// constant-time compare. The timestamp must be within the skew bound, which
// caps how long a captured request can be replayed.
func (s *RateLimitService) verifySignature(p ratelimit.ValidateParams) (string, bool) {
	if len(s.signingKey) == 0 {
		s.logger.Error("Request signature presented but no signing key configured")
		return ratelimit.ReasonInvalidSignature, false
	}

	now := s.clock.Now()
	skew := now.Sub(p.Timestamp)
	if skew < 0 {
		skew = -skew
	}
	if skew > s.maxSkew {
		return ratelimit.ReasonStaleSignature, false
	}

	payload := fmt.Sprintf("%s:%s:%s:%d", p.Method, p.Endpoint, p.Body, p.Timestamp.Unix())
	mac := hmac.New(sha256.New, s.signingKey)
	mac.Write([]byte(payload))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(p.Signature))) {
		return ratelimit.ReasonInvalidSignature, false
	}
	return "", true
}

// SignRequest computes the signature callers must attach. Exposed for the
// surrounding application and tests.
func (s *RateLimitService) SignRequest(method, endpoint, body string, ts time.Time) string {
	payload := fmt.Sprintf("%s:%s:%s:%d", method, endpoint, body, ts.Unix())
	mac := hmac.New(sha256.New, s.signingKey)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// logRequest computes the request risk score and appends an activity row.
// Logging failures are not fatal to the request path.
func (s *RateLimitService) logRequest(ctx context.Context, p ratelimit.ValidateParams, outcome *ratelimit.Outcome) {
	score := s.requestRiskScore(p, outcome)
	outcome.RiskScore = score
	if score > ratelimit.SuspicionThreshold {
		outcome.IsSuspicious = true
	}

	rl := &ratelimit.RequestLog{
		ActorKey:       p.ActorKey,
		Endpoint:       p.Endpoint,
		Method:         p.Method,
		StatusCode:     p.StatusCode,
		ResponseTimeMs: p.ResponseTimeMs,
		RiskScore:      score,
		IsSuspicious:   outcome.IsSuspicious,
		UserAgent:      p.UserAgent,
		IPAddress:      p.IPAddress,
		CreatedAt:      s.clock.Now(),
	}
	if err := s.activity.Insert(ctx, rl); err != nil {
		s.logger.ErrorWithErr(err, "Failed to log API request")
	}
}

// requestRiskScore weighs response status, latency, sensitive paths and the
// user agent into a 0-100 score.
func (s *RateLimitService) requestRiskScore(p ratelimit.ValidateParams, outcome *ratelimit.Outcome) float64 {
	var score float64
	switch {
	case p.StatusCode == 401 || p.StatusCode == 403:
		score += 40
	case p.StatusCode >= 400:
		score += 25
	}
	if p.ResponseTimeMs > 5000 {
		score += 15
	}
	if strings.HasPrefix(p.Endpoint, "/api/admin") || strings.HasPrefix(p.Endpoint, "/api/auth") {
		score += 20
	}
	if isBotUserAgent(p.UserAgent) {
		score += 10
	}
	if outcome.IsSuspicious {
		score += 30
	}
	if !outcome.Allowed {
		score += 20
	}
	if score > 100 {
		score = 100
	}
	return score
}

func (s *RateLimitService) publishRateLimitEvent(ctx context.Context, p ratelimit.ValidateParams, decision *ratelimit.Decision) {
	if s.bus == nil {
		return
	}
	policy := ratelimit.MatchPolicy(s.policies, p.Endpoint)
	_, err := s.bus.Publish(ctx, &event.SecurityEvent{
		EventType:   event.TypeRateLimitExceeded,
		Severity:    event.SeverityLow,
		Source:      "rate_limiter",
		Title:       "Rate limit exceeded",
		Description: fmt.Sprintf("Actor %s exceeded the %s limit", p.ActorKey, policy.Prefix),
		Metadata: map[string]interface{}{
			"endpoint_class": policy.Prefix,
			"limit":          policy.Limit,
			"actor":          p.ActorKey,
		},
		IPAddress: p.IPAddress,
		UserAgent: p.UserAgent,
	})
	if err != nil {
		s.logger.ErrorWithErr(err, "Failed to publish rate limit event")
	}
}

func (s *RateLimitService) publishSignatureEvent(ctx context.Context, p ratelimit.ValidateParams, reason string) {
	if s.bus == nil {
		return
	}
	_, err := s.bus.Publish(ctx, &event.SecurityEvent{
		EventType:   event.TypeInvalidSignature,
		Severity:    event.SeverityMedium,
		Source:      "rate_limiter",
		Title:       "Request signature rejected",
		Description: fmt.Sprintf("Signature check failed for %s %s: %s", p.Method, p.Endpoint, reason),
		Metadata: map[string]interface{}{
			"endpoint": p.Endpoint,
			"reason":   reason,
			"actor":    p.ActorKey,
		},
		IPAddress: p.IPAddress,
		UserAgent: p.UserAgent,
	})
	if err != nil {
		s.logger.ErrorWithErr(err, "Failed to publish signature event")
	}
}
