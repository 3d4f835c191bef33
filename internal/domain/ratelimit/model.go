package ratelimit

import (
	"strings"
	"time"
)

// Policy caps requests for an endpoint class. Policies are matched by
// longest prefix; the catch-all "/" policy is the default.
type Policy struct {
	Prefix string        `json:"prefix"`
	Limit  int           `json:"limit"`
	Window time.Duration `json:"window"`
}

// DefaultPolicies is the shipped endpoint-pattern table
func DefaultPolicies() []Policy {
	return []Policy{
		{Prefix: "/api/auth", Limit: 10, Window: time.Minute},
		{Prefix: "/api/admin", Limit: 30, Window: time.Minute},
		{Prefix: "/api/payment", Limit: 20, Window: time.Minute},
		{Prefix: "/", Limit: 120, Window: time.Minute},
	}
}

// MatchPolicy picks the longest-prefix policy for an endpoint
func MatchPolicy(policies []Policy, endpoint string) Policy {
	best := Policy{Prefix: "/", Limit: 120, Window: time.Minute}
	bestLen := -1
	for _, p := range policies {
		if strings.HasPrefix(endpoint, p.Prefix) && len(p.Prefix) > bestLen {
			best = p
			bestLen = len(p.Prefix)
		}
	}
	return best
}

// WindowStart aligns a timestamp to the wall-clock window boundary. Fixed
// windows trade edge imprecision for O(1) counting.
func WindowStart(now time.Time, window time.Duration) time.Time {
	return now.Truncate(window)
}

// Decision is the outcome of a rate limit check
type Decision struct {
	Allowed    bool      `json:"allowed"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int       `json:"retry_after,omitempty"` // seconds, set when denied
}

// Abuse detection reasons
const (
	AbuseReasonBotSignature = "bot_signature"
	AbuseReasonBurst        = "burst"
	AbuseReasonFanOut       = "endpoint_fanout"
)

// Abuse heuristics thresholds
const (
	BurstWindow       = 60 * time.Second
	BurstMaxRequests  = 30
	FanOutMinRequests = 20
	FanOutMaxDistinct = 10
)

// SuspicionThreshold flags a logged request as suspicious
const SuspicionThreshold = 30.0

// RequestLog is one row of API activity; the abuse heuristics read their
// windows from this log.
type RequestLog struct {
	ID             int64     `json:"id"`
	ActorKey       string    `json:"actor_key"`
	Endpoint       string    `json:"endpoint"`
	Method         string    `json:"method"`
	StatusCode     int       `json:"status_code"`
	ResponseTimeMs int64     `json:"response_time_ms"`
	RiskScore      float64   `json:"risk_score"`
	IsSuspicious   bool      `json:"is_suspicious"`
	UserAgent      string    `json:"user_agent,omitempty"`
	IPAddress      string    `json:"ip_address,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Outcome is the composed result of full request validation
type Outcome struct {
	Allowed      bool     `json:"allowed"`
	Reason       string   `json:"reason,omitempty"`
	RiskScore    float64  `json:"risk_score"`
	IsSuspicious bool     `json:"is_suspicious"`
	RateLimit    Decision `json:"rate_limit"`
}

// Validation denial reasons
const (
	ReasonRateLimitExceeded = "rate_limit_exceeded"
	ReasonInvalidSignature  = "invalid_signature"
	ReasonStaleSignature    = "stale_signature"
)
