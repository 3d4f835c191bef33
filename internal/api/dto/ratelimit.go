package dto

import "time"

// CheckRateLimitRequest consumes one request from the actor's window
type CheckRateLimitRequest struct {
	Endpoint string `json:"endpoint" validate:"required,startswith=/"`
	ActorKey string `json:"actorKey" validate:"required"`
}

// DecisionDTO represents a rate limit decision
type DecisionDTO struct {
	Allowed    bool      `json:"allowed"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"resetAt"`
	RetryAfter int       `json:"retryAfter,omitempty"`
}

// ValidateRequestRequest carries one observed API request through full
// validation: rate limit, optional signature, abuse heuristics.
type ValidateRequestRequest struct {
	Endpoint       string `json:"endpoint" validate:"required,startswith=/"`
	Method         string `json:"method" validate:"required,oneof=GET POST PUT PATCH DELETE HEAD OPTIONS"`
	ActorKey       string `json:"actorKey" validate:"required"`
	UserAgent      string `json:"userAgent,omitempty"`
	IPAddress      string `json:"ipAddress,omitempty" validate:"omitempty,ip"`
	Body           string `json:"body,omitempty"`
	Signature      string `json:"signature,omitempty"`
	Timestamp      int64  `json:"timestamp,omitempty"` // unix seconds, required with signature
	StatusCode     int    `json:"statusCode,omitempty"`
	ResponseTimeMs int64  `json:"responseTimeMs,omitempty"`
}

// OutcomeDTO represents the composed validation outcome
type OutcomeDTO struct {
	Allowed      bool        `json:"allowed"`
	Reason       string      `json:"reason,omitempty"`
	RiskScore    float64     `json:"riskScore"`
	IsSuspicious bool        `json:"isSuspicious"`
	RateLimit    DecisionDTO `json:"rateLimit"`
}
