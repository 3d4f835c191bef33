package ratelimit

import (
	"context"
	"time"
)

// ValidateParams carries one inbound request through full validation
type ValidateParams struct {
	Endpoint       string
	Method         string
	ActorKey       string
	UserAgent      string
	IPAddress      string
	Body           string
	Signature      string    // optional HMAC signature
	Timestamp      time.Time // caller-supplied signing timestamp
	StatusCode     int       // upstream response status, for request logging
	ResponseTimeMs int64
}

// Service defines the rate limiting and abuse detection contract
type Service interface {
	// CheckRateLimit applies the fixed-window counter for
	// (endpointClass, actorKey). Counter-store errors fail closed: a broken
	// counter denies rather than admitting unlimited traffic.
	CheckRateLimit(ctx context.Context, endpointClass, actorKey string) (*Decision, error)

	// PeekRateLimit reads the current window without consuming a request
	PeekRateLimit(ctx context.Context, endpointClass, actorKey string) (*Decision, error)

	// DetectAbuse evaluates bot signatures, burst volume and endpoint
	// fan-out. History-store errors fail open (not enough data, allow).
	// Returns whether abuse was detected and the first matching reason.
	DetectAbuse(ctx context.Context, endpoint, userAgent, actorKey string) (bool, string, error)

	// ValidateRequest composes rate limiting, optional signature
	// verification and abuse detection, then logs the request with its
	// computed risk score.
	ValidateRequest(ctx context.Context, p ValidateParams) (*Outcome, error)
}
