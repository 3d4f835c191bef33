package client

import (
	"context"
	"net/url"
)

// RateLimitService handles rate limiting API calls
type RateLimitService struct {
	client *Client
}

// ValidateRequestRequest carries one observed request through full validation
type ValidateRequestRequest struct {
	Endpoint       string `json:"endpoint"`
	Method         string `json:"method"`
	ActorKey       string `json:"actorKey"`
	UserAgent      string `json:"userAgent,omitempty"`
	IPAddress      string `json:"ipAddress,omitempty"`
	Body           string `json:"body,omitempty"`
	Signature      string `json:"signature,omitempty"`
	Timestamp      int64  `json:"timestamp,omitempty"`
	StatusCode     int    `json:"statusCode,omitempty"`
	ResponseTimeMs int64  `json:"responseTimeMs,omitempty"`
}

// Check consumes one request from the actor's rate limit window
func (s *RateLimitService) Check(ctx context.Context, endpoint, actorKey string) (*Decision, error) {
	body := map[string]string{"endpoint": endpoint, "actorKey": actorKey}
	var decision Decision
	if err := s.client.doRequest(ctx, "POST", "/api/v1/ratelimit/check", body, &decision); err != nil {
		return nil, err
	}
	return &decision, nil
}

// Peek reads the current window without consuming a request
func (s *RateLimitService) Peek(ctx context.Context, endpoint, actorKey string) (*Decision, error) {
	query := url.Values{}
	query.Set("endpoint", endpoint)
	query.Set("actor_key", actorKey)

	var decision Decision
	if err := s.client.doRequest(ctx, "GET", "/api/v1/ratelimit/peek?"+query.Encode(), nil, &decision); err != nil {
		return nil, err
	}
	return &decision, nil
}

// ValidateRequest runs rate limiting, signature and abuse checks for one request
func (s *RateLimitService) ValidateRequest(ctx context.Context, req ValidateRequestRequest) (*Outcome, error) {
	var outcome Outcome
	if err := s.client.doRequest(ctx, "POST", "/api/v1/requests/validate", req, &outcome); err != nil {
		return nil, err
	}
	return &outcome, nil
}
