package client

import (
	"context"
	"fmt"
)

// SessionService handles session-related API calls
type SessionService struct {
	client *Client
}

// CreateSessionRequest registers a new session
type CreateSessionRequest struct {
	UserID      int64             `json:"userId"`
	Token       string            `json:"token"`
	Fingerprint DeviceFingerprint `json:"fingerprint"`
	IPAddress   string            `json:"ipAddress,omitempty"`
}

// ValidateSessionRequest validates a presented token against stored session state
type ValidateSessionRequest struct {
	UserID      int64             `json:"userId"`
	Token       string            `json:"token"`
	Fingerprint DeviceFingerprint `json:"fingerprint"`
	IPAddress   string            `json:"ipAddress,omitempty"`
}

// Create registers a new session and returns its ID
func (s *SessionService) Create(ctx context.Context, req CreateSessionRequest) (string, error) {
	var resp struct {
		SessionID string `json:"sessionId"`
	}
	if err := s.client.doRequest(ctx, "POST", "/api/v1/sessions", req, &resp); err != nil {
		return "", err
	}
	return resp.SessionID, nil
}

// Validate checks a session token and fingerprint
func (s *SessionService) Validate(ctx context.Context, req ValidateSessionRequest) (*ValidationResult, error) {
	var result ValidationResult
	if err := s.client.doRequest(ctx, "POST", "/api/v1/sessions/validate", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DetectHijack reports observed hijack indicators for a session
func (s *SessionService) DetectHijack(ctx context.Context, sessionID string, indicators []string) (bool, error) {
	body := map[string][]string{"indicators": indicators}
	var resp struct {
		Hijacked bool `json:"hijacked"`
	}
	path := fmt.Sprintf("/api/v1/sessions/%s/detect-hijack", sessionID)
	if err := s.client.doRequest(ctx, "POST", path, body, &resp); err != nil {
		return false, err
	}
	return resp.Hijacked, nil
}

// List retrieves the authenticated user's active sessions
func (s *SessionService) List(ctx context.Context) ([]Session, error) {
	var sessions []Session
	if err := s.client.doRequest(ctx, "GET", "/api/v1/sessions", nil, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// Terminate ends a single session
func (s *SessionService) Terminate(ctx context.Context, sessionID string) error {
	path := fmt.Sprintf("/api/v1/sessions/%s", sessionID)
	return s.client.doRequest(ctx, "DELETE", path, nil, nil)
}

// TerminateOthers ends every session except the given one and returns the count
func (s *SessionService) TerminateOthers(ctx context.Context, keepSessionID string) (int, error) {
	body := map[string]string{"keepSessionId": keepSessionID}
	var resp struct {
		Terminated int `json:"terminated"`
	}
	if err := s.client.doRequest(ctx, "POST", "/api/v1/sessions/terminate-others", body, &resp); err != nil {
		return 0, err
	}
	return resp.Terminated, nil
}
