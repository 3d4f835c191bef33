package dto

import (
	"time"

	"github.com/argussec/argus/internal/pkg/fingerprint"
)

// SessionDTO represents a session in API responses. Hashes are never exposed.
type SessionDTO struct {
	ID           string    `json:"id"`
	UserID       int64     `json:"userId"`
	IPAddress    string    `json:"ipAddress"`
	DeviceInfo   string    `json:"deviceInfo"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActivity time.Time `json:"lastActivity"`
	ExpiresAt    time.Time `json:"expiresAt"`
	RiskScore    float64   `json:"riskScore"`
	IsActive     bool      `json:"isActive"`
	EndReason    string    `json:"endReason,omitempty"`
}

// CreateSessionRequest represents a session creation request
type CreateSessionRequest struct {
	UserID      int64              `json:"userId" validate:"required,gt=0"`
	Token       string             `json:"token" validate:"required,min=16"`
	Fingerprint fingerprint.Device `json:"fingerprint" validate:"required"`
	IPAddress   string             `json:"ipAddress" validate:"omitempty,ip"`
}

// ValidateSessionRequest represents a session validation request
type ValidateSessionRequest struct {
	UserID      int64              `json:"userId" validate:"required,gt=0"`
	Token       string             `json:"token" validate:"required"`
	Fingerprint fingerprint.Device `json:"fingerprint" validate:"required"`
	IPAddress   string             `json:"ipAddress" validate:"omitempty,ip"`
}

// ValidationResultDTO represents a session validation outcome
type ValidationResultDTO struct {
	IsValid        bool     `json:"isValid"`
	SessionID      string   `json:"sessionId,omitempty"`
	RiskFactors    []string `json:"riskFactors"`
	RiskScore      float64  `json:"riskScore"`
	ActionRequired string   `json:"actionRequired"`
}

// DetectHijackRequest names the observed indicators for a session
type DetectHijackRequest struct {
	Indicators []string `json:"indicators" validate:"required,min=1"`
}

// DetectHijackResponse reports whether the session was invalidated
type DetectHijackResponse struct {
	Hijacked  bool   `json:"hijacked"`
	SessionID string `json:"sessionId"`
}

// TerminateOthersRequest keeps one session and ends the rest
type TerminateOthersRequest struct {
	KeepSessionID string `json:"keepSessionId" validate:"required,uuid"`
}
