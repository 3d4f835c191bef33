package session

import "time"

// Session binds an authenticated user to a device fingerprint. The raw token
// and raw fingerprint are never stored; only their hashes are.
type Session struct {
	ID              string    `json:"id"`
	UserID          int64     `json:"user_id"`
	TokenHash       string    `json:"-"`
	FingerprintHash string    `json:"-"`
	IPAddress       string    `json:"ip_address"`
	DeviceInfo      string    `json:"device_info"`
	CreatedAt       time.Time `json:"created_at"`
	LastActivity    time.Time `json:"last_activity"`
	ExpiresAt       time.Time `json:"expires_at"`
	RiskScore       float64   `json:"risk_score"`
	IsActive        bool      `json:"is_active"`
	EndReason       string    `json:"end_reason,omitempty"`
}

// Terminal states. A session moves Created -> Active -> exactly one of these;
// all of them mean is_active=false and the transition is one-way.
const (
	EndReasonExpired    = "expired"
	EndReasonTerminated = "terminated"
	EndReasonEvicted    = "evicted"
	EndReasonHijacked   = "hijacked"
)

// Risk factor names accumulated during validation and hijack scoring
const (
	FactorIPChange            = "ip_change"
	FactorUserAgentChange     = "user_agent_change"
	FactorFingerprintMismatch = "fingerprint_mismatch"
	FactorUnusualLocation     = "unusual_location"
	FactorRapidRequests       = "rapid_requests"
	FactorInvalidSessionData  = "invalid_session_data"
)

// FactorWeight returns the hijack-score weight of a risk factor
func FactorWeight(factor string) float64 {
	switch factor {
	case FactorIPChange:
		return 20
	case FactorUserAgentChange:
		return 30
	case FactorFingerprintMismatch:
		return 40
	case FactorUnusualLocation:
		return 25
	case FactorRapidRequests:
		return 15
	case FactorInvalidSessionData:
		return 50
	default:
		return 0
	}
}

// HijackThreshold is the score above which a session is invalidated
const HijackThreshold = 70.0

// Actions required of the caller after validation
const (
	ActionNone                 = "none"
	ActionVerifyIdentity       = "verify_identity"
	ActionReauthenticate       = "reauthenticate"
	ActionLocationVerification = "location_verification"
)

// ValidationResult is the outcome of a session validation call
type ValidationResult struct {
	IsValid        bool     `json:"is_valid"`
	SessionID      string   `json:"session_id,omitempty"`
	RiskFactors    []string `json:"risk_factors"`
	RiskScore      float64  `json:"risk_score"`
	ActionRequired string   `json:"action_required"`
}

// ActionForFactors escalates the required action by accumulated risk factors.
// A persistent location anomaly on its own asks for location verification.
func ActionForFactors(factors []string) string {
	if len(factors) == 0 {
		return ActionNone
	}
	for _, f := range factors {
		if f == FactorInvalidSessionData {
			return ActionReauthenticate
		}
	}
	if len(factors) == 1 && factors[0] == FactorUnusualLocation {
		return ActionLocationVerification
	}
	if len(factors) >= 2 {
		return ActionReauthenticate
	}
	return ActionVerifyIdentity
}
