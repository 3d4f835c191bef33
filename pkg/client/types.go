package client

import "time"

// Session represents an active or ended user session
type Session struct {
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

// DeviceFingerprint identifies a client device
type DeviceFingerprint struct {
	UserAgent      string `json:"userAgent"`
	AcceptLanguage string `json:"acceptLanguage,omitempty"`
	Timezone       string `json:"timezone,omitempty"`
	ScreenInfo     string `json:"screenInfo,omitempty"`
	Platform       string `json:"platform,omitempty"`
}

// ValidationResult is the outcome of a session validation
type ValidationResult struct {
	IsValid        bool     `json:"isValid"`
	SessionID      string   `json:"sessionId,omitempty"`
	RiskFactors    []string `json:"riskFactors"`
	RiskScore      float64  `json:"riskScore"`
	ActionRequired string   `json:"actionRequired"`
}

// Indicator represents a threat intelligence indicator
type Indicator struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Value      string    `json:"value"`
	ThreatType string    `json:"threatType,omitempty"`
	Severity   string    `json:"severity"`
	Source     string    `json:"source"`
	Confidence int       `json:"confidence"`
	FirstSeen  time.Time `json:"firstSeen"`
	LastSeen   time.Time `json:"lastSeen"`
	IsActive   bool      `json:"isActive"`
}

// CheckResult is the outcome of a threat lookup
type CheckResult struct {
	IsThreat       bool        `json:"isThreat"`
	Indicators     []Indicator `json:"indicators"`
	RiskScore      float64     `json:"riskScore"`
	Recommendation string      `json:"recommendation"`
	Sources        []string    `json:"sources"`
	CheckedAt      time.Time   `json:"checkedAt"`
}

// Decision is a rate limit decision
type Decision struct {
	Allowed    bool      `json:"allowed"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"resetAt"`
	RetryAfter int       `json:"retryAfter,omitempty"`
}

// Outcome is a composed request validation outcome
type Outcome struct {
	Allowed      bool     `json:"allowed"`
	Reason       string   `json:"reason,omitempty"`
	RiskScore    float64  `json:"riskScore"`
	IsSuspicious bool     `json:"isSuspicious"`
	RateLimit    Decision `json:"rateLimit"`
}

// Event represents a security event
type Event struct {
	ID          string                 `json:"id"`
	EventType   string                 `json:"eventType"`
	Severity    string                 `json:"severity"`
	Source      string                 `json:"source"`
	Title       string                 `json:"title"`
	Description string                 `json:"description,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	UserID      *int64                 `json:"userId,omitempty"`
	IPAddress   string                 `json:"ipAddress,omitempty"`
	CreatedAt   time.Time              `json:"createdAt"`
	IsResolved  bool                   `json:"isResolved"`
	ResolvedBy  string                 `json:"resolvedBy,omitempty"`
	ResolvedAt  *time.Time             `json:"resolvedAt,omitempty"`
}

// Rule represents an alert rule
type Rule struct {
	ID                string            `json:"id"`
	Name              string            `json:"name"`
	EventType         string            `json:"eventType"`
	Conditions        map[string]string `json:"conditions,omitempty"`
	Threshold         int               `json:"threshold"`
	TimeWindowMinutes int               `json:"timeWindowMinutes"`
	IsActive          bool              `json:"isActive"`
	Actions           []string          `json:"actions"`
	LastFiredAt       *time.Time        `json:"lastFiredAt,omitempty"`
	CreatedAt         time.Time         `json:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`
}

// ListOptions contains common pagination options
type ListOptions struct {
	Page     int
	PageSize int
}

// page wraps a paginated list response
type page[T any] struct {
	Data       []T   `json:"data"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}
