package dto

import "time"

// IndicatorDTO represents a threat indicator in API responses
type IndicatorDTO struct {
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

// CheckIndicatorRequest represents a threat lookup request
type CheckIndicatorRequest struct {
	Type  string `json:"type" validate:"required,oneof=ip domain hash email url"`
	Value string `json:"value" validate:"required"`
}

// CheckResultDTO represents a threat lookup outcome
type CheckResultDTO struct {
	IsThreat       bool           `json:"isThreat"`
	Indicators     []IndicatorDTO `json:"indicators"`
	RiskScore      float64        `json:"riskScore"`
	Recommendation string         `json:"recommendation"`
	Sources        []string       `json:"sources"`
	CheckedAt      time.Time      `json:"checkedAt"`
}

// AddIndicatorRequest represents an indicator submission
type AddIndicatorRequest struct {
	Type       string `json:"type" validate:"required,oneof=ip domain hash email url"`
	Value      string `json:"value" validate:"required"`
	ThreatType string `json:"threatType,omitempty"`
	Severity   string `json:"severity" validate:"required,oneof=critical high medium low"`
	Source     string `json:"source" validate:"required"`
	Confidence int    `json:"confidence" validate:"gte=0,lte=100"`
}
