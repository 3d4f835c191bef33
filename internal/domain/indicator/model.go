package indicator

import "time"

// ThreatIndicator is a single threat-intelligence fact about a value.
// Records are immutable except LastSeen/IsActive, which move on refresh.
type ThreatIndicator struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	Value      string    `json:"value"`
	ThreatType string    `json:"threat_type"`
	Severity   Severity  `json:"severity"`
	Source     string    `json:"source"`
	Confidence int       `json:"confidence"` // 0-100
	FirstSeen  time.Time `json:"first_seen"`
	LastSeen   time.Time `json:"last_seen"`
	IsActive   bool      `json:"is_active"`
}

// Type classifies what kind of value an indicator describes
type Type string

const (
	TypeIP     Type = "ip"
	TypeDomain Type = "domain"
	TypeHash   Type = "hash"
	TypeEmail  Type = "email"
	TypeURL    Type = "url"
)

// IsValid checks if the indicator type is known
func (t Type) IsValid() bool {
	switch t {
	case TypeIP, TypeDomain, TypeHash, TypeEmail, TypeURL:
		return true
	default:
		return false
	}
}

// Severity levels
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// IsValid checks if the severity is known
func (s Severity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	default:
		return false
	}
}

// BaseScore returns the severity's base contribution to the risk score
func (s Severity) BaseScore() float64 {
	switch s {
	case SeverityCritical:
		return 95
	case SeverityHigh:
		return 75
	case SeverityMedium:
		return 50
	case SeverityLow:
		return 25
	default:
		return 0
	}
}

// staleAfter is the age past which an indicator's score decays
const staleAfter = 30 * 24 * time.Hour

// Score computes the risk contribution of a single indicator at time now:
// severity base weighted by confidence, decayed 20% once stale.
func (i *ThreatIndicator) Score(now time.Time) float64 {
	score := i.Severity.BaseScore() * float64(i.Confidence) / 100
	if now.Sub(i.LastSeen) > staleAfter {
		score *= 0.8
	}
	return score
}

// Recommendation values, ordered from most to least severe
const (
	RecommendationBlock          = "block"
	RecommendationMonitorClosely = "monitor-closely"
	RecommendationInvestigate    = "investigate"
	RecommendationMonitor        = "monitor"
	RecommendationClear          = "clear"
)

// CheckResult is the derived outcome of a threat lookup. It is cached with a
// TTL, never persisted.
type CheckResult struct {
	IsThreat       bool               `json:"is_threat"`
	Indicators     []*ThreatIndicator `json:"indicators"`
	RiskScore      float64            `json:"risk_score"` // 0-100
	Recommendation string             `json:"recommendation"`
	Sources        []string           `json:"sources"`
	CheckedAt      time.Time          `json:"checked_at"`
}

// RecommendationFor maps an aggregate risk score and indicator count to the
// recommendation ladder.
func RecommendationFor(riskScore float64, indicatorCount int) string {
	switch {
	case riskScore >= 80:
		return RecommendationBlock
	case riskScore >= 60:
		return RecommendationMonitorClosely
	case riskScore >= 40:
		return RecommendationInvestigate
	case indicatorCount > 0:
		return RecommendationMonitor
	default:
		return RecommendationClear
	}
}

// Filter contains indicator listing options
type Filter struct {
	Type       Type
	Value      string
	Source     string
	ActiveOnly bool
}
