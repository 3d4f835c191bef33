package event

import (
	"fmt"
	"time"
)

// SecurityEvent is an append-only record of something the monitoring engines
// observed. Only the resolution fields are ever set after insert.
type SecurityEvent struct {
	ID          string                 `json:"id"`
	EventType   string                 `json:"event_type"`
	Severity    Severity               `json:"severity"`
	Source      string                 `json:"source"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	UserID      *int64                 `json:"user_id,omitempty"`
	IPAddress   string                 `json:"ip_address,omitempty"`
	UserAgent   string                 `json:"user_agent,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	IsResolved  bool                   `json:"is_resolved"`
	ResolvedBy  string                 `json:"resolved_by,omitempty"`
	ResolvedAt  *time.Time             `json:"resolved_at,omitempty"`
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

// Event types emitted by the engines
const (
	TypeAuthenticationFailed  = "authentication_failed"
	TypeAPIAbuseDetected      = "api_abuse_detected"
	TypeRateLimitExceeded     = "rate_limit_exceeded"
	TypeSuspiciousActivity    = "suspicious_activity"
	TypeThreatDetected        = "threat_detected"
	TypeSessionCreated        = "session_created"
	TypeSessionTerminated     = "session_terminated"
	TypeSessionEvicted        = "session_evicted"
	TypeSessionHijackDetected = "session_hijack_detected"
	TypeInvalidSignature      = "invalid_signature"
)

// Wildcard matches any event type in an alert rule
const Wildcard = "*"

// metadataSchemas lists the fields each event type is expected to carry.
// Publishing checks presence so payloads stay statically checkable instead of
// free-form blobs. Types without an entry accept any metadata.
var metadataSchemas = map[string][]string{
	TypeAPIAbuseDetected:      {"endpoint", "reason"},
	TypeRateLimitExceeded:     {"endpoint_class", "limit"},
	TypeSessionHijackDetected: {"session_id", "risk_score", "indicators"},
	TypeSessionEvicted:        {"session_id"},
	TypeSessionTerminated:     {"session_id"},
	TypeThreatDetected:        {"indicator_type", "value", "risk_score"},
}

// ValidateMetadata verifies the expected fields for the event type are present
func ValidateMetadata(eventType string, md map[string]interface{}) error {
	required, ok := metadataSchemas[eventType]
	if !ok {
		return nil
	}
	for _, field := range required {
		if _, present := md[field]; !present {
			return fmt.Errorf("event %s metadata missing field %q", eventType, field)
		}
	}
	return nil
}

// Filter contains event listing options
type Filter struct {
	EventType string
	Severity  Severity
	UserID    *int64
	Resolved  *bool
	From      *time.Time
	To        *time.Time
}

// AlertRule triggers actions when enough matching events arrive inside a time
// window. Rules are configuration: mutated by the admin API only, never by
// the pipeline.
type AlertRule struct {
	ID                string            `json:"id"`
	Name              string            `json:"name"`
	EventType         string            `json:"event_type"` // concrete type or Wildcard
	Conditions        map[string]string `json:"conditions,omitempty"`
	Threshold         int               `json:"threshold"`
	TimeWindowMinutes int               `json:"time_window_minutes"`
	IsActive          bool              `json:"is_active"`
	Actions           []string          `json:"actions"`
	LastFiredAt       *time.Time        `json:"last_fired_at,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// Rule actions
const (
	ActionNotifyAdmin    = "notify_admin"
	ActionCreateIncident = "create_incident"
	ActionBlockIP        = "block_ip"
	ActionDisableUser    = "disable_user"
)

// Matches reports whether the rule applies to the event: the type matches
// (or the rule is a wildcard) and every condition equals the event's field
// or metadata value.
func (r *AlertRule) Matches(ev *SecurityEvent) bool {
	if r.EventType != Wildcard && r.EventType != ev.EventType {
		return false
	}
	for key, want := range r.Conditions {
		switch key {
		case "severity":
			if string(ev.Severity) != want {
				return false
			}
		case "source":
			if ev.Source != want {
				return false
			}
		default:
			got, ok := ev.Metadata[key]
			if !ok || fmt.Sprintf("%v", got) != want {
				return false
			}
		}
	}
	return true
}

// InCooldown reports whether the rule fired within its own window already.
// Firing is once per threshold crossing, not once per matching event.
func (r *AlertRule) InCooldown(now time.Time) bool {
	if r.LastFiredAt == nil {
		return false
	}
	return now.Sub(*r.LastFiredAt) < time.Duration(r.TimeWindowMinutes)*time.Minute
}
