package dto

import "time"

// EventDTO represents a security event in API responses
type EventDTO struct {
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

// PublishEventRequest represents an event submission
type PublishEventRequest struct {
	EventType   string                 `json:"eventType" validate:"required"`
	Severity    string                 `json:"severity" validate:"required,oneof=critical high medium low"`
	Source      string                 `json:"source" validate:"required"`
	Title       string                 `json:"title" validate:"required"`
	Description string                 `json:"description,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	UserID      *int64                 `json:"userId,omitempty"`
	IPAddress   string                 `json:"ipAddress,omitempty" validate:"omitempty,ip"`
	UserAgent   string                 `json:"userAgent,omitempty"`
}

// ResolveEventRequest marks an event handled
type ResolveEventRequest struct {
	ResolvedBy string `json:"resolvedBy" validate:"required"`
}

// RuleDTO represents an alert rule in API responses
type RuleDTO struct {
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

// SaveRuleRequest creates or updates an alert rule
type SaveRuleRequest struct {
	Name              string            `json:"name" validate:"required"`
	EventType         string            `json:"eventType" validate:"required"`
	Conditions        map[string]string `json:"conditions,omitempty"`
	Threshold         int               `json:"threshold" validate:"required,gte=1"`
	TimeWindowMinutes int               `json:"timeWindowMinutes" validate:"required,gte=1"`
	IsActive          bool              `json:"isActive"`
	Actions           []string          `json:"actions" validate:"required,min=1,dive,oneof=notify_admin create_incident block_ip disable_user"`
}
