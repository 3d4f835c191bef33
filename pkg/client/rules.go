package client

import (
	"context"
	"fmt"
)

// RuleService handles alert rule API calls
type RuleService struct {
	client *Client
}

// SaveRuleRequest creates or updates an alert rule
type SaveRuleRequest struct {
	Name              string            `json:"name"`
	EventType         string            `json:"eventType"`
	Conditions        map[string]string `json:"conditions,omitempty"`
	Threshold         int               `json:"threshold"`
	TimeWindowMinutes int               `json:"timeWindowMinutes"`
	IsActive          bool              `json:"isActive"`
	Actions           []string          `json:"actions"`
}

// List retrieves all alert rules
func (s *RuleService) List(ctx context.Context) ([]Rule, error) {
	var rules []Rule
	if err := s.client.doRequest(ctx, "GET", "/api/v1/rules", nil, &rules); err != nil {
		return nil, err
	}
	return rules, nil
}

// Get retrieves a single rule by ID
func (s *RuleService) Get(ctx context.Context, id string) (*Rule, error) {
	var rule Rule
	if err := s.client.doRequest(ctx, "GET", "/api/v1/rules/"+id, nil, &rule); err != nil {
		return nil, err
	}
	return &rule, nil
}

// Create stores a new rule and returns its ID
func (s *RuleService) Create(ctx context.Context, req SaveRuleRequest) (string, error) {
	var resp struct {
		RuleID string `json:"ruleId"`
	}
	if err := s.client.doRequest(ctx, "POST", "/api/v1/rules", req, &resp); err != nil {
		return "", err
	}
	return resp.RuleID, nil
}

// Update replaces a rule's configuration
func (s *RuleService) Update(ctx context.Context, id string, req SaveRuleRequest) error {
	return s.client.doRequest(ctx, "PUT", "/api/v1/rules/"+id, req, nil)
}

// Delete removes a rule
func (s *RuleService) Delete(ctx context.Context, id string) error {
	return s.client.doRequest(ctx, "DELETE", fmt.Sprintf("/api/v1/rules/%s", id), nil, nil)
}
