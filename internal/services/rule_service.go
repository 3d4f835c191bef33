package services

import (
	"context"
	"fmt"
	"os"

	"github.com/argussec/argus/internal/domain/event"
	"github.com/argussec/argus/internal/pkg/clock"
	"github.com/argussec/argus/internal/pkg/errors"
	"github.com/argussec/argus/internal/pkg/logger"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// RuleService manages alert rule configuration
type RuleService struct {
	rules  event.RuleRepository
	clock  clock.Clock
	logger *logger.Logger
}

// NewRuleService creates a new alert rule service
func NewRuleService(rules event.RuleRepository, clk clock.Clock, log *logger.Logger) *RuleService {
	if clk == nil {
		clk = clock.Real{}
	}
	return &RuleService{rules: rules, clock: clk, logger: log}
}

// Create validates and stores a new alert rule
func (s *RuleService) Create(ctx context.Context, r *event.AlertRule) (string, error) {
	if err := validateRule(r); err != nil {
		return "", err
	}

	now := s.clock.Now()
	r.ID = uuid.New().String()
	r.CreatedAt = now
	r.UpdatedAt = now

	id, err := s.rules.Create(ctx, r)
	if err != nil {
		return "", errors.StoreUnavailable("failed to create alert rule", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"rule_id": id,
		"name":    r.Name,
	}).Info("Alert rule created")
	return id, nil
}

// Get retrieves a rule by ID
func (s *RuleService) Get(ctx context.Context, id string) (*event.AlertRule, error) {
	r, err := s.rules.GetByID(ctx, id)
	if err != nil {
		return nil, errors.StoreUnavailable("failed to load alert rule", err)
	}
	if r == nil {
		return nil, errors.NotFound("Alert rule")
	}
	return r, nil
}

// Update replaces a rule's configuration
func (s *RuleService) Update(ctx context.Context, r *event.AlertRule) error {
	if err := validateRule(r); err != nil {
		return err
	}

	existing, err := s.rules.GetByID(ctx, r.ID)
	if err != nil {
		return errors.StoreUnavailable("failed to load alert rule", err)
	}
	if existing == nil {
		return errors.NotFound("Alert rule")
	}

	r.CreatedAt = existing.CreatedAt
	r.LastFiredAt = existing.LastFiredAt
	r.UpdatedAt = s.clock.Now()

	if err := s.rules.Update(ctx, r); err != nil {
		return errors.StoreUnavailable("failed to update alert rule", err)
	}
	return nil
}

// Delete removes a rule
func (s *RuleService) Delete(ctx context.Context, id string) error {
	existing, err := s.rules.GetByID(ctx, id)
	if err != nil {
		return errors.StoreUnavailable("failed to load alert rule", err)
	}
	if existing == nil {
		return errors.NotFound("Alert rule")
	}
	if err := s.rules.Delete(ctx, id); err != nil {
		return errors.StoreUnavailable("failed to delete alert rule", err)
	}
	return nil
}

// List returns all rules
func (s *RuleService) List(ctx context.Context) ([]*event.AlertRule, error) {
	rules, err := s.rules.List(ctx)
	if err != nil {
		return nil, errors.StoreUnavailable("failed to list alert rules", err)
	}
	return rules, nil
}

func validateRule(r *event.AlertRule) error {
	if r.Name == "" {
		return errors.BadRequest("rule name is required")
	}
	if r.EventType == "" {
		return errors.BadRequest("rule event type is required")
	}
	if r.Threshold < 1 {
		return errors.BadRequest("rule threshold must be at least 1")
	}
	if r.TimeWindowMinutes < 1 {
		return errors.BadRequest("rule time window must be at least 1 minute")
	}
	if len(r.Actions) == 0 {
		return errors.BadRequest("rule must configure at least one action")
	}
	for _, action := range r.Actions {
		switch action {
		case event.ActionNotifyAdmin, event.ActionCreateIncident, event.ActionBlockIP, event.ActionDisableUser:
		default:
			return errors.BadRequest(fmt.Sprintf("unknown rule action %q", action))
		}
	}
	return nil
}

// ruleFile is the on-disk YAML shape for alert rules
type ruleFile struct {
	Rules []struct {
		Name              string            `yaml:"name"`
		EventType         string            `yaml:"event_type"`
		Conditions        map[string]string `yaml:"conditions"`
		Threshold         int               `yaml:"threshold"`
		TimeWindowMinutes int               `yaml:"time_window_minutes"`
		Actions           []string          `yaml:"actions"`
	} `yaml:"rules"`
}

// Seed loads rules on first boot. A rules file takes precedence over the
// built-in defaults; a non-empty store is never touched.
func (s *RuleService) Seed(ctx context.Context, rulesFile string) error {
	count, err := s.rules.Count(ctx)
	if err != nil {
		return fmt.Errorf("counting alert rules: %w", err)
	}
	if count > 0 {
		return nil
	}

	rules := defaultRules()
	if rulesFile != "" {
		loaded, err := loadRulesFile(rulesFile)
		if err != nil {
			return err
		}
		rules = loaded
	}

	now := s.clock.Now()
	for _, r := range rules {
		if err := validateRule(r); err != nil {
			return fmt.Errorf("rule %q: %w", r.Name, err)
		}
		r.ID = uuid.New().String()
		r.IsActive = true
		r.CreatedAt = now
		r.UpdatedAt = now
		if _, err := s.rules.Create(ctx, r); err != nil {
			return fmt.Errorf("seeding rule %q: %w", r.Name, err)
		}
	}

	s.logger.WithFields(map[string]interface{}{
		"rules": len(rules),
	}).Info("Seeded alert rules")
	return nil
}

func loadRulesFile(path string) ([]*event.AlertRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules file: %w", err)
	}

	var f ruleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing rules file: %w", err)
	}

	rules := make([]*event.AlertRule, 0, len(f.Rules))
	for _, raw := range f.Rules {
		rules = append(rules, &event.AlertRule{
			Name:              raw.Name,
			EventType:         raw.EventType,
			Conditions:        raw.Conditions,
			Threshold:         raw.Threshold,
			TimeWindowMinutes: raw.TimeWindowMinutes,
			Actions:           raw.Actions,
		})
	}
	return rules, nil
}

func defaultRules() []*event.AlertRule {
	return []*event.AlertRule{
		{
			Name:              "critical-events",
			EventType:         event.Wildcard,
			Conditions:        map[string]string{"severity": string(event.SeverityCritical)},
			Threshold:         1,
			TimeWindowMinutes: 5,
			Actions:           []string{event.ActionNotifyAdmin, event.ActionCreateIncident},
		},
		{
			Name:              "repeated-auth-failures",
			EventType:         event.TypeAuthenticationFailed,
			Threshold:         5,
			TimeWindowMinutes: 15,
			Actions:           []string{event.ActionBlockIP},
		},
		{
			Name:              "suspicious-activity-cluster",
			EventType:         event.TypeSuspiciousActivity,
			Threshold:         3,
			TimeWindowMinutes: 30,
			Actions:           []string{event.ActionNotifyAdmin},
		},
	}
}
