package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/argussec/argus/internal/domain/event"
	"github.com/argussec/argus/internal/pkg/clock"
	"github.com/argussec/argus/internal/pkg/logger"
	"github.com/argussec/argus/internal/testutil"
)

func newRuleService(rules event.RuleRepository, clk clock.Clock) *RuleService {
	log := logger.New(logger.Config{Level: "error", Format: "json"})
	return NewRuleService(rules, clk, log)
}

func validAlertRule() *event.AlertRule {
	return &event.AlertRule{
		Name:              "burst-abuse",
		EventType:         event.TypeAPIAbuseDetected,
		Threshold:         3,
		TimeWindowMinutes: 10,
		IsActive:          true,
		Actions:           []string{event.ActionNotifyAdmin},
	}
}

func TestRuleService_Create(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*event.AlertRule)
		wantErr bool
	}{
		{
			name:    "valid rule",
			mutate:  func(r *event.AlertRule) {},
			wantErr: false,
		},
		{
			name:    "missing name",
			mutate:  func(r *event.AlertRule) { r.Name = "" },
			wantErr: true,
		},
		{
			name:    "missing event type",
			mutate:  func(r *event.AlertRule) { r.EventType = "" },
			wantErr: true,
		},
		{
			name:    "zero threshold",
			mutate:  func(r *event.AlertRule) { r.Threshold = 0 },
			wantErr: true,
		},
		{
			name:    "zero window",
			mutate:  func(r *event.AlertRule) { r.TimeWindowMinutes = 0 },
			wantErr: true,
		},
		{
			name:    "no actions",
			mutate:  func(r *event.AlertRule) { r.Actions = nil },
			wantErr: true,
		},
		{
			name:    "unknown action",
			mutate:  func(r *event.AlertRule) { r.Actions = []string{"page_everyone"} },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := newRuleService(testutil.NewMockRuleRepository(), nil)

			r := validAlertRule()
			tt.mutate(r)

			id, err := service.Create(context.Background(), r)
			if (err != nil) != tt.wantErr {
				t.Errorf("Create() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && id == "" {
				t.Error("Create() returned empty id")
			}
		})
	}
}

func TestRuleService_Get(t *testing.T) {
	service := newRuleService(testutil.NewMockRuleRepository(), nil)
	ctx := context.Background()

	id, err := service.Create(ctx, validAlertRule())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := service.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Name != "burst-abuse" {
		t.Errorf("Name = %q, want burst-abuse", got.Name)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("timestamps not set on create")
	}

	if _, err := service.Get(ctx, "missing"); err == nil {
		t.Error("Get() accepted an unknown rule id")
	}
}

func TestRuleService_Update(t *testing.T) {
	rules := testutil.NewMockRuleRepository()
	clk := clock.NewFake(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	service := newRuleService(rules, clk)
	ctx := context.Background()

	id, err := service.Create(ctx, validAlertRule())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	createdAt := clk.Now()

	// Simulate the rule having fired so update must not lose that state
	firedAt := clk.Now()
	rules.MarkFired(ctx, id, firedAt)

	clk.Advance(2 * time.Hour)

	updated := validAlertRule()
	updated.ID = id
	updated.Threshold = 10
	if err := service.Update(ctx, updated); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, _ := service.Get(ctx, id)
	if got.Threshold != 10 {
		t.Errorf("Threshold = %d, want 10", got.Threshold)
	}
	if !got.CreatedAt.Equal(createdAt) {
		t.Errorf("CreatedAt = %v, want preserved %v", got.CreatedAt, createdAt)
	}
	if got.LastFiredAt == nil || !got.LastFiredAt.Equal(firedAt) {
		t.Errorf("LastFiredAt = %v, want preserved %v", got.LastFiredAt, firedAt)
	}
	if !got.UpdatedAt.Equal(clk.Now()) {
		t.Errorf("UpdatedAt = %v, want advanced to %v", got.UpdatedAt, clk.Now())
	}

	missing := validAlertRule()
	missing.ID = "missing"
	if err := service.Update(ctx, missing); err == nil {
		t.Error("Update() accepted an unknown rule id")
	}
}

func TestRuleService_Delete(t *testing.T) {
	service := newRuleService(testutil.NewMockRuleRepository(), nil)
	ctx := context.Background()

	id, _ := service.Create(ctx, validAlertRule())

	if err := service.Delete(ctx, id); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := service.Get(ctx, id); err == nil {
		t.Error("rule still readable after delete")
	}

	if err := service.Delete(ctx, id); err == nil {
		t.Error("Delete() accepted an already-deleted rule id")
	}
}

func TestRuleService_Seed_Defaults(t *testing.T) {
	rules := testutil.NewMockRuleRepository()
	service := newRuleService(rules, nil)
	ctx := context.Background()

	if err := service.Seed(ctx, ""); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}

	seeded, _ := service.List(ctx)
	if len(seeded) != 3 {
		t.Fatalf("seeded %d rules, want 3 defaults", len(seeded))
	}
	for _, r := range seeded {
		if !r.IsActive {
			t.Errorf("rule %q seeded inactive", r.Name)
		}
	}

	// A populated store is never reseeded
	if err := service.Seed(ctx, ""); err != nil {
		t.Fatalf("second Seed() error = %v", err)
	}
	if again, _ := service.List(ctx); len(again) != 3 {
		t.Errorf("rules after reseed = %d, want 3 (seed must be a no-op)", len(again))
	}
}

func TestRuleService_Seed_FromFile(t *testing.T) {
	rulesYAML := `rules:
  - name: payment-fraud
    event_type: threat_detected
    conditions:
      severity: critical
    threshold: 1
    time_window_minutes: 5
    actions:
      - notify_admin
      - block_ip
`
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte(rulesYAML), 0o600); err != nil {
		t.Fatalf("writing rules file: %v", err)
	}

	rules := testutil.NewMockRuleRepository()
	service := newRuleService(rules, nil)
	ctx := context.Background()

	if err := service.Seed(ctx, path); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}

	seeded, _ := service.List(ctx)
	if len(seeded) != 1 {
		t.Fatalf("seeded %d rules, want 1 from the file (file overrides defaults)", len(seeded))
	}
	r := seeded[0]
	if r.Name != "payment-fraud" {
		t.Errorf("Name = %q, want payment-fraud", r.Name)
	}
	if r.EventType != event.TypeThreatDetected {
		t.Errorf("EventType = %q, want %q", r.EventType, event.TypeThreatDetected)
	}
	if r.Conditions["severity"] != string(event.SeverityCritical) {
		t.Errorf("Conditions = %v, want severity critical", r.Conditions)
	}
	if len(r.Actions) != 2 {
		t.Errorf("Actions = %v, want two actions", r.Actions)
	}
	if !r.IsActive {
		t.Error("file-seeded rule not active")
	}
}

func TestRuleService_Seed_InvalidFileRule(t *testing.T) {
	rulesYAML := `rules:
  - name: broken
    event_type: threat_detected
    threshold: 0
    time_window_minutes: 5
    actions: [notify_admin]
`
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte(rulesYAML), 0o600); err != nil {
		t.Fatalf("writing rules file: %v", err)
	}

	service := newRuleService(testutil.NewMockRuleRepository(), nil)
	if err := service.Seed(context.Background(), path); err == nil {
		t.Error("Seed() accepted a rule with a zero threshold")
	}
}
