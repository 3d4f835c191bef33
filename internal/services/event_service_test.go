package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/argussec/argus/internal/domain/event"
	"github.com/argussec/argus/internal/pkg/clock"
	"github.com/argussec/argus/internal/pkg/logger"
	"github.com/argussec/argus/internal/testutil"
)

func newEventService(repo event.Repository, rules event.RuleRepository, notifier event.Notifier, clk clock.Clock, opts EventServiceOptions) *EventService {
	log := logger.New(logger.Config{Level: "error", Format: "json"})
	return NewEventService(repo, rules, notifier, clk, log, opts)
}

func authFailureEvent(ip string) *event.SecurityEvent {
	return &event.SecurityEvent{
		EventType:   event.TypeAuthenticationFailed,
		Severity:    event.SeverityMedium,
		Source:      "session_integrity",
		Title:       "Authentication failed",
		Description: "Invalid credentials presented",
		IPAddress:   ip,
	}
}

func TestEventService_Publish(t *testing.T) {
	tests := []struct {
		name    string
		ev      *event.SecurityEvent
		wantErr bool
	}{
		{
			name:    "valid event",
			ev:      authFailureEvent("198.51.100.4"),
			wantErr: false,
		},
		{
			name: "missing event type",
			ev: &event.SecurityEvent{
				Severity: event.SeverityLow,
				Source:   "test",
				Title:    "No type",
			},
			wantErr: true,
		},
		{
			name: "missing required metadata",
			ev: &event.SecurityEvent{
				EventType: event.TypeSessionEvicted,
				Severity:  event.SeverityLow,
				Source:    "session_integrity",
				Title:     "Evicted",
				Metadata:  map[string]interface{}{},
			},
			wantErr: true,
		},
		{
			name: "complete metadata",
			ev: &event.SecurityEvent{
				EventType: event.TypeSessionEvicted,
				Severity:  event.SeverityLow,
				Source:    "session_integrity",
				Title:     "Evicted",
				Metadata:  map[string]interface{}{"session_id": "abc"},
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := testutil.NewMockEventRepository()
			service := newEventService(repo, testutil.NewMockRuleRepository(), nil, nil, EventServiceOptions{})

			id, err := service.Publish(context.Background(), tt.ev)
			if (err != nil) != tt.wantErr {
				t.Errorf("Publish() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr {
				if id == "" {
					t.Error("Publish() returned empty id")
				}
				if len(repo.Events) != 1 {
					t.Errorf("persisted %d events, want 1", len(repo.Events))
				}
			}
		})
	}
}

func TestEventService_Publish_UnknownSeverityDowngraded(t *testing.T) {
	repo := testutil.NewMockEventRepository()
	service := newEventService(repo, testutil.NewMockRuleRepository(), nil, nil, EventServiceOptions{})

	ev := authFailureEvent("")
	ev.Severity = "apocalyptic"
	if _, err := service.Publish(context.Background(), ev); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if repo.Events[0].Severity != event.SeverityLow {
		t.Errorf("Severity = %v, want downgrade to %v", repo.Events[0].Severity, event.SeverityLow)
	}
}

func TestEventService_Publish_StoreOutageNotFatal(t *testing.T) {
	repo := testutil.NewMockEventRepository()
	repo.InsertError = fmt.Errorf("connection refused")
	service := newEventService(repo, testutil.NewMockRuleRepository(), nil, nil, EventServiceOptions{})

	id, err := service.Publish(context.Background(), authFailureEvent(""))
	if err != nil {
		t.Fatalf("Publish() error = %v, persistence failures must not propagate", err)
	}
	if id == "" {
		t.Error("Publish() returned empty id")
	}

	// The event is still readable from the ring
	if recent := service.Recent(event.RecentFilter{}); len(recent) != 1 {
		t.Errorf("Recent() = %d events, want 1", len(recent))
	}
}

func TestEventService_RuleFiresOncePerWindow(t *testing.T) {
	repo := testutil.NewMockEventRepository()
	rules := testutil.NewMockRuleRepository()
	notifier := &testutil.MockNotifier{}
	clk := clock.NewFake(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	service := newEventService(repo, rules, notifier, clk, EventServiceOptions{})
	ctx := context.Background()

	rules.Create(ctx, &event.AlertRule{
		Name:              "auth-failures",
		EventType:         event.TypeAuthenticationFailed,
		Threshold:         3,
		TimeWindowMinutes: 15,
		IsActive:          true,
		Actions:           []string{event.ActionNotifyAdmin},
	})

	// Below threshold: no firing
	service.Publish(ctx, authFailureEvent("198.51.100.4"))
	service.Publish(ctx, authFailureEvent("198.51.100.4"))
	if notifier.NotifyAdminCalls != 0 {
		t.Fatalf("rule fired with %d matching events, threshold is 3", 2)
	}

	// Third event crosses the threshold
	service.Publish(ctx, authFailureEvent("198.51.100.4"))
	if notifier.NotifyAdminCalls != 1 {
		t.Fatalf("NotifyAdmin calls = %d, want 1", notifier.NotifyAdminCalls)
	}

	// Further matches inside the window stay silent
	service.Publish(ctx, authFailureEvent("198.51.100.4"))
	service.Publish(ctx, authFailureEvent("198.51.100.4"))
	if notifier.NotifyAdminCalls != 1 {
		t.Errorf("NotifyAdmin calls = %d, want 1 (cooldown suppresses refiring)", notifier.NotifyAdminCalls)
	}

	// Past the window the rule can fire again once enough new events arrive
	clk.Advance(16 * time.Minute)
	service.Publish(ctx, authFailureEvent("198.51.100.4"))
	service.Publish(ctx, authFailureEvent("198.51.100.4"))
	service.Publish(ctx, authFailureEvent("198.51.100.4"))
	if notifier.NotifyAdminCalls != 2 {
		t.Errorf("NotifyAdmin calls = %d, want 2 after the cooldown lapsed", notifier.NotifyAdminCalls)
	}
}

func TestEventService_WildcardRuleWithConditions(t *testing.T) {
	repo := testutil.NewMockEventRepository()
	rules := testutil.NewMockRuleRepository()
	notifier := &testutil.MockNotifier{}
	service := newEventService(repo, rules, notifier, nil, EventServiceOptions{})
	ctx := context.Background()

	rules.Create(ctx, &event.AlertRule{
		Name:              "critical-events",
		EventType:         event.Wildcard,
		Conditions:        map[string]string{"severity": string(event.SeverityCritical)},
		Threshold:         1,
		TimeWindowMinutes: 5,
		IsActive:          true,
		Actions:           []string{event.ActionNotifyAdmin, event.ActionCreateIncident},
	})

	// Non-critical events do not match
	service.Publish(ctx, authFailureEvent(""))
	if notifier.NotifyAdminCalls != 0 {
		t.Fatal("rule fired for a medium severity event")
	}

	critical := authFailureEvent("")
	critical.Severity = event.SeverityCritical
	service.Publish(ctx, critical)

	if notifier.NotifyAdminCalls != 1 {
		t.Errorf("NotifyAdmin calls = %d, want 1", notifier.NotifyAdminCalls)
	}
	if notifier.CreateIncidentCalls != 1 {
		t.Errorf("CreateIncident calls = %d, want 1 (all configured actions fire)", notifier.CreateIncidentCalls)
	}
}

func TestEventService_BlockIPAction(t *testing.T) {
	rules := testutil.NewMockRuleRepository()
	notifier := &testutil.MockNotifier{}
	service := newEventService(testutil.NewMockEventRepository(), rules, notifier, nil, EventServiceOptions{})
	ctx := context.Background()

	rules.Create(ctx, &event.AlertRule{
		Name:              "block-attackers",
		EventType:         event.TypeAuthenticationFailed,
		Threshold:         1,
		TimeWindowMinutes: 15,
		IsActive:          true,
		Actions:           []string{event.ActionBlockIP},
	})

	service.Publish(ctx, authFailureEvent("203.0.113.50"))

	if len(notifier.BlockedIPs) != 1 || notifier.BlockedIPs[0] != "203.0.113.50" {
		t.Errorf("BlockedIPs = %v, want the event's source IP", notifier.BlockedIPs)
	}
}

func TestEventService_RuleFailureIsolated(t *testing.T) {
	repo := testutil.NewMockEventRepository()
	rules := testutil.NewMockRuleRepository()
	notifier := &testutil.MockNotifier{}
	service := newEventService(repo, rules, notifier, nil, EventServiceOptions{})
	ctx := context.Background()

	// MarkFired fails for every rule, so firing errors out after counting
	rules.MarkError = fmt.Errorf("connection refused")
	rules.Create(ctx, &event.AlertRule{
		Name:              "broken",
		EventType:         event.TypeAuthenticationFailed,
		Threshold:         1,
		TimeWindowMinutes: 5,
		IsActive:          true,
		Actions:           []string{event.ActionNotifyAdmin},
	})

	id, err := service.Publish(ctx, authFailureEvent(""))
	if err != nil {
		t.Fatalf("Publish() error = %v, rule failures must not fail publishing", err)
	}
	if id == "" {
		t.Error("Publish() returned empty id")
	}
}

func TestEventService_Recent(t *testing.T) {
	service := newEventService(testutil.NewMockEventRepository(), testutil.NewMockRuleRepository(), nil, nil, EventServiceOptions{RingSize: 3})
	ctx := context.Background()

	for i := 1; i <= 4; i++ {
		ev := authFailureEvent("")
		ev.Title = fmt.Sprintf("event-%d", i)
		service.Publish(ctx, ev)
	}

	recent := service.Recent(event.RecentFilter{})
	if len(recent) != 3 {
		t.Fatalf("Recent() = %d events, want ring size 3 (oldest overwritten)", len(recent))
	}
	// Newest first
	for i, want := range []string{"event-4", "event-3", "event-2"} {
		if recent[i].Title != want {
			t.Errorf("recent[%d].Title = %q, want %q", i, recent[i].Title, want)
		}
	}

	limited := service.Recent(event.RecentFilter{Limit: 1})
	if len(limited) != 1 || limited[0].Title != "event-4" {
		t.Errorf("Recent(limit=1) = %v, want only the newest event", limited)
	}
}

func TestEventService_Recent_Filtered(t *testing.T) {
	service := newEventService(testutil.NewMockEventRepository(), testutil.NewMockRuleRepository(), nil, nil, EventServiceOptions{})
	ctx := context.Background()

	service.Publish(ctx, authFailureEvent(""))
	critical := authFailureEvent("")
	critical.EventType = event.TypeSuspiciousActivity
	critical.Severity = event.SeverityCritical
	service.Publish(ctx, critical)

	bySeverity := service.Recent(event.RecentFilter{Severity: event.SeverityCritical})
	if len(bySeverity) != 1 || bySeverity[0].Severity != event.SeverityCritical {
		t.Errorf("severity filter returned %d events", len(bySeverity))
	}

	byType := service.Recent(event.RecentFilter{EventType: event.TypeAuthenticationFailed})
	if len(byType) != 1 || byType[0].EventType != event.TypeAuthenticationFailed {
		t.Errorf("type filter returned %d events", len(byType))
	}
}

func TestEventService_Resolve(t *testing.T) {
	repo := testutil.NewMockEventRepository()
	service := newEventService(repo, testutil.NewMockRuleRepository(), nil, nil, EventServiceOptions{})
	ctx := context.Background()

	id, _ := service.Publish(ctx, authFailureEvent(""))

	if err := service.Resolve(ctx, id, "analyst@argus"); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	ev, _ := repo.GetByID(ctx, id)
	if !ev.IsResolved {
		t.Error("event not resolved")
	}
	if ev.ResolvedBy != "analyst@argus" {
		t.Errorf("ResolvedBy = %q, want analyst@argus", ev.ResolvedBy)
	}

	// Resolving twice is a no-op, not an error
	if err := service.Resolve(ctx, id, "someone-else"); err != nil {
		t.Errorf("second Resolve() error = %v, want no-op", err)
	}
	if ev.ResolvedBy != "analyst@argus" {
		t.Errorf("ResolvedBy overwritten to %q, resolution is set once", ev.ResolvedBy)
	}

	if err := service.Resolve(ctx, "missing", "analyst"); err == nil {
		t.Error("Resolve() accepted an unknown event id")
	}
}

func TestEventService_Summary(t *testing.T) {
	repo := testutil.NewMockEventRepository()
	service := newEventService(repo, testutil.NewMockRuleRepository(), nil, nil, EventServiceOptions{})
	ctx := context.Background()

	id, _ := service.Publish(ctx, authFailureEvent(""))
	service.Publish(ctx, authFailureEvent(""))
	critical := authFailureEvent("")
	critical.Severity = event.SeverityCritical
	service.Publish(ctx, critical)

	service.Resolve(ctx, id, "analyst")

	counts, err := service.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if counts[string(event.SeverityMedium)] != 1 {
		t.Errorf("medium = %d, want 1 (resolved events excluded)", counts[string(event.SeverityMedium)])
	}
	if counts[string(event.SeverityCritical)] != 1 {
		t.Errorf("critical = %d, want 1", counts[string(event.SeverityCritical)])
	}
}

func TestEventService_PurgeExpired(t *testing.T) {
	repo := testutil.NewMockEventRepository()
	clk := clock.NewFake(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	service := newEventService(repo, testutil.NewMockRuleRepository(), nil, clk, EventServiceOptions{RetentionDays: 30})
	ctx := context.Background()

	old, _ := service.Publish(ctx, authFailureEvent(""))
	service.Resolve(ctx, old, "analyst")
	unresolvedOld, _ := service.Publish(ctx, authFailureEvent(""))

	clk.Advance(31 * 24 * time.Hour)
	fresh, _ := service.Publish(ctx, authFailureEvent(""))
	service.Resolve(ctx, fresh, "analyst")

	purged, err := service.PurgeExpired(ctx)
	if err != nil {
		t.Fatalf("PurgeExpired() error = %v", err)
	}
	if purged != 1 {
		t.Errorf("purged = %d, want only the old resolved event", purged)
	}

	if ev, _ := repo.GetByID(ctx, unresolvedOld); ev == nil {
		t.Error("unresolved event purged, retention applies to resolved events only")
	}
	if ev, _ := repo.GetByID(ctx, fresh); ev == nil {
		t.Error("fresh resolved event purged before retention lapsed")
	}
}
