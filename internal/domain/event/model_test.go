package event

import (
	"testing"
	"time"
)

func TestAlertRule_Matches(t *testing.T) {
	ev := &SecurityEvent{
		EventType: TypeAuthenticationFailed,
		Severity:  SeverityHigh,
		Source:    "session_integrity",
		Metadata:  map[string]interface{}{"attempts": 5},
	}

	tests := []struct {
		name string
		rule AlertRule
		want bool
	}{
		{
			name: "exact type match",
			rule: AlertRule{EventType: TypeAuthenticationFailed},
			want: true,
		},
		{
			name: "type mismatch",
			rule: AlertRule{EventType: TypeThreatDetected},
			want: false,
		},
		{
			name: "wildcard matches any type",
			rule: AlertRule{EventType: Wildcard},
			want: true,
		},
		{
			name: "severity condition matches",
			rule: AlertRule{EventType: Wildcard, Conditions: map[string]string{"severity": "high"}},
			want: true,
		},
		{
			name: "severity condition rejects",
			rule: AlertRule{EventType: Wildcard, Conditions: map[string]string{"severity": "critical"}},
			want: false,
		},
		{
			name: "source condition matches",
			rule: AlertRule{EventType: Wildcard, Conditions: map[string]string{"source": "session_integrity"}},
			want: true,
		},
		{
			name: "metadata condition matches through string form",
			rule: AlertRule{EventType: Wildcard, Conditions: map[string]string{"attempts": "5"}},
			want: true,
		},
		{
			name: "missing metadata key rejects",
			rule: AlertRule{EventType: Wildcard, Conditions: map[string]string{"region": "eu"}},
			want: false,
		},
		{
			name: "all conditions must hold",
			rule: AlertRule{EventType: Wildcard, Conditions: map[string]string{"severity": "high", "source": "other"}},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rule.Matches(ev); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAlertRule_InCooldown(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fired := now.Add(-10 * time.Minute)

	rule := AlertRule{TimeWindowMinutes: 15, LastFiredAt: &fired}
	if !rule.InCooldown(now) {
		t.Error("InCooldown() = false 10 minutes into a 15 minute window")
	}

	rule.TimeWindowMinutes = 10
	if rule.InCooldown(now) {
		t.Error("InCooldown() = true exactly at the window boundary")
	}

	never := AlertRule{TimeWindowMinutes: 15}
	if never.InCooldown(now) {
		t.Error("InCooldown() = true for a rule that never fired")
	}
}

func TestValidateMetadata(t *testing.T) {
	tests := []struct {
		name      string
		eventType string
		metadata  map[string]interface{}
		wantErr   bool
	}{
		{
			name:      "unschema'd type accepts anything",
			eventType: TypeAuthenticationFailed,
			metadata:  nil,
			wantErr:   false,
		},
		{
			name:      "complete hijack metadata",
			eventType: TypeSessionHijackDetected,
			metadata:  map[string]interface{}{"session_id": "s1", "risk_score": 90.0, "indicators": []string{"ip_change"}},
			wantErr:   false,
		},
		{
			name:      "missing field",
			eventType: TypeSessionHijackDetected,
			metadata:  map[string]interface{}{"session_id": "s1"},
			wantErr:   true,
		},
		{
			name:      "nil metadata for a schema'd type",
			eventType: TypeSessionEvicted,
			metadata:  nil,
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMetadata(tt.eventType, tt.metadata)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateMetadata() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSeverity_IsValid(t *testing.T) {
	for _, s := range []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical} {
		if !s.IsValid() {
			t.Errorf("Severity(%q).IsValid() = false", s)
		}
	}
	if Severity("apocalyptic").IsValid() {
		t.Error("unknown severity reported valid")
	}
}
