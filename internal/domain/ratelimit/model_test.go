package ratelimit

import (
	"testing"
	"time"
)

func TestMatchPolicy(t *testing.T) {
	policies := DefaultPolicies()

	tests := []struct {
		name       string
		endpoint   string
		wantPrefix string
		wantLimit  int
	}{
		{"auth endpoint", "/api/auth/login", "/api/auth", 10},
		{"admin endpoint", "/api/admin/users", "/api/admin", 30},
		{"payment endpoint", "/api/payment/charge", "/api/payment", 20},
		{"unclassified api", "/api/widgets", "/", 120},
		{"root", "/", "/", 120},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MatchPolicy(policies, tt.endpoint)
			if got.Prefix != tt.wantPrefix {
				t.Errorf("MatchPolicy(%q).Prefix = %q, want %q", tt.endpoint, got.Prefix, tt.wantPrefix)
			}
			if got.Limit != tt.wantLimit {
				t.Errorf("MatchPolicy(%q).Limit = %d, want %d", tt.endpoint, got.Limit, tt.wantLimit)
			}
		})
	}
}

func TestMatchPolicy_LongestPrefixWins(t *testing.T) {
	policies := []Policy{
		{Prefix: "/api", Limit: 100, Window: time.Minute},
		{Prefix: "/api/auth", Limit: 10, Window: time.Minute},
	}

	if got := MatchPolicy(policies, "/api/auth/login"); got.Limit != 10 {
		t.Errorf("Limit = %d, want the more specific policy's 10", got.Limit)
	}
	if got := MatchPolicy(policies, "/api/other"); got.Limit != 100 {
		t.Errorf("Limit = %d, want the broader policy's 100", got.Limit)
	}
}

func TestMatchPolicy_NoMatchFallsBack(t *testing.T) {
	policies := []Policy{{Prefix: "/api/auth", Limit: 10, Window: time.Minute}}

	got := MatchPolicy(policies, "/healthz")
	if got.Prefix != "/" || got.Limit != 120 {
		t.Errorf("MatchPolicy() = %+v, want the catch-all default", got)
	}
}

func TestWindowStart(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 34, 56, 789, time.UTC)

	got := WindowStart(ts, time.Minute)
	want := time.Date(2026, 3, 1, 12, 34, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("WindowStart() = %v, want %v", got, want)
	}

	// Every instant inside a window aligns to the same boundary
	if !WindowStart(ts.Add(3*time.Second), time.Minute).Equal(got) {
		t.Error("timestamps in the same window aligned to different boundaries")
	}
	if WindowStart(ts.Add(time.Minute), time.Minute).Equal(got) {
		t.Error("next window aligned to the previous boundary")
	}
}
