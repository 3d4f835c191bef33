package indicator

import (
	"testing"
	"time"
)

func TestType_IsValid(t *testing.T) {
	for _, typ := range []Type{TypeIP, TypeDomain, TypeHash, TypeEmail, TypeURL} {
		if !typ.IsValid() {
			t.Errorf("Type(%q).IsValid() = false", typ)
		}
	}
	if Type("asn").IsValid() {
		t.Error("unknown type reported valid")
	}
}

func TestThreatIndicator_Score(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		severity   Severity
		confidence int
		lastSeen   time.Time
		want       float64
	}{
		{
			name:       "critical full confidence",
			severity:   SeverityCritical,
			confidence: 100,
			lastSeen:   now,
			want:       95,
		},
		{
			name:       "high half confidence",
			severity:   SeverityHigh,
			confidence: 50,
			lastSeen:   now,
			want:       37.5,
		},
		{
			name:       "stale high decays twenty percent",
			severity:   SeverityHigh,
			confidence: 100,
			lastSeen:   now.Add(-31 * 24 * time.Hour),
			want:       60,
		},
		{
			name:       "thirty days exactly is still fresh",
			severity:   SeverityMedium,
			confidence: 100,
			lastSeen:   now.Add(-30 * 24 * time.Hour),
			want:       50,
		},
		{
			name:       "zero confidence scores zero",
			severity:   SeverityCritical,
			confidence: 0,
			lastSeen:   now,
			want:       0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ind := &ThreatIndicator{
				Severity:   tt.severity,
				Confidence: tt.confidence,
				LastSeen:   tt.lastSeen,
			}
			if got := ind.Score(now); got != tt.want {
				t.Errorf("Score() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRecommendationFor(t *testing.T) {
	tests := []struct {
		name       string
		riskScore  float64
		indicators int
		want       string
	}{
		{"block at eighty", 80, 1, RecommendationBlock},
		{"monitor closely at sixty", 60, 1, RecommendationMonitorClosely},
		{"investigate at forty", 40, 1, RecommendationInvestigate},
		{"monitor on weak signal", 10, 1, RecommendationMonitor},
		{"clear with nothing", 0, 0, RecommendationClear},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RecommendationFor(tt.riskScore, tt.indicators); got != tt.want {
				t.Errorf("RecommendationFor(%v, %d) = %q, want %q", tt.riskScore, tt.indicators, got, tt.want)
			}
		})
	}
}
