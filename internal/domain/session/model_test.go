package session

import "testing"

func TestFactorWeight(t *testing.T) {
	tests := []struct {
		factor string
		want   float64
	}{
		{FactorIPChange, 20},
		{FactorUserAgentChange, 30},
		{FactorFingerprintMismatch, 40},
		{FactorUnusualLocation, 25},
		{FactorRapidRequests, 15},
		{FactorInvalidSessionData, 50},
		{"unknown_factor", 0},
	}

	for _, tt := range tests {
		if got := FactorWeight(tt.factor); got != tt.want {
			t.Errorf("FactorWeight(%q) = %v, want %v", tt.factor, got, tt.want)
		}
	}
}

func TestActionForFactors(t *testing.T) {
	tests := []struct {
		name    string
		factors []string
		want    string
	}{
		{
			name:    "no factors",
			factors: nil,
			want:    ActionNone,
		},
		{
			name:    "single factor asks for identity check",
			factors: []string{FactorIPChange},
			want:    ActionVerifyIdentity,
		},
		{
			name:    "location anomaly alone asks for location verification",
			factors: []string{FactorUnusualLocation},
			want:    ActionLocationVerification,
		},
		{
			name:    "two factors force reauthentication",
			factors: []string{FactorIPChange, FactorUserAgentChange},
			want:    ActionReauthenticate,
		},
		{
			name:    "invalid session data always forces reauthentication",
			factors: []string{FactorInvalidSessionData},
			want:    ActionReauthenticate,
		},
		{
			name:    "location anomaly with a second factor escalates",
			factors: []string{FactorUnusualLocation, FactorIPChange},
			want:    ActionReauthenticate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ActionForFactors(tt.factors); got != tt.want {
				t.Errorf("ActionForFactors(%v) = %q, want %q", tt.factors, got, tt.want)
			}
		})
	}
}
