package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/argussec/argus/internal/domain/session"
	"github.com/argussec/argus/internal/pkg/clock"
	"github.com/argussec/argus/internal/pkg/fingerprint"
	"github.com/argussec/argus/internal/pkg/logger"
	"github.com/argussec/argus/internal/testutil"
)

func newSessionService(repo session.Repository, clk clock.Clock) *SessionService {
	log := logger.New(logger.Config{Level: "error", Format: "json"})
	return NewSessionService(repo, nil, nil, nil, clk, log, SessionServiceOptions{})
}

func testDevice() fingerprint.Device {
	return fingerprint.Device{
		UserAgent:      "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36",
		ScreenWidth:    1920,
		ScreenHeight:   1080,
		ColorDepth:     24,
		TimezoneOffset: -60,
		Language:       "en-US",
		Platform:       "Linux x86_64",
	}
}

func TestSessionService_Create(t *testing.T) {
	repo := testutil.NewMockSessionRepository()
	service := newSessionService(repo, nil)

	tests := []struct {
		name    string
		params  session.CreateParams
		wantErr bool
	}{
		{
			name: "valid session",
			params: session.CreateParams{
				UserID:      1,
				Token:       "tok-abcdef0123456789",
				Fingerprint: testDevice(),
				IPAddress:   "198.51.100.4",
			},
			wantErr: false,
		},
		{
			name: "missing token",
			params: session.CreateParams{
				UserID:      1,
				Fingerprint: testDevice(),
			},
			wantErr: true,
		},
		{
			name: "missing fingerprint user agent",
			params: session.CreateParams{
				UserID:      1,
				Token:       "tok-abcdef0123456789",
				Fingerprint: fingerprint.Device{},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := service.Create(context.Background(), tt.params)

			if (err != nil) != tt.wantErr {
				t.Errorf("Create() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr {
				if id == "" {
					t.Error("Create() returned empty id")
				}
				stored := repo.Sessions[id]
				if stored == nil {
					t.Fatal("session not persisted")
				}
				if stored.TokenHash == tt.params.Token {
					t.Error("raw token stored, want hash only")
				}
			}
		})
	}
}

func TestSessionService_Create_EvictsOldest(t *testing.T) {
	repo := testutil.NewMockSessionRepository()
	clk := clock.NewFake(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	service := newSessionService(repo, clk)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 4; i++ {
		id, err := service.Create(ctx, session.CreateParams{
			UserID:      7,
			Token:       fmt.Sprintf("tok-%d-abcdef0123456789", i),
			Fingerprint: testDevice(),
			IPAddress:   "198.51.100.4",
		})
		if err != nil {
			t.Fatalf("Create() #%d error = %v", i+1, err)
		}
		ids = append(ids, id)
		clk.Advance(time.Minute)
	}

	active, err := service.ListActive(ctx, 7)
	if err != nil {
		t.Fatalf("ListActive() error = %v", err)
	}
	if len(active) != 3 {
		t.Fatalf("active sessions = %d, want concurrency cap of 3", len(active))
	}

	oldest := repo.Sessions[ids[0]]
	if oldest.IsActive {
		t.Error("oldest session still active, want evicted")
	}
	if oldest.EndReason != session.EndReasonEvicted {
		t.Errorf("EndReason = %q, want %q", oldest.EndReason, session.EndReasonEvicted)
	}

	// Newer sessions survive
	for _, id := range ids[1:] {
		if !repo.Sessions[id].IsActive {
			t.Errorf("session %s evicted, want kept", id)
		}
	}
}

func TestSessionService_Validate(t *testing.T) {
	repo := testutil.NewMockSessionRepository()
	clk := clock.NewFake(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	service := newSessionService(repo, clk)
	ctx := context.Background()

	device := testDevice()
	_, err := service.Create(ctx, session.CreateParams{
		UserID:      1,
		Token:       "tok-abcdef0123456789",
		Fingerprint: device,
		IPAddress:   "198.51.100.4",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	t.Run("matching identity", func(t *testing.T) {
		result, err := service.Validate(ctx, session.ValidateParams{
			UserID:      1,
			Token:       "tok-abcdef0123456789",
			Fingerprint: device,
			IPAddress:   "198.51.100.4",
		})
		if err != nil {
			t.Fatalf("Validate() error = %v", err)
		}
		if !result.IsValid {
			t.Error("IsValid = false for a matching identity")
		}
		if len(result.RiskFactors) != 0 {
			t.Errorf("RiskFactors = %v, want none", result.RiskFactors)
		}
		if result.ActionRequired != session.ActionNone {
			t.Errorf("ActionRequired = %q, want %q", result.ActionRequired, session.ActionNone)
		}
	})

	t.Run("ip change alone asks for identity verification", func(t *testing.T) {
		result, err := service.Validate(ctx, session.ValidateParams{
			UserID:      1,
			Token:       "tok-abcdef0123456789",
			Fingerprint: device,
			IPAddress:   "203.0.113.99",
		})
		if err != nil {
			t.Fatalf("Validate() error = %v", err)
		}
		if !result.IsValid {
			t.Error("IsValid = false, minor drift should keep the session")
		}
		if len(result.RiskFactors) != 1 || result.RiskFactors[0] != session.FactorIPChange {
			t.Errorf("RiskFactors = %v, want [%s]", result.RiskFactors, session.FactorIPChange)
		}
		if result.RiskScore != 20 {
			t.Errorf("RiskScore = %v, want 20", result.RiskScore)
		}
		if result.ActionRequired != session.ActionVerifyIdentity {
			t.Errorf("ActionRequired = %q, want %q", result.ActionRequired, session.ActionVerifyIdentity)
		}
	})

	t.Run("device change forces reauthentication", func(t *testing.T) {
		changed := device
		changed.UserAgent = "Mozilla/5.0 (Windows NT 10.0) Chrome/120.0"

		result, err := service.Validate(ctx, session.ValidateParams{
			UserID:      1,
			Token:       "tok-abcdef0123456789",
			Fingerprint: changed,
			IPAddress:   "198.51.100.4",
		})
		if err != nil {
			t.Fatalf("Validate() error = %v", err)
		}
		if len(result.RiskFactors) < 2 {
			t.Errorf("RiskFactors = %v, want fingerprint and user agent drift", result.RiskFactors)
		}
		if result.ActionRequired != session.ActionReauthenticate {
			t.Errorf("ActionRequired = %q, want %q", result.ActionRequired, session.ActionReauthenticate)
		}
	})

	t.Run("wrong token fails closed", func(t *testing.T) {
		result, err := service.Validate(ctx, session.ValidateParams{
			UserID:      1,
			Token:       "tok-wrong",
			Fingerprint: device,
		})
		if err != nil {
			t.Fatalf("Validate() error = %v", err)
		}
		if result.IsValid {
			t.Error("IsValid = true for an unknown token")
		}
		if result.ActionRequired != session.ActionReauthenticate {
			t.Errorf("ActionRequired = %q, want %q", result.ActionRequired, session.ActionReauthenticate)
		}
	})
}

func TestSessionService_Validate_ExpiredSession(t *testing.T) {
	repo := testutil.NewMockSessionRepository()
	clk := clock.NewFake(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	service := newSessionService(repo, clk)
	ctx := context.Background()

	device := testDevice()
	id, _ := service.Create(ctx, session.CreateParams{
		UserID:      1,
		Token:       "tok-abcdef0123456789",
		Fingerprint: device,
	})

	clk.Advance(25 * time.Hour)

	result, err := service.Validate(ctx, session.ValidateParams{
		UserID:      1,
		Token:       "tok-abcdef0123456789",
		Fingerprint: device,
	})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if result.IsValid {
		t.Error("IsValid = true past the session TTL")
	}
	if repo.Sessions[id].IsActive {
		t.Error("expired session still active, want ended")
	}
	if repo.Sessions[id].EndReason != session.EndReasonExpired {
		t.Errorf("EndReason = %q, want %q", repo.Sessions[id].EndReason, session.EndReasonExpired)
	}
}

func TestSessionService_Validate_StoreOutageFailsClosed(t *testing.T) {
	repo := testutil.NewMockSessionRepository()
	repo.GetError = fmt.Errorf("connection refused")
	service := newSessionService(repo, nil)

	result, err := service.Validate(context.Background(), session.ValidateParams{
		UserID:      1,
		Token:       "tok-abcdef0123456789",
		Fingerprint: testDevice(),
	})
	if err != nil {
		t.Fatalf("Validate() error = %v, want fail-closed result", err)
	}
	if result.IsValid {
		t.Error("IsValid = true on store outage, want denied")
	}
	if result.ActionRequired != session.ActionReauthenticate {
		t.Errorf("ActionRequired = %q, want %q", result.ActionRequired, session.ActionReauthenticate)
	}
}

func TestSessionService_DetectHijacking(t *testing.T) {
	tests := []struct {
		name         string
		indicators   []string
		wantHijacked bool
	}{
		{
			name:         "below threshold keeps session",
			indicators:   []string{session.FactorIPChange, session.FactorUserAgentChange},
			wantHijacked: false,
		},
		{
			name:         "exactly at threshold keeps session",
			indicators:   []string{session.FactorFingerprintMismatch, session.FactorUserAgentChange},
			wantHijacked: false,
		},
		{
			name:         "above threshold invalidates",
			indicators:   []string{session.FactorFingerprintMismatch, session.FactorInvalidSessionData},
			wantHijacked: true,
		},
		{
			name:         "unknown indicators score nothing",
			indicators:   []string{"solar_flare", "cosmic_rays"},
			wantHijacked: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := testutil.NewMockSessionRepository()
			service := newSessionService(repo, nil)
			ctx := context.Background()

			id, err := service.Create(ctx, session.CreateParams{
				UserID:      1,
				Token:       "tok-abcdef0123456789",
				Fingerprint: testDevice(),
				IPAddress:   "198.51.100.4",
			})
			if err != nil {
				t.Fatalf("Create() error = %v", err)
			}

			hijacked, err := service.DetectHijacking(ctx, id, tt.indicators)
			if err != nil {
				t.Fatalf("DetectHijacking() error = %v", err)
			}

			if hijacked != tt.wantHijacked {
				t.Errorf("hijacked = %v, want %v", hijacked, tt.wantHijacked)
			}
			if repo.Sessions[id].IsActive == tt.wantHijacked {
				t.Errorf("session active = %v, inconsistent with hijack verdict", repo.Sessions[id].IsActive)
			}
			if tt.wantHijacked && repo.Sessions[id].EndReason != session.EndReasonHijacked {
				t.Errorf("EndReason = %q, want %q", repo.Sessions[id].EndReason, session.EndReasonHijacked)
			}
		})
	}
}

func TestSessionService_DetectHijacking_UnknownSession(t *testing.T) {
	service := newSessionService(testutil.NewMockSessionRepository(), nil)

	if _, err := service.DetectHijacking(context.Background(), "nope", []string{session.FactorIPChange}); err == nil {
		t.Error("DetectHijacking() accepted an unknown session")
	}
}

func TestSessionService_Terminate(t *testing.T) {
	repo := testutil.NewMockSessionRepository()
	service := newSessionService(repo, nil)
	ctx := context.Background()

	id, _ := service.Create(ctx, session.CreateParams{
		UserID:      1,
		Token:       "tok-abcdef0123456789",
		Fingerprint: testDevice(),
	})

	// Ownership is enforced
	if err := service.Terminate(ctx, id, 2); err == nil {
		t.Error("Terminate() allowed a different user to end the session")
	}
	if !repo.Sessions[id].IsActive {
		t.Fatal("session ended by a non-owner")
	}

	if err := service.Terminate(ctx, id, 1); err != nil {
		t.Fatalf("Terminate() error = %v", err)
	}
	if repo.Sessions[id].IsActive {
		t.Error("session still active after Terminate()")
	}
	if repo.Sessions[id].EndReason != session.EndReasonTerminated {
		t.Errorf("EndReason = %q, want %q", repo.Sessions[id].EndReason, session.EndReasonTerminated)
	}
}

func TestSessionService_TerminateOthers(t *testing.T) {
	repo := testutil.NewMockSessionRepository()
	clk := clock.NewFake(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	service := newSessionService(repo, clk)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		id, _ := service.Create(ctx, session.CreateParams{
			UserID:      1,
			Token:       fmt.Sprintf("tok-%d-abcdef0123456789", i),
			Fingerprint: testDevice(),
		})
		ids = append(ids, id)
		clk.Advance(time.Minute)
	}

	ended, err := service.TerminateOthers(ctx, 1, ids[2])
	if err != nil {
		t.Fatalf("TerminateOthers() error = %v", err)
	}
	if ended != 2 {
		t.Errorf("ended = %d, want 2", ended)
	}
	if !repo.Sessions[ids[2]].IsActive {
		t.Error("kept session was terminated")
	}
}
