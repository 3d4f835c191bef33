package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/argussec/argus/internal/domain/ratelimit"
	"github.com/argussec/argus/internal/pkg/clock"
	"github.com/argussec/argus/internal/pkg/logger"
	"github.com/argussec/argus/internal/testutil"
)

func newRateLimitService(counters ratelimit.CounterRepository, activity ratelimit.ActivityRepository, clk clock.Clock, opts RateLimitServiceOptions) *RateLimitService {
	log := logger.New(logger.Config{Level: "error", Format: "json"})
	return NewRateLimitService(counters, activity, nil, clk, log, opts)
}

func TestRateLimitService_CheckRateLimit(t *testing.T) {
	counters := testutil.NewMockCounterRepository()
	clk := clock.NewFake(time.Date(2026, 3, 1, 12, 0, 30, 0, time.UTC))
	service := newRateLimitService(counters, testutil.NewMockActivityRepository(), clk, RateLimitServiceOptions{})
	ctx := context.Background()

	// /api/auth allows 10 per minute
	for i := 1; i <= 10; i++ {
		decision, err := service.CheckRateLimit(ctx, "/api/auth/login", "user:42")
		if err != nil {
			t.Fatalf("CheckRateLimit() #%d error = %v", i, err)
		}
		if !decision.Allowed {
			t.Fatalf("request #%d denied, want allowed", i)
		}
		if decision.Remaining != 10-i {
			t.Errorf("request #%d remaining = %d, want %d", i, decision.Remaining, 10-i)
		}
	}

	decision, err := service.CheckRateLimit(ctx, "/api/auth/login", "user:42")
	if err != nil {
		t.Fatalf("CheckRateLimit() #11 error = %v", err)
	}
	if decision.Allowed {
		t.Error("request #11 allowed, want denied")
	}
	if decision.RetryAfter <= 0 {
		t.Errorf("RetryAfter = %d, want positive", decision.RetryAfter)
	}
}

func TestRateLimitService_CheckRateLimit_WindowReset(t *testing.T) {
	counters := testutil.NewMockCounterRepository()
	clk := clock.NewFake(time.Date(2026, 3, 1, 12, 0, 30, 0, time.UTC))
	service := newRateLimitService(counters, testutil.NewMockActivityRepository(), clk, RateLimitServiceOptions{})
	ctx := context.Background()

	for i := 0; i < 11; i++ {
		service.CheckRateLimit(ctx, "/api/auth/login", "user:42")
	}

	clk.Advance(time.Minute)
	decision, err := service.CheckRateLimit(ctx, "/api/auth/login", "user:42")
	if err != nil {
		t.Fatalf("CheckRateLimit() error = %v", err)
	}
	if !decision.Allowed {
		t.Error("request in fresh window denied, want allowed")
	}
}

func TestRateLimitService_CheckRateLimit_IsolatesActors(t *testing.T) {
	counters := testutil.NewMockCounterRepository()
	service := newRateLimitService(counters, testutil.NewMockActivityRepository(), clock.NewFake(time.Now()), RateLimitServiceOptions{})
	ctx := context.Background()

	for i := 0; i < 11; i++ {
		service.CheckRateLimit(ctx, "/api/auth/login", "user:1")
	}

	decision, _ := service.CheckRateLimit(ctx, "/api/auth/login", "user:2")
	if !decision.Allowed {
		t.Error("second actor denied by first actor's consumption")
	}
}

func TestRateLimitService_CheckRateLimit_FailsClosed(t *testing.T) {
	counters := testutil.NewMockCounterRepository()
	counters.IncrementError = fmt.Errorf("connection refused")
	service := newRateLimitService(counters, testutil.NewMockActivityRepository(), nil, RateLimitServiceOptions{})

	decision, err := service.CheckRateLimit(context.Background(), "/api/data", "user:1")
	if err != nil {
		t.Fatalf("CheckRateLimit() error = %v, want fail-closed decision", err)
	}
	if decision.Allowed {
		t.Error("Allowed = true on counter outage, want denied")
	}
	if decision.RetryAfter <= 0 {
		t.Errorf("RetryAfter = %d, want positive", decision.RetryAfter)
	}
}

func TestRateLimitService_PeekRateLimit(t *testing.T) {
	counters := testutil.NewMockCounterRepository()
	service := newRateLimitService(counters, testutil.NewMockActivityRepository(), clock.NewFake(time.Now()), RateLimitServiceOptions{})
	ctx := context.Background()

	service.CheckRateLimit(ctx, "/api/auth/login", "user:42")

	before, _ := service.PeekRateLimit(ctx, "/api/auth/login", "user:42")
	after, _ := service.PeekRateLimit(ctx, "/api/auth/login", "user:42")

	if before.Remaining != 9 {
		t.Errorf("Remaining = %d, want 9", before.Remaining)
	}
	if before.Remaining != after.Remaining {
		t.Errorf("Peek consumed a request: %d then %d", before.Remaining, after.Remaining)
	}
}

func TestRateLimitService_DetectAbuse(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	browserUA := "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36"

	tests := []struct {
		name       string
		userAgent  string
		logs       int
		endpoints  int
		wantAbuse  bool
		wantReason string
	}{
		{
			name:      "normal browser traffic",
			userAgent: browserUA,
			logs:      5,
			endpoints: 2,
			wantAbuse: false,
		},
		{
			name:       "bot user agent",
			userAgent:  "curl/8.4.0",
			wantAbuse:  true,
			wantReason: ratelimit.AbuseReasonBotSignature,
		},
		{
			name:       "empty user agent",
			userAgent:  "",
			wantAbuse:  true,
			wantReason: ratelimit.AbuseReasonBotSignature,
		},
		{
			name:       "burst volume",
			userAgent:  browserUA,
			logs:       30,
			endpoints:  2,
			wantAbuse:  true,
			wantReason: ratelimit.AbuseReasonBurst,
		},
		{
			name:       "endpoint fan-out",
			userAgent:  browserUA,
			logs:       22,
			endpoints:  11,
			wantAbuse:  true,
			wantReason: ratelimit.AbuseReasonFanOut,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			activity := testutil.NewMockActivityRepository()
			for i := 0; i < tt.logs; i++ {
				activity.Logs = append(activity.Logs, &ratelimit.RequestLog{
					ActorKey:  "actor:1",
					Endpoint:  fmt.Sprintf("/api/resource/%d", i%tt.endpoints),
					Method:    "GET",
					CreatedAt: now.Add(-10 * time.Second),
				})
			}

			service := newRateLimitService(testutil.NewMockCounterRepository(), activity, clock.NewFake(now), RateLimitServiceOptions{})
			abuse, reason, err := service.DetectAbuse(context.Background(), "/api/resource/0", tt.userAgent, "actor:1")
			if err != nil {
				t.Fatalf("DetectAbuse() error = %v", err)
			}

			if abuse != tt.wantAbuse {
				t.Errorf("abuse = %v, want %v", abuse, tt.wantAbuse)
			}
			if reason != tt.wantReason {
				t.Errorf("reason = %q, want %q", reason, tt.wantReason)
			}
		})
	}
}

func TestRateLimitService_DetectAbuse_FailsOpen(t *testing.T) {
	activity := testutil.NewMockActivityRepository()
	activity.ActivityError = fmt.Errorf("connection refused")
	service := newRateLimitService(testutil.NewMockCounterRepository(), activity, nil, RateLimitServiceOptions{})

	abuse, _, err := service.DetectAbuse(context.Background(), "/api/data", "Mozilla/5.0", "actor:1")
	if err != nil {
		t.Fatalf("DetectAbuse() error = %v, want fail-open", err)
	}
	if abuse {
		t.Error("abuse = true on history outage, want not enough data to call abuse")
	}
}

func TestRateLimitService_ValidateRequest_Signature(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	opts := RateLimitServiceOptions{SigningKey: "test-signing-key"}

	newService := func() *RateLimitService {
		return newRateLimitService(testutil.NewMockCounterRepository(), testutil.NewMockActivityRepository(), clock.NewFake(now), opts)
	}

	t.Run("valid signature", func(t *testing.T) {
		service := newService()
		sig := service.SignRequest("POST", "/api/data", `{"k":"v"}`, now)

		outcome, err := service.ValidateRequest(context.Background(), ratelimit.ValidateParams{
			Endpoint:  "/api/data",
			Method:    "POST",
			ActorKey:  "user:1",
			UserAgent: "Mozilla/5.0",
			Body:      `{"k":"v"}`,
			Signature: sig,
			Timestamp: now,
		})
		if err != nil {
			t.Fatalf("ValidateRequest() error = %v", err)
		}
		if !outcome.Allowed {
			t.Errorf("Allowed = false, reason %q, want signed request admitted", outcome.Reason)
		}
	})

	t.Run("stale timestamp", func(t *testing.T) {
		service := newService()
		signedAt := now.Add(-10 * time.Minute)
		sig := service.SignRequest("POST", "/api/data", "", signedAt)

		outcome, err := service.ValidateRequest(context.Background(), ratelimit.ValidateParams{
			Endpoint:  "/api/data",
			Method:    "POST",
			ActorKey:  "user:1",
			UserAgent: "Mozilla/5.0",
			Signature: sig,
			Timestamp: signedAt,
		})
		if err != nil {
			t.Fatalf("ValidateRequest() error = %v", err)
		}
		if outcome.Allowed {
			t.Error("Allowed = true for a 10-minute-old signature, want replay window enforced")
		}
		if outcome.Reason != ratelimit.ReasonStaleSignature {
			t.Errorf("Reason = %q, want %q", outcome.Reason, ratelimit.ReasonStaleSignature)
		}
	})

	t.Run("tampered body", func(t *testing.T) {
		service := newService()
		sig := service.SignRequest("POST", "/api/data", `{"amount":10}`, now)

		outcome, err := service.ValidateRequest(context.Background(), ratelimit.ValidateParams{
			Endpoint:  "/api/data",
			Method:    "POST",
			ActorKey:  "user:1",
			UserAgent: "Mozilla/5.0",
			Body:      `{"amount":10000}`,
			Signature: sig,
			Timestamp: now,
		})
		if err != nil {
			t.Fatalf("ValidateRequest() error = %v", err)
		}
		if outcome.Allowed {
			t.Error("Allowed = true for a tampered body, want signature mismatch")
		}
		if outcome.Reason != ratelimit.ReasonInvalidSignature {
			t.Errorf("Reason = %q, want %q", outcome.Reason, ratelimit.ReasonInvalidSignature)
		}
	})

	t.Run("unsigned request passes", func(t *testing.T) {
		service := newService()
		outcome, err := service.ValidateRequest(context.Background(), ratelimit.ValidateParams{
			Endpoint:  "/api/data",
			Method:    "GET",
			ActorKey:  "user:1",
			UserAgent: "Mozilla/5.0",
		})
		if err != nil {
			t.Fatalf("ValidateRequest() error = %v", err)
		}
		if !outcome.Allowed {
			t.Errorf("Allowed = false for unsigned request, signatures are optional")
		}
	})
}

func TestRateLimitService_ValidateRequest_RateLimited(t *testing.T) {
	counters := testutil.NewMockCounterRepository()
	activity := testutil.NewMockActivityRepository()
	service := newRateLimitService(counters, activity, clock.NewFake(time.Now()), RateLimitServiceOptions{})
	ctx := context.Background()

	var outcome *ratelimit.Outcome
	var err error
	for i := 0; i < 11; i++ {
		outcome, err = service.ValidateRequest(ctx, ratelimit.ValidateParams{
			Endpoint:  "/api/auth/login",
			Method:    "POST",
			ActorKey:  "user:1",
			UserAgent: "Mozilla/5.0",
		})
		if err != nil {
			t.Fatalf("ValidateRequest() #%d error = %v", i+1, err)
		}
	}

	if outcome.Allowed {
		t.Error("Allowed = true for request #11, want rate limited")
	}
	if outcome.Reason != ratelimit.ReasonRateLimitExceeded {
		t.Errorf("Reason = %q, want %q", outcome.Reason, ratelimit.ReasonRateLimitExceeded)
	}

	// Every request, denied or not, lands in the activity log
	if len(activity.Logs) != 11 {
		t.Errorf("logged %d requests, want 11", len(activity.Logs))
	}
}

func TestRateLimitService_RequestRiskScore(t *testing.T) {
	service := newRateLimitService(testutil.NewMockCounterRepository(), testutil.NewMockActivityRepository(), nil, RateLimitServiceOptions{})

	tests := []struct {
		name string
		p    ratelimit.ValidateParams
		out  ratelimit.Outcome
		want float64
	}{
		{
			name: "clean request",
			p:    ratelimit.ValidateParams{Endpoint: "/api/data", StatusCode: 200, UserAgent: "Mozilla/5.0"},
			out:  ratelimit.Outcome{Allowed: true},
			want: 0,
		},
		{
			name: "auth failure on sensitive path",
			p:    ratelimit.ValidateParams{Endpoint: "/api/auth/login", StatusCode: 401, UserAgent: "Mozilla/5.0"},
			out:  ratelimit.Outcome{Allowed: true},
			want: 60,
		},
		{
			name: "denied bot hitting admin",
			p:    ratelimit.ValidateParams{Endpoint: "/api/admin/users", StatusCode: 403, UserAgent: "curl/8.0"},
			out:  ratelimit.Outcome{Allowed: false, IsSuspicious: true},
			want: 100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := service.requestRiskScore(tt.p, &tt.out)
			if got != tt.want {
				t.Errorf("requestRiskScore() = %v, want %v", got, tt.want)
			}
		})
	}
}
