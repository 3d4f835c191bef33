package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/argussec/argus/internal/domain/session"
	"github.com/argussec/argus/internal/repository/postgres"
	"github.com/argussec/argus/internal/testutil"
)

func seedSession(id string, userID int64, lastActivity time.Time) *session.Session {
	return &session.Session{
		ID:              id,
		UserID:          userID,
		TokenHash:       "hash-" + id,
		FingerprintHash: "fp-" + id,
		IPAddress:       "198.51.100.10",
		DeviceInfo:      "Firefox on Linux",
		CreatedAt:       lastActivity,
		LastActivity:    lastActivity,
		ExpiresAt:       lastActivity.Add(24 * time.Hour),
		IsActive:        true,
	}
}

func TestSessionRepository_CreateAndGet(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := postgres.NewSessionRepository(db)
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := repo.Create(ctx, seedSession("s1", 1, now)); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.GetByID(ctx, "s1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got == nil {
		t.Fatal("GetByID() = nil for an existing session")
	}
	if got.TokenHash != "hash-s1" || got.UserID != 1 {
		t.Errorf("GetByID() = %+v, fields not round-tripped", got)
	}
	if !got.ExpiresAt.Equal(now.Add(24 * time.Hour)) {
		t.Errorf("ExpiresAt = %v, want %v", got.ExpiresAt, now.Add(24*time.Hour))
	}

	missing, err := repo.GetByID(ctx, "nope")
	if err != nil {
		t.Fatalf("GetByID(missing) error = %v", err)
	}
	if missing != nil {
		t.Error("GetByID(missing) != nil, want nil without error")
	}
}

func TestSessionRepository_GetByTokenHash(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := postgres.NewSessionRepository(db)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	repo.Create(ctx, seedSession("s1", 1, now))

	got, err := repo.GetByTokenHash(ctx, 1, "hash-s1")
	if err != nil {
		t.Fatalf("GetByTokenHash() error = %v", err)
	}
	if got == nil || got.ID != "s1" {
		t.Errorf("GetByTokenHash() = %+v, want session s1", got)
	}

	// The hash is scoped to the user
	other, err := repo.GetByTokenHash(ctx, 2, "hash-s1")
	if err != nil {
		t.Fatalf("GetByTokenHash(other user) error = %v", err)
	}
	if other != nil {
		t.Error("token hash matched across users")
	}
}

func TestSessionRepository_ListActive(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := postgres.NewSessionRepository(db)
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo.Create(ctx, seedSession("newer", 1, now))
	repo.Create(ctx, seedSession("older", 1, now.Add(-time.Hour)))
	repo.Create(ctx, seedSession("other-user", 2, now))

	expired := seedSession("expired", 1, now.Add(-48*time.Hour))
	repo.Create(ctx, expired)

	ended := seedSession("ended", 1, now)
	repo.Create(ctx, ended)
	repo.End(ctx, "ended", session.EndReasonTerminated)

	active, err := repo.ListActive(ctx, 1, now)
	if err != nil {
		t.Fatalf("ListActive() error = %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("ListActive() = %d sessions, want 2", len(active))
	}
	// Oldest activity first, that is the eviction candidate
	if active[0].ID != "older" || active[1].ID != "newer" {
		t.Errorf("ListActive() order = [%s %s], want oldest first", active[0].ID, active[1].ID)
	}
}

func TestSessionRepository_TouchActivity(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := postgres.NewSessionRepository(db)
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo.Create(ctx, seedSession("s1", 1, now))

	later := now.Add(10 * time.Minute)
	if err := repo.TouchActivity(ctx, "s1", later, 35); err != nil {
		t.Fatalf("TouchActivity() error = %v", err)
	}

	got, _ := repo.GetByID(ctx, "s1")
	if !got.LastActivity.Equal(later) {
		t.Errorf("LastActivity = %v, want %v", got.LastActivity, later)
	}
	if got.RiskScore != 35 {
		t.Errorf("RiskScore = %v, want 35", got.RiskScore)
	}

	// A stale writer cannot move activity backwards
	if err := repo.TouchActivity(ctx, "s1", now, 0); err != nil {
		t.Fatalf("stale TouchActivity() error = %v", err)
	}
	got, _ = repo.GetByID(ctx, "s1")
	if !got.LastActivity.Equal(later) {
		t.Errorf("LastActivity moved backwards to %v", got.LastActivity)
	}
}

func TestSessionRepository_End(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := postgres.NewSessionRepository(db)
	ctx := context.Background()

	repo.Create(ctx, seedSession("s1", 1, time.Now().UTC()))

	if err := repo.End(ctx, "s1", session.EndReasonHijacked); err != nil {
		t.Fatalf("End() error = %v", err)
	}

	got, _ := repo.GetByID(ctx, "s1")
	if got.IsActive {
		t.Error("session still active after End()")
	}
	if got.EndReason != session.EndReasonHijacked {
		t.Errorf("EndReason = %q, want %q", got.EndReason, session.EndReasonHijacked)
	}

	// Ending twice keeps the first reason
	if err := repo.End(ctx, "s1", session.EndReasonExpired); err != nil {
		t.Fatalf("second End() error = %v", err)
	}
	got, _ = repo.GetByID(ctx, "s1")
	if got.EndReason != session.EndReasonHijacked {
		t.Errorf("EndReason overwritten to %q", got.EndReason)
	}
}

func TestSessionRepository_EndAllExcept(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := postgres.NewSessionRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	repo.Create(ctx, seedSession("keep", 1, now))
	repo.Create(ctx, seedSession("drop1", 1, now))
	repo.Create(ctx, seedSession("drop2", 1, now))
	repo.Create(ctx, seedSession("other", 2, now))

	ended, err := repo.EndAllExcept(ctx, 1, "keep", session.EndReasonTerminated)
	if err != nil {
		t.Fatalf("EndAllExcept() error = %v", err)
	}
	if ended != 2 {
		t.Errorf("EndAllExcept() = %d, want 2", ended)
	}

	kept, _ := repo.GetByID(ctx, "keep")
	if !kept.IsActive {
		t.Error("kept session was ended")
	}
	other, _ := repo.GetByID(ctx, "other")
	if !other.IsActive {
		t.Error("another user's session was ended")
	}
}

func TestSessionRepository_ExpireDue(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := postgres.NewSessionRepository(db)
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo.Create(ctx, seedSession("live", 1, now))
	repo.Create(ctx, seedSession("due", 1, now.Add(-48*time.Hour)))

	expired, err := repo.ExpireDue(ctx, now)
	if err != nil {
		t.Fatalf("ExpireDue() error = %v", err)
	}
	if expired != 1 {
		t.Errorf("ExpireDue() = %d, want 1", expired)
	}

	due, _ := repo.GetByID(ctx, "due")
	if due.IsActive || due.EndReason != session.EndReasonExpired {
		t.Errorf("due session = active:%v reason:%q, want expired", due.IsActive, due.EndReason)
	}
}
