package session

import (
	"context"
	"time"
)

// Repository defines the interface for session data access. Implementations
// must express mutations as conditional updates; sessions are shared rows hit
// by many request workers at once.
type Repository interface {
	// Create inserts a new session row
	Create(ctx context.Context, s *Session) error

	// GetByID retrieves a session by ID
	GetByID(ctx context.Context, id string) (*Session, error)

	// GetByTokenHash retrieves the session for (userID, tokenHash)
	GetByTokenHash(ctx context.Context, userID int64, tokenHash string) (*Session, error)

	// ListActive returns active, non-expired sessions for a user ordered by
	// last_activity ascending (oldest first, which is the eviction order)
	ListActive(ctx context.Context, userID int64, now time.Time) ([]*Session, error)

	// TouchActivity advances last_activity and risk_score. The update is
	// conditional on last_activity <= ts so a stale concurrent writer cannot
	// move the clock backwards.
	TouchActivity(ctx context.Context, id string, ts time.Time, riskScore float64) error

	// End moves a session to a terminal state. Ending an already-ended
	// session is a no-op.
	End(ctx context.Context, id, reason string) error

	// EndAllExcept ends every active session of a user except keepID and
	// returns how many were ended
	EndAllExcept(ctx context.Context, userID int64, keepID, reason string) (int, error)

	// ExpireDue flips is_active off for sessions whose expires_at has passed
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
}
