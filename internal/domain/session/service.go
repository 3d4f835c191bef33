package session

import (
	"context"

	"github.com/argussec/argus/internal/pkg/fingerprint"
)

// CreateParams carries everything needed to open a session
type CreateParams struct {
	UserID      int64
	Token       string
	Fingerprint fingerprint.Device
	IPAddress   string
}

// ValidateParams carries the caller's presented credentials for validation
type ValidateParams struct {
	UserID      int64
	Token       string
	Fingerprint fingerprint.Device
	IPAddress   string
}

// Service defines the session integrity contract
type Service interface {
	// Create opens a session, evicting the user's oldest sessions first when
	// the concurrency limit would be exceeded (make-room policy)
	Create(ctx context.Context, p CreateParams) (string, error)

	// Validate recomputes hashes, compares them against the stored session
	// and accumulates risk factors. Store outages fail closed: the result is
	// invalid with action "reauthenticate".
	Validate(ctx context.Context, p ValidateParams) (*ValidationResult, error)

	// DetectHijacking scores the named indicators against the session. A
	// score above HijackThreshold invalidates the session immediately.
	DetectHijacking(ctx context.Context, sessionID string, indicators []string) (bool, error)

	// ListActive returns the user's active sessions
	ListActive(ctx context.Context, userID int64) ([]*Session, error)

	// Terminate ends one session owned by the user
	Terminate(ctx context.Context, id string, userID int64) error

	// TerminateOthers ends all of the user's sessions except keepID
	TerminateOthers(ctx context.Context, userID int64, keepID string) (int, error)
}
