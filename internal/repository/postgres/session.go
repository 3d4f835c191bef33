package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/argussec/argus/internal/domain/session"
	"github.com/argussec/argus/internal/pkg/errors"
)

type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) session.Repository {
	return &SessionRepository{db: db}
}

const sessionColumns = `id, user_id, token_hash, fingerprint_hash, ip_address, device_info,
	created_at, last_activity, expires_at, risk_score, is_active, end_reason`

func (r *SessionRepository) Create(ctx context.Context, s *session.Session) error {
	query := `
		INSERT INTO sessions
			(id, user_id, token_hash, fingerprint_hash, ip_address, device_info,
			 created_at, last_activity, expires_at, risk_score, is_active, end_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.UserID, s.TokenHash, s.FingerprintHash, s.IPAddress, s.DeviceInfo,
		s.CreatedAt.Format(time.RFC3339), s.LastActivity.Format(time.RFC3339),
		s.ExpiresAt.Format(time.RFC3339), s.RiskScore, s.IsActive, s.EndReason,
	)
	if err != nil {
		return errors.StoreUnavailable("Failed to create session", err)
	}
	return nil
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (*session.Session, error) {
	query := "SELECT " + sessionColumns + " FROM sessions WHERE id = ?"
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *SessionRepository) GetByTokenHash(ctx context.Context, userID int64, tokenHash string) (*session.Session, error) {
	query := "SELECT " + sessionColumns + " FROM sessions WHERE user_id = ? AND token_hash = ?"
	return r.scanOne(r.db.QueryRowContext(ctx, query, userID, tokenHash))
}

func (r *SessionRepository) ListActive(ctx context.Context, userID int64, now time.Time) ([]*session.Session, error) {
	// Oldest activity first: the head of this list is the eviction candidate
	query := "SELECT " + sessionColumns + ` FROM sessions
		WHERE user_id = ? AND is_active = ? AND expires_at > ?
		ORDER BY last_activity ASC`

	rows, err := r.db.QueryContext(ctx, query, userID, true, now.Format(time.RFC3339))
	if err != nil {
		return nil, errors.StoreUnavailable("Failed to list sessions", err)
	}
	defer rows.Close()

	sessions := make([]*session.Session, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.StoreUnavailable("Failed to iterate sessions", err)
	}
	return sessions, nil
}

func (r *SessionRepository) TouchActivity(ctx context.Context, id string, ts time.Time, riskScore float64) error {
	// Conditional so a stale writer cannot move last_activity backwards
	query := `
		UPDATE sessions SET last_activity = ?, risk_score = ?
		WHERE id = ? AND is_active = ? AND last_activity <= ?
	`

	stamp := ts.Format(time.RFC3339)
	_, err := r.db.ExecContext(ctx, query, stamp, riskScore, id, true, stamp)
	if err != nil {
		return errors.StoreUnavailable("Failed to touch session", err)
	}
	return nil
}

func (r *SessionRepository) End(ctx context.Context, id, reason string) error {
	// Ending twice is a no-op: the is_active guard keeps the first reason
	query := `
		UPDATE sessions SET is_active = ?, end_reason = ?
		WHERE id = ? AND is_active = ?
	`

	_, err := r.db.ExecContext(ctx, query, false, reason, id, true)
	if err != nil {
		return errors.StoreUnavailable("Failed to end session", err)
	}
	return nil
}

func (r *SessionRepository) EndAllExcept(ctx context.Context, userID int64, keepID, reason string) (int, error) {
	query := `
		UPDATE sessions SET is_active = ?, end_reason = ?
		WHERE user_id = ? AND id != ? AND is_active = ?
	`

	result, err := r.db.ExecContext(ctx, query, false, reason, userID, keepID, true)
	if err != nil {
		return 0, errors.StoreUnavailable("Failed to end sessions", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, errors.StoreUnavailable("Failed to get affected rows", err)
	}
	return int(rows), nil
}

func (r *SessionRepository) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE sessions SET is_active = ?, end_reason = ?
		WHERE is_active = ? AND expires_at <= ?
	`

	result, err := r.db.ExecContext(ctx, query, false, session.EndReasonExpired, true, now.Format(time.RFC3339))
	if err != nil {
		return 0, errors.StoreUnavailable("Failed to expire sessions", err)
	}
	return result.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *SessionRepository) scanOne(row *sql.Row) (*session.Session, error) {
	s, err := scanSession(row)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok && appErr.Code == errors.ErrCodeNotFound {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

func scanSession(row rowScanner) (*session.Session, error) {
	var s session.Session
	var createdAt, lastActivity, expiresAt string
	var endReason sql.NullString

	err := row.Scan(
		&s.ID, &s.UserID, &s.TokenHash, &s.FingerprintHash, &s.IPAddress, &s.DeviceInfo,
		&createdAt, &lastActivity, &expiresAt, &s.RiskScore, &s.IsActive, &endReason,
	)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("Session")
	}
	if err != nil {
		return nil, errors.StoreUnavailable("Failed to scan session", err)
	}

	s.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	s.LastActivity, _ = time.Parse(time.RFC3339, lastActivity)
	s.ExpiresAt, _ = time.Parse(time.RFC3339, expiresAt)
	s.EndReason = endReason.String
	return &s, nil
}
