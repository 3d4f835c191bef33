package services

import (
	"context"
	"fmt"
	"time"

	"github.com/argussec/argus/internal/domain/event"
	"github.com/argussec/argus/internal/domain/indicator"
	"github.com/argussec/argus/internal/domain/session"
	"github.com/argussec/argus/internal/pkg/clock"
	"github.com/argussec/argus/internal/pkg/errors"
	"github.com/argussec/argus/internal/pkg/fingerprint"
	"github.com/argussec/argus/internal/pkg/logger"
	"github.com/argussec/argus/internal/pkg/metrics"
	"github.com/google/uuid"
)

// GeoResolver maps an IP address to a country code. Real geolocation lives
// outside this core; a nil resolver disables location checks.
type GeoResolver interface {
	CountryFor(ctx context.Context, ip string) (string, error)
}

// SessionService implements session.Service: fingerprint-bound sessions with
// a per-user concurrency cap and hijack detection.
type SessionService struct {
	repo          session.Repository
	bus           event.Bus
	threat        indicator.Service
	geo           GeoResolver
	clock         clock.Clock
	logger        *logger.Logger
	maxConcurrent int
	ttl           time.Duration
}

// SessionServiceOptions tunes the session service
type SessionServiceOptions struct {
	MaxConcurrent int
	TTL           time.Duration
}

// NewSessionService creates a new session integrity service. The threat
// service and geo resolver are optional collaborators.
func NewSessionService(repo session.Repository, bus event.Bus, threat indicator.Service, geo GeoResolver, clk clock.Clock, log *logger.Logger, opts SessionServiceOptions) *SessionService {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 3
	}
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &SessionService{
		repo:          repo,
		bus:           bus,
		threat:        threat,
		geo:           geo,
		clock:         clk,
		logger:        log,
		maxConcurrent: opts.MaxConcurrent,
		ttl:           opts.TTL,
	}
}

// Create opens a session for the user, evicting the oldest active sessions
// first when the concurrency cap would be exceeded.
func (s *SessionService) Create(ctx context.Context, p session.CreateParams) (string, error) {
	if err := p.Fingerprint.Validate(); err != nil {
		return "", errors.InvalidFingerprint(err.Error())
	}
	if p.Token == "" {
		return "", errors.BadRequest("session token is required")
	}

	now := s.clock.Now()

	active, err := s.repo.ListActive(ctx, p.UserID, now)
	if err != nil {
		return "", errors.StoreUnavailable("failed to load active sessions", err)
	}

	// Make-room policy: evict oldest by last activity until under the cap
	for len(active) >= s.maxConcurrent {
		oldest := active[0]
		if err := s.repo.End(ctx, oldest.ID, session.EndReasonEvicted); err != nil {
			return "", errors.StoreUnavailable("failed to evict session", err)
		}
		metrics.RecordSessionEnded(session.EndReasonEvicted)
		s.publishSessionEvent(ctx, event.TypeSessionEvicted, event.SeverityLow,
			"Session evicted by concurrency limit", oldest.ID, p.UserID, oldest.IPAddress)
		active = active[1:]
	}

	sess := &session.Session{
		ID:              uuid.New().String(),
		UserID:          p.UserID,
		TokenHash:       fingerprint.HashToken(p.Token),
		FingerprintHash: fingerprint.Hash(p.Fingerprint),
		IPAddress:       p.IPAddress,
		DeviceInfo:      deviceInfo(p.Fingerprint),
		CreatedAt:       now,
		LastActivity:    now,
		ExpiresAt:       now.Add(s.ttl),
		IsActive:        true,
	}

	if err := s.repo.Create(ctx, sess); err != nil {
		return "", errors.StoreUnavailable("failed to create session", err)
	}

	metrics.RecordSessionCreated()
	s.publishSessionEvent(ctx, event.TypeSessionCreated, event.SeverityLow,
		"Session created", sess.ID, p.UserID, p.IPAddress)

	s.logger.WithFields(map[string]interface{}{
		"session_id": sess.ID,
		"user_id":    p.UserID,
	}).Info("Session created")

	return sess.ID, nil
}

// deviceInfo keeps a human-readable device summary beside the hashes
func deviceInfo(d fingerprint.Device) string {
	return fmt.Sprintf("%s|%s", d.UserAgent, d.Platform)
}

// Validate recomputes hashes and compares the presented identity against the
// stored session. Store outages fail closed: granting access on ambiguous
// session state is the higher-risk failure.
func (s *SessionService) Validate(ctx context.Context, p session.ValidateParams) (*session.ValidationResult, error) {
	failClosed := &session.ValidationResult{
		IsValid:        false,
		RiskFactors:    []string{},
		ActionRequired: session.ActionReauthenticate,
	}

	if err := p.Fingerprint.Validate(); err != nil {
		failClosed.RiskFactors = append(failClosed.RiskFactors, session.FactorInvalidSessionData)
		failClosed.RiskScore = session.FactorWeight(session.FactorInvalidSessionData)
		return failClosed, nil
	}

	now := s.clock.Now()
	tokenHash := fingerprint.HashToken(p.Token)

	sess, err := s.repo.GetByTokenHash(ctx, p.UserID, tokenHash)
	if err != nil {
		s.logger.WithFields(map[string]interface{}{
			"user_id": p.UserID,
		}).ErrorWithErr(err, "Session lookup failed, failing closed")
		return failClosed, nil
	}
	if sess == nil || !sess.IsActive {
		return failClosed, nil
	}
	if now.After(sess.ExpiresAt) {
		if err := s.repo.End(ctx, sess.ID, session.EndReasonExpired); err != nil {
			s.logger.ErrorWithErr(err, "Failed to expire session")
		} else {
			metrics.RecordSessionEnded(session.EndReasonExpired)
		}
		return failClosed, nil
	}

	factors := s.collectRiskFactors(ctx, sess, p)

	var riskScore float64
	for _, f := range factors {
		riskScore += session.FactorWeight(f)
	}
	if riskScore > 100 {
		riskScore = 100
	}

	if err := s.repo.TouchActivity(ctx, sess.ID, now, riskScore); err != nil {
		s.logger.ErrorWithErr(err, "Failed to update session activity")
	}

	if len(factors) >= 2 {
		s.publishDriftEvent(ctx, sess, factors, riskScore)
	}

	return &session.ValidationResult{
		IsValid:        true,
		SessionID:      sess.ID,
		RiskFactors:    factors,
		RiskScore:      riskScore,
		ActionRequired: session.ActionForFactors(factors),
	}, nil
}

// collectRiskFactors compares the presented identity with the stored one and
// consults the optional geo and threat collaborators.
func (s *SessionService) collectRiskFactors(ctx context.Context, sess *session.Session, p session.ValidateParams) []string {
	factors := []string{}

	if fingerprint.Hash(p.Fingerprint) != sess.FingerprintHash {
		factors = append(factors, session.FactorFingerprintMismatch)
	}
	if storedUA := storedUserAgent(sess.DeviceInfo); storedUA != "" && storedUA != p.Fingerprint.UserAgent {
		factors = append(factors, session.FactorUserAgentChange)
	}
	if p.IPAddress != "" && p.IPAddress != sess.IPAddress {
		factors = append(factors, session.FactorIPChange)
	}

	if s.geo != nil && p.IPAddress != "" && p.IPAddress != sess.IPAddress {
		oldCountry, errOld := s.geo.CountryFor(ctx, sess.IPAddress)
		newCountry, errNew := s.geo.CountryFor(ctx, p.IPAddress)
		if errOld == nil && errNew == nil && oldCountry != newCountry {
			factors = append(factors, session.FactorUnusualLocation)
		}
	}

	// A caller IP that threat intel says to block is treated as a location
	// anomaly even without a geo resolver
	if s.threat != nil && p.IPAddress != "" && !contains(factors, session.FactorUnusualLocation) {
		if result, err := s.threat.CheckIndicator(ctx, indicator.TypeIP, p.IPAddress); err == nil {
			if result.Recommendation == indicator.RecommendationBlock {
				factors = append(factors, session.FactorUnusualLocation)
			}
		}
	}

	return factors
}

func storedUserAgent(deviceInfo string) string {
	for i := 0; i < len(deviceInfo); i++ {
		if deviceInfo[i] == '|' {
			return deviceInfo[:i]
		}
	}
	return deviceInfo
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// DetectHijacking scores the named indicators and invalidates the session
// when the total crosses the threshold. Below the threshold the session stays
// active: minor drift alone does not force re-auth.
func (s *SessionService) DetectHijacking(ctx context.Context, sessionID string, indicators []string) (bool, error) {
	sess, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		return false, errors.StoreUnavailable("failed to load session", err)
	}
	if sess == nil {
		return false, errors.SessionNotFound()
	}

	var score float64
	for _, ind := range indicators {
		score += session.FactorWeight(ind)
	}

	fields := map[string]interface{}{
		"session_id": sessionID,
		"user_id":    sess.UserID,
		"score":      score,
		"indicators": indicators,
	}

	if score <= session.HijackThreshold {
		s.logger.WithFields(fields).Info("Hijack indicators below threshold, session kept")
		return false, nil
	}

	if err := s.repo.End(ctx, sessionID, session.EndReasonHijacked); err != nil {
		return false, errors.StoreUnavailable("failed to invalidate session", err)
	}
	metrics.RecordSessionEnded(session.EndReasonHijacked)
	s.logger.WithFields(fields).Warn("Session hijacking detected, session invalidated")

	if s.bus != nil {
		_, err := s.bus.Publish(ctx, &event.SecurityEvent{
			EventType:   event.TypeSessionHijackDetected,
			Severity:    event.SeverityCritical,
			Source:      "session_integrity",
			Title:       "Session hijacking detected",
			Description: fmt.Sprintf("Session %s invalidated with hijack score %.0f", sessionID, score),
			Metadata: map[string]interface{}{
				"session_id": sessionID,
				"risk_score": score,
				"indicators": indicators,
			},
			UserID:    &sess.UserID,
			IPAddress: sess.IPAddress,
		})
		if err != nil {
			s.logger.ErrorWithErr(err, "Failed to publish hijack event")
		}
	}

	return true, nil
}

// ListActive returns the user's active sessions
func (s *SessionService) ListActive(ctx context.Context, userID int64) ([]*session.Session, error) {
	sessions, err := s.repo.ListActive(ctx, userID, s.clock.Now())
	if err != nil {
		return nil, errors.StoreUnavailable("failed to list sessions", err)
	}
	return sessions, nil
}

// Terminate ends one session after checking ownership
func (s *SessionService) Terminate(ctx context.Context, id string, userID int64) error {
	sess, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return errors.StoreUnavailable("failed to load session", err)
	}
	if sess == nil || sess.UserID != userID {
		return errors.SessionNotFound()
	}

	if err := s.repo.End(ctx, id, session.EndReasonTerminated); err != nil {
		return errors.StoreUnavailable("failed to terminate session", err)
	}
	metrics.RecordSessionEnded(session.EndReasonTerminated)
	s.publishSessionEvent(ctx, event.TypeSessionTerminated, event.SeverityLow,
		"Session terminated", id, userID, sess.IPAddress)
	return nil
}

// TerminateOthers ends all of the user's sessions except keepID
func (s *SessionService) TerminateOthers(ctx context.Context, userID int64, keepID string) (int, error) {
	ended, err := s.repo.EndAllExcept(ctx, userID, keepID, session.EndReasonTerminated)
	if err != nil {
		return 0, errors.StoreUnavailable("failed to terminate sessions", err)
	}
	for i := 0; i < ended; i++ {
		metrics.RecordSessionEnded(session.EndReasonTerminated)
	}
	s.publishSessionEvent(ctx, event.TypeSessionTerminated, event.SeverityLow,
		fmt.Sprintf("Terminated %d other sessions", ended), keepID, userID, "")
	return ended, nil
}

func (s *SessionService) publishSessionEvent(ctx context.Context, eventType string, severity event.Severity, title, sessionID string, userID int64, ip string) {
	if s.bus == nil {
		return
	}
	_, err := s.bus.Publish(ctx, &event.SecurityEvent{
		EventType:   eventType,
		Severity:    severity,
		Source:      "session_integrity",
		Title:       title,
		Description: title,
		Metadata: map[string]interface{}{
			"session_id": sessionID,
		},
		UserID:    &userID,
		IPAddress: ip,
	})
	if err != nil {
		s.logger.ErrorWithErr(err, "Failed to publish session event")
	}
}

func (s *SessionService) publishDriftEvent(ctx context.Context, sess *session.Session, factors []string, riskScore float64) {
	if s.bus == nil {
		return
	}
	_, err := s.bus.Publish(ctx, &event.SecurityEvent{
		EventType:   event.TypeSuspiciousActivity,
		Severity:    event.SeverityMedium,
		Source:      "session_integrity",
		Title:       "Session identity drift",
		Description: fmt.Sprintf("Session %s accumulated %d risk factors", sess.ID, len(factors)),
		Metadata: map[string]interface{}{
			"session_id":   sess.ID,
			"risk_factors": factors,
			"risk_score":   riskScore,
		},
		UserID:    &sess.UserID,
		IPAddress: sess.IPAddress,
	})
	if err != nil {
		s.logger.ErrorWithErr(err, "Failed to publish drift event")
	}
}
