package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/argussec/argus/internal/domain/event"
	"github.com/argussec/argus/internal/pkg/clock"
	"github.com/argussec/argus/internal/pkg/errors"
	"github.com/argussec/argus/internal/pkg/logger"
	"github.com/argussec/argus/internal/pkg/metrics"
	"github.com/google/uuid"
)

// actionTimeout bounds each outbound notifier call
const actionTimeout = 10 * time.Second

// EventService implements event.Bus: a bounded in-memory ring buffer for
// low-latency reads, durable persistence, and rule-based alerting.
type EventService struct {
	repo     event.Repository
	rules    event.RuleRepository
	notifier event.Notifier
	clock    clock.Clock
	logger   *logger.Logger

	ringSize  int
	retention time.Duration

	mu   sync.RWMutex
	ring []*event.SecurityEvent
	next int
	full bool
}

// EventServiceOptions tunes the event pipeline
type EventServiceOptions struct {
	RingSize      int
	RetentionDays int
}

// NewEventService creates a new event bus and alert engine
func NewEventService(repo event.Repository, rules event.RuleRepository, notifier event.Notifier, clk clock.Clock, log *logger.Logger, opts EventServiceOptions) *EventService {
	if opts.RingSize <= 0 {
		opts.RingSize = 1000
	}
	if opts.RetentionDays <= 0 {
		opts.RetentionDays = 30
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &EventService{
		repo:      repo,
		rules:     rules,
		notifier:  notifier,
		clock:     clk,
		logger:    log,
		ringSize:  opts.RingSize,
		retention: time.Duration(opts.RetentionDays) * 24 * time.Hour,
		ring:      make([]*event.SecurityEvent, opts.RingSize),
	}
}

// Publish buffers, persists and evaluates rules for one event. Persistence
// failures are logged and swallowed so a store outage cannot crash the
// publishing engine.
func (s *EventService) Publish(ctx context.Context, ev *event.SecurityEvent) (string, error) {
	if ev.EventType == "" {
		return "", errors.BadRequest("event type is required")
	}
	if !ev.Severity.IsValid() {
		ev.Severity = event.SeverityLow
	}
	if err := event.ValidateMetadata(ev.EventType, ev.Metadata); err != nil {
		return "", errors.BadRequest(err.Error())
	}
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = s.clock.Now()
	}

	s.push(ev)
	metrics.RecordEventPublished(ev.EventType, string(ev.Severity))

	if err := s.repo.Insert(ctx, ev); err != nil {
		s.logger.WithFields(map[string]interface{}{
			"event_type": ev.EventType,
			"severity":   ev.Severity,
		}).ErrorWithErr(err, "Failed to persist security event")
	}

	s.evaluateRules(ctx, ev)

	return ev.ID, nil
}

// push appends to the circular buffer
func (s *EventService) push(ev *event.SecurityEvent) {
	s.mu.Lock()
	s.ring[s.next] = ev
	s.next++
	if s.next == s.ringSize {
		s.next = 0
		s.full = true
	}
	s.mu.Unlock()
}

// evaluateRules runs every active rule against the persisted history. Each
// rule is isolated: one failing rule never blocks the others.
func (s *EventService) evaluateRules(ctx context.Context, ev *event.SecurityEvent) {
	active, err := s.rules.ListActive(ctx)
	if err != nil {
		s.logger.ErrorWithErr(err, "Failed to load alert rules, skipping evaluation")
		return
	}

	now := s.clock.Now()
	for _, rule := range active {
		if !rule.Matches(ev) {
			continue
		}
		if err := s.evaluateRule(ctx, rule, ev, now); err != nil {
			s.logger.WithFields(map[string]interface{}{
				"rule": rule.Name,
			}).ErrorWithErr(err, "Alert rule evaluation failed")
		}
	}
}

func (s *EventService) evaluateRule(ctx context.Context, rule *event.AlertRule, ev *event.SecurityEvent, now time.Time) error {
	// Fire once per threshold crossing, not once per matching event
	if rule.InCooldown(now) {
		return nil
	}

	window := time.Duration(rule.TimeWindowMinutes) * time.Minute
	count, err := s.repo.CountMatching(ctx, rule, now.Add(-window))
	if err != nil {
		return err
	}
	if count < rule.Threshold {
		return nil
	}

	if err := s.rules.MarkFired(ctx, rule.ID, now); err != nil {
		return err
	}
	metrics.RecordRuleFired(rule.Name)

	s.logger.WithFields(map[string]interface{}{
		"rule":      rule.Name,
		"count":     count,
		"threshold": rule.Threshold,
		"actions":   rule.Actions,
	}).Warn("Alert rule fired")

	for _, action := range rule.Actions {
		s.fireAction(ctx, action, rule, ev)
	}
	return nil
}

// fireAction dispatches one configured action. Actions are fire-and-forget
// collaborators; failures are logged only.
func (s *EventService) fireAction(ctx context.Context, action string, rule *event.AlertRule, ev *event.SecurityEvent) {
	if s.notifier == nil {
		return
	}

	actx, cancel := context.WithTimeout(ctx, actionTimeout)
	defer cancel()

	var err error
	switch action {
	case event.ActionNotifyAdmin:
		err = s.notifier.NotifyAdmin(actx, ev)
	case event.ActionCreateIncident:
		err = s.notifier.CreateIncident(actx, ev)
	case event.ActionBlockIP:
		if ev.IPAddress == "" {
			err = fmt.Errorf("event carries no IP address")
		} else {
			err = s.notifier.BlockIP(actx, ev.IPAddress)
		}
	case event.ActionDisableUser:
		if ev.UserID == nil {
			err = fmt.Errorf("event carries no user ID")
		} else {
			err = s.notifier.DisableUser(actx, *ev.UserID)
		}
	default:
		err = fmt.Errorf("unknown action %q", action)
	}

	if err != nil {
		s.logger.WithFields(map[string]interface{}{
			"rule":   rule.Name,
			"action": action,
		}).ErrorWithErr(err, "Alert action failed")
	}
}

// Recent reads the ring buffer newest first. It never touches the store.
func (s *EventService) Recent(filter event.RecentFilter) []*event.SecurityEvent {
	limit := filter.Limit
	if limit <= 0 || limit > s.ringSize {
		limit = 100
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	size := s.next
	if s.full {
		size = s.ringSize
	}

	out := make([]*event.SecurityEvent, 0, limit)
	for i := 1; i <= size && len(out) < limit; i++ {
		idx := (s.next - i + s.ringSize) % s.ringSize
		ev := s.ring[idx]
		if ev == nil {
			break
		}
		if filter.EventType != "" && ev.EventType != filter.EventType {
			continue
		}
		if filter.Severity != "" && ev.Severity != filter.Severity {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// List reads persisted events
func (s *EventService) List(ctx context.Context, filter event.Filter, limit, offset int) ([]*event.SecurityEvent, int64, error) {
	events, total, err := s.repo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, errors.StoreUnavailable("failed to list events", err)
	}
	return events, total, nil
}

// Resolve closes an event. Resolution is one-way and set once.
func (s *EventService) Resolve(ctx context.Context, id, resolvedBy string) error {
	ev, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return errors.StoreUnavailable("failed to load event", err)
	}
	if ev == nil {
		return errors.NotFound("Event")
	}
	if ev.IsResolved {
		return nil
	}

	if err := s.repo.Resolve(ctx, id, resolvedBy, s.clock.Now()); err != nil {
		return errors.StoreUnavailable("failed to resolve event", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"event_id":    id,
		"resolved_by": resolvedBy,
	}).Info("Security event resolved")
	return nil
}

// Summary returns unresolved event counts by severity
func (s *EventService) Summary(ctx context.Context) (map[string]int, error) {
	resolved := false
	counts, err := s.repo.CountBySeverity(ctx, &resolved)
	if err != nil {
		return nil, errors.StoreUnavailable("failed to summarize events", err)
	}
	return counts, nil
}

// PurgeExpired deletes resolved events past the retention window. The
// sweeper calls this hourly; unresolved events are kept indefinitely.
func (s *EventService) PurgeExpired(ctx context.Context) (int64, error) {
	cutoff := s.clock.Now().Add(-s.retention)
	purged, err := s.repo.PurgeResolvedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if purged > 0 {
		s.logger.WithFields(map[string]interface{}{
			"purged": purged,
		}).Info("Purged resolved security events")
	}
	return purged, nil
}
