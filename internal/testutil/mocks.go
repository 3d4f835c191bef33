package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/argussec/argus/internal/domain/event"
	"github.com/argussec/argus/internal/domain/indicator"
	"github.com/argussec/argus/internal/domain/ratelimit"
	"github.com/argussec/argus/internal/domain/session"
	"github.com/google/uuid"
)

// MockIndicatorRepository is a mock implementation of indicator.Repository
type MockIndicatorRepository struct {
	Indicators  map[string]*indicator.ThreatIndicator
	FindCalls   int
	UpsertError error
	FindError   error
}

func NewMockIndicatorRepository() *MockIndicatorRepository {
	return &MockIndicatorRepository{
		Indicators: make(map[string]*indicator.ThreatIndicator),
	}
}

func (m *MockIndicatorRepository) Upsert(ctx context.Context, ind *indicator.ThreatIndicator) (string, error) {
	if m.UpsertError != nil {
		return "", m.UpsertError
	}
	for _, existing := range m.Indicators {
		if existing.Type == ind.Type && existing.Value == ind.Value && existing.Source == ind.Source {
			existing.ThreatType = ind.ThreatType
			existing.Severity = ind.Severity
			existing.Confidence = ind.Confidence
			existing.LastSeen = ind.LastSeen
			existing.IsActive = ind.IsActive
			return existing.ID, nil
		}
	}
	if ind.ID == "" {
		ind.ID = uuid.New().String()
	}
	stored := *ind
	m.Indicators[ind.ID] = &stored
	return ind.ID, nil
}

func (m *MockIndicatorRepository) FindActive(ctx context.Context, typ indicator.Type, value string) ([]*indicator.ThreatIndicator, error) {
	m.FindCalls++
	if m.FindError != nil {
		return nil, m.FindError
	}
	var result []*indicator.ThreatIndicator
	for _, ind := range m.Indicators {
		if ind.Type == typ && ind.Value == value && ind.IsActive {
			result = append(result, ind)
		}
	}
	return result, nil
}

func (m *MockIndicatorRepository) List(ctx context.Context, filter indicator.Filter, limit, offset int) ([]*indicator.ThreatIndicator, int64, error) {
	var result []*indicator.ThreatIndicator
	for _, ind := range m.Indicators {
		if filter.Type != "" && ind.Type != filter.Type {
			continue
		}
		if filter.Source != "" && ind.Source != filter.Source {
			continue
		}
		if filter.ActiveOnly && !ind.IsActive {
			continue
		}
		result = append(result, ind)
	}
	return result, int64(len(result)), nil
}

func (m *MockIndicatorRepository) Deactivate(ctx context.Context, id string) error {
	if ind, ok := m.Indicators[id]; ok {
		ind.IsActive = false
	}
	return nil
}

// MockFeed is a mock implementation of indicator.Feed
type MockFeed struct {
	FeedName    string
	Indicators  []*indicator.ThreatIndicator
	LookupError error
	Calls       int
}

func (m *MockFeed) Name() string {
	if m.FeedName == "" {
		return "mock-feed"
	}
	return m.FeedName
}

func (m *MockFeed) Lookup(ctx context.Context, typ indicator.Type, value string) ([]*indicator.ThreatIndicator, error) {
	m.Calls++
	if m.LookupError != nil {
		return nil, m.LookupError
	}
	return m.Indicators, nil
}

// MockSessionRepository is a mock implementation of session.Repository
type MockSessionRepository struct {
	Sessions    map[string]*session.Session
	CreateError error
	GetError    error
	ListError   error
	EndError    error
}

func NewMockSessionRepository() *MockSessionRepository {
	return &MockSessionRepository{
		Sessions: make(map[string]*session.Session),
	}
}

func (m *MockSessionRepository) Create(ctx context.Context, s *session.Session) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	stored := *s
	m.Sessions[s.ID] = &stored
	return nil
}

func (m *MockSessionRepository) GetByID(ctx context.Context, id string) (*session.Session, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	s, ok := m.Sessions[id]
	if !ok {
		return nil, nil
	}
	return s, nil
}

func (m *MockSessionRepository) GetByTokenHash(ctx context.Context, userID int64, tokenHash string) (*session.Session, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	for _, s := range m.Sessions {
		if s.UserID == userID && s.TokenHash == tokenHash {
			return s, nil
		}
	}
	return nil, nil
}

func (m *MockSessionRepository) ListActive(ctx context.Context, userID int64, now time.Time) ([]*session.Session, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	var result []*session.Session
	for _, s := range m.Sessions {
		if s.UserID == userID && s.IsActive && now.Before(s.ExpiresAt) {
			result = append(result, s)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].LastActivity.Before(result[j].LastActivity)
	})
	return result, nil
}

func (m *MockSessionRepository) TouchActivity(ctx context.Context, id string, ts time.Time, riskScore float64) error {
	s, ok := m.Sessions[id]
	if !ok {
		return nil
	}
	if s.IsActive && !s.LastActivity.After(ts) {
		s.LastActivity = ts
		s.RiskScore = riskScore
	}
	return nil
}

func (m *MockSessionRepository) End(ctx context.Context, id, reason string) error {
	if m.EndError != nil {
		return m.EndError
	}
	s, ok := m.Sessions[id]
	if !ok || !s.IsActive {
		return nil
	}
	s.IsActive = false
	s.EndReason = reason
	return nil
}

func (m *MockSessionRepository) EndAllExcept(ctx context.Context, userID int64, keepID, reason string) (int, error) {
	if m.EndError != nil {
		return 0, m.EndError
	}
	ended := 0
	for _, s := range m.Sessions {
		if s.UserID == userID && s.IsActive && s.ID != keepID {
			s.IsActive = false
			s.EndReason = reason
			ended++
		}
	}
	return ended, nil
}

func (m *MockSessionRepository) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	var expired int64
	for _, s := range m.Sessions {
		if s.IsActive && now.After(s.ExpiresAt) {
			s.IsActive = false
			s.EndReason = session.EndReasonExpired
			expired++
		}
	}
	return expired, nil
}

// MockCounterRepository is a mock implementation of ratelimit.CounterRepository
type MockCounterRepository struct {
	mu             sync.Mutex
	Counts         map[string]int
	IncrementError error
	PeekError      error
}

func NewMockCounterRepository() *MockCounterRepository {
	return &MockCounterRepository{
		Counts: make(map[string]int),
	}
}

func counterKey(bucketKey, actorKey string, windowStart time.Time) string {
	return bucketKey + "|" + actorKey + "|" + windowStart.UTC().Format(time.RFC3339)
}

func (m *MockCounterRepository) Increment(ctx context.Context, bucketKey, actorKey string, windowStart time.Time) (int, error) {
	if m.IncrementError != nil {
		return 0, m.IncrementError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := counterKey(bucketKey, actorKey, windowStart)
	m.Counts[key]++
	return m.Counts[key], nil
}

func (m *MockCounterRepository) Peek(ctx context.Context, bucketKey, actorKey string, windowStart time.Time) (int, error) {
	if m.PeekError != nil {
		return 0, m.PeekError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Counts[counterKey(bucketKey, actorKey, windowStart)], nil
}

func (m *MockCounterRepository) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

// MockActivityRepository is a mock implementation of ratelimit.ActivityRepository
type MockActivityRepository struct {
	Logs          []*ratelimit.RequestLog
	InsertError   error
	ActivityError error
}

func NewMockActivityRepository() *MockActivityRepository {
	return &MockActivityRepository{}
}

func (m *MockActivityRepository) Insert(ctx context.Context, rl *ratelimit.RequestLog) error {
	if m.InsertError != nil {
		return m.InsertError
	}
	rl.ID = int64(len(m.Logs) + 1)
	m.Logs = append(m.Logs, rl)
	return nil
}

func (m *MockActivityRepository) CountSince(ctx context.Context, actorKey string, since time.Time) (int, error) {
	if m.ActivityError != nil {
		return 0, m.ActivityError
	}
	count := 0
	for _, rl := range m.Logs {
		if rl.ActorKey == actorKey && !rl.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (m *MockActivityRepository) ActivitySince(ctx context.Context, actorKey string, since time.Time) (int, int, error) {
	if m.ActivityError != nil {
		return 0, 0, m.ActivityError
	}
	count := 0
	endpoints := make(map[string]struct{})
	for _, rl := range m.Logs {
		if rl.ActorKey == actorKey && !rl.CreatedAt.Before(since) {
			count++
			endpoints[rl.Endpoint] = struct{}{}
		}
	}
	return count, len(endpoints), nil
}

func (m *MockActivityRepository) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

// MockEventRepository is a mock implementation of event.Repository
type MockEventRepository struct {
	Events      []*event.SecurityEvent
	InsertError error
	GetError    error
	CountError  error
}

func NewMockEventRepository() *MockEventRepository {
	return &MockEventRepository{}
}

func (m *MockEventRepository) Insert(ctx context.Context, ev *event.SecurityEvent) error {
	if m.InsertError != nil {
		return m.InsertError
	}
	stored := *ev
	m.Events = append(m.Events, &stored)
	return nil
}

func (m *MockEventRepository) GetByID(ctx context.Context, id string) (*event.SecurityEvent, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	for _, ev := range m.Events {
		if ev.ID == id {
			return ev, nil
		}
	}
	return nil, nil
}

func (m *MockEventRepository) List(ctx context.Context, filter event.Filter, limit, offset int) ([]*event.SecurityEvent, int64, error) {
	var result []*event.SecurityEvent
	for _, ev := range m.Events {
		if filter.EventType != "" && ev.EventType != filter.EventType {
			continue
		}
		if filter.Severity != "" && ev.Severity != filter.Severity {
			continue
		}
		if filter.Resolved != nil && ev.IsResolved != *filter.Resolved {
			continue
		}
		result = append(result, ev)
	}
	return result, int64(len(result)), nil
}

func (m *MockEventRepository) CountMatching(ctx context.Context, rule *event.AlertRule, since time.Time) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	count := 0
	for _, ev := range m.Events {
		if ev.CreatedAt.Before(since) {
			continue
		}
		if rule.Matches(ev) {
			count++
		}
	}
	return count, nil
}

func (m *MockEventRepository) Resolve(ctx context.Context, id, resolvedBy string, at time.Time) error {
	for _, ev := range m.Events {
		if ev.ID == id && !ev.IsResolved {
			ev.IsResolved = true
			ev.ResolvedBy = resolvedBy
			resolvedAt := at
			ev.ResolvedAt = &resolvedAt
		}
	}
	return nil
}

func (m *MockEventRepository) CountBySeverity(ctx context.Context, resolved *bool) (map[string]int, error) {
	counts := make(map[string]int)
	for _, ev := range m.Events {
		if resolved != nil && ev.IsResolved != *resolved {
			continue
		}
		counts[string(ev.Severity)]++
	}
	return counts, nil
}

func (m *MockEventRepository) PurgeResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var kept []*event.SecurityEvent
	var purged int64
	for _, ev := range m.Events {
		if ev.IsResolved && ev.CreatedAt.Before(cutoff) {
			purged++
			continue
		}
		kept = append(kept, ev)
	}
	m.Events = kept
	return purged, nil
}

// MockRuleRepository is a mock implementation of event.RuleRepository
type MockRuleRepository struct {
	Rules       map[string]*event.AlertRule
	CreateError error
	ListError   error
	MarkError   error
}

func NewMockRuleRepository() *MockRuleRepository {
	return &MockRuleRepository{
		Rules: make(map[string]*event.AlertRule),
	}
}

func (m *MockRuleRepository) Create(ctx context.Context, r *event.AlertRule) (string, error) {
	if m.CreateError != nil {
		return "", m.CreateError
	}
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	stored := *r
	m.Rules[r.ID] = &stored
	return r.ID, nil
}

func (m *MockRuleRepository) GetByID(ctx context.Context, id string) (*event.AlertRule, error) {
	r, ok := m.Rules[id]
	if !ok {
		return nil, nil
	}
	return r, nil
}

func (m *MockRuleRepository) Update(ctx context.Context, r *event.AlertRule) error {
	if _, ok := m.Rules[r.ID]; !ok {
		return nil
	}
	stored := *r
	m.Rules[r.ID] = &stored
	return nil
}

func (m *MockRuleRepository) Delete(ctx context.Context, id string) error {
	delete(m.Rules, id)
	return nil
}

func (m *MockRuleRepository) List(ctx context.Context) ([]*event.AlertRule, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	var result []*event.AlertRule
	for _, r := range m.Rules {
		result = append(result, r)
	}
	return result, nil
}

func (m *MockRuleRepository) ListActive(ctx context.Context) ([]*event.AlertRule, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	var result []*event.AlertRule
	for _, r := range m.Rules {
		if r.IsActive {
			result = append(result, r)
		}
	}
	return result, nil
}

func (m *MockRuleRepository) MarkFired(ctx context.Context, id string, at time.Time) error {
	if m.MarkError != nil {
		return m.MarkError
	}
	if r, ok := m.Rules[id]; ok {
		fired := at
		r.LastFiredAt = &fired
	}
	return nil
}

func (m *MockRuleRepository) Count(ctx context.Context) (int64, error) {
	return int64(len(m.Rules)), nil
}

// MockNotifier is a mock implementation of event.Notifier
type MockNotifier struct {
	NotifyAdminCalls    int
	CreateIncidentCalls int
	BlockedIPs          []string
	DisabledUsers       []int64
	Error               error
}

func (m *MockNotifier) NotifyAdmin(ctx context.Context, ev *event.SecurityEvent) error {
	m.NotifyAdminCalls++
	return m.Error
}

func (m *MockNotifier) CreateIncident(ctx context.Context, ev *event.SecurityEvent) error {
	m.CreateIncidentCalls++
	return m.Error
}

func (m *MockNotifier) BlockIP(ctx context.Context, ip string) error {
	m.BlockedIPs = append(m.BlockedIPs, ip)
	return m.Error
}

func (m *MockNotifier) DisableUser(ctx context.Context, userID int64) error {
	m.DisabledUsers = append(m.DisabledUsers, userID)
	return m.Error
}
