package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/argussec/argus/internal/domain/event"
	"github.com/argussec/argus/internal/domain/indicator"
	"github.com/argussec/argus/internal/pkg/logger"
	"github.com/google/uuid"
)

// Notifier dispatches alert actions: admin notifications and incidents go to
// Slack, blocked IPs become high-confidence indicators in the threat store so
// the threat engine enforces them on the next lookup.
type Notifier struct {
	logger     *logger.Logger
	indicators indicator.Repository

	webhookURL string
	channel    string
	httpClient *http.Client
}

// Options configures the notifier sinks
type Options struct {
	SlackWebhookURL string
	SlackChannel    string
}

// New creates a notifier. With no webhook configured, notifications degrade
// to structured log lines.
func New(log *logger.Logger, indicators indicator.Repository, opts Options) *Notifier {
	return &Notifier{
		logger:     log,
		indicators: indicators,
		webhookURL: opts.SlackWebhookURL,
		channel:    opts.SlackChannel,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// NotifyAdmin sends an alert summary to the configured channel
func (n *Notifier) NotifyAdmin(ctx context.Context, ev *event.SecurityEvent) error {
	message := fmt.Sprintf(":rotating_light: [%s] %s\n%s (source: %s, event: %s)",
		ev.Severity, ev.Title, ev.Description, ev.Source, ev.ID)
	return n.send(ctx, message, ev)
}

// CreateIncident opens an incident for the event. Incidents are delivered
// through the same webhook with a distinct prefix so channel routing rules
// can split them.
func (n *Notifier) CreateIncident(ctx context.Context, ev *event.SecurityEvent) error {
	message := fmt.Sprintf(":fire: INCIDENT [%s] %s\nEvent %s from %s requires triage.\n%s",
		ev.Severity, ev.Title, ev.ID, ev.Source, ev.Description)
	return n.send(ctx, message, ev)
}

// BlockIP writes a critical indicator for the IP into the threat store. The
// threat engine's next lookup for this IP recommends block.
func (n *Notifier) BlockIP(ctx context.Context, ip string) error {
	now := time.Now()
	ind := &indicator.ThreatIndicator{
		ID:         uuid.New().String(),
		Type:       indicator.TypeIP,
		Value:      ip,
		ThreatType: "auto_block",
		Severity:   indicator.SeverityCritical,
		Confidence: 90,
		Source:     "alert_engine",
		FirstSeen:  now,
		LastSeen:   now,
		IsActive:   true,
	}

	if _, err := n.indicators.Upsert(ctx, ind); err != nil {
		return fmt.Errorf("failed to store block indicator: %w", err)
	}

	n.logger.WithFields(map[string]interface{}{
		"ip": ip,
	}).Warn("IP blocked by alert rule")
	return nil
}

// DisableUser flags the user for disablement. User accounts live outside
// this service, so the action is delivered as a notification for the owning
// system to act on.
func (n *Notifier) DisableUser(ctx context.Context, userID int64) error {
	message := fmt.Sprintf(":no_entry: Alert rule requested disablement of user %d", userID)
	n.logger.WithFields(map[string]interface{}{
		"user_id": userID,
	}).Warn("User disablement requested by alert rule")
	return n.send(ctx, message, nil)
}

func (n *Notifier) send(ctx context.Context, message string, ev *event.SecurityEvent) error {
	if n.webhookURL == "" {
		fields := map[string]interface{}{"message": message}
		if ev != nil {
			fields["event_id"] = ev.ID
		}
		n.logger.WithFields(fields).Warn("Security notification (no webhook configured)")
		return nil
	}

	payload := map[string]any{
		"text": message,
	}
	if n.channel != "" {
		payload["channel"] = n.channel
	}
	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}
	return nil
}
