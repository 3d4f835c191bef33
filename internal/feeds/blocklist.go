package feeds

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/argussec/argus/internal/domain/indicator"
	"github.com/argussec/argus/internal/pkg/logger"
)

// BlocklistFeed integrates with an external reputation/blocklist API. The
// feed is queried per indicator; timeouts and fan-out are handled by the
// caller.
type BlocklistFeed struct {
	logger     *logger.Logger
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewBlocklistFeed creates a new blocklist feed client. baseURL points at the
// provider's lookup endpoint.
func NewBlocklistFeed(log *logger.Logger, baseURL, apiKey string) *BlocklistFeed {
	return &BlocklistFeed{
		logger:  log,
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Name identifies the feed in logs, metrics and result sources
func (f *BlocklistFeed) Name() string {
	return "blocklist"
}

// Blocklist API response structures
type blocklistResponse struct {
	Matches []blocklistMatch `json:"matches"`
}

type blocklistMatch struct {
	Type       string `json:"type"`
	Value      string `json:"value"`
	ThreatType string `json:"threat_type"`
	Severity   string `json:"severity"`
	Confidence int    `json:"confidence"`
	FirstSeen  string `json:"first_seen"`
	LastSeen   string `json:"last_seen"`
}

// Lookup queries the provider for indicators matching (type, value)
func (f *BlocklistFeed) Lookup(ctx context.Context, typ indicator.Type, value string) ([]*indicator.ThreatIndicator, error) {
	endpoint := fmt.Sprintf("%s?type=%s&value=%s",
		f.baseURL, url.QueryEscape(string(typ)), url.QueryEscape(value))

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if f.apiKey != "" {
		req.Header.Set("X-Api-Key", f.apiKey)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query blocklist feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("blocklist API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var feedResp blocklistResponse
	if err := json.NewDecoder(resp.Body).Decode(&feedResp); err != nil {
		return nil, fmt.Errorf("failed to decode blocklist response: %w", err)
	}

	now := time.Now()
	indicators := make([]*indicator.ThreatIndicator, 0, len(feedResp.Matches))
	for _, m := range feedResp.Matches {
		ind := f.convertMatch(m, typ, value, now)
		if ind != nil {
			indicators = append(indicators, ind)
		}
	}

	if len(indicators) > 0 {
		f.logger.WithFields(map[string]interface{}{
			"type":    typ,
			"matches": len(indicators),
		}).Info("Blocklist feed returned matches")
	}

	return indicators, nil
}

// convertMatch converts a provider match to our indicator model. Matches with
// an unknown severity are kept at low rather than dropped.
func (f *BlocklistFeed) convertMatch(m blocklistMatch, typ indicator.Type, value string, now time.Time) *indicator.ThreatIndicator {
	severity := indicator.Severity(m.Severity)
	if !severity.IsValid() {
		severity = indicator.SeverityLow
	}

	confidence := m.Confidence
	if confidence <= 0 || confidence > 100 {
		confidence = 50
	}

	firstSeen, err := time.Parse(time.RFC3339, m.FirstSeen)
	if err != nil {
		firstSeen = now
	}
	lastSeen, err := time.Parse(time.RFC3339, m.LastSeen)
	if err != nil {
		lastSeen = now
	}

	return &indicator.ThreatIndicator{
		Type:       typ,
		Value:      value,
		ThreatType: m.ThreatType,
		Severity:   severity,
		Confidence: confidence,
		Source:     f.Name(),
		FirstSeen:  firstSeen,
		LastSeen:   lastSeen,
		IsActive:   true,
	}
}
