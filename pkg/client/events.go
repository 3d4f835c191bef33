package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// EventService handles security event API calls
type EventService struct {
	client *Client
}

// PublishEventRequest submits a security event
type PublishEventRequest struct {
	EventType   string                 `json:"eventType"`
	Severity    string                 `json:"severity"`
	Source      string                 `json:"source"`
	Title       string                 `json:"title"`
	Description string                 `json:"description,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	UserID      *int64                 `json:"userId,omitempty"`
	IPAddress   string                 `json:"ipAddress,omitempty"`
	UserAgent   string                 `json:"userAgent,omitempty"`
}

// EventListOptions contains options for listing events
type EventListOptions struct {
	ListOptions
	EventType string
	Severity  string
	Resolved  *bool
	From      *time.Time
	To        *time.Time
}

// Publish submits an event and returns its ID
func (s *EventService) Publish(ctx context.Context, req PublishEventRequest) (string, error) {
	var resp struct {
		EventID string `json:"eventId"`
	}
	if err := s.client.doRequest(ctx, "POST", "/api/v1/events", req, &resp); err != nil {
		return "", err
	}
	return resp.EventID, nil
}

// Recent retrieves the most recent events from the in-memory ring
func (s *EventService) Recent(ctx context.Context, limit int) ([]Event, error) {
	path := "/api/v1/events/recent"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}

	var events []Event
	if err := s.client.doRequest(ctx, "GET", path, nil, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// List retrieves a page of persisted events
func (s *EventService) List(ctx context.Context, opts *EventListOptions) ([]Event, int64, error) {
	query := url.Values{}
	if opts != nil {
		if opts.Page > 0 {
			query.Set("page", strconv.Itoa(opts.Page))
		}
		if opts.PageSize > 0 {
			query.Set("page_size", strconv.Itoa(opts.PageSize))
		}
		if opts.EventType != "" {
			query.Set("event_type", opts.EventType)
		}
		if opts.Severity != "" {
			query.Set("severity", opts.Severity)
		}
		if opts.Resolved != nil {
			query.Set("resolved", strconv.FormatBool(*opts.Resolved))
		}
		if opts.From != nil {
			query.Set("from", opts.From.Format(time.RFC3339))
		}
		if opts.To != nil {
			query.Set("to", opts.To.Format(time.RFC3339))
		}
	}

	path := "/api/v1/events"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var p page[Event]
	if err := s.client.doRequest(ctx, "GET", path, nil, &p); err != nil {
		return nil, 0, err
	}
	return p.Data, p.Total, nil
}

// Resolve marks an event as handled
func (s *EventService) Resolve(ctx context.Context, eventID, resolvedBy string) error {
	body := map[string]string{"resolvedBy": resolvedBy}
	path := fmt.Sprintf("/api/v1/events/%s/resolve", eventID)
	return s.client.doRequest(ctx, "POST", path, body, nil)
}

// Summary returns unresolved event counts grouped by severity
func (s *EventService) Summary(ctx context.Context) (map[string]int, error) {
	var counts map[string]int
	if err := s.client.doRequest(ctx, "GET", "/api/v1/events/summary", nil, &counts); err != nil {
		return nil, err
	}
	return counts, nil
}
