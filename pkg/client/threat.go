package client

import (
	"context"
	"net/url"
	"strconv"
)

// ThreatService handles threat intelligence API calls
type ThreatService struct {
	client *Client
}

// AddIndicatorRequest submits a new threat indicator
type AddIndicatorRequest struct {
	Type       string `json:"type"`
	Value      string `json:"value"`
	ThreatType string `json:"threatType,omitempty"`
	Severity   string `json:"severity"`
	Source     string `json:"source"`
	Confidence int    `json:"confidence"`
}

// IndicatorListOptions contains options for listing indicators
type IndicatorListOptions struct {
	ListOptions
	Type       string
	Value      string
	Source     string
	ActiveOnly bool
}

// Check looks up a value against the threat intelligence store and feeds
func (s *ThreatService) Check(ctx context.Context, indicatorType, value string) (*CheckResult, error) {
	body := map[string]string{"type": indicatorType, "value": value}
	var result CheckResult
	if err := s.client.doRequest(ctx, "POST", "/api/v1/threat/check", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Add submits a new indicator and returns its ID
func (s *ThreatService) Add(ctx context.Context, req AddIndicatorRequest) (string, error) {
	var resp struct {
		IndicatorID string `json:"indicatorId"`
	}
	if err := s.client.doRequest(ctx, "POST", "/api/v1/threat/indicators", req, &resp); err != nil {
		return "", err
	}
	return resp.IndicatorID, nil
}

// List retrieves a page of stored indicators
func (s *ThreatService) List(ctx context.Context, opts *IndicatorListOptions) ([]Indicator, int64, error) {
	query := url.Values{}
	if opts != nil {
		if opts.Page > 0 {
			query.Set("page", strconv.Itoa(opts.Page))
		}
		if opts.PageSize > 0 {
			query.Set("page_size", strconv.Itoa(opts.PageSize))
		}
		if opts.Type != "" {
			query.Set("type", opts.Type)
		}
		if opts.Value != "" {
			query.Set("value", opts.Value)
		}
		if opts.Source != "" {
			query.Set("source", opts.Source)
		}
		if opts.ActiveOnly {
			query.Set("active", "true")
		}
	}

	path := "/api/v1/threat/indicators"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var p page[Indicator]
	if err := s.client.doRequest(ctx, "GET", path, nil, &p); err != nil {
		return nil, 0, err
	}
	return p.Data, p.Total, nil
}
