package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is the main Argus API client
type Client struct {
	baseURL      string
	httpClient   *http.Client
	serviceToken string // shared secret for engine-to-engine routes
	token        string // JWT token for user routes
}

// Config holds the client configuration
type Config struct {
	BaseURL      string        // API base URL (e.g., "https://argus.internal:8080")
	ServiceToken string        // Optional service token for engine routes
	Timeout      time.Duration // HTTP client timeout (default: 30s)
	HTTPClient   *http.Client  // Optional custom HTTP client
}

// NewClient creates a new Argus API client
func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: cfg.Timeout,
		}
	}

	return &Client{
		baseURL:      cfg.BaseURL,
		httpClient:   httpClient,
		serviceToken: cfg.ServiceToken,
	}
}

// SetToken sets the JWT token for user routes
func (c *Client) SetToken(token string) {
	c.token = token
}

// GetToken returns the current JWT token
func (c *Client) GetToken() string {
	return c.token
}

// SetServiceToken sets the shared secret used on engine-to-engine routes
func (c *Client) SetServiceToken(token string) {
	c.serviceToken = token
}

// envelope is the standard API response wrapper
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
	Error   *errorDetail    `json:"error,omitempty"`
}

type errorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// doRequest performs an HTTP request and unwraps the response envelope
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.serviceToken != "" {
		req.Header.Set("X-Service-Token", c.serviceToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var env envelope
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, &env); err != nil {
			return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
		}
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
			apiErr.Details = env.Error.Details
		} else {
			apiErr.Message = string(respBody)
		}
		return apiErr
	}

	if result != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, result); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}

	return nil
}

// Sessions returns the session management service
func (c *Client) Sessions() *SessionService {
	return &SessionService{client: c}
}

// Threat returns the threat intelligence service
func (c *Client) Threat() *ThreatService {
	return &ThreatService{client: c}
}

// RateLimit returns the rate limiting service
func (c *Client) RateLimit() *RateLimitService {
	return &RateLimitService{client: c}
}

// Events returns the security event service
func (c *Client) Events() *EventService {
	return &EventService{client: c}
}

// Rules returns the alert rule service
func (c *Client) Rules() *RuleService {
	return &RuleService{client: c}
}

// Health checks whether the server is reachable and ready
func (c *Client) Health(ctx context.Context) (map[string]string, error) {
	var status map[string]string
	if err := c.doRequest(ctx, "GET", "/readyz", nil, &status); err != nil {
		return nil, err
	}
	return status, nil
}
