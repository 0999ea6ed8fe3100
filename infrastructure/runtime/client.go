// Package runtime provides the HTTP client for the external automation
// runtime that deploys and rolls back automations.
package runtime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/felixgeelhaar/fortify/retry"

	"github.com/dwellsense/dwellsense/domain/automation"
)

// ClientConfig configures the runtime client.
type ClientConfig struct {
	// BaseURL is the runtime base URL.
	BaseURL string
	// Token is the optional bearer token.
	Token string
	// Timeout is the per-request timeout.
	Timeout time.Duration
	// MaxRetries is the retry attempt count. Deploy and remove are
	// idempotent by the runtime contract, so retrying is safe.
	MaxRetries int
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL:    "http://localhost:8123",
		Timeout:    15 * time.Second,
		MaxRetries: 3,
	}
}

// Client is an HTTP implementation of automation.Runtime.
type Client struct {
	config  ClientConfig
	client  *http.Client
	retrier retry.Retry[[]byte]
}

// NewClient creates a runtime client.
func NewClient(config ClientConfig) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultClientConfig().BaseURL
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}

	return &Client{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		retrier: retry.New[[]byte](retry.Config{
			MaxAttempts:   config.MaxRetries,
			InitialDelay:  500 * time.Millisecond,
			BackoffPolicy: retry.BackoffExponential,
			Multiplier:    2.0,
		}),
	}
}

type deployResponse struct {
	ExternalRef string `json:"external_ref"`
}

type existingAutomation struct {
	ExternalRef string `json:"external_ref"`
	Alias       string `json:"alias"`
	DedupKey    string `json:"dedup_key"`
}

// Deploy installs the payload and returns the runtime's reference.
func (c *Client) Deploy(ctx context.Context, payload json.RawMessage) (string, error) {
	body, err := c.do(ctx, http.MethodPost, "/api/automations", []byte(payload))
	if err != nil {
		return "", fmt.Errorf("%w: %v", automation.ErrDeployFailed, err)
	}

	var out deployResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("%w: parsing response: %v", automation.ErrDeployFailed, err)
	}
	if out.ExternalRef == "" {
		return "", fmt.Errorf("%w: runtime returned no reference", automation.ErrDeployFailed)
	}
	return out.ExternalRef, nil
}

// Remove rolls back a deployed automation by reference.
func (c *Client) Remove(ctx context.Context, externalRef string) error {
	if _, err := c.do(ctx, http.MethodDelete, "/api/automations/"+externalRef, nil); err != nil {
		return fmt.Errorf("%w: %v", automation.ErrRemoveFailed, err)
	}
	return nil
}

// ListExisting returns the automations currently deployed.
func (c *Client) ListExisting(ctx context.Context) ([]automation.Existing, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/automations", nil)
	if err != nil {
		return nil, err
	}

	var raw []existingAutomation
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parsing automation list: %w", err)
	}

	existing := make([]automation.Existing, len(raw))
	for i, a := range raw {
		existing[i] = automation.Existing{
			ExternalRef: a.ExternalRef,
			Alias:       a.Alias,
			DedupKey:    a.DedupKey,
		}
	}
	return existing, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	return c.retrier.Do(ctx, func(ctx context.Context) ([]byte, error) {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reader)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.config.Token != "" {
			req.Header.Set("Authorization", "Bearer "+c.config.Token)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
		if err != nil {
			return nil, fmt.Errorf("reading response: %w", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("runtime error (status %d): %s", resp.StatusCode, string(body))
		}
		return body, nil
	})
}

var _ automation.Runtime = (*Client)(nil)
