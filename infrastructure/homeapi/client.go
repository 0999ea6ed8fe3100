// Package homeapi provides the HTTP clients for the home-automation
// platform's read APIs: event history, device inventory, and live
// configuration state.
package homeapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/retry"

	"github.com/dwellsense/dwellsense/domain/device"
	"github.com/dwellsense/dwellsense/domain/event"
)

// ClientConfig configures the home API client.
type ClientConfig struct {
	// BaseURL is the platform base URL.
	BaseURL string
	// Token is the optional bearer token.
	Token string
	// Timeout is the per-request timeout.
	Timeout time.Duration
	// MaxRetries is the retry attempt count for read calls.
	MaxRetries int
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL:    "http://localhost:8123",
		Timeout:    30 * time.Second,
		MaxRetries: 3,
	}
}

// Client talks to the platform's read APIs. It implements event.Source,
// device.Inventory, and device.ConfigState.
type Client struct {
	config  ClientConfig
	client  *http.Client
	retrier retry.Retry[[]byte]
}

// NewClient creates a home API client.
func NewClient(config ClientConfig) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultClientConfig().BaseURL
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
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

// Window returns events in [from, to) ordered by timestamp.
func (c *Client) Window(ctx context.Context, from, to time.Time, deviceIDs ...string) ([]event.Event, error) {
	query := url.Values{}
	query.Set("from", from.UTC().Format(time.RFC3339))
	query.Set("to", to.UTC().Format(time.RFC3339))
	if len(deviceIDs) > 0 {
		query.Set("devices", strings.Join(deviceIDs, ","))
	}

	body, err := c.get(ctx, "/api/history/events?"+query.Encode())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", event.ErrSourceUnavailable, err)
	}

	var events []event.Event
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, fmt.Errorf("%w: parsing events: %v", event.ErrSourceUnavailable, err)
	}
	return events, nil
}

// Devices lists the platform's device inventory.
func (c *Client) Devices(ctx context.Context) ([]device.Device, error) {
	body, err := c.get(ctx, "/api/devices")
	if err != nil {
		return nil, err
	}

	var devices []device.Device
	if err := json.Unmarshal(body, &devices); err != nil {
		return nil, fmt.Errorf("parsing devices: %w", err)
	}
	return devices, nil
}

type configStateResponse struct {
	Configured bool `json:"configured"`
}

// Configured reads whether the feature is set up in the live configuration.
func (c *Client) Configured(ctx context.Context, deviceID, feature string) (bool, error) {
	path := fmt.Sprintf("/api/devices/%s/features/%s/state",
		url.PathEscape(deviceID), url.PathEscape(feature))

	body, err := c.get(ctx, path)
	if err != nil {
		return false, err
	}

	var out configStateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return false, fmt.Errorf("parsing config state: %w", err)
	}
	return out.Configured, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	return c.retrier.Do(ctx, func(ctx context.Context) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+path, nil)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		if c.config.Token != "" {
			req.Header.Set("Authorization", "Bearer "+c.config.Token)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
		if err != nil {
			return nil, fmt.Errorf("reading response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("platform error (status %d): %s", resp.StatusCode, string(body))
		}
		return body, nil
	})
}

var (
	_ event.Source       = (*Client)(nil)
	_ device.Inventory   = (*Client)(nil)
	_ device.ConfigState = (*Client)(nil)
)
