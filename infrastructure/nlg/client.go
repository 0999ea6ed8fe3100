// Package nlg provides the HTTP client for the external text generation
// service that writes suggestion titles and descriptions.
package nlg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/felixgeelhaar/fortify/retry"

	"github.com/dwellsense/dwellsense/domain/automation"
)

// ClientConfig configures the text generation client.
type ClientConfig struct {
	// BaseURL is the service base URL.
	BaseURL string
	// APIKey is the optional bearer token.
	APIKey string
	// Timeout is the per-request timeout.
	Timeout time.Duration
	// MaxRetries is the retry attempt count.
	MaxRetries int
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL:    "http://localhost:8600",
		Timeout:    10 * time.Second,
		MaxRetries: 2,
	}
}

// Client is an HTTP implementation of automation.TextGenerator. The service
// is treated as unreliable by contract; callers fall back to templated text
// on any error.
type Client struct {
	config  ClientConfig
	client  *http.Client
	retrier retry.Retry[automation.Text]
}

// NewClient creates a text generation client.
func NewClient(config ClientConfig) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultClientConfig().BaseURL
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 2
	}

	return &Client{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		retrier: retry.New[automation.Text](retry.Config{
			MaxAttempts:   config.MaxRetries,
			InitialDelay:  200 * time.Millisecond,
			BackoffPolicy: retry.BackoffExponential,
			Multiplier:    2.0,
		}),
	}
}

type generateRequest struct {
	Kind    string         `json:"kind"`
	Context map[string]any `json:"context"`
}

type generateResponse struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Generate asks the service for a title and description. Deadline overruns
// are reported as ErrGeneratorTimeout.
func (c *Client) Generate(ctx context.Context, prompt automation.Prompt) (automation.Text, error) {
	text, err := c.retrier.Do(ctx, func(ctx context.Context) (automation.Text, error) {
		return c.generate(ctx, prompt)
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return automation.Text{}, fmt.Errorf("%w: %v", automation.ErrGeneratorTimeout, err)
		}
		return automation.Text{}, err
	}
	return text, nil
}

func (c *Client) generate(ctx context.Context, prompt automation.Prompt) (automation.Text, error) {
	body, err := json.Marshal(generateRequest{
		Kind:    prompt.Kind,
		Context: prompt.Context,
	})
	if err != nil {
		return automation.Text{}, fmt.Errorf("marshaling prompt: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/v1/generate", bytes.NewReader(body))
	if err != nil {
		return automation.Text{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return automation.Text{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return automation.Text{}, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return automation.Text{}, fmt.Errorf("generator error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var out generateResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return automation.Text{}, fmt.Errorf("parsing response: %w", err)
	}

	return automation.Text{Title: out.Title, Description: out.Description}, nil
}

var _ automation.TextGenerator = (*Client)(nil)
