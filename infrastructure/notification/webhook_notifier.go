package notification

import (
	"context"
	"sync"

	"github.com/dwellsense/dwellsense/domain/notification"
	"github.com/dwellsense/dwellsense/infrastructure/logging"
)

// WebhookNotifierConfig configures the webhook notifier.
type WebhookNotifierConfig struct {
	// Endpoints are the webhook destinations.
	Endpoints []*notification.Endpoint
	// SenderConfig configures the HTTP sender.
	SenderConfig SenderConfig
	// GlobalFilter is applied before per-endpoint filters.
	GlobalFilter notification.EventFilter
}

// DefaultWebhookNotifierConfig returns sensible defaults.
func DefaultWebhookNotifierConfig() WebhookNotifierConfig {
	return WebhookNotifierConfig{
		SenderConfig: DefaultSenderConfig(),
	}
}

// WebhookNotifier delivers events to all enabled endpoints concurrently.
type WebhookNotifier struct {
	config    WebhookNotifierConfig
	endpoints []*notification.Endpoint
	sender    *Sender
	closed    bool
	closedMu  sync.RWMutex
}

// NewWebhookNotifier creates a webhook notifier.
func NewWebhookNotifier(config WebhookNotifierConfig) *WebhookNotifier {
	return &WebhookNotifier{
		config:    config,
		endpoints: config.Endpoints,
		sender:    NewSender(config.SenderConfig),
	}
}

// Notify publishes one event to all enabled, matching endpoints. The first
// delivery error is returned after every endpoint has been attempted.
func (w *WebhookNotifier) Notify(ctx context.Context, event *notification.Event) error {
	w.closedMu.RLock()
	if w.closed {
		w.closedMu.RUnlock()
		return notification.ErrNotifierClosed
	}
	w.closedMu.RUnlock()

	if w.config.GlobalFilter != nil && !w.config.GlobalFilter(event) {
		return nil
	}

	var (
		wg       sync.WaitGroup
		errMu    sync.Mutex
		firstErr error
	)

	for _, endpoint := range w.endpoints {
		if !endpoint.Enabled {
			continue
		}
		if endpoint.Filter != nil && !endpoint.Filter(event) {
			continue
		}

		wg.Add(1)
		go func(ep *notification.Endpoint) {
			defer wg.Done()

			if err := w.sender.Send(ctx, ep, event); err != nil {
				logging.Error().
					Add(logging.Component("notification")).
					Add(logging.Str("endpoint", ep.URL)).
					Add(logging.Str("event_type", string(event.Type))).
					Add(logging.ErrorField(err)).
					Msg("webhook delivery failed")

				errMu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				errMu.Unlock()
				return
			}

			logging.Debug().
				Add(logging.Component("notification")).
				Add(logging.Str("endpoint", ep.URL)).
				Add(logging.Str("event_type", string(event.Type))).
				Msg("webhook delivered")
		}(endpoint)
	}

	wg.Wait()
	return firstErr
}

// Close marks the notifier closed. Subsequent Notify calls fail.
func (w *WebhookNotifier) Close() error {
	w.closedMu.Lock()
	w.closed = true
	w.closedMu.Unlock()
	return nil
}

// AddEndpoint adds a destination.
func (w *WebhookNotifier) AddEndpoint(endpoint *notification.Endpoint) {
	w.endpoints = append(w.endpoints, endpoint)
}

var _ notification.Notifier = (*WebhookNotifier)(nil)
