package notification

import "context"

// Notifier publishes notification events to an external channel.
type Notifier interface {
	// Notify publishes a single event.
	Notify(ctx context.Context, event *Event) error

	// Close releases any resources held by the notifier.
	Close() error
}

// EventFilter decides whether an event should be published.
type EventFilter func(event *Event) bool

// FilterByType returns a filter that only allows the given event types.
func FilterByType(types ...EventType) EventFilter {
	allowed := make(map[EventType]bool, len(types))
	for _, t := range types {
		allowed[t] = true
	}
	return func(event *Event) bool {
		return allowed[event.Type]
	}
}

// Endpoint is one webhook destination.
type Endpoint struct {
	// URL is the webhook endpoint URL.
	URL string `json:"url"`
	// Secret is the shared secret for HMAC signing.
	Secret string `json:"secret,omitempty"`
	// Headers are additional HTTP headers to include.
	Headers map[string]string `json:"headers,omitempty"`
	// Filter is an optional per-endpoint event filter.
	Filter EventFilter `json:"-"`
	// Enabled indicates if this endpoint is active.
	Enabled bool `json:"enabled"`
	// Name is an optional friendly name.
	Name string `json:"name,omitempty"`
}
