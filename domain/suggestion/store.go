package suggestion

import (
	"context"
	"time"
)

// Store persists suggestions.
type Store interface {
	// Save persists a new suggestion.
	Save(ctx context.Context, sug *Suggestion) error

	// Get retrieves a suggestion by ID.
	Get(ctx context.Context, id string) (*Suggestion, error)

	// List returns suggestions matching the filter.
	List(ctx context.Context, filter ListFilter) ([]*Suggestion, error)

	// Update updates an existing suggestion.
	Update(ctx context.Context, sug *Suggestion) error
}

// AuditLog records status transitions, append-only.
type AuditLog interface {
	// Append records a transition.
	Append(ctx context.Context, tr Transition) error

	// History returns a suggestion's transitions in order.
	History(ctx context.Context, suggestionID string) ([]Transition, error)
}

// ListFilter filters suggestion queries.
type ListFilter struct {
	// Sources filters to specific sources.
	Sources []Source

	// Status filters by lifecycle status.
	Status []Status

	// DedupKey filters to one dedup key.
	DedupKey string

	// MinConfidence filters by minimum confidence.
	MinConfidence float64

	// FromTime and ToTime bound CreatedAt.
	FromTime time.Time
	ToTime   time.Time

	// Limit and Offset page the results.
	Limit  int
	Offset int

	// OrderBy specifies the ordering.
	OrderBy OrderBy

	// Descending reverses the order.
	Descending bool
}

// OrderBy specifies how to order suggestion results.
type OrderBy string

const (
	// OrderByCreatedAt orders by creation time.
	OrderByCreatedAt OrderBy = "created_at"

	// OrderByConfidence orders by confidence score.
	OrderByConfidence OrderBy = "confidence"
)
