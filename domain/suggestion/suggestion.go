// Package suggestion provides the actionable recommendations produced by the
// daily batch and their audit-preserving lifecycle.
package suggestion

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Suggestion is one actionable recommendation. Suggestions are never
// deleted; they only move through the status machine, and every move is
// recorded in the audit log.
type Suggestion struct {
	// ID is the unique identifier.
	ID string `json:"id"`

	// Source tells which generator produced the suggestion.
	Source Source `json:"source"`

	// Title is a short human-readable summary.
	Title string `json:"title"`

	// Description explains the suggestion in natural language.
	Description string `json:"description"`

	// Payload is the opaque automation definition or feature-configuration
	// instructions handed to the automation runtime on deploy.
	Payload json.RawMessage `json:"payload,omitempty"`

	// Confidence indicates how strongly the evidence supports it (0.0-1.0).
	Confidence float64 `json:"confidence"`

	// DedupKey identifies the (device, pattern) or (device, feature) pair
	// the suggestion addresses. At most one pending suggestion exists per
	// key.
	DedupKey string `json:"dedup_key"`

	// Status is the current lifecycle status.
	Status Status `json:"status"`

	// CreatedAt is when the generator produced the suggestion.
	CreatedAt time.Time `json:"created_at"`

	// DecidedAt is when the user decided (approved or rejected).
	DecidedAt time.Time `json:"decided_at,omitzero"`

	// ExternalRef is the automation runtime's identifier. Set if and only
	// if Status is deployed.
	ExternalRef string `json:"external_ref,omitempty"`

	// Metadata carries generator-specific context.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// New creates a pending suggestion with a generated ID.
func New(source Source, title, description, dedupKey string) *Suggestion {
	return &Suggestion{
		ID:          uuid.New().String(),
		Source:      source,
		Title:       title,
		Description: description,
		DedupKey:    dedupKey,
		Status:      StatusPending,
		CreatedAt:   time.Now().UTC(),
		Metadata:    make(map[string]any),
	}
}

// Approve records a user decision to deploy. Only pending suggestions can be
// approved; the approved state is one-way.
func (s *Suggestion) Approve() error {
	if s.Status != StatusPending {
		return ErrInvalidTransition
	}
	s.Status = StatusApproved
	s.DecidedAt = time.Now().UTC()
	return nil
}

// Reject records a user decision to dismiss. Terminal.
func (s *Suggestion) Reject(reason string) error {
	if s.Status != StatusPending {
		return ErrInvalidTransition
	}
	s.Status = StatusRejected
	s.DecidedAt = time.Now().UTC()
	if reason != "" {
		s.Metadata["rejection_reason"] = reason
	}
	return nil
}

// MarkDeployed records a successful deploy call. The external reference is
// mandatory: deployed status without a ref is illegal.
func (s *Suggestion) MarkDeployed(externalRef string) error {
	if s.Status != StatusApproved {
		return ErrInvalidTransition
	}
	if externalRef == "" {
		return ErrMissingExternalRef
	}
	s.Status = StatusDeployed
	s.ExternalRef = externalRef
	return nil
}

// MarkRemoved records a successful rollback call and clears the reference.
func (s *Suggestion) MarkRemoved() error {
	if s.Status != StatusDeployed {
		return ErrInvalidTransition
	}
	s.Status = StatusRemoved
	s.ExternalRef = ""
	return nil
}

// SetPayload marshals and attaches the automation payload.
func (s *Suggestion) SetPayload(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.Payload = raw
	return nil
}
