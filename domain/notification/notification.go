// Package notification provides the events published to external channels.
package notification

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType classifies notification events.
type EventType string

const (
	// EventRunCompleted summarizes one finished batch run.
	EventRunCompleted EventType = "run_completed"

	// Deploy and rollback outcomes, one event per call.
	EventSuggestionDeployed EventType = "suggestion_deployed"
	EventSuggestionRemoved  EventType = "suggestion_removed"
	EventDeployFailed       EventType = "deploy_failed"
	EventRemoveFailed       EventType = "remove_failed"
)

// Event is one notification to publish.
type Event struct {
	// ID is the unique identifier.
	ID string `json:"id"`

	// Type classifies the event.
	Type EventType `json:"type"`

	// Timestamp is when the event was created.
	Timestamp time.Time `json:"timestamp"`

	// Payload is the type-specific body.
	Payload json.RawMessage `json:"payload"`
}

// NewEvent creates an event with a generated ID.
func NewEvent(typ EventType, payload any) (*Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		ID:        uuid.New().String(),
		Type:      typ,
		Timestamp: time.Now().UTC(),
		Payload:   raw,
	}, nil
}

// RunSummary is the payload of a run_completed event.
type RunSummary struct {
	RunID                string        `json:"run_id"`
	PatternsDetected     int           `json:"patterns_detected"`
	FeaturesScanned      int           `json:"features_scanned"`
	SuggestionsGenerated int           `json:"suggestions_generated"`
	DevicesMatched       int           `json:"devices_matched"`
	DevicesSkipped       int           `json:"devices_skipped"`
	GlobalUtilization    float64       `json:"global_utilization"`
	Duration             time.Duration `json:"duration"`
}

// DeployOutcome is the payload of deploy/remove outcome events.
type DeployOutcome struct {
	SuggestionID string `json:"suggestion_id"`
	ExternalRef  string `json:"external_ref,omitempty"`
	Error        string `json:"error,omitempty"`
}
