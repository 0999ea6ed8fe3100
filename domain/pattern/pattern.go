// Package pattern provides the behavioral patterns mined from historical
// events. Patterns are regenerated each run and never diffed against prior
// runs.
package pattern

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Pattern is a statistically supported regularity in the event history.
type Pattern struct {
	// ID is the unique identifier for this run's instance.
	ID string `json:"id"`

	// Type classifies the pattern.
	Type Type `json:"type"`

	// DeviceID is the primary subject device.
	DeviceID string `json:"device_id"`

	// PairedDeviceID is the second subject for co-occurrence patterns.
	PairedDeviceID string `json:"paired_device_id,omitempty"`

	// Occurrences is the number of supporting observations. Confidence is
	// only meaningful with at least MinOccurrences of them.
	Occurrences int `json:"occurrences"`

	// Confidence indicates how certain the miner is (0.0-1.0).
	Confidence float64 `json:"confidence"`

	// Fingerprint is a stable key for the behavior the pattern describes,
	// used to deduplicate suggestions across runs.
	Fingerprint string `json:"fingerprint"`

	// Data contains type-specific pattern parameters.
	Data json.RawMessage `json:"data,omitempty"`

	// DetectedAt is when the miner emitted the pattern.
	DetectedAt time.Time `json:"detected_at"`
}

// MinOccurrences is the floor below which confidence is not computed.
const MinOccurrences = 3

// New creates a pattern with a generated ID.
func New(typ Type, deviceID string) *Pattern {
	return &Pattern{
		ID:         uuid.New().String(),
		Type:       typ,
		DeviceID:   deviceID,
		DetectedAt: time.Now().UTC(),
	}
}

// SetData sets the type-specific pattern parameters.
func (p *Pattern) SetData(data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	p.Data = raw
	return nil
}

// GetData unmarshals the type-specific pattern parameters.
func (p *Pattern) GetData(v any) error {
	if p.Data == nil {
		return nil
	}
	return json.Unmarshal(p.Data, v)
}

// IsSignificant returns true if the pattern meets the given thresholds.
func (p *Pattern) IsSignificant(minConfidence float64, minOccurrences int) bool {
	return p.Confidence >= minConfidence && p.Occurrences >= minOccurrences
}
