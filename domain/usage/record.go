// Package usage tracks which capabilities are actually configured per device
// instance.
package usage

import (
	"time"

	"github.com/dwellsense/dwellsense/domain/capability"
)

// Record is the configuration state of one (device, feature) pair.
// Exactly one record exists per pair.
type Record struct {
	// DeviceID identifies the device instance.
	DeviceID string `json:"device_id"`

	// Feature is the unified feature name from the capability definition.
	Feature string `json:"feature"`

	// Category is the feature's capability category, denormalized for
	// scoring and suggestion prioritization.
	Category capability.Category `json:"category"`

	// Configured reports whether the live configuration state confirms the
	// feature is set up. It transitions false to true only on confirmation
	// and never reverts without an explicit re-check.
	Configured bool `json:"configured"`

	// DiscoveredAt is when the pair was first seen.
	DiscoveredAt time.Time `json:"discovered_at"`

	// LastChecked is when the live state was last consulted.
	LastChecked time.Time `json:"last_checked"`
}
