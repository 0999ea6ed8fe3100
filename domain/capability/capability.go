// Package capability provides the unified, vendor-independent description of
// what a device model can do.
package capability

import (
	"encoding/json"
	"time"
)

// Category classifies a feature by the concern it serves.
type Category string

const (
	CategoryLighting    Category = "lighting"
	CategoryClimate     Category = "climate"
	CategoryPower       Category = "power"
	CategorySecurity    Category = "security"
	CategoryEnergy      Category = "energy"
	CategoryMonitoring  Category = "monitoring"
	CategoryConvenience Category = "convenience"

	// CategoryUnknown retains expose types the structural mapping does not
	// cover yet. Unknown features are kept, never dropped, so descriptors
	// from new vendors survive parsing unchanged.
	CategoryUnknown Category = "unknown"
)

// Feature is one capability a device model exposes.
type Feature struct {
	// Name is the unified feature name.
	Name string `json:"name"`

	// Property is the attribute the feature reports or controls.
	Property string `json:"property,omitempty"`

	// Category classifies the feature.
	Category Category `json:"category"`

	// Options are the configuration options the feature accepts, when the
	// descriptor enumerates them.
	Options []string `json:"options,omitempty"`

	// RawType is the expose type from the original descriptor, kept for
	// diagnosis and forward compatibility.
	RawType string `json:"raw_type,omitempty"`
}

// Key identifies a capability definition.
type Key struct {
	Vendor      string `json:"vendor"`
	Model       string `json:"model"`
	Integration string `json:"integration"`
}

// Definition is the unified capability description for one device model.
// Definitions are upserted, never deleted; a fresher LastUpdated supersedes.
type Definition struct {
	Key Key `json:"key"`

	// Description is the vendor's human-readable model description.
	Description string `json:"description,omitempty"`

	// Features are the capabilities the model exposes.
	Features []Feature `json:"features"`

	// LastUpdated is when this definition was last derived from a
	// descriptor. Last write wins on upsert.
	LastUpdated time.Time `json:"last_updated"`
}

// Feature returns the named feature, or nil.
func (d *Definition) Feature(name string) *Feature {
	for i := range d.Features {
		if d.Features[i].Name == name {
			return &d.Features[i]
		}
	}
	return nil
}

// RawDescriptor is an unparsed vendor capability document.
type RawDescriptor = json.RawMessage
