// Package device provides the read-side interfaces to the external device
// inventory and live configuration state.
package device

import (
	"context"

	"github.com/dwellsense/dwellsense/domain/capability"
)

// Device is one entry of the external inventory snapshot.
type Device struct {
	// ID is the inventory identifier, e.g. "light.kitchen".
	ID string `json:"id"`

	// Vendor is the manufacturer name as reported by the integration.
	Vendor string `json:"vendor"`

	// Model is the vendor model identifier.
	Model string `json:"model"`

	// Integration names the integration type the device is connected
	// through, e.g. "zigbee" or "matter".
	Integration string `json:"integration"`

	// Area is the physical location, when known.
	Area string `json:"area,omitempty"`
}

// CapabilityKey returns the capability store key for this device's model.
func (d Device) CapabilityKey() capability.Key {
	return capability.Key{Vendor: d.Vendor, Model: d.Model, Integration: d.Integration}
}

// Inventory lists the devices known to the external system.
type Inventory interface {
	Devices(ctx context.Context) ([]Device, error)
}

// ConfigState reads whether a feature is actually configured on a device,
// from the live external configuration. A feature absent from the live state
// is not configured.
type ConfigState interface {
	Configured(ctx context.Context, deviceID, feature string) (bool, error)
}
