package usage

import (
	"context"

	"github.com/dwellsense/dwellsense/domain/capability"
)

// Store persists feature usage records.
type Store interface {
	// Upsert stores a record, preserving DiscoveredAt of an existing one.
	Upsert(ctx context.Context, rec *Record) error

	// Get retrieves the record for a (device, feature) pair.
	Get(ctx context.Context, deviceID, feature string) (*Record, error)

	// List returns records matching the filter.
	List(ctx context.Context, filter ListFilter) ([]*Record, error)
}

// ListFilter filters usage record queries.
type ListFilter struct {
	// DeviceID restricts to one device.
	DeviceID string

	// Configured restricts by configuration state when non-nil.
	Configured *bool

	// Categories restricts to specific capability categories.
	Categories []capability.Category

	// Limit is the maximum number of results (0 = no limit).
	Limit int
}

// Configured is a convenience for building a ListFilter.
func Configured(v bool) *bool { return &v }
