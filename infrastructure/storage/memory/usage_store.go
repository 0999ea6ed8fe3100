package memory

import (
	"context"
	"sync"

	"github.com/dwellsense/dwellsense/domain/usage"
)

type usageKey struct {
	deviceID string
	feature  string
}

// UsageStore is an in-memory implementation of usage.Store.
type UsageStore struct {
	mu      sync.RWMutex
	records map[usageKey]*usage.Record
}

// NewUsageStore creates a new in-memory usage store.
func NewUsageStore() *UsageStore {
	return &UsageStore{
		records: make(map[usageKey]*usage.Record),
	}
}

// Upsert stores a record. The DiscoveredAt of an existing record is
// preserved, keeping one record per (device, feature) pair across runs.
func (s *UsageStore) Upsert(ctx context.Context, rec *usage.Record) error {
	if rec.DeviceID == "" || rec.Feature == "" {
		return usage.ErrInvalidRecord
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := usageKey{deviceID: rec.DeviceID, feature: rec.Feature}
	stored := *rec
	if existing, ok := s.records[key]; ok {
		stored.DiscoveredAt = existing.DiscoveredAt
	}
	s.records[key] = &stored

	return nil
}

// Get retrieves the record for a (device, feature) pair.
func (s *UsageStore) Get(ctx context.Context, deviceID, feature string) (*usage.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[usageKey{deviceID: deviceID, feature: feature}]
	if !ok {
		return nil, usage.ErrRecordNotFound
	}

	result := *rec
	return &result, nil
}

// List returns records matching the filter.
func (s *UsageStore) List(ctx context.Context, filter usage.ListFilter) ([]*usage.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []*usage.Record
	for _, rec := range s.records {
		if !matchesUsageFilter(rec, filter) {
			continue
		}
		result := *rec
		results = append(results, &result)
		if filter.Limit > 0 && len(results) >= filter.Limit {
			break
		}
	}
	return results, nil
}

func matchesUsageFilter(rec *usage.Record, filter usage.ListFilter) bool {
	if filter.DeviceID != "" && rec.DeviceID != filter.DeviceID {
		return false
	}
	if filter.Configured != nil && rec.Configured != *filter.Configured {
		return false
	}
	if len(filter.Categories) > 0 {
		found := false
		for _, cat := range filter.Categories {
			if rec.Category == cat {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

var _ usage.Store = (*UsageStore)(nil)
