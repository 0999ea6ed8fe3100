// Package memory provides in-memory storage implementations, used in tests
// and single-process deployments.
package memory

import (
	"context"
	"sync"

	"github.com/dwellsense/dwellsense/domain/capability"
)

// CapabilityStore is an in-memory implementation of capability.Store.
type CapabilityStore struct {
	mu          sync.RWMutex
	definitions map[capability.Key]*capability.Definition
}

// NewCapabilityStore creates a new in-memory capability store.
func NewCapabilityStore() *CapabilityStore {
	return &CapabilityStore{
		definitions: make(map[capability.Key]*capability.Definition),
	}
}

// Upsert stores a definition. Last write wins on LastUpdated; a staler
// definition never replaces a fresher one, which makes the call idempotent.
func (s *CapabilityStore) Upsert(ctx context.Context, def *capability.Definition) error {
	if def.Key.Vendor == "" || def.Key.Model == "" {
		return capability.ErrInvalidDefinition
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.definitions[def.Key]; ok && existing.LastUpdated.After(def.LastUpdated) {
		return nil
	}

	stored := *def
	stored.Features = append([]capability.Feature(nil), def.Features...)
	s.definitions[def.Key] = &stored

	return nil
}

// Lookup returns the definition for a key.
func (s *CapabilityStore) Lookup(ctx context.Context, key capability.Key) (*capability.Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	def, ok := s.definitions[key]
	if !ok {
		return nil, capability.ErrDefinitionNotFound
	}

	result := *def
	result.Features = append([]capability.Feature(nil), def.Features...)
	return &result, nil
}

// List returns all stored definitions.
func (s *CapabilityStore) List(ctx context.Context) ([]*capability.Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]*capability.Definition, 0, len(s.definitions))
	for _, def := range s.definitions {
		result := *def
		result.Features = append([]capability.Feature(nil), def.Features...)
		results = append(results, &result)
	}
	return results, nil
}

var _ capability.Store = (*CapabilityStore)(nil)
