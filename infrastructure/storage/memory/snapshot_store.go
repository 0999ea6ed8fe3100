package memory

import (
	"context"
	"sync"

	"github.com/dwellsense/dwellsense/domain/score"
)

// SnapshotStore is an in-memory implementation of score.SnapshotStore.
type SnapshotStore struct {
	mu        sync.RWMutex
	snapshots []score.Snapshot
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{}
}

// Save persists a snapshot.
func (s *SnapshotStore) Save(ctx context.Context, snap score.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshots = append(s.snapshots, snap)
	return nil
}

// Latest returns the most recent snapshot.
func (s *SnapshotStore) Latest(ctx context.Context) (*score.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.snapshots) == 0 {
		return nil, score.ErrNoSnapshot
	}

	latest := s.snapshots[len(s.snapshots)-1]
	return &latest, nil
}

var _ score.SnapshotStore = (*SnapshotStore)(nil)
