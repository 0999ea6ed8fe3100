package score

import (
	"context"
	"errors"
	"time"
)

// Snapshot is the persisted global score of one run, kept so the next run
// can report a trend.
type Snapshot struct {
	// RunID identifies the batch run that produced the score.
	RunID string `json:"run_id"`

	// GlobalPercent is the global utilization percentage.
	GlobalPercent float64 `json:"global_percent"`

	// TakenAt is when the snapshot was stored.
	TakenAt time.Time `json:"taken_at"`
}

// SnapshotStore persists one global score per run.
type SnapshotStore interface {
	// Save persists a snapshot.
	Save(ctx context.Context, snap Snapshot) error

	// Latest returns the most recent snapshot, or ErrNoSnapshot.
	Latest(ctx context.Context) (*Snapshot, error)
}

// ErrNoSnapshot indicates no prior run has stored a score. Expected on the
// first run; the trend is then reported as unavailable.
var ErrNoSnapshot = errors.New("no utilization snapshot stored")
