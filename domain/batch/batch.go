// Package batch provides the daily analysis run coordination primitives.
package batch

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Run identifies one batch execution.
type Run struct {
	// ID is the unique run identifier.
	ID string `json:"id"`

	// StartedAt and FinishedAt bound the execution.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitzero"`
}

// NewRun creates a run with a generated ID.
func NewRun() *Run {
	return &Run{
		ID:        uuid.New().String(),
		StartedAt: time.Now().UTC(),
	}
}

// Lock serializes batch runs. At most one run holds the lock at a time;
// the TTL bounds how long a crashed run can block the next one.
type Lock interface {
	// Acquire takes the lock for the holder or returns ErrRunLocked.
	Acquire(ctx context.Context, holder string, ttl time.Duration) error

	// Release frees the lock if the holder still owns it.
	Release(ctx context.Context, holder string) error
}
