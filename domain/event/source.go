package event

import (
	"context"
	"time"
)

// Source reads historical events from the external event store.
// Implementations may be HTTP, database-backed, or in-memory for tests.
type Source interface {
	// Window returns events in [from, to) ordered by timestamp. An empty
	// deviceIDs list means all devices. Total unavailability must be
	// reported as ErrSourceUnavailable; the caller aborts the run.
	Window(ctx context.Context, from, to time.Time, deviceIDs ...string) ([]Event, error)
}

// SourceFunc is a function that implements Source.
type SourceFunc func(ctx context.Context, from, to time.Time, deviceIDs ...string) ([]Event, error)

// Window implements Source.
func (f SourceFunc) Window(ctx context.Context, from, to time.Time, deviceIDs ...string) ([]Event, error) {
	return f(ctx, from, to, deviceIDs...)
}
