package batch

import "errors"

var (
	// ErrRunLocked indicates another run already holds the lock. The new
	// run is skipped, not queued.
	ErrRunLocked = errors.New("batch run already in progress")

	// ErrRunOverBudget indicates a phase exceeded its time budget and was
	// cut short with partial results.
	ErrRunOverBudget = errors.New("batch phase over budget")
)
