package pattern

import "errors"

var (
	// ErrInsufficientData indicates a device is below the miner's sample
	// threshold. Logged on the skip path, never fatal.
	ErrInsufficientData = errors.New("insufficient data for pattern mining")

	// ErrOverBudget indicates mining was cut off by its time budget.
	// Patterns returned alongside it are valid partial output.
	ErrOverBudget = errors.New("pattern mining exceeded time budget")
)
