package pattern

import (
	"context"

	"github.com/dwellsense/dwellsense/domain/event"
)

// Miner detects patterns of one type from an event window. Miners share the
// read-only window and run independently; a device below the miner's sample
// threshold yields zero patterns, not an error.
type Miner interface {
	// Mine analyzes the window and returns detected patterns. On context
	// expiry it returns the patterns found so far together with
	// ErrOverBudget, so partial output survives a budget cut.
	Mine(ctx context.Context, events []event.Event, opts MineOptions) ([]Pattern, error)

	// Type returns the pattern type this miner produces.
	Type() Type
}

// MineOptions configures pattern mining.
type MineOptions struct {
	// MinConfidence is the confidence floor for emitted patterns.
	MinConfidence float64

	// MinOccurrences is the occurrence floor for emitted patterns.
	MinOccurrences int

	// MinSamples is the per-device sample count below which a device is
	// skipped entirely.
	MinSamples int

	// Limit caps the number of patterns returned (0 = no limit).
	Limit int
}

// DefaultMineOptions returns the thresholds the daily batch runs with.
func DefaultMineOptions() MineOptions {
	return MineOptions{
		MinConfidence:  0.7,
		MinOccurrences: MinOccurrences,
		MinSamples:     5,
	}
}
