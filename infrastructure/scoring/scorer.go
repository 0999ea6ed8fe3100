// Package scoring derives utilization reports from the feature usage records.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dwellsense/dwellsense/domain/device"
	"github.com/dwellsense/dwellsense/domain/score"
	"github.com/dwellsense/dwellsense/domain/usage"
	"github.com/dwellsense/dwellsense/infrastructure/logging"
)

// Scorer aggregates usage records into per-device, per-vendor, and global
// utilization. Reports are derived fresh every call; only the global score is
// persisted, one snapshot per run, to compute the next run's trend.
type Scorer struct {
	records   usage.Store
	inventory device.Inventory
	snapshots score.SnapshotStore
	now       func() time.Time
}

// Option configures the scorer.
type Option func(*Scorer)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Scorer) {
		s.now = now
	}
}

// NewScorer creates a scorer.
func NewScorer(records usage.Store, inventory device.Inventory, snapshots score.SnapshotStore, opts ...Option) *Scorer {
	s := &Scorer{
		records:   records,
		inventory: inventory,
		snapshots: snapshots,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type tally struct {
	configured int
	total      int
}

func (t tally) percent() float64 {
	if t.total == 0 {
		return 0
	}
	return float64(t.configured) / float64(t.total) * 100
}

// Report computes the current utilization view. The global value is the
// feature-count weighted average: a 40-feature thermostat moves it more than
// a 4-feature plug.
func (s *Scorer) Report(ctx context.Context) (*score.Report, error) {
	recs, err := s.records.List(ctx, usage.ListFilter{})
	if err != nil {
		return nil, fmt.Errorf("listing usage records: %w", err)
	}

	vendorOf := make(map[string]string)
	if devices, err := s.inventory.Devices(ctx); err == nil {
		for _, d := range devices {
			vendorOf[d.ID] = d.Vendor
		}
	} else {
		logging.Warn().
			Add(logging.Component("scoring")).
			Add(logging.ErrorField(err)).
			Msg("inventory unavailable, vendor breakdown degraded")
	}

	perDevice := make(map[string]tally)
	perVendor := make(map[string]tally)
	var global tally

	for _, rec := range recs {
		vendor := vendorOf[rec.DeviceID]
		if vendor == "" {
			vendor = "unknown"
		}

		d := perDevice[rec.DeviceID]
		v := perVendor[vendor]
		d.total++
		v.total++
		global.total++
		if rec.Configured {
			d.configured++
			v.configured++
			global.configured++
		}
		perDevice[rec.DeviceID] = d
		perVendor[vendor] = v
	}

	report := &score.Report{
		Global: score.Utilization{
			Subject:     "global",
			Granularity: score.GranularityGlobal,
			Configured:  global.configured,
			Total:       global.total,
			Percent:     global.percent(),
		},
		PerDevice:   utilizations(perDevice, score.GranularityDevice),
		PerVendor:   utilizations(perVendor, score.GranularityVendor),
		GeneratedAt: s.now(),
	}

	prev, err := s.snapshots.Latest(ctx)
	switch {
	case err == nil:
		delta := report.Global.Percent - prev.GlobalPercent
		report.Trend = &delta
	case errors.Is(err, score.ErrNoSnapshot):
		// First run: trend stays unavailable.
	default:
		return nil, fmt.Errorf("reading previous snapshot: %w", err)
	}

	return report, nil
}

// Record persists the run's global score for the next run's trend.
func (s *Scorer) Record(ctx context.Context, runID string, report *score.Report) error {
	return s.snapshots.Save(ctx, score.Snapshot{
		RunID:         runID,
		GlobalPercent: report.Global.Percent,
		TakenAt:       s.now(),
	})
}

func utilizations(tallies map[string]tally, g score.Granularity) []score.Utilization {
	out := make([]score.Utilization, 0, len(tallies))
	for subject, t := range tallies {
		out = append(out, score.Utilization{
			Subject:     subject,
			Granularity: g,
			Configured:  t.configured,
			Total:       t.total,
			Percent:     t.percent(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Subject < out[j].Subject
	})
	return out
}
