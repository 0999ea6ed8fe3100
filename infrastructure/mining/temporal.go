// Package mining implements the three pattern miners that analyze the
// rolling event window: temporal clustering, co-occurrence, and regularity.
package mining

import (
	"context"
	"fmt"
	"math"

	"github.com/dwellsense/dwellsense/domain/event"
	"github.com/dwellsense/dwellsense/domain/pattern"
	"github.com/dwellsense/dwellsense/infrastructure/logging"
)

// TemporalMiner finds devices acted on at a consistent time of day by
// clustering hour-of-day values per device.
type TemporalMiner struct {
	maxClusters   int
	iterations    int
	mergeDistance float64
}

// TemporalOption configures the temporal miner.
type TemporalOption func(*TemporalMiner)

// WithMaxClusters sets the cluster count ceiling.
func WithMaxClusters(k int) TemporalOption {
	return func(m *TemporalMiner) {
		m.maxClusters = k
	}
}

// WithMergeDistance sets the centroid distance, in fractional hours, under
// which clusters are folded together.
func WithMergeDistance(hours float64) TemporalOption {
	return func(m *TemporalMiner) {
		m.mergeDistance = hours
	}
}

// NewTemporalMiner creates a temporal clustering miner.
func NewTemporalMiner(opts ...TemporalOption) *TemporalMiner {
	m := &TemporalMiner{
		maxClusters:   3,
		iterations:    25,
		mergeDistance: 0.75,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Type returns the pattern type this miner produces.
func (m *TemporalMiner) Type() pattern.Type {
	return pattern.TypeTemporal
}

// Mine clusters each device's manual events by hour of day. A cluster
// becomes a pattern when it holds at least MinOccurrences points and its
// share of the device's events clears MinConfidence; the share is reported
// as confidence.
func (m *TemporalMiner) Mine(ctx context.Context, events []event.Event, opts pattern.MineOptions) ([]pattern.Pattern, error) {
	var patterns []pattern.Pattern

	for deviceID, deviceEvents := range event.ByDevice(manualOnly(events)) {
		if err := ctx.Err(); err != nil {
			return patterns, fmt.Errorf("%w: %v", pattern.ErrOverBudget, err)
		}

		if len(deviceEvents) < opts.MinSamples {
			logging.Debug().
				Add(logging.Component("temporal_miner")).
				Add(logging.DeviceID(deviceID)).
				Add(logging.Count("samples", len(deviceEvents))).
				Add(logging.ErrorField(pattern.ErrInsufficientData)).
				Msg("device skipped")
			continue
		}

		hours := make([]float64, len(deviceEvents))
		for i, e := range deviceEvents {
			hours[i] = e.HourOfDay()
		}

		k := m.maxClusters
		if len(hours) < k {
			k = len(hours)
		}

		for _, c := range kmeans1d(hours, k, m.iterations, m.mergeDistance) {
			if len(c.points) < opts.MinOccurrences {
				continue
			}
			ratio := float64(len(c.points)) / float64(len(deviceEvents))
			if ratio <= opts.MinConfidence {
				continue
			}

			hour := int(c.centroid) % 24
			minute := int(math.Round((c.centroid - math.Floor(c.centroid)) * 60))
			if minute == 60 {
				minute = 0
				hour = (hour + 1) % 24
			}

			p := pattern.New(pattern.TypeTemporal, deviceID)
			p.Occurrences = len(c.points)
			p.Confidence = ratio
			p.Fingerprint = fmt.Sprintf("temporal:%s:%02d", deviceID, hour)
			if err := p.SetData(pattern.TemporalData{
				Hour:        hour,
				Minute:      minute,
				ClusterSize: len(c.points),
				Spread:      c.spread(),
			}); err != nil {
				continue
			}

			patterns = append(patterns, *p)
			if opts.Limit > 0 && len(patterns) >= opts.Limit {
				return patterns, nil
			}
		}
	}

	return patterns, nil
}

// manualOnly keeps the user-triggered events; automation-triggered changes
// carry no evidence of an unmet automation need.
func manualOnly(events []event.Event) []event.Event {
	manual := make([]event.Event, 0, len(events))
	for _, e := range events {
		if e.Manual {
			manual = append(manual, e)
		}
	}
	return manual
}

var _ pattern.Miner = (*TemporalMiner)(nil)
