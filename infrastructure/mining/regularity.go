package mining

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/dwellsense/dwellsense/domain/event"
	"github.com/dwellsense/dwellsense/domain/pattern"
	"github.com/dwellsense/dwellsense/infrastructure/logging"
)

// RegularityMiner surfaces highly regular manual habits. It featurizes each
// device's events as (hour, weekday) points, scores them with a
// nearest-neighbor density measure, and discards the sparsest ~10% as
// outliers. The inliers are the signal: a manual action the user performs on
// a tight schedule is evidence of an unmet automation need.
type RegularityMiner struct {
	contamination float64
	neighbors     int
	dayWeight     float64
}

// RegularityOption configures the regularity miner.
type RegularityOption func(*RegularityMiner)

// WithContamination sets the fraction of points flagged as outliers.
func WithContamination(f float64) RegularityOption {
	return func(m *RegularityMiner) {
		m.contamination = f
	}
}

// WithNeighbors sets the neighbor count of the density score.
func WithNeighbors(k int) RegularityOption {
	return func(m *RegularityMiner) {
		m.neighbors = k
	}
}

// NewRegularityMiner creates a regularity miner.
func NewRegularityMiner(opts ...RegularityOption) *RegularityMiner {
	m := &RegularityMiner{
		contamination: 0.1,
		neighbors:     3,
		dayWeight:     1.5,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Type returns the pattern type this miner produces.
func (m *RegularityMiner) Type() pattern.Type {
	return pattern.TypeAnomaly
}

type hourDayPoint struct {
	hour float64
	day  float64
}

// Mine emits one pattern per device hour group whose inlier share of the
// device's events clears MinConfidence with at least MinOccurrences points.
func (m *RegularityMiner) Mine(ctx context.Context, events []event.Event, opts pattern.MineOptions) ([]pattern.Pattern, error) {
	var patterns []pattern.Pattern

	for deviceID, deviceEvents := range event.ByDevice(manualOnly(events)) {
		if err := ctx.Err(); err != nil {
			return patterns, fmt.Errorf("%w: %v", pattern.ErrOverBudget, err)
		}

		if len(deviceEvents) < opts.MinSamples {
			logging.Debug().
				Add(logging.Component("regularity_miner")).
				Add(logging.DeviceID(deviceID)).
				Add(logging.Count("samples", len(deviceEvents))).
				Add(logging.ErrorField(pattern.ErrInsufficientData)).
				Msg("device skipped")
			continue
		}

		points := make([]hourDayPoint, len(deviceEvents))
		for i, e := range deviceEvents {
			points[i] = hourDayPoint{
				hour: e.HourOfDay(),
				day:  float64(e.Weekday()),
			}
		}

		inliers := m.inlierIndexes(points)

		// Group inliers by hour of day.
		byHour := make(map[int][]int)
		for _, idx := range inliers {
			byHour[int(points[idx].hour)%24] = append(byHour[int(points[idx].hour)%24], idx)
		}

		for hour, idxs := range byHour {
			if len(idxs) < opts.MinOccurrences {
				continue
			}
			share := float64(len(idxs)) / float64(len(deviceEvents))
			if share < opts.MinConfidence {
				continue
			}

			weekdaySet := make(map[int]bool)
			for _, idx := range idxs {
				weekdaySet[int(points[idx].day)] = true
			}
			weekdays := make([]int, 0, len(weekdaySet))
			for d := range weekdaySet {
				weekdays = append(weekdays, d)
			}
			sort.Ints(weekdays)

			p := pattern.New(pattern.TypeAnomaly, deviceID)
			p.Occurrences = len(idxs)
			p.Confidence = share
			p.Fingerprint = fmt.Sprintf("anomaly:%s:%02d", deviceID, hour)
			if err := p.SetData(pattern.RegularityData{
				Hour:        hour,
				Weekdays:    weekdays,
				InlierCount: len(idxs),
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

// inlierIndexes returns the indexes of the densest points, dropping the
// sparsest contamination fraction (at least one point once there is
// anything to drop).
func (m *RegularityMiner) inlierIndexes(points []hourDayPoint) []int {
	n := len(points)
	scores := make([]float64, n)

	for i := range points {
		dists := make([]float64, 0, n-1)
		for j := range points {
			if i == j {
				continue
			}
			dists = append(dists, m.distance(points[i], points[j]))
		}
		sort.Float64s(dists)

		k := m.neighbors
		if k > len(dists) {
			k = len(dists)
		}
		var sum float64
		for _, d := range dists[:k] {
			sum += d
		}
		if k > 0 {
			scores[i] = sum / float64(k)
		}
	}

	drop := int(math.Round(float64(n) * m.contamination))
	if drop == 0 && n > 0 {
		drop = 1
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	// Sparsest (highest score) last.
	sort.Slice(order, func(a, b int) bool {
		return scores[order[a]] < scores[order[b]]
	})

	inliers := order[:n-drop]
	sort.Ints(inliers)
	return inliers
}

// distance is circular in the hour, wrapping midnight, and circular in the
// weekday, with the day term weighted to the hour scale.
func (m *RegularityMiner) distance(a, b hourDayPoint) float64 {
	dh := math.Abs(a.hour - b.hour)
	if dh > 12 {
		dh = 24 - dh
	}
	dd := math.Abs(a.day - b.day)
	if dd > 3.5 {
		dd = 7 - dd
	}
	return dh + dd*m.dayWeight
}

var _ pattern.Miner = (*RegularityMiner)(nil)
