package mining

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dwellsense/dwellsense/domain/event"
	"github.com/dwellsense/dwellsense/domain/pattern"
)

// CoOccurrenceMiner finds device pairs that repeatedly act together within a
// short forward window.
type CoOccurrenceMiner struct {
	window        time.Duration
	minJointCount int
}

// CoOccurrenceOption configures the co-occurrence miner.
type CoOccurrenceOption func(*CoOccurrenceMiner)

// WithWindow sets the forward pairing window.
func WithWindow(d time.Duration) CoOccurrenceOption {
	return func(m *CoOccurrenceMiner) {
		m.window = d
	}
}

// WithMinJointCount sets the minimum joint occurrence count.
func WithMinJointCount(n int) CoOccurrenceOption {
	return func(m *CoOccurrenceMiner) {
		m.minJointCount = n
	}
}

// NewCoOccurrenceMiner creates a co-occurrence miner.
func NewCoOccurrenceMiner(opts ...CoOccurrenceOption) *CoOccurrenceMiner {
	m := &CoOccurrenceMiner{
		window:        5 * time.Minute,
		minJointCount: 5,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Type returns the pattern type this miner produces.
func (m *CoOccurrenceMiner) Type() pattern.Type {
	return pattern.TypeCoOccurrence
}

type pairKey struct {
	trigger string
	paired  string
}

// Mine counts, for every manual event, the other devices seen within the
// forward window. A (trigger, paired) pair becomes a pattern when the joint
// count reaches the floor and the joint/trigger-event ratio clears
// MinConfidence; the ratio is reported as confidence.
func (m *CoOccurrenceMiner) Mine(ctx context.Context, events []event.Event, opts pattern.MineOptions) ([]pattern.Pattern, error) {
	manual := manualOnly(events)
	sort.Slice(manual, func(i, j int) bool {
		return manual[i].Timestamp.Before(manual[j].Timestamp)
	})

	triggerCounts := make(map[string]int)
	jointCounts := make(map[pairKey]int)

	for i, trigger := range manual {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("%w: %v", pattern.ErrOverBudget, err)
			}
		}

		triggerCounts[trigger.DeviceID]++

		// Count each paired device at most once per trigger event.
		seen := make(map[string]bool)
		for j := i + 1; j < len(manual); j++ {
			if manual[j].Timestamp.Sub(trigger.Timestamp) > m.window {
				break
			}
			paired := manual[j].DeviceID
			if paired == trigger.DeviceID || seen[paired] {
				continue
			}
			seen[paired] = true
			jointCounts[pairKey{trigger: trigger.DeviceID, paired: paired}]++
		}
	}

	var patterns []pattern.Pattern
	for key, joint := range jointCounts {
		if joint < m.minJointCount || joint < opts.MinOccurrences {
			continue
		}
		total := triggerCounts[key.trigger]
		if total == 0 {
			continue
		}
		ratio := float64(joint) / float64(total)
		if ratio <= opts.MinConfidence {
			continue
		}

		p := pattern.New(pattern.TypeCoOccurrence, key.trigger)
		p.PairedDeviceID = key.paired
		p.Occurrences = joint
		p.Confidence = ratio
		p.Fingerprint = fmt.Sprintf("cooccurrence:%s>%s", key.trigger, key.paired)
		if err := p.SetData(pattern.CoOccurrenceData{
			TriggerDevice: key.trigger,
			PairedDevice:  key.paired,
			WindowMinutes: int(m.window.Minutes()),
			JointCount:    joint,
			TriggerCount:  total,
		}); err != nil {
			continue
		}

		patterns = append(patterns, *p)
		if opts.Limit > 0 && len(patterns) >= opts.Limit {
			break
		}
	}

	return patterns, nil
}

var _ pattern.Miner = (*CoOccurrenceMiner)(nil)
