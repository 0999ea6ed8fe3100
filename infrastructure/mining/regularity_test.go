package mining

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dwellsense/dwellsense/domain/event"
	"github.com/dwellsense/dwellsense/domain/pattern"
)

func TestRegularityMiner_NightlyRoutine(t *testing.T) {
	// 10 events at 22:15 over 10 days plus one stray 03:00 action. The stray
	// point is the sparsest and gets dropped; the tight group survives.
	var events []event.Event
	for day := 1; day <= 10; day++ {
		events = append(events, event.Event{
			DeviceID:  "lock.front",
			Timestamp: time.Date(2026, 7, day, 22, 15, 0, 0, time.UTC),
			Attribute: "state",
			Value:     "locked",
			Manual:    true,
		})
	}
	events = append(events, event.Event{
		DeviceID:  "lock.front",
		Timestamp: time.Date(2026, 7, 11, 3, 0, 0, 0, time.UTC),
		Attribute: "state",
		Value:     "locked",
		Manual:    true,
	})

	miner := NewRegularityMiner()
	patterns, err := miner.Mine(context.Background(), events, pattern.DefaultMineOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(patterns) != 1 {
		t.Fatalf("expected 1 pattern, got %d", len(patterns))
	}

	p := patterns[0]
	if p.Type != pattern.TypeAnomaly {
		t.Errorf("expected anomaly type, got %s", p.Type)
	}
	if p.DeviceID != "lock.front" {
		t.Errorf("expected lock.front, got %s", p.DeviceID)
	}
	if p.Occurrences != 10 {
		t.Errorf("expected 10 occurrences, got %d", p.Occurrences)
	}
	if p.Confidence < 0.7 {
		t.Errorf("expected confidence above floor, got %f", p.Confidence)
	}

	var data pattern.RegularityData
	if err := p.GetData(&data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if data.Hour != 22 {
		t.Errorf("expected hour 22, got %d", data.Hour)
	}
	if data.InlierCount != 10 {
		t.Errorf("expected 10 inliers, got %d", data.InlierCount)
	}
	if len(data.Weekdays) == 0 {
		t.Error("expected weekdays to be recorded")
	}
}

func TestRegularityMiner_SparseDeviceSkipped(t *testing.T) {
	var events []event.Event
	for day := 1; day <= 4; day++ {
		events = append(events, event.Event{
			DeviceID:  "lock.back",
			Timestamp: time.Date(2026, 7, day, 22, 0, 0, 0, time.UTC),
			Manual:    true,
		})
	}

	miner := NewRegularityMiner()
	patterns, err := miner.Mine(context.Background(), events, pattern.DefaultMineOptions())
	if err != nil {
		t.Fatalf("expected graceful skip, got error: %v", err)
	}
	if len(patterns) != 0 {
		t.Errorf("expected 0 patterns for sparse device, got %d", len(patterns))
	}
}

func TestRegularityMiner_IrregularDeviceNoPattern(t *testing.T) {
	// Events scattered across the whole day: no hour group dominates after
	// outlier removal.
	var events []event.Event
	for day := 1; day <= 12; day++ {
		events = append(events, event.Event{
			DeviceID:  "switch.garage",
			Timestamp: time.Date(2026, 7, day, (day*7)%24, 0, 0, 0, time.UTC),
			Manual:    true,
		})
	}

	miner := NewRegularityMiner()
	patterns, err := miner.Mine(context.Background(), events, pattern.DefaultMineOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(patterns) != 0 {
		t.Errorf("expected 0 patterns, got %d", len(patterns))
	}
}

func TestRegularityMiner_BudgetCutReturnsPartial(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var events []event.Event
	for day := 1; day <= 10; day++ {
		events = append(events, event.Event{
			DeviceID:  "lock.front",
			Timestamp: time.Date(2026, 7, day, 22, 0, 0, 0, time.UTC),
			Manual:    true,
		})
	}

	miner := NewRegularityMiner()
	_, err := miner.Mine(ctx, events, pattern.DefaultMineOptions())
	if !errors.Is(err, pattern.ErrOverBudget) {
		t.Errorf("expected ErrOverBudget, got %v", err)
	}
}
