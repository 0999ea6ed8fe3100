package mining

import (
	"context"
	"testing"
	"time"

	"github.com/dwellsense/dwellsense/domain/event"
	"github.com/dwellsense/dwellsense/domain/pattern"
)

func TestCoOccurrenceMiner_PairedDevices(t *testing.T) {
	// Device A triggers on 8 distinct days; on 6 of them device B follows
	// within 2 minutes. Expected confidence: 6/8 = 0.75.
	var events []event.Event
	for day := 1; day <= 8; day++ {
		at := time.Date(2026, 7, day, 18, 30, 0, 0, time.UTC)
		events = append(events, event.Event{
			DeviceID: "light.living", Timestamp: at, Attribute: "state", Value: "on", Manual: true,
		})
		if day <= 6 {
			events = append(events, event.Event{
				DeviceID: "media.tv", Timestamp: at.Add(2 * time.Minute), Attribute: "state", Value: "on", Manual: true,
			})
		}
	}

	miner := NewCoOccurrenceMiner()
	patterns, err := miner.Mine(context.Background(), events, pattern.DefaultMineOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(patterns) != 1 {
		t.Fatalf("expected 1 pattern, got %d", len(patterns))
	}

	p := patterns[0]
	if p.Type != pattern.TypeCoOccurrence {
		t.Errorf("expected cooccurrence type, got %s", p.Type)
	}
	if p.DeviceID != "light.living" || p.PairedDeviceID != "media.tv" {
		t.Errorf("unexpected pair: %s > %s", p.DeviceID, p.PairedDeviceID)
	}
	if p.Confidence != 0.75 {
		t.Errorf("expected confidence 0.75, got %f", p.Confidence)
	}
	if p.Occurrences != 6 {
		t.Errorf("expected 6 occurrences, got %d", p.Occurrences)
	}

	var data pattern.CoOccurrenceData
	if err := p.GetData(&data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if data.JointCount != 6 || data.TriggerCount != 8 {
		t.Errorf("expected 6/8 counts, got %d/%d", data.JointCount, data.TriggerCount)
	}
}

func TestCoOccurrenceMiner_BelowJointFloor(t *testing.T) {
	// Only 4 joint occurrences: below the floor of 5 even at ratio 1.0.
	var events []event.Event
	for day := 1; day <= 4; day++ {
		at := time.Date(2026, 7, day, 18, 30, 0, 0, time.UTC)
		events = append(events,
			event.Event{DeviceID: "a", Timestamp: at, Manual: true},
			event.Event{DeviceID: "b", Timestamp: at.Add(time.Minute), Manual: true},
		)
	}

	miner := NewCoOccurrenceMiner()
	patterns, err := miner.Mine(context.Background(), events, pattern.DefaultMineOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(patterns) != 0 {
		t.Errorf("expected 0 patterns, got %d", len(patterns))
	}
}

func TestCoOccurrenceMiner_OutsideWindowNotPaired(t *testing.T) {
	var events []event.Event
	for day := 1; day <= 8; day++ {
		at := time.Date(2026, 7, day, 18, 30, 0, 0, time.UTC)
		events = append(events,
			event.Event{DeviceID: "a", Timestamp: at, Manual: true},
			event.Event{DeviceID: "b", Timestamp: at.Add(10 * time.Minute), Manual: true},
		)
	}

	miner := NewCoOccurrenceMiner()
	patterns, err := miner.Mine(context.Background(), events, pattern.DefaultMineOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(patterns) != 0 {
		t.Errorf("expected 0 patterns outside the window, got %d", len(patterns))
	}
}

func TestCoOccurrenceMiner_PairedOncePerTrigger(t *testing.T) {
	// Multiple B events inside one window count once for that trigger.
	var events []event.Event
	for day := 1; day <= 8; day++ {
		at := time.Date(2026, 7, day, 18, 30, 0, 0, time.UTC)
		events = append(events,
			event.Event{DeviceID: "a", Timestamp: at, Manual: true},
			event.Event{DeviceID: "b", Timestamp: at.Add(time.Minute), Manual: true},
			event.Event{DeviceID: "b", Timestamp: at.Add(2 * time.Minute), Manual: true},
		)
	}

	miner := NewCoOccurrenceMiner()
	patterns, err := miner.Mine(context.Background(), events, pattern.DefaultMineOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, p := range patterns {
		if p.DeviceID == "a" && p.Occurrences != 8 {
			t.Errorf("expected 8 joint occurrences for a>b, got %d", p.Occurrences)
		}
	}
}
