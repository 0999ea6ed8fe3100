package application

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/dwellsense/dwellsense/domain/automation"
	"github.com/dwellsense/dwellsense/domain/batch"
	"github.com/dwellsense/dwellsense/domain/capability"
	"github.com/dwellsense/dwellsense/domain/device"
	"github.com/dwellsense/dwellsense/domain/event"
	"github.com/dwellsense/dwellsense/domain/notification"
	"github.com/dwellsense/dwellsense/domain/pattern"
	"github.com/dwellsense/dwellsense/infrastructure/matching"
	"github.com/dwellsense/dwellsense/infrastructure/mining"
	"github.com/dwellsense/dwellsense/infrastructure/parser"
	"github.com/dwellsense/dwellsense/infrastructure/ranking"
	"github.com/dwellsense/dwellsense/infrastructure/runlock"
	"github.com/dwellsense/dwellsense/infrastructure/scoring"
	"github.com/dwellsense/dwellsense/infrastructure/storage/memory"
	"github.com/dwellsense/dwellsense/infrastructure/suggesting"
)

type staticInventory []device.Device

func (i staticInventory) Devices(ctx context.Context) ([]device.Device, error) {
	return i, nil
}

type staticConfigState map[string]bool

func (s staticConfigState) Configured(ctx context.Context, deviceID, feature string) (bool, error) {
	return s[deviceID+"/"+feature], nil
}

type emptyRuntime struct{}

func (emptyRuntime) Deploy(ctx context.Context, payload json.RawMessage) (string, error) {
	return "ref-1", nil
}
func (emptyRuntime) Remove(ctx context.Context, externalRef string) error { return nil }
func (emptyRuntime) ListExisting(ctx context.Context) ([]automation.Existing, error) {
	return nil, nil
}

// silentBridge is a connected bridge that never publishes a device list;
// Snapshot blocks until the caller gives up.
type silentBridge struct{}

func (silentBridge) Snapshot(ctx context.Context) ([]capability.RawDescriptor, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type captureNotifier struct {
	events []*notification.Event
}

func (n *captureNotifier) Notify(ctx context.Context, event *notification.Event) error {
	n.events = append(n.events, event)
	return nil
}
func (n *captureNotifier) Close() error { return nil }

func staticTextGen() automation.TextGenerator {
	return automation.TextGeneratorFunc(func(ctx context.Context, prompt automation.Prompt) (automation.Text, error) {
		return automation.Text{Title: "Generated title", Description: "Generated description"}, nil
	})
}

// nightlyEvents produces a window where light.hall turns on near 22:00 every
// night, enough for the temporal miner to find a cluster.
func nightlyEvents(now time.Time) []event.Event {
	var events []event.Event
	for day := 1; day <= 12; day++ {
		ts := now.AddDate(0, 0, -day)
		ts = time.Date(ts.Year(), ts.Month(), ts.Day(), 22, day%10, 0, 0, time.UTC)
		events = append(events, event.Event{
			DeviceID:  "light.hall",
			Timestamp: ts,
			Attribute: "state",
			Value:     "on",
			Manual:    true,
		})
	}
	return events
}

func newTestBatch(t *testing.T, config *BatchConfig) (*BatchService, *captureNotifier) {
	t.Helper()

	definitions := memory.NewCapabilityStore()
	if err := definitions.Upsert(context.Background(), &capability.Definition{
		Key: capability.Key{Vendor: "Signify", Model: "LCA001", Integration: "zigbee"},
		Features: []capability.Feature{
			{Name: "state", Category: capability.CategoryLighting},
			{Name: "brightness", Category: capability.CategoryLighting},
			{Name: "power_on_behavior", Category: capability.CategoryPower},
		},
		LastUpdated: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	inventory := staticInventory{
		{ID: "light.hall", Vendor: "Signify", Model: "LCA001", Integration: "zigbee", Area: "hall"},
	}
	configState := staticConfigState{"light.hall/state": true}

	records := memory.NewUsageStore()
	suggestions := memory.NewSuggestionStore()
	snapshots := memory.NewSnapshotStore()
	notifier := &captureNotifier{}
	textgen := staticTextGen()

	base := BatchConfig{
		Lock:        runlock.NewMemoryLock(),
		Source:      event.SourceFunc(func(ctx context.Context, from, to time.Time, deviceIDs ...string) ([]event.Event, error) {
			return nightlyEvents(time.Now().UTC()), nil
		}),
		Definitions: definitions,
		Matcher:     matching.NewEngine(inventory, configState, definitions, records),
		Scorer:      scoring.NewScorer(records, inventory, snapshots),
		Miners: []pattern.Miner{
			mining.NewTemporalMiner(),
			mining.NewCoOccurrenceMiner(),
			mining.NewRegularityMiner(),
		},
		PatternGen: suggesting.NewPatternGenerator(textgen, suggestions),
		FeatureGen: suggesting.NewFeatureGenerator(records, inventory, emptyRuntime{}, textgen, suggestions),
		Ranker:     ranking.NewRanker(suggestions),
		Notifier:   notifier,
	}
	if config != nil {
		if config.Lock != nil {
			base.Lock = config.Lock
		}
		if config.Source != nil {
			base.Source = config.Source
		}
		if config.Descriptors != nil {
			base.Descriptors = config.Descriptors
			base.Parser = parser.New()
		}
		if config.RefreshBudget > 0 {
			base.RefreshBudget = config.RefreshBudget
		}
	}

	service, err := NewBatchService(base)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return service, notifier
}

func TestBatchService_ExecuteFullRun(t *testing.T) {
	service, notifier := newTestBatch(t, nil)

	report, err := service.Execute(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.Matching.DevicesMatched != 1 {
		t.Errorf("expected 1 matched device, got %d", report.Matching.DevicesMatched)
	}
	if report.PatternsDetected == 0 {
		t.Error("expected the nightly routine to be detected")
	}
	if report.Merged == 0 {
		t.Error("expected merged suggestions")
	}
	if len(report.Shortlist) == 0 {
		t.Error("expected a non-empty shortlist")
	}
	if report.Score == nil || report.Score.Global.Total == 0 {
		t.Error("expected a populated utilization report")
	}
	if report.Run.FinishedAt.IsZero() {
		t.Error("expected the run to be marked finished")
	}

	if len(notifier.events) != 1 {
		t.Fatalf("expected 1 run summary notification, got %d", len(notifier.events))
	}
	if notifier.events[0].Type != notification.EventRunCompleted {
		t.Errorf("expected run_completed, got %s", notifier.events[0].Type)
	}
}

func TestBatchService_SilentBridgeDegradesToStoredDefinitions(t *testing.T) {
	service, notifier := newTestBatch(t, &BatchConfig{
		Descriptors:   silentBridge{},
		RefreshBudget: 50 * time.Millisecond,
	})

	report, err := service.Execute(context.Background())
	if err != nil {
		t.Fatalf("a silent bridge must not fail the run: %v", err)
	}

	// The refresh gave up within its own budget and the run matched
	// against the definitions already stored.
	if report.Matching.DevicesMatched != 1 {
		t.Errorf("expected stored definitions to carry the run, got %d matched", report.Matching.DevicesMatched)
	}
	if len(notifier.events) != 1 {
		t.Errorf("expected the run to complete and publish its summary, got %d events", len(notifier.events))
	}
}

func TestBatchService_LockedRunAborts(t *testing.T) {
	lock := runlock.NewMemoryLock()
	if err := lock.Acquire(context.Background(), "other-run", time.Hour); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	service, _ := newTestBatch(t, &BatchConfig{Lock: lock})

	_, err := service.Execute(context.Background())
	if !errors.Is(err, batch.ErrRunLocked) {
		t.Errorf("expected ErrRunLocked, got %v", err)
	}
}

func TestBatchService_SourceFailureIsFatal(t *testing.T) {
	service, notifier := newTestBatch(t, &BatchConfig{
		Source: event.SourceFunc(func(ctx context.Context, from, to time.Time, deviceIDs ...string) ([]event.Event, error) {
			return nil, event.ErrSourceUnavailable
		}),
	})

	_, err := service.Execute(context.Background())
	if !errors.Is(err, event.ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
	if len(notifier.events) != 0 {
		t.Error("a failed run must not publish a summary")
	}
}

func TestBatchService_LockReleasedAfterRun(t *testing.T) {
	lock := runlock.NewMemoryLock()
	service, _ := newTestBatch(t, &BatchConfig{Lock: lock})

	if _, err := service.Execute(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A follow-up run must be able to take the lock immediately.
	if err := lock.Acquire(context.Background(), "next-run", time.Hour); err != nil {
		t.Errorf("expected the lock to be free after the run, got %v", err)
	}
}

func TestNewBatchService_RequiresCollaborators(t *testing.T) {
	_, err := NewBatchService(BatchConfig{})
	if err == nil {
		t.Fatal("expected an error for a config without collaborators")
	}
}
