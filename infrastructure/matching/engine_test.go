package matching

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dwellsense/dwellsense/domain/capability"
	"github.com/dwellsense/dwellsense/domain/device"
	"github.com/dwellsense/dwellsense/domain/usage"
	"github.com/dwellsense/dwellsense/infrastructure/storage/memory"
)

type fakeInventory struct {
	devices []device.Device
	err     error
}

func (f *fakeInventory) Devices(ctx context.Context) ([]device.Device, error) {
	return f.devices, f.err
}

type fakeConfigState struct {
	configured map[string]bool
	err        error
}

func (f *fakeConfigState) Configured(ctx context.Context, deviceID, feature string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.configured[deviceID+"/"+feature], nil
}

func bulbDefinition(t *testing.T, store capability.Store) {
	t.Helper()
	def := &capability.Definition{
		Key: capability.Key{Vendor: "Signify", Model: "LCA001", Integration: "zigbee"},
		Features: []capability.Feature{
			{Name: "state", Property: "state", Category: capability.CategoryLighting},
			{Name: "brightness", Property: "brightness", Category: capability.CategoryLighting},
			{Name: "power_on_behavior", Property: "power_on_behavior", Category: capability.CategoryConvenience},
		},
		LastUpdated: time.Now(),
	}
	if err := store.Upsert(context.Background(), def); err != nil {
		t.Fatalf("seeding definition: %v", err)
	}
}

func bulb(id string) device.Device {
	return device.Device{ID: id, Vendor: "Signify", Model: "LCA001", Integration: "zigbee"}
}

func TestEngine_RecordsFeatureState(t *testing.T) {
	definitions := memory.NewCapabilityStore()
	records := memory.NewUsageStore()
	bulbDefinition(t, definitions)

	inventory := &fakeInventory{devices: []device.Device{bulb("light.kitchen")}}
	state := &fakeConfigState{configured: map[string]bool{
		"light.kitchen/state":      true,
		"light.kitchen/brightness": true,
	}}

	engine := NewEngine(inventory, state, definitions, records)
	result, err := engine.Match(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.DevicesMatched != 1 || result.DevicesSkipped != 0 {
		t.Errorf("expected 1 matched / 0 skipped, got %d / %d", result.DevicesMatched, result.DevicesSkipped)
	}
	if result.FeaturesScanned != 3 {
		t.Errorf("expected 3 features scanned, got %d", result.FeaturesScanned)
	}

	rec, err := records.Get(context.Background(), "light.kitchen", "brightness")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rec.Configured {
		t.Error("expected brightness to be configured")
	}
	if rec.Category != capability.CategoryLighting {
		t.Errorf("expected lighting category, got %s", rec.Category)
	}

	rec, err = records.Get(context.Background(), "light.kitchen", "power_on_behavior")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Configured {
		t.Error("expected power_on_behavior to be unconfigured")
	}
}

func TestEngine_UnknownModelSkipped(t *testing.T) {
	definitions := memory.NewCapabilityStore()
	records := memory.NewUsageStore()

	inventory := &fakeInventory{devices: []device.Device{
		{ID: "sensor.mystery", Vendor: "NoName", Model: "X1", Integration: "zigbee"},
	}}

	engine := NewEngine(inventory, &fakeConfigState{}, definitions, records)
	result, err := engine.Match(context.Background())
	if err != nil {
		t.Fatalf("skips must not fail the pass: %v", err)
	}

	if result.DevicesSkipped != 1 || result.DevicesMatched != 0 {
		t.Errorf("expected 1 skipped / 0 matched, got %d / %d", result.DevicesSkipped, result.DevicesMatched)
	}

	recs, err := records.List(context.Background(), usage.ListFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("expected no records for skipped device, got %d", len(recs))
	}
}

func TestEngine_ReconfirmsLiveStateEachPass(t *testing.T) {
	definitions := memory.NewCapabilityStore()
	records := memory.NewUsageStore()
	bulbDefinition(t, definitions)

	inventory := &fakeInventory{devices: []device.Device{bulb("light.hall")}}
	state := &fakeConfigState{configured: map[string]bool{"light.hall/state": true}}

	engine := NewEngine(inventory, state, definitions, records)
	if _, err := engine.Match(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The automation backing this feature was deleted between passes.
	state.configured["light.hall/state"] = false
	if _, err := engine.Match(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec, err := records.Get(context.Background(), "light.hall", "state")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Configured {
		t.Error("expected record to reflect the deleted automation")
	}
}

func TestEngine_LiveStateErrorKeepsLastKnown(t *testing.T) {
	definitions := memory.NewCapabilityStore()
	records := memory.NewUsageStore()
	bulbDefinition(t, definitions)

	inventory := &fakeInventory{devices: []device.Device{bulb("light.bed")}}
	state := &fakeConfigState{configured: map[string]bool{"light.bed/state": true}}

	engine := NewEngine(inventory, state, definitions, records)
	if _, err := engine.Match(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	state.err = errors.New("gateway timeout")
	if _, err := engine.Match(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec, err := records.Get(context.Background(), "light.bed", "state")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rec.Configured {
		t.Error("expected last known state to survive a failed live check")
	}
}

func TestEngine_InventoryFailureIsFatal(t *testing.T) {
	inventory := &fakeInventory{err: errors.New("hub unreachable")}
	engine := NewEngine(inventory, &fakeConfigState{}, memory.NewCapabilityStore(), memory.NewUsageStore())

	if _, err := engine.Match(context.Background()); err == nil {
		t.Fatal("expected error when the inventory is unreachable")
	}
}
