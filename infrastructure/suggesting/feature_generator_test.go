package suggesting

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dwellsense/dwellsense/domain/automation"
	"github.com/dwellsense/dwellsense/domain/capability"
	"github.com/dwellsense/dwellsense/domain/device"
	"github.com/dwellsense/dwellsense/domain/suggestion"
	"github.com/dwellsense/dwellsense/domain/usage"
	"github.com/dwellsense/dwellsense/infrastructure/storage/memory"
)

type staticDevices []device.Device

func (d staticDevices) Devices(ctx context.Context) ([]device.Device, error) {
	return d, nil
}

type failingInventory struct{}

func (failingInventory) Devices(ctx context.Context) ([]device.Device, error) {
	return nil, errors.New("inventory unreachable")
}

type fakeRuntime struct {
	existing []automation.Existing
	err      error
}

func (f *fakeRuntime) Deploy(ctx context.Context, payload json.RawMessage) (string, error) {
	return "", errors.New("not used")
}

func (f *fakeRuntime) Remove(ctx context.Context, externalRef string) error {
	return errors.New("not used")
}

func (f *fakeRuntime) ListExisting(ctx context.Context) ([]automation.Existing, error) {
	return f.existing, f.err
}

func seedUsage(t *testing.T, store usage.Store, deviceID, feature string, cat capability.Category, configured bool) {
	t.Helper()
	err := store.Upsert(context.Background(), &usage.Record{
		DeviceID:     deviceID,
		Feature:      feature,
		Category:     cat,
		Configured:   configured,
		DiscoveredAt: time.Now(),
		LastChecked:  time.Now(),
	})
	if err != nil {
		t.Fatalf("seeding record: %v", err)
	}
}

func TestFeatureGenerator_SuggestsUnconfiguredOnly(t *testing.T) {
	records := memory.NewUsageStore()
	seedUsage(t, records, "lock.front", "auto_lock", capability.CategorySecurity, false)
	seedUsage(t, records, "lock.front", "state", capability.CategorySecurity, true)

	gen := NewFeatureGenerator(records, staticDevices{}, &fakeRuntime{}, echoTextGen(), memory.NewSuggestionStore())
	sugs, err := gen.Generate(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(sugs) != 1 {
		t.Fatalf("expected 1 suggestion, got %d", len(sugs))
	}

	s := sugs[0]
	if s.Source != suggestion.SourceFeature {
		t.Errorf("expected feature source, got %s", s.Source)
	}
	if s.DedupKey != "feature:lock.front:auto_lock" {
		t.Errorf("unexpected dedup key %s", s.DedupKey)
	}

	var payload map[string]any
	if err := json.Unmarshal(s.Payload, &payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload["kind"] != "feature_setup" || payload["feature"] != "auto_lock" {
		t.Errorf("unexpected payload %v", payload)
	}
}

func TestFeatureGenerator_ImpactRanksCategories(t *testing.T) {
	records := memory.NewUsageStore()
	seedUsage(t, records, "lock.front", "auto_lock", capability.CategorySecurity, false)
	seedUsage(t, records, "light.hall", "transition", capability.CategoryLighting, false)

	gen := NewFeatureGenerator(records, staticDevices{}, &fakeRuntime{}, echoTextGen(), memory.NewSuggestionStore())
	sugs, err := gen.Generate(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sugs) != 2 {
		t.Fatalf("expected 2 suggestions, got %d", len(sugs))
	}

	byKey := make(map[string]float64)
	for _, s := range sugs {
		byKey[s.DedupKey] = s.Confidence
	}
	if byKey["feature:lock.front:auto_lock"] <= byKey["feature:light.hall:transition"] {
		t.Errorf("expected security to outrank lighting, got %f vs %f",
			byKey["feature:lock.front:auto_lock"], byKey["feature:light.hall:transition"])
	}
}

func TestFeatureGenerator_ActiveSuggestionSkipped(t *testing.T) {
	records := memory.NewUsageStore()
	seedUsage(t, records, "lock.front", "auto_lock", capability.CategorySecurity, false)

	store := memory.NewSuggestionStore()
	existing := suggestion.New(suggestion.SourceFeature, "t", "d", "feature:lock.front:auto_lock")
	if err := store.Save(context.Background(), existing); err != nil {
		t.Fatalf("seeding suggestion: %v", err)
	}

	gen := NewFeatureGenerator(records, staticDevices{}, &fakeRuntime{}, echoTextGen(), store)
	sugs, err := gen.Generate(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sugs) != 0 {
		t.Errorf("expected pending duplicate to be skipped, got %d", len(sugs))
	}
}

func TestFeatureGenerator_DeployedRuntimeAutomationSkipped(t *testing.T) {
	records := memory.NewUsageStore()
	seedUsage(t, records, "lock.front", "auto_lock", capability.CategorySecurity, false)

	runtime := &fakeRuntime{existing: []automation.Existing{
		{ExternalRef: "auto-9", DedupKey: "feature:lock.front:auto_lock"},
	}}

	gen := NewFeatureGenerator(records, staticDevices{}, runtime, echoTextGen(), memory.NewSuggestionStore())
	sugs, err := gen.Generate(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sugs) != 0 {
		t.Errorf("expected already deployed automation to be skipped, got %d", len(sugs))
	}
}

func TestFeatureGenerator_RuntimeFailureDegradesDedup(t *testing.T) {
	records := memory.NewUsageStore()
	seedUsage(t, records, "lock.front", "auto_lock", capability.CategorySecurity, false)

	runtime := &fakeRuntime{err: errors.New("runtime unreachable")}

	gen := NewFeatureGenerator(records, staticDevices{}, runtime, echoTextGen(), memory.NewSuggestionStore())
	sugs, err := gen.Generate(context.Background())
	if err != nil {
		t.Fatalf("runtime failures must not fail generation: %v", err)
	}
	if len(sugs) != 1 {
		t.Errorf("expected generation to proceed without runtime dedup, got %d", len(sugs))
	}
}

func TestFeatureGenerator_PromptCarriesDeviceContext(t *testing.T) {
	records := memory.NewUsageStore()
	seedUsage(t, records, "lock.front", "auto_lock", capability.CategorySecurity, false)

	inventory := staticDevices{
		{ID: "lock.front", Vendor: "Aqara", Model: "ZNMS12LM", Integration: "zigbee", Area: "entryway"},
	}

	var captured automation.Prompt
	textgen := automation.TextGeneratorFunc(func(ctx context.Context, prompt automation.Prompt) (automation.Text, error) {
		captured = prompt
		return automation.Text{Title: "generated title", Description: "generated description"}, nil
	})

	gen := NewFeatureGenerator(records, inventory, &fakeRuntime{}, textgen, memory.NewSuggestionStore())
	sugs, err := gen.Generate(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sugs) != 1 {
		t.Fatalf("expected 1 suggestion, got %d", len(sugs))
	}

	if captured.Context["vendor"] != "Aqara" {
		t.Errorf("expected vendor in prompt context, got %v", captured.Context)
	}
	if captured.Context["model"] != "ZNMS12LM" {
		t.Errorf("expected model in prompt context, got %v", captured.Context)
	}
	if captured.Context["area"] != "entryway" {
		t.Errorf("expected area in prompt context, got %v", captured.Context)
	}
	if sugs[0].Metadata["area"] != "entryway" {
		t.Errorf("expected area metadata, got %v", sugs[0].Metadata)
	}
}

func TestFeatureGenerator_FallbackIncludesDeviceContext(t *testing.T) {
	records := memory.NewUsageStore()
	seedUsage(t, records, "lock.front", "auto_lock", capability.CategorySecurity, false)

	inventory := staticDevices{
		{ID: "lock.front", Vendor: "Aqara", Model: "ZNMS12LM", Integration: "zigbee", Area: "entryway"},
	}

	gen := NewFeatureGenerator(records, inventory, &fakeRuntime{}, failingTextGen(), memory.NewSuggestionStore())
	sugs, err := gen.Generate(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sugs) != 1 {
		t.Fatalf("expected 1 suggestion, got %d", len(sugs))
	}

	desc := sugs[0].Description
	for _, want := range []string{"Aqara", "ZNMS12LM", "entryway"} {
		if !strings.Contains(desc, want) {
			t.Errorf("expected templated description to mention %q, got %q", want, desc)
		}
	}
}

func TestFeatureGenerator_InventoryFailureDegradesContext(t *testing.T) {
	records := memory.NewUsageStore()
	seedUsage(t, records, "lock.front", "auto_lock", capability.CategorySecurity, false)

	gen := NewFeatureGenerator(records, failingInventory{}, &fakeRuntime{}, echoTextGen(), memory.NewSuggestionStore())
	sugs, err := gen.Generate(context.Background())
	if err != nil {
		t.Fatalf("inventory failures must not fail generation: %v", err)
	}
	if len(sugs) != 1 {
		t.Errorf("expected generation to proceed without device context, got %d", len(sugs))
	}
}

func TestFeatureGenerator_MaxPerRunCap(t *testing.T) {
	records := memory.NewUsageStore()
	seedUsage(t, records, "a", "f1", capability.CategoryLighting, false)
	seedUsage(t, records, "b", "f2", capability.CategoryLighting, false)
	seedUsage(t, records, "c", "f3", capability.CategoryLighting, false)

	gen := NewFeatureGenerator(records, staticDevices{}, &fakeRuntime{}, echoTextGen(), memory.NewSuggestionStore(),
		WithFeatureMaxPerRun(2))
	sugs, err := gen.Generate(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sugs) != 2 {
		t.Errorf("expected cap of 2, got %d", len(sugs))
	}
}
