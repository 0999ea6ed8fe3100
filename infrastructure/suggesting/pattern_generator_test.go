package suggesting

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/dwellsense/dwellsense/domain/automation"
	"github.com/dwellsense/dwellsense/domain/pattern"
	"github.com/dwellsense/dwellsense/domain/suggestion"
	"github.com/dwellsense/dwellsense/infrastructure/storage/memory"
)

func echoTextGen() automation.TextGenerator {
	return automation.TextGeneratorFunc(func(ctx context.Context, prompt automation.Prompt) (automation.Text, error) {
		return automation.Text{Title: "generated title", Description: "generated description"}, nil
	})
}

func failingTextGen() automation.TextGenerator {
	return automation.TextGeneratorFunc(func(ctx context.Context, prompt automation.Prompt) (automation.Text, error) {
		return automation.Text{}, errors.New("rate limited")
	})
}

func morningPattern(t *testing.T) pattern.Pattern {
	t.Helper()
	p := pattern.New(pattern.TypeTemporal, "light.kitchen")
	p.Occurrences = 10
	p.Confidence = 0.9
	p.Fingerprint = "temporal:light.kitchen:07"
	if err := p.SetData(pattern.TemporalData{Hour: 7, Minute: 0, ClusterSize: 10}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return *p
}

func TestPatternGenerator_ProducesSuggestion(t *testing.T) {
	store := memory.NewSuggestionStore()
	gen := NewPatternGenerator(echoTextGen(), store)

	sugs, err := gen.Generate(context.Background(), []pattern.Pattern{morningPattern(t)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sugs) != 1 {
		t.Fatalf("expected 1 suggestion, got %d", len(sugs))
	}

	s := sugs[0]
	if s.Source != suggestion.SourcePattern {
		t.Errorf("expected pattern source, got %s", s.Source)
	}
	if s.Status != suggestion.StatusPending {
		t.Errorf("expected pending status, got %s", s.Status)
	}
	if s.Confidence != 0.9 {
		t.Errorf("expected pattern confidence carried over, got %f", s.Confidence)
	}
	if s.DedupKey != "pattern:temporal:light.kitchen:07" {
		t.Errorf("unexpected dedup key %s", s.DedupKey)
	}
	if s.Title != "generated title" {
		t.Errorf("expected generated title, got %q", s.Title)
	}

	var payload map[string]any
	if err := json.Unmarshal(s.Payload, &payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload["kind"] != "automation" {
		t.Errorf("expected automation payload, got %v", payload["kind"])
	}
	if payload["trigger"] == nil {
		t.Error("expected a trigger in the payload")
	}
}

func TestPatternGenerator_BelowFloorSkipped(t *testing.T) {
	p := morningPattern(t)
	p.Confidence = 0.5

	gen := NewPatternGenerator(echoTextGen(), memory.NewSuggestionStore())
	sugs, err := gen.Generate(context.Background(), []pattern.Pattern{p})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sugs) != 0 {
		t.Errorf("expected 0 suggestions below the floor, got %d", len(sugs))
	}
}

func TestPatternGenerator_ActiveDedupKeySkipped(t *testing.T) {
	store := memory.NewSuggestionStore()
	existing := suggestion.New(suggestion.SourcePattern, "t", "d", "pattern:temporal:light.kitchen:07")
	existing.Confidence = 0.9
	if err := store.Save(context.Background(), existing); err != nil {
		t.Fatalf("seeding suggestion: %v", err)
	}

	gen := NewPatternGenerator(echoTextGen(), store)
	sugs, err := gen.Generate(context.Background(), []pattern.Pattern{morningPattern(t)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sugs) != 0 {
		t.Errorf("expected pending duplicate to be skipped, got %d suggestions", len(sugs))
	}
}

func TestPatternGenerator_RejectedDedupKeyRegenerates(t *testing.T) {
	store := memory.NewSuggestionStore()
	existing := suggestion.New(suggestion.SourcePattern, "t", "d", "pattern:temporal:light.kitchen:07")
	existing.Confidence = 0.9
	if err := store.Save(context.Background(), existing); err != nil {
		t.Fatalf("seeding suggestion: %v", err)
	}
	if err := existing.Reject("not interested"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Update(context.Background(), existing); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	gen := NewPatternGenerator(echoTextGen(), store)
	sugs, err := gen.Generate(context.Background(), []pattern.Pattern{morningPattern(t)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sugs) != 1 {
		t.Errorf("expected a rejected key to be suggestible again, got %d", len(sugs))
	}
}

func TestPatternGenerator_TextFailureFallsBackToTemplate(t *testing.T) {
	gen := NewPatternGenerator(failingTextGen(), memory.NewSuggestionStore())
	sugs, err := gen.Generate(context.Background(), []pattern.Pattern{morningPattern(t)})
	if err != nil {
		t.Fatalf("text failures must not drop the suggestion: %v", err)
	}
	if len(sugs) != 1 {
		t.Fatalf("expected 1 suggestion, got %d", len(sugs))
	}
	if !strings.Contains(sugs[0].Title, "light.kitchen") {
		t.Errorf("expected templated title naming the device, got %q", sugs[0].Title)
	}
	if !strings.Contains(sugs[0].Title, "07:00") {
		t.Errorf("expected templated title naming the time, got %q", sugs[0].Title)
	}
}

func TestPatternGenerator_CoOccurrenceTemplate(t *testing.T) {
	p := pattern.New(pattern.TypeCoOccurrence, "light.living")
	p.PairedDeviceID = "media.tv"
	p.Occurrences = 6
	p.Confidence = 0.75
	p.Fingerprint = "cooccurrence:light.living>media.tv"
	if err := p.SetData(pattern.CoOccurrenceData{
		TriggerDevice: "light.living", PairedDevice: "media.tv", WindowMinutes: 5, JointCount: 6, TriggerCount: 8,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	gen := NewPatternGenerator(failingTextGen(), memory.NewSuggestionStore())
	sugs, err := gen.Generate(context.Background(), []pattern.Pattern{*p})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sugs) != 1 {
		t.Fatalf("expected 1 suggestion, got %d", len(sugs))
	}

	var payload map[string]any
	if err := json.Unmarshal(sugs[0].Payload, &payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	target, ok := payload["target"].(map[string]any)
	if !ok || target["device_id"] != "media.tv" {
		t.Errorf("expected paired device as target, got %v", payload["target"])
	}
}
