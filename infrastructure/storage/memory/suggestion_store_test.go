package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/dwellsense/dwellsense/domain/suggestion"
)

func pendingSuggestion(dedupKey string, confidence float64) *suggestion.Suggestion {
	s := suggestion.New(suggestion.SourcePattern, "title", "description", dedupKey)
	s.Confidence = confidence
	return s
}

func TestSuggestionStore_SaveRejectsDuplicatePending(t *testing.T) {
	store := NewSuggestionStore()
	ctx := context.Background()

	if err := store.Save(ctx, pendingSuggestion("light.hall/schedule", 0.8)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := store.Save(ctx, pendingSuggestion("light.hall/schedule", 0.9))
	if !errors.Is(err, suggestion.ErrDuplicatePending) {
		t.Errorf("expected ErrDuplicatePending, got %v", err)
	}
}

func TestSuggestionStore_DecidedKeyAllowsNewPending(t *testing.T) {
	store := NewSuggestionStore()
	ctx := context.Background()

	first := pendingSuggestion("light.hall/schedule", 0.8)
	if err := store.Save(ctx, first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := first.Reject("not interested"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Update(ctx, first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := store.Save(ctx, pendingSuggestion("light.hall/schedule", 0.9)); err != nil {
		t.Errorf("expected a rejected key to accept a new pending suggestion, got %v", err)
	}
}

func TestSuggestionStore_ListFiltersAndOrders(t *testing.T) {
	store := NewSuggestionStore()
	ctx := context.Background()

	low := pendingSuggestion("a", 0.6)
	high := pendingSuggestion("b", 0.9)
	feature := suggestion.New(suggestion.SourceFeature, "t", "d", "c")
	feature.Confidence = 0.75
	for _, s := range []*suggestion.Suggestion{low, high, feature} {
		if err := store.Save(ctx, s); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	got, err := store.List(ctx, suggestion.ListFilter{
		Status:     []suggestion.Status{suggestion.StatusPending},
		OrderBy:    suggestion.OrderByConfidence,
		Descending: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 suggestions, got %d", len(got))
	}
	if got[0].ID != high.ID || got[2].ID != low.ID {
		t.Error("expected descending confidence order")
	}

	patternOnly, err := store.List(ctx, suggestion.ListFilter{
		Sources: []suggestion.Source{suggestion.SourcePattern},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(patternOnly) != 2 {
		t.Errorf("expected 2 pattern suggestions, got %d", len(patternOnly))
	}
}

func TestSuggestionStore_UpdateUnknownID(t *testing.T) {
	store := NewSuggestionStore()

	err := store.Update(context.Background(), pendingSuggestion("x", 0.5))
	if !errors.Is(err, suggestion.ErrSuggestionNotFound) {
		t.Errorf("expected ErrSuggestionNotFound, got %v", err)
	}
}

func TestSuggestionStore_GetReturnsCopy(t *testing.T) {
	store := NewSuggestionStore()
	ctx := context.Background()

	orig := pendingSuggestion("k", 0.7)
	if err := store.Save(ctx, orig); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := store.Get(ctx, orig.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got.Title = "mutated"

	again, err := store.Get(ctx, orig.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again.Title != "title" {
		t.Error("expected store contents to be isolated from caller mutation")
	}
}
