package ranking

import (
	"context"
	"fmt"
	"testing"

	"github.com/dwellsense/dwellsense/domain/suggestion"
	"github.com/dwellsense/dwellsense/infrastructure/storage/memory"
)

func candidate(source suggestion.Source, dedupKey string, confidence float64) *suggestion.Suggestion {
	s := suggestion.New(source, "title "+dedupKey, "description", dedupKey)
	s.Confidence = confidence
	return s
}

func TestRanker_MergeDropsDuplicatePending(t *testing.T) {
	store := memory.NewSuggestionStore()
	ranker := NewRanker(store)

	stored, err := ranker.Merge(context.Background(),
		[]*suggestion.Suggestion{candidate(suggestion.SourcePattern, "pattern:a", 0.9)},
		[]*suggestion.Suggestion{candidate(suggestion.SourcePattern, "pattern:a", 0.8)},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored != 1 {
		t.Errorf("expected 1 stored, got %d", stored)
	}

	pending, err := store.List(context.Background(), suggestion.ListFilter{
		Status: []suggestion.Status{suggestion.StatusPending},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending, got %d", len(pending))
	}
	if pending[0].Confidence != 0.9 {
		t.Errorf("expected first writer to win, got confidence %f", pending[0].Confidence)
	}
}

func TestRanker_ShortlistOrderedByConfidence(t *testing.T) {
	store := memory.NewSuggestionStore()
	ranker := NewRanker(store, WithTopN(3))

	var batch []*suggestion.Suggestion
	for i := 1; i <= 5; i++ {
		batch = append(batch, candidate(suggestion.SourcePattern,
			fmt.Sprintf("pattern:p%d", i), float64(i)/10))
	}
	if _, err := ranker.Merge(context.Background(), batch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	top, err := ranker.Shortlist(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(top) != 3 {
		t.Fatalf("expected shortlist of 3, got %d", len(top))
	}
	for i := 1; i < len(top); i++ {
		if top[i].Confidence > top[i-1].Confidence {
			t.Errorf("shortlist out of order at %d: %f > %f", i, top[i].Confidence, top[i-1].Confidence)
		}
	}
	if top[0].Confidence != 0.5 {
		t.Errorf("expected strongest candidate first, got %f", top[0].Confidence)
	}
}

func TestRanker_ShortlistGuaranteesSourceDiversity(t *testing.T) {
	store := memory.NewSuggestionStore()
	ranker := NewRanker(store, WithTopN(3))

	batch := []*suggestion.Suggestion{
		candidate(suggestion.SourcePattern, "pattern:a", 0.95),
		candidate(suggestion.SourcePattern, "pattern:b", 0.94),
		candidate(suggestion.SourcePattern, "pattern:c", 0.93),
		candidate(suggestion.SourceFeature, "feature:d:f", 0.60),
	}
	if _, err := ranker.Merge(context.Background(), batch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	top, err := ranker.Shortlist(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(top) != 3 {
		t.Fatalf("expected shortlist of 3, got %d", len(top))
	}

	var hasFeature bool
	for _, s := range top {
		if s.Source == suggestion.SourceFeature {
			hasFeature = true
		}
	}
	if !hasFeature {
		t.Error("expected at least one feature suggestion in the shortlist")
	}
}

func TestRanker_ShortlistSmallerThanTopN(t *testing.T) {
	store := memory.NewSuggestionStore()
	ranker := NewRanker(store)

	if _, err := ranker.Merge(context.Background(), []*suggestion.Suggestion{
		candidate(suggestion.SourcePattern, "pattern:a", 0.9),
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	top, err := ranker.Shortlist(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(top) != 1 {
		t.Errorf("expected the full pending set, got %d", len(top))
	}
}

func TestRanker_ShortlistIgnoresDecidedSuggestions(t *testing.T) {
	store := memory.NewSuggestionStore()
	ranker := NewRanker(store)

	decided := candidate(suggestion.SourcePattern, "pattern:done", 0.99)
	if err := store.Save(context.Background(), decided); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := decided.Reject(""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Update(context.Background(), decided); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := ranker.Merge(context.Background(), []*suggestion.Suggestion{
		candidate(suggestion.SourcePattern, "pattern:live", 0.5),
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	top, err := ranker.Shortlist(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(top) != 1 || top[0].DedupKey != "pattern:live" {
		t.Errorf("expected only the pending suggestion, got %d entries", len(top))
	}
}
