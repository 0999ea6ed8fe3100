package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/dwellsense/dwellsense/domain/suggestion"
)

// SuggestionStore is an in-memory implementation of suggestion.Store.
type SuggestionStore struct {
	mu          sync.RWMutex
	suggestions map[string]*suggestion.Suggestion
}

// NewSuggestionStore creates a new in-memory suggestion store.
func NewSuggestionStore() *SuggestionStore {
	return &SuggestionStore{
		suggestions: make(map[string]*suggestion.Suggestion),
	}
}

// Save persists a new suggestion.
func (s *SuggestionStore) Save(ctx context.Context, sug *suggestion.Suggestion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sug.ID == "" || sug.DedupKey == "" {
		return suggestion.ErrInvalidSuggestion
	}

	if _, exists := s.suggestions[sug.ID]; exists {
		return suggestion.ErrSuggestionExists
	}

	// One pending suggestion per dedup key.
	for _, existing := range s.suggestions {
		if existing.Status == suggestion.StatusPending && existing.DedupKey == sug.DedupKey {
			return suggestion.ErrDuplicatePending
		}
	}

	stored := *sug
	s.suggestions[sug.ID] = &stored

	return nil
}

// Get retrieves a suggestion by ID.
func (s *SuggestionStore) Get(ctx context.Context, id string) (*suggestion.Suggestion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sug, exists := s.suggestions[id]
	if !exists {
		return nil, suggestion.ErrSuggestionNotFound
	}

	result := *sug
	return &result, nil
}

// List returns suggestions matching the filter.
func (s *SuggestionStore) List(ctx context.Context, filter suggestion.ListFilter) ([]*suggestion.Suggestion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []*suggestion.Suggestion
	for _, sug := range s.suggestions {
		if !matchesSuggestionFilter(sug, filter) {
			continue
		}
		stored := *sug
		results = append(results, &stored)
	}

	sortSuggestions(results, filter.OrderBy, filter.Descending)

	if filter.Offset > 0 {
		if filter.Offset >= len(results) {
			return []*suggestion.Suggestion{}, nil
		}
		results = results[filter.Offset:]
	}
	if filter.Limit > 0 && len(results) > filter.Limit {
		results = results[:filter.Limit]
	}

	return results, nil
}

// Update updates an existing suggestion.
func (s *SuggestionStore) Update(ctx context.Context, sug *suggestion.Suggestion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sug.ID == "" {
		return suggestion.ErrInvalidSuggestion
	}

	if _, exists := s.suggestions[sug.ID]; !exists {
		return suggestion.ErrSuggestionNotFound
	}

	stored := *sug
	s.suggestions[sug.ID] = &stored

	return nil
}

func matchesSuggestionFilter(sug *suggestion.Suggestion, filter suggestion.ListFilter) bool {
	if len(filter.Sources) > 0 {
		found := false
		for _, src := range filter.Sources {
			if sug.Source == src {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if len(filter.Status) > 0 {
		found := false
		for _, st := range filter.Status {
			if sug.Status == st {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if filter.DedupKey != "" && sug.DedupKey != filter.DedupKey {
		return false
	}

	if filter.MinConfidence > 0 && sug.Confidence < filter.MinConfidence {
		return false
	}

	if !filter.FromTime.IsZero() && sug.CreatedAt.Before(filter.FromTime) {
		return false
	}
	if !filter.ToTime.IsZero() && sug.CreatedAt.After(filter.ToTime) {
		return false
	}

	return true
}

func sortSuggestions(suggestions []*suggestion.Suggestion, orderBy suggestion.OrderBy, descending bool) {
	sort.Slice(suggestions, func(i, j int) bool {
		var less bool
		switch orderBy {
		case suggestion.OrderByConfidence:
			less = suggestions[i].Confidence < suggestions[j].Confidence
		default:
			less = suggestions[i].CreatedAt.Before(suggestions[j].CreatedAt)
		}
		if descending {
			return !less
		}
		return less
	})
}

var _ suggestion.Store = (*SuggestionStore)(nil)
