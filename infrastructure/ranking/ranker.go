// Package ranking merges generator output into the suggestion store and
// computes the ranked shortlist shown to the user.
package ranking

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/dwellsense/dwellsense/domain/suggestion"
	"github.com/dwellsense/dwellsense/infrastructure/logging"
)

// Ranker persists candidate suggestions and ranks the pending set. Runs
// single-threaded after the concurrent generator phase, so the one pending
// suggestion per dedup key rule is enforced without races.
type Ranker struct {
	store suggestion.Store
	topN  int
}

// Option configures the ranker.
type Option func(*Ranker)

// WithTopN sets the shortlist size.
func WithTopN(n int) Option {
	return func(r *Ranker) {
		r.topN = n
	}
}

// NewRanker creates a ranker with a shortlist of 7, the middle of the
// five-to-ten band a user can act on in one sitting.
func NewRanker(store suggestion.Store, opts ...Option) *Ranker {
	r := &Ranker{
		store: store,
		topN:  7,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Merge persists candidate batches. A candidate whose dedup key already has
// a pending suggestion is dropped, first writer wins. Returns the number of
// suggestions actually stored.
func (r *Ranker) Merge(ctx context.Context, batches ...[]*suggestion.Suggestion) (int, error) {
	stored := 0
	for _, batch := range batches {
		for _, sug := range batch {
			err := r.store.Save(ctx, sug)
			if errors.Is(err, suggestion.ErrDuplicatePending) {
				logging.Debug().
					Add(logging.Component("ranking")).
					Add(logging.Str("dedup_key", sug.DedupKey)).
					Msg("duplicate pending candidate dropped")
				continue
			}
			if err != nil {
				return stored, fmt.Errorf("saving suggestion: %w", err)
			}
			stored++
		}
	}
	return stored, nil
}

// Shortlist returns the top pending suggestions by confidence. When both
// generator sources have pending suggestions, the shortlist carries at least
// one of each so pattern automations never fully crowd out feature setup, or
// the other way round.
func (r *Ranker) Shortlist(ctx context.Context) ([]*suggestion.Suggestion, error) {
	pending, err := r.store.List(ctx, suggestion.ListFilter{
		Status:     []suggestion.Status{suggestion.StatusPending},
		OrderBy:    suggestion.OrderByConfidence,
		Descending: true,
	})
	if err != nil {
		return nil, fmt.Errorf("listing pending suggestions: %w", err)
	}

	if len(pending) <= r.topN {
		return pending, nil
	}

	top := make([]*suggestion.Suggestion, r.topN)
	copy(top, pending[:r.topN])

	for _, source := range []suggestion.Source{suggestion.SourcePattern, suggestion.SourceFeature} {
		if !hasSource(pending, source) || hasSource(top, source) {
			continue
		}
		// Swap the weakest entry for the strongest of the missing source.
		for _, sug := range pending[r.topN:] {
			if sug.Source == source {
				top[len(top)-1] = sug
				break
			}
		}
		sort.SliceStable(top, func(i, j int) bool {
			return top[i].Confidence > top[j].Confidence
		})
	}

	return top, nil
}

func hasSource(sugs []*suggestion.Suggestion, source suggestion.Source) bool {
	for _, s := range sugs {
		if s.Source == source {
			return true
		}
	}
	return false
}
