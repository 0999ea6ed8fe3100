package application

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/dwellsense/dwellsense/domain/capability"
	"github.com/dwellsense/dwellsense/domain/score"
	"github.com/dwellsense/dwellsense/domain/suggestion"
	"github.com/dwellsense/dwellsense/domain/usage"
	"github.com/dwellsense/dwellsense/infrastructure/scoring"
)

// categoryRank orders opportunity categories by expected impact.
var categoryRank = map[capability.Category]int{
	capability.CategorySecurity:    0,
	capability.CategoryEnergy:      1,
	capability.CategoryClimate:     2,
	capability.CategoryLighting:    3,
	capability.CategoryPower:       3,
	capability.CategoryConvenience: 4,
	capability.CategoryMonitoring:  5,
}

// Opportunity is one unconfigured feature worth pointing out.
type Opportunity struct {
	DeviceID string              `json:"device_id"`
	Feature  string              `json:"feature"`
	Category capability.Category `json:"category"`
}

// QueryConfig contains the collaborators of the query service.
type QueryConfig struct {
	Records     usage.Store
	Definitions capability.Store
	Suggestions suggestion.Store
	Scorer      *scoring.Scorer
}

// QueryService answers the read-only questions the REST and CLI surfaces
// expose: utilization, opportunities, capability detail, and suggestions.
type QueryService struct {
	config QueryConfig
}

// NewQueryService creates the query service.
func NewQueryService(config QueryConfig) (*QueryService, error) {
	switch {
	case config.Records == nil:
		return nil, errors.New("usage store is required")
	case config.Definitions == nil:
		return nil, errors.New("capability store is required")
	case config.Suggestions == nil:
		return nil, errors.New("suggestion store is required")
	case config.Scorer == nil:
		return nil, errors.New("scorer is required")
	}
	return &QueryService{config: config}, nil
}

// Utilization computes the current utilization report on demand.
func (s *QueryService) Utilization(ctx context.Context) (*score.Report, error) {
	return s.config.Scorer.Report(ctx)
}

// Opportunities returns the top unconfigured features ordered by category
// impact, then device for a stable listing.
func (s *QueryService) Opportunities(ctx context.Context, limit int) ([]Opportunity, error) {
	records, err := s.config.Records.List(ctx, usage.ListFilter{
		Configured: usage.Configured(false),
	})
	if err != nil {
		return nil, fmt.Errorf("listing unconfigured features: %w", err)
	}

	opportunities := make([]Opportunity, 0, len(records))
	for _, rec := range records {
		opportunities = append(opportunities, Opportunity{
			DeviceID: rec.DeviceID,
			Feature:  rec.Feature,
			Category: rec.Category,
		})
	}

	sort.Slice(opportunities, func(i, j int) bool {
		ri, rj := rankOf(opportunities[i].Category), rankOf(opportunities[j].Category)
		if ri != rj {
			return ri < rj
		}
		if opportunities[i].DeviceID != opportunities[j].DeviceID {
			return opportunities[i].DeviceID < opportunities[j].DeviceID
		}
		return opportunities[i].Feature < opportunities[j].Feature
	})

	if limit > 0 && len(opportunities) > limit {
		opportunities = opportunities[:limit]
	}
	return opportunities, nil
}

// Capability returns the stored definition for a device model.
func (s *QueryService) Capability(ctx context.Context, key capability.Key) (*capability.Definition, error) {
	return s.config.Definitions.Lookup(ctx, key)
}

// Capabilities lists all stored definitions ordered by vendor and model.
func (s *QueryService) Capabilities(ctx context.Context) ([]*capability.Definition, error) {
	defs, err := s.config.Definitions.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(defs, func(i, j int) bool {
		if defs[i].Key.Vendor != defs[j].Key.Vendor {
			return defs[i].Key.Vendor < defs[j].Key.Vendor
		}
		return defs[i].Key.Model < defs[j].Key.Model
	})
	return defs, nil
}

// Suggestions lists suggestions matching the filter.
func (s *QueryService) Suggestions(ctx context.Context, filter suggestion.ListFilter) ([]*suggestion.Suggestion, error) {
	return s.config.Suggestions.List(ctx, filter)
}

// Suggestion returns one suggestion by ID.
func (s *QueryService) Suggestion(ctx context.Context, id string) (*suggestion.Suggestion, error) {
	return s.config.Suggestions.Get(ctx, id)
}

func rankOf(c capability.Category) int {
	if r, ok := categoryRank[c]; ok {
		return r
	}
	return len(categoryRank)
}
