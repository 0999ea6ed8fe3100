// Package suggesting implements the two suggestion generators: one fed by
// mined patterns, one fed by unconfigured features.
package suggesting

import (
	"context"
	"fmt"
	"time"

	"github.com/dwellsense/dwellsense/domain/automation"
	"github.com/dwellsense/dwellsense/domain/pattern"
	"github.com/dwellsense/dwellsense/domain/suggestion"
	"github.com/dwellsense/dwellsense/infrastructure/logging"
)

// activeStatuses are the statuses that block a new suggestion for the same
// dedup key: the user either hasn't decided yet or already has it running.
var activeStatuses = []suggestion.Status{
	suggestion.StatusPending,
	suggestion.StatusApproved,
	suggestion.StatusDeployed,
}

// PatternGenerator turns mined patterns into automation suggestions. The
// external text generator writes the title and description; when it fails,
// the suggestion ships with templated text instead of being dropped.
type PatternGenerator struct {
	textgen       automation.TextGenerator
	store         suggestion.Store
	minConfidence float64
	textTimeout   time.Duration
}

// PatternGeneratorOption configures the pattern generator.
type PatternGeneratorOption func(*PatternGenerator)

// WithPatternMinConfidence sets the confidence floor below which a pattern
// never becomes a suggestion.
func WithPatternMinConfidence(f float64) PatternGeneratorOption {
	return func(g *PatternGenerator) {
		g.minConfidence = f
	}
}

// WithPatternTextTimeout bounds each text generator call.
func WithPatternTextTimeout(d time.Duration) PatternGeneratorOption {
	return func(g *PatternGenerator) {
		g.textTimeout = d
	}
}

// NewPatternGenerator creates a pattern-fed generator.
func NewPatternGenerator(textgen automation.TextGenerator, store suggestion.Store, opts ...PatternGeneratorOption) *PatternGenerator {
	g := &PatternGenerator{
		textgen:       textgen,
		store:         store,
		minConfidence: 0.7,
		textTimeout:   10 * time.Second,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate produces one candidate suggestion per qualifying pattern. Patterns
// whose dedup key already has an active suggestion are skipped silently: the
// behavior keeps recurring in the event window for as long as it stays
// unautomated, and that is expected, not news.
func (g *PatternGenerator) Generate(ctx context.Context, patterns []pattern.Pattern) ([]*suggestion.Suggestion, error) {
	var out []*suggestion.Suggestion

	for _, p := range patterns {
		if err := ctx.Err(); err != nil {
			logging.Warn().
				Add(logging.Component("pattern_generator")).
				Add(logging.Count("produced", len(out))).
				Msg("budget exhausted, returning partial suggestions")
			return out, nil
		}

		if !p.IsSignificant(g.minConfidence, pattern.MinOccurrences) {
			continue
		}

		dedupKey := suggestion.PatternDedupKey(p.Fingerprint)
		active, err := g.hasActive(ctx, dedupKey)
		if err != nil {
			return out, err
		}
		if active {
			logging.Debug().
				Add(logging.Component("pattern_generator")).
				Add(logging.Str("dedup_key", dedupKey)).
				Msg("active suggestion exists, pattern skipped")
			continue
		}

		text := g.describe(ctx, p)

		sug := suggestion.New(suggestion.SourcePattern, text.Title, text.Description, dedupKey)
		sug.Confidence = p.Confidence
		sug.Metadata["pattern_id"] = p.ID
		sug.Metadata["pattern_type"] = string(p.Type)
		sug.Metadata["device_id"] = p.DeviceID
		sug.Metadata["occurrences"] = p.Occurrences

		if err := sug.SetPayload(patternPayload(p)); err != nil {
			return out, fmt.Errorf("building payload: %w", err)
		}

		out = append(out, sug)
	}

	return out, nil
}

func (g *PatternGenerator) hasActive(ctx context.Context, dedupKey string) (bool, error) {
	existing, err := g.store.List(ctx, suggestion.ListFilter{
		DedupKey: dedupKey,
		Status:   activeStatuses,
		Limit:    1,
	})
	if err != nil {
		return false, fmt.Errorf("checking dedup key: %w", err)
	}
	return len(existing) > 0, nil
}

// describe asks the text generator for natural language and falls back to a
// template on any failure.
func (g *PatternGenerator) describe(ctx context.Context, p pattern.Pattern) automation.Text {
	promptCtx := map[string]any{
		"pattern_type": string(p.Type),
		"device_id":    p.DeviceID,
		"confidence":   p.Confidence,
		"occurrences":  p.Occurrences,
	}
	if p.PairedDeviceID != "" {
		promptCtx["paired_device_id"] = p.PairedDeviceID
	}
	var params map[string]any
	if err := p.GetData(&params); err == nil {
		for k, v := range params {
			promptCtx[k] = v
		}
	}

	tctx, cancel := context.WithTimeout(ctx, g.textTimeout)
	defer cancel()

	text, err := g.textgen.Generate(tctx, automation.Prompt{Kind: "pattern", Context: promptCtx})
	if err != nil || text.Title == "" {
		logging.Warn().
			Add(logging.Component("pattern_generator")).
			Add(logging.DeviceID(p.DeviceID)).
			Add(logging.ErrorField(err)).
			Msg("text generation failed, using templated text")
		return templatedPatternText(p)
	}
	return text
}

func templatedPatternText(p pattern.Pattern) automation.Text {
	switch p.Type {
	case pattern.TypeTemporal:
		var data pattern.TemporalData
		_ = p.GetData(&data)
		return automation.Text{
			Title: fmt.Sprintf("Schedule %s at %02d:%02d", p.DeviceID, data.Hour, data.Minute),
			Description: fmt.Sprintf(
				"%s is used around %02d:%02d on %d of the last days. A scheduled automation could take over.",
				p.DeviceID, data.Hour, data.Minute, p.Occurrences),
		}
	case pattern.TypeCoOccurrence:
		return automation.Text{
			Title: fmt.Sprintf("Link %s to %s", p.PairedDeviceID, p.DeviceID),
			Description: fmt.Sprintf(
				"%s follows %s within minutes in %d observed cases. An automation could trigger it directly.",
				p.PairedDeviceID, p.DeviceID, p.Occurrences),
		}
	case pattern.TypeAnomaly:
		var data pattern.RegularityData
		_ = p.GetData(&data)
		return automation.Text{
			Title: fmt.Sprintf("Automate the %02d:00 routine for %s", data.Hour, p.DeviceID),
			Description: fmt.Sprintf(
				"%s is operated manually around %02d:00 with high regularity (%d occurrences). This routine is a candidate for automation.",
				p.DeviceID, data.Hour, p.Occurrences),
		}
	}
	return automation.Text{
		Title:       fmt.Sprintf("Automate %s", p.DeviceID),
		Description: fmt.Sprintf("A recurring usage pattern was detected for %s.", p.DeviceID),
	}
}

// patternPayload builds the runtime automation definition for a pattern.
func patternPayload(p pattern.Pattern) map[string]any {
	payload := map[string]any{
		"kind":      "automation",
		"device_id": p.DeviceID,
		"dedup_key": suggestion.PatternDedupKey(p.Fingerprint),
	}

	switch p.Type {
	case pattern.TypeTemporal:
		var data pattern.TemporalData
		_ = p.GetData(&data)
		payload["trigger"] = map[string]any{
			"type": "time",
			"at":   fmt.Sprintf("%02d:%02d", data.Hour, data.Minute),
		}
	case pattern.TypeCoOccurrence:
		var data pattern.CoOccurrenceData
		_ = p.GetData(&data)
		payload["trigger"] = map[string]any{
			"type":      "device",
			"device_id": data.TriggerDevice,
		}
		payload["target"] = map[string]any{
			"device_id": data.PairedDevice,
		}
	case pattern.TypeAnomaly:
		var data pattern.RegularityData
		_ = p.GetData(&data)
		payload["trigger"] = map[string]any{
			"type":     "time",
			"at":       fmt.Sprintf("%02d:00", data.Hour),
			"weekdays": data.Weekdays,
		}
	}

	return payload
}
