package suggesting

import (
	"context"
	"fmt"
	"time"

	"github.com/dwellsense/dwellsense/domain/automation"
	"github.com/dwellsense/dwellsense/domain/capability"
	"github.com/dwellsense/dwellsense/domain/device"
	"github.com/dwellsense/dwellsense/domain/suggestion"
	"github.com/dwellsense/dwellsense/domain/usage"
	"github.com/dwellsense/dwellsense/infrastructure/logging"
)

// categoryImpact ranks how much configuring a feature of this category is
// likely worth to the user. Security and energy beat comfort; pure telemetry
// and unclassified features trail.
var categoryImpact = map[capability.Category]float64{
	capability.CategorySecurity:    0.90,
	capability.CategoryEnergy:      0.85,
	capability.CategoryClimate:     0.80,
	capability.CategoryLighting:    0.70,
	capability.CategoryPower:       0.70,
	capability.CategoryConvenience: 0.65,
	capability.CategoryMonitoring:  0.55,
	capability.CategoryUnknown:     0.50,
}

// FeatureGenerator turns unconfigured feature usage records into setup
// suggestions.
type FeatureGenerator struct {
	records     usage.Store
	inventory   device.Inventory
	runtime     automation.Runtime
	textgen     automation.TextGenerator
	store       suggestion.Store
	textTimeout time.Duration
	maxPerRun   int
}

// FeatureGeneratorOption configures the feature generator.
type FeatureGeneratorOption func(*FeatureGenerator)

// WithFeatureTextTimeout bounds each text generator call.
func WithFeatureTextTimeout(d time.Duration) FeatureGeneratorOption {
	return func(g *FeatureGenerator) {
		g.textTimeout = d
	}
}

// WithFeatureMaxPerRun caps the candidates produced per run (0 = no cap).
func WithFeatureMaxPerRun(n int) FeatureGeneratorOption {
	return func(g *FeatureGenerator) {
		g.maxPerRun = n
	}
}

// NewFeatureGenerator creates a feature-fed generator.
func NewFeatureGenerator(records usage.Store, inventory device.Inventory, runtime automation.Runtime, textgen automation.TextGenerator, store suggestion.Store, opts ...FeatureGeneratorOption) *FeatureGenerator {
	g := &FeatureGenerator{
		records:     records,
		inventory:   inventory,
		runtime:     runtime,
		textgen:     textgen,
		store:       store,
		textTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate produces one candidate per unconfigured feature that has no
// active suggestion and no matching automation already deployed in the
// runtime. Confidence is the category impact weight.
func (g *FeatureGenerator) Generate(ctx context.Context) ([]*suggestion.Suggestion, error) {
	recs, err := g.records.List(ctx, usage.ListFilter{Configured: usage.Configured(false)})
	if err != nil {
		return nil, fmt.Errorf("listing unconfigured features: %w", err)
	}

	deployed := g.deployedKeys(ctx)
	devices := g.deviceIndex(ctx)

	var out []*suggestion.Suggestion
	for _, rec := range recs {
		if err := ctx.Err(); err != nil {
			logging.Warn().
				Add(logging.Component("feature_generator")).
				Add(logging.Count("produced", len(out))).
				Msg("budget exhausted, returning partial suggestions")
			return out, nil
		}
		if g.maxPerRun > 0 && len(out) >= g.maxPerRun {
			break
		}

		dedupKey := suggestion.FeatureDedupKey(rec.DeviceID, rec.Feature)
		if deployed[dedupKey] {
			continue
		}

		existing, err := g.store.List(ctx, suggestion.ListFilter{
			DedupKey: dedupKey,
			Status:   activeStatuses,
			Limit:    1,
		})
		if err != nil {
			return out, fmt.Errorf("checking dedup key: %w", err)
		}
		if len(existing) > 0 {
			continue
		}

		dev := devices[rec.DeviceID]
		text := g.describe(ctx, rec, dev)

		sug := suggestion.New(suggestion.SourceFeature, text.Title, text.Description, dedupKey)
		sug.Confidence = impactOf(rec.Category)
		sug.Metadata["device_id"] = rec.DeviceID
		sug.Metadata["feature"] = rec.Feature
		sug.Metadata["category"] = string(rec.Category)
		if dev.Area != "" {
			sug.Metadata["area"] = dev.Area
		}

		if err := sug.SetPayload(map[string]any{
			"kind":      "feature_setup",
			"device_id": rec.DeviceID,
			"feature":   rec.Feature,
			"dedup_key": dedupKey,
		}); err != nil {
			return out, fmt.Errorf("building payload: %w", err)
		}

		out = append(out, sug)
	}

	return out, nil
}

// deployedKeys collects the dedup keys the runtime echoes back for already
// deployed automations. An unreachable runtime degrades dedup rather than
// failing the run.
func (g *FeatureGenerator) deployedKeys(ctx context.Context) map[string]bool {
	keys := make(map[string]bool)
	existing, err := g.runtime.ListExisting(ctx)
	if err != nil {
		logging.Warn().
			Add(logging.Component("feature_generator")).
			Add(logging.ErrorField(err)).
			Msg("runtime listing failed, dedup against deployed automations degraded")
		return keys
	}
	for _, e := range existing {
		if e.DedupKey != "" {
			keys[e.DedupKey] = true
		}
	}
	return keys
}

// deviceIndex resolves the inventory once per run so records can be joined
// with vendor, model, and area. An unreachable inventory degrades the prompt
// context rather than failing the run.
func (g *FeatureGenerator) deviceIndex(ctx context.Context) map[string]device.Device {
	index := make(map[string]device.Device)
	if g.inventory == nil {
		return index
	}
	devices, err := g.inventory.Devices(ctx)
	if err != nil {
		logging.Warn().
			Add(logging.Component("feature_generator")).
			Add(logging.ErrorField(err)).
			Msg("inventory listing failed, suggestions lose device context")
		return index
	}
	for _, d := range devices {
		index[d.ID] = d
	}
	return index
}

func (g *FeatureGenerator) describe(ctx context.Context, rec *usage.Record, dev device.Device) automation.Text {
	tctx, cancel := context.WithTimeout(ctx, g.textTimeout)
	defer cancel()

	promptCtx := map[string]any{
		"device_id": rec.DeviceID,
		"feature":   rec.Feature,
		"category":  string(rec.Category),
	}
	if dev.Vendor != "" {
		promptCtx["vendor"] = dev.Vendor
	}
	if dev.Model != "" {
		promptCtx["model"] = dev.Model
	}
	if dev.Area != "" {
		promptCtx["area"] = dev.Area
	}

	text, err := g.textgen.Generate(tctx, automation.Prompt{
		Kind:    "feature",
		Context: promptCtx,
	})
	if err != nil || text.Title == "" {
		logging.Warn().
			Add(logging.Component("feature_generator")).
			Add(logging.DeviceID(rec.DeviceID)).
			Add(logging.Feature(rec.Feature)).
			Add(logging.ErrorField(err)).
			Msg("text generation failed, using templated text")
		return templatedText(rec, dev)
	}
	return text
}

// templatedText is the fallback when the text generator is unavailable.
func templatedText(rec *usage.Record, dev device.Device) automation.Text {
	subject := rec.DeviceID
	if dev.Vendor != "" && dev.Model != "" {
		subject = fmt.Sprintf("%s (%s %s)", rec.DeviceID, dev.Vendor, dev.Model)
	}
	description := fmt.Sprintf("%s supports %s (%s), but it is not configured yet.",
		subject, rec.Feature, rec.Category)
	if dev.Area != "" {
		description = fmt.Sprintf("%s in the %s supports %s (%s), but it is not configured yet.",
			subject, dev.Area, rec.Feature, rec.Category)
	}
	return automation.Text{
		Title:       fmt.Sprintf("Set up %s on %s", rec.Feature, rec.DeviceID),
		Description: description,
	}
}

func impactOf(c capability.Category) float64 {
	if w, ok := categoryImpact[c]; ok {
		return w
	}
	return categoryImpact[capability.CategoryUnknown]
}
