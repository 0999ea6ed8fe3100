// Package matching reconciles the device inventory against stored capability
// definitions and records, per (device, feature) pair, whether the feature is
// configured in the live system.
package matching

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/felixgeelhaar/fortify/bulkhead"

	"github.com/dwellsense/dwellsense/domain/capability"
	"github.com/dwellsense/dwellsense/domain/device"
	"github.com/dwellsense/dwellsense/domain/usage"
	"github.com/dwellsense/dwellsense/infrastructure/logging"
)

// Result summarizes one matching pass over the inventory.
type Result struct {
	// DevicesMatched counts devices with a capability definition.
	DevicesMatched int `json:"devices_matched"`

	// DevicesSkipped counts devices without a definition or whose scan
	// failed. Skips are expected and never fail the pass.
	DevicesSkipped int `json:"devices_skipped"`

	// FeaturesScanned counts (device, feature) pairs checked.
	FeaturesScanned int `json:"features_scanned"`
}

type deviceOutcome struct {
	scanned int
	skipped bool
}

// Engine walks the inventory and upserts one usage record per (device,
// feature) pair. The live configuration state is consulted on every pass:
// automations get deleted out from under us, so a stored Configured flag is
// never trusted across runs.
type Engine struct {
	inventory   device.Inventory
	configState device.ConfigState
	definitions capability.Store
	records     usage.Store
	bulkhead    bulkhead.Bulkhead[deviceOutcome]
	now         func() time.Time
}

// Option configures the engine.
type Option func(*engineConfig)

type engineConfig struct {
	maxConcurrent int
	now           func() time.Time
}

// WithMaxConcurrent limits how many devices are scanned at once.
func WithMaxConcurrent(n int) Option {
	return func(c *engineConfig) {
		c.maxConcurrent = n
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *engineConfig) {
		c.now = now
	}
}

// NewEngine creates a matching engine.
func NewEngine(inventory device.Inventory, configState device.ConfigState, definitions capability.Store, records usage.Store, opts ...Option) *Engine {
	cfg := engineConfig{
		maxConcurrent: 8,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Engine{
		inventory:   inventory,
		configState: configState,
		definitions: definitions,
		records:     records,
		bulkhead: bulkhead.New[deviceOutcome](bulkhead.Config{
			MaxConcurrent: cfg.maxConcurrent,
		}),
		now: cfg.now,
	}
}

// Match scans every inventory device concurrently. Only an inventory failure
// is fatal; per-device problems are logged and counted as skips.
func (e *Engine) Match(ctx context.Context) (Result, error) {
	devices, err := e.inventory.Devices(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("listing inventory: %w", err)
	}

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		result Result
	)

	for _, d := range devices {
		wg.Add(1)
		go func(d device.Device) {
			defer wg.Done()

			outcome, err := e.bulkhead.Execute(ctx, func(ctx context.Context) (deviceOutcome, error) {
				return e.scanDevice(ctx, d)
			})
			if err != nil {
				logging.Warn().
					Add(logging.Component("matching")).
					Add(logging.DeviceID(d.ID)).
					Add(logging.ErrorField(err)).
					Msg("device scan failed, skipped")
				outcome = deviceOutcome{skipped: true}
			}

			mu.Lock()
			if outcome.skipped {
				result.DevicesSkipped++
			} else {
				result.DevicesMatched++
				result.FeaturesScanned += outcome.scanned
			}
			mu.Unlock()
		}(d)
	}

	wg.Wait()
	return result, nil
}

func (e *Engine) scanDevice(ctx context.Context, d device.Device) (deviceOutcome, error) {
	def, err := e.definitions.Lookup(ctx, d.CapabilityKey())
	if errors.Is(err, capability.ErrDefinitionNotFound) {
		logging.Warn().
			Add(logging.Component("matching")).
			Add(logging.DeviceID(d.ID)).
			Add(logging.Vendor(d.Vendor)).
			Add(logging.Model(d.Model)).
			Msg("no capability definition for model, device skipped")
		return deviceOutcome{skipped: true}, nil
	}
	if err != nil {
		return deviceOutcome{}, fmt.Errorf("looking up definition: %w", err)
	}

	for _, feat := range def.Features {
		if err := e.scanFeature(ctx, d.ID, feat); err != nil {
			return deviceOutcome{}, err
		}
	}

	return deviceOutcome{scanned: len(def.Features)}, nil
}

func (e *Engine) scanFeature(ctx context.Context, deviceID string, feat capability.Feature) error {
	rec := &usage.Record{
		DeviceID:     deviceID,
		Feature:      feat.Name,
		Category:     feat.Category,
		DiscoveredAt: e.now(),
	}

	configured, err := e.configState.Configured(ctx, deviceID, feat.Name)
	if err != nil {
		// Live state unreachable: keep the previous answer rather than
		// flapping the record.
		logging.Warn().
			Add(logging.Component("matching")).
			Add(logging.DeviceID(deviceID)).
			Add(logging.Feature(feat.Name)).
			Add(logging.ErrorField(err)).
			Msg("live config check failed, keeping last known state")

		prev, gerr := e.records.Get(ctx, deviceID, feat.Name)
		if gerr == nil {
			rec.Configured = prev.Configured
			rec.LastChecked = prev.LastChecked
		} else if !errors.Is(gerr, usage.ErrRecordNotFound) {
			return fmt.Errorf("reading usage record: %w", gerr)
		}
	} else {
		rec.Configured = configured
		rec.LastChecked = e.now()
	}

	if err := e.records.Upsert(ctx, rec); err != nil {
		return fmt.Errorf("upserting usage record: %w", err)
	}
	return nil
}
