// Package application provides the services that coordinate the analysis
// pipeline: the daily batch, the suggestion lifecycle, and the query
// surface.
package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/dwellsense/dwellsense/domain/batch"
	"github.com/dwellsense/dwellsense/domain/capability"
	"github.com/dwellsense/dwellsense/domain/event"
	"github.com/dwellsense/dwellsense/domain/notification"
	"github.com/dwellsense/dwellsense/domain/pattern"
	"github.com/dwellsense/dwellsense/domain/score"
	"github.com/dwellsense/dwellsense/domain/suggestion"
	"github.com/dwellsense/dwellsense/infrastructure/logging"
	"github.com/dwellsense/dwellsense/infrastructure/matching"
	"github.com/dwellsense/dwellsense/infrastructure/parser"
	"github.com/dwellsense/dwellsense/infrastructure/ranking"
	"github.com/dwellsense/dwellsense/infrastructure/scoring"
	"github.com/dwellsense/dwellsense/infrastructure/suggesting"
)

// Per-miner time budgets. An over-budget miner contributes what it found;
// the run continues.
var minerBudgets = map[pattern.Type]time.Duration{
	pattern.TypeTemporal:     5 * time.Minute,
	pattern.TypeCoOccurrence: 3 * time.Minute,
	pattern.TypeAnomaly:      2 * time.Minute,
}

// BatchConfig contains the collaborators of the batch service.
type BatchConfig struct {
	Lock        batch.Lock
	Source      event.Source
	Descriptors capability.DescriptorSource
	Parser      *parser.Parser
	Definitions capability.Store
	Matcher     *matching.Engine
	Scorer      *scoring.Scorer
	Miners      []pattern.Miner
	PatternGen  *suggesting.PatternGenerator
	FeatureGen  *suggesting.FeatureGenerator
	Ranker      *ranking.Ranker
	// Notifier receives the run summary. Optional.
	Notifier notification.Notifier
	// Tracer records run phases as spans. Optional.
	Tracer trace.Tracer

	// RunBudget bounds the whole run. Defaults to 15 minutes.
	RunBudget time.Duration
	// RefreshBudget bounds the wait for a bridge descriptor snapshot so a
	// connected-but-silent bridge cannot eat the run budget. Defaults to
	// 30 seconds.
	RefreshBudget time.Duration
	// LockTTL is the run lock lease. Must exceed RunBudget so a crashed
	// run cannot block tomorrow's. Defaults to 20 minutes.
	LockTTL time.Duration
	// WindowDays is the size of the rolling event window. Defaults to
	// event.WindowDays.
	WindowDays int
}

// RunReport summarizes one completed batch run.
type RunReport struct {
	Run              *batch.Run
	Matching         matching.Result
	PatternsDetected int
	Merged           int
	Shortlist        []*suggestion.Suggestion
	Score            *score.Report
}

// BatchService executes the daily analysis run.
type BatchService struct {
	config BatchConfig
	tracer trace.Tracer
}

// NewBatchService creates the batch service.
func NewBatchService(config BatchConfig) (*BatchService, error) {
	switch {
	case config.Lock == nil:
		return nil, errors.New("lock is required")
	case config.Source == nil:
		return nil, errors.New("event source is required")
	case config.Matcher == nil:
		return nil, errors.New("matcher is required")
	case config.Scorer == nil:
		return nil, errors.New("scorer is required")
	case config.Ranker == nil:
		return nil, errors.New("ranker is required")
	case config.PatternGen == nil || config.FeatureGen == nil:
		return nil, errors.New("both generators are required")
	}

	if config.RunBudget <= 0 {
		config.RunBudget = 15 * time.Minute
	}
	if config.RefreshBudget <= 0 {
		config.RefreshBudget = 30 * time.Second
	}
	if config.LockTTL <= config.RunBudget {
		config.LockTTL = config.RunBudget + 5*time.Minute
	}
	if config.WindowDays <= 0 {
		config.WindowDays = event.WindowDays
	}

	tracer := config.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("dwellsense")
	}

	return &BatchService{config: config, tracer: tracer}, nil
}

// Execute runs the full pipeline once. A concurrent run holding the lock
// aborts this one with batch.ErrRunLocked; the caller tries again tomorrow.
func (s *BatchService) Execute(ctx context.Context) (*RunReport, error) {
	run := batch.NewRun()

	if err := s.config.Lock.Acquire(ctx, run.ID, s.config.LockTTL); err != nil {
		return nil, fmt.Errorf("acquiring run lock: %w", err)
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := s.config.Lock.Release(releaseCtx, run.ID); err != nil {
			logging.Warn().
				Add(logging.RunID(run.ID)).
				Add(logging.ErrorField(err)).
				Msg("failed to release run lock, lease will expire on its own")
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, s.config.RunBudget)
	defer cancel()

	ctx, span := s.tracer.Start(ctx, "batch.run")
	defer span.End()

	logging.Info().Add(logging.RunID(run.ID)).Msg("batch run started")

	// Capability refresh degrades to the stored definitions when the
	// bridge is unreachable.
	s.refreshCapabilities(ctx, run.ID)

	to := time.Now().UTC()
	from := to.AddDate(0, 0, -s.config.WindowDays)
	events, err := s.config.Source.Window(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("fetching event window: %w", err)
	}
	logging.Info().
		Add(logging.RunID(run.ID)).
		Add(logging.Count("events", len(events))).
		Msg("event window fetched")

	matchResult, patterns, err := s.analyze(ctx, run.ID, events)
	if err != nil {
		return nil, err
	}

	report, err := s.config.Scorer.Report(ctx)
	if err != nil {
		return nil, fmt.Errorf("computing utilization: %w", err)
	}

	patternSugs, featureSugs, err := s.generate(ctx, run.ID, patterns)
	if err != nil {
		return nil, err
	}

	// From here the run either persists the whole batch or fails; merge
	// and shortlist are single-threaded on purpose.
	merged, err := s.config.Ranker.Merge(ctx, patternSugs, featureSugs)
	if err != nil {
		return nil, fmt.Errorf("merging suggestions: %w", err)
	}
	shortlist, err := s.config.Ranker.Shortlist(ctx)
	if err != nil {
		return nil, fmt.Errorf("ranking suggestions: %w", err)
	}

	if err := s.config.Scorer.Record(ctx, run.ID, report); err != nil {
		logging.Warn().
			Add(logging.RunID(run.ID)).
			Add(logging.ErrorField(err)).
			Msg("failed to persist score snapshot, trend will be stale next run")
	}

	run.FinishedAt = time.Now().UTC()

	result := &RunReport{
		Run:              run,
		Matching:         matchResult,
		PatternsDetected: len(patterns),
		Merged:           merged,
		Shortlist:        shortlist,
		Score:            report,
	}
	s.notifySummary(ctx, result)

	logging.Info().
		Add(logging.RunID(run.ID)).
		Add(logging.Count("patterns", len(patterns))).
		Add(logging.Count("merged", merged)).
		Add(logging.Duration(run.FinishedAt.Sub(run.StartedAt))).
		Msg("batch run completed")

	return result, nil
}

// RefreshCapabilities re-reads the bridge snapshot outside the daily run,
// for the manual refresh trigger.
func (s *BatchService) RefreshCapabilities(ctx context.Context) error {
	if s.config.Descriptors == nil || s.config.Parser == nil || s.config.Definitions == nil {
		return errors.New("capability refresh is not configured")
	}
	s.refreshCapabilities(ctx, "manual")
	return nil
}

func (s *BatchService) refreshCapabilities(ctx context.Context, runID string) {
	if s.config.Descriptors == nil || s.config.Parser == nil || s.config.Definitions == nil {
		return
	}

	ctx, span := s.tracer.Start(ctx, "batch.refresh_capabilities")
	defer span.End()

	snapCtx, cancel := context.WithTimeout(ctx, s.config.RefreshBudget)
	raws, err := s.config.Descriptors.Snapshot(snapCtx)
	cancel()
	if err != nil {
		logging.Warn().
			Add(logging.RunID(runID)).
			Add(logging.ErrorField(err)).
			Msg("capability bridge unavailable, using stored definitions")
		return
	}

	var stored int
	for _, raw := range raws {
		def, err := s.config.Parser.Parse(raw)
		if err != nil {
			logging.Warn().
				Add(logging.RunID(runID)).
				Add(logging.ErrorField(err)).
				Msg("skipping unparseable descriptor")
			continue
		}
		if err := s.config.Definitions.Upsert(ctx, def); err != nil {
			logging.Warn().
				Add(logging.RunID(runID)).
				Add(logging.Vendor(def.Key.Vendor)).
				Add(logging.Model(def.Key.Model)).
				Add(logging.ErrorField(err)).
				Msg("failed to store definition")
			continue
		}
		stored++
	}

	logging.Info().
		Add(logging.RunID(runID)).
		Add(logging.Count("definitions", stored)).
		Msg("capability definitions refreshed")
}

// analyze runs the matching engine and all miners concurrently over the
// shared window. Matching failure aborts the run; a failed or over-budget
// miner only costs its own patterns.
func (s *BatchService) analyze(ctx context.Context, runID string, events []event.Event) (matching.Result, []pattern.Pattern, error) {
	ctx, span := s.tracer.Start(ctx, "batch.analyze")
	defer span.End()

	var (
		wg          sync.WaitGroup
		mu          sync.Mutex
		matchResult matching.Result
		matchErr    error
		patterns    []pattern.Pattern
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		result, err := s.config.Matcher.Match(ctx)
		mu.Lock()
		matchResult, matchErr = result, err
		mu.Unlock()
	}()

	for _, miner := range s.config.Miners {
		wg.Add(1)
		go func(m pattern.Miner) {
			defer wg.Done()

			budget, ok := minerBudgets[m.Type()]
			if !ok {
				budget = 2 * time.Minute
			}
			minerCtx, cancel := context.WithTimeout(ctx, budget)
			defer cancel()

			found, err := m.Mine(minerCtx, events, pattern.DefaultMineOptions())
			if err != nil && !errors.Is(err, pattern.ErrOverBudget) {
				logging.Warn().
					Add(logging.RunID(runID)).
					Add(logging.PatternType(m.Type())).
					Add(logging.ErrorField(err)).
					Msg("miner failed, continuing without its patterns")
				return
			}
			if errors.Is(err, pattern.ErrOverBudget) {
				logging.Warn().
					Add(logging.RunID(runID)).
					Add(logging.PatternType(m.Type())).
					Add(logging.Count("partial", len(found))).
					Msg("miner over budget, keeping partial output")
			}

			mu.Lock()
			patterns = append(patterns, found...)
			mu.Unlock()
		}(miner)
	}

	wg.Wait()

	if matchErr != nil {
		return matching.Result{}, nil, fmt.Errorf("matching features: %w", matchErr)
	}
	return matchResult, patterns, nil
}

// generate runs both suggestion generators concurrently.
func (s *BatchService) generate(ctx context.Context, runID string, patterns []pattern.Pattern) ([]*suggestion.Suggestion, []*suggestion.Suggestion, error) {
	ctx, span := s.tracer.Start(ctx, "batch.generate")
	defer span.End()

	var (
		wg          sync.WaitGroup
		patternSugs []*suggestion.Suggestion
		featureSugs []*suggestion.Suggestion
		patternErr  error
		featureErr  error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		patternSugs, patternErr = s.config.PatternGen.Generate(ctx, patterns)
	}()
	go func() {
		defer wg.Done()
		featureSugs, featureErr = s.config.FeatureGen.Generate(ctx)
	}()
	wg.Wait()

	if patternErr != nil {
		return nil, nil, fmt.Errorf("generating pattern suggestions: %w", patternErr)
	}
	if featureErr != nil {
		return nil, nil, fmt.Errorf("generating feature suggestions: %w", featureErr)
	}

	logging.Info().
		Add(logging.RunID(runID)).
		Add(logging.Count("pattern_suggestions", len(patternSugs))).
		Add(logging.Count("feature_suggestions", len(featureSugs))).
		Msg("suggestion candidates generated")

	return patternSugs, featureSugs, nil
}

func (s *BatchService) notifySummary(ctx context.Context, result *RunReport) {
	if s.config.Notifier == nil {
		return
	}

	summary := notification.RunSummary{
		RunID:                result.Run.ID,
		PatternsDetected:     result.PatternsDetected,
		FeaturesScanned:      result.Matching.FeaturesScanned,
		SuggestionsGenerated: result.Merged,
		DevicesMatched:       result.Matching.DevicesMatched,
		DevicesSkipped:       result.Matching.DevicesSkipped,
		GlobalUtilization:    result.Score.Global.Percent,
		Duration:             result.Run.FinishedAt.Sub(result.Run.StartedAt),
	}

	evt, err := notification.NewEvent(notification.EventRunCompleted, summary)
	if err != nil {
		logging.Warn().Add(logging.ErrorField(err)).Msg("failed to build run summary event")
		return
	}
	if err := s.config.Notifier.Notify(ctx, evt); err != nil {
		logging.Warn().
			Add(logging.RunID(result.Run.ID)).
			Add(logging.ErrorField(err)).
			Msg("run summary notification failed")
	}
}
