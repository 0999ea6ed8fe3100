package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dwellsense/dwellsense/domain/batch"
)

// newRunCmd creates the run command, which executes one batch analysis run.
func (a *App) newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Execute one batch analysis run",
		Long: `Execute the daily analysis pipeline once: refresh capability definitions,
scan feature usage, mine behavioral patterns, and generate suggestions.

Runs are exclusive; a second run started while one is in progress aborts
immediately.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}

			sys, err := buildSystem(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer sys.close()

			return a.runBatch(cmd.Context(), cmd, sys)
		},
	}
}

func (a *App) runBatch(ctx context.Context, cmd *cobra.Command, sys *system) error {
	report, err := sys.batch.Execute(ctx)
	if err != nil {
		if errors.Is(err, batch.ErrRunLocked) {
			return errors.New("another run is in progress, try again later")
		}
		return err
	}

	cmd.Printf("Run %s completed in %s\n", report.Run.ID, report.Run.FinishedAt.Sub(report.Run.StartedAt).Round(1e6))
	cmd.Printf("  Devices matched:   %d (skipped %d)\n", report.Matching.DevicesMatched, report.Matching.DevicesSkipped)
	cmd.Printf("  Features scanned:  %d\n", report.Matching.FeaturesScanned)
	cmd.Printf("  Patterns detected: %d\n", report.PatternsDetected)
	cmd.Printf("  Suggestions saved: %d\n", report.Merged)
	cmd.Printf("  Global utilization: %.1f%%\n", report.Score.Global.Percent)
	if report.Score.Trend != nil {
		cmd.Printf("  Trend: %+.1f%%\n", *report.Score.Trend)
	}

	if len(report.Shortlist) > 0 {
		cmd.Println("\nTop suggestions:")
		for _, s := range report.Shortlist {
			cmd.Printf("  [%.2f] %-8s %s\n", s.Confidence, s.Source, s.Title)
		}
	}
	return nil
}
