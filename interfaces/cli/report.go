package cli

import (
	"github.com/spf13/cobra"
)

// newReportCmd groups the read-only reporting commands.
func (a *App) newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Utilization and opportunity reports",
	}

	cmd.AddCommand(
		a.newUtilizationCmd(),
		a.newOpportunitiesCmd(),
	)
	return cmd
}

func (a *App) newUtilizationCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "utilization",
		Short: "Show how much of your devices' capabilities you use",
		RunE: func(cmd *cobra.Command, args []string) error {
			sys, err := a.buildFromFlags(cmd)
			if err != nil {
				return err
			}
			defer sys.close()

			report, err := sys.query.Utilization(cmd.Context())
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(cmd, report)
			}

			cmd.Printf("Global utilization: %.1f%% (%d of %d features)\n",
				report.Global.Percent, report.Global.Configured, report.Global.Total)
			if report.Trend != nil {
				cmd.Printf("Trend since last run: %+.1f%%\n", *report.Trend)
			} else {
				cmd.Println("Trend: not available yet (first run)")
			}

			if len(report.PerVendor) > 0 {
				cmd.Println("\nBy vendor:")
				for _, u := range report.PerVendor {
					cmd.Printf("  %-24s %5.1f%%  (%d/%d)\n", u.Subject, u.Percent, u.Configured, u.Total)
				}
			}
			if len(report.PerDevice) > 0 {
				cmd.Println("\nBy device:")
				for _, u := range report.PerDevice {
					cmd.Printf("  %-24s %5.1f%%  (%d/%d)\n", u.Subject, u.Percent, u.Configured, u.Total)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func (a *App) newOpportunitiesCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "opportunities",
		Short: "List the top unconfigured features",
		RunE: func(cmd *cobra.Command, args []string) error {
			sys, err := a.buildFromFlags(cmd)
			if err != nil {
				return err
			}
			defer sys.close()

			opportunities, err := sys.query.Opportunities(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(opportunities) == 0 {
				cmd.Println("Everything your devices can do is already set up.")
				return nil
			}
			for _, o := range opportunities {
				cmd.Printf("%-12s %-24s %s\n", o.Category, o.DeviceID, o.Feature)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of entries")
	return cmd
}
