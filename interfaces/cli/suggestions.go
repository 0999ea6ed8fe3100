package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dwellsense/dwellsense/domain/suggestion"
)

// newSuggestionsCmd groups the suggestion lifecycle commands.
func (a *App) newSuggestionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "suggestions",
		Aliases: []string{"sug"},
		Short:   "List and decide on automation suggestions",
	}

	cmd.AddCommand(
		a.newSuggestionsListCmd(),
		a.newSuggestionsShowCmd(),
		a.newSuggestionsDecisionCmd("approve", "Approve a pending suggestion",
			func(s *system) decisionFunc { return s.lifecycle.Approve }),
		a.newSuggestionsRejectCmd(),
		a.newSuggestionsDecisionCmd("deploy", "Deploy an approved suggestion to the automation runtime",
			func(s *system) decisionFunc { return s.lifecycle.Deploy }),
		a.newSuggestionsDecisionCmd("remove", "Roll back a deployed suggestion",
			func(s *system) decisionFunc { return s.lifecycle.Remove }),
		a.newSuggestionsHistoryCmd(),
	)

	return cmd
}

func (a *App) newSuggestionsListCmd() *cobra.Command {
	var (
		status     string
		source     string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List suggestions",
		RunE: func(cmd *cobra.Command, args []string) error {
			sys, err := a.buildFromFlags(cmd)
			if err != nil {
				return err
			}
			defer sys.close()

			filter := suggestion.ListFilter{
				OrderBy:    suggestion.OrderByConfidence,
				Descending: true,
			}
			if status != "" {
				filter.Status = []suggestion.Status{suggestion.Status(status)}
			}
			if source != "" {
				filter.Sources = []suggestion.Source{suggestion.Source(source)}
			}

			sugs, err := sys.query.Suggestions(cmd.Context(), filter)
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(cmd, sugs)
			}
			if len(sugs) == 0 {
				cmd.Println("No suggestions.")
				return nil
			}
			for _, s := range sugs {
				cmd.Printf("%s  [%.2f] %-8s %-9s %s\n", s.ID, s.Confidence, s.Source, s.Status, s.Title)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status (pending, approved, deployed, rejected, removed)")
	cmd.Flags().StringVar(&source, "source", "", "Filter by source (pattern, feature)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func (a *App) newSuggestionsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one suggestion in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sys, err := a.buildFromFlags(cmd)
			if err != nil {
				return err
			}
			defer sys.close()

			s, err := sys.query.Suggestion(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, s)
		},
	}
}

// decisionFunc applies one lifecycle decision.
type decisionFunc func(ctx context.Context, id, actor string) (*suggestion.Suggestion, error)

func (a *App) newSuggestionsDecisionCmd(verb, short string, bind func(*system) decisionFunc) *cobra.Command {
	var actor string

	cmd := &cobra.Command{
		Use:   verb + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sys, err := a.buildFromFlags(cmd)
			if err != nil {
				return err
			}
			defer sys.close()

			s, err := bind(sys)(cmd.Context(), args[0], actor)
			if err != nil {
				return err
			}
			cmd.Printf("%s: %s (%s)\n", verb, s.Title, s.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&actor, "actor", "cli", "Who is making the decision")
	return cmd
}

func (a *App) newSuggestionsRejectCmd() *cobra.Command {
	var (
		actor  string
		reason string
	)

	cmd := &cobra.Command{
		Use:   "reject <id>",
		Short: "Reject a pending suggestion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sys, err := a.buildFromFlags(cmd)
			if err != nil {
				return err
			}
			defer sys.close()

			s, err := sys.lifecycle.Reject(cmd.Context(), args[0], actor, reason)
			if err != nil {
				return err
			}
			cmd.Printf("rejected: %s\n", s.Title)
			return nil
		},
	}

	cmd.Flags().StringVar(&actor, "actor", "cli", "Who is making the decision")
	cmd.Flags().StringVar(&reason, "reason", "", "Why the suggestion is rejected")
	return cmd
}

func (a *App) newSuggestionsHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <id>",
		Short: "Show a suggestion's lifecycle history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sys, err := a.buildFromFlags(cmd)
			if err != nil {
				return err
			}
			defer sys.close()

			history, err := sys.lifecycle.History(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(history) == 0 {
				cmd.Println("No transitions recorded.")
				return nil
			}
			for _, tr := range history {
				line := fmt.Sprintf("%s  %s -> %s  by %s",
					tr.At.Format("2006-01-02 15:04:05"), tr.From, tr.To, tr.Actor)
				if tr.Note != "" {
					line += "  (" + tr.Note + ")"
				}
				cmd.Println(line)
			}
			return nil
		},
	}
}

// buildFromFlags loads config and wires the system for one command.
func (a *App) buildFromFlags(cmd *cobra.Command) (*system, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	return buildSystem(cmd.Context(), cfg)
}

func printJSON(cmd *cobra.Command, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	cmd.Println(string(out))
	return nil
}
