package cli

import (
	"github.com/spf13/cobra"

	"github.com/dwellsense/dwellsense/domain/capability"
)

// newCapabilitiesCmd groups the capability catalog commands.
func (a *App) newCapabilitiesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "capabilities",
		Aliases: []string{"caps"},
		Short:   "Inspect the capability catalog",
	}

	cmd.AddCommand(
		a.newCapabilitiesListCmd(),
		a.newCapabilitiesShowCmd(),
		a.newCapabilitiesRefreshCmd(),
	)
	return cmd
}

func (a *App) newCapabilitiesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List known device models",
		RunE: func(cmd *cobra.Command, args []string) error {
			sys, err := a.buildFromFlags(cmd)
			if err != nil {
				return err
			}
			defer sys.close()

			defs, err := sys.query.Capabilities(cmd.Context())
			if err != nil {
				return err
			}
			if len(defs) == 0 {
				cmd.Println("No capability definitions stored. Run `dwellsense capabilities refresh`.")
				return nil
			}
			for _, def := range defs {
				cmd.Printf("%-16s %-20s %-8s %d features\n",
					def.Key.Vendor, def.Key.Model, def.Key.Integration, len(def.Features))
			}
			return nil
		},
	}
}

func (a *App) newCapabilitiesShowCmd() *cobra.Command {
	var integration string

	cmd := &cobra.Command{
		Use:   "show <vendor> <model>",
		Short: "Show one model's capability definition",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sys, err := a.buildFromFlags(cmd)
			if err != nil {
				return err
			}
			defer sys.close()

			def, err := sys.query.Capability(cmd.Context(), capability.Key{
				Vendor:      args[0],
				Model:       args[1],
				Integration: integration,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd, def)
		},
	}

	cmd.Flags().StringVar(&integration, "integration", "zigbee", "Integration type of the definition")
	return cmd
}

func (a *App) newCapabilitiesRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Refresh the catalog from the capability bridge",
		RunE: func(cmd *cobra.Command, args []string) error {
			sys, err := a.buildFromFlags(cmd)
			if err != nil {
				return err
			}
			defer sys.close()

			if err := sys.batch.RefreshCapabilities(cmd.Context()); err != nil {
				return err
			}
			cmd.Println("Capability definitions refreshed.")
			return nil
		},
	}
}
