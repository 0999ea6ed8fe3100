package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/dwellsense/dwellsense/infrastructure/config"
	"github.com/dwellsense/dwellsense/infrastructure/logging"
	"github.com/dwellsense/dwellsense/interfaces/rest"
)

// newServeCmd creates the serve command, which runs the REST API.
func (a *App) newServeCmd() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the query and lifecycle REST API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}

			// The watcher keeps the file under observation so edits are
			// picked up on the next restart; live re-wiring is not
			// attempted.
			if watch && a.configPath != "" {
				watcher, err := config.NewWatcher(a.configPath, config.NewLoader(), nil)
				if err != nil {
					return fmt.Errorf("watching configuration: %w", err)
				}
				defer watcher.Close()
			}

			sys, err := buildSystem(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer sys.close()

			server, err := rest.NewServer(rest.ServerConfig{
				Query:     sys.query,
				Lifecycle: sys.lifecycle,
				Batch:     sys.batch,
				Address:   cfg.Server.Address,
			})
			if err != nil {
				return err
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-cmd.Context().Done():
				logging.Info().Msg("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			}
		},
	}

	cmd.Flags().BoolVar(&watch, "watch-config", false, "Watch the configuration file for changes")

	return cmd
}
