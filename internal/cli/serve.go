package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/ledgerflow/flowchart/internal/server"
	"github.com/ledgerflow/flowchart/pkg/config"
	"github.com/ledgerflow/flowchart/pkg/pipeline"
	"github.com/ledgerflow/flowchart/pkg/store"
)

// shutdownTimeout bounds graceful shutdown after the context is cancelled.
const shutdownTimeout = 10 * time.Second

// newServeCmd creates the "serve" command running the chart HTTP API.
func newServeCmd(configPath *string) *cobra.Command {
	var listenAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the chart HTTP API",
		Long: `Serve exposes the chart pipeline over HTTP. POST a raw payload to
/v1/charts/flow to build a chart, or to /v1/charts/flow/save to also
persist it (requires a configured chart store). Stored charts are read
back via GET /v1/charts/{id}.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if listenAddr == "" {
				listenAddr = cfg.Server.ListenAddr
			}

			c, err := openCache(ctx, cfg.Cache)
			if err != nil {
				return fmt.Errorf("open cache: %w", err)
			}
			runner := pipeline.NewRunner(c, nil, logger)
			defer runner.Close()

			var chartStore *store.ChartStore
			if cfg.Store.MongoURI != "" {
				chartStore, err = store.New(ctx, store.Config{
					URI:      cfg.Store.MongoURI,
					Database: cfg.Store.Database,
				})
				if err != nil {
					return fmt.Errorf("connect chart store: %w", err)
				}
				defer func() {
					closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
					defer cancel()
					_ = chartStore.Close(closeCtx)
				}()
				logger.Info("chart store connected", "database", cfg.Store.Database)
			} else {
				logger.Warn("no chart store configured, persistence endpoints disabled")
			}

			srv := &http.Server{
				Addr:    listenAddr,
				Handler: server.New(runner, chartStore, logger).Handler(),
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("listening", "addr", listenAddr)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case <-ctx.Done():
				logger.Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			}
		},
	}

	cmd.Flags().StringVar(&listenAddr, "listen", "", "listen address (default from config, e.g. :8080)")

	return cmd
}
