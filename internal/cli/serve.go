package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"formrunner/internal/api"
	"formrunner/internal/run"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose the engine over the HTTP control API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		factory := func(runID string) (*run.Aggregator, error) {
			return newAggregator(ctx, cfg, runID)
		}
		handler := api.NewHandler(factory, logger)

		srv := &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           handler.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info().Str("addr", cfg.Server.Addr).Msg("control api listening")
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info().Msg("shutting down")
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
