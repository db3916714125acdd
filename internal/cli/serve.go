package cli

import (
	"context"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	httpadapter "github.com/couchcryptid/snow-profile-map/internal/adapter/http"
	"github.com/couchcryptid/snow-profile-map/internal/observability"
)

func newServeCommand(flags *globalFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Render the map once, then serve it with health and metrics endpoints.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd.Flags(), flags)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.HTTPAddr = addr
			}

			logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
			a, err := newApp(cfg, logger, prometheus.DefaultRegisterer)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					logger.Error("close error", "error", err)
				}
			}()

			if _, err := a.renderer.Generate(cmd.Context()); err != nil {
				logger.Error("render failed", "error", err)
			}

			srv := httpadapter.NewServer(cfg.HTTPAddr, cfg.OutputPath, a.renderer, logger)
			errCh := make(chan error, 1)
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			ctx := cmd.Context()
			select {
			case <-ctx.Done():
				logger.Info("shutting down")
			case err := <-errCh:
				if err != nil {
					return err
				}
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("http server shutdown error", "error", err)
			}
			logger.Info("shutdown complete")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (env HTTP_ADDR).")
	return cmd
}
