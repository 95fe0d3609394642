package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"escrowgate/internal/platform/logger"
)

const (
	poolStatsInterval = 15 * time.Second
	readHeaderTimeout = 10 * time.Second
)

func newServeCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			log := logger.New(cfg.Log.Level)
			ctx := cmd.Context()

			a, err := buildApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer func() {
				closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
				defer cancel()
				if err := a.close(closeCtx); err != nil {
					log.Error("failed to release resources", "error", err)
				}
			}()

			srv := &http.Server{
				Addr:              cfg.Server.Addr,
				Handler:           a.handler,
				ReadHeaderTimeout: readHeaderTimeout,
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				log.Info("starting http server", "addr", cfg.Server.Addr, "environment", cfg.Server.Environment)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				log.Info("shutting down server gracefully")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
			g.Go(func() error {
				if err := a.sweeper.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
					return err
				}
				return nil
			})
			if a.redis != nil {
				g.Go(func() error {
					return a.redis.RunPoolStats(gctx, poolStatsInterval)
				})
			}

			if err := g.Wait(); err != nil {
				return err
			}
			log.Info("server stopped")
			return nil
		},
	}
}
