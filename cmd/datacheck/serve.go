package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/datacheck/internal/logging"
	"github.com/JonMunkholm/datacheck/internal/refstore"
	"github.com/JonMunkholm/datacheck/internal/schema"
	"github.com/JonMunkholm/datacheck/internal/store"
	"github.com/JonMunkholm/datacheck/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP service",
	Long: `Serve the check API and report pages.

Configuration comes from the environment (and .env). Redis and PostgreSQL are
optional: without them reports are kept in memory.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// The environment decides the service log setup unless a flag was given.
	flags := cmd.Flags()
	if !flags.Changed("log-level") && !flags.Changed("log-format") {
		logging.Setup(cfg.Logging.Level, cfg.Logging.Format, nil)
	}
	slog.Info("configuration loaded", "config", cfg.String())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	slog.Info("datasets registered", "datasets", schema.Names())

	recs, reports := a.recorders()
	var opts []web.Option
	if a.redis != nil {
		opts = append(opts, web.WithHealthcheck("redis", refstore.Healthcheck(a.redis)))
	}
	if a.pool != nil {
		opts = append(opts, web.WithHealthcheck("database", store.Healthcheck(a.pool)))
	}
	srv := web.NewServer(cfg, a.runner(recs), reports, opts...)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("server stopped")
	return nil
}
