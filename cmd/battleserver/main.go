package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/quizbattle/server/internal/app"
	"github.com/quizbattle/server/internal/clock"
	"github.com/quizbattle/server/internal/config"
	"github.com/quizbattle/server/internal/store/postgres"
	"github.com/quizbattle/server/internal/transport"
)

const defaultConfigPath = "config/battleserver.yaml"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	slog.Info("quizbattle battle server starting")

	cfg, err := config.Load(defaultConfigPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	slog.Info("config loaded", "wsPort", cfg.WSPort, "wsPath", cfg.WSPath, "ratingK", cfg.RatingK)

	if err := postgres.RunMigrations(ctx, cfg.Database.DSN()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database migrations applied")

	st, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer st.Close()
	slog.Info("database connected", "dsn", cfg.Database.LogSafe())

	a := app.New(cfg, st, clock.NewReal())

	addr := fmt.Sprintf(":%d", cfg.WSPort)
	listener := transport.NewWSListener(addr, cfg.WSPath, cfg.SendQueueSize, cfg.WriteTimeout)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("websocket listener serving", "addr", addr, "path", cfg.WSPath)
		return listener.Serve()
	})
	g.Go(func() error {
		return a.Run(gctx, listener)
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("running battle server: %w", err)
	}
	return nil
}
