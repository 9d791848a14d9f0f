package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"tradegraph/internal/platform/config"
	"tradegraph/internal/platform/httpserver"
	"tradegraph/internal/platform/logger"
	"tradegraph/internal/platform/metrics"
	httptransport "tradegraph/internal/transport/http"
)

// main wires infrastructure, services and the HTTP router. Business logic
// lives in the internal service packages.
func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	infra, err := openInfra(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer infra.Close()

	app, err := buildApp(ctx, cfg, infra, log)
	if err != nil {
		return err
	}
	defer app.publisher.Close()

	handlerOpts := []httptransport.Option{
		httptransport.WithLogger(log),
		httptransport.WithAdminToken(cfg.AdminToken),
		httptransport.WithRequestTimeout(cfg.Server.RequestTimeout),
	}
	handlerOpts = append(handlerOpts, infra.healthChecks()...)
	handler, err := httptransport.New(app.intel, app.guard, handlerOpts...)
	if err != nil {
		return fmt.Errorf("build handler: %w", err)
	}
	router := httptransport.NewRouter(handler, metrics.New())
	srv := httpserver.New(cfg.Server, router)

	log.InfoContext(ctx, "starting tradegraph",
		"addr", cfg.Server.Addr,
		"environment", cfg.Environment,
		"search_index", cfg.Search.Index,
		"postgres", infra.db != nil,
		"redis", infra.redis != nil,
		"kafka", infra.producer != nil,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.Run(gctx, srv, cfg.Server.ShutdownTimeout, log)
	})
	if app.relay != nil {
		g.Go(func() error {
			if err := app.relay.Run(gctx); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	return g.Wait()
}
