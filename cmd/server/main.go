package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/driftnetio/driftnet/pkg/api"
	"github.com/driftnetio/driftnet/pkg/config"
	"github.com/driftnetio/driftnet/pkg/lib/log"
	"github.com/driftnetio/driftnet/pkg/scrape"
	"github.com/driftnetio/driftnet/pkg/storage/postgres"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is fine; the environment may be set directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := log.NewLogger(&cfg.Log)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}

	ctx := context.Background()
	server, scheduler, db, err := initServer(ctx, logger, cfg)
	if err != nil {
		return fmt.Errorf("initialize server: %w", err)
	}

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig

		logger.Info().Msg("Shutting down")
		scheduler.Shutdown()
		if err := server.Stop(context.Background()); err != nil {
			logger.Error().Err(err).Msg("Server shutdown error")
		}
		db.Close()
	}()

	if err := server.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}

	return nil
}

func initServer(ctx context.Context, logger *zerolog.Logger, cfg *config.Config) (*api.Server, *scrape.Scheduler, *postgres.DB, error) {
	db := postgres.NewDB(&cfg.DB)
	if err := db.Connect(ctx); err != nil {
		return nil, nil, nil, fmt.Errorf("connect to database: %w", err)
	}

	postRepo := postgres.NewPostRepository(db)
	jobRepo := postgres.NewJobRepository(db)

	registry := scrape.NewRegistry(logger)
	registry.Initialize(&cfg.Providers)

	orchestrator := scrape.NewOrchestrator(registry, logger)
	scheduler := scrape.NewScheduler(logger, orchestrator, postRepo, jobRepo, &cfg.Scrape)

	server := api.NewServer(logger, &cfg.API, registry, orchestrator, scheduler, postRepo, jobRepo)

	return server, scheduler, db, nil
}
