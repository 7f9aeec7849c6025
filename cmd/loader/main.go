package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kiosk-ingest/internal/api"
	"kiosk-ingest/internal/application/factories/infrastructure"
	"kiosk-ingest/internal/config"
	"kiosk-ingest/internal/infrastructure/postgres"
	"kiosk-ingest/internal/ingest"
	"kiosk-ingest/internal/logging"
	"kiosk-ingest/internal/transform"
	"kiosk-ingest/internal/validation"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s <%s|%s>\n", os.Args[0], logging.File, logging.Console)
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	if err := logging.CheckDestination(flag.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, closer, err := logging.New(flag.Arg(0), cfg.Log.File, cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logging: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()
	slog.SetDefault(logger)

	window, err := validation.ParseWindow(cfg.Ingest.WindowOpen, cfg.Ingest.WindowClose)
	if err != nil {
		logger.Error("invalid validity window", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, window, logger); err != nil {
		logger.Error("loader failed", "error", err)
		cancel()
		closer.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, window validation.Window, logger *slog.Logger) error {
	infraFactory := infrastructure.NewFactory(cfg, logger)
	defer infraFactory.Close()

	pgPool, err := infraFactory.Postgres(ctx)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}

	locker, err := infraFactory.Locker(ctx)
	if err != nil {
		return fmt.Errorf("init table locks: %w", err)
	}

	repo := postgres.NewInteractionRepository(pgPool)
	flusher := ingest.NewFlusher(transform.New(repo), repo, locker, logger)

	orch := ingest.NewOrchestrator(
		infraFactory.Consumer(),
		validation.New(window),
		flusher,
		ingest.Settings{
			BatchSize:     cfg.Ingest.BatchSize,
			MaxMessages:   cfg.Ingest.MaxMessages,
			MaxEmptyPolls: cfg.Ingest.MaxEmptyPolls,
			PollTimeout:   cfg.Ingest.PollTimeout,
		},
		logger,
	)

	var srv *http.Server
	if cfg.HTTP.Port != "" {
		srv = &http.Server{
			Addr:              ":" + cfg.HTTP.Port,
			Handler:           api.NewRouter(api.NewHandlers(orch)),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("ops server starting", "port", cfg.HTTP.Port)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("ops server failed", "error", err)
			}
		}()
	}

	logger.Info("subscribed to topic",
		"topic", cfg.Kafka.Topic,
		"group_id", cfg.Kafka.GroupID,
		"window", window.String(),
	)
	orch.Run(ctx)

	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("ops server forced to shutdown", "error", err)
		}
	}

	return nil
}
