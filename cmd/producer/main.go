package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kiosk-ingest/internal/application/factories/infrastructure"
	"kiosk-ingest/internal/config"
	"kiosk-ingest/internal/infrastructure/kafka"
	"kiosk-ingest/internal/simulate"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
)

func main() {
	var (
		count    = flag.Int("events", 250, "Number of events to publish")
		invalid  = flag.Float64("invalid", 0.2, "Share of deliberately invalid events")
		seed     = flag.Int64("seed", time.Now().UnixNano(), "Random seed")
		interval = flag.Duration("interval", 0, "Pause between events")
		batch    = flag.Int("batch", 50, "Events per write")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.New()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	producer := kafka.NewProducer(infrastructure.NewFactory(cfg, logger).KafkaConfig())
	defer producer.Close()

	gen := simulate.NewGenerator(*seed, *invalid)
	day := time.Now()
	pending := make([]kafkago.Message, 0, *batch)
	sent, valid := 0, 0

	flush := func() bool {
		if len(pending) == 0 {
			return true
		}
		if err := producer.SendMessages(ctx, pending...); err != nil {
			logger.Error("failed to publish events", "error", err, "pending", len(pending))
			return false
		}
		sent += len(pending)
		pending = pending[:0]
		return true
	}

	for i := 0; i < *count && ctx.Err() == nil; i++ {
		kind, value := gen.Next(day)
		if kind.Valid() {
			valid++
		}
		pending = append(pending, kafkago.Message{
			Key:   []byte(uuid.NewString()),
			Value: value,
		})
		if len(pending) >= *batch && !flush() {
			break
		}
		if *interval > 0 {
			time.Sleep(*interval)
		}
	}
	flush()

	logger.Info("events published",
		"topic", producer.GetTopic(),
		"sent", sent,
		"valid", valid,
		"seed", *seed,
	)
}
