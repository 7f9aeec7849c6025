package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"kiosk-ingest/internal/config"
	"kiosk-ingest/internal/infrastructure/kafka"
	"kiosk-ingest/internal/infrastructure/postgres"
	"kiosk-ingest/internal/infrastructure/redis"
	"kiosk-ingest/internal/ingest"

	pgxpool "github.com/jackc/pgx/v5/pgxpool"
	go_redis "github.com/redis/go-redis/v9"
)

const (
	connectAttempts = 5
	connectBackoff  = 2 * time.Second
)

type Factory struct {
	cfg      *config.Config
	logger   *slog.Logger
	pgPool   *pgxpool.Pool
	redisCli *go_redis.Client
	consumer *kafka.Consumer

	attempts int
	backoff  time.Duration
}

type Option func(*Factory)

// WithConnectRetry overrides how often and how far apart Postgres is dialled.
func WithConnectRetry(attempts int, backoff time.Duration) Option {
	if attempts < 1 {
		attempts = 1
	}
	return func(f *Factory) {
		f.attempts = attempts
		f.backoff = backoff
	}
}

func NewFactory(cfg *config.Config, logger *slog.Logger, opts ...Option) *Factory {
	f := &Factory{
		cfg:      cfg,
		logger:   logger,
		attempts: connectAttempts,
		backoff:  connectBackoff,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Factory) Postgres(ctx context.Context) (*pgxpool.Pool, error) {
	if f.pgPool != nil {
		return f.pgPool, nil
	}

	var pool *pgxpool.Pool
	var err error

	for i := 1; i <= f.attempts; i++ {
		pool, err = postgres.NewClient(ctx, postgres.Config{
			DSN:      f.cfg.Postgres.DSN(),
			MaxConns: f.cfg.Postgres.MaxConns,
		})
		if err == nil || i == f.attempts {
			break
		}
		f.logger.Warn("failed to connect to postgres, retrying",
			"attempt", i, "max", f.attempts, "backoff", f.backoff, "error", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.backoff):
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to init postgres after retries: %w", err)
	}

	f.pgPool = pool
	return pool, nil
}

// Locker returns a Redis table lock when Redis is configured and an
// in-process lock otherwise.
func (f *Factory) Locker(ctx context.Context) (ingest.Locker, error) {
	if f.cfg.Redis.Addr == "" {
		return &ingest.LocalLocker{}, nil
	}

	if f.redisCli == nil {
		client, err := redis.NewClient(ctx, redis.Config{
			Addr:        f.cfg.Redis.Addr,
			DialTimeout: 5 * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		f.redisCli = client
	}

	return redis.NewTableLocker(f.redisCli, f.cfg.Redis.LockTTL), nil
}

func (f *Factory) KafkaConfig() kafka.Config {
	return kafka.Config{
		Brokers:     f.cfg.Kafka.Brokers,
		Topic:       f.cfg.Kafka.Topic,
		GroupID:     f.cfg.Kafka.GroupID,
		Username:    f.cfg.Kafka.Username,
		Password:    f.cfg.Kafka.Password,
		SASL:        f.cfg.Kafka.SASL,
		StartOffset: f.cfg.Kafka.StartOffset,
		DialTimeout: f.cfg.Kafka.DialTimeout,
	}
}

func (f *Factory) Consumer() *kafka.Consumer {
	if f.consumer == nil {
		f.consumer = kafka.NewConsumer(f.KafkaConfig())
	}
	return f.consumer
}

func (f *Factory) Close() {
	if f.consumer != nil {
		if err := f.consumer.Close(); err != nil {
			f.logger.Error("failed to close kafka consumer", "error", err)
		}
	}
	if f.pgPool != nil {
		f.pgPool.Close()
	}
	if f.redisCli != nil {
		f.redisCli.Close()
	}
}
