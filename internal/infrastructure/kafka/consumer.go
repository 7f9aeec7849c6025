package kafka

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"kiosk-ingest/internal/ingest"

	"github.com/segmentio/kafka-go"
)

type Consumer struct {
	reader *kafka.Reader
}

func NewConsumer(cfg Config) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          cfg.Topic,
		GroupID:        cfg.GroupID,
		MinBytes:       1,    // Process immediately
		MaxBytes:       10e6, // 10MB
		MaxWait:        500 * time.Millisecond,
		CommitInterval: time.Second,
		Dialer:         NewDialer(cfg),
		StartOffset:    StartOffset(cfg.StartOffset),
	})
	return &Consumer{reader: r}
}

// StartOffset maps auto.offset.reset style values onto kafka-go offsets.
// It only applies when the group has no committed offset yet.
func StartOffset(v string) int64 {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "earliest", "first":
		return kafka.FirstOffset
	default:
		return kafka.LastOffset
	}
}

// Poll waits up to timeout for the next message. It returns (nil, nil)
// when nothing arrived in time.
func (c *Consumer) Poll(ctx context.Context, timeout time.Duration) (*ingest.Message, error) {
	pollCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	msg, err := c.reader.FetchMessage(pollCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch message: %w", err)
	}

	return &ingest.Message{
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Value:     msg.Value,
	}, nil
}

// Commit marks msg as consumed for the group. Commits are flushed every CommitInterval.
func (c *Consumer) Commit(ctx context.Context, msg ingest.Message) error {
	err := c.reader.CommitMessages(ctx, kafka.Message{
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
	})
	if err != nil {
		return fmt.Errorf("commit offset %d: %w", msg.Offset, err)
	}
	return nil
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
