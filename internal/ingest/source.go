package ingest

import (
	"context"
	"time"
)

// Message is one record pulled from the message source.
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Value     []byte
}

// Source is the message broker as seen by the consume loop.
type Source interface {
	// Poll blocks up to timeout and returns (nil, nil) when no message arrived.
	Poll(ctx context.Context, timeout time.Duration) (*Message, error)
	Commit(ctx context.Context, msg Message) error
}
