package ingest

import (
	"context"
	"sync"
)

// Locker serialises id allocation and the bulk write that follows it.
// The returned func releases every table taken.
type Locker interface {
	Lock(ctx context.Context, tables ...string) (func(context.Context) error, error)
}

// LocalLocker serialises flushes within one process.
type LocalLocker struct {
	mu sync.Mutex
}

func (l *LocalLocker) Lock(context.Context, ...string) (func(context.Context) error, error) {
	l.mu.Lock()
	return func(context.Context) error {
		l.mu.Unlock()
		return nil
	}, nil
}
