package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrLockNotAcquired = errors.New("table lock not acquired")

// releaseScript deletes the key only if this holder still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// extendScript pushes the expiry out only if this holder still owns the key.
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

const retryInterval = 100 * time.Millisecond

// TableLocker serialises id allocation and bulk writes per table across
// loader processes sharing one Redis.
type TableLocker struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func NewTableLocker(client *redis.Client, ttl time.Duration) *TableLocker {
	return &TableLocker{
		client: client,
		ttl:    ttl,
		prefix: "kiosk-ingest:lock:",
	}
}

// Lock takes one key per table in sorted order and waits at most ttl for
// each. On failure the keys already taken are released. While the lock is
// held its keys are extended every ttl/3, so ttl only bounds how long a
// crashed holder blocks the others.
func (l *TableLocker) Lock(ctx context.Context, tables ...string) (func(context.Context) error, error) {
	sorted := append([]string(nil), tables...)
	sort.Strings(sorted)

	token := uuid.NewString()
	var held []string

	releaseKeys := func(ctx context.Context) error {
		var errs []error
		for _, key := range held {
			if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
				errs = append(errs, fmt.Errorf("release %s: %w", key, err))
			}
		}
		return errors.Join(errs...)
	}

	for _, table := range sorted {
		key := l.prefix + table
		if err := l.acquire(ctx, key, token); err != nil {
			_ = releaseKeys(context.WithoutCancel(ctx))
			return nil, err
		}
		held = append(held, key)
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		l.keepAlive(context.WithoutCancel(ctx), held, token, stop)
	}()

	var (
		once sync.Once
		err  error
	)
	release := func(ctx context.Context) error {
		once.Do(func() {
			close(stop)
			<-done
			err = releaseKeys(ctx)
		})
		return err
	}
	return release, nil
}

// keepAlive extends keys until stop is closed. A key lost to expiry is not
// re-taken.
func (l *TableLocker) keepAlive(ctx context.Context, keys []string, token string, stop <-chan struct{}) {
	interval := l.ttl / 3
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			for _, key := range keys {
				_ = extendScript.Run(ctx, l.client, []string{key}, token, l.ttl.Milliseconds()).Err()
			}
		}
	}
}

func (l *TableLocker) acquire(ctx context.Context, key, token string) error {
	deadline := time.Now().Add(l.ttl)
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return fmt.Errorf("lock %s: %w", key, err)
		}
		if ok {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("lock %s: %w", key, ErrLockNotAcquired)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("lock %s: %w", key, ctx.Err())
		case <-time.After(retryInterval):
		}
	}
}
