// Package cache implements the cache-aside layer in front of expensive
// aggregate reads.
//
// Entries are JSON encoded and stored in Redis with a per-namespace TTL. The
// cache is never a source of truth: a backend failure degrades reads to the
// populate function and is reported as sentinel.ErrUnavailable on writes, so
// losing Redis costs latency, never correctness.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"atatek/pkg/platform/sentinel"
)

// PopulateFunc performs the authoritative read on a miss. ok=false marks an
// empty or not-found result, which is returned to the caller but never cached.
type PopulateFunc[T any] func(ctx context.Context) (value T, ok bool, err error)

// Cache is safe for concurrent use. A Cache with a nil client is valid and
// bypasses the backend entirely.
type Cache struct {
	client  redis.Cmdable
	logger  *slog.Logger
	metrics *Metrics
	flight  singleflight.Group
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger used for degraded-mode warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *Metrics) Option {
	return func(c *Cache) {
		c.metrics = m
	}
}

// New constructs a Cache over client. The client lifecycle is owned by the caller.
func New(client redis.Cmdable, opts ...Option) *Cache {
	c := &Cache{client: client}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	return c
}

// Enabled reports whether a backend is configured.
func (c *Cache) Enabled() bool {
	return c != nil && c.client != nil
}

// Get decodes the entry at key into dst. It reports false on a miss.
func (c *Cache) Get(ctx context.Context, key string, dst any) (bool, error) {
	if !c.Enabled() {
		return false, nil
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		c.metrics.lookup(key, "miss")
		return false, nil
	}
	if err != nil {
		c.metrics.lookup(key, "error")
		return false, fmt.Errorf("cache get %s: %w: %v", key, sentinel.ErrUnavailable, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		// A corrupt entry behaves like a miss; the next Put overwrites it.
		c.metrics.lookup(key, "miss")
		c.logger.WarnContext(ctx, "discarding undecodable cache entry", "key", key, "error", err)
		return false, nil
	}
	c.metrics.lookup(key, "hit")
	return true, nil
}

// Put stores value at key for ttl.
func (c *Cache) Put(ctx context.Context, key string, value any, ttl time.Duration) error {
	if !c.Enabled() {
		return nil
	}
	if ttl <= 0 {
		return fmt.Errorf("cache put %s: ttl must be positive: %w", key, sentinel.ErrInvalidState)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w: %v", key, sentinel.ErrUnavailable, err)
	}
	return nil
}

// Invalidate deletes key. Callers that just joined an in-flight populate for
// key are not affected, but the next GetOrPopulate starts a fresh one.
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	if !c.Enabled() {
		return nil
	}
	c.flight.Forget(key)
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.metrics.invalidation(key, "error")
		return fmt.Errorf("cache del %s: %w: %v", key, sentinel.ErrUnavailable, err)
	}
	c.metrics.invalidation(key, "ok")
	return nil
}

// takeScript deletes KEYS[1] only while it still holds ARGV[1].
var takeScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Take atomically consumes the entry at key when it encodes to want. It
// reports false on a miss or a mismatch, leaving a mismatched entry in
// place. Of several concurrent callers with a matching want, one wins.
func (c *Cache) Take(ctx context.Context, key string, want any) (bool, error) {
	if !c.Enabled() {
		return false, nil
	}
	raw, err := json.Marshal(want)
	if err != nil {
		return false, fmt.Errorf("cache encode %s: %w", key, err)
	}
	n, err := takeScript.Run(ctx, c.client, []string{key}, raw).Int()
	if err != nil {
		c.metrics.lookup(key, "error")
		return false, fmt.Errorf("cache take %s: %w: %v", key, sentinel.ErrUnavailable, err)
	}
	if n == 0 {
		c.metrics.lookup(key, "miss")
		return false, nil
	}
	c.metrics.lookup(key, "hit")
	return true, nil
}

type populated[T any] struct {
	value T
	ok    bool
}

// GetOrPopulate returns the cached value at key or computes it with populate.
//
// Concurrent misses on the same key share one populate call. The shared call
// runs detached from any single caller's cancellation; each caller still
// stops waiting when its own ctx is done.
func GetOrPopulate[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, populate PopulateFunc[T]) (T, error) {
	var zero T
	if !c.Enabled() {
		v, _, err := populate(ctx)
		return v, err
	}

	var cached T
	hit, err := c.Get(ctx, key, &cached)
	if hit {
		return cached, nil
	}
	backendUp := err == nil
	if !backendUp {
		c.logger.WarnContext(ctx, "cache unavailable, reading through", "key", key, "error", err)
	}

	ch := c.flight.DoChan(key, func() (any, error) {
		fctx := context.WithoutCancel(ctx)
		v, ok, err := populate(fctx)
		if err != nil {
			c.metrics.populate(key, "error")
			return nil, err
		}
		switch {
		case !ok:
			c.metrics.populate(key, "empty")
		case !backendUp:
			c.metrics.populate(key, "bypass")
		default:
			if err := c.Put(fctx, key, v, ttl); err != nil {
				c.logger.WarnContext(fctx, "cache write skipped", "key", key, "error", err)
				c.metrics.populate(key, "bypass")
			} else {
				c.metrics.populate(key, "stored")
			}
		}
		return populated[T]{value: v, ok: ok}, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(populated[T]).value, nil
	}
}
