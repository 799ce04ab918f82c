// Package cache implements the profile cache layer: a pluggable keyed store
// plus single-flight collapse of concurrent identical fetches.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"kompas/internal/profile/metrics"
	"kompas/internal/profile/models"
)

// ProfileCache stores assembled profile results under their request
// fingerprint and guarantees that concurrent misses for the same key trigger
// exactly one upstream fan-out.
type ProfileCache struct {
	store      Store
	group      singleflight.Group
	logger     *slog.Logger
	metrics    *metrics.Metrics
	profileTTL time.Duration
	searchTTL  time.Duration
}

// Option configures a ProfileCache.
type Option func(*ProfileCache)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *ProfileCache) { c.logger = logger }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *ProfileCache) { c.metrics = m }
}

// New builds a ProfileCache over the given store. profileTTL applies to
// registry-backed results, searchTTL to search-only results.
func New(store Store, profileTTL, searchTTL time.Duration, opts ...Option) *ProfileCache {
	c := &ProfileCache{
		store:      store,
		profileTTL: profileTTL,
		searchTTL:  searchTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached result for key, if present and fresh. Store errors
// and corrupt entries count as misses; the cache layer never fails a request.
func (c *ProfileCache) Get(ctx context.Context, key string) (*models.ProfileResult, bool) {
	raw, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.warn(ctx, "cache get failed", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var res models.ProfileResult
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		c.warn(ctx, "cache entry corrupt, evicting", err)
		_ = c.store.Delete(ctx, key)
		return nil, false
	}
	return &res, true
}

// Set stores an assembled result. Registry-verified profiles get the long
// TTL; search-only and degraded results go stale fast so a fresh attempt
// happens sooner. Degraded results are cached too: a degraded-but-cached
// result still saves redundant upstream calls, and callers needing a fresh
// attempt invalidate explicitly.
func (c *ProfileCache) Set(ctx context.Context, key string, res *models.ProfileResult) {
	raw, err := json.Marshal(res)
	if err != nil {
		c.warn(ctx, "cache marshal failed", err)
		return
	}
	ttl := c.searchTTL
	if res.BasicChecks.RegVerified {
		ttl = c.profileTTL
	}
	if err := c.store.Set(ctx, key, string(raw), ttl); err != nil {
		c.warn(ctx, "cache set failed", err)
	}
}

// Invalidate drops the entry for key.
func (c *ProfileCache) Invalidate(ctx context.Context, key string) {
	if err := c.store.Delete(ctx, key); err != nil {
		c.warn(ctx, "cache delete failed", err)
	}
}

// Fetch returns the cached result for key or runs fn exactly once to produce
// it, collapsing concurrent identical requests onto the in-flight call.
//
// The leader's fetch runs on a detached context: a waiter's disconnection
// cancels only its own wait, never the fetch other waiters depend on. On
// fetch failure the in-flight marker is cleared so the next caller retries.
func (c *ProfileCache) Fetch(ctx context.Context, key string, fn func(context.Context) (*models.ProfileResult, error)) (*models.ProfileResult, error) {
	if res, ok := c.Get(ctx, key); ok {
		c.countHit()
		return res, nil
	}
	c.countMiss()

	ch := c.group.DoChan(key, func() (any, error) {
		fetchCtx := context.WithoutCancel(ctx)
		res, err := fn(fetchCtx)
		if err != nil {
			return nil, err
		}
		c.Set(fetchCtx, key, res)
		return res, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		if r.Shared {
			c.countShared()
		}
		return r.Val.(*models.ProfileResult), nil
	}
}

func (c *ProfileCache) warn(ctx context.Context, msg string, err error) {
	if c.logger != nil {
		c.logger.WarnContext(ctx, msg, "error", err)
	}
}

func (c *ProfileCache) countHit() {
	if c.metrics != nil {
		c.metrics.CacheHits.Inc()
	}
}

func (c *ProfileCache) countMiss() {
	if c.metrics != nil {
		c.metrics.CacheMisses.Inc()
	}
}

func (c *ProfileCache) countShared() {
	if c.metrics != nil {
		c.metrics.SingleFlightShared.Inc()
	}
}
