package cache

import (
	"context"
	"log/slog"
	"time"
)

// FallbackStore wraps a shared primary store with a local fallback. Primary
// failures degrade to the fallback with a warning; a cache outage must never
// surface as a request failure.
type FallbackStore struct {
	primary  Store
	fallback Store
	logger   *slog.Logger
}

// NewFallbackStore composes primary and fallback stores. The fallback is
// expected to be a MemoryStore and must not fail.
func NewFallbackStore(primary, fallback Store, logger *slog.Logger) *FallbackStore {
	return &FallbackStore{primary: primary, fallback: fallback, logger: logger}
}

func (s *FallbackStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, ok, err := s.primary.Get(ctx, key)
	if err != nil {
		s.warn(ctx, "get", err)
		return s.fallback.Get(ctx, key)
	}
	return val, ok, nil
}

func (s *FallbackStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.primary.Set(ctx, key, value, ttl); err != nil {
		s.warn(ctx, "set", err)
		return s.fallback.Set(ctx, key, value, ttl)
	}
	// Mirror into the fallback so a later primary outage still has warm data.
	_ = s.fallback.Set(ctx, key, value, ttl)
	return nil
}

func (s *FallbackStore) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ok, err := s.primary.SetIfAbsent(ctx, key, value, ttl)
	if err != nil {
		s.warn(ctx, "setnx", err)
		return s.fallback.SetIfAbsent(ctx, key, value, ttl)
	}
	return ok, nil
}

func (s *FallbackStore) Delete(ctx context.Context, key string) error {
	if err := s.primary.Delete(ctx, key); err != nil {
		s.warn(ctx, "delete", err)
	}
	return s.fallback.Delete(ctx, key)
}

func (s *FallbackStore) warn(ctx context.Context, op string, err error) {
	if s.logger != nil {
		s.logger.WarnContext(ctx, "cache store degraded to local fallback", "op", op, "error", err)
	}
}
