// Package ratelimit enforces a fixed-window request budget per caller
// identity. Store failures fail open: an unreachable counter backend must not
// take the whole API down with it.
package ratelimit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"kompas/internal/platform/config"
	"kompas/internal/profile/metrics"
	"kompas/internal/ratelimit/store"
)

// Decision is the outcome of one rate limit check.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Service checks request budgets against a counter store.
type Service struct {
	store   store.CounterStore
	budget  int64
	window  time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New constructs the limiter from config.
func New(st store.CounterStore, cfg config.RateLimitConfig, opts ...Option) (*Service, error) {
	if st == nil {
		return nil, errors.New("counter store is required")
	}
	if cfg.Budget <= 0 || cfg.Window <= 0 {
		return nil, errors.New("rate limit budget and window must be positive")
	}
	s := &Service{
		store:  st,
		budget: int64(cfg.Budget),
		window: cfg.Window,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// TryAcquire consumes one unit of the identity's budget. When the store is
// unreachable the request is allowed and the outage is counted.
func (s *Service) TryAcquire(ctx context.Context, identity string) Decision {
	n, err := s.store.Increment(ctx, "rl:"+identity, s.window)
	if err != nil {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "rate limit store unavailable, failing open", "error", err)
		}
		s.metrics.RecordFailOpen()
		return Decision{Allowed: true}
	}
	if n > s.budget {
		return Decision{Allowed: false, RetryAfter: s.window}
	}
	return Decision{Allowed: true}
}
