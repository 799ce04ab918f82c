// Command server runs the compliance profile API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"kompas/internal/connectors/registry"
	"kompas/internal/connectors/sanctions"
	"kompas/internal/forget"
	"kompas/internal/platform/config"
	"kompas/internal/platform/httpserver"
	"kompas/internal/platform/logger"
	"kompas/internal/platform/middleware"
	platformredis "kompas/internal/platform/redis"
	"kompas/internal/profile/cache"
	"kompas/internal/profile/handler"
	"kompas/internal/profile/metrics"
	"kompas/internal/profile/orchestrator"
	"kompas/internal/profile/scoring"
	"kompas/internal/ratelimit"
	ratelimitstore "kompas/internal/ratelimit/store"
	"kompas/pkg/platform/privacy"
)

func main() {
	log := logger.New()

	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	m := metrics.New()

	rdb, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if rdb != nil {
		defer rdb.Close()
		log.Info("redis connected")
	} else {
		log.Info("redis not configured, using in-process stores")
	}

	// Cache and rate limit stores share the Redis connection when present and
	// degrade to in-process storage when it misbehaves.
	var cacheStore cache.Store = cache.NewMemoryStore()
	var counterStore ratelimitstore.CounterStore = ratelimitstore.NewMemoryStore()
	if rdb != nil {
		cacheStore = cache.NewFallbackStore(cache.NewRedisStore(rdb.Client), cache.NewMemoryStore(), log)
		counterStore = ratelimitstore.NewRedisStore(rdb.Client)
	}

	profileCache := cache.New(cacheStore, cfg.Cache.ProfileTTL, cfg.Cache.SearchTTL,
		cache.WithLogger(log), cache.WithMetrics(m))

	registryClient := registry.New(cfg.Registry, log)
	sanctionsClient := sanctions.New(cfg.Sanctions, log)

	orc, err := orchestrator.New(registryClient, sanctionsClient, profileCache, scoring.NewScorer(),
		orchestrator.WithLogger(log), orchestrator.WithMetrics(m))
	if err != nil {
		log.Error("orchestrator setup failed", "error", err)
		os.Exit(1)
	}

	limiter, err := ratelimit.New(counterStore, cfg.RateLimit,
		ratelimit.WithLogger(log), ratelimit.WithMetrics(m))
	if err != nil {
		log.Error("rate limiter setup failed", "error", err)
		os.Exit(1)
	}

	var publisher forget.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		kp, err := forget.NewKafkaPublisher(cfg.Kafka, log)
		if err != nil {
			log.Error("kafka publisher setup failed", "error", err)
			os.Exit(1)
		}
		publisher = kp
		log.Info("kafka publisher connected", "topic", cfg.Kafka.ForgetTopic)
	} else {
		publisher = forget.NewMemoryPublisher()
		log.Info("kafka not configured, using in-process forget queue")
	}
	defer publisher.Close()

	handlerOpts := []handler.Option{handler.WithLogger(log)}
	if rdb != nil {
		handlerOpts = append(handlerOpts, handler.WithHealthChecker(rdb))
	}
	h, err := handler.New(orc, registryClient, publisher, privacy.NewHasher(cfg.Privacy.HashKey), handlerOpts...)
	if err != nil {
		log.Error("handler setup failed", "error", err)
		os.Exit(1)
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestMetadata(log))
	r.Handle("/metrics", promhttp.Handler())
	r.Group(func(r chi.Router) {
		r.Use(limiter.Middleware)
		h.Register(r)
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.AdminAuth(cfg.Admin.JWTSigningKey, log))
		r.Use(limiter.Middleware)
		h.RegisterAdmin(r)
	})

	srv := httpserver.New(cfg.Server.Addr, r)

	go func() {
		log.Info("server listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}
