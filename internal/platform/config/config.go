// Package config builds the process configuration once at startup. Components
// receive the pieces they need and never read the environment themselves.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	derrors "kompas/pkg/domain-errors"
)

// Config is the root configuration passed down from main.
type Config struct {
	Server    Server
	Redis     RedisConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
	Privacy   PrivacyConfig
	Admin     AdminConfig
	Registry  AdapterConfig
	Sanctions AdapterConfig
	Kafka     KafkaConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// RedisConfig configures the shared backing store. An empty URL means Redis is
// not configured and the process runs on the local store only.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// CacheConfig holds the TTL split: profile data changes rarely, search-only
// results go stale fast.
type CacheConfig struct {
	SearchTTL  time.Duration
	ProfileTTL time.Duration
}

// RateLimitConfig is the per-caller token budget over a fixed window.
type RateLimitConfig struct {
	Budget int
	Window time.Duration
}

// PrivacyConfig holds the secret key for identifier hashing.
type PrivacyConfig struct {
	HashKey string
}

// AdminConfig guards the admin surface.
type AdminConfig struct {
	JWTSigningKey string
}

// AdapterConfig configures one upstream source adapter.
type AdapterConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// KafkaConfig configures the deletion-job publisher. Empty brokers select the
// in-process publisher.
type KafkaConfig struct {
	Brokers     []string
	ForgetTopic string
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoienv(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func durenvs(key string, defSec int) time.Duration {
	return time.Duration(atoienv(key, defSec)) * time.Second
}

// FromEnv collects configuration from environment variables with defaults.
func FromEnv() Config {
	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = strings.Split(v, ",")
	}
	return Config{
		Server: Server{
			Addr:            getenv("KOMPAS_ADDR", ":8080"),
			ShutdownTimeout: durenvs("SHUTDOWN_TIMEOUT", 10),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     atoienv("REDIS_POOL_SIZE", 10),
			MinIdleConns: atoienv("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  durenvs("REDIS_DIAL_TIMEOUT", 5),
			ReadTimeout:  durenvs("REDIS_READ_TIMEOUT", 3),
			WriteTimeout: durenvs("REDIS_WRITE_TIMEOUT", 3),
		},
		Cache: CacheConfig{
			SearchTTL:  durenvs("CACHE_TTL_SEARCH", 900),
			ProfileTTL: durenvs("CACHE_TTL_PROFILE", 86400),
		},
		RateLimit: RateLimitConfig{
			Budget: atoienv("RATE_LIMIT_BUDGET", 60),
			Window: durenvs("RATE_LIMIT_WINDOW", 60),
		},
		Privacy: PrivacyConfig{
			HashKey: getenv("PII_HASH_KEY", "local-dev-key"),
		},
		Admin: AdminConfig{
			JWTSigningKey: getenv("ADMIN_JWT_KEY", "dev-secret-key-change-in-production"),
		},
		Registry: AdapterConfig{
			BaseURL: getenv("KVK_BASE_URL", "https://api.kvk.nl/test/api"),
			APIKey:  getenv("KVK_API_KEY", "l7xx1f2691f2520d487b902f4e0b57a0b197"),
			Timeout: durenvs("KVK_TIMEOUT", 30),
		},
		Sanctions: AdapterConfig{
			BaseURL: getenv("OPENSANCTIONS_BASE_URL", "https://api.opensanctions.org"),
			APIKey:  os.Getenv("OPENSANCTIONS_API_KEY"),
			Timeout: durenvs("OPENSANCTIONS_TIMEOUT", 30),
		},
		Kafka: KafkaConfig{
			Brokers:     brokers,
			ForgetTopic: getenv("FORGET_TOPIC", "kompas.forget"),
		},
	}
}

// Validate reports missing required credentials. This is fatal at startup;
// nothing per-request should ever hit a configuration error.
func (c Config) Validate() error {
	if c.Sanctions.APIKey == "" {
		return derrors.New(derrors.CodeConfiguration, "OPENSANCTIONS_API_KEY is required")
	}
	if c.Registry.APIKey == "" {
		return derrors.New(derrors.CodeConfiguration, "KVK_API_KEY is required")
	}
	if c.Privacy.HashKey == "" {
		return derrors.New(derrors.CodeConfiguration, "PII_HASH_KEY must not be empty")
	}
	if c.RateLimit.Budget <= 0 || c.RateLimit.Window <= 0 {
		return derrors.New(derrors.CodeConfiguration, "rate limit budget and window must be positive")
	}
	return nil
}
