//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"kompas/internal/platform/config"
	platformredis "kompas/internal/platform/redis"
	"kompas/pkg/testutil/containers"
)

type RedisCounterIntegrationSuite struct {
	suite.Suite
	ctx    context.Context
	client *platformredis.Client
	store  *RedisStore
}

func TestRedisCounterIntegrationSuite(t *testing.T) {
	url := containers.StartRedis(t)

	client, err := platformredis.New(config.RedisConfig{
		URL:          url,
		PoolSize:     5,
		MinIdleConns: 1,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err != nil {
		t.Fatalf("connect redis: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	suite.Run(t, &RedisCounterIntegrationSuite{client: client})
}

func (s *RedisCounterIntegrationSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewRedisStore(s.client.Client)
	s.Require().NoError(s.client.FlushDB(s.ctx).Err())
}

// TestCounting verifies increments are monotonic per key.
func (s *RedisCounterIntegrationSuite) TestCounting() {
	for want := int64(1); want <= 3; want++ {
		n, err := s.store.Increment(s.ctx, "rl:caller", time.Minute)
		s.Require().NoError(err)
		s.Equal(want, n)
	}

	n, err := s.store.Increment(s.ctx, "rl:other", time.Minute)
	s.Require().NoError(err)
	s.Equal(int64(1), n)
}

// TestWindowExpiry verifies the counter resets once the window elapses.
func (s *RedisCounterIntegrationSuite) TestWindowExpiry() {
	n, err := s.store.Increment(s.ctx, "rl:caller", time.Second)
	s.Require().NoError(err)
	s.Equal(int64(1), n)

	s.Eventually(func() bool {
		ttl, err := s.client.TTL(s.ctx, "rl:caller").Result()
		return err == nil && ttl < 0
	}, 5*time.Second, 100*time.Millisecond)

	n, err = s.store.Increment(s.ctx, "rl:caller", time.Second)
	s.Require().NoError(err)
	s.Equal(int64(1), n)
}
