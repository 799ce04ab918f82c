//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"kompas/internal/platform/config"
	platformredis "kompas/internal/platform/redis"
	"kompas/pkg/testutil/containers"
)

type RedisStoreIntegrationSuite struct {
	suite.Suite
	ctx    context.Context
	client *platformredis.Client
	store  *RedisStore
}

func TestRedisStoreIntegrationSuite(t *testing.T) {
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

	suite.Run(t, &RedisStoreIntegrationSuite{client: client})
}

func (s *RedisStoreIntegrationSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewRedisStore(s.client.Client)
	s.Require().NoError(s.client.FlushDB(s.ctx).Err())
}

// TestRoundTrip verifies values survive a set/get cycle against real Redis.
func (s *RedisStoreIntegrationSuite) TestRoundTrip() {
	s.Require().NoError(s.store.Set(s.ctx, "profile:NL:coolblue:basic", `{"a":1}`, time.Minute))

	val, ok, err := s.store.Get(s.ctx, "profile:NL:coolblue:basic")
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(`{"a":1}`, val)
}

// TestMissingKey verifies absence is reported without error.
func (s *RedisStoreIntegrationSuite) TestMissingKey() {
	_, ok, err := s.store.Get(s.ctx, "profile:NL:nothing:basic")
	s.Require().NoError(err)
	s.False(ok)
}

// TestExpiry verifies TTLs take effect.
func (s *RedisStoreIntegrationSuite) TestExpiry() {
	s.Require().NoError(s.store.Set(s.ctx, "k", "v", time.Second))

	s.Eventually(func() bool {
		_, ok, err := s.store.Get(s.ctx, "k")
		return err == nil && !ok
	}, 5*time.Second, 100*time.Millisecond)
}

// TestSetIfAbsent verifies the conditional write against real Redis.
func (s *RedisStoreIntegrationSuite) TestSetIfAbsent() {
	ok, err := s.store.SetIfAbsent(s.ctx, "marker", "a", time.Minute)
	s.Require().NoError(err)
	s.True(ok)

	ok, err = s.store.SetIfAbsent(s.ctx, "marker", "b", time.Minute)
	s.Require().NoError(err)
	s.False(ok)
}

// TestDelete verifies invalidation.
func (s *RedisStoreIntegrationSuite) TestDelete() {
	s.Require().NoError(s.store.Set(s.ctx, "k", "v", time.Minute))
	s.Require().NoError(s.store.Delete(s.ctx, "k"))

	_, ok, err := s.store.Get(s.ctx, "k")
	s.Require().NoError(err)
	s.False(ok)
}
