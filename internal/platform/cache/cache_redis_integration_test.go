//go:build integration

package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"atatek/internal/platform/cache"
	"atatek/pkg/testutil/containers"
)

type RedisCacheSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	cache *cache.Cache
}

func TestRedisCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisCacheSuite))
}

func (s *RedisCacheSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.cache = cache.New(s.redis.Client)
}

func (s *RedisCacheSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisCacheSuite) TestEntriesCarryNamespaceTTL() {
	ctx := context.Background()
	key := cache.TreeChildrenKey(14)

	got, err := cache.GetOrPopulate(ctx, s.cache, key, 600*time.Second, func(context.Context) ([]int64, bool, error) {
		return []int64{15, 16}, true, nil
	})
	s.Require().NoError(err)
	s.Equal([]int64{15, 16}, got)

	ttl, err := s.redis.Client.TTL(ctx, key).Result()
	s.Require().NoError(err)
	s.InDelta(600, ttl.Seconds(), 2)
}

func (s *RedisCacheSuite) TestPutGetInvalidate() {
	ctx := context.Background()
	key := cache.VerifyCodeKey(7)

	s.Require().NoError(s.cache.Put(ctx, key, "4821", 180*time.Second))
	var code string
	hit, err := s.cache.Get(ctx, key, &code)
	s.Require().NoError(err)
	s.True(hit)
	s.Equal("4821", code)

	s.Require().NoError(s.cache.Invalidate(ctx, key))
	hit, err = s.cache.Get(ctx, key, &code)
	s.Require().NoError(err)
	s.False(hit)
}
