//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"tradegraph/internal/search/models"
	"tradegraph/pkg/testutil/containers"
)

type RedisCacheSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	cache *RedisCache
}

func TestRedisCacheSuite(t *testing.T) {
	suite.Run(t, new(RedisCacheSuite))
}

func (s *RedisCacheSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.cache = NewRedisCache(s.redis.Client.Client)
}

func (s *RedisCacheSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisCacheSuite) TestMissThenHit() {
	ctx := context.Background()

	got, err := s.cache.Get(ctx, "q1")
	s.Require().NoError(err)
	s.Nil(got, "a miss is not an error")

	want := &models.SearchResult{Total: 42, Page: 2, PageSize: 20, TotalPages: 3, Items: []*models.Shipment{}}
	s.Require().NoError(s.cache.Set(ctx, "q1", want, time.Minute))

	got, err = s.cache.Get(ctx, "q1")
	s.Require().NoError(err)
	s.Require().NotNil(got)
	s.Equal(42, got.Total)
	s.Equal(3, got.TotalPages)
}

func (s *RedisCacheSuite) TestEntriesExpire() {
	ctx := context.Background()
	s.Require().NoError(s.cache.Set(ctx, "q2", &models.SearchResult{Total: 1}, time.Minute))

	ttl, err := s.redis.Client.TTL(ctx, keyPrefix+"q2").Result()
	s.Require().NoError(err)
	s.Greater(ttl, time.Duration(0))
	s.LessOrEqual(ttl, time.Minute)
}

func (s *RedisCacheSuite) TestCorruptEntryIsAnError() {
	ctx := context.Background()
	s.Require().NoError(s.redis.Client.Set(ctx, keyPrefix+"q3", "not json", time.Minute).Err())

	_, err := s.cache.Get(ctx, "q3")
	s.Error(err)
}
