//go:build integration

package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/celerix-dev/celerix-passport/pkg/passport"
)

type RedisBackendSuite struct {
	suite.Suite
	container testcontainers.Container
	url       string
	backend   *RedisBackend
}

func TestRedisBackendSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisBackendSuite))
}

func (s *RedisBackendSuite) SetupSuite() {
	ctx := context.Background()
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	s.Require().NoError(err)
	s.container = container

	s.url, err = container.ConnectionString(ctx)
	s.Require().NoError(err)
}

func (s *RedisBackendSuite) TearDownSuite() {
	s.NoError(testcontainers.TerminateContainer(s.container))
}

func (s *RedisBackendSuite) SetupTest() {
	ctx := context.Background()
	b, err := OpenRedis(ctx, s.url, Codec{Encoding: EncodingBytes}, WithKeyPrefix("test:"))
	s.Require().NoError(err)
	s.Require().NoError(b.client.FlushAll(ctx).Err())
	s.backend = b
}

func (s *RedisBackendSuite) TearDownTest() {
	s.NoError(s.backend.Close())
}

func (s *RedisBackendSuite) TestSaveAndLoad() {
	ctx := context.Background()
	s.Require().NoError(s.backend.Save(ctx, "rec-1", sampleSnapshot()))

	all, err := s.backend.LoadAll(ctx)
	s.Require().NoError(err)
	s.Equal(map[string]passport.Snapshot{"rec-1": sampleSnapshot()}, all)

	members, err := s.backend.client.SMembers(ctx, "test:passports").Result()
	s.Require().NoError(err)
	s.Equal([]string{"rec-1"}, members)
}

func (s *RedisBackendSuite) TestSkipsMissingDocuments() {
	ctx := context.Background()
	s.Require().NoError(s.backend.Save(ctx, "rec-1", sampleSnapshot()))
	s.Require().NoError(s.backend.client.SAdd(ctx, "test:passports", "ghost").Err())

	all, err := s.backend.LoadAll(ctx)
	s.Require().NoError(err)
	s.Len(all, 1)
}

func (s *RedisBackendSuite) TestEngineOnRedis() {
	ctx := context.Background()
	e, err := New(ctx, s.backend)
	s.Require().NoError(err)
	id, err := e.Deploy(ctx, owner, ivanov())
	s.Require().NoError(err)
	s.Require().NoError(e.Deactivate(ctx, id, owner))

	reloaded, err := New(ctx, s.backend)
	s.Require().NoError(err)
	active, err := reloaded.IsActive(ctx, id)
	s.Require().NoError(err)
	s.False(active)
}

func (s *RedisBackendSuite) TestOpenRedisBadURL() {
	_, err := OpenRedis(context.Background(), "not-a-url", Codec{})
	s.Error(err)
}
