//go:build integration

package lease_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"beneficiary/internal/profile/store/lease"
	"beneficiary/internal/sentinel"
	"beneficiary/pkg/testutil/containers"
)

type RedisLeaseSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	lease *lease.RedisLease
	ctx   context.Context
}

func TestRedisLeaseSuite(t *testing.T) {
	suite.Run(t, new(RedisLeaseSuite))
}

func (s *RedisLeaseSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.lease = lease.NewRedis(s.redis.Client, time.Minute)
	s.ctx = context.Background()
}

func (s *RedisLeaseSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(s.ctx))
}

func (s *RedisLeaseSuite) TestAcquireRelease() {
	token, err := s.lease.Acquire(s.ctx, "profile:person:1")
	s.Require().NoError(err)

	_, err = s.lease.Acquire(s.ctx, "profile:person:1")
	s.ErrorIs(err, sentinel.ErrLeaseHeld)

	ttl, err := s.redis.Client.PTTL(s.ctx, "beneficiary:lease:profile:person:1").Result()
	s.Require().NoError(err)
	s.Greater(ttl, time.Duration(0))

	s.Require().NoError(s.lease.Release(s.ctx, "profile:person:1", token))
	_, err = s.lease.Acquire(s.ctx, "profile:person:1")
	s.NoError(err)
}

func (s *RedisLeaseSuite) TestForeignTokenCannotRelease() {
	_, err := s.lease.Acquire(s.ctx, "k")
	s.Require().NoError(err)

	s.Require().NoError(s.lease.Release(s.ctx, "k", "not-the-owner"))
	_, err = s.lease.Acquire(s.ctx, "k")
	s.ErrorIs(err, sentinel.ErrLeaseHeld)
}

func (s *RedisLeaseSuite) TestExpiry() {
	short := lease.NewRedis(s.redis.Client, 50*time.Millisecond)
	_, err := short.Acquire(s.ctx, "k")
	s.Require().NoError(err)

	s.Eventually(func() bool {
		_, err := short.Acquire(s.ctx, "k")
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
}
