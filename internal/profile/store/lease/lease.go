// Package lease provides per-key exclusive processing leases backed by Redis
// or process memory.
package lease

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"beneficiary/internal/sentinel"
)

// DefaultTTL bounds how long a crashed holder can block a key.
const DefaultTTL = 2 * time.Minute

const keyPrefix = "beneficiary:lease:"

// releaseScript deletes the key only while it still holds the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLease grants leases with SET NX PX so concurrent service instances
// agree on a single holder.
type RedisLease struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedis returns a Redis-backed lease. A non-positive ttl uses DefaultTTL.
func NewRedis(client redis.Cmdable, ttl time.Duration) *RedisLease {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisLease{client: client, ttl: ttl}
}

// Acquire returns a token proving ownership of key, or sentinel.ErrLeaseHeld.
func (l *RedisLease) Acquire(ctx context.Context, key string) (string, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, keyPrefix+key, token, l.ttl).Result()
	if err != nil {
		return "", fmt.Errorf("acquire lease: %w: %w", sentinel.ErrUnavailable, err)
	}
	if !ok {
		return "", sentinel.ErrLeaseHeld
	}
	return token, nil
}

// Release drops the lease if token still owns it. Releasing an expired or
// foreign lease is a no-op.
func (l *RedisLease) Release(ctx context.Context, key, token string) error {
	err := releaseScript.Run(ctx, l.client, []string{keyPrefix + key}, token).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release lease: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}
