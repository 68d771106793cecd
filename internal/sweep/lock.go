package sweep

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const leaseKey = "sweep:lease"

// Locker serializes scheduled runs across replicas. Acquire returns false
// without error when another holder has the lease.
type Locker interface {
	Acquire(ctx context.Context, ttl time.Duration) (release func(), ok bool, err error)
}

// releaseScript deletes the lease only when the caller still holds it, so
// a run that outlives its TTL cannot release the next holder's lease.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a Redis SET NX lease. This is the production
// implementation for multi-replica deployments; single-replica setups can
// use NoopLocker instead.
type RedisLocker struct {
	client *redis.Client
}

// NewRedisLocker constructs a Redis-backed lease.
func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

// Acquire takes the lease for ttl. The lease expires on its own if the
// holder dies, so a crashed replica only delays the next run by one TTL.
func (l *RedisLocker) Acquire(ctx context.Context, ttl time.Duration) (func(), bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, leaseKey, token, ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	release := func() {
		// Best effort; an expired lease releases itself.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, l.client, []string{leaseKey}, token).Err()
	}
	return release, true, nil
}

// NoopLocker always grants the lease. Used when Redis is not configured.
type NoopLocker struct{}

func (NoopLocker) Acquire(context.Context, time.Duration) (func(), bool, error) {
	return func() {}, true, nil
}
