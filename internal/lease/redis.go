package lease

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// releaseScript deletes the key only while it still carries our token.
const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end`

// Redis is a Manager shared by every engine instance pointed at the same
// Redis. Leases are SET NX PX keys holding a random token and expire after
// the TTL if their holder dies.
type Redis struct {
	rdb           redis.Cmdable
	prefix        string
	ttl           time.Duration
	retryInterval time.Duration
	newToken      func() string
}

func NewRedis(rdb redis.Cmdable, prefix string, ttl, retryInterval time.Duration) *Redis {
	return &Redis{
		rdb:           rdb,
		prefix:        prefix,
		ttl:           ttl,
		retryInterval: retryInterval,
		newToken:      uuid.NewString,
	}
}

func (r *Redis) Acquire(ctx context.Context, key string) (Lease, error) {
	redisKey := r.prefix + key
	token := r.newToken()

	for {
		if ctx.Err() != nil {
			return nil, waitError(ctx, key)
		}

		ok, err := r.rdb.SetNX(ctx, redisKey, token, r.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, waitError(ctx, key)
			}
			return nil, fmt.Errorf("acquire lease %s: %w", redisKey, err)
		}
		if ok {
			return &redisLease{rdb: r.rdb, key: key, redisKey: redisKey, token: token}, nil
		}

		timer := time.NewTimer(r.retryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, waitError(ctx, key)
		case <-timer.C:
		}
	}
}

type redisLease struct {
	rdb      redis.Cmdable
	key      string
	redisKey string
	token    string
}

func (rl *redisLease) Key() string { return rl.key }

func (rl *redisLease) Release(ctx context.Context) error {
	n, err := rl.rdb.Eval(ctx, releaseScript, []string{rl.redisKey}, rl.token).Int64()
	if err != nil {
		return fmt.Errorf("release lease %s: %w", rl.redisKey, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrLost, rl.redisKey)
	}
	return nil
}
