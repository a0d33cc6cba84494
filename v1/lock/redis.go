package lock

import (
	"context"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

var delScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
else
    return 0
end
`)

const (
	redisKeyPrefix     = "devlock:"
	redisChannelPrefix = "devlock:unlock:"

	// DefaultRedisTTL bounds how long a crashed holder keeps a lock. Expiry
	// is the Redis rendition of abandonment tolerance: the next acquirer
	// succeeds instead of deadlocking.
	DefaultRedisTTL = time.Minute

	// defaultRedisPoll is the fallback re-check interval. Expiry of an
	// abandoned lock publishes nothing, so waiters cannot rely on the unlock
	// channel alone.
	defaultRedisPoll = time.Second
)

// Redis implements Backend on a Redis instance, coordinating lock ownership
// across machines. Ownership is a SETNX key holding a random token; release
// is a compare-and-delete so only the owner can free it.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	poll   time.Duration
}

// RedisOption configures a Redis backend.
type RedisOption func(*Redis)

// WithTTL overrides how long a lock survives its holder's crash. A
// non-positive d keeps DefaultRedisTTL.
func WithTTL(d time.Duration) RedisOption {
	return func(r *Redis) {
		if d > 0 {
			r.ttl = d
		}
	}
}

// WithPollInterval overrides the expiry re-check interval.
func WithPollInterval(d time.Duration) RedisOption {
	return func(r *Redis) {
		if d > 0 {
			r.poll = d
		}
	}
}

// NewRedis returns a Redis backend using the provided client.
func NewRedis(client *redis.Client, opts ...RedisOption) *Redis {
	r := &Redis{
		client: client,
		ttl:    DefaultRedisTTL,
		poll:   defaultRedisPoll,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Acquire blocks until the identity is owned or ctx is cancelled.
func (r *Redis) Acquire(ctx context.Context, identity string) (Releaser, error) {
	token := uuid.NewString()
	key := redisKeyPrefix + identity

	sub := r.client.Subscribe(ctx, redisChannelPrefix+identity)
	defer sub.Close()
	notify := sub.Channel()

	ticker := time.NewTicker(r.poll)
	defer ticker.Stop()

	for {
		ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return &redisReleaser{backend: r, identity: identity, token: token}, nil
		}
		select {
		case <-notify:
		case <-ticker.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

type redisReleaser struct {
	backend  *Redis
	identity string
	token    string
}

func (r *redisReleaser) Release() error {
	ctx := context.Background()
	key := redisKeyPrefix + r.identity
	_, err := delScript.Run(ctx, r.backend.client, []string{key}, r.token).Result()
	if err == redis.Nil {
		err = nil
	}
	if err != nil {
		return err
	}
	return r.backend.client.Publish(ctx, redisChannelPrefix+r.identity, "released").Err()
}
