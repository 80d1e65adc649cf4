package permkit

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisCache is a Cache backed by Redis, for deployments where multiple
// processes must share invalidation. Prefix invalidation uses key patterns.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache wraps an existing Redis client. All keys are stored under
// keyPrefix (pass "" for none), which keeps permission keys apart from other
// users of the same Redis database.
func NewRedisCache(client *redis.Client, keyPrefix string) *RedisCache {
	return &RedisCache{client: client, prefix: keyPrefix}
}

// NewRedisCacheFromURL connects to Redis using a redis:// URL and verifies
// the connection with a ping.
func NewRedisCacheFromURL(ctx context.Context, url, keyPrefix string) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, NewError(ErrValidation, "invalid redis url: "+err.Error()).WithField("redis_url")
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, NewError(ErrStoreUnavailable, "redis ping failed: "+err.Error())
	}
	return NewRedisCache(client, keyPrefix), nil
}

// Get returns the cached value for key, if present.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		return nil, false
	}
	return val, true
}

// Set stores value under key with the given ttl.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	_ = c.client.Set(ctx, c.prefix+key, value, ttl).Err()
}

// DeletePrefix removes every key starting with prefix.
func (c *RedisCache) DeletePrefix(ctx context.Context, prefix string) {
	keys, err := c.client.Keys(ctx, c.prefix+prefix+"*").Result()
	if err != nil || len(keys) == 0 {
		return
	}
	_ = c.client.Del(ctx, keys...).Err()
}

// Close closes the underlying Redis client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
