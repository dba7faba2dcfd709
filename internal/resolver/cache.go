package resolver

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/averraz/troubadour/internal/media"
)

// RedisCache memoizes resolved references in Redis. Entries expire on a TTL
// that must stay under the lifetime of upstream stream URLs. Cache failures
// are logged and swallowed; resolution never depends on Redis being up.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ Cache = (*RedisCache)(nil)

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, reference string) ([]media.Descriptor, bool) {
	payload, err := c.client.Get(ctx, cacheKey(reference)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) && !errors.Is(err, context.Canceled) {
			slog.Warn("resolver cache read failed", "error", err)
		}
		return nil, false
	}

	var descs []media.Descriptor
	if err := json.Unmarshal(payload, &descs); err != nil {
		slog.Warn("resolver cache entry corrupt, dropping", "key", cacheKey(reference), "error", err)
		c.client.Del(ctx, cacheKey(reference))
		return nil, false
	}
	return descs, true
}

func (c *RedisCache) Put(ctx context.Context, reference string, descs []media.Descriptor) {
	payload, err := json.Marshal(descs)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey(reference), payload, c.ttl).Err(); err != nil {
		if !errors.Is(err, context.Canceled) {
			slog.Warn("resolver cache write failed", "error", err)
		}
	}
}

func cacheKey(reference string) string {
	sum := sha256.Sum256([]byte(reference))
	return "troubadour:resolve:" + hex.EncodeToString(sum[:16])
}
