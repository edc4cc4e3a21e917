package suppress

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/okian/rollcall/pkg/logger"
	"github.com/okian/rollcall/pkg/metrics"
)

// redisCache keeps entries as Redis keys with an expiry so the window
// survives a station restart. Redis evicts expired keys itself.
// Failures are logged and treated as "not suppressed".
type redisCache struct {
	settings
	client redis.UniversalClient
}

// NewRedis creates a Redis-backed suppression cache.
func NewRedis(client redis.UniversalClient, opts ...Option) (Cache, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	return &redisCache{settings: newSettings(opts), client: client}, nil
}

func (c *redisCache) key(payload string) string {
	return c.prefix + ":" + payload
}

func (c *redisCache) IsSuppressed(ctx context.Context, payload string) bool {
	n, err := c.client.Exists(ctx, c.key(payload)).Result()
	if err != nil {
		c.fail(ctx, "exists", err)
		return false
	}
	return n > 0
}

func (c *redisCache) MarkAccepted(ctx context.Context, payload string) {
	if err := c.client.Set(ctx, c.key(payload), "1", c.ttl).Err(); err != nil {
		c.fail(ctx, "set", err)
	}
}

func (c *redisCache) Clear(ctx context.Context, payload string) bool {
	n, err := c.client.Del(ctx, c.key(payload)).Result()
	if err != nil {
		c.fail(ctx, "del", err)
		return false
	}
	return n > 0
}

func (c *redisCache) Sweep(context.Context) int { return 0 }

// Size counts live keys under the prefix with SCAN.
func (c *redisCache) Size() int64 {
	ctx := context.Background()
	var (
		cursor uint64
		total  int64
	)
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.prefix+":*", 256).Result()
		if err != nil {
			c.fail(ctx, "scan", err)
			return total
		}
		total += int64(len(keys))
		if next == 0 {
			return total
		}
		cursor = next
	}
}

func (c *redisCache) fail(ctx context.Context, op string, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	metrics.RecordErrorByComponent("suppress", op)
	c.log.Warn(ctx, "suppression cache unavailable", logger.String("op", op), logger.Error(err))
}
