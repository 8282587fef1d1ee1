package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LeaderboardCache stores rendered leaderboard pages. Invalidate drops every page at once.
type LeaderboardCache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Invalidate(ctx context.Context) error
}

// RedisLeaderboardCache namespaces keys by a generation counter; bumping the
// counter orphans all older pages, which then expire through their TTL.
type RedisLeaderboardCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedisLeaderboardCache(client *redis.Client, ttl time.Duration) *RedisLeaderboardCache {
	return &RedisLeaderboardCache{client: client, ttl: ttl, prefix: "gamification:leaderboard:"}
}

func (c *RedisLeaderboardCache) key(ctx context.Context, key string) (string, error) {
	gen, err := c.client.Get(ctx, c.prefix+"gen").Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", err
	}
	return fmt.Sprintf("%sv%d:%s", c.prefix, gen, key), nil
}

func (c *RedisLeaderboardCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	k, err := c.key(ctx, key)
	if err != nil {
		return false, err
	}
	val, err := c.client.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(val, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (c *RedisLeaderboardCache) Set(ctx context.Context, key string, value any) error {
	k, err := c.key(ctx, key)
	if err != nil {
		return err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, k, data, c.ttl).Err()
}

func (c *RedisLeaderboardCache) Invalidate(ctx context.Context) error {
	return c.client.Incr(ctx, c.prefix+"gen").Err()
}
