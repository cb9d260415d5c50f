package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/unclebandit/dialer-campaign-backend/internal/model"
)

// redisClient is the part of *redis.Client the cache uses
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStatsCache shares cached stats between the API and worker processes.
// A Redis failure on read falls through to the loader.
type RedisStatsCache struct {
	client redisClient
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisStatsCache(client redisClient, ttl time.Duration, logger *zap.Logger) *RedisStatsCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStatsCache{client: client, ttl: ttl, logger: logger}
}

func statsKey(campaignID int) string {
	return fmt.Sprintf("campaign:%d:stats", campaignID)
}

func (c *RedisStatsCache) Get(ctx context.Context, campaignID int, load Loader) (*model.CampaignStats, error) {
	key := statsKey(campaignID)

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var stats model.CampaignStats
		if jsonErr := json.Unmarshal(raw, &stats); jsonErr == nil {
			return &stats, nil
		}
		c.logger.Warn("discarding undecodable stats entry", zap.String("key", key))
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("stats cache read failed", zap.String("key", key), zap.Error(err))
	}

	stats, err := load(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(stats)
	if err != nil {
		return nil, err
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.Warn("stats cache write failed", zap.String("key", key), zap.Error(err))
	}
	return stats, nil
}

func (c *RedisStatsCache) Invalidate(ctx context.Context, campaignID int) error {
	return c.client.Del(ctx, statsKey(campaignID)).Err()
}

var _ StatsCache = (*RedisStatsCache)(nil)
