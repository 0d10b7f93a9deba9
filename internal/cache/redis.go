// internal/cache/redis.go
package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type redisCache struct {
	client    *redis.Client
	logger    *zap.Logger
	config    *Config
	startTime time.Time

	hits    atomic.Int64
	misses  atomic.Int64
	sets    atomic.Int64
	deletes atomic.Int64
}

// NewRedisCache creates a new Redis-based cache
func NewRedisCache(config *Config, logger *zap.Logger) (Cache, error) {
	if config == nil {
		return nil, fmt.Errorf("cache config cannot be nil")
	}
	if config.RedisURL == "" {
		return nil, fmt.Errorf("redis URL is required for the redis provider")
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	options, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	if config.PoolSize > 0 {
		options.PoolSize = config.PoolSize
	}

	client := redis.NewClient(options)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis cache initialized",
		zap.String("addr", options.Addr),
		zap.Int("db", options.DB),
	)

	return newRedisCache(client, config, logger), nil
}

func newRedisCache(client *redis.Client, config *Config, logger *zap.Logger) *redisCache {
	return &redisCache{
		client:    client,
		logger:    logger,
		config:    config,
		startTime: time.Now(),
	}
}

func (r *redisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		r.misses.Add(1)
		return nil, false
	} else if err != nil {
		r.logger.Error("Failed to get from Redis",
			zap.String("key", key),
			zap.Error(err))
		r.misses.Add(1)
		return nil, false
	}

	r.hits.Add(1)
	return val, true
}

func (r *redisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = r.config.TTL
	}
	r.sets.Add(1)
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *redisCache) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = r.config.TTL
	}
	ok, err := r.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis SETNX %s: %w", key, err)
	}
	if ok {
		r.sets.Add(1)
	}
	return ok, nil
}

func (r *redisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	n, err := r.client.Del(ctx, keys...).Result()
	r.deletes.Add(n)
	return err
}

func (r *redisCache) DeletePattern(ctx context.Context, pattern string) error {
	iter := r.client.Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string

	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		// Delete in batches to avoid blocking Redis for too long
		if len(keys) >= 1000 {
			if err := r.Delete(ctx, keys...); err != nil {
				return err
			}
			keys = keys[:0]
		}
	}

	if err := iter.Err(); err != nil {
		return err
	}

	return r.Delete(ctx, keys...)
}

func (r *redisCache) Stats(ctx context.Context) (*CacheStats, error) {
	stats := &CacheStats{
		Provider: "redis",
		Hits:     r.hits.Load(),
		Misses:   r.misses.Load(),
		Sets:     r.sets.Load(),
		Deletes:  r.deletes.Load(),
		Uptime:   time.Since(r.startTime),
	}

	keys, err := r.client.DBSize(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read Redis key count: %w", err)
	}
	stats.Keys = keys

	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRatio = float64(stats.Hits) / float64(total)
	}

	return stats, nil
}

func (r *redisCache) Health(ctx context.Context) error {
	_, err := r.client.Ping(ctx).Result()
	return err
}

func (r *redisCache) Close() error {
	return r.client.Close()
}
