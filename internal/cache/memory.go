// internal/cache/memory.go
package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// memoryCache implements Cache using in-memory storage
type memoryCache struct {
	mu              sync.Mutex
	items           map[string]*cacheItem
	maxKeys         int
	defaultTTL      time.Duration
	cleanupInterval time.Duration
	logger          *zap.Logger
	stats           CacheStats
	startTime       time.Time
	now             func() time.Time
	stopCh          chan struct{}
	stopOnce        sync.Once
}

type cacheItem struct {
	Value      []byte
	ExpiresAt  time.Time
	AccessedAt time.Time
}

// NewMemoryCache creates a new in-memory cache
func NewMemoryCache(config *Config, logger *zap.Logger) Cache {
	return newMemoryCache(config, logger, time.Now)
}

func newMemoryCache(config *Config, logger *zap.Logger, now func() time.Time) *memoryCache {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &memoryCache{
		items:           make(map[string]*cacheItem),
		maxKeys:         config.MaxKeys,
		defaultTTL:      config.TTL,
		cleanupInterval: config.CleanupInterval,
		logger:          logger,
		stats:           CacheStats{Provider: "memory"},
		startTime:       now(),
		now:             now,
		stopCh:          make(chan struct{}),
	}

	if c.cleanupInterval > 0 {
		go c.cleanup()
	}

	return c
}

// Get retrieves a value from the cache
func (c *memoryCache) Get(ctx context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.live(key)
	if !ok {
		c.stats.Misses++
		return nil, false
	}

	item.AccessedAt = c.now()
	c.stats.Hits++
	return item.Value, true
}

// Set stores a value in the cache
func (c *memoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.store(key, value, ttl)
	return nil
}

// SetNX stores value only if key is missing or expired
func (c *memoryCache) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.live(key); ok {
		return false, nil
	}
	c.store(key, value, ttl)
	return true, nil
}

// Delete removes keys from the cache
func (c *memoryCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range keys {
		if _, exists := c.items[key]; exists {
			delete(c.items, key)
			c.stats.Deletes++
		}
	}
	return nil
}

// DeletePattern removes all keys matching a pattern
func (c *memoryCache) DeletePattern(ctx context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.items {
		if matchPattern(key, pattern) {
			delete(c.items, key)
			c.stats.Deletes++
		}
	}
	return nil
}

// Stats returns cache statistics
func (c *memoryCache) Stats(ctx context.Context) (*CacheStats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.Keys = int64(len(c.items))
	stats.Uptime = c.now().Sub(c.startTime)

	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRatio = float64(stats.Hits) / float64(total)
	}
	return &stats, nil
}

// Health always succeeds for the in-process cache
func (c *memoryCache) Health(ctx context.Context) error {
	return nil
}

// Close stops the cleanup goroutine
func (c *memoryCache) Close() error {
	c.stopOnce.Do(func() { close(c.stopCh) })
	return nil
}

// live returns the item for key, dropping it if expired. Caller holds mu.
func (c *memoryCache) live(key string) (*cacheItem, bool) {
	item, ok := c.items[key]
	if !ok {
		return nil, false
	}
	if c.now().After(item.ExpiresAt) {
		delete(c.items, key)
		return nil, false
	}
	return item, true
}

// store writes an item, evicting the least recently used one when full. Caller holds mu.
func (c *memoryCache) store(key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	if _, exists := c.items[key]; !exists && c.maxKeys > 0 && len(c.items) >= c.maxKeys {
		c.evictLRU()
	}

	now := c.now()
	c.items[key] = &cacheItem{
		Value:      value,
		ExpiresAt:  now.Add(ttl),
		AccessedAt: now,
	}
	c.stats.Sets++
}

func (c *memoryCache) cleanup() {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanupExpired()
		case <-c.stopCh:
			return
		}
	}
}

func (c *memoryCache) cleanupExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	expired := 0
	for key, item := range c.items {
		if now.After(item.ExpiresAt) {
			delete(c.items, key)
			expired++
		}
	}

	if expired > 0 {
		c.logger.Debug("Cleaned up expired cache items",
			zap.Int("expired_count", expired),
			zap.Int("remaining_count", len(c.items)),
		)
	}
}

func (c *memoryCache) evictLRU() {
	var oldestKey string
	var oldestTime time.Time

	for key, item := range c.items {
		if oldestKey == "" || item.AccessedAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = item.AccessedAt
		}
	}

	if oldestKey != "" {
		delete(c.items, oldestKey)
	}
}
