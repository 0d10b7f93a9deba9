// internal/cache/cache.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ===============================
// CACHE INTERFACE
// ===============================

// Cache stores opaque byte values with a TTL
type Cache interface {
	// Basic operations
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeletePattern(ctx context.Context, pattern string) error

	// SetNX stores value only when key is absent and reports whether it did
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	// Cache management
	Stats(ctx context.Context) (*CacheStats, error)
	Health(ctx context.Context) error
	Close() error
}

// CacheStats represents cache statistics
type CacheStats struct {
	Provider string        `json:"provider"`
	Hits     int64         `json:"hits"`
	Misses   int64         `json:"misses"`
	Sets     int64         `json:"sets"`
	Deletes  int64         `json:"deletes"`
	Keys     int64         `json:"keys"`
	HitRatio float64       `json:"hit_ratio"`
	Uptime   time.Duration `json:"uptime"`
}

// ===============================
// CACHE CONFIGURATION
// ===============================

// Config holds cache configuration
type Config struct {
	Provider        string        `json:"provider" yaml:"provider"` // "memory", "redis"
	TTL             time.Duration `json:"ttl" yaml:"ttl"`
	MaxKeys         int           `json:"max_keys" yaml:"max_keys"`
	CleanupInterval time.Duration `json:"cleanup_interval" yaml:"cleanup_interval"`

	// Redis configuration
	RedisURL string `json:"redis_url" yaml:"redis_url"`
	PoolSize int    `json:"pool_size" yaml:"pool_size"`
}

// DefaultConfig returns a default cache configuration
func DefaultConfig() *Config {
	return &Config{
		Provider:        "memory",
		TTL:             5 * time.Minute,
		MaxKeys:         10000,
		CleanupInterval: time.Minute,
		PoolSize:        10,
	}
}

// ===============================
// FACTORY FUNCTION
// ===============================

// NewCache creates a new cache instance based on configuration
func NewCache(config *Config, logger *zap.Logger) (Cache, error) {
	if config == nil {
		config = DefaultConfig()
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	switch strings.ToLower(config.Provider) {
	case "redis":
		return NewRedisCache(config, logger)
	case "memory", "":
		logger.Info("Using in-memory cache")
		return NewMemoryCache(config, logger), nil
	default:
		return nil, fmt.Errorf("unsupported cache provider: %s", config.Provider)
	}
}

// ===============================
// JSON HELPERS
// ===============================

// GetJSON decodes a cached JSON value into dst and reports whether it was found
func GetJSON(ctx context.Context, c Cache, key string, dst interface{}) bool {
	raw, ok := c.Get(ctx, key)
	if !ok {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}

// SetJSON encodes value as JSON and stores it
func SetJSON(ctx context.Context, c Cache, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return c.Set(ctx, key, raw, ttl)
}

// Loader caches the results of expensive reads
type Loader struct {
	cache  Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewLoader creates a read-through loader
func NewLoader(cache Cache, ttl time.Duration, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{cache: cache, ttl: ttl, logger: logger}
}

// Load returns the cached value for key, or calls fn and caches its result.
// Cache failures are logged and never fail the read.
func Load[T any](ctx context.Context, l *Loader, key string, fn func() (T, error)) (T, error) {
	var cached T
	if l != nil && l.cache != nil && GetJSON(ctx, l.cache, key, &cached) {
		l.logger.Debug("Cache hit", zap.String("key", key))
		return cached, nil
	}

	result, err := fn()
	if err != nil {
		return result, err
	}

	if l != nil && l.cache != nil {
		if cacheErr := SetJSON(ctx, l.cache, key, result, l.ttl); cacheErr != nil {
			l.logger.Warn("Failed to cache result",
				zap.String("key", key),
				zap.Error(cacheErr),
			)
		}
	}

	return result, nil
}

// ===============================
// UTILITY FUNCTIONS
// ===============================

// matchPattern performs simple wildcard pattern matching
func matchPattern(str, pattern string) bool {
	if pattern == "*" {
		return true
	}

	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(str, strings.TrimSuffix(pattern, "*"))
	}

	if strings.HasPrefix(pattern, "*") {
		return strings.HasSuffix(str, strings.TrimPrefix(pattern, "*"))
	}

	return str == pattern
}
