package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time { return f.t }

func newTestCache(clock *fakeClock) *memoryCache {
	cfg := DefaultConfig()
	cfg.CleanupInterval = 0
	cfg.MaxKeys = 2
	return newMemoryCache(cfg, zap.NewNop(), clock.Now)
}

func TestMemoryCacheExpiry(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	c := newTestCache(clock)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "missions:open:EVENT", []byte("[]"), time.Minute))

	v, ok := c.Get(ctx, "missions:open:EVENT")
	assert.True(t, ok)
	assert.Equal(t, []byte("[]"), v)

	clock.t = clock.t.Add(2 * time.Minute)
	_, ok = c.Get(ctx, "missions:open:EVENT")
	assert.False(t, ok)
}

func TestMemoryCacheSetNX(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 23, 30, 0, 0, time.UTC)}
	c := newTestCache(clock)
	ctx := context.Background()

	ok, err := c.SetNX(ctx, "lock:materialize", []byte("a"), 10*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.SetNX(ctx, "lock:materialize", []byte("b"), 10*time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "held lock must not be taken twice")

	clock.t = clock.t.Add(11 * time.Minute)
	ok, err = c.SetNX(ctx, "lock:materialize", []byte("c"), 10*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "expired lock can be taken again")
}

func TestMemoryCacheDeletePatternAndEviction(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)}
	c := newTestCache(clock)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "missions:open:EVENT", []byte("1"), 0))
	clock.t = clock.t.Add(time.Second)
	require.NoError(t, c.Set(ctx, "missions:open:SCHEDULED", []byte("2"), 0))
	clock.t = clock.t.Add(time.Second)
	require.NoError(t, c.Set(ctx, "other", []byte("3"), 0))

	// capacity is two, so the oldest entry was evicted
	_, ok := c.Get(ctx, "missions:open:EVENT")
	assert.False(t, ok)

	require.NoError(t, c.DeletePattern(ctx, "missions:*"))
	_, ok = c.Get(ctx, "missions:open:SCHEDULED")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "other")
	assert.True(t, ok)

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Keys)
	assert.Equal(t, "memory", stats.Provider)
}

func TestLoadCachesResult(t *testing.T) {
	c := NewMemoryCache(&Config{TTL: time.Minute, MaxKeys: 10}, zap.NewNop())
	defer c.Close()
	loader := NewLoader(c, time.Minute, zap.NewNop())
	ctx := context.Background()

	calls := 0
	fn := func() ([]string, error) {
		calls++
		return []string{"tumbler"}, nil
	}

	first, err := Load(ctx, loader, "k", fn)
	require.NoError(t, err)
	second, err := Load(ctx, loader, "k", fn)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestLoadDoesNotCacheErrors(t *testing.T) {
	c := NewMemoryCache(&Config{TTL: time.Minute, MaxKeys: 10}, zap.NewNop())
	defer c.Close()
	loader := NewLoader(c, time.Minute, nil)
	ctx := context.Background()

	_, err := Load(ctx, loader, "k", func() (int, error) { return 0, errors.New("db down") })
	require.Error(t, err)

	v, err := Load(ctx, loader, "k", func() (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestNewCacheRejectsUnknownProvider(t *testing.T) {
	_, err := NewCache(&Config{Provider: "memcached"}, nil)
	assert.Error(t, err)
}

func TestMatchPattern(t *testing.T) {
	assert.True(t, matchPattern("missions:open:EVENT", "missions:*"))
	assert.True(t, matchPattern("lock:close", "*:close"))
	assert.False(t, matchPattern("lock:close", "missions:*"))
	assert.True(t, matchPattern("x", "*"))
}
