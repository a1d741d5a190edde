package utils

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedItem struct {
	Name string `json:"name"`
}

func TestCacheJSONRedis(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })

	c := NewCache(rc)
	c.SetJSON(ctx, "cache:test", []cachedItem{{Name: "a"}}, 0)
	assert.Equal(t, time.Hour, mr.TTL("cache:test"))

	var out []cachedItem
	require.True(t, c.GetJSON(ctx, "cache:test", &out))
	assert.Equal(t, []cachedItem{{Name: "a"}}, out)

	c.Invalidate(ctx, "cache:test")
	assert.False(t, c.GetJSON(ctx, "cache:test", &out))
}

func TestCacheInMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewCache(nil)

	c.SetBytes(ctx, "k", []byte("v"), 20*time.Millisecond)
	b, ok := c.GetBytes(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "v", string(b))

	time.Sleep(40 * time.Millisecond)
	_, ok = c.GetBytes(ctx, "k")
	assert.False(t, ok)
}

func TestCacheGenerationRedis(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })
	c := NewCache(rc)

	gen, ok := c.Generation(ctx, "cache:gen")
	require.True(t, ok)
	assert.Zero(t, gen)

	next, ok := c.Bump(ctx, "cache:gen")
	require.True(t, ok)
	assert.Equal(t, int64(1), next)
	gen, ok = c.Generation(ctx, "cache:gen")
	require.True(t, ok)
	assert.Equal(t, int64(1), gen)

	mr.Close()
	_, ok = c.Generation(ctx, "cache:gen")
	assert.False(t, ok)
}

func TestCacheGenerationInMemory(t *testing.T) {
	ctx := context.Background()
	c := NewCache(nil)

	gen, ok := c.Generation(ctx, "g")
	require.True(t, ok)
	assert.Zero(t, gen)
	c.Bump(ctx, "g")
	c.Bump(ctx, "g")
	gen, _ = c.Generation(ctx, "g")
	assert.Equal(t, int64(2), gen)
}

func TestCacheInMemoryDropsExpiredEntriesOnWrite(t *testing.T) {
	ctx := context.Background()
	c := NewCache(nil)

	c.SetBytes(ctx, "old", []byte("v"), 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	c.SetBytes(ctx, "new", []byte("v"), time.Minute)

	c.mu.RLock()
	defer c.mu.RUnlock()
	assert.NotContains(t, c.mem, "old")
	assert.Contains(t, c.mem, "new")
}
