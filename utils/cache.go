package utils

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// Default cache ttl set to 3600 seconds
	defaultCacheTTL = time.Hour
)

type memEntry struct {
	value     []byte
	expiresAt time.Time
}

// Cache stores serialized responses in Redis, or in process memory when Redis is absent.
type Cache struct {
	rc   *redis.Client
	mu   sync.RWMutex
	mem  map[string]memEntry
	gens map[string]int64
}

func NewCache(rc *redis.Client) *Cache {
	return &Cache{rc: rc, mem: map[string]memEntry{}, gens: map[string]int64{}}
}

// GetBytes returns cached bytes for a key.
func (c *Cache) GetBytes(ctx context.Context, key string) ([]byte, bool) {
	if c.rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		b, err := c.rc.Get(ctx, key).Bytes()
		if err != nil {
			Sugar.Debugf("cache get miss key=%s err=%v", key, err)
			return nil, false
		}
		return b, true
	}
	c.mu.RLock()
	e, ok := c.mem[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(e.expiresAt) {
		return nil, false
	}
	return e.value, true
}

// SetBytes stores bytes; a non-positive ttl means the default TTL.
func (c *Cache) SetBytes(ctx context.Context, key string, b []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if c.rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := c.rc.Set(ctx, key, b, ttl).Err(); err != nil {
			Sugar.Warnf("cache set failed key=%s err=%v", key, err)
		}
		return
	}
	now := time.Now()
	c.mu.Lock()
	c.cleanupExpiredLocked(now)
	c.mem[key] = memEntry{value: b, expiresAt: now.Add(ttl)}
	c.mu.Unlock()
}

func (c *Cache) cleanupExpiredLocked(now time.Time) {
	for k, e := range c.mem {
		if now.After(e.expiresAt) {
			delete(c.mem, k)
		}
	}
}

// GetJSON unmarshals a cached value into out. A corrupt entry counts as a miss.
func (c *Cache) GetJSON(ctx context.Context, key string, out interface{}) bool {
	b, ok := c.GetBytes(ctx, key)
	if !ok {
		return false
	}
	return json.Unmarshal(b, out) == nil
}

// SetJSON marshals v and stores JSON bytes.
func (c *Cache) SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.SetBytes(ctx, key, b, ttl)
}

// Invalidate removes the given keys.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if c.rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := c.rc.Del(ctx, keys...).Err(); err != nil {
			Sugar.Warnf("cache invalidate failed keys=%v err=%v", keys, err)
		}
		return
	}
	c.mu.Lock()
	for _, k := range keys {
		delete(c.mem, k)
	}
	c.mu.Unlock()
}

// Generation reads the counter stored under key; a missing counter is generation 0.
// ok is false when the counter cannot be read, in which case callers should bypass the cache.
func (c *Cache) Generation(ctx context.Context, key string) (gen int64, ok bool) {
	if c.rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		n, err := c.rc.Get(ctx, key).Int64()
		if errors.Is(err, redis.Nil) {
			return 0, true
		}
		if err != nil {
			Sugar.Debugf("cache generation read failed key=%s err=%v", key, err)
			return 0, false
		}
		return n, true
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gens[key], true
}

// Bump advances the counter stored under key and returns the new generation.
// Values cached under an older generation are never read again.
func (c *Cache) Bump(ctx context.Context, key string) (int64, bool) {
	if c.rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		n, err := c.rc.Incr(ctx, key).Result()
		if err != nil {
			Sugar.Warnf("cache generation bump failed key=%s err=%v", key, err)
			return 0, false
		}
		return n, true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[key]++
	return c.gens[key], true
}
