package utils

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const blacklistPrefix = "jwt:blacklist:"

// TokenBlacklist remembers revoked token ids until the token would have expired anyway.
type TokenBlacklist struct {
	rc  *redis.Client
	mu  sync.RWMutex
	mem map[string]time.Time
}

func NewTokenBlacklist(rc *redis.Client) *TokenBlacklist {
	return &TokenBlacklist{rc: rc, mem: map[string]time.Time{}}
}

// Revoke stores a token id until expiration to support logout semantics.
func (b *TokenBlacklist) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	// Prefer Redis: key with TTL until token expiration
	if b.rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return b.rc.Set(ctx, blacklistPrefix+jti, "1", ttl).Err()
	}
	b.mu.Lock()
	b.mem[jti] = expiresAt
	b.mu.Unlock()
	return nil
}

// IsRevoked checks if a token was revoked before natural expiration.
func (b *TokenBlacklist) IsRevoked(ctx context.Context, jti string) bool {
	if b.rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		n, err := b.rc.Exists(ctx, blacklistPrefix+jti).Result()
		if err == nil {
			return n > 0
		}
		// fail-open on Redis errors to avoid locking the tutor out
		Sugar.Warnf("token blacklist lookup failed: %v", err)
		return false
	}
	b.mu.RLock()
	expiresAt, ok := b.mem[jti]
	b.mu.RUnlock()
	if !ok {
		return false
	}

	if time.Now().After(expiresAt) {
		b.mu.Lock()
		delete(b.mem, jti)
		b.mu.Unlock()
		return false
	}

	return true
}
