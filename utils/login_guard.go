package utils

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

func loginKey(parts ...string) string {
	return "login:" + strings.Join(parts, ":")
}

type loginRecord struct {
	failures    int
	windowEnds  time.Time
	bannedUntil time.Time
}

// LoginGuard counts failed admin-key attempts per IP and bans an IP for a while once it crosses MaxFailures.
// A zero or negative MaxFailures disables the guard.
type LoginGuard struct {
	rc          *redis.Client
	maxFailures int
	window      time.Duration
	ban         time.Duration

	mu  sync.Mutex
	mem map[string]*loginRecord
	now func() time.Time
}

func NewLoginGuard(rc *redis.Client, maxFailures int, window, ban time.Duration) *LoginGuard {
	if window <= 0 {
		window = 15 * time.Minute
	}
	if ban <= 0 {
		ban = 15 * time.Minute
	}
	return &LoginGuard{
		rc:          rc,
		maxFailures: maxFailures,
		window:      window,
		ban:         ban,
		mem:         map[string]*loginRecord{},
		now:         time.Now,
	}
}

func (g *LoginGuard) enabled() bool {
	return g != nil && g.maxFailures > 0
}

// IsBanned checks temporary ban status for IP.
func (g *LoginGuard) IsBanned(ctx context.Context, ip string) bool {
	if !g.enabled() {
		return false
	}
	if g.rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer cancel()
		exists, err := g.rc.Exists(ctx, loginKey("ban", ip)).Result()
		if err != nil {
			return false
		}
		return exists > 0
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	rec, ok := g.mem[ip]
	return ok && g.now().Before(rec.bannedUntil)
}

// RecordFailure increments the failure count for IP and reports whether the IP is now banned.
func (g *LoginGuard) RecordFailure(ctx context.Context, ip string) bool {
	if !g.enabled() {
		return false
	}
	if g.rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer cancel()
		key := loginKey("fail", ip)
		n, err := g.rc.Incr(ctx, key).Result()
		if err != nil {
			return false // fail-open
		}
		if n == 1 {
			_ = g.rc.Expire(ctx, key, g.window).Err()
		}
		if int(n) < g.maxFailures {
			return false
		}
		pipe := g.rc.TxPipeline()
		pipe.Set(ctx, loginKey("ban", ip), "1", g.ban)
		pipe.Del(ctx, key)
		if _, err := pipe.Exec(ctx); err != nil {
			Sugar.Warnf("login ban for %s not stored: %v", ip, err)
			return false
		}
		return true
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	g.cleanupExpiredLocked(now)
	rec, ok := g.mem[ip]
	if !ok || now.After(rec.windowEnds) {
		rec = &loginRecord{windowEnds: now.Add(g.window), bannedUntil: bannedUntilOf(rec)}
		g.mem[ip] = rec
	}
	rec.failures++
	if rec.failures < g.maxFailures {
		return false
	}
	rec.failures = 0
	rec.bannedUntil = now.Add(g.ban)
	return true
}

// Reset clears the failure count after a successful login.
func (g *LoginGuard) Reset(ctx context.Context, ip string) {
	if !g.enabled() {
		return
	}
	if g.rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer cancel()
		_ = g.rc.Del(ctx, loginKey("fail", ip)).Err()
		return
	}
	g.mu.Lock()
	delete(g.mem, ip)
	g.mu.Unlock()
}

// cleanupExpiredLocked drops records whose counting window and ban have both ended.
func (g *LoginGuard) cleanupExpiredLocked(now time.Time) {
	for ip, rec := range g.mem {
		if now.After(rec.windowEnds) && !now.Before(rec.bannedUntil) {
			delete(g.mem, ip)
		}
	}
}

func bannedUntilOf(rec *loginRecord) time.Time {
	if rec == nil {
		return time.Time{}
	}
	return rec.bannedUntil
}
