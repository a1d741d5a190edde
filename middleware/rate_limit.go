package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/cppla/studyshare/utils"
)

const limiterIdle = 5 * time.Minute

type rateLimiter struct {
	limiter *rate.Limiter
	expires time.Time
}

// ipLimiters holds one token bucket per client IP.
type ipLimiters struct {
	mu       sync.Mutex
	limiters map[string]*rateLimiter
	limit    rate.Limit
	burst    int
	now      func() time.Time
}

// RateLimitMiddleware applies a simple IP based rate limiter using a token bucket.
// Each call gets its own buckets, so route groups can be limited independently.
func RateLimitMiddleware(perMinute int) gin.HandlerFunc {
	l := newIPLimiters(perMinute)
	return func(ctx *gin.Context) {
		if !l.allow(ctx.ClientIP()) {
			utils.Error(ctx, http.StatusTooManyRequests, 42901, "rate limit exceeded")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

func newIPLimiters(perMinute int) *ipLimiters {
	return &ipLimiters{
		limiters: map[string]*rateLimiter{},
		limit:    rate.Every(time.Minute / time.Duration(max(perMinute, 1))),
		burst:    max(perMinute/2, 1),
		now:      time.Now,
	}
}

func (l *ipLimiters) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.cleanupExpiredLocked(now)

	limiter, ok := l.limiters[key]
	if !ok {
		limiter = &rateLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[key] = limiter
	}
	limiter.expires = now.Add(limiterIdle)
	return limiter.limiter.AllowN(now, 1)
}

func (l *ipLimiters) cleanupExpiredLocked(now time.Time) {
	for key, limiter := range l.limiters {
		if now.After(limiter.expires) {
			delete(l.limiters, key)
		}
	}
}
