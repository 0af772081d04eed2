package middleware

import (
	"fmt"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/linklet/linklet/config"
	"github.com/linklet/linklet/httperr"
	"github.com/linklet/linklet/utils"
)

type rateLimiter struct {
	limiter *rate.Limiter
	expires time.Time
	mu      sync.Mutex
}

var (
	limiters   = map[string]*rateLimiter{}
	limitersMu sync.Mutex
)

// RateLimitMiddleware applies a per-IP token bucket across the whole API group.
func RateLimitMiddleware() gin.HandlerFunc {
	cfg := config.Get()
	perMinute := cfg.RateLimitPerMinute
	if perMinute < 1 {
		perMinute = 1
	}
	r := rate.Every(time.Minute / time.Duration(perMinute))
	burst := perMinute / 2
	if burst < 1 {
		burst = 1
	}

	return func(ctx *gin.Context) {
		ip := ctx.ClientIP()
		limiter := getLimiter(ip, r, burst)

		limiter.mu.Lock()
		allowed := limiter.limiter.Allow()
		limiter.mu.Unlock()

		if !allowed {
			utils.Fail(ctx, httperr.TooManyRequests("rate limit exceeded"))
			return
		}

		ctx.Next()
	}
}

// CreationLimit bounds how often an authenticated user may create content
// of the given kind per minute, using a fixed window counter. Must run
// after AuthRequired.
func CreationLimit(kind string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		cfg := config.Get()
		uid := ctx.GetUint(ContextUserIDKey)
		key := fmt.Sprintf("create:%s:%d", kind, uid)
		if !utils.FixedWindowAllow(key, cfg.CreateLimitPerMinute, time.Minute) {
			utils.Fail(ctx, httperr.TooManyRequests("too many requests, slow down"))
			return
		}
		ctx.Next()
	}
}

func getLimiter(key string, limit rate.Limit, burst int) *rateLimiter {
	limitersMu.Lock()
	defer limitersMu.Unlock()

	cleanupExpiredLimitersLocked()

	if limiter, ok := limiters[key]; ok {
		limiter.expires = time.Now().Add(5 * time.Minute)
		return limiter
	}

	limiter := &rateLimiter{
		limiter: rate.NewLimiter(limit, burst),
		expires: time.Now().Add(5 * time.Minute),
	}
	limiters[key] = limiter
	return limiter
}

func cleanupExpiredLimitersLocked() {
	now := time.Now()
	for key, limiter := range limiters {
		if now.After(limiter.expires) {
			delete(limiters, key)
		}
	}
}
