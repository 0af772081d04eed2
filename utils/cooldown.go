package utils

import (
	"context"
	"sync"
	"time"
)

// Redis-backed throttles with an in-memory fallback for single-instance
// deployments (and tests). The memory maps are swept lazily on access.

type memEntry struct {
	count     int
	expiresAt time.Time
}

var (
	memThrottle   = map[string]memEntry{}
	memThrottleMu sync.Mutex
)

// CooldownTrySet marks key as cooling down for the given duration. Returns
// true when the key was free, false while a previous cooldown is active.
func CooldownTrySet(key string, cooldown time.Duration) bool {
	if cooldown <= 0 {
		return true
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		ok, err := rc.SetNX(ctx, "cooldown:"+key, "1", cooldown).Result()
		if err == nil {
			return ok
		}
		// fall through to memory on Redis error
	}
	memThrottleMu.Lock()
	defer memThrottleMu.Unlock()
	if e, ok := memThrottle["cooldown:"+key]; ok && time.Now().Before(e.expiresAt) {
		return false
	}
	memThrottle["cooldown:"+key] = memEntry{expiresAt: time.Now().Add(cooldown)}
	return true
}

// FixedWindowAllow increments the counter for key within the current window
// and reports whether the count is still within limit. The first hit of a
// window sets the expiry; subsequent hits ride on it.
func FixedWindowAllow(key string, limit int, window time.Duration) bool {
	if limit <= 0 {
		return true
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		n, err := rc.Incr(ctx, "window:"+key).Result()
		if err == nil {
			if n == 1 {
				_ = rc.Expire(ctx, "window:"+key, window).Err()
			}
			return n <= int64(limit)
		}
	}
	memThrottleMu.Lock()
	defer memThrottleMu.Unlock()
	k := "window:" + key
	e, ok := memThrottle[k]
	if !ok || time.Now().After(e.expiresAt) {
		memThrottle[k] = memEntry{count: 1, expiresAt: time.Now().Add(window)}
		return true
	}
	e.count++
	memThrottle[k] = e
	return e.count <= limit
}

// ResetThrottles clears the in-memory fallback state. Intended for tests.
func ResetThrottles() {
	memThrottleMu.Lock()
	memThrottle = map[string]memEntry{}
	memThrottleMu.Unlock()
}
