package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/linklet/linklet/config"
)

func TestCooldownTrySetMemoryFallback(t *testing.T) {
	config.Override(config.AppConfig{JWTSecret: "test-secret"})
	ResetThrottles()

	assert.True(t, CooldownTrySet("code:a@example.com", time.Minute))
	assert.False(t, CooldownTrySet("code:a@example.com", time.Minute), "second hit within the window")
	assert.True(t, CooldownTrySet("code:b@example.com", time.Minute), "keys are independent")

	ResetThrottles()
	assert.True(t, CooldownTrySet("code:a@example.com", time.Minute))
}

func TestCooldownDisabledWhenNonPositive(t *testing.T) {
	ResetThrottles()
	assert.True(t, CooldownTrySet("k", 0))
	assert.True(t, CooldownTrySet("k", 0))
	assert.True(t, CooldownTrySet("k", -time.Second))
}

func TestFixedWindowAllowMemoryFallback(t *testing.T) {
	config.Override(config.AppConfig{JWTSecret: "test-secret"})
	ResetThrottles()

	for i := 0; i < 3; i++ {
		assert.True(t, FixedWindowAllow("create:post:1", 3, time.Minute))
	}
	assert.False(t, FixedWindowAllow("create:post:1", 3, time.Minute), "fourth hit exceeds the limit")
	assert.True(t, FixedWindowAllow("create:post:2", 3, time.Minute), "per-user windows")

	// non-positive limit disables the throttle
	assert.True(t, FixedWindowAllow("anything", 0, time.Minute))
	assert.True(t, FixedWindowAllow("anything", -1, time.Minute))
}
