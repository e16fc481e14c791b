package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterAllowsWithinLimit(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute, time.Minute)

	allowed, remaining, _ := rl.Check("1.2.3.4")
	assert.True(t, allowed)
	assert.Equal(t, 3, remaining)

	rl.Record("1.2.3.4", false)
	allowed, remaining, _ = rl.Check("1.2.3.4")
	assert.True(t, allowed)
	assert.Equal(t, 2, remaining)
}

func TestRateLimiterLocksAfterMaxAttempts(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute, time.Minute)

	for i := 0; i < 3; i++ {
		rl.Record("1.2.3.4", false)
	}

	allowed, remaining, lockDuration := rl.Check("1.2.3.4")
	assert.False(t, allowed)
	assert.Equal(t, 0, remaining)
	assert.Greater(t, lockDuration, time.Duration(0))

	// Other clients are unaffected
	allowed, _, _ = rl.Check("5.6.7.8")
	assert.True(t, allowed)
}

func TestRateLimiterSuccessClearsWindow(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute, time.Minute)

	rl.Record("1.2.3.4", false)
	rl.Record("1.2.3.4", false)
	rl.Record("1.2.3.4", true)

	allowed, remaining, _ := rl.Check("1.2.3.4")
	assert.True(t, allowed)
	assert.Equal(t, 3, remaining)
}

func TestRateLimiterLockExpires(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute, 10*time.Millisecond)

	rl.Record("1.2.3.4", false)
	allowed, _, _ := rl.Check("1.2.3.4")
	assert.False(t, allowed)

	time.Sleep(20 * time.Millisecond)

	allowed, remaining, _ := rl.Check("1.2.3.4")
	assert.True(t, allowed)
	assert.Equal(t, 1, remaining)
}

func TestRateLimiterWindowExpires(t *testing.T) {
	rl := NewRateLimiter(2, 10*time.Millisecond, time.Minute)

	rl.Record("1.2.3.4", false)
	time.Sleep(20 * time.Millisecond)

	allowed, remaining, _ := rl.Check("1.2.3.4")
	assert.True(t, allowed)
	assert.Equal(t, 2, remaining)
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter(2, 10*time.Millisecond, 10*time.Millisecond)

	rl.Record("1.2.3.4", false)
	rl.Record("5.6.7.8", false)
	rl.Record("5.6.7.8", false)

	time.Sleep(20 * time.Millisecond)
	rl.cleanup()

	rl.mu.RLock()
	defer rl.mu.RUnlock()
	assert.Empty(t, rl.windows)
}

func TestFormatRateLimitError(t *testing.T) {
	msg := formatRateLimitError(90 * time.Second)
	assert.Contains(t, msg, "1 minute(s)")
	assert.Contains(t, msg, "30 second(s)")

	msg = formatRateLimitError(45 * time.Second)
	assert.Contains(t, msg, "45 second(s)")
	assert.NotContains(t, msg, "minute")
}
