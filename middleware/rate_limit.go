package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestWindow tracks requests from a single client
type RequestWindow struct {
	Count    int
	FirstAt  time.Time
	LockedAt time.Time
	IsLocked bool
}

// RateLimiter manages per-IP request limits over a sliding window
type RateLimiter struct {
	mu           sync.RWMutex
	windows      map[string]*RequestWindow
	maxRequests  int
	windowPeriod time.Duration
	lockDuration time.Duration
}

// Limiters for expensive endpoints
var (
	loginRateLimiter *RateLimiter
	syncRateLimiter  *RateLimiter
)

// InitRateLimiters initializes the global rate limiters
func InitRateLimiters() {
	loginRateLimiter = NewRateLimiter(5, 15*time.Minute, 30*time.Minute)
	syncRateLimiter = NewRateLimiter(10, time.Hour, 10*time.Minute)
	go loginRateLimiter.startCleanup()
	go syncRateLimiter.startCleanup()
}

// NewRateLimiter creates a new rate limiter
// maxRequests: maximum requests allowed within the window
// windowPeriod: time window for counting requests
// lockDuration: how long to lock the IP after the limit is exceeded
func NewRateLimiter(maxRequests int, windowPeriod, lockDuration time.Duration) *RateLimiter {
	return &RateLimiter{
		windows:      make(map[string]*RequestWindow),
		maxRequests:  maxRequests,
		windowPeriod: windowPeriod,
		lockDuration: lockDuration,
	}
}

// startCleanup periodically cleans up old entries
func (rl *RateLimiter) startCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	for range ticker.C {
		rl.cleanup()
	}
}

// cleanup removes expired entries
func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for ip, window := range rl.windows {
		if window.IsLocked {
			if now.Sub(window.LockedAt) > rl.lockDuration {
				delete(rl.windows, ip)
			}
		} else if now.Sub(window.FirstAt) > rl.windowPeriod {
			delete(rl.windows, ip)
		}
	}
}

// Check reports whether an IP may proceed, along with the remaining quota
// and any lockout duration left
func (rl *RateLimiter) Check(ip string) (bool, int, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	window, exists := rl.windows[ip]

	if !exists {
		return true, rl.maxRequests, 0
	}

	if window.IsLocked {
		remaining := rl.lockDuration - now.Sub(window.LockedAt)
		if remaining > 0 {
			return false, 0, remaining
		}
		// Lock expired, reset
		delete(rl.windows, ip)
		return true, rl.maxRequests, 0
	}

	if now.Sub(window.FirstAt) > rl.windowPeriod {
		delete(rl.windows, ip)
		return true, rl.maxRequests, 0
	}

	remaining := rl.maxRequests - window.Count
	if remaining <= 0 {
		return false, 0, rl.windowPeriod - now.Sub(window.FirstAt)
	}

	return true, remaining, 0
}

// Record records a request from an IP. For login limiting, a successful
// attempt clears the window.
func (rl *RateLimiter) Record(ip string, success bool) {
	if success {
		rl.mu.Lock()
		delete(rl.windows, ip)
		rl.mu.Unlock()
		return
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	window, exists := rl.windows[ip]

	if !exists || now.Sub(window.FirstAt) > rl.windowPeriod {
		window = &RequestWindow{FirstAt: now}
		rl.windows[ip] = window
	}

	window.Count++

	if window.Count >= rl.maxRequests {
		window.IsLocked = true
		window.LockedAt = now
	}
}

// GetRemaining returns the remaining quota for an IP
func (rl *RateLimiter) GetRemaining(ip string) int {
	_, remaining, _ := rl.Check(ip)
	return remaining
}

// LoginRateLimitMiddleware limits login attempts per IP
func LoginRateLimitMiddleware() gin.HandlerFunc {
	if loginRateLimiter == nil {
		InitRateLimiters()
	}

	return func(c *gin.Context) {
		// Only apply to POST requests (actual login attempts)
		if c.Request.Method != "POST" {
			c.Next()
			return
		}

		ip := c.ClientIP()
		allowed, remaining, lockDuration := loginRateLimiter.Check(ip)

		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))

		if !allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate_limited",
				"message":     formatRateLimitError(lockDuration),
				"retry_after": int(lockDuration.Seconds()),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// SyncRateLimitMiddleware limits expensive sync and report endpoints per IP
func SyncRateLimitMiddleware() gin.HandlerFunc {
	if syncRateLimiter == nil {
		InitRateLimiters()
	}

	return func(c *gin.Context) {
		ip := c.ClientIP()
		allowed, remaining, lockDuration := syncRateLimiter.Check(ip)

		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))

		if !allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate_limited",
				"message":     formatRateLimitError(lockDuration),
				"retry_after": int(lockDuration.Seconds()),
			})
			c.Abort()
			return
		}

		syncRateLimiter.Record(ip, false)
		c.Next()
	}
}

// formatRateLimitError formats the rate limit error message
func formatRateLimitError(lockDuration time.Duration) string {
	minutes := int(lockDuration.Minutes())
	seconds := int(lockDuration.Seconds()) % 60

	if minutes > 0 {
		return fmt.Sprintf("Too many requests. Please try again in %d minute(s) and %d second(s).", minutes, seconds)
	}
	return fmt.Sprintf("Too many requests. Please try again in %d second(s).", seconds)
}

// RecordLoginAttempt records a login attempt from the auth controller
func RecordLoginAttempt(ip string, success bool) {
	if loginRateLimiter == nil {
		InitRateLimiters()
	}
	loginRateLimiter.Record(ip, success)
}

// GetLoginRateLimiter returns the global login rate limiter
func GetLoginRateLimiter() *RateLimiter {
	if loginRateLimiter == nil {
		InitRateLimiters()
	}
	return loginRateLimiter
}
