package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// loginAttempt tracks failed login attempts from an IP
type loginAttempt struct {
	Count    int
	FirstAt  time.Time
	LockedAt time.Time
	IsLocked bool
}

// RateLimiter limits repeated failed logins per client IP.
type RateLimiter struct {
	mu           sync.RWMutex
	attempts     map[string]*loginAttempt
	maxAttempts  int
	windowPeriod time.Duration
	lockDuration time.Duration
}

// NewRateLimiter creates a new rate limiter.
// maxAttempts: failed attempts allowed within the window before locking
// windowPeriod: time window for counting attempts
// lockDuration: how long the IP stays locked after exceeding the limit
func NewRateLimiter(maxAttempts int, windowPeriod, lockDuration time.Duration) *RateLimiter {
	return &RateLimiter{
		attempts:     make(map[string]*loginAttempt),
		maxAttempts:  maxAttempts,
		windowPeriod: windowPeriod,
		lockDuration: lockDuration,
	}
}

// NewLoginRateLimiter returns a limiter with the default login policy:
// 5 failures per 15 minutes locks the IP for 30 minutes.
func NewLoginRateLimiter() *RateLimiter {
	return NewRateLimiter(5, 15*time.Minute, 30*time.Minute)
}

// Allowed reports whether the IP may attempt a login right now.
// The lock is held across the whole read: RecordFailure mutates the same
// attempt struct under concurrent requests from one IP.
func (rl *RateLimiter) Allowed(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	attempt, ok := rl.attempts[ip]
	if !ok {
		return true
	}

	if attempt.IsLocked {
		if time.Since(attempt.LockedAt) > rl.lockDuration {
			delete(rl.attempts, ip)
			return true
		}
		return false
	}
	return true
}

// RecordFailure counts a failed login from an IP, locking it once the
// attempt limit is exceeded inside the window.
func (rl *RateLimiter) RecordFailure(ip string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	attempt, ok := rl.attempts[ip]
	if !ok || now.Sub(attempt.FirstAt) > rl.windowPeriod {
		rl.attempts[ip] = &loginAttempt{Count: 1, FirstAt: now}
		return
	}

	attempt.Count++
	if attempt.Count >= rl.maxAttempts {
		attempt.IsLocked = true
		attempt.LockedAt = now
	}
}

// Reset clears the attempt record for an IP after a successful login.
func (rl *RateLimiter) Reset(ip string) {
	rl.mu.Lock()
	delete(rl.attempts, ip)
	rl.mu.Unlock()
}

// Cleanup removes entries whose window and lock have both expired.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for ip, attempt := range rl.attempts {
		if attempt.IsLocked {
			if now.Sub(attempt.LockedAt) > rl.lockDuration {
				delete(rl.attempts, ip)
			}
		} else if now.Sub(attempt.FirstAt) > rl.windowPeriod {
			delete(rl.attempts, ip)
		}
	}
}

// StartCleanup runs Cleanup on a fixed interval until the process exits.
func (rl *RateLimiter) StartCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	for range ticker.C {
		rl.Cleanup()
	}
}

// LimitLogins aborts requests from locked IPs before the login handler runs.
func (rl *RateLimiter) LimitLogins() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !rl.Allowed(ip) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": fmt.Sprintf("Too many failed login attempts. Try again in %s.", rl.lockDuration),
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
