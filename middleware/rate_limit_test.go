package middleware

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterLocksAfterMaxFailures(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute, time.Minute)
	ip := "10.0.0.1"

	assert.True(t, rl.Allowed(ip))
	rl.RecordFailure(ip)
	rl.RecordFailure(ip)
	assert.True(t, rl.Allowed(ip))

	rl.RecordFailure(ip)
	assert.False(t, rl.Allowed(ip))
}

func TestRateLimiterTracksIPsSeparately(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute, time.Minute)

	rl.RecordFailure("10.0.0.1")
	rl.RecordFailure("10.0.0.1")
	assert.False(t, rl.Allowed("10.0.0.1"))
	assert.True(t, rl.Allowed("10.0.0.2"))
}

func TestRateLimiterResetClearsAttempts(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute, time.Minute)
	ip := "10.0.0.1"

	rl.RecordFailure(ip)
	rl.RecordFailure(ip)
	assert.False(t, rl.Allowed(ip))

	rl.Reset(ip)
	assert.True(t, rl.Allowed(ip))
}

// Exercises simultaneous logins from one IP; run with -race.
func TestRateLimiterConcurrentAccess(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute, time.Millisecond)
	ip := "10.0.0.1"

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				rl.Allowed(ip)
				rl.RecordFailure(ip)
				rl.Allowed(ip)
			}
		}()
	}
	wg.Wait()

	// The IP ends up locked or freshly unlocked, never in a torn state
	rl.Reset(ip)
	assert.True(t, rl.Allowed(ip))
}

func TestRateLimiterCleanupDropsExpiredWindows(t *testing.T) {
	rl := NewRateLimiter(5, time.Millisecond, time.Millisecond)
	rl.RecordFailure("10.0.0.1")

	time.Sleep(5 * time.Millisecond)
	rl.Cleanup()

	rl.mu.RLock()
	defer rl.mu.RUnlock()
	assert.Empty(t, rl.attempts)
}
