package llm

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// rateLimiter is a token bucket holding at most one minute of requests.
// Tokens accrue continuously and are computed on demand, so no goroutine runs.
type rateLimiter struct {
	now      func() time.Time
	last     time.Time
	interval time.Duration
	tokens   float64
	burst    float64
	mu       sync.Mutex
}

// newRateLimiter allows requestsPerMinute calls per minute.
// A non-positive rate disables limiting and returns nil.
func newRateLimiter(requestsPerMinute int) *rateLimiter {
	if requestsPerMinute <= 0 {
		return nil
	}
	return &rateLimiter{
		now:      time.Now,
		last:     time.Now(),
		interval: time.Minute / time.Duration(requestsPerMinute),
		tokens:   float64(requestsPerMinute),
		burst:    float64(requestsPerMinute),
	}
}

// reserve takes a token and returns 0, or returns how long until one is due.
func (rl *rateLimiter) reserve() time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now := rl.now(); now.After(rl.last) {
		rl.tokens = min(rl.burst, rl.tokens+float64(now.Sub(rl.last))/float64(rl.interval))
		rl.last = now
	}
	if rl.tokens >= 1 {
		rl.tokens--
		return 0
	}
	return max(time.Duration((1-rl.tokens)*float64(rl.interval)), time.Millisecond)
}

// wait blocks until a token is available or ctx is done.
func (rl *rateLimiter) wait(ctx context.Context) error {
	if rl == nil {
		return nil
	}
	for {
		delay := rl.reserve()
		if delay == 0 {
			return nil
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("rate limiter canceled: %w", ctx.Err())
		case <-timer.C:
		}
	}
}
