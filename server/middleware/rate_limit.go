package middleware

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter enforces a per-key token bucket. Chat routes key it by
// user ID so one student's burst cannot starve the model for others.
type RateLimiter struct {
	mu     sync.Mutex
	limits map[string]*rate.Limiter
	perMin float64
	burst  int
}

// NewRateLimiter creates a rate limiter allowing perMin requests per
// minute with the given burst.
func NewRateLimiter(perMin float64, burst int) *RateLimiter {
	if perMin <= 0 {
		perMin = 20
	}
	if burst <= 0 {
		burst = 5
	}
	return &RateLimiter{
		limits: make(map[string]*rate.Limiter),
		perMin: perMin,
		burst:  burst,
	}
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limiter, ok := rl.limits[key]; ok {
		return limiter
	}

	limiter := rate.NewLimiter(rate.Limit(rl.perMin/60.0), rl.burst)
	rl.limits[key] = limiter
	return limiter
}

// Allow checks if a request is allowed for the given key.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).Allow()
}

// AllowUser checks if a request is allowed for a user ID.
func (rl *RateLimiter) AllowUser(userID int32) bool {
	return rl.Allow(fmt.Sprintf("user:%d", userID))
}

// Wait blocks until a request is allowed or the context ends.
func (rl *RateLimiter) Wait(ctx context.Context, key string) error {
	return rl.getLimiter(key).Wait(ctx)
}
