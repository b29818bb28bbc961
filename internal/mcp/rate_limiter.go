package mcp

import (
	"sync"
	"time"
)

// RateLimiter implements a simple token bucket rate limiter
type RateLimiter struct {
	mu         sync.Mutex
	rate       int // requests per minute
	tokens     int
	maxTokens  int // burst capacity
	lastUpdate time.Time
}

// NewRateLimiter creates a rate limiter allowing ratePerMinute
// requests with a burst of twice that.
func NewRateLimiter(ratePerMinute int) *RateLimiter {
	return &RateLimiter{
		rate:       ratePerMinute,
		tokens:     ratePerMinute,
		maxTokens:  ratePerMinute * 2,
		lastUpdate: time.Now(),
	}
}

// Allow reports whether a request may proceed, consuming a token.
func (r *RateLimiter) Allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	refill := int(now.Sub(r.lastUpdate).Minutes() * float64(r.rate))
	if refill > 0 {
		r.tokens = min(r.tokens+refill, r.maxTokens)
		r.lastUpdate = now
	}

	if r.tokens > 0 {
		r.tokens--
		return true
	}
	return false
}
