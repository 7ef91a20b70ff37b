package http

import (
	"sync"
	"time"
)

// rateLimiter caps how many websocket connections are accepted per minute.
// A zero limit disables the cap.
type rateLimiter struct {
	mu      sync.Mutex
	limit   int
	counter int
}

func newRateLimiter(limit int) *rateLimiter {
	r := &rateLimiter{limit: limit}
	if limit > 0 {
		go r.resetLoop()
	}
	return r
}

func (r *rateLimiter) allow() bool {
	if r == nil || r.limit <= 0 {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counter++
	return r.counter <= r.limit
}

func (r *rateLimiter) resetLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		r.mu.Lock()
		r.counter = 0
		r.mu.Unlock()
	}
}
