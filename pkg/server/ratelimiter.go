package server

import (
	"sync"
	"time"
)

// rateLimitState tracks request timestamps per IP
type rateLimitState struct {
	requests []int64
}

// RateLimiter implements per-IP rate limiting with a sliding window
type RateLimiter struct {
	limits            map[string]*rateLimitState
	maxRequestsPerMin int
	mu                sync.RWMutex
	cleanupInterval   time.Duration
	stopCleanup       chan struct{}
	stopOnce          sync.Once
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(maxRequestsPerMinute int) *RateLimiter {
	rl := &RateLimiter{
		limits:            make(map[string]*rateLimitState),
		maxRequestsPerMin: maxRequestsPerMinute,
		cleanupInterval:   5 * time.Minute,
		stopCleanup:       make(chan struct{}),
	}

	go rl.startCleanup()

	return rl
}

// CheckLimit checks if a request from the given IP is allowed
func (rl *RateLimiter) CheckLimit(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now().UnixMilli()

	state, exists := rl.limits[ip]
	if !exists {
		state = &rateLimitState{}
		rl.limits[ip] = state
	}

	// Sliding window: drop requests older than one minute
	validRequests := make([]int64, 0, len(state.requests))
	for _, reqTime := range state.requests {
		if now-reqTime < 60000 {
			validRequests = append(validRequests, reqTime)
		}
	}
	state.requests = validRequests

	if len(state.requests) >= rl.maxRequestsPerMin {
		return false
	}

	state.requests = append(state.requests, now)
	return true
}

// GetRetryAfter returns the number of seconds until the rate limit resets
func (rl *RateLimiter) GetRetryAfter(ip string) int {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	state, exists := rl.limits[ip]
	if !exists || len(state.requests) == 0 {
		return 0
	}

	now := time.Now().UnixMilli()
	oldestRequest := state.requests[0]

	retryAfterMs := 60000 - (now - oldestRequest)
	if retryAfterMs < 0 {
		return 0
	}

	// Round up to whole seconds
	return int((retryAfterMs + 999) / 1000)
}

func (rl *RateLimiter) startCleanup() {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanup drops IPs with no requests inside the window
func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now().UnixMilli()

	for ip, state := range rl.limits {
		validRequests := make([]int64, 0, len(state.requests))
		for _, reqTime := range state.requests {
			if now-reqTime < 60000 {
				validRequests = append(validRequests, reqTime)
			}
		}

		if len(validRequests) == 0 {
			delete(rl.limits, ip)
		} else {
			state.requests = validRequests
		}
	}
}

// Stop stops the cleanup goroutine
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopCleanup)
	})
}
