package ratelimit

import (
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/atomic"
)

type RateLimit interface {
	Allow(addr string) bool
}

type windowData struct {
	count       int
	windowStart time.Time
}

type FixedWindowLimiter struct {
	maxRequests int
	window      time.Duration
	requests    map[string]*windowData
	mutex       sync.Mutex

	allowed atomic.Int64
	denied  atomic.Int64
}

func New(maxRequests int, interval time.Duration) *FixedWindowLimiter {
	return &FixedWindowLimiter{
		maxRequests: maxRequests,
		window:      interval,
		requests:    make(map[string]*windowData),
	}
}

func (rl *FixedWindowLimiter) Allow(addr string) bool {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := time.Now()
	wd := rl.requests[addr]

	// no data yet, or the window has rolled over
	if wd == nil || now.Sub(wd.windowStart) > rl.window {
		if rl.maxRequests == 0 {
			rl.denied.Inc()
			return false
		}

		rl.requests[addr] = &windowData{count: 1, windowStart: now}
		rl.allowed.Inc()
		return true
	}

	if wd.count >= rl.maxRequests {
		rl.denied.Inc()
		return false
	}
	wd.count++
	rl.allowed.Inc()

	return true
}

// Stats returns how many requests were allowed and denied so far.
func (rl *FixedWindowLimiter) Stats() (allowed, denied int64) {
	return rl.allowed.Load(), rl.denied.Load()
}

// Middleware enforces the limiter per client address.
func Middleware(rl RateLimit) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			addr := r.RemoteAddr
			if host, _, err := net.SplitHostPort(addr); err == nil {
				addr = host
			}
			if !rl.Allow(addr) {
				http.Error(w, "Too many requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
