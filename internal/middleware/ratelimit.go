package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

type visitor struct {
	count       int
	windowStart time.Time
}

// RateLimiter is a fixed-window per-client limiter. Clients are keyed by IP,
// so it should sit behind chi's RealIP middleware.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    int
	window   time.Duration
	now      func() time.Time
}

// NewRateLimiter starts a janitor that evicts idle clients until ctx is done.
func NewRateLimiter(ctx context.Context, limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}

	go func() {
		ticker := time.NewTicker(window)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.evict()
			}
		}
	}()

	return rl
}

func (rl *RateLimiter) evict() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, v := range rl.visitors {
		if rl.now().Sub(v.windowStart) > rl.window {
			delete(rl.visitors, key)
		}
	}
}

// allow records one request for key and reports whether it is within the
// limit, plus the time until the window resets.
func (rl *RateLimiter) allow(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	v, ok := rl.visitors[key]
	if !ok || now.Sub(v.windowStart) > rl.window {
		rl.visitors[key] = &visitor{count: 1, windowStart: now}
		return true, 0
	}

	v.count++
	return v.count <= rl.limit, rl.window - now.Sub(v.windowStart)
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, retryAfter := rl.allow(clientKey(r))
		if !ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())+1))
			writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests. Please try again later.", r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
