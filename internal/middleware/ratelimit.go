package middleware

import (
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/templui/doin/internal/auth"
)

// RateLimiter is a sliding-window counter per client key.
type RateLimiter struct {
	mu     sync.Mutex
	hits   map[string][]time.Time
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewRateLimiter allows limit requests per window for each key. Call
// Cleanup periodically to drop idle keys.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		hits:   make(map[string][]time.Time),
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cutoff := now.Add(-rl.window)
	recent := slices.DeleteFunc(rl.hits[key], func(t time.Time) bool {
		return !t.After(cutoff)
	})

	if len(recent) >= rl.limit {
		rl.hits[key] = recent
		return false
	}
	rl.hits[key] = append(recent, now)
	return true
}

// Cleanup forgets keys idle for two windows and returns how many it dropped.
func (rl *RateLimiter) Cleanup() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-2 * rl.window)
	dropped := 0
	for key, hits := range rl.hits {
		if len(hits) == 0 || !hits[len(hits)-1].After(cutoff) {
			delete(rl.hits, key)
			dropped++
		}
	}
	return dropped
}

// RateLimit guards handlers that hit the remote store on every call
// (submissions, exports). Signed-in participants are limited per account,
// everyone else per client IP.
func RateLimit(limiter *RateLimiter) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			key := "ip:" + getClientIP(r)
			if id := auth.FromContext(r.Context()); id != nil && id.TwitterID != "" {
				key = "tw:" + id.TwitterID
			}

			if !limiter.Allow(key) {
				slog.Warn("rate limit exceeded", "key", key, "path", r.URL.Path)
				http.Error(w, "Too many requests. Please try again later.", http.StatusTooManyRequests)
				return
			}
			next(w, r)
		}
	}
}

// getClientIP prefers proxy headers over RemoteAddr.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}
