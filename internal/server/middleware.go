package server

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/hyperjump/mitate/internal/config"
)

// rateLimiter enforces a per-client token bucket keyed by remote IP. Idle
// client buckets are dropped after an hour.
type rateLimiter struct {
	mu       sync.Mutex
	clients  map[string]*clientLimiter
	limit    rate.Limit
	burst    int
	lastSeen func() time.Time
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newRateLimiter(cfg config.RateLimitConfig) *rateLimiter {
	rl := &rateLimiter{
		clients:  make(map[string]*clientLimiter),
		limit:    rate.Limit(cfg.RequestsPerSecond),
		burst:    cfg.Burst,
		lastSeen: time.Now,
	}
	if rl.limit <= 0 {
		rl.limit = 10
	}
	if rl.burst <= 0 {
		rl.burst = 20
	}
	return rl
}

func (rl *rateLimiter) allow(key string) bool {
	now := rl.lastSeen()
	rl.mu.Lock()
	defer rl.mu.Unlock()

	c, ok := rl.clients[key]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[key] = c
	}
	c.lastSeen = now

	if len(rl.clients) > 1024 {
		rl.evictIdle(now)
	}
	return c.limiter.Allow()
}

func (rl *rateLimiter) evictIdle(now time.Time) {
	for key, c := range rl.clients {
		if now.Sub(c.lastSeen) > time.Hour {
			delete(rl.clients, key)
		}
	}
}

func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			key = r.RemoteAddr
		}
		if !rl.allow(key) {
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
