package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/dimitrije/boltstax-api/internal/metrics"
	"github.com/m1z23r/drift/pkg/drift"
	"golang.org/x/time/rate"
)

const visitorIdleTimeout = 3 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// TokenRateLimiter limits capability routes per access token, so a leaked
// link cannot be used to hammer the autosave endpoint.
type TokenRateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     rate.Limit
	burst    int
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewTokenRateLimiter(perSecond float64, burst int, m *metrics.Metrics) *TokenRateLimiter {
	return &TokenRateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate.Limit(perSecond),
		burst:    burst,
		metrics:  m,
		now:      time.Now,
	}
}

func (rl *TokenRateLimiter) limiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = rl.now()
	return v.limiter
}

// Cleanup drops limiters not used within the idle timeout and returns how
// many were removed.
func (rl *TokenRateLimiter) Cleanup() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	cutoff := rl.now().Add(-visitorIdleTimeout)
	for key, v := range rl.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(rl.visitors, key)
			removed++
		}
	}
	return removed
}

// Middleware keys requests by the token query parameter. Requests without
// one share a single bucket and are rejected by the handlers anyway.
func (rl *TokenRateLimiter) Middleware() drift.HandlerFunc {
	return func(c *drift.Context) {
		if !rl.limiter(c.QueryParam("token")).Allow() {
			rl.metrics.RateLimited()
			_ = c.JSON(http.StatusTooManyRequests, map[string]string{
				"error": "rate limit exceeded, please try again later",
			})
			return
		}
		c.Next()
	}
}
