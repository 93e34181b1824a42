package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// ──────────────────────────────────────────────────────────────────────────────
// Per-IP rate limiting
// ──────────────────────────────────────────────────────────────────────────────

// clientBucket tracks the token balance for one client IP.
type clientBucket struct {
	tokens float64
	seen   time.Time
}

// ipLimiter is a token-bucket limiter keyed by client IP. All buckets share
// one mutex; the critical section is a couple of float ops, so contention is
// not a concern at the request rates a single instance serves.
type ipLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientBucket
	rate    float64 // tokens refilled per second
	burst   float64 // bucket capacity
	swept   time.Time
}

func newIPLimiter(rps int) *ipLimiter {
	burst := float64(rps) * 2
	if burst < 10 {
		burst = 10
	}
	return &ipLimiter{
		clients: make(map[string]*clientBucket),
		rate:    float64(rps),
		burst:   burst,
		swept:   time.Now(),
	}
}

// take refills the client's bucket for the elapsed time, then tries to spend
// one token. Idle clients are swept inline rather than by a background
// goroutine, so the limiter needs no shutdown hook.
func (l *ipLimiter) take(ip string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.swept) > 10*time.Minute {
		cutoff := now.Add(-10 * time.Minute)
		for k, cb := range l.clients {
			if cb.seen.Before(cutoff) {
				delete(l.clients, k)
			}
		}
		l.swept = now
	}

	cb, ok := l.clients[ip]
	if !ok {
		cb = &clientBucket{tokens: l.burst, seen: now}
		l.clients[ip] = cb
	}

	cb.tokens += now.Sub(cb.seen).Seconds() * l.rate
	if cb.tokens > l.burst {
		cb.tokens = l.burst
	}
	cb.seen = now

	if cb.tokens < 1 {
		return false
	}
	cb.tokens--
	return true
}

// RateLimitMiddleware limits each client IP to roughly rps requests per
// second with a short burst allowance. Over-limit clients get 429.
func RateLimitMiddleware(rps int) gin.HandlerFunc {
	l := newIPLimiter(rps)
	return func(c *gin.Context) {
		if !l.take(c.ClientIP(), time.Now()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error":   "too many requests, slow down",
				"code":    "ERR_RATE_LIMITED",
			})
			return
		}
		c.Next()
	}
}
