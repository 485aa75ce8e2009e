package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	appErrors "github.com/citekeep/citekeep/pkg/errors"
)

// bucket is a token bucket refilled lazily on access.
type bucket struct {
	tokens   float64
	lastSeen time.Time
}

// RateLimiter enforces a per-client requests-per-second ceiling with burst
// capacity equal to the rate. Buckets idle past the eviction window are
// dropped to bound memory.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rps     float64
	burst   float64
	now     func() time.Time

	lastSweep time.Time
}

const bucketIdleEviction = 3 * time.Minute

// NewRateLimiter creates a limiter allowing rps requests per second per
// client. A non-positive rps disables limiting.
func NewRateLimiter(rps int) *RateLimiter {
	return &RateLimiter{
		buckets: make(map[string]*bucket),
		rps:     float64(rps),
		burst:   float64(rps),
		now:     time.Now,
	}
}

// Allow reports whether the client identified by key may proceed.
func (l *RateLimiter) Allow(key string) bool {
	if l.rps <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: l.burst, lastSeen: now}
		l.buckets[key] = b
	}

	b.tokens += now.Sub(b.lastSeen).Seconds() * l.rps
	if b.tokens > l.burst {
		b.tokens = l.burst
	}
	b.lastSeen = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// sweep drops buckets idle past the eviction window. Called with l.mu held.
func (l *RateLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < bucketIdleEviction {
		return
	}
	l.lastSweep = now
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) > bucketIdleEviction {
			delete(l.buckets, key)
		}
	}
}

// RateLimit rejects over-limit clients with 429, keyed by client IP.
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":    string(appErrors.ErrCodeTooManyRequests),
				"message": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
