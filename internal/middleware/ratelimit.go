package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter is a per-IP token bucket. Buckets refill continuously at rate
// tokens per second up to bucketSize.
type RateLimiter struct {
	mu         sync.Mutex
	tokens     map[string]float64
	lastRefill map[string]time.Time
	rate       float64
	bucketSize float64
	skip       map[string]bool

	// now is overridable for tests
	now func() time.Time
}

// NewRateLimiter creates a limiter allowing rate requests per second with
// bursts up to bucketSize. Paths in skip (health checks and the like) are
// never limited.
func NewRateLimiter(rate, bucketSize float64, skip ...string) *RateLimiter {
	skipSet := make(map[string]bool, len(skip))
	for _, p := range skip {
		skipSet[p] = true
	}
	return &RateLimiter{
		tokens:     make(map[string]float64),
		lastRefill: make(map[string]time.Time),
		rate:       rate,
		bucketSize: bucketSize,
		skip:       skipSet,
		now:        time.Now,
	}
}

// RateLimit returns the gin middleware enforcing the limiter.
func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.skip[c.Request.URL.Path] {
			c.Next()
			return
		}

		if !rl.allow(c.ClientIP()) {
			retryAfter := int(1/rl.rate) + 1
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate limit exceeded",
				"message": "Too many requests. Please try again in a few seconds.",
			})
			return
		}

		c.Next()
	}
}

// allow refills the bucket for ip and consumes one token if available.
func (rl *RateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if _, exists := rl.lastRefill[ip]; !exists {
		rl.tokens[ip] = rl.bucketSize
		rl.lastRefill[ip] = now
	}

	elapsed := now.Sub(rl.lastRefill[ip])
	rl.tokens[ip] = min(rl.bucketSize, rl.tokens[ip]+elapsed.Seconds()*rl.rate)
	rl.lastRefill[ip] = now

	if rl.tokens[ip] < 1 {
		return false
	}
	rl.tokens[ip]--
	return true
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
