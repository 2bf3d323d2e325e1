package mw

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// idleLimiterTTL is how long an unused client limiter is kept.
const idleLimiterTTL = 10 * time.Minute

// ClientRateLimiter hands out one token bucket per client key. Buckets of
// clients that go quiet are evicted.
type ClientRateLimiter struct {
	limiters *cache.Cache
	mu       sync.Mutex
	r        rate.Limit
	b        int
}

// NewClientRateLimiter creates a limiter allowing r requests per second with burst b per client.
func NewClientRateLimiter(r rate.Limit, b int) *ClientRateLimiter {
	return &ClientRateLimiter{
		limiters: cache.New(idleLimiterTTL, idleLimiterTTL),
		r:        r,
		b:        b,
	}
}

// Limiter returns the bucket for key, creating it on first use.
func (l *ClientRateLimiter) Limiter(key string) *rate.Limiter {
	if v, found := l.limiters.Get(key); found {
		l.limiters.Set(key, v, cache.DefaultExpiration)
		return v.(*rate.Limiter)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if v, found := l.limiters.Get(key); found {
		return v.(*rate.Limiter)
	}
	limiter := rate.NewLimiter(l.r, l.b)
	l.limiters.Set(key, limiter, cache.DefaultExpiration)
	return limiter
}

// RateLimiter is a middleware for per-client rate limiting. The client is
// identified by ipHeader when set (first entry of a comma separated list),
// otherwise by gin's ClientIP.
func RateLimiter(r rate.Limit, b int, ipHeader string) gin.HandlerFunc {
	limiter := NewClientRateLimiter(r, b)
	return func(c *gin.Context) {
		if !limiter.Limiter(clientKey(c, ipHeader)).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

func clientKey(c *gin.Context, ipHeader string) string {
	if ipHeader != "" {
		if v := c.GetHeader(ipHeader); v != "" {
			first, _, _ := strings.Cut(v, ",")
			return strings.TrimSpace(first)
		}
	}
	return c.ClientIP()
}
