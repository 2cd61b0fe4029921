package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/mrz1836/tether/internal/metrics"
)

// idleLimiterTTL is how long an unused client bucket is kept.
const idleLimiterTTL = 10 * time.Minute

// RateLimiter keeps one token bucket per client key.
type RateLimiter struct {
	mu         sync.Mutex
	limiters   map[string]*clientLimiter
	rateLimit  rate.Limit
	burstLimit int
	now        func() time.Time
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a limiter allowing ratePerSecond requests per
// client with bursts up to burst.
func NewRateLimiter(ratePerSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiters:   make(map[string]*clientLimiter),
		rateLimit:  rate.Limit(ratePerSecond),
		burstLimit: burst,
		now:        time.Now,
	}
}

// Allow reports whether a request from key may proceed now.
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	cl, ok := r.limiters[key]
	if !ok {
		r.pruneLocked(now)
		cl = &clientLimiter{limiter: rate.NewLimiter(r.rateLimit, r.burstLimit)}
		r.limiters[key] = cl
	}
	cl.lastSeen = now
	return cl.limiter.AllowN(now, 1)
}

// Len returns the number of tracked clients.
func (r *RateLimiter) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.limiters)
}

func (r *RateLimiter) pruneLocked(now time.Time) {
	for key, cl := range r.limiters {
		if now.Sub(cl.lastSeen) > idleLimiterTTL {
			delete(r.limiters, key)
		}
	}
}

// rateLimit rejects requests over the per-IP budget with 429.
func rateLimit(l *RateLimiter, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP()) {
			m.RecordRateLimited()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorBody(errRateLimited))
			return
		}
		c.Next()
	}
}
