package middlewares

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/puzpuzpuz/xsync/v4"
	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per client IP.
type RateLimiter struct {
	limit rate.Limit
	burst int
	ips   *xsync.Map[string, *visitor]
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nanos
}

func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		limit: rate.Limit(rps),
		burst: burst,
		ips:   xsync.NewMap[string, *visitor](),
	}
}

func (rl *RateLimiter) limiter(ip string) *rate.Limiter {
	v, ok := rl.ips.Load(ip)
	if !ok {
		v, _ = rl.ips.LoadOrStore(ip, &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)})
	}
	v.lastSeen.Store(time.Now().UnixNano())
	return v.limiter
}

// Cleanup forgets clients idle for longer than idle.
func (rl *RateLimiter) Cleanup(idle time.Duration) {
	cutoff := time.Now().Add(-idle).UnixNano()
	rl.ips.Range(func(ip string, v *visitor) bool {
		if v.lastSeen.Load() < cutoff {
			rl.ips.Delete(ip)
		}
		return true
	})
}

func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.limiter(c.ClientIP()).Allow() {
			c.AbortWithStatus(http.StatusTooManyRequests)
			return
		}
		c.Next()
	}
}

// NewStrictRateLimiter guards login/register: 5 attempts per minute per IP.
func NewStrictRateLimiter() gin.HandlerFunc {
	rl := NewRateLimiter(float64(rate.Every(time.Minute)), 5)
	return func(c *gin.Context) {
		if !rl.limiter(c.ClientIP()).Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"status":  false,
				"message": "Too many attempts, please wait a moment",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
