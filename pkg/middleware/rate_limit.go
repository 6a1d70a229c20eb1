package middleware

import (
	"net/http"
	"sync"

	"github.com/couplediary/diary/pkg/metrics"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// clientKey identifies the caller for rate limiting.
func clientKey(c *gin.Context) string {
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip
}

// RateLimitMiddleware returns a Gin middleware enforcing a token-bucket limit
// per client IP. rps = allowed events per second, burst = maximum tokens in
// bucket. Each call owns its own limiter set, so two routes limited
// separately do not share budgets.
func RateLimitMiddleware(rps float64, burst int) gin.HandlerFunc {
	var limiters sync.Map // map[string]*rate.Limiter
	return func(c *gin.Context) {
		v, _ := limiters.LoadOrStore(clientKey(c), rate.NewLimiter(rate.Limit(rps), burst))
		lim := v.(*rate.Limiter)
		if !lim.Allow() {
			c.Header("Retry-After", "1")
			metrics.RateLimitRejected.WithLabelValues("memory").Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}
		metrics.RateLimitAllowed.WithLabelValues("memory").Inc()
		c.Next()
	}
}
