package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ReadyFunc reports overall readiness plus a per-dependency breakdown.
type ReadyFunc func(ctx context.Context) (bool, map[string]bool)

// RegisterHealth mounts /health (liveness) and /ready (dependency readiness).
func RegisterHealth(r *gin.Engine, startedAt time.Time, ready ReadyFunc) {
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		ok, deps := ready(ctx)
		uptime := time.Since(startedAt).String()
		if !ok {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "deps": deps, "uptime": uptime})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "deps": deps, "uptime": uptime})
	})
}
