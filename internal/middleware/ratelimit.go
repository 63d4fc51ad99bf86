package middleware

import (
	"net/http"

	"taskmanager/internal/metrics"
	"taskmanager/internal/ratelimit"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RateLimit limits requests per client IP. Limiter errors fail open.
func RateLimit(l ratelimit.Limiter, m *metrics.Metrics, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		endpoint := c.FullPath()
		ok, err := l.Allow(c.Request.Context(), endpoint+"|"+c.ClientIP())
		if err != nil {
			log.Warn("rate limiter unavailable", zap.String("endpoint", endpoint), zap.Error(err))
			c.Header("X-RateLimit-Error", "limiter-error")
			c.Next()
			return
		}
		if !ok {
			m.RateLimitBlocked(endpoint)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many attempts. Please try again later."})
			return
		}
		m.RateLimitAllowed(endpoint)
		c.Next()
	}
}
