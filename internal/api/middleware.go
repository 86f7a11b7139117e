package api

import (
	"github.com/gin-gonic/gin"

	"github.com/synapsedb/mnemosyne/internal/ratelimit"
)

// RateLimitMiddleware rejects requests over limiter's global bucket.
func RateLimitMiddleware(limiter *ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		result := limiter.Allow(c.FullPath())
		if !result.Allowed {
			c.Header("Retry-After", result.RetryAfter.String())
			ErrorResponse(c, 429, "rate limit exceeded")
			c.Abort()
			return
		}
		c.Next()
	}
}
