// pkg/middleware/ratelimit.go
package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"go.uber.org/zap"
)

// NewIPRateLimiter builds an in-memory per-client limiter from a formatted rate like "300-M".
func NewIPRateLimiter(formatted string) (*limiter.Limiter, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit %q: %w", formatted, err)
	}
	return limiter.New(memory.NewStore(), rate), nil
}

// RateLimit rejects clients that exceed the limiter's rate with 429.
func RateLimit(limiterInstance *limiter.Limiter, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		ctx, err := limiterInstance.Get(c.Request.Context(), ip)
		if err != nil {
			// a broken limiter store should not take the API down
			log.Error("failed to check rate limit", zap.String("ip", ip), zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", fmt.Sprint(ctx.Limit))
		c.Header("X-RateLimit-Remaining", fmt.Sprint(ctx.Remaining))

		if ctx.Reached {
			log.Warn("rate limit exceeded", zap.String("ip", ip), zap.Int64("limit", ctx.Limit))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests. Please try again later."})
			return
		}

		c.Next()
	}
}
