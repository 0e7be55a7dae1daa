package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/evotehq/evote-backend/internal/logging"
)

// RateLimit applies a per-IP fixed window counter in Redis. Counters are
// shared across instances, so the limit holds for the whole deployment.
// Fails open if the store is unreachable.
func RateLimit(rdb *redis.Client, scope string, max int64, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "ratelimit:" + scope + ":" + c.ClientIP()
		n, err := rdb.Incr(c.Request.Context(), key).Result()
		if err != nil {
			logging.Warn("rate limit check failed", zap.String("scope", scope), zap.Error(err))
			c.Next()
			return
		}
		if n == 1 {
			rdb.Expire(c.Request.Context(), key, window)
		}
		if n > max {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Too many requests, please try again later.",
			})
			return
		}
		c.Next()
	}
}
