package app

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimit allows limit requests per client IP per window, counted in
// Redis. When Redis is unreachable requests pass.
func RateLimit(rdb *redis.Client, name string, limit int, window time.Duration, log *zap.Logger) gin.HandlerFunc {
	retryAfter := strconv.Itoa(int((window + time.Second - 1) / time.Second))
	return func(c *gin.Context) {
		if limit <= 0 {
			c.Next()
			return
		}
		key := "ratelimit:" + name + ":" + c.ClientIP()

		// INCR and EXPIRE NX share a transaction so the key always carries a TTL.
		pipe := rdb.TxPipeline()
		incr := pipe.Incr(c, key)
		pipe.ExpireNX(c, key, window)
		if _, err := pipe.Exec(c); err != nil {
			log.Warn("rate limit unavailable", zap.String("limiter", name), zap.Error(err))
			c.Next()
			return
		}
		if incr.Val() > int64(limit) {
			c.Header("Retry-After", retryAfter)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, H{
				"success": false,
				"kind":    "rate_limited",
				"message": "too many requests, try again shortly",
			})
			return
		}
		c.Next()
	}
}
