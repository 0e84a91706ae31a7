package app

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type SeenToucher interface {
	TouchAdminSeen(ctx context.Context, adminID string) error
}

// TouchLastSeen records admin activity at most once per throttle window.
func TouchLastSeen(repo SeenToucher, rdb *redis.Client, throttle time.Duration, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		aid := c.GetString(CtxAdminID)
		if aid == "" {
			c.Next()
			return
		}

		key := "admin:lastseen:" + aid
		if ok, _ := rdb.SetNX(c, key, "1", throttle).Result(); ok {
			if err := repo.TouchAdminSeen(c, aid); err != nil {
				log.Warn("touch last seen failed", zap.String("admin_id", aid), zap.Error(err))
			}
		}
		c.Next()
	}
}
