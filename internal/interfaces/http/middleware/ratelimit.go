package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/orris-inc/billing/internal/shared/constants"
	"github.com/orris-inc/billing/internal/shared/logger"
	"github.com/orris-inc/billing/internal/shared/utils"
)

// RateLimiter is a Redis fixed-window counter shared by every API instance.
// Requests are keyed by the :sid route parameter, falling back to the client
// IP, so one subscription cannot flood plan change endpoints.
type RateLimiter struct {
	redisClient *redis.Client
	limit       int
	window      time.Duration
	logger      logger.Interface
}

func NewRateLimiter(redisClient *redis.Client, limit int, window time.Duration, log logger.Interface) *RateLimiter {
	return &RateLimiter{
		redisClient: redisClient,
		limit:       limit,
		window:      window,
		logger:      log,
	}
}

func (rl *RateLimiter) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		subject := c.Param("sid")
		if subject == "" {
			subject = "ip:" + c.ClientIP()
		}
		bucket := time.Now().Unix() / int64(rl.window.Seconds())
		key := fmt.Sprintf("%s%s:%d", constants.RedisKeyRateLimitPrefix, subject, bucket)

		ctx := c.Request.Context()
		count, err := rl.redisClient.Incr(ctx, key).Result()
		if err != nil {
			// Fail open; Redis trouble must not take the API down.
			rl.logger.Warnw("rate limiter unavailable", "error", err)
			c.Next()
			return
		}
		if count == 1 {
			rl.redisClient.Expire(ctx, key, rl.window+time.Second)
		}

		if count > int64(rl.limit) {
			c.Header("Retry-After", fmt.Sprintf("%d", int(rl.window.Seconds())))
			utils.ErrorResponse(c, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
			c.Abort()
			return
		}

		c.Next()
	}
}
