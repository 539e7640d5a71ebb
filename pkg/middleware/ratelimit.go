package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/smartstock/pkg/logger"
	"github.com/wyfcoding/smartstock/pkg/ratelimit"
	"github.com/wyfcoding/smartstock/pkg/response"
)

// RateLimitMiddleware 按操作人（未认证时按 IP）限流，限流器故障时放行
func RateLimitMiddleware(limiter ratelimit.Limiter, limit ratelimit.Limit) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		key := ActorID(c)
		if key == "" {
			key = c.ClientIP()
		}
		key = c.FullPath() + ":" + key

		res, err := limiter.Allow(c.Request.Context(), key, limit)
		if err != nil {
			logger.Warn(c.Request.Context(), "Rate limiter unavailable", "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit.Burst))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		if !res.Allowed {
			c.Header("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds())+1))
			response.Fail(c, http.StatusTooManyRequests, "RateLimited", "too many requests", true)
			return
		}
		c.Next()
	}
}
