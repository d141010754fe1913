package middleware

import (
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"studyspot/pkg/apperror"
	"studyspot/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// RateLimitMiddleware applies a fixed window per path and caller in Redis.
// Without Redis it falls back to an in-process token bucket per key.
func RateLimitMiddleware(redisClient *redis.Client, limit int, window time.Duration, log *logger.Logger) gin.HandlerFunc {
	if limit <= 0 || window <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if redisClient == nil {
		return localRateLimit(limit, window)
	}

	return func(c *gin.Context) {
		key := fmt.Sprintf("rate_limit:%s:%s", c.FullPath(), callerKey(c))

		ctx := c.Request.Context()
		count, err := redisClient.Incr(ctx, key).Result()
		if err != nil {
			if log != nil {
				log.Warn("Rate limit check failed, allowing request: %v", err)
			}
			c.Next()
			return
		}

		if count == 1 {
			redisClient.Expire(ctx, key, window)
		}

		if count > int64(limit) {
			ttl, err := redisClient.TTL(ctx, key).Result()
			if err != nil || ttl < 0 {
				ttl = window
			}
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(ttl.Seconds()))))
			apperror.Respond(c, apperror.TooManyRequests("Rate limit exceeded"))
			return
		}

		c.Next()
	}
}

func localRateLimit(limit int, window time.Duration) gin.HandlerFunc {
	var mu sync.Mutex
	limiters := make(map[string]*rate.Limiter)
	every := rate.Every(window / time.Duration(limit))

	return func(c *gin.Context) {
		key := c.FullPath() + ":" + callerKey(c)

		mu.Lock()
		limiter, ok := limiters[key]
		if !ok {
			limiter = rate.NewLimiter(every, limit)
			limiters[key] = limiter
		}
		mu.Unlock()

		if !limiter.Allow() {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(window.Seconds()/float64(limit)))))
			apperror.Respond(c, apperror.TooManyRequests("Rate limit exceeded"))
			return
		}
		c.Next()
	}
}

func callerKey(c *gin.Context) string {
	if userID := c.GetString(ContextUserID); userID != "" {
		return userID
	}
	return c.ClientIP()
}
