package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"

	"voicedash/cmd/dashboard-service/internal/conf"
	httperrors "voicedash/pkg/errors"
)

// RateLimiter Redis 分布式限流器，固定窗口计数
type RateLimiter struct {
	redis   *redis.Client
	enabled bool
	rpm     int
	burst   int
	window  time.Duration
	logger  *log.Helper
}

// NewRateLimiter 创建限流器。client 为 nil 时（mock 模式）限流关闭。
func NewRateLimiter(client *redis.Client, cfg conf.RateLimitConfig, logger log.Logger) *RateLimiter {
	rpm := int(cfg.RequestsPerSecond * 60)
	if rpm <= 0 {
		rpm = 600
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 100
	}

	return &RateLimiter{
		redis:   client,
		enabled: cfg.Enabled && client != nil,
		rpm:     rpm,
		burst:   burst,
		window:  time.Minute,
		logger:  log.NewHelper(log.With(logger, "module", "ratelimit")),
	}
}

// Middleware 限流中间件
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.enabled {
			c.Next()
			return
		}
		path := c.Request.URL.Path
		if path == "/health" || path == "/ready" || path == "/metrics" {
			c.Next()
			return
		}

		tenantID := c.GetString("tenant_id")
		if tenantID == "" {
			tenantID = "anonymous"
		}
		client := c.GetString("user_id")
		if client == "" {
			client = c.ClientIP()
		}

		key := fmt.Sprintf("ratelimit:dashboard:%s:%s", tenantID, client)

		allowed, remaining, resetAt, err := rl.checkLimit(c.Request.Context(), key)
		if err != nil {
			// 限流器故障时降级放行
			rl.logger.Errorf("Rate limiter error: %v", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", rl.rpm))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", resetAt))

		if !allowed {
			rl.logger.Warnf("Rate limit exceeded: tenant=%s, client=%s", tenantID, client)
			c.Header("Retry-After", strconv.FormatInt(resetAt-time.Now().Unix(), 10))
			resp := httperrors.TooManyRequests("too many requests")
			c.AbortWithStatusJSON(resp.Code, resp)
			return
		}

		c.Next()
	}
}

// checkLimit 原子地递增窗口计数，窗口容量为 rpm+burst
func (rl *RateLimiter) checkLimit(ctx context.Context, key string) (allowed bool, remaining int, resetAt int64, err error) {
	capacity := rl.rpm + rl.burst

	script := redis.NewScript(`
		local key = KEYS[1]
		local limit = tonumber(ARGV[1])
		local window = tonumber(ARGV[2])
		local current_time = tonumber(ARGV[3])

		local current = redis.call('GET', key)

		if current and tonumber(current) >= limit then
			local ttl = redis.call('TTL', key)
			return {0, 0, current_time + ttl}
		end

		local new_count = redis.call('INCR', key)

		if new_count == 1 then
			redis.call('EXPIRE', key, window)
		end

		local remaining = limit - new_count
		local ttl = redis.call('TTL', key)
		local reset_at = current_time + ttl

		return {1, remaining, reset_at}
	`)

	result, err := script.Run(
		ctx,
		rl.redis,
		[]string{key},
		capacity,
		int(rl.window.Seconds()),
		time.Now().Unix(),
	).Result()

	if err != nil {
		return false, 0, 0, fmt.Errorf("failed to execute rate limit script: %w", err)
	}

	values := result.([]interface{})
	allowed = values[0].(int64) == 1
	remaining = int(values[1].(int64))
	resetAt = values[2].(int64)

	return allowed, remaining, resetAt, nil
}
