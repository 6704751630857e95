package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"

	httperrors "voicedash/pkg/errors"
)

const (
	// IdempotencyKeyHeader 客户端携带的幂等键请求头
	IdempotencyKeyHeader = "Idempotency-Key"

	idempotencyTTL     = 120 * time.Second // 首次响应的重放保持时间
	idempotencyLockTTL = 30 * time.Second  // 处理锁超时，防止崩溃后永久占锁
)

// Idempotency 写请求幂等中间件
// 同租户同 Idempotency-Key 的重复提交在 TTL 内直接重放首次响应，
// 并发的同 key 请求返回 409。
type Idempotency struct {
	redis   *redis.Client
	enabled bool
	prefix  string
	ttl     time.Duration
	logger  *log.Helper
}

// NewIdempotency 创建幂等中间件。client 为 nil 时（mock 模式）不做幂等检查。
func NewIdempotency(client *redis.Client, logger log.Logger) *Idempotency {
	return &Idempotency{
		redis:   client,
		enabled: client != nil,
		prefix:  "idempotency:dashboard",
		ttl:     idempotencyTTL,
		logger:  log.NewHelper(log.With(logger, "module", "idempotency")),
	}
}

// cachedResponse 缓存的首次响应
type cachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// Middleware 幂等中间件，只对携带幂等键的请求生效
func (i *Idempotency) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !i.enabled {
			c.Next()
			return
		}
		idempotencyKey := c.GetHeader(IdempotencyKeyHeader)
		if idempotencyKey == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		redisKey := i.redisKey(c, idempotencyKey)

		// 命中缓存直接重放首次响应
		if raw, err := i.redis.Get(ctx, redisKey).Result(); err == nil {
			var cached cachedResponse
			if err := json.Unmarshal([]byte(raw), &cached); err == nil {
				c.Header("X-Idempotency-Replayed", "true")
				c.Data(cached.Status, cached.ContentType, cached.Body)
				c.Abort()
				return
			}
		}

		// 抢处理锁，拿不到说明同 key 请求正在处理
		lockKey := redisKey + ":lock"
		locked, err := i.redis.SetNX(ctx, lockKey, "1", idempotencyLockTTL).Result()
		if err != nil {
			// Redis 故障时降级放行
			i.logger.WithContext(ctx).Errorf("Idempotency check error: %v", err)
			c.Next()
			return
		}
		if !locked {
			resp := httperrors.Conflict("request with this idempotency key is being processed")
			c.AbortWithStatusJSON(resp.Code, resp)
			return
		}

		writer := &captureWriter{ResponseWriter: c.Writer}
		c.Writer = writer

		c.Next()

		// 成功响应才缓存，失败的请求允许原 key 重试
		status := c.Writer.Status()
		if status >= 200 && status < 300 {
			payload, err := json.Marshal(cachedResponse{
				Status:      status,
				ContentType: writer.Header().Get("Content-Type"),
				Body:        writer.body,
			})
			if err == nil {
				if err := i.redis.Set(ctx, redisKey, payload, i.ttl).Err(); err != nil {
					i.logger.WithContext(ctx).Errorf("Cache idempotent response error: %v", err)
				}
			}
		}
		if err := i.redis.Del(ctx, lockKey).Err(); err != nil {
			i.logger.WithContext(ctx).Errorf("Release idempotency lock error: %v", err)
		}
	}
}

// redisKey 以方法、路径、幂等键和调用方身份生成存储键
func (i *Idempotency) redisKey(c *gin.Context, idempotencyKey string) string {
	hashInput := fmt.Sprintf("%s:%s:%s:%s:%s",
		c.Request.Method,
		c.Request.URL.Path,
		idempotencyKey,
		c.GetString("tenant_id"),
		c.GetString("user_id"),
	)
	hash := sha256.Sum256([]byte(hashInput))
	return fmt.Sprintf("%s:%s", i.prefix, hex.EncodeToString(hash[:]))
}

// captureWriter 捕获响应体用于重放
type captureWriter struct {
	gin.ResponseWriter
	body []byte
}

func (w *captureWriter) Write(data []byte) (int, error) {
	w.body = append(w.body, data...)
	return w.ResponseWriter.Write(data)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	w.body = append(w.body, []byte(s)...)
	return w.ResponseWriter.WriteString(s)
}
