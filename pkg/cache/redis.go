package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache Redis 字节缓存，键统一加前缀隔离业务
type RedisCache struct {
	client     *redis.Client
	keyPrefix  string
	defaultTTL time.Duration
}

// Options 缓存选项
type Options struct {
	// KeyPrefix 键前缀
	KeyPrefix string
	// DefaultTTL 未显式传 TTL 时使用的过期时间
	DefaultTTL time.Duration
}

// NewRedisCache 创建 Redis 缓存
func NewRedisCache(addr, password string, db int, opts Options) *RedisCache {
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = 30 * time.Second
	}

	return &RedisCache{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		keyPrefix:  opts.KeyPrefix,
		defaultTTL: opts.DefaultTTL,
	}
}

// makeKey 生成带前缀的键
func (c *RedisCache) makeKey(key string) string {
	if c.keyPrefix != "" {
		return fmt.Sprintf("%s:%s", c.keyPrefix, key)
	}
	return key
}

// GetBytes 获取缓存值，键不存在时返回 redis.Nil
func (c *RedisCache) GetBytes(ctx context.Context, key string) ([]byte, error) {
	return c.client.Get(ctx, c.makeKey(key)).Bytes()
}

// SetBytes 设置缓存值
func (c *RedisCache) SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	return c.client.Set(ctx, c.makeKey(key), value, ttl).Err()
}

// Delete 删除缓存值
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.makeKey(key)).Err()
}

// Close 关闭连接
func (c *RedisCache) Close() error {
	return c.client.Close()
}
