package data

import (
	"context"
	"sync"
	"time"
)

// cacheItem 缓存项
type cacheItem struct {
	value      []byte
	expiration time.Time
}

// MemoryCache 内存缓存实现（字节值，与 Redis 后端同一接口）
type MemoryCache struct {
	items sync.Map
}

// NewMemoryCache 创建内存缓存
func NewMemoryCache() *MemoryCache {
	cache := &MemoryCache{}

	// 启动清理 goroutine
	go cache.cleanupExpired()

	return cache
}

// GetBytes 获取缓存值
func (c *MemoryCache) GetBytes(ctx context.Context, key string) ([]byte, error) {
	value, ok := c.items.Load(key)
	if !ok {
		return nil, ErrCacheKeyNotFound
	}

	item := value.(*cacheItem)

	// 检查是否过期
	if time.Now().After(item.expiration) {
		c.items.Delete(key)
		return nil, ErrCacheKeyNotFound
	}

	return item.value, nil
}

// SetBytes 设置缓存值
func (c *MemoryCache) SetBytes(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	buf := make([]byte, len(value))
	copy(buf, value)

	c.items.Store(key, &cacheItem{
		value:      buf,
		expiration: time.Now().Add(expiration),
	})
	return nil
}

// Delete 删除缓存值
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.items.Delete(key)
	return nil
}

// cleanupExpired 清理过期项
func (c *MemoryCache) cleanupExpired() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		c.items.Range(func(key, value interface{}) bool {
			item := value.(*cacheItem)
			if now.After(item.expiration) {
				c.items.Delete(key)
			}
			return true
		})
	}
}

// ErrCacheKeyNotFound 缓存键不存在错误
var ErrCacheKeyNotFound = &CacheError{Message: "cache key not found"}

// CacheError 缓存错误
type CacheError struct {
	Message string
}

func (e *CacheError) Error() string {
	return e.Message
}
