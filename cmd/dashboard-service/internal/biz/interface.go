package biz

import (
	"context"
	"time"
)

// SnapshotCache 看板快照缓存接口
// 以字节为单位存取，内存实现与 Redis 实现可互换
type SnapshotCache interface {
	// GetBytes 获取缓存值
	GetBytes(ctx context.Context, key string) ([]byte, error)

	// SetBytes 设置缓存值
	SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete 删除缓存值
	Delete(ctx context.Context, key string) error
}

// ReportUploader 报表文件上传接口
type ReportUploader interface {
	// Upload 上传报表文件并返回可下载的 URL
	Upload(ctx context.Context, objectName string, data []byte, contentType string) (string, error)

	// Delete 删除报表文件
	Delete(ctx context.Context, objectName string) error
}
