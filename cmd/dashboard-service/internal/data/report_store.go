package data

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"voicedash/cmd/dashboard-service/internal/conf"
)

// ReportFileStore 报表产物对象存储
type ReportFileStore struct {
	client *minio.Client
	bucket string
	cfg    *conf.MinIOConfig
}

func NewReportFileStore(cfg *conf.MinIOConfig) (*ReportFileStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	store := &ReportFileStore{
		client: client,
		bucket: cfg.Bucket,
		cfg:    cfg,
	}
	if err := store.ensureBucket(context.Background()); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *ReportFileStore) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
		}
	}
	return nil
}

// Upload 上传报表文件并返回限时下载链接
func (s *ReportFileStore) Upload(ctx context.Context, objectName string, data []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, objectName, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", objectName, err)
	}

	url, err := s.client.PresignedGetObject(ctx, s.bucket, objectName, s.cfg.URLExpiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", objectName, err)
	}
	return url.String(), nil
}

// Delete 删除报表文件
func (s *ReportFileStore) Delete(ctx context.Context, objectName string) error {
	return s.client.RemoveObject(ctx, s.bucket, objectName, minio.RemoveObjectOptions{})
}

// LocalReportStore 本地文件系统报表存储
// 未配置 MinIO 时使用，单机部署从磁盘取件。
type LocalReportStore struct {
	baseDir string
}

// NewLocalReportStore 创建本地报表存储
func NewLocalReportStore(baseDir string) (*LocalReportStore, error) {
	if baseDir == "" {
		baseDir = filepath.Join(os.TempDir(), "voicedash-reports")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create report dir %s: %w", baseDir, err)
	}
	return &LocalReportStore{baseDir: baseDir}, nil
}

// Upload 写入报表文件并返回 file URL
func (s *LocalReportStore) Upload(ctx context.Context, objectName string, data []byte, contentType string) (string, error) {
	path := filepath.Join(s.baseDir, filepath.FromSlash(objectName))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create dir for %s: %w", objectName, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", objectName, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return "file://" + filepath.ToSlash(abs), nil
}

// Delete 删除报表文件
func (s *LocalReportStore) Delete(ctx context.Context, objectName string) error {
	path := filepath.Join(s.baseDir, filepath.FromSlash(objectName))
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
