// Package storage uploads exported result files to local disk, MinIO or Aliyun OSS.
package storage

import (
	"context"
	"examhub_backend/internal/config"
	"examhub_backend/internal/util"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Provider is the common surface of the storage backends.
type Provider interface {
	Upload(ctx context.Context, filename string, reader io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, filename string) error
	GetURL(filename string) string
}

// LocalProvider 本地存储实现
type LocalProvider struct {
	Root string
}

func (p *LocalProvider) Upload(ctx context.Context, filename string, reader io.Reader, size int64, contentType string) (string, error) {
	dst := filepath.Join(p.Root, filename)
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", err
	}

	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, reader); err != nil {
		return "", err
	}
	return p.GetURL(filename), nil
}

func (p *LocalProvider) Delete(ctx context.Context, filename string) error {
	return os.Remove(filepath.Join(p.Root, filename))
}

func (p *LocalProvider) GetURL(filename string) string {
	return "/exports/" + filepath.ToSlash(filename)
}

// MinioProvider MinIO存储实现
type MinioProvider struct {
	Bucket string
	Client *minio.Client
}

func NewMinioProvider(cfg *config.StorageConfig) (*MinioProvider, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
		Secure: false,
	})
	if err != nil {
		return nil, err
	}
	return &MinioProvider{Bucket: cfg.MinioBucket, Client: client}, nil
}

func (p *MinioProvider) Upload(ctx context.Context, filename string, reader io.Reader, size int64, contentType string) (string, error) {
	_, err := p.Client.PutObject(ctx, p.Bucket, filename, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", err
	}
	return p.GetURL(filename), nil
}

func (p *MinioProvider) Delete(ctx context.Context, filename string) error {
	return p.Client.RemoveObject(ctx, p.Bucket, filename, minio.RemoveObjectOptions{})
}

func (p *MinioProvider) GetURL(filename string) string {
	return "/" + p.Bucket + "/" + filename
}

// OSSProvider 阿里云OSS存储实现
type OSSProvider struct {
	Endpoint string
	Bucket   string
	Client   *oss.Client
}

func NewOSSProvider(cfg *config.StorageConfig) (*OSSProvider, error) {
	client, err := oss.New(cfg.OSSEndpoint, cfg.OSSAccessKey, cfg.OSSSecretKey)
	if err != nil {
		return nil, err
	}
	return &OSSProvider{Endpoint: cfg.OSSEndpoint, Bucket: cfg.OSSBucket, Client: client}, nil
}

func (p *OSSProvider) Upload(ctx context.Context, filename string, reader io.Reader, size int64, contentType string) (string, error) {
	bucket, err := p.Client.Bucket(p.Bucket)
	if err != nil {
		return "", err
	}
	if err := bucket.PutObject(filename, reader, oss.ContentType(contentType)); err != nil {
		return "", err
	}
	return p.GetURL(filename), nil
}

func (p *OSSProvider) Delete(ctx context.Context, filename string) error {
	bucket, err := p.Client.Bucket(p.Bucket)
	if err != nil {
		return err
	}
	return bucket.DeleteObject(filename)
}

func (p *OSSProvider) GetURL(filename string) string {
	return fmt.Sprintf("https://%s.%s/%s", p.Bucket, p.Endpoint, filename)
}

// New picks the provider named by cfg.Type; unknown types fall back to local disk.
func New(cfg *config.StorageConfig) (Provider, error) {
	switch cfg.Type {
	case util.StorageMinio:
		return NewMinioProvider(cfg)
	case util.StorageOSS:
		return NewOSSProvider(cfg)
	default:
		root := cfg.LocalPath
		if root == "" {
			root = "exports"
		}
		return &LocalProvider{Root: root}, nil
	}
}
