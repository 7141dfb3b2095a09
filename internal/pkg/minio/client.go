package minio

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/mina-sebastian/free-space-sub000/internal/pkg/logger"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// Config defines the object storage configuration. The bucket is the one
// the tusd server writes finished uploads into.
type Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
}

// Client wraps the minio client bound to the upload bucket
type Client struct {
	client *minio.Client
	bucket string
	logger *logger.Logger
}

// New creates a new object storage client and verifies the bucket exists
func New(cfg *Config, log *logger.Logger) (*Client, error) {
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init object storage client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := mc.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %q: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := mc.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %q: %w", cfg.Bucket, err)
		}
	}

	log.Info("object storage connected",
		zap.String("endpoint", cfg.Endpoint),
		zap.String("bucket", cfg.Bucket),
	)

	return &Client{client: mc, bucket: cfg.Bucket, logger: log}, nil
}

// Stat returns object metadata for the given storage path
func (c *Client) Stat(ctx context.Context, objectName string) (minio.ObjectInfo, error) {
	return c.client.StatObject(ctx, c.bucket, objectName, minio.StatObjectOptions{})
}

// PresignedGet returns a time-limited download URL for the given storage
// path, forcing the original filename in the content disposition.
func (c *Client) PresignedGet(ctx context.Context, objectName, filename string, expiry time.Duration) (string, error) {
	params := make(url.Values)
	if filename != "" {
		params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", filename))
	}

	u, err := c.client.PresignedGetObject(ctx, c.bucket, objectName, expiry, params)
	if err != nil {
		return "", fmt.Errorf("failed to presign download for %s: %w", objectName, err)
	}
	return u.String(), nil
}
