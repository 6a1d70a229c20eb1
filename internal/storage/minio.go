package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/couplediary/diary/internal/diary/repository"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOStorage is a PayloadStore backed by a MinIO (or any S3-compatible)
// bucket.
type MinIOStorage struct {
	client *minio.Client
	cfg    MinIOConfig
}

var _ repository.PayloadStore = (*MinIOStorage)(nil)

// NewMinIOStorage creates a new MinIO storage client and ensures the bucket exists.
func NewMinIOStorage(ctx context.Context, cfg *MinIOConfig) (*MinIOStorage, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio new: %w", err)
	}
	s := &MinIOStorage{client: mc, cfg: *cfg}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mc.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
		// ignore "already exists" style errors
		exist, xerr := mc.BucketExists(ctx, cfg.Bucket)
		if xerr != nil || !exist {
			return nil, fmt.Errorf("minio bucket ensure: %w", err)
		}
	}
	return s, nil
}

func (s *MinIOStorage) WritePayload(ctx context.Context, key string, data []byte, contentType string) error {
	if key == "" {
		return repository.ErrInvalidKey
	}
	_, err := s.client.PutObject(ctx, s.cfg.Bucket, s.cfg.ObjectName(key), bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("minio put %s: %w", key, err)
	}
	return nil
}

func (s *MinIOStorage) FetchPayload(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.cfg.Bucket, s.cfg.ObjectName(key), minio.GetObjectOptions{})
	if err != nil {
		return nil, translateMinIOError(key, err)
	}
	defer obj.Close()
	// GetObject is lazy; Stat surfaces a missing object
	if _, err := obj.Stat(); err != nil {
		return nil, translateMinIOError(key, err)
	}
	b, err := io.ReadAll(obj)
	if err != nil {
		return nil, translateMinIOError(key, err)
	}
	return b, nil
}

func (s *MinIOStorage) DeletePayload(ctx context.Context, key string) error {
	err := s.client.RemoveObject(ctx, s.cfg.Bucket, s.cfg.ObjectName(key), minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("minio remove %s: %w", key, err)
	}
	return nil
}

func translateMinIOError(key string, err error) error {
	if isMissingObject(err) {
		return repository.ErrPayloadMissing
	}
	return fmt.Errorf("minio get %s: %w", key, err)
}

func isMissingObject(err error) bool {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchObject":
		return true
	}
	return false
}
