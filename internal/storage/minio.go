package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/flowchartsman/retry"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"
)

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// MinioStore keeps objects in a single S3 compatible bucket. Calls are retried
// with backoff until ctx ends or the server returns an error retrying cannot fix.
type MinioStore struct {
	client *minio.Client
	bucket string
}

func NewMinioStore(ctx context.Context, cfg MinioConfig) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	s := &MinioStore{client: client, bucket: cfg.Bucket}
	if err := s.ensureBucket(ctx); err != nil {
		return nil, err
	}
	log.Info().Str("component", "storage").Str("endpoint", cfg.Endpoint).Str("bucket", cfg.Bucket).Msg("connected to object store")
	return s, nil
}

func newRetrier() *retry.Retrier {
	return retry.NewRetrier(5, 100*time.Millisecond, time.Second)
}

// Codes that another attempt cannot fix.
var terminalCodes = map[string]bool{
	"AccessDenied":          true,
	"InvalidAccessKeyId":    true,
	"SignatureDoesNotMatch": true,
	"InvalidBucketName":     true,
	"NoSuchBucket":          true,
	"NoSuchKey":             true,
	"EntityTooLarge":        true,
}

// classify marks errors that should end the retry loop.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return retry.Stop(err)
	}
	if terminalCodes[minio.ToErrorResponse(err).Code] {
		return retry.Stop(err)
	}
	return err
}

func (s *MinioStore) ensureBucket(ctx context.Context) error {
	return newRetrier().RunContext(ctx, func(ctx context.Context) error {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			return classify(err)
		}
		if exists {
			return nil
		}
		return classify(s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}))
	})
}

// Put buffers r so a failed attempt can be replayed.
func (s *MinioStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	size = int64(len(data))

	return newRetrier().RunContext(ctx, func(ctx context.Context) error {
		_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), size, minio.PutObjectOptions{
			ContentType: contentType,
		})
		return classify(err)
	})
}

func (s *MinioStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	var obj *minio.Object

	err := newRetrier().RunContext(ctx, func(ctx context.Context) error {
		o, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
		if err != nil {
			return classify(err)
		}
		// GetObject is lazy; Stat surfaces missing keys.
		if _, err := o.Stat(); err != nil {
			_ = o.Close()
			return classify(err)
		}
		obj = o
		return nil
	})
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return nil, ErrObjectNotFound
	}
	if err != nil {
		return nil, err
	}
	return obj, nil
}

func (s *MinioStore) Remove(ctx context.Context, key string) error {
	return newRetrier().RunContext(ctx, func(ctx context.Context) error {
		return classify(s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}))
	})
}
