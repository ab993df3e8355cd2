package blob

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config holds connection settings for an S3 compatible bucket
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// S3 stores blobs as objects in a single bucket
type S3 struct {
	client *minio.Client
	bucket string
}

// NewS3 connects to the endpoint and creates the bucket if it does not exist
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.Bucket, err)
		}
		slog.Info("Created bucket", "bucket", cfg.Bucket)
	}

	return &S3{client: client, bucket: cfg.Bucket}, nil
}

func (s *S3) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	key := Clean(p)
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s: %w", key, err)
	}

	// GetObject is lazy; Stat surfaces a missing key before the caller reads
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to stat object %s: %w", key, err)
	}
	return obj, nil
}

func (s *S3) Save(ctx context.Context, p string, r io.Reader) error {
	key := Clean(p)
	if _, err := s.client.PutObject(ctx, s.bucket, key, r, -1, minio.PutObjectOptions{}); err != nil {
		return fmt.Errorf("failed to put object %s: %w", key, err)
	}
	return nil
}

func (s *S3) List(ctx context.Context) ([]string, error) {
	var result []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", obj.Err)
		}
		result = append(result, obj.Key)
	}
	sort.Strings(result)
	return result, nil
}
