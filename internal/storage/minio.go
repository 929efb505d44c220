package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// minioPartSize bounds the buffer minio-go allocates for a stream of unknown
// length. Without it the part is sized for a 5 TiB object.
const minioPartSize = 16 << 20

// MinIOConfig holds the connection settings for a MinIO endpoint.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// MinIOStore implements ObjectStore on MinIO or another S3-compatible server.
type MinIOStore struct {
	client *minio.Client
}

// NewMinIOStore initializes a MinIO client.
func NewMinIOStore(cfg MinIOConfig) (*MinIOStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, wrapError("NewClient", "", "", fmt.Errorf("minio client init for %s: %w", cfg.Endpoint, err))
	}
	return &MinIOStore{client: client}, nil
}

// EnsureBucket creates the bucket if it does not exist yet.
func (s *MinIOStore) EnsureBucket(ctx context.Context, bucket string) (created bool, err error) {
	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return false, wrapError("BucketExists", bucket, "", err)
	}
	if exists {
		return false, nil
	}
	if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		return false, wrapError("MakeBucket", bucket, "", err)
	}
	return true, nil
}

// Put streams r with unknown size in parts of minioPartSize.
func (s *MinIOStore) Put(ctx context.Context, bucket, name, contentType string, r io.Reader) (int64, error) {
	if name == "" {
		return 0, wrapError("Put", bucket, name, ErrEmptyName)
	}
	info, err := s.client.PutObject(ctx, bucket, name, r, -1, minio.PutObjectOptions{
		ContentType: contentType,
		PartSize:    minioPartSize,
	})
	if err != nil {
		return 0, wrapError("Put", bucket, name, err)
	}
	return info.Size, nil
}

// Get downloads the full object into memory.
func (s *MinIOStore) Get(ctx context.Context, bucket, name string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, wrapError("Get", bucket, name, translateMinIOError(err))
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, wrapError("Get", bucket, name, translateMinIOError(err))
	}
	return data, nil
}

// Close is a no-op; the MinIO client holds no long-lived connections of its own.
func (s *MinIOStore) Close() error {
	return nil
}

func translateMinIOError(err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.StatusCode == http.StatusNotFound || resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" {
		return fmt.Errorf("%w: %s", ErrObjectNotFound, resp.Message)
	}
	return err
}
