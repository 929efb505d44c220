package storage

import (
	"context"
	"errors"
	"io"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSStore implements ObjectStore on Google Cloud Storage.
type GCSStore struct {
	client *gcs.Client
}

// NewGCSStore creates a Cloud Storage client. STORAGE_EMULATOR_HOST is honored
// by the client library itself.
func NewGCSStore(ctx context.Context, opts ...option.ClientOption) (*GCSStore, error) {
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, wrapError("NewClient", "", "", err)
	}
	return &GCSStore{client: client}, nil
}

// Put streams r into the object writer. The storage client handles chunking
// and resumable transfer.
func (s *GCSStore) Put(ctx context.Context, bucket, name, contentType string, r io.Reader) (int64, error) {
	if name == "" {
		return 0, wrapError("Put", bucket, name, ErrEmptyName)
	}

	// Canceling the writer's context aborts the upload if the copy fails.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := s.client.Bucket(bucket).Object(name).NewWriter(ctx)
	w.ContentType = contentType

	n, err := io.Copy(w, r)
	if err != nil {
		cancel()
		_ = w.Close()
		return n, wrapError("Put", bucket, name, err)
	}
	if err := w.Close(); err != nil {
		return n, wrapError("Put", bucket, name, err)
	}
	return n, nil
}

// Get downloads the full object into memory.
func (s *GCSStore) Get(ctx context.Context, bucket, name string) ([]byte, error) {
	rc, err := s.client.Bucket(bucket).Object(name).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) || errors.Is(err, gcs.ErrBucketNotExist) {
			return nil, wrapError("Get", bucket, name, ErrObjectNotFound)
		}
		return nil, wrapError("Get", bucket, name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, wrapError("Get", bucket, name, err)
	}
	return data, nil
}

// Close closes the underlying Cloud Storage client.
func (s *GCSStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
