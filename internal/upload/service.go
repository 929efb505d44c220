// Package upload stores uploaded files in the configured bucket.
//
// The object name is the uploaded file's name, unchanged. Uploading a name
// that already exists overwrites the earlier object.
package upload

import (
	"context"
	"io"

	"receipts/internal/storage"
)

// Service writes uploads to a single bucket.
type Service struct {
	store   storage.ObjectStore
	bucket  string
	urlBase string
}

// NewService returns a Service writing to bucket through store. urlBase is the
// public endpoint used to format object URLs.
func NewService(store storage.ObjectStore, bucket, urlBase string) *Service {
	return &Service{
		store:   store,
		bucket:  bucket,
		urlBase: urlBase,
	}
}

// Bucket returns the destination bucket name.
func (s *Service) Bucket() string {
	return s.bucket
}

// Upload streams r to the bucket under name.
func (s *Service) Upload(ctx context.Context, name, contentType string, r io.Reader) (*storage.Object, error) {
	size, err := s.store.Put(ctx, s.bucket, name, contentType, r)
	if err != nil {
		return nil, err
	}
	return &storage.Object{
		Bucket:      s.bucket,
		Name:        name,
		ContentType: contentType,
		Size:        size,
		URL:         storage.PublicURL(s.urlBase, s.bucket, name),
	}, nil
}
