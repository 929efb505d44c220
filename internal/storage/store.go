// Package storage provides the object storage used by the upload and
// processing functions.
//
// Two backends implement ObjectStore:
//   - GCSStore: Google Cloud Storage (default)
//   - MinIOStore: MinIO or any S3-compatible endpoint, mainly for local runs
//
// Objects are addressed by bucket and name only. Writing an existing name
// replaces the previous object.
package storage

import (
	"context"
	"io"
	"strings"
)

// ObjectStore stores and retrieves whole objects.
type ObjectStore interface {
	// Put streams r into bucket/name with the given content type and returns
	// the number of bytes written.
	Put(ctx context.Context, bucket, name, contentType string, r io.Reader) (int64, error)

	// Get reads the full content of bucket/name into memory.
	Get(ctx context.Context, bucket, name string) ([]byte, error)

	// Close releases the underlying client.
	Close() error
}

// Object describes a stored object.
type Object struct {
	Bucket      string `json:"bucket"`
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	URL         string `json:"url"`
}

// PublicURL formats the public address of an object as {base}/{bucket}/{name}.
// The URL is not checked against the storage service, so it is only reachable
// when the bucket allows public reads.
func PublicURL(base, bucket, name string) string {
	return strings.TrimRight(base, "/") + "/" + bucket + "/" + name
}

