package storage

import (
	"bytes"
	"context"
	"io"
	"sync"
)

type memoryObject struct {
	data        []byte
	contentType string
}

// MemoryStore is an in-process ObjectStore used by tests and dry runs.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]memoryObject)}
}

func memoryKey(bucket, name string) string {
	return bucket + "/" + name
}

func (s *MemoryStore) Put(ctx context.Context, bucket, name, contentType string, r io.Reader) (int64, error) {
	if name == "" {
		return 0, wrapError("Put", bucket, name, ErrEmptyName)
	}
	var buf bytes.Buffer
	n, err := io.Copy(&buf, r)
	if err != nil {
		return n, wrapError("Put", bucket, name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[memoryKey(bucket, name)] = memoryObject{data: buf.Bytes(), contentType: contentType}
	return n, nil
}

func (s *MemoryStore) Get(ctx context.Context, bucket, name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[memoryKey(bucket, name)]
	if !ok {
		return nil, wrapError("Get", bucket, name, ErrObjectNotFound)
	}
	return bytes.Clone(obj.data), nil
}

// ContentType returns the content type an object was stored with.
func (s *MemoryStore) ContentType(bucket, name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[memoryKey(bucket, name)]
	return obj.contentType, ok
}

// Len returns the number of stored objects.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

func (s *MemoryStore) Close() error { return nil }
