package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrObjectNotFound is returned when the requested object does not exist.
	ErrObjectNotFound = errors.New("object not found")

	// ErrEmptyName is returned when an object name is empty.
	ErrEmptyName = errors.New("object name is empty")
)

// StorageError wraps a failed storage call with the object it addressed.
type StorageError struct {
	// Op is the operation that failed ("Put", "Get").
	Op string

	Bucket string
	Object string

	Err error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s %s/%s: %v", e.Op, e.Bucket, e.Object, e.Err)
}

// Unwrap returns the underlying error.
func (e *StorageError) Unwrap() error {
	return e.Err
}

func wrapError(op, bucket, object string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Bucket: bucket, Object: object, Err: err}
}
