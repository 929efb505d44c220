// Package event normalizes storage object events into StorageEvent.
//
// Events arrive either as a CloudEvent delivered by the platform
// (google.cloud.storage.object.v1.finalized) or, for local runs, as the JSON
// body of an HTTP request. Both carry the same object metadata document and
// go through Decode, so field semantics never differ between the two.
package event

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	cloudevents "github.com/cloudevents/sdk-go/v2"
)

// FinalizedType is the CloudEvent type emitted when an object is created or overwritten.
const FinalizedType = "google.cloud.storage.object.v1.finalized"

var (
	// ErrEmptyPayload is returned when the payload is missing, empty or not a JSON object.
	ErrEmptyPayload = errors.New("invalid or missing JSON payload in request")

	// ErrMissingField is returned (wrapped in MissingFieldError) when a required key is absent or null.
	ErrMissingField = errors.New("missing required event field")
)

// MissingFieldError names the absent key.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("event: missing required field %q", e.Field)
}

func (e *MissingFieldError) Unwrap() error {
	return ErrMissingField
}

// StorageEvent identifies a newly stored object.
type StorageEvent struct {
	Bucket      string `json:"bucket"`
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
}

var requiredFields = []string{"bucket", "name", "contentType"}

// Decode parses an object metadata document. All three fields are required
// and a null value counts as missing; none is defaulted. Unknown keys are
// ignored.
func Decode(data []byte) (StorageEvent, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return StorageEvent{}, ErrEmptyPayload
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return StorageEvent{}, fmt.Errorf("%w: %v", ErrEmptyPayload, err)
	}
	if len(raw) == 0 {
		return StorageEvent{}, ErrEmptyPayload
	}

	values := make(map[string]string, len(requiredFields))
	for _, field := range requiredFields {
		value, ok := raw[field]
		if !ok || bytes.Equal(bytes.TrimSpace(value), []byte("null")) {
			return StorageEvent{}, &MissingFieldError{Field: field}
		}
		var s string
		if err := json.Unmarshal(value, &s); err != nil {
			return StorageEvent{}, fmt.Errorf("event: field %q must be a string: %w", field, err)
		}
		values[field] = s
	}

	return StorageEvent{
		Bucket:      values["bucket"],
		Name:        values["name"],
		ContentType: values["contentType"],
	}, nil
}

// FromCloudEvent decodes the data of a platform-delivered storage event.
func FromCloudEvent(e cloudevents.Event) (StorageEvent, error) {
	return Decode(e.Data())
}

// FromRequest decodes the JSON body of a local invocation request.
func FromRequest(r *http.Request) (StorageEvent, error) {
	if r.Body == nil {
		return StorageEvent{}, ErrEmptyPayload
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return StorageEvent{}, fmt.Errorf("event: read request body: %w", err)
	}
	return Decode(body)
}
