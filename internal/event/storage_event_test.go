package event

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	cloudevents "github.com/cloudevents/sdk-go/v2"
)

func TestDecode(t *testing.T) {
	ev, err := Decode([]byte(`{"bucket":"m2-solutions","name":"receipt.png","contentType":"image/png","size":"1024"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := StorageEvent{Bucket: "m2-solutions", Name: "receipt.png", ContentType: "image/png"}
	if ev != want {
		t.Fatalf("expected %+v, got %+v", want, ev)
	}
}

func TestDecodeEmptyPayload(t *testing.T) {
	for _, body := range []string{"", "   ", "{}", "null", "not json", "[1,2]"} {
		_, err := Decode([]byte(body))
		if !errors.Is(err, ErrEmptyPayload) {
			t.Errorf("Decode(%q): expected ErrEmptyPayload, got %v", body, err)
		}
	}
}

func TestDecodeMissingField(t *testing.T) {
	tests := []struct {
		body  string
		field string
	}{
		{`{"name":"receipt.png","contentType":"image/png"}`, "bucket"},
		{`{"bucket":"b","contentType":"image/png"}`, "name"},
		{`{"bucket":"b","name":"receipt.png"}`, "contentType"},
		{`{"bucket":null,"name":"receipt.png","contentType":"image/png"}`, "bucket"},
		{`{"bucket":"b","name":null,"contentType":"image/png"}`, "name"},
		{`{"bucket":"m2-solutions","name":"receipt.png","contentType":null}`, "contentType"},
	}
	for _, tt := range tests {
		_, err := Decode([]byte(tt.body))
		if !errors.Is(err, ErrMissingField) {
			t.Fatalf("expected ErrMissingField for %s, got %v", tt.body, err)
		}
		var mf *MissingFieldError
		if !errors.As(err, &mf) || mf.Field != tt.field {
			t.Fatalf("expected missing %q, got %v", tt.field, err)
		}
	}
}

func TestDecodeNonStringField(t *testing.T) {
	_, err := Decode([]byte(`{"bucket":1,"name":"a","contentType":"image/png"}`))
	if err == nil || !strings.Contains(err.Error(), `"bucket"`) {
		t.Fatalf("expected type error for bucket, got %v", err)
	}
}

func TestFromCloudEvent(t *testing.T) {
	e := cloudevents.NewEvent()
	e.SetID("1234")
	e.SetSource("//storage.googleapis.com/projects/_/buckets/m2-solutions")
	e.SetType(FinalizedType)
	if err := e.SetData(cloudevents.ApplicationJSON, map[string]string{
		"bucket":      "m2-solutions",
		"name":        "receipt.jpg",
		"contentType": "image/jpeg",
	}); err != nil {
		t.Fatalf("set data: %v", err)
	}

	ev, err := FromCloudEvent(e)
	if err != nil {
		t.Fatalf("from cloud event: %v", err)
	}
	if ev.Name != "receipt.jpg" || ev.ContentType != "image/jpeg" || ev.Bucket != "m2-solutions" {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"bucket":"b","name":"n.png","contentType":"image/png"}`))
	ev, err := FromRequest(req)
	if err != nil {
		t.Fatalf("from request: %v", err)
	}
	if ev.Name != "n.png" {
		t.Fatalf("unexpected event %+v", ev)
	}

	empty := httptest.NewRequest(http.MethodPost, "/", nil)
	if _, err := FromRequest(empty); !errors.Is(err, ErrEmptyPayload) {
		t.Fatalf("expected ErrEmptyPayload, got %v", err)
	}
}
