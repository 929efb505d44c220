package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"receipts/internal/config"
	"receipts/internal/event"
	"receipts/internal/metrics"
	"receipts/internal/ocr"
	"receipts/internal/records"
	"receipts/internal/storage"
)

type stubDetector struct {
	text   string
	closed bool
}

func (s *stubDetector) DetectText(ctx context.Context, image []byte, contentType string) (*ocr.Detection, error) {
	return &ocr.Detection{Text: s.text}, nil
}

func (s *stubDetector) Close() error {
	s.closed = true
	return nil
}

type stubRecords struct {
	saved    []records.Record
	closeErr error
}

func (s *stubRecords) Save(ctx context.Context, r records.Record) error {
	s.saved = append(s.saved, r)
	return nil
}

func (s *stubRecords) Close() error { return s.closeErr }

func testConfig() *config.Config {
	return &config.Config{
		BucketName:    config.DefaultBucketName,
		PublicURLBase: config.DefaultPublicURLBase,
		ObjectStore:   config.ObjectStoreGCS,
		TextDetector:  config.DetectorVision,
	}
}

func uploadRequest(t *testing.T, name, contentType, body string) *http.Request {
	t.Helper()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+name+`"`)
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	part.Write([]byte(body))
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/", buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestUploadThenProcess(t *testing.T) {
	gin.SetMode(gin.TestMode)

	store := storage.NewMemoryStore()
	detector := &stubDetector{text: "TOTAL: $42.00"}
	m := metrics.New()
	a := Assemble(testConfig(), Clients{Store: store, Detector: detector}, m, zerolog.Nop())

	resp := httptest.NewRecorder()
	a.UploadHandler().ServeHTTP(resp, uploadRequest(t, "receipt.png", "image/png", "PNGDATA"))
	if resp.Code != http.StatusOK {
		t.Fatalf("upload: expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var uploaded map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&uploaded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if uploaded["file_url"] != "https://storage.googleapis.com/m2-solutions/receipt.png" {
		t.Fatalf("unexpected file url %q", uploaded["file_url"])
	}

	body, _ := json.Marshal(event.StorageEvent{Bucket: uploaded["bucket"], Name: uploaded["file_name"], ContentType: "image/png"})
	resp = httptest.NewRecorder()
	a.ProcessHTTPHandler().ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body)))
	if resp.Code != http.StatusOK {
		t.Fatalf("process: expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	scrape := httptest.NewRecorder()
	a.Metrics().Handler().ServeHTTP(scrape, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	exposed, _ := io.ReadAll(scrape.Body)
	for _, want := range []string{
		`receipts_upload_total{status="ok"} 1`,
		`receipts_process_total{outcome="processed"} 1`,
	} {
		if !strings.Contains(string(exposed), want) {
			t.Fatalf("expected %q in metrics output", want)
		}
	}
}

func TestAssembleWithoutRecordsNeverPersists(t *testing.T) {
	store := storage.NewMemoryStore()
	store.Put(context.Background(), "b", "r.png", "image/png", strings.NewReader("x"))
	a := Assemble(testConfig(), Clients{Store: store, Detector: &stubDetector{text: "hi"}}, nil, zerolog.Nop())

	res, err := a.Processor().Process(context.Background(), event.StorageEvent{Bucket: "b", Name: "r.png", ContentType: "image/png"})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if res.Persisted {
		t.Fatalf("expected no persistence without a record store")
	}
}

func TestAssembleWithRecordsPersists(t *testing.T) {
	store := storage.NewMemoryStore()
	store.Put(context.Background(), "b", "r.png", "image/png", strings.NewReader("x"))
	recs := &stubRecords{}
	a := Assemble(testConfig(), Clients{Store: store, Detector: &stubDetector{text: "hi"}, Records: recs}, nil, zerolog.Nop())

	if _, err := a.Processor().Process(context.Background(), event.StorageEvent{Bucket: "b", Name: "r.png", ContentType: "image/png"}); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(recs.saved) != 1 || recs.saved[0].ExtractedText != "hi" {
		t.Fatalf("expected one saved record, got %+v", recs.saved)
	}
}

func TestCloseReleasesClients(t *testing.T) {
	detector := &stubDetector{}
	recErr := errors.New("close failed")
	a := Assemble(testConfig(), Clients{
		Store:    storage.NewMemoryStore(),
		Detector: detector,
		Records:  &stubRecords{closeErr: recErr},
	}, nil, zerolog.Nop())

	err := a.Close()
	if !errors.Is(err, recErr) {
		t.Fatalf("expected record store close error, got %v", err)
	}
	if !detector.closed {
		t.Fatalf("expected detector closed")
	}
}

func TestNewDetectorRejectsUnknownBackend(t *testing.T) {
	cfg := testConfig()
	cfg.TextDetector = "tesseract"

	_, err := newDetector(context.Background(), cfg, nil)
	if !errors.Is(err, ocr.ErrInvalidConfiguration) {
		t.Fatalf("expected ErrInvalidConfiguration, got %v", err)
	}
}

func TestNewObjectStoreRejectsUnknownBackend(t *testing.T) {
	cfg := testConfig()
	cfg.ObjectStore = "s3"

	if _, err := newObjectStore(context.Background(), cfg, nil, zerolog.Nop()); err == nil {
		t.Fatalf("expected error for unknown object store")
	}
}

func TestNewRecordStoreRejectsUnknownBackend(t *testing.T) {
	cfg := testConfig()
	cfg.RecordStore = "bigquery"

	if _, err := newRecordStore(context.Background(), cfg, nil, zerolog.Nop()); err == nil {
		t.Fatalf("expected error for unknown record store")
	}
}
