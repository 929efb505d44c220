package ocr

import (
	"context"
	"fmt"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"
)

// DocumentProcessor is the subset of the Document AI client used by
// DocumentAIDetector. *documentai.DocumentProcessorClient satisfies it.
type DocumentProcessor interface {
	ProcessDocument(ctx context.Context, req *documentaipb.ProcessRequest, opts ...gax.CallOption) (*documentaipb.ProcessResponse, error)
	Close() error
}

// DocumentAIConfig identifies the Document AI OCR processor to call.
type DocumentAIConfig struct {
	ProjectID   string
	Location    string // "us" or "eu"
	ProcessorID string
}

// ProcessorName returns the full resource name of the processor.
func (c DocumentAIConfig) ProcessorName() string {
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s", c.ProjectID, c.Location, c.ProcessorID)
}

// DocumentAIDetector implements TextDetector with a Document AI OCR processor.
type DocumentAIDetector struct {
	client DocumentProcessor
	config DocumentAIConfig
}

// NewDocumentAIDetector creates a Document AI client against the regional
// endpoint of cfg.Location.
func NewDocumentAIDetector(ctx context.Context, cfg DocumentAIConfig, opts ...option.ClientOption) (*DocumentAIDetector, error) {
	const op = "NewDocumentAIDetector"

	if cfg.ProjectID == "" || cfg.ProcessorID == "" {
		return nil, NewOCRError(op, ErrInvalidConfiguration, "project ID and processor ID are required")
	}
	if cfg.Location == "" {
		cfg.Location = "us"
	}

	clientOptions := append([]option.ClientOption{}, opts...)
	if cfg.Location != "us" {
		endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", cfg.Location)
		clientOptions = append(clientOptions, option.WithEndpoint(endpoint))
	}

	client, err := documentai.NewDocumentProcessorClient(ctx, clientOptions...)
	if err != nil {
		if len(opts) == 0 {
			return nil, WrapOCRError(op, ErrMissingCredentials, err.Error())
		}
		return nil, WrapOCRError(op, err, fmt.Sprintf("failed to create Document AI client for location: %s", cfg.Location))
	}

	return &DocumentAIDetector{client: client, config: cfg}, nil
}

// NewDocumentAIDetectorWithClient creates a detector with an explicit client (for testing).
func NewDocumentAIDetectorWithClient(cfg DocumentAIConfig, client DocumentProcessor) *DocumentAIDetector {
	return &DocumentAIDetector{client: client, config: cfg}
}

// DetectText sends the image as a raw document with its content type.
func (d *DocumentAIDetector) DetectText(ctx context.Context, image []byte, contentType string) (*Detection, error) {
	const op = "DetectText"
	if len(image) == 0 {
		return nil, NewOCRError(op, ErrEmptyImage, "")
	}

	req := &documentaipb.ProcessRequest{
		Name: d.config.ProcessorName(),
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  image,
				MimeType: contentType,
			},
		},
	}

	start := time.Now()
	resp, err := d.client.ProcessDocument(ctx, req)
	if err != nil {
		return nil, WrapOCRError(op, ErrDetectionFailed, fmt.Sprintf("Document AI call failed: %v", err))
	}

	detection, err := detectionFromDocument(resp.GetDocument())
	if err != nil {
		return nil, err
	}
	detection.Duration = time.Since(start)
	return detection, nil
}

func detectionFromDocument(doc *documentaipb.Document) (*Detection, error) {
	if doc == nil {
		return nil, NewOCRError("DetectText", ErrDetectionFailed, "no document in response")
	}
	if msg := doc.GetError().GetMessage(); msg != "" {
		return nil, NewOCRError("DetectText", ErrDetectionFailed, "Document AI error: "+msg)
	}

	detection := &Detection{
		Text:        strings.TrimRight(doc.GetText(), "\n"),
		Annotations: len(doc.GetPages()),
	}
	for _, page := range doc.GetPages() {
		if langs := page.GetDetectedLanguages(); len(langs) > 0 {
			detection.Locale = langs[0].GetLanguageCode()
			break
		}
	}
	return detection, nil
}

// Close closes the underlying Document AI client.
func (d *DocumentAIDetector) Close() error {
	if d.client != nil {
		return d.client.Close()
	}
	return nil
}
