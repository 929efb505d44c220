// Package processing runs text detection on images written to object storage.
//
// For each storage event the Processor downloads the object, sends its bytes
// to the text detector, and logs the extracted text. Objects whose content
// type does not start with "image/" are skipped. When a records.Store is
// configured the text is also saved, keyed by file name.
//
// Errors are logged with the file name and returned unchanged in kind, so the
// hosting platform sees the invocation fail and applies its own retry policy.
package processing

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"receipts/internal/event"
	"receipts/internal/metrics"
	"receipts/internal/ocr"
	"receipts/internal/records"
	"receipts/internal/server"
	"receipts/internal/storage"
)

// ImagePrefix selects the content types that are processed.
const ImagePrefix = "image/"

// Result describes how one event was handled.
type Result struct {
	Event         event.StorageEvent
	Skipped       bool
	ExtractedText string
	Persisted     bool
}

// Processor handles storage events. Its dependencies are shared, read-only
// client handles; a nil records store disables persistence.
type Processor struct {
	store    storage.ObjectStore
	detector ocr.TextDetector
	records  records.Store
	metrics  *metrics.Metrics
	log      zerolog.Logger
}

// Option configures a Processor.
type Option func(*Processor)

// WithRecords enables persistence of extracted text.
func WithRecords(s records.Store) Option {
	return func(p *Processor) { p.records = s }
}

// WithMetrics records outcomes in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Processor) { p.metrics = m }
}

// WithLogger sets the logger used when the context carries none.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Processor) { p.log = l }
}

func NewProcessor(store storage.ObjectStore, detector ocr.TextDetector, opts ...Option) *Processor {
	p := &Processor{
		store:    store,
		detector: detector,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process handles a single storage event.
func (p *Processor) Process(ctx context.Context, ev event.StorageEvent) (*Result, error) {
	log := server.LoggerFrom(ctx, p.log).With().
		Str("file", ev.Name).
		Str("bucket", ev.Bucket).
		Logger()

	log.Info().
		Str("content_type", ev.ContentType).
		Msg("Processing file")

	result := &Result{Event: ev}
	if !strings.HasPrefix(ev.ContentType, ImagePrefix) {
		log.Info().Msg("Skipping non-image file")
		p.metrics.ObserveProcess(metrics.OutcomeSkipped)
		result.Skipped = true
		return result, nil
	}

	if err := p.extract(ctx, ev, result, log); err != nil {
		log.Error().Err(err).Msg("Error processing file")
		p.metrics.ObserveProcess(metrics.OutcomeFailed)
		return nil, fmt.Errorf("processing %s: %w", ev.Name, err)
	}

	p.metrics.ObserveProcess(metrics.OutcomeProcessed)
	return result, nil
}

func (p *Processor) extract(ctx context.Context, ev event.StorageEvent, result *Result, log zerolog.Logger) error {
	image, err := p.store.Get(ctx, ev.Bucket, ev.Name)
	if err != nil {
		return err
	}

	detection, err := p.detector.DetectText(ctx, image, ev.ContentType)
	if err != nil {
		return err
	}
	p.metrics.ObserveDetection(detection.Duration)

	result.ExtractedText = detection.Text
	log.Info().
		Str("extracted_text", detection.Text).
		Int("annotations", detection.Annotations).
		Str("locale", detection.Locale).
		Msg("Extracted text")

	if p.records == nil {
		log.Info().Msg("Text extraction completed")
		return nil
	}

	err = p.records.Save(ctx, records.Record{
		FileName:      ev.Name,
		Bucket:        ev.Bucket,
		ExtractedText: detection.Text,
		ContentType:   ev.ContentType,
	})
	if err != nil {
		return err
	}
	result.Persisted = true
	log.Info().Msg("Stored extracted text")
	return nil
}
