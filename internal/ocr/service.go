// Package ocr detects text in images using Google Cloud services.
//
// Two backends implement TextDetector:
//   - GoogleVisionDetector: Cloud Vision TEXT_DETECTION (default)
//   - DocumentAIDetector: a Document AI OCR processor
//
// Both send the raw image bytes inline with a single synchronous request.
// Neither retries; a failed call is returned to the caller as is.
package ocr

import (
	"context"
	"time"
)

// TextDetector extracts text from an image.
type TextDetector interface {
	// DetectText submits image bytes for text detection. An empty result is
	// not an error: Detection.Text is "" when nothing was found.
	DetectText(ctx context.Context, image []byte, contentType string) (*Detection, error)

	// Close releases the underlying client.
	Close() error
}

// Detection is the result of one text detection call.
type Detection struct {
	// Text is the full text found in the image.
	Text string `json:"text"`

	// Annotations is the number of text annotations (Vision) or pages
	// (Document AI) in the response.
	Annotations int `json:"annotations"`

	// Locale is the language detected for the text, if reported.
	Locale string `json:"locale,omitempty"`

	// Duration is how long the service call took.
	Duration time.Duration `json:"duration"`
}
