package ocr

import (
	"context"
	"fmt"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"
)

// ImageAnnotator is the subset of the Vision client used by GoogleVisionDetector.
// *vision.ImageAnnotatorClient satisfies it.
type ImageAnnotator interface {
	BatchAnnotateImages(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest, opts ...gax.CallOption) (*visionpb.BatchAnnotateImagesResponse, error)
	Close() error
}

// GoogleVisionDetector implements TextDetector using Google Cloud Vision API.
type GoogleVisionDetector struct {
	client ImageAnnotator
}

// NewGoogleVisionDetector creates a Vision client with the given options.
func NewGoogleVisionDetector(ctx context.Context, opts ...option.ClientOption) (*GoogleVisionDetector, error) {
	const op = "NewGoogleVisionDetector"

	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		if len(opts) == 0 {
			return nil, WrapOCRError(op, ErrMissingCredentials, err.Error())
		}
		return nil, WrapOCRError(op, err, "failed to create Vision client")
	}
	return &GoogleVisionDetector{client: client}, nil
}

// NewGoogleVisionDetectorWithClient creates a detector with an explicit client (for testing).
func NewGoogleVisionDetectorWithClient(client ImageAnnotator) *GoogleVisionDetector {
	return &GoogleVisionDetector{client: client}
}

// DetectText runs TEXT_DETECTION on the image. The content type is not needed
// by Vision, which sniffs the image format itself.
func (g *GoogleVisionDetector) DetectText(ctx context.Context, image []byte, contentType string) (*Detection, error) {
	const op = "DetectText"
	if len(image) == 0 {
		return nil, NewOCRError(op, ErrEmptyImage, "")
	}

	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: &visionpb.Image{Content: image},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_TEXT_DETECTION},
				},
			},
		},
	}

	start := time.Now()
	resp, err := g.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return nil, WrapOCRError(op, ErrDetectionFailed, fmt.Sprintf("Vision API call failed: %v", err))
	}
	if len(resp.GetResponses()) == 0 {
		return nil, NewOCRError(op, ErrDetectionFailed, "no response from Vision API")
	}

	detection, err := detectionFromImageResponse(resp.GetResponses()[0])
	if err != nil {
		return nil, err
	}
	detection.Duration = time.Since(start)
	return detection, nil
}

// detectionFromImageResponse maps one image response. The first text
// annotation holds the whole text; later ones are individual words.
func detectionFromImageResponse(resp *visionpb.AnnotateImageResponse) (*Detection, error) {
	if msg := resp.GetError().GetMessage(); msg != "" {
		return nil, NewOCRError("DetectText", ErrDetectionFailed, "Vision API error: "+msg)
	}

	annotations := resp.GetTextAnnotations()
	detection := &Detection{Annotations: len(annotations)}
	if len(annotations) > 0 {
		detection.Text = annotations[0].GetDescription()
		detection.Locale = annotations[0].GetLocale()
	}
	return detection, nil
}

// Close closes the underlying Vision client.
func (g *GoogleVisionDetector) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}
