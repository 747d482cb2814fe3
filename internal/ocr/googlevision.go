package ocr

import (
	"context"
	"strings"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"scanreport/internal/logger"
)

// GoogleVisionEngine extracts text with Cloud Vision document text detection.
// It sits outside the automatic selection chain and is only reachable through
// an explicit backend preference.
type GoogleVisionEngine struct {
	client *vision.ImageAnnotatorClient
	log    zerolog.Logger
}

// NewGoogleVisionEngine creates the engine from inline JSON credentials, a
// credentials file path, or application default credentials, in that order.
func NewGoogleVisionEngine(ctx context.Context, credJSON, credFile string) (*GoogleVisionEngine, error) {
	const op = "NewGoogleVisionEngine"

	var client *vision.ImageAnnotatorClient
	var err error

	if credJSON != "" {
		client, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsJSON([]byte(credJSON)))
		if err != nil {
			return nil, WrapExtractError(op, BackendGoogleVision, err, "failed to create client with inline credentials")
		}
	} else if credFile != "" {
		client, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsFile(credFile))
		if err != nil {
			return nil, WrapExtractError(op, BackendGoogleVision, err, "failed to create client with credentials file")
		}
	} else {
		client, err = vision.NewImageAnnotatorClient(ctx)
		if err != nil {
			return nil, WrapExtractError(op, BackendGoogleVision, ErrMissingCredentials, "no credentials configured")
		}
	}

	return &GoogleVisionEngine{
		client: client,
		log:    logger.WithComponent("ocr-googlevision"),
	}, nil
}

// Name returns the backend identifier.
func (e *GoogleVisionEngine) Name() string { return BackendGoogleVision }

// Extract annotates one image with DOCUMENT_TEXT_DETECTION.
func (e *GoogleVisionEngine) Extract(ctx context.Context, img ImageRef, opts Options) ExtractionResult {
	lang := opts.language()

	opts.progress("Initializing Cloud Vision OCR", 0.1)

	if img.IsZero() {
		return failureResult(lang, ErrEmptyImage)
	}

	image := &visionpb.Image{}
	if len(img.Data) > 0 {
		image.Content = img.Data
	} else {
		image.Source = &visionpb.ImageSource{ImageUri: img.URL}
	}

	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: image,
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
				},
				ImageContext: &visionpb.ImageContext{
					LanguageHints: languageHints(lang),
				},
			},
		},
	}

	opts.progress("Processing with Cloud Vision", 0.3)

	resp, err := e.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		e.log.Warn().Err(err).Msg("Cloud Vision request failed")
		return failureResult(lang, WrapExtractError("Extract", BackendGoogleVision, ErrExtractionFailed, err.Error()))
	}
	if len(resp.Responses) == 0 {
		return failureResult(lang, WrapExtractError("Extract", BackendGoogleVision, ErrExtractionFailed, "no response from Vision API"))
	}

	annotated := resp.Responses[0]
	if annotated.Error != nil {
		return failureResult(lang, WrapExtractError("Extract", BackendGoogleVision, ErrExtractionFailed, annotated.Error.Message))
	}
	if annotated.FullTextAnnotation == nil || strings.TrimSpace(annotated.FullTextAnnotation.Text) == "" {
		return failureResult(lang, WrapExtractError("Extract", BackendGoogleVision, ErrNoText, ""))
	}

	text := annotated.FullTextAnnotation.Text

	// TextAnnotations[0] is the whole block; the rest are word-level.
	var words []Word
	var confidenceSum float64
	var confidenceCount int
	for i, ta := range annotated.TextAnnotations {
		if i == 0 {
			continue
		}
		word := Word{Text: ta.Description, Confidence: float64(ta.Confidence) * 100}
		if poly := ta.BoundingPoly; poly != nil && len(poly.Vertices) == 4 {
			word.BBox = BoundingBox{
				X0: int(poly.Vertices[0].X),
				Y0: int(poly.Vertices[0].Y),
				X1: int(poly.Vertices[2].X),
				Y1: int(poly.Vertices[2].Y),
			}
		}
		words = append(words, word)
		if ta.Confidence > 0 {
			confidenceSum += float64(ta.Confidence)
			confidenceCount++
		}
	}

	var confidence float64
	if confidenceCount > 0 {
		confidence = confidenceSum / float64(confidenceCount) * 100
	}

	opts.progress("OCR completed", 1.0)

	return ExtractionResult{
		Text:       strings.TrimSpace(text),
		Confidence: confidence,
		Words:      words,
		Paragraphs: splitParagraphs(text),
		Language:   lang,
	}
}

// Close closes the underlying Vision client.
func (e *GoogleVisionEngine) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

// languageHints maps the OCR language enumeration onto BCP-47 hints.
func languageHints(lang Language) []string {
	switch lang {
	case LangFrench:
		return []string{"fr"}
	case LangEnglishFrench:
		return []string{"en", "fr"}
	default:
		return []string{"en"}
	}
}
