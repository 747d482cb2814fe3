//go:build ocr

package ocr

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/otiai10/gosseract/v2"
	"github.com/rs/zerolog"

	"scanreport/internal/logger"
)

// TesseractEngine is the local deterministic extraction engine. It runs fully
// offline against the system Tesseract installation and is the only engine
// that reports real per-word confidence and bounding boxes.
//
// Requires the "ocr" build tag and the tesseract libraries. On Debian/Ubuntu:
//
//	apt-get install tesseract-ocr libtesseract-dev
type TesseractEngine struct {
	log zerolog.Logger
}

// NewTesseractEngine creates the local engine.
func NewTesseractEngine() (*TesseractEngine, error) {
	return &TesseractEngine{
		log: logger.WithComponent("ocr-tesseract"),
	}, nil
}

// Name returns the backend identifier.
func (e *TesseractEngine) Name() string { return BackendTesseract }

// Extract runs Tesseract on one image. Any internal failure comes back as an
// error result, never as a panic or error value.
func (e *TesseractEngine) Extract(ctx context.Context, img ImageRef, opts Options) ExtractionResult {
	lang := opts.language()

	opts.progress("Initializing local OCR", 0.1)

	if img.IsZero() {
		return failureResult(lang, ErrEmptyImage)
	}
	if !lang.Valid() {
		return failureResult(lang, WrapExtractError("Extract", BackendTesseract, ErrUnsupportedLanguage, string(lang)))
	}

	data, err := e.imageBytes(ctx, img)
	if err != nil {
		return failureResult(lang, WrapExtractError("Extract", BackendTesseract, err, "failed to load image"))
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(strings.Split(string(lang), "+")...); err != nil {
		return failureResult(lang, WrapExtractError("Extract", BackendTesseract, err, "failed to set language"))
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return failureResult(lang, WrapExtractError("Extract", BackendTesseract, err, "failed to set image"))
	}

	opts.progress("Recognizing text", 0.4)

	text, err := client.Text()
	if err != nil {
		return failureResult(lang, WrapExtractError("Extract", BackendTesseract, ErrExtractionFailed, err.Error()))
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return failureResult(lang, WrapExtractError("Extract", BackendTesseract, ErrNoText, ""))
	}

	// Word boxes are best-effort; recognition already succeeded.
	var words []Word
	var confidence float64
	if boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD); err == nil {
		var sum float64
		for _, box := range boxes {
			words = append(words, Word{
				Text:       box.Word,
				Confidence: box.Confidence,
				BBox: BoundingBox{
					X0: box.Box.Min.X,
					Y0: box.Box.Min.Y,
					X1: box.Box.Max.X,
					Y1: box.Box.Max.Y,
				},
			})
			sum += box.Confidence
		}
		if len(boxes) > 0 {
			confidence = sum / float64(len(boxes))
		}
	} else {
		e.log.Warn().Err(err).Msg("Failed to collect word bounding boxes")
	}

	opts.progress("OCR completed", 1.0)

	return ExtractionResult{
		Text:       text,
		Confidence: confidence,
		Words:      words,
		Paragraphs: splitParagraphs(text),
		Language:   lang,
	}
}

// imageBytes resolves the reference into raw image bytes, downloading hosted
// URLs since Tesseract only works on local data.
func (e *TesseractEngine) imageBytes(ctx context.Context, img ImageRef) ([]byte, error) {
	if len(img.Data) > 0 {
		return img.Data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, img.URL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, WrapExtractError("imageBytes", BackendTesseract, ErrExtractionFailed, resp.Status)
	}
	return io.ReadAll(resp.Body)
}
