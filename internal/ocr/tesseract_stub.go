//go:build !ocr

package ocr

import (
	"context"
	"errors"
)

// ErrOCRNotEnabled is returned when the binary was built without the "ocr"
// build tag and the local Tesseract engine is requested.
var ErrOCRNotEnabled = errors.New("local OCR not enabled: rebuild with -tags ocr and install tesseract")

// TesseractEngine is the stub used when the "ocr" build tag is not set. Every
// extraction yields an error result so the selector's contract still holds.
type TesseractEngine struct{}

// NewTesseractEngine creates the stub engine.
func NewTesseractEngine() (*TesseractEngine, error) {
	return &TesseractEngine{}, nil
}

// Name returns the backend identifier.
func (e *TesseractEngine) Name() string { return BackendTesseract }

// Extract always reports that local OCR is unavailable.
func (e *TesseractEngine) Extract(ctx context.Context, img ImageRef, opts Options) ExtractionResult {
	opts.progress("Initializing local OCR", 0.1)
	return failureResult(opts.language(), ErrOCRNotEnabled)
}
