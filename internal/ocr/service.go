// Package ocr provides text extraction from document images through a set of
// interchangeable engines and a selector that routes each image to the most
// appropriate one.
//
// Engines share one contract: image in, ExtractionResult out. An engine never
// propagates an error to its caller; network failures, non-2xx responses, and
// unparseable bodies are converted into a result with Error set, empty text,
// and zero confidence. Callers detect failure by checking Error, not by
// catching anything.
//
// Available engines:
//   - Tesseract (local, deterministic, offline; requires the "ocr" build tag)
//   - Together AI vision models (handwriting-oriented, multimodal chat call)
//   - Gemini (second hosted vision vendor)
//   - Google Cloud Vision document text detection (explicit preference only)
package ocr

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
)

// Language is an OCR language tag from the supported enumeration.
type Language string

const (
	LangEnglish       Language = "eng"
	LangFrench        Language = "fra"
	LangEnglishFrench Language = "eng+fra"
)

// Valid reports whether the tag belongs to the supported enumeration.
func (l Language) Valid() bool {
	switch l {
	case LangEnglish, LangFrench, LangEnglishFrench:
		return true
	}
	return false
}

// includesFrench reports whether the tag covers French text.
func (l Language) includesFrench() bool {
	return l == LangFrench || l == LangEnglishFrench
}

// Backend names accepted as an explicit extraction preference.
const (
	BackendTesseract    = "tesseract"
	BackendTogether     = "together"
	BackendGemini       = "gemini"
	BackendGoogleVision = "googlevision"
)

// ProgressFunc receives human-readable stage labels with monotonically
// non-decreasing fractions in [0,1]. Engines report at least start and
// completion.
type ProgressFunc func(status string, progress float64)

// ImageRef points at one input image, either hosted or inline.
type ImageRef struct {
	// URL of an already-hosted image, or a data: URL.
	URL string
	// Data holds inline image bytes; takes precedence over URL when set.
	Data []byte
	// MIME type of Data; defaults to image/png when empty.
	MIME string
}

// IsZero reports whether the reference carries no image at all.
func (r ImageRef) IsZero() bool {
	return r.URL == "" && len(r.Data) == 0
}

// DataURL renders the reference as something a multimodal chat endpoint
// accepts: the hosted URL as-is, or inline bytes as a base64 data URL.
func (r ImageRef) DataURL() string {
	if len(r.Data) > 0 {
		mime := r.MIME
		if mime == "" {
			mime = "image/png"
		}
		return fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(r.Data))
	}
	return r.URL
}

// Options configures a single extraction or a batch.
type Options struct {
	// Language is the target language tag; defaults to LangEnglish.
	Language Language

	// PreferAI forces the AI-grade extraction path regardless of language.
	PreferAI bool

	// Backend, when non-empty, names the engine to use unconditionally,
	// bypassing the selection policy.
	Backend string

	// OnProgress, when non-nil, receives stage updates.
	OnProgress ProgressFunc
}

// language returns the effective language tag.
func (o Options) language() Language {
	if o.Language == "" {
		return LangEnglish
	}
	return o.Language
}

// progress reports a stage if a callback is registered.
func (o Options) progress(status string, fraction float64) {
	if o.OnProgress != nil {
		o.OnProgress(status, fraction)
	}
}

// BoundingBox is a word's pixel rectangle in the source image.
type BoundingBox struct {
	X0 int `json:"x0"`
	Y0 int `json:"y0"`
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
}

// Word is one recognized word with its confidence and position.
type Word struct {
	Text       string      `json:"text"`
	Confidence float64     `json:"confidence"`
	BBox       BoundingBox `json:"bbox"`
}

// ExtractionResult is the structured outcome of running OCR on one image.
// A populated Error marks the result as a failure placeholder rather than a
// zero-confidence success.
type ExtractionResult struct {
	Text            string   `json:"text"`
	Confidence      float64  `json:"confidence"` // 0-100, method-defined
	Words           []Word   `json:"words,omitempty"`
	Paragraphs      []string `json:"paragraphs,omitempty"`
	Language        Language `json:"language,omitempty"`
	ProcessedWithAI bool     `json:"processed_with_ai,omitempty"`
	Model           string   `json:"model,omitempty"`
	Error           string   `json:"error,omitempty"`
}

// Failed reports whether the result is a failure placeholder.
func (r ExtractionResult) Failed() bool {
	return r.Error != ""
}

// Engine is the capability interface every extraction backend implements.
// Extract must be total: failures come back inside the result, never as a
// panic or error value.
type Engine interface {
	// Name returns the backend identifier used for explicit selection.
	Name() string

	// Extract runs OCR on one image.
	Extract(ctx context.Context, img ImageRef, opts Options) ExtractionResult
}

// failureResult builds the canonical failure placeholder.
func failureResult(lang Language, err error) ExtractionResult {
	return ExtractionResult{
		Text:       "",
		Confidence: 0,
		Language:   lang,
		Error:      err.Error(),
	}
}

// splitParagraphs breaks extracted text on blank lines, dropping empties.
func splitParagraphs(text string) []string {
	var paragraphs []string
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	return paragraphs
}
