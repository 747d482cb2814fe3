// Package pipeline orchestrates the full scanned-document flow: batch OCR,
// per-image persistence, human edits, and enhancement into a final report
// document.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"scanreport/internal/enhance"
	"scanreport/internal/logger"
	"scanreport/internal/ocr"
	"scanreport/internal/report"
	"scanreport/internal/store"
)

// Boundary validation errors. Unlike the extraction engines, the orchestrator
// sits at the edge and reports bad input as ordinary error returns.
var (
	// ErrNoImages is returned when a batch is started with no images.
	ErrNoImages = errors.New("no images to process")

	// ErrEmptyImageID is returned when an image carries no identifier.
	ErrEmptyImageID = errors.New("image has no identifier")

	// ErrUnknownImage is returned when text is requested for an image that was
	// neither processed nor edited.
	ErrUnknownImage = errors.New("unknown image")

	// ErrNoUsableText is returned when a report is requested but every image
	// yielded empty text.
	ErrNoUsableText = errors.New("no usable text to enhance")
)

// Image is one pipeline input: a caller-chosen identifier plus the image
// reference handed to the extraction engines.
type Image struct {
	ID  string
	Ref ocr.ImageRef
}

// Result pairs an image identifier with its extraction outcome.
type Result struct {
	ImageID    string               `json:"image_id"`
	Extraction ocr.ExtractionResult `json:"extraction"`
}

// Orchestrator drives images through extraction, buffered editing, and
// enhancement. Safe for use from multiple goroutines; one batch runs at a
// time per instance.
type Orchestrator struct {
	selector *ocr.Selector
	enhancer *enhance.Service
	repo     store.Repository
	log      zerolog.Logger

	mu       sync.Mutex
	order    []string
	edits    map[string]string
	cancelFn context.CancelFunc
}

// New builds an orchestrator. repo may be nil, in which case results are not
// persisted.
func New(selector *ocr.Selector, enhancer *enhance.Service, repo store.Repository) *Orchestrator {
	return &Orchestrator{
		selector: selector,
		enhancer: enhancer,
		repo:     repo,
		edits:    make(map[string]string),
		log:      logger.WithComponent("pipeline"),
	}
}

// ExtractAll runs batch OCR over the images in order. Input validation fails
// fast with an error; extraction failures come back inside the results. Every
// result is persisted keyed by image ID; a persistence failure is logged and
// does not fail the batch.
func (o *Orchestrator) ExtractAll(ctx context.Context, images []Image, opts ocr.Options) ([]Result, error) {
	if len(images) == 0 {
		return nil, ErrNoImages
	}
	for i, img := range images {
		if img.ID == "" {
			return nil, fmt.Errorf("image %d: %w", i, ErrEmptyImageID)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	o.setCancel(cancel)
	defer o.clearCancel(cancel)

	refs := make([]ocr.ImageRef, len(images))
	ids := make([]string, len(images))
	for i, img := range images {
		refs[i] = img.Ref
		ids[i] = img.ID
	}

	o.log.Info().
		Int("images", len(images)).
		Str("language", string(opts.Language)).
		Msg("Starting extraction batch")

	extractions := o.selector.ExtractBatch(ctx, refs, opts)

	results := make([]Result, len(images))
	for i, ext := range extractions {
		results[i] = Result{ImageID: ids[i], Extraction: ext}
		o.persist(ctx, ids[i], ext)
	}

	o.mu.Lock()
	o.order = ids
	o.mu.Unlock()

	return results, nil
}

// persist saves one result; failures are logged, never propagated.
func (o *Orchestrator) persist(ctx context.Context, imageID string, result ocr.ExtractionResult) {
	if o.repo == nil {
		return
	}
	if err := o.repo.SaveResult(ctx, imageID, result); err != nil {
		o.log.Warn().
			Err(err).
			Str("image_id", imageID).
			Msg("Failed to persist extraction result")
	}
}

// Cancel aborts the in-flight batch, if any. Remaining images come back as
// canceled error results; already completed results are kept.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	cancel := o.cancelFn
	o.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (o *Orchestrator) setCancel(cancel context.CancelFunc) {
	o.mu.Lock()
	o.cancelFn = cancel
	o.mu.Unlock()
}

func (o *Orchestrator) clearCancel(cancel context.CancelFunc) {
	o.mu.Lock()
	o.cancelFn = nil
	o.mu.Unlock()
	cancel()
}

// SetText overrides the extracted text for an image. This is the edit step
// between OCR and enhancement.
func (o *Orchestrator) SetText(imageID, text string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.edits[imageID] = text
}

// Text returns the effective text for an image: the edited version when one
// exists, otherwise the persisted extraction text.
func (o *Orchestrator) Text(ctx context.Context, imageID string) (string, error) {
	o.mu.Lock()
	edited, ok := o.edits[imageID]
	o.mu.Unlock()
	if ok {
		return edited, nil
	}

	if o.repo != nil {
		result, err := o.repo.Result(ctx, imageID)
		if err == nil {
			return result.Text, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return "", err
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownImage, imageID)
}

// CombinedText concatenates the effective text of all images from the last
// batch, in input order, separated by blank lines. Images with empty text are
// skipped.
func (o *Orchestrator) CombinedText(ctx context.Context) (string, error) {
	o.mu.Lock()
	ids := append([]string(nil), o.order...)
	o.mu.Unlock()

	var parts []string
	for _, id := range ids {
		text, err := o.Text(ctx, id)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(text) != "" {
			parts = append(parts, strings.TrimSpace(text))
		}
	}
	if len(parts) == 0 {
		return "", ErrNoUsableText
	}
	return strings.Join(parts, "\n\n"), nil
}

// BuildReport enhances the combined text of the last batch into a report
// document.
func (o *Orchestrator) BuildReport(ctx context.Context, opts enhance.Options) (report.Document, error) {
	text, err := o.CombinedText(ctx)
	if err != nil {
		return report.Document{}, err
	}

	o.log.Info().
		Int("text_length", len(text)).
		Str("language", opts.Language).
		Msg("Building report from combined text")

	return o.enhancer.Enhance(ctx, text, opts), nil
}

// Run executes the full flow in one call: batch extraction followed by
// enhancement of the combined text. The per-image results are returned
// alongside the final document so callers can inspect partial failures.
func (o *Orchestrator) Run(ctx context.Context, images []Image, ocrOpts ocr.Options, enhOpts enhance.Options) (report.Document, []Result, error) {
	results, err := o.ExtractAll(ctx, images, ocrOpts)
	if err != nil {
		return report.Document{}, nil, err
	}

	doc, err := o.BuildReport(ctx, enhOpts)
	if err != nil {
		return report.Document{}, results, err
	}
	return doc, results, nil
}
