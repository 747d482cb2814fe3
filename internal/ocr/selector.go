package ocr

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"scanreport/internal/logger"
)

// Selector routes each image to an extraction engine.
//
// Policy, in order:
//  1. An explicit backend preference is honored unconditionally.
//  2. French-language input, or a caller that set PreferAI, goes to the
//     handwriting-oriented vision engine.
//  3. Otherwise images classified as likely handwritten go to the vision
//     engine; the rest use the cheaper local engine.
type Selector struct {
	local  Engine
	vision Engine            // handwriting-oriented hosted path
	byName map[string]Engine // explicit-preference lookup
	log    zerolog.Logger
}

// NewSelector builds a selector. local and vision are the engines driven by
// the automatic policy; extra engines (second vendor, Cloud Vision) are
// reachable by name only. Nil engines are allowed and simply unavailable.
func NewSelector(local, vision Engine, extra ...Engine) *Selector {
	s := &Selector{
		local:  local,
		vision: vision,
		byName: make(map[string]Engine),
		log:    logger.WithComponent("ocr-selector"),
	}
	for _, e := range []Engine{local, vision} {
		if e != nil {
			s.byName[e.Name()] = e
		}
	}
	for _, e := range extra {
		if e != nil {
			s.byName[e.Name()] = e
		}
	}
	return s
}

// likelyHandwritten classifies an image as handwriting. This is an explicit
// always-true default: the product assumes scanned input is handwritten until
// a real classifier replaces this.
func (s *Selector) likelyHandwritten(ImageRef) bool {
	return true
}

// ExtractOne routes a single image through the selection policy.
func (s *Selector) ExtractOne(ctx context.Context, img ImageRef, opts Options) ExtractionResult {
	lang := opts.language()

	if img.IsZero() {
		return failureResult(lang, ErrEmptyImage)
	}

	engine, err := s.choose(img, opts)
	if err != nil {
		return failureResult(lang, err)
	}

	s.log.Debug().
		Str("backend", engine.Name()).
		Str("language", string(lang)).
		Bool("prefer_ai", opts.PreferAI).
		Msg("Selected extraction backend")

	return engine.Extract(ctx, img, opts)
}

// choose applies the selection policy.
func (s *Selector) choose(img ImageRef, opts Options) (Engine, error) {
	if opts.Backend != "" {
		engine, ok := s.byName[opts.Backend]
		if !ok {
			return nil, WrapExtractError("choose", opts.Backend, ErrUnknownBackend, "")
		}
		return engine, nil
	}

	if opts.language().includesFrench() || opts.PreferAI {
		return s.aiEngine()
	}

	if s.likelyHandwritten(img) {
		return s.aiEngine()
	}
	return s.localEngine()
}

func (s *Selector) aiEngine() (Engine, error) {
	if s.vision == nil {
		return nil, WrapExtractError("aiEngine", BackendTogether, ErrMissingCredentials, "vision backend not configured")
	}
	return s.vision, nil
}

func (s *Selector) localEngine() (Engine, error) {
	if s.local == nil {
		return nil, WrapExtractError("localEngine", BackendTesseract, ErrUnknownBackend, "local backend not configured")
	}
	return s.local, nil
}

// ExtractBatch processes images strictly sequentially, preserving input order
// in the output: result[i] always corresponds to imgs[i]. One image's failure
// does not halt the rest. Overall progress is reported as
// (completed + currentFraction) / total. When ctx is canceled mid-batch, no
// further extractions are started and the remaining slots are filled with
// canceled error results so index correspondence survives.
func (s *Selector) ExtractBatch(ctx context.Context, imgs []ImageRef, opts Options) []ExtractionResult {
	results := make([]ExtractionResult, len(imgs))
	total := len(imgs)

	for i, img := range imgs {
		if err := ctx.Err(); err != nil {
			s.log.Warn().
				Int("remaining", total-i).
				Msg("Batch canceled, skipping remaining images")
			for j := i; j < total; j++ {
				results[j] = failureResult(opts.language(), ErrCanceled)
			}
			return results
		}

		opts.progress(fmt.Sprintf("Processing image %d of %d", i+1, total), float64(i)/float64(total))

		itemOpts := opts
		if opts.OnProgress != nil {
			index := i
			itemOpts.OnProgress = func(status string, progress float64) {
				opts.OnProgress(status, (float64(index)+progress)/float64(total))
			}
		}

		results[i] = s.ExtractOne(ctx, img, itemOpts)

		if results[i].Failed() {
			s.log.Warn().
				Int("index", i).
				Str("error", results[i].Error).
				Msg("Image extraction failed, continuing batch")
		}
	}

	opts.progress("Batch completed", 1.0)
	return results
}
