// Package store persists extraction results keyed by image ID. Two adapters
// satisfy the same interface: an in-memory map for tests and single-shot runs,
// and a SQLite database for anything that should survive a restart.
package store

import (
	"context"
	"errors"

	"scanreport/internal/ocr"
)

// ErrNotFound is returned when no result is stored under the given image ID.
var ErrNotFound = errors.New("no result stored for image")

// Repository stores and retrieves extraction results.
type Repository interface {
	// SaveResult stores or replaces the result for an image.
	SaveResult(ctx context.Context, imageID string, result ocr.ExtractionResult) error

	// Result returns the stored result, or ErrNotFound.
	Result(ctx context.Context, imageID string) (ocr.ExtractionResult, error)

	// Results returns all stored results keyed by image ID.
	Results(ctx context.Context) (map[string]ocr.ExtractionResult, error)

	// Clear removes every stored result.
	Clear(ctx context.Context) error
}
