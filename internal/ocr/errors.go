package ocr

import (
	"errors"
	"fmt"
)

// Common extraction errors
var (
	// ErrMissingCredentials is returned when an engine requires an API key or
	// service-account credential that is not configured.
	ErrMissingCredentials = errors.New("missing extraction backend credentials")

	// ErrEmptyImage is returned when an ImageRef carries neither a URL nor
	// inline bytes.
	ErrEmptyImage = errors.New("image reference is empty")

	// ErrUnknownBackend is returned when an explicitly requested backend name
	// does not match any configured engine.
	ErrUnknownBackend = errors.New("unknown extraction backend")

	// ErrUnsupportedLanguage is returned when a language tag falls outside the
	// supported enumeration.
	ErrUnsupportedLanguage = errors.New("unsupported OCR language")

	// ErrNoText is returned when the backend answered but produced no
	// readable text.
	ErrNoText = errors.New("no text extracted from image")

	// ErrExtractionFailed is returned when the backend call itself failed.
	ErrExtractionFailed = errors.New("text extraction failed")

	// ErrCanceled is returned for batch items whose processing was never
	// started because the batch was canceled.
	ErrCanceled = errors.New("extraction canceled")
)

// ExtractError wraps errors with context about the failed extraction.
type ExtractError struct {
	// Op is the operation that failed (e.g., "Extract", "NewGeminiEngine").
	Op string

	// Backend names the engine involved, when known.
	Backend string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *ExtractError) Error() string {
	switch {
	case e.Backend != "" && e.Details != "":
		return fmt.Sprintf("ocr: %s (%s) failed: %s: %v", e.Op, e.Backend, e.Details, e.Err)
	case e.Backend != "":
		return fmt.Sprintf("ocr: %s (%s) failed: %v", e.Op, e.Backend, e.Err)
	case e.Details != "":
		return fmt.Sprintf("ocr: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("ocr: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ExtractError) Unwrap() error {
	return e.Err
}

// Is implements error matching for errors.Is.
func (e *ExtractError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// WrapExtractError wraps an error as an ExtractError if it isn't already one.
func WrapExtractError(op, backend string, err error, details string) error {
	if err == nil {
		return nil
	}

	var ee *ExtractError
	if errors.As(err, &ee) {
		return err // Already wrapped
	}

	return &ExtractError{Op: op, Backend: backend, Err: err, Details: details}
}
