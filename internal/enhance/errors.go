package enhance

import (
	"errors"
	"fmt"
)

// Common enhancement errors
var (
	// ErrEmptyCompletion is returned when a model answered with no usable
	// content.
	ErrEmptyCompletion = errors.New("model returned an empty completion")

	// ErrNoModels is returned when the service has no models configured.
	ErrNoModels = errors.New("no enhancement models configured")

	// ErrAllModelsFailed is returned after every model in the fallback chain
	// has been tried without success.
	ErrAllModelsFailed = errors.New("all enhancement models failed")
)

// EnhanceError wraps errors with context about the failed enhancement call.
type EnhanceError struct {
	// Op is the operation that failed (e.g., "Enhance", "EnhanceStream").
	Op string

	// Model names the model involved, when known.
	Model string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *EnhanceError) Error() string {
	switch {
	case e.Model != "" && e.Details != "":
		return fmt.Sprintf("enhance: %s (%s) failed: %s: %v", e.Op, e.Model, e.Details, e.Err)
	case e.Model != "":
		return fmt.Sprintf("enhance: %s (%s) failed: %v", e.Op, e.Model, e.Err)
	case e.Details != "":
		return fmt.Sprintf("enhance: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("enhance: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *EnhanceError) Unwrap() error {
	return e.Err
}

// Is implements error matching for errors.Is.
func (e *EnhanceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// WrapEnhanceError wraps an error as an EnhanceError if it isn't already one.
func WrapEnhanceError(op, model string, err error, details string) error {
	if err == nil {
		return nil
	}

	var ee *EnhanceError
	if errors.As(err, &ee) {
		return err // Already wrapped
	}

	return &EnhanceError{Op: op, Model: model, Err: err, Details: details}
}
