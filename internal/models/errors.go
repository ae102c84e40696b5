package models

import (
	"errors"
	"fmt"
)

// Sentinel errors returned across service boundaries. Handlers map these
// to HTTP status codes with errors.Is.
var (
	// ErrMalformedElement indicates an element that violates structural rules
	ErrMalformedElement = errors.New("malformed element")

	// ErrUnsupportedFormat indicates an upload with an extension the reader does not accept
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrCorruptFile indicates an upload that could not be opened as a presentation archive
	ErrCorruptFile = errors.New("corrupt file")

	// ErrServiceUnavailable indicates the vision provider could not be reached
	ErrServiceUnavailable = errors.New("vision service unavailable")

	// ErrInvalidJobState indicates an operation attempted in a state that does not allow it
	ErrInvalidJobState = errors.New("invalid job state")

	// ErrElementNotFound indicates an edit addressed an element that does not exist
	ErrElementNotFound = errors.New("element not found")

	// ErrJobNotFound indicates a job ID with no stored job
	ErrJobNotFound = errors.New("job not found")

	// ErrSlideNotFound indicates a slide index outside the presentation
	ErrSlideNotFound = errors.New("slide not found")
)

// RenderError carries the renderer's failure reason verbatim so the job
// error message matches what the renderer reported.
type RenderError struct {
	Reason string
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render failure: %s", e.Reason)
}

// NewRenderError wraps a renderer failure reason
func NewRenderError(reason string) *RenderError {
	return &RenderError{Reason: reason}
}
