package interfaces

import (
	"context"
	"io"

	"github.com/ternarybob/decktag/internal/models"
)

// ElementEdit is a partial update to a slide element. Nil fields are
// left unchanged. Edits are accepted only while the job is analyzed.
type ElementEdit struct {
	AltText      *string `json:"alt_text,omitempty"`
	Decorative   *bool   `json:"decorative,omitempty"`
	ReadingOrder *int    `json:"reading_order,omitempty"`
	HeadingLevel *int    `json:"heading_level,omitempty"`
}

// JobService runs the conversion pipeline and owns the job state machine
type JobService interface {
	// Create stores the upload, creates a job in the uploaded state, and
	// starts the parse/analyze pipeline in the background.
	Create(ctx context.Context, sourceName string, upload io.Reader) (*models.Job, error)

	// Get returns a job by ID
	Get(ctx context.Context, id string) (*models.Job, error)

	// List returns all jobs newest first
	List(ctx context.Context) ([]*models.Job, error)

	// Delete removes a job and its stored files. In-flight work is
	// cancelled first.
	Delete(ctx context.Context, id string) error

	// EditElement applies a partial element update and re-validates the
	// model. Only legal in the analyzed state.
	EditElement(ctx context.Context, jobID, elementID string, edit ElementEdit) (*models.Job, error)

	// EditSlideTitle sets a slide title and re-validates the model.
	// Only legal in the analyzed state.
	EditSlideTitle(ctx context.Context, jobID string, slideIndex int, title string) (*models.Job, error)

	// Convert moves an analyzed job through converting to complete,
	// rendering the tagged PDF.
	Convert(ctx context.Context, jobID string) (*models.Job, error)

	// Cancel aborts a non-terminal job. The job lands in the error state
	// with the message "cancelled".
	Cancel(ctx context.Context, jobID string) error

	// PDFPath returns the rendered PDF location for a complete job
	PDFPath(ctx context.Context, jobID string) (string, error)

	// Stop cancels all in-flight pipelines and waits for them to finish
	Stop()
}
