package interfaces

import (
	"context"

	"github.com/ternarybob/decktag/internal/models"
)

// Renderer produces the tagged PDF from an analyzed presentation model.
//
// A failure is returned as *models.RenderError so the caller can store
// the renderer's reason verbatim on the job.
type Renderer interface {
	// Render emits one PDF page per slide with content in reading order.
	// Decorative images are skipped; alt text, document title, and
	// language are written into the PDF metadata.
	Render(ctx context.Context, model *models.PresentationModel) ([]byte, *models.RenderMetadata, error)
}
