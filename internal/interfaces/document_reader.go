package interfaces

import (
	"context"

	"github.com/ternarybob/decktag/internal/models"
)

// DocumentReader parses an uploaded presentation file into the element model.
//
// Implementations return models.ErrUnsupportedFormat for file types they
// do not accept and models.ErrCorruptFile for files that cannot be opened
// as a presentation archive.
type DocumentReader interface {
	// Read parses the presentation at path into a structured model.
	// Image elements carry their raw bytes and content fingerprint for
	// the analysis stage.
	Read(ctx context.Context, path string) (*models.PresentationModel, error)

	// Supports reports whether the reader accepts the given file extension
	Supports(extension string) bool
}
