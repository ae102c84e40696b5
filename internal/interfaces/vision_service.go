package interfaces

import (
	"context"

	"github.com/ternarybob/decktag/internal/models"
)

// ImageDescription is the result of a vision call for one image
type ImageDescription struct {
	// AltText is the generated description, empty when Decorative is true
	AltText string

	// Decorative is true when the model judged the image to carry no
	// information (borders, gradients, spacers)
	Decorative bool

	// Model names the vision model that produced the description
	Model string
}

// VisionService generates textual descriptions of visual slide content.
//
// Implementations wrap a cloud vision model. Calls honor the passed
// context for cancellation and apply their own per-call timeout; a
// provider outage surfaces as models.ErrServiceUnavailable.
type VisionService interface {
	// DescribeImage generates alt text for an image. slideContext carries
	// the surrounding slide title and text to ground the description.
	DescribeImage(ctx context.Context, data []byte, mimeType, slideContext string) (*ImageDescription, error)

	// DescribeChart generates a textual description of a chart from its
	// extracted series data.
	DescribeChart(ctx context.Context, chart *models.ChartContent, slideContext string) (string, error)

	// ModelName returns the configured vision model identifier
	ModelName() string

	// HealthCheck verifies the provider is reachable
	HealthCheck(ctx context.Context) error
}
