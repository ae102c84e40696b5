package interfaces

import (
	"context"

	"github.com/ternarybob/decktag/internal/models"
)

// AnalysisProgressFunc receives per-slide progress during analysis
type AnalysisProgressFunc func(slidesDone, slideTotal int)

// AnalysisService runs the AI analysis stage over a parsed presentation:
// reading-order inference per slide and alt-text generation for images
// and charts. The model is modified in place.
type AnalysisService interface {
	// Analyze fills reading order, confidence, alt text, and chart
	// descriptions. Elements whose alt text could not be generated are
	// returned as issues; the analysis itself still succeeds so the job
	// can continue with human review.
	Analyze(ctx context.Context, model *models.PresentationModel, progress AnalysisProgressFunc) ([]models.AccessibilityIssue, error)
}
