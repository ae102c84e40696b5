package analysis

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/decktag/internal/common"
	"github.com/ternarybob/decktag/internal/interfaces"
	"github.com/ternarybob/decktag/internal/models"
	"github.com/ternarybob/decktag/internal/services/reading"
)

// Service implements interfaces.AnalysisService. It walks a parsed
// presentation slide by slide, infers reading order, and generates alt
// text for images and charts through the vision service. Vision calls
// for the same image content are shared through the alt-text cache.
type Service struct {
	vision     interfaces.VisionService
	cache      interfaces.AltcacheService
	inferencer *reading.Inferencer
	config     *common.Config
	logger     arbor.ILogger
}

// Compile-time interface assertion
var _ interfaces.AnalysisService = (*Service)(nil)

// NewService creates a new analysis service
func NewService(vision interfaces.VisionService, cache interfaces.AltcacheService, config *common.Config, logger arbor.ILogger) *Service {
	return &Service{
		vision:     vision,
		cache:      cache,
		inferencer: reading.NewInferencer(config.Analysis.DenseRowThreshold, logger),
		config:     config,
		logger:     logger,
	}
}

// Analyze processes every slide in order. A vision failure on one
// element is recorded as an issue and does not fail the analysis; only
// context cancellation aborts the run.
func (s *Service) Analyze(ctx context.Context, model *models.PresentationModel, progress interfaces.AnalysisProgressFunc) ([]models.AccessibilityIssue, error) {
	start := time.Now()
	total := len(model.Slides)
	var issues []models.AccessibilityIssue

	for i := range model.Slides {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		slide := &model.Slides[i]
		confidence := s.inferencer.Infer(slide)
		slide.Confidence = confidence
		slide.NeedsReview = confidence < s.config.Analysis.ConfidenceThreshold

		slideIssues := s.describeVisuals(ctx, slide)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		issues = append(issues, slideIssues...)

		if progress != nil {
			progress(i+1, total)
		}
	}

	s.logger.Info().
		Int("slides", total).
		Int("issues", len(issues)).
		Dur("duration", time.Since(start)).
		Msg("Analysis complete")

	return issues, nil
}

// describeVisuals generates alt text for the slide's images and
// descriptions for its charts, bounded by the configured vision
// concurrency. Elements with author-provided alt text are left alone.
func (s *Service) describeVisuals(ctx context.Context, slide *models.Slide) []models.AccessibilityIssue {
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		issues []models.AccessibilityIssue
	)

	// Semaphore for concurrency control
	sem := make(chan struct{}, s.config.Analysis.VisionConcurrency)

	slideContext := buildSlideContext(slide)

	for i := range slide.Elements {
		elem := &slide.Elements[i]

		switch {
		case elem.Image != nil && needsAltText(elem.Image):
			wg.Add(1)
			go func(elem *models.SlideElement) {
				defer wg.Done()

				sem <- struct{}{}        // Acquire
				defer func() { <-sem }() // Release

				if issue := s.describeImage(ctx, slide.Index, elem, slideContext); issue != nil {
					mu.Lock()
					issues = append(issues, *issue)
					mu.Unlock()
				}
			}(elem)

		case elem.Chart != nil && elem.Chart.Description == "":
			wg.Add(1)
			go func(elem *models.SlideElement) {
				defer wg.Done()

				sem <- struct{}{}        // Acquire
				defer func() { <-sem }() // Release

				if issue := s.describeChart(ctx, slide.Index, elem, slideContext); issue != nil {
					mu.Lock()
					issues = append(issues, *issue)
					mu.Unlock()
				}
			}(elem)
		}
	}

	wg.Wait()
	return issues
}

// describeImage resolves alt text for one image through the cache,
// falling back to a vision call on a miss. Returns a non-nil issue when
// generation failed and the image is left without alt text.
func (s *Service) describeImage(ctx context.Context, slideIndex int, elem *models.SlideElement, slideContext string) *models.AccessibilityIssue {
	img := elem.Image

	entry, err := s.cache.GetOrGenerate(ctx, img.Fingerprint, func(ctx context.Context) (*models.AlttextCacheEntry, error) {
		callCtx, cancel := context.WithTimeout(ctx, s.config.VisionTimeoutDuration())
		defer cancel()

		desc, err := s.vision.DescribeImage(callCtx, img.Data, img.MimeType, slideContext)
		if err != nil {
			return nil, err
		}

		now := time.Now()
		return &models.AlttextCacheEntry{
			Fingerprint: img.Fingerprint,
			AltText:     desc.AltText,
			Decorative:  desc.Decorative,
			Model:       desc.Model,
			CreatedAt:   now,
			UpdatedAt:   now,
		}, nil
	})
	if err != nil {
		s.logger.Warn().
			Err(err).
			Int("slide", slideIndex).
			Str("element_id", elem.ID).
			Msg("Alt text generation failed, element needs manual alt text")
		return &models.AccessibilityIssue{
			Code:       models.IssueAltTextGenerationErr,
			Severity:   models.SeverityWarning,
			SlideIndex: slideIndex,
			ElementID:  elem.ID,
			Message:    fmt.Sprintf("alt text generation failed: %v", err),
		}
	}

	if entry.Decorative {
		if err := elem.SetDecorative(true); err != nil {
			s.logger.Warn().Err(err).Str("element_id", elem.ID).Msg("Failed to mark element decorative")
		}
		return nil
	}
	if entry.AltText == "" {
		return &models.AccessibilityIssue{
			Code:       models.IssueAltTextGenerationErr,
			Severity:   models.SeverityWarning,
			SlideIndex: slideIndex,
			ElementID:  elem.ID,
			Message:    "vision service returned an empty description",
		}
	}
	// Entries without a model name are human edits carried over from
	// the cache; only model-produced text is marked generated.
	if err := elem.SetAltText(entry.AltText, entry.Model != ""); err != nil {
		s.logger.Warn().Err(err).Str("element_id", elem.ID).Msg("Failed to apply generated alt text")
	}
	return nil
}

// describeChart generates a textual description from the chart's
// extracted series data
func (s *Service) describeChart(ctx context.Context, slideIndex int, elem *models.SlideElement, slideContext string) *models.AccessibilityIssue {
	callCtx, cancel := context.WithTimeout(ctx, s.config.VisionTimeoutDuration())
	defer cancel()

	description, err := s.vision.DescribeChart(callCtx, elem.Chart, slideContext)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Int("slide", slideIndex).
			Str("element_id", elem.ID).
			Msg("Chart description generation failed")
		return &models.AccessibilityIssue{
			Code:       models.IssueAltTextGenerationErr,
			Severity:   models.SeverityWarning,
			SlideIndex: slideIndex,
			ElementID:  elem.ID,
			Message:    fmt.Sprintf("chart description generation failed: %v", err),
		}
	}

	elem.Chart.Description = description
	return nil
}

// needsAltText reports whether an image element still needs a vision
// call. Author-provided alt text and decorative markings are respected.
func needsAltText(img *models.ImageContent) bool {
	if img.Decorative || img.AltText != "" {
		return false
	}
	return img.Fingerprint != "" && len(img.Data) > 0
}

// buildSlideContext summarizes the slide's text to ground vision
// prompts. Kept short so it stays within prompt budgets.
func buildSlideContext(slide *models.Slide) string {
	const maxLen = 500

	var b strings.Builder
	if slide.Title != "" {
		b.WriteString(slide.Title)
	}
	for _, elem := range slide.Elements {
		if elem.Text == nil || elem.Text.IsTitle {
			continue
		}
		text := strings.TrimSpace(elem.Text.Content)
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(text)
		if b.Len() >= maxLen {
			break
		}
	}

	context := b.String()
	if len(context) > maxLen {
		context = context[:maxLen]
	}
	return context
}
