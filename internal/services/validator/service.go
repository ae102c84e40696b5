package validator

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/decktag/internal/common"
	"github.com/ternarybob/decktag/internal/models"
)

// minBodyFontPt is the smallest comfortable body text size; runs below
// it are reported as info findings.
const minBodyFontPt = 12.0

// Service checks a presentation model against accessibility rules and
// produces a scored report. The score starts at 100 and loses the
// configured weight per issue, clamped to [0,100]. A model with no
// error-severity issues is considered ready for tagged PDF output.
type Service struct {
	weights             common.ScoringConfig
	confidenceThreshold float64
	maxAltTextLength    int
	logger              arbor.ILogger
}

// NewService creates a validator with the configured score weights
func NewService(cfg *common.Config, logger arbor.ILogger) *Service {
	return &Service{
		weights:             cfg.Scoring,
		confidenceThreshold: cfg.Analysis.ConfidenceThreshold,
		maxAltTextLength:    cfg.Analysis.MaxAltTextLength,
		logger:              logger,
	}
}

// Validate runs every check against the model and returns the report.
// Before conversion render is nil and readiness is provisional. After
// conversion the renderer's metadata is checked too: missing structural
// tagging or a missing output title are document-wide errors, and
// PDFUAReady additionally requires renderer-confirmed tagging.
// Extra issues from earlier pipeline stages, such as alt-text generation
// failures, are folded into the counts and score.
func (s *Service) Validate(model *models.PresentationModel, render *models.RenderMetadata, extra ...models.AccessibilityIssue) *models.AccessibilityReport {
	var issues []models.AccessibilityIssue
	issues = append(issues, extra...)

	issues = append(issues, s.checkDocument(model)...)
	for i := range model.Slides {
		issues = append(issues, s.checkSlide(&model.Slides[i])...)
	}
	if render != nil {
		issues = append(issues, s.checkRender(render)...)
	}

	report := &models.AccessibilityReport{
		Issues:      issues,
		GeneratedAt: time.Now(),
	}
	s.countContent(model, report)
	for _, issue := range issues {
		switch issue.Severity {
		case models.SeverityError:
			report.ErrorCount++
		case models.SeverityWarning:
			report.WarningCount++
		case models.SeverityInfo:
			report.InfoCount++
		}
	}

	score := 100 -
		report.ErrorCount*s.weights.ErrorWeight -
		report.WarningCount*s.weights.WarningWeight -
		report.InfoCount*s.weights.InfoWeight
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	report.Score = score
	report.PDFUAReady = report.ErrorCount == 0 && (render == nil || render.Tagged)

	s.logger.Debug().
		Int("issues", len(issues)).
		Int("errors", report.ErrorCount).
		Int("warnings", report.WarningCount).
		Int("score", report.Score).
		Bool("pdf_ua_ready", report.PDFUAReady).
		Msg("Accessibility validation completed")

	return report
}

// countContent fills the report's slide, element, and image totals. An
// image counts as covered when it carries alt text or is decorative.
func (s *Service) countContent(model *models.PresentationModel, report *models.AccessibilityReport) {
	report.SlideCount = len(model.Slides)
	for i := range model.Slides {
		slide := &model.Slides[i]
		report.ElementCount += len(slide.Elements)
		for j := range slide.Elements {
			img := slide.Elements[j].Image
			if slide.Elements[j].Type != models.ElementTypeImage || img == nil {
				continue
			}
			report.ImageCount++
			if img.AltText != "" || img.Decorative {
				report.ImagesWithAltText++
			}
		}
	}
}

// checkDocument validates document-level properties
func (s *Service) checkDocument(model *models.PresentationModel) []models.AccessibilityIssue {
	var issues []models.AccessibilityIssue

	if model.Metadata.Title == "" {
		issues = append(issues, models.AccessibilityIssue{
			Code:       models.IssueMissingDocTitle,
			Severity:   models.SeverityError,
			SlideIndex: -1,
			Message:    "Document has no title; screen readers announce the file name instead",
			Suggestion: "Set a title in the presentation properties",
		})
	}

	if model.Language == "" {
		issues = append(issues, models.AccessibilityIssue{
			Code:       models.IssueMissingDocLanguage,
			Severity:   models.SeverityError,
			SlideIndex: -1,
			Message:    "Document language is not set; screen readers cannot pick a voice",
			Suggestion: "Declare a language on the text runs so detection can pick it up",
		})
	}

	return issues
}

// checkRender validates the renderer's reported output structure
func (s *Service) checkRender(render *models.RenderMetadata) []models.AccessibilityIssue {
	var issues []models.AccessibilityIssue

	if !render.Tagged {
		issues = append(issues, models.AccessibilityIssue{
			Code:       models.IssueOutputNotTagged,
			Severity:   models.SeverityError,
			SlideIndex: -1,
			Message:    "Rendered document carries no structural tagging",
			Suggestion: "Re-run the conversion; assistive technology cannot navigate an untagged document",
		})
	}
	if !render.HasTitle {
		issues = append(issues, models.AccessibilityIssue{
			Code:       models.IssueOutputMissingTitle,
			Severity:   models.SeverityError,
			SlideIndex: -1,
			Message:    "Rendered document metadata has no title",
			Suggestion: "Set a document title before converting",
		})
	}

	return issues
}

// checkSlide validates one slide and its elements
func (s *Service) checkSlide(slide *models.Slide) []models.AccessibilityIssue {
	var issues []models.AccessibilityIssue

	if len(slide.Elements) == 0 {
		issues = append(issues, models.AccessibilityIssue{
			Code:       models.IssueEmptySlide,
			Severity:   models.SeverityInfo,
			SlideIndex: slide.Index,
			Message:    fmt.Sprintf("Slide %d has no content", slide.Index+1),
		})
		return issues
	}

	if slide.Title == "" && !hasTopLevelHeading(slide) {
		issues = append(issues, models.AccessibilityIssue{
			Code:       models.IssueMissingSlideTitle,
			Severity:   models.SeverityWarning,
			SlideIndex: slide.Index,
			Message:    fmt.Sprintf("Slide %d has no title or level-1 heading; titles are the primary navigation landmark", slide.Index+1),
			Suggestion: "Add a slide title or mark a text element as a level-1 heading",
		})
	}

	if err := slide.ValidateReadingOrder(); err != nil {
		issues = append(issues, models.AccessibilityIssue{
			Code:       models.IssueInvalidReadingOrder,
			Severity:   models.SeverityError,
			SlideIndex: slide.Index,
			Message:    fmt.Sprintf("Slide %d reading order is not a dense sequence: %v", slide.Index+1, err),
		})
	}

	if slide.Confidence < s.confidenceThreshold {
		issues = append(issues, models.AccessibilityIssue{
			Code:       models.IssueLowConfidenceSlide,
			Severity:   models.SeverityInfo,
			SlideIndex: slide.Index,
			Message:    fmt.Sprintf("Slide %d reading order confidence %.2f is below %.2f; review suggested", slide.Index+1, slide.Confidence, s.confidenceThreshold),
			Suggestion: "Verify the reading order matches the logical content flow",
		})
	}

	if slide.MinFontSize > 0 && slide.MinFontSize < minBodyFontPt {
		issues = append(issues, models.AccessibilityIssue{
			Code:       models.IssueSmallText,
			Severity:   models.SeverityInfo,
			SlideIndex: slide.Index,
			Message:    fmt.Sprintf("Slide %d contains %.1fpt text, which may be difficult to read", slide.Index+1, slide.MinFontSize),
			Suggestion: fmt.Sprintf("Use at least %.0fpt for body text", minBodyFontPt),
			Details:    map[string]interface{}{"font_size": slide.MinFontSize},
		})
	}

	for i := range slide.Elements {
		issues = append(issues, s.checkElement(slide.Index, &slide.Elements[i])...)
	}

	return issues
}

// hasTopLevelHeading reports whether any text element on the slide is
// marked as a level-1 heading
func hasTopLevelHeading(slide *models.Slide) bool {
	for i := range slide.Elements {
		e := &slide.Elements[i]
		if e.Type == models.ElementTypeText && e.Text != nil && e.Text.HeadingLevel == 1 {
			return true
		}
	}
	return false
}

// checkElement validates one element
func (s *Service) checkElement(slideIndex int, elem *models.SlideElement) []models.AccessibilityIssue {
	var issues []models.AccessibilityIssue

	switch elem.Type {
	case models.ElementTypeImage:
		if elem.Image == nil {
			break
		}
		if !elem.Image.Decorative && elem.Image.AltText == "" {
			issues = append(issues, models.AccessibilityIssue{
				Code:       models.IssueMissingAltText,
				Severity:   models.SeverityError,
				SlideIndex: slideIndex,
				ElementID:  elem.ID,
				Message:    fmt.Sprintf("Image %s on slide %d has no alt text and is not marked decorative", elem.ID, slideIndex+1),
				Suggestion: "Add descriptive alt text or mark the image decorative if purely visual",
			})
		}
		if n := utf8.RuneCountInString(elem.Image.AltText); !elem.Image.Decorative && n > s.maxAltTextLength {
			issues = append(issues, models.AccessibilityIssue{
				Code:       models.IssueAltTextTooLong,
				Severity:   models.SeverityInfo,
				SlideIndex: slideIndex,
				ElementID:  elem.ID,
				Message:    fmt.Sprintf("Image %s alt text is %d characters; screen readers read it in full", elem.ID, n),
				Suggestion: fmt.Sprintf("Shorten the alt text to %d characters or fewer", s.maxAltTextLength),
				Details:    map[string]interface{}{"length": n, "limit": s.maxAltTextLength},
			})
		}

	case models.ElementTypeChart:
		if elem.Chart != nil && elem.Chart.Description == "" {
			issues = append(issues, models.AccessibilityIssue{
				Code:       models.IssueMissingAltText,
				Severity:   models.SeverityError,
				SlideIndex: slideIndex,
				ElementID:  elem.ID,
				Message:    fmt.Sprintf("Chart %s on slide %d has no description", elem.ID, slideIndex+1),
				Suggestion: "Add a summary describing the chart's key insight",
			})
		}

	case models.ElementTypeTable:
		if elem.Table != nil && len(elem.Table.Rows) > 0 && !elem.Table.HeaderRow {
			issues = append(issues, models.AccessibilityIssue{
				Code:       models.IssueMissingTableHeader,
				Severity:   models.SeverityWarning,
				SlideIndex: slideIndex,
				ElementID:  elem.ID,
				Message:    fmt.Sprintf("Table %s on slide %d has no header row", elem.ID, slideIndex+1),
				Suggestion: "Mark the first row as a header so cells announce their column",
			})
		}
	}

	return issues
}
