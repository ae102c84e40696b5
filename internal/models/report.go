package models

import "time"

// IssueSeverity classifies an accessibility issue
type IssueSeverity string

const (
	SeverityError   IssueSeverity = "error"
	SeverityWarning IssueSeverity = "warning"
	SeverityInfo    IssueSeverity = "info"
)

// Issue codes reported by the validator
const (
	IssueMissingAltText       = "missing_alt_text"
	IssueMissingTableHeader   = "missing_table_header"
	IssueMissingSlideTitle    = "missing_slide_title"
	IssueMissingDocLanguage   = "missing_document_language"
	IssueMissingDocTitle      = "missing_document_title"
	IssueInvalidReadingOrder  = "invalid_reading_order"
	IssueLowConfidenceSlide   = "low_confidence_slide"
	IssueEmptySlide           = "empty_slide"
	IssueAltTextGenerationErr = "alt_text_generation_failed"
	IssueAltTextTooLong       = "alt_text_too_long"
	IssueSmallText            = "small_text"
	IssueOutputNotTagged      = "output_not_tagged"
	IssueOutputMissingTitle   = "output_missing_title"
)

// AccessibilityIssue is a single finding against the presentation
// model. Suggestion carries a short remediation hint; Details holds
// structured values behind the message, such as the offending font size.
type AccessibilityIssue struct {
	Code       string                 `json:"code"`
	Severity   IssueSeverity          `json:"severity"`
	SlideIndex int                    `json:"slide_index"`
	ElementID  string                 `json:"element_id,omitempty"`
	Message    string                 `json:"message"`
	Suggestion string                 `json:"suggestion,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
}

// AccessibilityReport summarizes validation of a presentation model.
// Score is 100 minus weighted issue counts, clamped to [0,100].
// PDFUAReady requires zero error-severity issues and, once the document
// has been rendered, renderer-confirmed structural tagging.
type AccessibilityReport struct {
	SlideCount        int                  `json:"total_slides"`
	ElementCount      int                  `json:"total_elements"`
	ImageCount        int                  `json:"total_images"`
	ImagesWithAltText int                  `json:"images_with_alt_text"`
	Issues            []AccessibilityIssue `json:"issues"`
	ErrorCount        int                  `json:"error_count"`
	WarningCount      int                  `json:"warning_count"`
	InfoCount         int                  `json:"info_count"`
	Score             int                  `json:"score" validate:"gte=0,lte=100"`
	PDFUAReady        bool                 `json:"pdf_ua_ready"`
	GeneratedAt       time.Time            `json:"generated_at"`
}

// AlttextCacheEntry is one cached alt-text result keyed by the sha256
// hex fingerprint of the image content. Last writer wins on concurrent
// updates; human edits overwrite generated text.
type AlttextCacheEntry struct {
	Fingerprint string    `json:"fingerprint" badgerhold:"key"`
	AltText     string    `json:"alt_text"`
	Decorative  bool      `json:"decorative"`
	Model       string    `json:"model,omitempty"` // Vision model that produced the text, empty for human edits
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RenderMetadata describes the properties of a rendered PDF
type RenderMetadata struct {
	PageCount int    `json:"page_count"`
	Tagged    bool   `json:"tagged"`
	HasTitle  bool   `json:"has_title"`
	Language  string `json:"language,omitempty"`
	SizeBytes int    `json:"size_bytes"`
}
