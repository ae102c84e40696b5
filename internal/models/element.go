package models

import (
	"fmt"
	"sort"
)

// ElementType identifies the kind of content a slide element carries
type ElementType string

const (
	ElementTypeText  ElementType = "text"
	ElementTypeImage ElementType = "image"
	ElementTypeTable ElementType = "table"
	ElementTypeChart ElementType = "chart"
	ElementTypeShape ElementType = "shape"
)

// IsValid reports whether the element type is one of the known kinds
func (t ElementType) IsValid() bool {
	switch t {
	case ElementTypeText, ElementTypeImage, ElementTypeTable, ElementTypeChart, ElementTypeShape:
		return true
	}
	return false
}

// Bounds describes element geometry on the slide canvas in EMUs
// (914400 EMUs per inch, the native PPTX coordinate unit).
type Bounds struct {
	X      int64 `json:"x"`
	Y      int64 `json:"y"`
	Width  int64 `json:"width"`
	Height int64 `json:"height"`
}

// TextContent holds the payload of a text element. HeadingLevel is 0
// for body text, 1 for top-level headings.
type TextContent struct {
	Content      string `json:"content"`
	IsTitle      bool   `json:"is_title"`
	HeadingLevel int    `json:"heading_level,omitempty"`
	Placeholder  string `json:"placeholder,omitempty"`
}

// ImageContent holds the payload of an image element.
// AltText and Decorative are mutually exclusive in effect: a decorative
// image is exempt from alt-text rules whatever its AltText holds, and
// user-entered text survives a decorative toggle for later reuse.
// Generated marks alt text produced by the vision service rather than
// a person.
type ImageContent struct {
	AltText     string `json:"alt_text"`
	Generated   bool   `json:"generated"`
	Decorative  bool   `json:"decorative"`
	Fingerprint string `json:"fingerprint,omitempty"` // sha256 hex of the image bytes
	MimeType    string `json:"mime_type,omitempty"`

	// Data holds the raw image bytes during analysis. It is dropped
	// before the model is persisted or returned over the API.
	Data []byte `json:"-"`
}

// TableContent holds the payload of a table element
type TableContent struct {
	Rows      [][]string `json:"rows"`
	HeaderRow bool       `json:"header_row"`
}

// ChartSeries is one data series extracted from an embedded chart
type ChartSeries struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
	Labels []string  `json:"labels,omitempty"`
}

// ChartContent holds the payload of a chart element
type ChartContent struct {
	ChartType   string        `json:"chart_type"`
	Series      []ChartSeries `json:"series,omitempty"`
	Description string        `json:"description"` // Generated textual description
}

// ShapeContent holds the payload of a shape element
type ShapeContent struct {
	Label      string `json:"label,omitempty"`
	Decorative bool   `json:"decorative"`
}

// SlideElement is a single addressable piece of slide content. Exactly
// one payload field matching Type is populated.
type SlideElement struct {
	ID           string      `json:"id" validate:"required"`
	Type         ElementType `json:"type" validate:"required"`
	Bounds       Bounds      `json:"bounds"`
	ReadingOrder int         `json:"reading_order"`

	Text  *TextContent  `json:"text,omitempty"`
	Image *ImageContent `json:"image,omitempty"`
	Table *TableContent `json:"table,omitempty"`
	Chart *ChartContent `json:"chart,omitempty"`
	Shape *ShapeContent `json:"shape,omitempty"`
}

// Validate checks the element's structural rules. A violation is
// reported as ErrMalformedElement with detail.
func (e *SlideElement) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("%w: element has no ID", ErrMalformedElement)
	}
	if !e.Type.IsValid() {
		return fmt.Errorf("%w: element %s has unknown type %q", ErrMalformedElement, e.ID, e.Type)
	}
	if e.Bounds.Width < 0 || e.Bounds.Height < 0 {
		return fmt.Errorf("%w: element %s has negative dimensions", ErrMalformedElement, e.ID)
	}

	payloads := 0
	if e.Text != nil {
		payloads++
	}
	if e.Image != nil {
		payloads++
	}
	if e.Table != nil {
		payloads++
	}
	if e.Chart != nil {
		payloads++
	}
	if e.Shape != nil {
		payloads++
	}
	if payloads != 1 {
		return fmt.Errorf("%w: element %s has %d payloads, want exactly 1", ErrMalformedElement, e.ID, payloads)
	}

	switch e.Type {
	case ElementTypeText:
		if e.Text == nil {
			return fmt.Errorf("%w: element %s typed text without text payload", ErrMalformedElement, e.ID)
		}
	case ElementTypeImage:
		if e.Image == nil {
			return fmt.Errorf("%w: element %s typed image without image payload", ErrMalformedElement, e.ID)
		}
	case ElementTypeTable:
		if e.Table == nil {
			return fmt.Errorf("%w: element %s typed table without table payload", ErrMalformedElement, e.ID)
		}
		if len(e.Table.Rows) > 0 {
			width := len(e.Table.Rows[0])
			for i, row := range e.Table.Rows {
				if len(row) != width {
					return fmt.Errorf("%w: element %s table row %d has %d cells, want %d", ErrMalformedElement, e.ID, i, len(row), width)
				}
			}
		}
	case ElementTypeChart:
		if e.Chart == nil {
			return fmt.Errorf("%w: element %s typed chart without chart payload", ErrMalformedElement, e.ID)
		}
	case ElementTypeShape:
		if e.Shape == nil {
			return fmt.Errorf("%w: element %s typed shape without shape payload", ErrMalformedElement, e.ID)
		}
	}

	return nil
}

// SetAltText assigns alt text to an image element. Generated marks
// machine-produced text; a human edit passes false. Non-empty text
// clears the decorative flag.
func (e *SlideElement) SetAltText(altText string, generated bool) error {
	if e.Type != ElementTypeImage || e.Image == nil {
		return fmt.Errorf("%w: element %s is not an image", ErrMalformedElement, e.ID)
	}
	e.Image.AltText = altText
	e.Image.Generated = generated && altText != ""
	if altText != "" {
		e.Image.Decorative = false
	}
	return nil
}

// SetDecorative marks an image element decorative. Any alt text is
// kept so a user's wording is not lost if the flag is toggled back;
// only the machine-generated marker is cleared.
func (e *SlideElement) SetDecorative(decorative bool) error {
	if e.Type != ElementTypeImage || e.Image == nil {
		return fmt.Errorf("%w: element %s is not an image", ErrMalformedElement, e.ID)
	}
	e.Image.Decorative = decorative
	if decorative {
		e.Image.Generated = false
	}
	return nil
}

// SetHeadingLevel assigns a heading level to a text element. Level 0
// returns the text to body copy; 1 is the highest outline level.
func (e *SlideElement) SetHeadingLevel(level int) error {
	if e.Type != ElementTypeText || e.Text == nil {
		return fmt.Errorf("%w: element %s is not text", ErrMalformedElement, e.ID)
	}
	if level < 0 || level > 6 {
		return fmt.Errorf("%w: heading level %d out of range [0,6] on element %s", ErrMalformedElement, level, e.ID)
	}
	e.Text.HeadingLevel = level
	return nil
}

// Slide is one slide of the presentation with its elements in model order
type Slide struct {
	Index    int            `json:"index"`
	Title    string         `json:"title"`
	Elements []SlideElement `json:"elements"`
	Notes    string         `json:"notes,omitempty"`

	// MinFontSize is the smallest text run size on the slide in points,
	// 0 when the source declared none.
	MinFontSize float64 `json:"min_font_size,omitempty"`

	// Confidence in [0,1] for the inferred reading order. Slides below
	// the configured threshold are flagged for human review.
	Confidence  float64 `json:"confidence" validate:"gte=0,lte=1"`
	NeedsReview bool    `json:"needs_review"`
}

// ElementByID returns the element with the given ID, or ErrElementNotFound
func (s *Slide) ElementByID(id string) (*SlideElement, error) {
	for i := range s.Elements {
		if s.Elements[i].ID == id {
			return &s.Elements[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s on slide %d", ErrElementNotFound, id, s.Index)
}

// ValidateReadingOrder checks that reading order values form a dense
// permutation 0..n-1 over the slide's elements.
func (s *Slide) ValidateReadingOrder() error {
	seen := make(map[int]bool, len(s.Elements))
	for _, e := range s.Elements {
		if e.ReadingOrder < 0 || e.ReadingOrder >= len(s.Elements) {
			return fmt.Errorf("%w: element %s reading order %d out of range [0,%d)", ErrMalformedElement, e.ID, e.ReadingOrder, len(s.Elements))
		}
		if seen[e.ReadingOrder] {
			return fmt.Errorf("%w: duplicate reading order %d on slide %d", ErrMalformedElement, e.ReadingOrder, s.Index)
		}
		seen[e.ReadingOrder] = true
	}
	return nil
}

// MoveElement reassigns an element to the given reading-order position.
// The element is removed from its current position and reinserted at
// target; everything between shifts by one. The result remains a dense
// permutation.
func (s *Slide) MoveElement(id string, target int) error {
	elem, err := s.ElementByID(id)
	if err != nil {
		return err
	}
	if target < 0 || target >= len(s.Elements) {
		return fmt.Errorf("%w: reading order %d out of range [0,%d)", ErrMalformedElement, target, len(s.Elements))
	}

	current := elem.ReadingOrder
	if current == target {
		return nil
	}

	for i := range s.Elements {
		o := s.Elements[i].ReadingOrder
		switch {
		case o == current:
			s.Elements[i].ReadingOrder = target
		case current < target && o > current && o <= target:
			s.Elements[i].ReadingOrder = o - 1
		case current > target && o >= target && o < current:
			s.Elements[i].ReadingOrder = o + 1
		}
	}
	return nil
}

// ElementsInReadingOrder returns the slide's elements sorted by reading order
func (s *Slide) ElementsInReadingOrder() []SlideElement {
	out := make([]SlideElement, len(s.Elements))
	copy(out, s.Elements)
	sort.Slice(out, func(i, j int) bool {
		return out[i].ReadingOrder < out[j].ReadingOrder
	})
	return out
}
