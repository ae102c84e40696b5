package models

import (
	"fmt"
	"time"
)

// PresentationMetadata carries the document properties read from the source file
type PresentationMetadata struct {
	Title    string    `json:"title"`
	Author   string    `json:"author,omitempty"`
	Subject  string    `json:"subject,omitempty"`
	Created  time.Time `json:"created,omitempty"`
	Modified time.Time `json:"modified,omitempty"`
}

// PresentationModel is the structured form of an uploaded presentation.
// It is what analysis, editing, and rendering operate on.
type PresentationModel struct {
	SourceFile string               `json:"source_file"`
	SlideCount int                  `json:"slide_count"`
	Slides     []Slide              `json:"slides"`
	Metadata   PresentationMetadata `json:"metadata"`

	// Language is the BCP-47 tag of the dominant document language,
	// empty when it could not be determined.
	Language string `json:"language,omitempty"`

	// Slide canvas size in EMUs, used to scale PDF pages
	SlideWidth  int64 `json:"slide_width"`
	SlideHeight int64 `json:"slide_height"`
}

// SlideByIndex returns the slide at the given index, or ErrSlideNotFound
func (m *PresentationModel) SlideByIndex(index int) (*Slide, error) {
	if index < 0 || index >= len(m.Slides) {
		return nil, fmt.Errorf("%w: index %d, presentation has %d slides", ErrSlideNotFound, index, len(m.Slides))
	}
	return &m.Slides[index], nil
}

// FindElement locates an element by ID across all slides
func (m *PresentationModel) FindElement(elementID string) (*Slide, *SlideElement, error) {
	for i := range m.Slides {
		for j := range m.Slides[i].Elements {
			if m.Slides[i].Elements[j].ID == elementID {
				return &m.Slides[i], &m.Slides[i].Elements[j], nil
			}
		}
	}
	return nil, nil, fmt.Errorf("%w: %s", ErrElementNotFound, elementID)
}

// Validate checks every slide's elements and reading order
func (m *PresentationModel) Validate() error {
	if m.SlideCount != len(m.Slides) {
		return fmt.Errorf("%w: slide count %d does not match %d slides", ErrMalformedElement, m.SlideCount, len(m.Slides))
	}
	for i := range m.Slides {
		for j := range m.Slides[i].Elements {
			if err := m.Slides[i].Elements[j].Validate(); err != nil {
				return err
			}
		}
		if err := m.Slides[i].ValidateReadingOrder(); err != nil {
			return err
		}
	}
	return nil
}

// StripImageData drops transient image bytes before the model is
// persisted or serialized for the API.
func (m *PresentationModel) StripImageData() {
	for i := range m.Slides {
		for j := range m.Slides[i].Elements {
			if img := m.Slides[i].Elements[j].Image; img != nil {
				img.Data = nil
			}
		}
	}
}
