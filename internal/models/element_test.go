package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func textElement(id string, order int) SlideElement {
	return SlideElement{
		ID:           id,
		Type:         ElementTypeText,
		ReadingOrder: order,
		Text:         &TextContent{Content: "body"},
	}
}

func imageElement(id string, order int) SlideElement {
	return SlideElement{
		ID:           id,
		Type:         ElementTypeImage,
		ReadingOrder: order,
		Image:        &ImageContent{},
	}
}

func TestElementValidate(t *testing.T) {
	tests := []struct {
		name    string
		element SlideElement
		wantErr bool
	}{
		{
			name:    "Valid Text Element",
			element: textElement("e1", 0),
			wantErr: false,
		},
		{
			name: "Missing ID",
			element: SlideElement{
				Type: ElementTypeText,
				Text: &TextContent{},
			},
			wantErr: true,
		},
		{
			name: "Unknown Type",
			element: SlideElement{
				ID:   "e1",
				Type: ElementType("video"),
				Text: &TextContent{},
			},
			wantErr: true,
		},
		{
			name: "Type Payload Mismatch",
			element: SlideElement{
				ID:    "e1",
				Type:  ElementTypeImage,
				Text:  &TextContent{},
				Image: nil,
			},
			wantErr: true,
		},
		{
			name: "Multiple Payloads",
			element: SlideElement{
				ID:    "e1",
				Type:  ElementTypeText,
				Text:  &TextContent{},
				Image: &ImageContent{},
			},
			wantErr: true,
		},
		{
			// Decorative exempts the image whatever AltText holds.
			name: "Decorative Image With Alt Text",
			element: SlideElement{
				ID:    "e1",
				Type:  ElementTypeImage,
				Image: &ImageContent{AltText: "a chart", Decorative: true},
			},
			wantErr: false,
		},
		{
			name: "Decorative Image Without Alt Text",
			element: SlideElement{
				ID:    "e1",
				Type:  ElementTypeImage,
				Image: &ImageContent{Decorative: true},
			},
			wantErr: false,
		},
		{
			name: "Ragged Table",
			element: SlideElement{
				ID:   "e1",
				Type: ElementTypeTable,
				Table: &TableContent{
					Rows: [][]string{{"a", "b"}, {"c"}},
				},
			},
			wantErr: true,
		},
		{
			name: "Negative Dimensions",
			element: SlideElement{
				ID:     "e1",
				Type:   ElementTypeText,
				Bounds: Bounds{Width: -1},
				Text:   &TextContent{},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.element.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				assert.ErrorIs(t, err, ErrMalformedElement)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAltTextDecorativeExclusion(t *testing.T) {
	elem := imageElement("img1", 0)

	// Setting alt text clears the decorative flag
	require.NoError(t, elem.SetDecorative(true))
	require.NoError(t, elem.SetAltText("bar chart of quarterly revenue", false))
	assert.False(t, elem.Image.Decorative)
	assert.Equal(t, "bar chart of quarterly revenue", elem.Image.AltText)

	// Marking decorative keeps the user's wording for later reuse
	require.NoError(t, elem.SetDecorative(true))
	assert.True(t, elem.Image.Decorative)
	assert.Equal(t, "bar chart of quarterly revenue", elem.Image.AltText)

	// Toggling back restores the element to its pre-decorative state
	require.NoError(t, elem.SetDecorative(false))
	assert.False(t, elem.Image.Decorative)
	assert.Equal(t, "bar chart of quarterly revenue", elem.Image.AltText)

	// Alt text operations on non-images are rejected
	text := textElement("t1", 0)
	assert.ErrorIs(t, text.SetAltText("x", false), ErrMalformedElement)
	assert.ErrorIs(t, text.SetDecorative(true), ErrMalformedElement)
}

func TestGeneratedFlag(t *testing.T) {
	elem := imageElement("img1", 0)

	// Machine text carries the generated marker
	require.NoError(t, elem.SetAltText("a photo of a mountain", true))
	assert.True(t, elem.Image.Generated)

	// A decorative toggle drops the marker but not the text
	require.NoError(t, elem.SetDecorative(true))
	assert.False(t, elem.Image.Generated)
	assert.Equal(t, "a photo of a mountain", elem.Image.AltText)

	// A human rewrite is never marked generated
	require.NoError(t, elem.SetAltText("Mount Cook at dawn", false))
	assert.False(t, elem.Image.Generated)

	// Clearing alt text cannot leave a dangling generated marker
	require.NoError(t, elem.SetAltText("", true))
	assert.False(t, elem.Image.Generated)
}

func TestSetHeadingLevel(t *testing.T) {
	text := textElement("t1", 0)
	require.NoError(t, text.SetHeadingLevel(2))
	assert.Equal(t, 2, text.Text.HeadingLevel)

	require.NoError(t, text.SetHeadingLevel(0))
	assert.Equal(t, 0, text.Text.HeadingLevel)

	assert.ErrorIs(t, text.SetHeadingLevel(7), ErrMalformedElement)
	assert.ErrorIs(t, text.SetHeadingLevel(-1), ErrMalformedElement)

	img := imageElement("img1", 0)
	assert.ErrorIs(t, img.SetHeadingLevel(1), ErrMalformedElement)
}

func TestValidateReadingOrder(t *testing.T) {
	tests := []struct {
		name    string
		orders  []int
		wantErr bool
	}{
		{"Dense Permutation", []int{2, 0, 1}, false},
		{"Single Element", []int{0}, false},
		{"Empty Slide", []int{}, false},
		{"Duplicate Order", []int{0, 1, 1}, true},
		{"Out Of Range", []int{0, 1, 3}, true},
		{"Negative Order", []int{-1, 0, 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slide := Slide{Index: 0}
			for i, o := range tt.orders {
				slide.Elements = append(slide.Elements, textElement("e"+string(rune('a'+i)), o))
			}

			err := slide.ValidateReadingOrder()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedElement)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMoveElement(t *testing.T) {
	newSlide := func() Slide {
		return Slide{
			Index: 0,
			Elements: []SlideElement{
				textElement("a", 0),
				textElement("b", 1),
				textElement("c", 2),
				textElement("d", 3),
			},
		}
	}

	orders := func(s Slide) map[string]int {
		m := make(map[string]int)
		for _, e := range s.Elements {
			m[e.ID] = e.ReadingOrder
		}
		return m
	}

	t.Run("Move Forward", func(t *testing.T) {
		slide := newSlide()
		require.NoError(t, slide.MoveElement("a", 2))
		assert.Equal(t, map[string]int{"a": 2, "b": 0, "c": 1, "d": 3}, orders(slide))
		assert.NoError(t, slide.ValidateReadingOrder())
	})

	t.Run("Move Backward", func(t *testing.T) {
		slide := newSlide()
		require.NoError(t, slide.MoveElement("d", 1))
		assert.Equal(t, map[string]int{"a": 0, "b": 2, "c": 3, "d": 1}, orders(slide))
		assert.NoError(t, slide.ValidateReadingOrder())
	})

	t.Run("Move To Same Position", func(t *testing.T) {
		slide := newSlide()
		require.NoError(t, slide.MoveElement("b", 1))
		assert.Equal(t, map[string]int{"a": 0, "b": 1, "c": 2, "d": 3}, orders(slide))
	})

	t.Run("Unknown Element", func(t *testing.T) {
		slide := newSlide()
		assert.ErrorIs(t, slide.MoveElement("zz", 0), ErrElementNotFound)
	})

	t.Run("Target Out Of Range", func(t *testing.T) {
		slide := newSlide()
		assert.ErrorIs(t, slide.MoveElement("a", 4), ErrMalformedElement)
	})
}

func TestElementsInReadingOrder(t *testing.T) {
	slide := Slide{
		Elements: []SlideElement{
			textElement("c", 2),
			textElement("a", 0),
			textElement("b", 1),
		},
	}

	ordered := slide.ElementsInReadingOrder()
	require.Len(t, ordered, 3)
	assert.Equal(t, "a", ordered[0].ID)
	assert.Equal(t, "b", ordered[1].ID)
	assert.Equal(t, "c", ordered[2].ID)

	// Original slice order untouched
	assert.Equal(t, "c", slide.Elements[0].ID)
}

func TestStripImageData(t *testing.T) {
	model := PresentationModel{
		SlideCount: 1,
		Slides: []Slide{
			{
				Elements: []SlideElement{
					{
						ID:    "img1",
						Type:  ElementTypeImage,
						Image: &ImageContent{Data: []byte{1, 2, 3}, Fingerprint: "abc"},
					},
				},
			},
		},
	}

	model.StripImageData()
	assert.Nil(t, model.Slides[0].Elements[0].Image.Data)
	assert.Equal(t, "abc", model.Slides[0].Elements[0].Image.Fingerprint)
}
