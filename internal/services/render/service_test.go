package render

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/decktag/internal/common"
	"github.com/ternarybob/decktag/internal/models"
)

// 1x1 transparent PNG
var tinyPNG = []byte{
	0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A,
	0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1F, 0x15, 0xC4,
	0x89, 0x00, 0x00, 0x00, 0x0A, 0x49, 0x44, 0x41,
	0x54, 0x78, 0x9C, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0D, 0x0A, 0x2D, 0xB4, 0x00,
	0x00, 0x00, 0x00, 0x49, 0x45, 0x4E, 0x44, 0xAE,
	0x42, 0x60, 0x82,
}

func testModel() *models.PresentationModel {
	return &models.PresentationModel{
		SourceFile: "deck.pptx",
		SlideCount: 2,
		Language:   "en-US",
		SlideWidth: 9144000, SlideHeight: 6858000,
		Metadata: models.PresentationMetadata{Title: "Quarterly Results", Author: "Jordan Smith"},
		Slides: []models.Slide{
			{
				Index: 0,
				Title: "Quarterly Results",
				Elements: []models.SlideElement{
					{
						ID: "s0-t0", Type: models.ElementTypeText, ReadingOrder: 0,
						Text: &models.TextContent{Content: "Quarterly Results", IsTitle: true},
					},
					{
						ID: "s0-i1", Type: models.ElementTypeImage, ReadingOrder: 1,
						Bounds: models.Bounds{X: 914400, Y: 914400, Width: 1828800, Height: 1828800},
						Image: &models.ImageContent{
							AltText:     "Office building at night",
							Fingerprint: "fp-1",
							MimeType:    "image/png",
							Data:        tinyPNG,
						},
					},
				},
				Notes: "Mention the new campus.",
			},
			{
				Index: 1,
				Title: "Revenue by Region",
				Elements: []models.SlideElement{
					{
						ID: "s1-tbl0", Type: models.ElementTypeTable, ReadingOrder: 0,
						Table: &models.TableContent{
							Rows:      [][]string{{"Region", "Revenue"}, {"EMEA", "4.2M"}, {"APAC", "3.1M"}},
							HeaderRow: true,
						},
					},
					{
						ID: "s1-c1", Type: models.ElementTypeChart, ReadingOrder: 1,
						Chart: &models.ChartContent{
							ChartType:   "bar",
							Description: "Bar chart comparing revenue across four regions.",
						},
					},
				},
			},
		},
	}
}

func TestRenderProducesOnePagePerSlide(t *testing.T) {
	svc := NewService(common.GetLogger())

	pdfBytes, meta, err := svc.Render(context.Background(), testModel())
	require.NoError(t, err)
	require.NotNil(t, meta)

	assert.True(t, bytes.HasPrefix(pdfBytes, []byte("%PDF")))
	assert.Equal(t, 2, meta.PageCount)
	assert.True(t, meta.Tagged)
	assert.True(t, meta.HasTitle)
	assert.Equal(t, "en-US", meta.Language)
	assert.Equal(t, len(pdfBytes), meta.SizeBytes)
}

func TestRenderSkipsDecorativeImages(t *testing.T) {
	svc := NewService(common.GetLogger())

	model := testModel()
	img, err := model.Slides[0].ElementByID("s0-i1")
	require.NoError(t, err)
	require.NoError(t, img.SetDecorative(true))

	pdfBytes, meta, err := svc.Render(context.Background(), model)
	require.NoError(t, err)
	assert.Equal(t, 2, meta.PageCount)
	assert.NotEmpty(t, pdfBytes)
}

func TestRenderRejectsInvalidReadingOrder(t *testing.T) {
	svc := NewService(common.GetLogger())

	model := testModel()
	model.Slides[0].Elements[1].ReadingOrder = 0 // duplicate

	_, _, err := svc.Render(context.Background(), model)
	require.Error(t, err)

	var renderErr *models.RenderError
	require.ErrorAs(t, err, &renderErr)
	assert.NotEmpty(t, renderErr.Reason)
}

func TestRenderObservesCancellation(t *testing.T) {
	svc := NewService(common.GetLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := svc.Render(ctx, testModel())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPageSize(t *testing.T) {
	model := &models.PresentationModel{SlideWidth: 9144000, SlideHeight: 6858000}
	w, h := pageSize(model)
	assert.InDelta(t, 254.0, w, 0.01)
	assert.InDelta(t, 190.5, h, 0.01)

	w, h = pageSize(&models.PresentationModel{})
	assert.Equal(t, defaultPageWidthMM, w)
	assert.Equal(t, defaultPageHeightMM, h)
}

func TestFpdfImageType(t *testing.T) {
	assert.Equal(t, "PNG", fpdfImageType("image/png"))
	assert.Equal(t, "JPG", fpdfImageType("image/jpeg"))
	assert.Equal(t, "GIF", fpdfImageType("image/gif"))
	assert.Equal(t, "", fpdfImageType("image/svg+xml"))
}
