package analysis

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/decktag/internal/common"
	"github.com/ternarybob/decktag/internal/interfaces"
	"github.com/ternarybob/decktag/internal/models"
	"github.com/ternarybob/decktag/internal/services/altcache"
)

// fakeVision implements interfaces.VisionService for tests
type fakeVision struct {
	calls      int32
	chartCalls int32
	describe   func(data []byte) (*interfaces.ImageDescription, error)
	chart      func(chart *models.ChartContent) (string, error)
}

func (f *fakeVision) DescribeImage(ctx context.Context, data []byte, mimeType, slideContext string) (*interfaces.ImageDescription, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.describe != nil {
		return f.describe(data)
	}
	return &interfaces.ImageDescription{AltText: "a description", Model: "fake"}, nil
}

func (f *fakeVision) DescribeChart(ctx context.Context, chart *models.ChartContent, slideContext string) (string, error) {
	atomic.AddInt32(&f.chartCalls, 1)
	if f.chart != nil {
		return f.chart(chart)
	}
	return "a chart description", nil
}

func (f *fakeVision) ModelName() string { return "fake" }

func (f *fakeVision) HealthCheck(ctx context.Context) error { return nil }

func newTestService(t *testing.T, vision interfaces.VisionService) *Service {
	t.Helper()
	cfg := common.NewDefaultConfig()
	cache := altcache.NewService(nil, common.GetLogger())
	return NewService(vision, cache, cfg, common.GetLogger())
}

func imageElement(id, fingerprint string) models.SlideElement {
	return models.SlideElement{
		ID:   id,
		Type: models.ElementTypeImage,
		Image: &models.ImageContent{
			Fingerprint: fingerprint,
			MimeType:    "image/png",
			Data:        []byte(fingerprint),
		},
	}
}

func TestAnalyzeFillsAltTextAndConfidence(t *testing.T) {
	svc := newTestService(t, &fakeVision{})

	model := &models.PresentationModel{
		SlideCount: 1,
		Slides: []models.Slide{{
			Index: 0,
			Title: "Revenue",
			Elements: []models.SlideElement{
				{ID: "e1", Type: models.ElementTypeText, Text: &models.TextContent{Content: "Revenue", IsTitle: true}},
				imageElement("e2", "fp-1"),
			},
		}},
	}

	var done, total int
	issues, err := svc.Analyze(context.Background(), model, func(d, n int) { done, total = d, n })
	require.NoError(t, err)
	assert.Empty(t, issues)
	assert.Equal(t, 1, done)
	assert.Equal(t, 1, total)

	slide := &model.Slides[0]
	assert.Greater(t, slide.Confidence, 0.0)
	assert.NoError(t, slide.ValidateReadingOrder())

	img, err := slide.ElementByID("e2")
	require.NoError(t, err)
	assert.Equal(t, "a description", img.Image.AltText)
	assert.True(t, img.Image.Generated)
	assert.False(t, img.Image.Decorative)
}

func TestAnalyzeSharesVisionCallsAcrossSlides(t *testing.T) {
	vision := &fakeVision{}
	svc := newTestService(t, vision)

	// The same image content appears on three slides.
	model := &models.PresentationModel{
		SlideCount: 3,
		Slides: []models.Slide{
			{Index: 0, Elements: []models.SlideElement{imageElement("s0-img", "shared")}},
			{Index: 1, Elements: []models.SlideElement{imageElement("s1-img", "shared")}},
			{Index: 2, Elements: []models.SlideElement{imageElement("s2-img", "shared")}},
		},
	}

	issues, err := svc.Analyze(context.Background(), model, nil)
	require.NoError(t, err)
	assert.Empty(t, issues)
	assert.Equal(t, int32(1), atomic.LoadInt32(&vision.calls))

	for i := range model.Slides {
		assert.Equal(t, "a description", model.Slides[i].Elements[0].Image.AltText)
	}
}

func TestAnalyzeContinuesPastVisionFailure(t *testing.T) {
	vision := &fakeVision{
		describe: func(data []byte) (*interfaces.ImageDescription, error) {
			return nil, fmt.Errorf("describe image: %w", models.ErrServiceUnavailable)
		},
	}
	svc := newTestService(t, vision)

	model := &models.PresentationModel{
		SlideCount: 1,
		Slides: []models.Slide{{
			Index:    0,
			Elements: []models.SlideElement{imageElement("e1", "fp-err")},
		}},
	}

	issues, err := svc.Analyze(context.Background(), model, nil)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, models.IssueAltTextGenerationErr, issues[0].Code)
	assert.Equal(t, models.SeverityWarning, issues[0].Severity)
	assert.Equal(t, "e1", issues[0].ElementID)

	// The image is left without alt text for manual review.
	assert.Empty(t, model.Slides[0].Elements[0].Image.AltText)
}

func TestAnalyzeMarksDecorativeImages(t *testing.T) {
	vision := &fakeVision{
		describe: func(data []byte) (*interfaces.ImageDescription, error) {
			return &interfaces.ImageDescription{Decorative: true, Model: "fake"}, nil
		},
	}
	svc := newTestService(t, vision)

	model := &models.PresentationModel{
		SlideCount: 1,
		Slides: []models.Slide{{
			Index:    0,
			Elements: []models.SlideElement{imageElement("e1", "fp-dec")},
		}},
	}

	issues, err := svc.Analyze(context.Background(), model, nil)
	require.NoError(t, err)
	assert.Empty(t, issues)

	img := model.Slides[0].Elements[0].Image
	assert.True(t, img.Decorative)
	assert.Empty(t, img.AltText)
}

func TestAnalyzeRespectsAuthorAltText(t *testing.T) {
	vision := &fakeVision{}
	svc := newTestService(t, vision)

	elem := imageElement("e1", "fp-author")
	elem.Image.AltText = "Office building at night"

	model := &models.PresentationModel{
		SlideCount: 1,
		Slides:     []models.Slide{{Index: 0, Elements: []models.SlideElement{elem}}},
	}

	_, err := svc.Analyze(context.Background(), model, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(0), atomic.LoadInt32(&vision.calls))
	assert.Equal(t, "Office building at night", model.Slides[0].Elements[0].Image.AltText)
	assert.False(t, model.Slides[0].Elements[0].Image.Generated)
}

func TestAnalyzeDescribesCharts(t *testing.T) {
	vision := &fakeVision{}
	svc := newTestService(t, vision)

	model := &models.PresentationModel{
		SlideCount: 1,
		Slides: []models.Slide{{
			Index: 0,
			Elements: []models.SlideElement{{
				ID:   "c1",
				Type: models.ElementTypeChart,
				Chart: &models.ChartContent{
					ChartType: "bar",
					Series:    []models.ChartSeries{{Name: "Revenue", Values: []float64{1, 2, 3}}},
				},
			}},
		}},
	}

	issues, err := svc.Analyze(context.Background(), model, nil)
	require.NoError(t, err)
	assert.Empty(t, issues)
	assert.Equal(t, "a chart description", model.Slides[0].Elements[0].Chart.Description)
	assert.Equal(t, int32(1), atomic.LoadInt32(&vision.chartCalls))
}

func TestAnalyzeObservesCancellation(t *testing.T) {
	svc := newTestService(t, &fakeVision{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	model := &models.PresentationModel{
		SlideCount: 1,
		Slides:     []models.Slide{{Index: 0}},
	}

	_, err := svc.Analyze(ctx, model, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildSlideContextTruncates(t *testing.T) {
	long := make([]byte, 2000)
	for i := range long {
		long[i] = 'x'
	}
	slide := &models.Slide{
		Title: "Intro",
		Elements: []models.SlideElement{
			{ID: "e1", Type: models.ElementTypeText, Text: &models.TextContent{Content: string(long)}},
		},
	}

	ctx := buildSlideContext(slide)
	assert.LessOrEqual(t, len(ctx), 500)
	assert.Contains(t, ctx, "Intro")
}
