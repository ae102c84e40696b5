package vision

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/decktag/internal/models"
)

func TestParseAltTextResponse(t *testing.T) {
	tests := []struct {
		name           string
		response       string
		wantDecorative bool
		wantAltText    string
	}{
		{
			name:        "Plain Description",
			response:    "Bar chart comparing quarterly revenue across regions.",
			wantAltText: "Bar chart comparing quarterly revenue across regions.",
		},
		{
			name:           "Decorative Sentinel",
			response:       "DECORATIVE",
			wantDecorative: true,
		},
		{
			name:           "Decorative Sentinel Lowercase",
			response:       "decorative",
			wantDecorative: true,
		},
		{
			name:           "Decorative Sentinel With Punctuation",
			response:       `"DECORATIVE."`,
			wantDecorative: true,
		},
		{
			name:        "Whitespace Trimmed",
			response:    "  Team photo at the annual offsite.  \n",
			wantAltText: "Team photo at the annual offsite.",
		},
		{
			name:        "Decorative Mentioned In Prose Is Not Sentinel",
			response:    "A decorative vase on a wooden table.",
			wantAltText: "A decorative vase on a wooden table.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseAltTextResponse(tt.response, "test-model")
			assert.Equal(t, tt.wantDecorative, result.Decorative)
			assert.Equal(t, tt.wantAltText, result.AltText)
			assert.Equal(t, "test-model", result.Model)
		})
	}
}

func TestParseAltTextResponseTruncates(t *testing.T) {
	long := strings.Repeat("a very long description ", 50)
	result := parseAltTextResponse(long, "test-model")
	assert.LessOrEqual(t, len(result.AltText), maxAltTextLength)
	assert.False(t, result.Decorative)
}

func TestBuildChartPrompt(t *testing.T) {
	chart := &models.ChartContent{
		ChartType: "bar",
		Series: []models.ChartSeries{
			{
				Name:   "Revenue",
				Values: []float64{1.5, 2, 3.25},
				Labels: []string{"Q1", "Q2", "Q3"},
			},
		},
	}

	prompt := buildChartPrompt(chart, "Slide: Quarterly results")
	assert.Contains(t, prompt, "Chart type: bar")
	assert.Contains(t, prompt, "Revenue: Q1=1.5, Q2=2, Q3=3.25")
	assert.Contains(t, prompt, "Quarterly results")
}

func TestBuildChartPromptNoData(t *testing.T) {
	prompt := buildChartPrompt(&models.ChartContent{}, "")
	assert.Contains(t, prompt, "(no series data extracted)")
	assert.Contains(t, prompt, "Chart type: unknown")
	assert.Contains(t, prompt, "(no surrounding slide text)")
}
