package vision

import (
	"fmt"
	"strings"

	"github.com/ternarybob/decktag/internal/interfaces"
	"github.com/ternarybob/decktag/internal/models"
)

// decorativeSentinel is the exact token the model answers with when an
// image carries no information worth describing.
const decorativeSentinel = "DECORATIVE"

// maxAltTextLength caps generated alt text; screen readers handle short
// descriptions far better than paragraphs.
const maxAltTextLength = 250

const altTextPrompt = `You are generating alt text for an image on a presentation slide so that screen reader users understand it.

Slide context:
%s

Write one concise sentence (under 125 characters when possible) describing what the image shows and why it matters on this slide. Do not start with "Image of" or "Picture of".

If the image is purely decorative (a border, gradient, divider, logo watermark, or background texture that adds no information), respond with exactly the single word DECORATIVE and nothing else.`

const chartPromptHeader = `You are generating an accessible description of a chart on a presentation slide for screen reader users.

Slide context:
%s

Chart type: %s
Data:
%s

Write two to three sentences: what the chart shows, the overall trend or comparison, and the most notable value. Use the actual numbers. Do not speculate beyond the data.`

// buildAltTextPrompt renders the image prompt with slide context
func buildAltTextPrompt(slideContext string) string {
	if strings.TrimSpace(slideContext) == "" {
		slideContext = "(no surrounding slide text)"
	}
	return fmt.Sprintf(altTextPrompt, slideContext)
}

// buildChartPrompt renders the chart prompt with its extracted series data
func buildChartPrompt(chart *models.ChartContent, slideContext string) string {
	if strings.TrimSpace(slideContext) == "" {
		slideContext = "(no surrounding slide text)"
	}

	var data strings.Builder
	for _, series := range chart.Series {
		data.WriteString(series.Name)
		data.WriteString(": ")
		for i, v := range series.Values {
			if i > 0 {
				data.WriteString(", ")
			}
			if i < len(series.Labels) {
				data.WriteString(series.Labels[i])
				data.WriteString("=")
			}
			data.WriteString(strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), "."))
		}
		data.WriteString("\n")
	}
	if data.Len() == 0 {
		data.WriteString("(no series data extracted)")
	}

	chartType := chart.ChartType
	if chartType == "" {
		chartType = "unknown"
	}

	return fmt.Sprintf(chartPromptHeader, slideContext, chartType, data.String())
}

// parseAltTextResponse interprets a model answer, detecting the
// decorative sentinel and trimming over-long descriptions.
func parseAltTextResponse(response, model string) *interfaces.ImageDescription {
	text := strings.TrimSpace(response)

	if strings.EqualFold(text, decorativeSentinel) {
		return &interfaces.ImageDescription{Decorative: true, Model: model}
	}

	// Some models wrap the sentinel in punctuation anyway
	if strings.EqualFold(strings.Trim(text, `."'`), decorativeSentinel) {
		return &interfaces.ImageDescription{Decorative: true, Model: model}
	}

	if len(text) > maxAltTextLength {
		text = strings.TrimSpace(text[:maxAltTextLength])
	}

	return &interfaces.ImageDescription{AltText: text, Model: model}
}
