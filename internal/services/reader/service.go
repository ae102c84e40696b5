package reader

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/decktag/internal/interfaces"
	"github.com/ternarybob/decktag/internal/models"
	"github.com/ternarybob/decktag/internal/services/altcache"
	"github.com/tsawler/tabula/pptx"
	"golang.org/x/text/language"
)

// Service reads PPTX files into the presentation model. Text blocks,
// tables, titles, notes, and document properties come from the tabula
// parser; pictures, charts, slide size, and run languages come from a
// supplemental pass over the package parts, which tabula does not
// expose.
type Service struct {
	logger arbor.ILogger
}

var _ interfaces.DocumentReader = (*Service)(nil)

// NewService creates a PPTX document reader
func NewService(logger arbor.ILogger) *Service {
	return &Service{logger: logger}
}

// Supports reports whether the reader accepts the given file extension
func (s *Service) Supports(extension string) bool {
	return strings.EqualFold(extension, ".pptx")
}

// Read parses the presentation at path into a structured model
func (s *Service) Read(ctx context.Context, path string) (*models.PresentationModel, error) {
	ext := filepath.Ext(path)
	if !s.Supports(ext) {
		return nil, fmt.Errorf("%w: %s (only .pptx is supported)", models.ErrUnsupportedFormat, ext)
	}

	reader, err := pptx.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrCorruptFile, err)
	}
	defer reader.Close()

	parts, err := readPackageParts(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrCorruptFile, err)
	}

	meta := reader.Metadata()
	model := &models.PresentationModel{
		SourceFile: filepath.Base(path),
		SlideCount: reader.SlideCount(),
		Metadata: models.PresentationMetadata{
			Title:    meta.Title,
			Author:   meta.Author,
			Subject:  meta.Subject,
			Created:  meta.CreationDate,
			Modified: meta.ModDate,
		},
		Language:    parts.dominantLanguage(),
		SlideWidth:  parts.slideWidth,
		SlideHeight: parts.slideHeight,
	}

	for i := 0; i < reader.SlideCount(); i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		src, err := reader.Slide(i)
		if err != nil {
			return nil, fmt.Errorf("%w: slide %d: %v", models.ErrCorruptFile, i+1, err)
		}

		slide, err := s.buildSlide(src, parts.slide(i))
		if err != nil {
			return nil, err
		}
		model.Slides = append(model.Slides, *slide)
	}

	s.logger.Info().
		Str("file", model.SourceFile).
		Int("slides", model.SlideCount).
		Str("language", model.Language).
		Msg("Presentation parsed")

	return model, nil
}

// buildSlide merges tabula's text and table content with the
// supplemental pictures, charts, and table header flags for one slide.
func (s *Service) buildSlide(src *pptx.Slide, extra *slideParts) (*models.Slide, error) {
	slide := &models.Slide{
		Index: src.Index,
		Title: src.Title,
		Notes: src.Notes,
	}
	if extra != nil {
		slide.MinFontSize = extra.minFontSize
	}

	counter := 0
	nextID := func() string {
		counter++
		return fmt.Sprintf("s%d-e%d", src.Index, counter)
	}

	for _, block := range src.Content {
		text := strings.TrimSpace(block.Text)
		if text == "" {
			continue
		}
		slide.Elements = append(slide.Elements, models.SlideElement{
			ID:   nextID(),
			Type: models.ElementTypeText,
			Bounds: models.Bounds{
				X:      int64(block.X),
				Y:      int64(block.Y),
				Width:  int64(block.Width),
				Height: int64(block.Height),
			},
			Text: &models.TextContent{
				Content:      text,
				IsTitle:      block.IsTitle,
				HeadingLevel: headingLevel(block.IsTitle),
				Placeholder:  block.Placeholder,
			},
		})
	}

	for ti, table := range src.Tables {
		rows := make([][]string, len(table.Rows))
		for ri, row := range table.Rows {
			rows[ri] = make([]string, len(row))
			for ci, cell := range row {
				rows[ri][ci] = cell.Text
			}
		}
		headerRow := false
		if extra != nil && ti < len(extra.tableHeaderRows) {
			headerRow = extra.tableHeaderRows[ti]
		}
		slide.Elements = append(slide.Elements, models.SlideElement{
			ID:   nextID(),
			Type: models.ElementTypeTable,
			Bounds: models.Bounds{
				X:      int64(table.X),
				Y:      int64(table.Y),
				Width:  int64(table.Width),
				Height: int64(table.Height),
			},
			Table: &models.TableContent{
				Rows:      rows,
				HeaderRow: headerRow,
			},
		})
	}

	if extra != nil {
		for _, pic := range extra.pictures {
			img := &models.ImageContent{
				AltText:  pic.altText,
				MimeType: pic.mimeType,
				Data:     pic.data,
			}
			if len(pic.data) > 0 {
				img.Fingerprint = altcache.Fingerprint(pic.data)
			}
			slide.Elements = append(slide.Elements, models.SlideElement{
				ID:     nextID(),
				Type:   models.ElementTypeImage,
				Bounds: pic.bounds,
				Image:  img,
			})
		}

		for _, chart := range extra.charts {
			slide.Elements = append(slide.Elements, models.SlideElement{
				ID:     nextID(),
				Type:   models.ElementTypeChart,
				Bounds: chart.bounds,
				Chart: &models.ChartContent{
					ChartType: chart.chartType,
					Series:    chart.series,
				},
			})
		}
	}

	// Parse order is a placeholder; the inferencer reassigns it from
	// geometry during analysis.
	for i := range slide.Elements {
		slide.Elements[i].ReadingOrder = i
	}

	return slide, nil
}

// headingLevel maps a title placeholder to outline level 1; everything
// else starts as body text, adjustable later by edit.
func headingLevel(isTitle bool) int {
	if isTitle {
		return 1
	}
	return 0
}

// canonicalLanguage normalizes a raw lang attribute to a BCP-47 tag
func canonicalLanguage(raw string) string {
	tag, err := language.Parse(raw)
	if err != nil {
		return ""
	}
	return tag.String()
}
