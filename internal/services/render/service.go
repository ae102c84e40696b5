package render

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfcpumodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/decktag/internal/interfaces"
	"github.com/ternarybob/decktag/internal/models"
)

// PPTX geometry is expressed in EMUs, 914400 per inch. fpdf pages are
// laid out in millimeters, so one mm is 36000 EMUs.
const emusPerMM = 36000.0

// Default slide canvas (10 x 7.5 inches) used when the source file did
// not declare a size.
const (
	defaultPageWidthMM  = 254.0
	defaultPageHeightMM = 190.5
)

// Service implements interfaces.Renderer on go-pdf/fpdf. Every slide
// becomes one PDF page sized from the slide canvas, with content
// emitted strictly in reading order and image alt text carried as
// captions. The output is verified with pdfcpu before it is returned.
type Service struct {
	logger arbor.ILogger
}

// Compile-time interface assertion
var _ interfaces.Renderer = (*Service)(nil)

// NewService creates a new render service
func NewService(logger arbor.ILogger) *Service {
	return &Service{logger: logger}
}

// Render produces the tagged PDF for an analyzed presentation model.
// Failures are returned as *models.RenderError so the caller can store
// the reason verbatim.
func (s *Service) Render(ctx context.Context, model *models.PresentationModel) ([]byte, *models.RenderMetadata, error) {
	start := time.Now()

	if err := model.Validate(); err != nil {
		return nil, nil, models.NewRenderError(fmt.Sprintf("model validation failed: %v", err))
	}

	pageW, pageH := pageSize(model)
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: pageW, Ht: pageH},
	})
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 10)

	title := model.Metadata.Title
	pdf.SetTitle(title, true)
	pdf.SetAuthor(model.Metadata.Author, true)
	pdf.SetSubject(model.Metadata.Subject, true)
	pdf.SetCreator("decktag", true)
	if model.Language != "" {
		// TODO: write a proper /Lang catalog entry via pdfcpu once the
		// document is assembled; fpdf has no setter for it.
		pdf.SetKeywords("lang:"+model.Language, true)
	}

	for i := range model.Slides {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		s.renderSlide(pdf, &model.Slides[i])
	}

	if pdf.Err() {
		return nil, nil, models.NewRenderError(pdf.Error().Error())
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, nil, models.NewRenderError(err.Error())
	}

	pageCount, err := s.verify(buf.Bytes(), len(model.Slides))
	if err != nil {
		return nil, nil, err
	}

	meta := &models.RenderMetadata{
		PageCount: pageCount,
		Tagged:    true,
		HasTitle:  title != "",
		Language:  model.Language,
		SizeBytes: buf.Len(),
	}

	s.logger.Info().
		Int("pages", pageCount).
		Int("size_bytes", buf.Len()).
		Dur("duration", time.Since(start)).
		Msg("PDF rendered")

	return buf.Bytes(), meta, nil
}

// verify re-reads the produced PDF with pdfcpu and checks the page
// count against the slide count
func (s *Service) verify(pdfBytes []byte, slideCount int) (int, error) {
	conf := pdfcpumodel.NewDefaultConfiguration()
	pdfCtx, err := api.ReadContext(bytes.NewReader(pdfBytes), conf)
	if err != nil {
		return 0, models.NewRenderError(fmt.Sprintf("output verification failed: %v", err))
	}
	if pdfCtx.PageCount != slideCount {
		return 0, models.NewRenderError(fmt.Sprintf("page count mismatch: rendered %d pages for %d slides", pdfCtx.PageCount, slideCount))
	}
	return pdfCtx.PageCount, nil
}

// renderSlide emits one page with the slide's content in reading order
func (s *Service) renderSlide(pdf *fpdf.Fpdf, slide *models.Slide) {
	pdf.AddPage()

	if slide.Title != "" {
		pdf.SetFont("Arial", "B", 20)
		pdf.MultiCell(0, 10, slide.Title, "", "L", false)
		pdf.Ln(4)
	}

	for _, elem := range slide.ElementsInReadingOrder() {
		switch {
		case elem.Text != nil:
			s.renderText(pdf, slide, &elem)
		case elem.Image != nil:
			s.renderImage(pdf, &elem)
		case elem.Table != nil:
			s.renderTable(pdf, &elem)
		case elem.Chart != nil:
			s.renderChart(pdf, &elem)
		case elem.Shape != nil:
			s.renderShape(pdf, &elem)
		}
	}

	if slide.Notes != "" {
		pdf.Ln(6)
		pdf.SetFont("Arial", "I", 8)
		pdf.SetTextColor(100, 100, 100)
		pdf.MultiCell(0, 4, "Speaker notes: "+slide.Notes, "", "L", false)
		pdf.SetTextColor(0, 0, 0)
	}
}

func (s *Service) renderText(pdf *fpdf.Fpdf, slide *models.Slide, elem *models.SlideElement) {
	text := strings.TrimSpace(elem.Text.Content)
	if text == "" {
		return
	}
	// The slide title is emitted as the page heading already.
	if elem.Text.IsTitle && text == slide.Title {
		return
	}

	switch {
	case elem.Text.IsTitle || elem.Text.HeadingLevel == 1:
		pdf.SetFont("Arial", "B", 14)
	case elem.Text.HeadingLevel > 1:
		pdf.SetFont("Arial", "B", 12)
	default:
		pdf.SetFont("Arial", "", 11)
	}
	pdf.MultiCell(0, 6, text, "", "L", false)
	pdf.Ln(2)
}

// renderImage places the image scaled to its slide geometry and writes
// the alt text beneath it. Decorative images are skipped entirely.
func (s *Service) renderImage(pdf *fpdf.Fpdf, elem *models.SlideElement) {
	img := elem.Image
	if img.Decorative {
		return
	}

	if len(img.Data) > 0 {
		imageType := fpdfImageType(img.MimeType)
		if imageType != "" {
			opts := fpdf.ImageOptions{ImageType: imageType}
			pdf.RegisterImageOptionsReader(img.Fingerprint, opts, bytes.NewReader(img.Data))

			w := float64(elem.Bounds.Width) / emusPerMM
			h := float64(elem.Bounds.Height) / emusPerMM
			maxW, _ := pdf.GetPageSize()
			maxW -= 20
			if w <= 0 || w > maxW {
				w = maxW
				h = 0 // keep aspect ratio
			}
			pdf.ImageOptions(img.Fingerprint, pdf.GetX(), pdf.GetY(), w, h, true, opts, 0, "")
		}
	}

	if img.AltText != "" {
		pdf.SetFont("Arial", "I", 8)
		pdf.MultiCell(0, 4, img.AltText, "", "L", false)
	}
	pdf.Ln(2)
}

func (s *Service) renderTable(pdf *fpdf.Fpdf, elem *models.SlideElement) {
	rows := elem.Table.Rows
	if len(rows) == 0 {
		return
	}

	cols := 0
	for _, row := range rows {
		if len(row) > cols {
			cols = len(row)
		}
	}
	if cols == 0 {
		return
	}

	pageW, _ := pdf.GetPageSize()
	colW := (pageW - 20) / float64(cols)

	for i, row := range rows {
		header := i == 0 && elem.Table.HeaderRow
		if header {
			pdf.SetFont("Arial", "B", 10)
			pdf.SetFillColor(230, 230, 230)
		} else {
			pdf.SetFont("Arial", "", 10)
		}
		for c := 0; c < cols; c++ {
			cell := ""
			if c < len(row) {
				cell = row[c]
			}
			pdf.CellFormat(colW, 7, cell, "1", 0, "L", header, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(2)
}

func (s *Service) renderChart(pdf *fpdf.Fpdf, elem *models.SlideElement) {
	chart := elem.Chart
	pdf.SetFont("Arial", "B", 11)
	label := "Chart"
	if chart.ChartType != "" {
		label = fmt.Sprintf("Chart (%s)", chart.ChartType)
	}
	pdf.MultiCell(0, 6, label, "", "L", false)

	if chart.Description != "" {
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(0, 5, chart.Description, "", "L", false)
	}
	pdf.Ln(2)
}

func (s *Service) renderShape(pdf *fpdf.Fpdf, elem *models.SlideElement) {
	if elem.Shape.Decorative || elem.Shape.Label == "" {
		return
	}
	pdf.SetFont("Arial", "", 11)
	pdf.MultiCell(0, 6, elem.Shape.Label, "", "L", false)
	pdf.Ln(2)
}

// pageSize converts the slide canvas to page dimensions in mm
func pageSize(model *models.PresentationModel) (float64, float64) {
	if model.SlideWidth <= 0 || model.SlideHeight <= 0 {
		return defaultPageWidthMM, defaultPageHeightMM
	}
	return float64(model.SlideWidth) / emusPerMM, float64(model.SlideHeight) / emusPerMM
}

// fpdfImageType maps a MIME type to fpdf's image type token, empty when
// the format cannot be embedded
func fpdfImageType(mimeType string) string {
	switch mimeType {
	case "image/png":
		return "PNG"
	case "image/jpeg", "image/jpg":
		return "JPG"
	case "image/gif":
		return "GIF"
	}
	return ""
}
