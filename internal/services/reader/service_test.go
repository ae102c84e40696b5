package reader

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/decktag/internal/models"
)

// tinyPNG is a 1x1 transparent PNG
var tinyPNG = []byte{
	0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00, 0x00, 0x0D,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1F, 0x15, 0xC4, 0x89, 0x00, 0x00, 0x00,
	0x0D, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9C, 0x62, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0D, 0x0A, 0x2D, 0xB4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4E, 0x44, 0xAE, 0x42, 0x60, 0x82,
}

func writeZipEntry(t *testing.T, zw *zip.Writer, name string, content []byte) {
	t.Helper()
	w, err := zw.Create(name)
	require.NoError(t, err)
	_, err = w.Write(content)
	require.NoError(t, err)
}

// createTestPPTX builds a one-slide deck with a title, a body text box,
// and a picture with author alt text.
func createTestPPTX(t *testing.T) string {
	t.Helper()

	name := filepath.Join(t.TempDir(), "deck.pptx")
	f, err := os.Create(name)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)

	writeZipEntry(t, zw, "[Content_Types].xml", []byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
  <Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
  <Default Extension="xml" ContentType="application/xml"/>
  <Default Extension="png" ContentType="image/png"/>
  <Override PartName="/ppt/presentation.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"/>
  <Override PartName="/ppt/slides/slide1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slide+xml"/>
</Types>`))

	writeZipEntry(t, zw, "_rels/.rels", []byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="ppt/presentation.xml"/>
</Relationships>`))

	writeZipEntry(t, zw, "ppt/_rels/presentation.xml.rels", []byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide" Target="slides/slide1.xml"/>
</Relationships>`))

	writeZipEntry(t, zw, "ppt/presentation.xml", []byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:presentation xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
  <p:sldIdLst>
    <p:sldId id="256" r:id="rId1"/>
  </p:sldIdLst>
  <p:sldSz cx="9144000" cy="6858000"/>
</p:presentation>`))

	writeZipEntry(t, zw, "ppt/slides/_rels/slide1.xml.rels", []byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="../media/image1.png"/>
</Relationships>`))

	writeZipEntry(t, zw, "ppt/slides/slide1.xml", []byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sld xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main" xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
  <p:cSld>
    <p:spTree>
      <p:nvGrpSpPr>
        <p:cNvPr id="1" name=""/>
      </p:nvGrpSpPr>
      <p:sp>
        <p:nvSpPr>
          <p:cNvPr id="2" name="Title 1"/>
          <p:nvPr><p:ph type="title"/></p:nvPr>
        </p:nvSpPr>
        <p:spPr>
          <a:xfrm>
            <a:off x="457200" y="274638"/>
            <a:ext cx="8229600" cy="1143000"/>
          </a:xfrm>
        </p:spPr>
        <p:txBody>
          <a:bodyPr/>
          <a:p>
            <a:r>
              <a:rPr lang="en-US"/>
              <a:t>Quarterly Results</a:t>
            </a:r>
          </a:p>
        </p:txBody>
      </p:sp>
      <p:sp>
        <p:nvSpPr>
          <p:cNvPr id="3" name="Content 1"/>
          <p:nvPr><p:ph type="body" idx="1"/></p:nvPr>
        </p:nvSpPr>
        <p:spPr>
          <a:xfrm>
            <a:off x="457200" y="1600200"/>
            <a:ext cx="4114800" cy="4525963"/>
          </a:xfrm>
        </p:spPr>
        <p:txBody>
          <a:bodyPr/>
          <a:p>
            <a:r>
              <a:rPr lang="en-US"/>
              <a:t>Revenue grew 12 percent</a:t>
            </a:r>
          </a:p>
        </p:txBody>
      </p:sp>
      <p:pic>
        <p:nvPicPr>
          <p:cNvPr id="4" name="Picture 1" descr="Office building at night"/>
          <p:cNvPicPr/>
          <p:nvPr/>
        </p:nvPicPr>
        <p:blipFill>
          <a:blip r:embed="rId2"/>
        </p:blipFill>
        <p:spPr>
          <a:xfrm>
            <a:off x="4800600" y="1600200"/>
            <a:ext cx="3886200" cy="4525963"/>
          </a:xfrm>
        </p:spPr>
      </p:pic>
    </p:spTree>
  </p:cSld>
</p:sld>`))

	writeZipEntry(t, zw, "ppt/media/image1.png", tinyPNG)

	require.NoError(t, zw.Close())
	return name
}

func TestSupports(t *testing.T) {
	svc := NewService(arbor.NewLogger())
	assert.True(t, svc.Supports(".pptx"))
	assert.True(t, svc.Supports(".PPTX"))
	assert.False(t, svc.Supports(".ppt"))
	assert.False(t, svc.Supports(".key"))
}

func TestReadUnsupportedFormat(t *testing.T) {
	svc := NewService(arbor.NewLogger())
	_, err := svc.Read(context.Background(), "deck.key")
	assert.ErrorIs(t, err, models.ErrUnsupportedFormat)
}

func TestReadCorruptFile(t *testing.T) {
	svc := NewService(arbor.NewLogger())

	name := filepath.Join(t.TempDir(), "bad.pptx")
	require.NoError(t, os.WriteFile(name, []byte("this is not a zip archive"), 0644))

	_, err := svc.Read(context.Background(), name)
	assert.ErrorIs(t, err, models.ErrCorruptFile)
}

func TestReadPresentation(t *testing.T) {
	svc := NewService(arbor.NewLogger())
	path := createTestPPTX(t)

	model, err := svc.Read(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 1, model.SlideCount)
	assert.Equal(t, int64(9144000), model.SlideWidth)
	assert.Equal(t, int64(6858000), model.SlideHeight)
	assert.Equal(t, "en-US", model.Language)

	require.Len(t, model.Slides, 1)
	slide := model.Slides[0]
	assert.Equal(t, "Quarterly Results", slide.Title)

	var texts, images int
	var img *models.SlideElement
	for i := range slide.Elements {
		switch slide.Elements[i].Type {
		case models.ElementTypeText:
			texts++
		case models.ElementTypeImage:
			images++
			img = &slide.Elements[i]
		}
	}
	assert.Equal(t, 2, texts)
	require.Equal(t, 1, images)

	// Author-provided alt text, bytes, and fingerprint survive parsing
	assert.Equal(t, "Office building at night", img.Image.AltText)
	assert.Equal(t, "image/png", img.Image.MimeType)
	assert.Equal(t, tinyPNG, img.Image.Data)
	assert.Len(t, img.Image.Fingerprint, 64)
	assert.Equal(t, int64(4800600), img.Bounds.X)
	assert.Equal(t, int64(3886200), img.Bounds.Width)

	// Parse assigns a dense provisional reading order
	assert.NoError(t, slide.ValidateReadingOrder())
}

func TestResolveTarget(t *testing.T) {
	tests := []struct {
		name   string
		part   string
		target string
		want   string
	}{
		{"Relative Up", "ppt/slides/slide1.xml", "../media/image1.png", "ppt/media/image1.png"},
		{"Sibling", "ppt/slides/slide1.xml", "slide2.xml", "ppt/slides/slide2.xml"},
		{"Absolute", "ppt/slides/slide1.xml", "/ppt/media/image1.png", "ppt/media/image1.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveTarget(tt.part, tt.target))
		})
	}
}

func TestParseChart(t *testing.T) {
	chartXML := []byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<c:chartSpace xmlns:c="http://schemas.openxmlformats.org/drawingml/2006/chart">
  <c:chart>
    <c:plotArea>
      <c:barChart>
        <c:ser>
          <c:tx><c:strRef><c:strCache><c:pt idx="0"><c:v>Revenue</c:v></c:pt></c:strCache></c:strRef></c:tx>
          <c:cat><c:strRef><c:strCache>
            <c:pt idx="0"><c:v>Q1</c:v></c:pt>
            <c:pt idx="1"><c:v>Q2</c:v></c:pt>
          </c:strCache></c:strRef></c:cat>
          <c:val><c:numRef><c:numCache>
            <c:pt idx="0"><c:v>10.5</c:v></c:pt>
            <c:pt idx="1"><c:v>12.25</c:v></c:pt>
          </c:numCache></c:numRef></c:val>
        </c:ser>
      </c:barChart>
    </c:plotArea>
  </c:chart>
</c:chartSpace>`)

	kind, series := parseChart(chartXML)
	assert.Equal(t, "bar", kind)
	require.Len(t, series, 1)
	assert.Equal(t, "Revenue", series[0].Name)
	assert.Equal(t, []string{"Q1", "Q2"}, series[0].Labels)
	assert.Equal(t, []float64{10.5, 12.25}, series[0].Values)
}

func TestDominantLanguage(t *testing.T) {
	parts := &packageParts{langCounts: map[string]int{"en-US": 5, "de-DE": 2}}
	assert.Equal(t, "en-US", parts.dominantLanguage())

	empty := &packageParts{langCounts: map[string]int{}}
	assert.Empty(t, empty.dominantLanguage())
}
