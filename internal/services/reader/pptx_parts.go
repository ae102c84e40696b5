package reader

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/ternarybob/decktag/internal/models"
)

// packageParts holds what the supplemental pass over the PPTX package
// extracts: slide size, per-slide pictures and charts with geometry,
// table header flags, and a histogram of text run languages.
type packageParts struct {
	slideWidth  int64
	slideHeight int64
	slides      map[int]*slideParts
	langCounts  map[string]int
}

type slideParts struct {
	pictures        []pictureParts
	charts          []chartParts
	tableHeaderRows []bool
	minFontSize     float64 // Smallest declared run size in points, 0 when absent
}

type pictureParts struct {
	bounds   models.Bounds
	altText  string
	mimeType string
	data     []byte
}

type chartParts struct {
	bounds    models.Bounds
	chartType string
	series    []models.ChartSeries
}

func (p *packageParts) slide(index int) *slideParts {
	return p.slides[index]
}

// dominantLanguage returns the BCP-47 tag of the most frequent run
// language across the deck, empty when none was declared.
func (p *packageParts) dominantLanguage() string {
	best, bestCount := "", 0
	// Deterministic winner on ties
	langs := make([]string, 0, len(p.langCounts))
	for lang := range p.langCounts {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	for _, lang := range langs {
		if p.langCounts[lang] > bestCount {
			best, bestCount = lang, p.langCounts[lang]
		}
	}
	if best == "" {
		return ""
	}
	return canonicalLanguage(best)
}

var slidePathRe = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// readPackageParts opens the PPTX as a zip archive and extracts the
// parts tabula leaves behind.
func readPackageParts(filename string) (*packageParts, error) {
	zr, err := zip.OpenReader(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open package: %w", err)
	}
	defer zr.Close()

	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}

	parts := &packageParts{
		slides:     make(map[int]*slideParts),
		langCounts: make(map[string]int),
	}

	if err := parts.readSlideSize(files); err != nil {
		return nil, err
	}

	for name := range files {
		m := slidePathRe.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		num, _ := strconv.Atoi(m[1])
		sp, err := parts.readSlide(files, name, num)
		if err != nil {
			return nil, fmt.Errorf("slide %d: %w", num, err)
		}
		// tabula indexes slides from 0 in file order
		parts.slides[num-1] = sp
	}

	return parts, nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// --- presentation.xml: slide size ---

type presentationSizeXML struct {
	SldSz struct {
		Cx int64 `xml:"cx,attr"`
		Cy int64 `xml:"cy,attr"`
	} `xml:"sldSz"`
}

func (p *packageParts) readSlideSize(files map[string]*zip.File) error {
	f, ok := files["ppt/presentation.xml"]
	if !ok {
		return fmt.Errorf("package has no ppt/presentation.xml")
	}
	data, err := readZipFile(f)
	if err != nil {
		return err
	}
	var pres presentationSizeXML
	if err := xml.Unmarshal(data, &pres); err != nil {
		return fmt.Errorf("failed to parse presentation.xml: %w", err)
	}
	p.slideWidth = pres.SldSz.Cx
	p.slideHeight = pres.SldSz.Cy
	return nil
}

// --- slide XML: pictures, charts, tables, languages ---

const nsRelationships = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"

type xfrmPartsXML struct {
	Off struct {
		X int64 `xml:"x,attr"`
		Y int64 `xml:"y,attr"`
	} `xml:"off"`
	Ext struct {
		Cx int64 `xml:"cx,attr"`
		Cy int64 `xml:"cy,attr"`
	} `xml:"ext"`
}

func (x *xfrmPartsXML) bounds() models.Bounds {
	return models.Bounds{X: x.Off.X, Y: x.Off.Y, Width: x.Ext.Cx, Height: x.Ext.Cy}
}

type slidePartsXML struct {
	CSld struct {
		SpTree struct {
			Pic          []picPartsXML          `xml:"pic"`
			GraphicFrame []graphicFramePartsXML `xml:"graphicFrame"`
		} `xml:"spTree"`
	} `xml:"cSld"`
}

type picPartsXML struct {
	NvPicPr struct {
		CNvPr struct {
			Name  string `xml:"name,attr"`
			Descr string `xml:"descr,attr"` // Author-provided alt text in the source deck
		} `xml:"cNvPr"`
	} `xml:"nvPicPr"`
	BlipFill struct {
		Blip struct {
			Embed string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships embed,attr"`
		} `xml:"blip"`
	} `xml:"blipFill"`
	SpPr struct {
		Xfrm *xfrmPartsXML `xml:"xfrm"`
	} `xml:"spPr"`
}

type graphicFramePartsXML struct {
	Xfrm    xfrmPartsXML `xml:"xfrm"`
	Graphic struct {
		GraphicData struct {
			URI   string `xml:"uri,attr"`
			Chart *struct {
				RID string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
			} `xml:"chart"`
			Tbl *struct {
				TblPr struct {
					FirstRow string `xml:"firstRow,attr"`
				} `xml:"tblPr"`
			} `xml:"tbl"`
		} `xml:"graphicData"`
	} `xml:"graphic"`
}

type relationshipsXML struct {
	Relationships []struct {
		ID     string `xml:"Id,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

func (p *packageParts) readSlide(files map[string]*zip.File, slideName string, num int) (*slideParts, error) {
	data, err := readZipFile(files[slideName])
	if err != nil {
		return nil, err
	}

	var slide slidePartsXML
	if err := xml.Unmarshal(data, &slide); err != nil {
		return nil, fmt.Errorf("failed to parse slide XML: %w", err)
	}

	minFont := p.scanRunProperties(data)

	rels, err := readRelationships(files, slideName)
	if err != nil {
		return nil, err
	}

	sp := &slideParts{minFontSize: minFont}

	for _, pic := range slide.CSld.SpTree.Pic {
		part := pictureParts{altText: strings.TrimSpace(pic.NvPicPr.CNvPr.Descr)}
		if pic.SpPr.Xfrm != nil {
			part.bounds = pic.SpPr.Xfrm.bounds()
		}
		if target, ok := rels[pic.BlipFill.Blip.Embed]; ok {
			mediaPath := resolveTarget(slideName, target)
			if f, ok := files[mediaPath]; ok {
				if bytes, err := readZipFile(f); err == nil {
					part.data = bytes
					part.mimeType = mimeFromPath(mediaPath)
				}
			}
		}
		sp.pictures = append(sp.pictures, part)
	}

	for _, frame := range slide.CSld.SpTree.GraphicFrame {
		gd := frame.Graphic.GraphicData
		switch {
		case gd.Tbl != nil:
			sp.tableHeaderRows = append(sp.tableHeaderRows, gd.Tbl.TblPr.FirstRow == "1" || strings.EqualFold(gd.Tbl.TblPr.FirstRow, "true"))

		case gd.Chart != nil:
			chart := chartParts{bounds: frame.Xfrm.bounds()}
			if target, ok := rels[gd.Chart.RID]; ok {
				chartPath := resolveTarget(slideName, target)
				if f, ok := files[chartPath]; ok {
					if bytes, err := readZipFile(f); err == nil {
						chart.chartType, chart.series = parseChart(bytes)
					}
				}
			}
			sp.charts = append(sp.charts, chart)
		}
	}

	return sp, nil
}

func readRelationships(files map[string]*zip.File, partName string) (map[string]string, error) {
	relName := path.Join(path.Dir(partName), "_rels", path.Base(partName)+".rels")
	f, ok := files[relName]
	if !ok {
		return map[string]string{}, nil
	}
	data, err := readZipFile(f)
	if err != nil {
		return nil, err
	}
	var rels relationshipsXML
	if err := xml.Unmarshal(data, &rels); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", relName, err)
	}
	out := make(map[string]string, len(rels.Relationships))
	for _, r := range rels.Relationships {
		out[r.ID] = r.Target
	}
	return out, nil
}

// resolveTarget resolves a relationship target relative to the part
// that declared it, e.g. "../media/image1.png" from "ppt/slides".
func resolveTarget(partName, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Clean(path.Join(path.Dir(partName), target))
}

func mimeFromPath(p string) string {
	switch strings.ToLower(path.Ext(p)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".bmp":
		return "image/bmp"
	case ".tiff", ".tif":
		return "image/tiff"
	case ".emf":
		return "image/emf"
	case ".wmf":
		return "image/wmf"
	case ".svg":
		return "image/svg+xml"
	default:
		return ""
	}
}

// scanRunProperties walks a slide's XML run properties, tallying lang
// attributes for dominant-language detection and returning the smallest
// declared font size in points (sz is in hundredths of a point), 0 when
// no run declares one.
func (p *packageParts) scanRunProperties(data []byte) float64 {
	minFont := 0.0
	decoder := xml.NewDecoder(strings.NewReader(string(data)))
	for {
		tok, err := decoder.Token()
		if err != nil {
			return minFont
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if start.Name.Local != "rPr" && start.Name.Local != "defRPr" && start.Name.Local != "endParaRPr" {
			continue
		}
		for _, attr := range start.Attr {
			switch attr.Name.Local {
			case "lang":
				if attr.Value != "" {
					p.langCounts[attr.Value]++
				}
			case "sz":
				if hundredths, err := strconv.Atoi(attr.Value); err == nil && hundredths > 0 {
					pt := float64(hundredths) / 100
					if minFont == 0 || pt < minFont {
						minFont = pt
					}
				}
			}
		}
	}
}

// --- chart XML ---

type chartPtXML struct {
	Idx int    `xml:"idx,attr"`
	V   string `xml:"v"`
}

type chartCacheXML struct {
	Pt []chartPtXML `xml:"pt"`
}

type chartSerXML struct {
	Tx struct {
		StrRef struct {
			StrCache chartCacheXML `xml:"strCache"`
		} `xml:"strRef"`
	} `xml:"tx"`
	Cat struct {
		StrRef *struct {
			StrCache chartCacheXML `xml:"strCache"`
		} `xml:"strRef"`
		NumRef *struct {
			NumCache chartCacheXML `xml:"numCache"`
		} `xml:"numRef"`
	} `xml:"cat"`
	Val struct {
		NumRef struct {
			NumCache chartCacheXML `xml:"numCache"`
		} `xml:"numRef"`
	} `xml:"val"`
}

type chartKindXML struct {
	Ser []chartSerXML `xml:"ser"`
}

type chartSpaceXML struct {
	Chart struct {
		PlotArea struct {
			BarChart      *chartKindXML `xml:"barChart"`
			Bar3DChart    *chartKindXML `xml:"bar3DChart"`
			LineChart     *chartKindXML `xml:"lineChart"`
			PieChart      *chartKindXML `xml:"pieChart"`
			DoughnutChart *chartKindXML `xml:"doughnutChart"`
			AreaChart     *chartKindXML `xml:"areaChart"`
			ScatterChart  *chartKindXML `xml:"scatterChart"`
			RadarChart    *chartKindXML `xml:"radarChart"`
		} `xml:"plotArea"`
	} `xml:"chart"`
}

// parseChart extracts the chart kind and cached series data from a
// chart part. Unknown kinds return empty values; the vision service can
// still describe the chart from whatever series were found.
func parseChart(data []byte) (string, []models.ChartSeries) {
	var space chartSpaceXML
	if err := xml.Unmarshal(data, &space); err != nil {
		return "", nil
	}

	plot := space.Chart.PlotArea
	kinds := []struct {
		name string
		kind *chartKindXML
	}{
		{"bar", plot.BarChart},
		{"bar", plot.Bar3DChart},
		{"line", plot.LineChart},
		{"pie", plot.PieChart},
		{"doughnut", plot.DoughnutChart},
		{"area", plot.AreaChart},
		{"scatter", plot.ScatterChart},
		{"radar", plot.RadarChart},
	}

	for _, k := range kinds {
		if k.kind == nil || len(k.kind.Ser) == 0 {
			continue
		}
		var series []models.ChartSeries
		for _, ser := range k.kind.Ser {
			s := models.ChartSeries{}
			if pts := ser.Tx.StrRef.StrCache.Pt; len(pts) > 0 {
				s.Name = pts[0].V
			}
			if ser.Cat.StrRef != nil {
				for _, pt := range ser.Cat.StrRef.StrCache.Pt {
					s.Labels = append(s.Labels, pt.V)
				}
			} else if ser.Cat.NumRef != nil {
				for _, pt := range ser.Cat.NumRef.NumCache.Pt {
					s.Labels = append(s.Labels, pt.V)
				}
			}
			for _, pt := range ser.Val.NumRef.NumCache.Pt {
				if v, err := strconv.ParseFloat(pt.V, 64); err == nil {
					s.Values = append(s.Values, v)
				}
			}
			series = append(series, s)
		}
		return k.name, series
	}

	return "", nil
}
