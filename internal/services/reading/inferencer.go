package reading

import (
	"sort"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/decktag/internal/models"
)

// Confidence penalties. Each ambiguity observed while ordering a slide
// lowers confidence from 1.0; the result is clamped to [0,1].
const (
	penaltyMissingGeometry = 0.15 // Element with no usable bounds
	penaltyHeavyOverlap    = 0.20 // Pair of elements overlapping more than half their area
	penaltyDenseRow        = 0.15 // Row with more elements than the configured threshold
)

// Inferencer assigns reading order to slide elements from their
// geometry. The assignment is deterministic: the same slide always
// produces the same order, with ties broken by element ID.
type Inferencer struct {
	denseRowThreshold int
	logger            arbor.ILogger
}

// NewInferencer creates a reading-order inferencer. Rows holding more
// than denseRowThreshold elements at nearly the same vertical position
// (grid layouts) lower the slide's confidence.
func NewInferencer(denseRowThreshold int, logger arbor.ILogger) *Inferencer {
	if denseRowThreshold <= 0 {
		denseRowThreshold = 4
	}
	return &Inferencer{denseRowThreshold: denseRowThreshold, logger: logger}
}

// Infer assigns ReadingOrder 0..n-1 across the slide's elements and
// returns a confidence score for the assignment. Title elements come
// first; the rest are ordered top-to-bottom in row bands, then
// left-to-right within a band.
func (inf *Inferencer) Infer(slide *models.Slide) float64 {
	if len(slide.Elements) == 0 {
		return 1.0
	}

	var titles, body []*models.SlideElement
	for i := range slide.Elements {
		e := &slide.Elements[i]
		if e.Type == models.ElementTypeText && e.Text != nil && (e.Text.IsTitle || e.Text.HeadingLevel == 1) {
			titles = append(titles, e)
		} else {
			body = append(body, e)
		}
	}

	sortGeometric(titles)
	confidence := 1.0

	// Penalize elements the layout gives us nothing to order by
	missing := 0
	for _, e := range body {
		if e.Bounds.Width <= 0 || e.Bounds.Height <= 0 {
			missing++
		}
	}
	confidence -= float64(missing) * penaltyMissingGeometry

	bands := groupIntoBands(body)
	for _, band := range bands {
		sort.SliceStable(band, func(a, b int) bool {
			if band[a].Bounds.X != band[b].Bounds.X {
				return band[a].Bounds.X < band[b].Bounds.X
			}
			return band[a].ID < band[b].ID
		})
	}

	if hasHeavyOverlap(body) {
		confidence -= penaltyHeavyOverlap
	}
	for _, band := range bands {
		if len(band) > inf.denseRowThreshold {
			confidence -= penaltyDenseRow
			break
		}
	}

	order := 0
	for _, e := range titles {
		e.ReadingOrder = order
		order++
	}
	for _, band := range bands {
		for _, e := range band {
			e.ReadingOrder = order
			order++
		}
	}

	if confidence < 0 {
		confidence = 0
	}
	return confidence
}

// sortGeometric orders elements top-to-bottom, left-to-right, ID
func sortGeometric(elems []*models.SlideElement) {
	sort.SliceStable(elems, func(a, b int) bool {
		if elems[a].Bounds.Y != elems[b].Bounds.Y {
			return elems[a].Bounds.Y < elems[b].Bounds.Y
		}
		if elems[a].Bounds.X != elems[b].Bounds.X {
			return elems[a].Bounds.X < elems[b].Bounds.X
		}
		return elems[a].ID < elems[b].ID
	})
}

// groupIntoBands clusters elements into horizontal rows. Two elements
// share a band when their vertical overlap exceeds half the smaller
// height, so slightly misaligned columns still read left-to-right.
func groupIntoBands(elems []*models.SlideElement) [][]*models.SlideElement {
	sorted := make([]*models.SlideElement, len(elems))
	copy(sorted, elems)
	sortGeometric(sorted)

	var bands [][]*models.SlideElement
	for _, e := range sorted {
		placed := false
		if len(bands) > 0 {
			current := bands[len(bands)-1]
			anchor := current[0]
			if verticalOverlap(anchor, e) > minHeight(anchor, e)/2 {
				bands[len(bands)-1] = append(current, e)
				placed = true
			}
		}
		if !placed {
			bands = append(bands, []*models.SlideElement{e})
		}
	}
	return bands
}

func verticalOverlap(a, b *models.SlideElement) int64 {
	top := max64(a.Bounds.Y, b.Bounds.Y)
	bottom := min64(a.Bounds.Y+a.Bounds.Height, b.Bounds.Y+b.Bounds.Height)
	if bottom <= top {
		return 0
	}
	return bottom - top
}

func horizontalOverlap(a, b *models.SlideElement) int64 {
	left := max64(a.Bounds.X, b.Bounds.X)
	right := min64(a.Bounds.X+a.Bounds.Width, b.Bounds.X+b.Bounds.Width)
	if right <= left {
		return 0
	}
	return right - left
}

// hasHeavyOverlap reports whether any pair of elements overlaps by more
// than half the smaller element's area, which makes geometric ordering
// ambiguous.
func hasHeavyOverlap(elems []*models.SlideElement) bool {
	for i := 0; i < len(elems); i++ {
		for j := i + 1; j < len(elems); j++ {
			a, b := elems[i], elems[j]
			overlap := verticalOverlap(a, b) * horizontalOverlap(a, b)
			if overlap == 0 {
				continue
			}
			areaA := a.Bounds.Width * a.Bounds.Height
			areaB := b.Bounds.Width * b.Bounds.Height
			smaller := min64(areaA, areaB)
			if smaller > 0 && overlap*2 > smaller {
				return true
			}
		}
	}
	return false
}

func minHeight(a, b *models.SlideElement) int64 {
	return min64(a.Bounds.Height, b.Bounds.Height)
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
