package quant

import (
	"sort"

	"github.com/deepteams/animgif/oklab"
)

// MedianCut builds palettes by adaptive box splitting in OKLab space.
//
// Starting from a single box holding every sample, the box with the
// largest spread is repeatedly split at the median of its longest axis
// until the target count is reached or no box with extent remains; a box
// of identical samples is never split. Each final box contributes the
// arithmetic mean of its members as one palette entry.
//
// The builder is deterministic for a fixed input ordering: box selection
// scans in slice order and the axis sort is stable with respect to the
// remaining coordinates only through the input order.
type MedianCut struct{}

// Build implements PaletteBuilder. Empty input or a zero target yields an
// empty palette. When the samples hold fewer distinct colors than
// requested, the palette comes out smaller than targetSize; no synthetic
// duplicates are produced.
func (MedianCut) Build(samples []oklab.Color, targetSize int) Palette {
	if len(samples) == 0 || targetSize <= 0 {
		return nil
	}
	if targetSize > MaxPaletteSize {
		targetSize = MaxPaletteSize
	}

	own := make([]oklab.Color, len(samples))
	copy(own, samples)

	boxes := []*colorBox{newColorBox(own)}
	for len(boxes) < targetSize {
		// Pick the splittable box with the largest spread score.
		split := -1
		var splitScore float32
		for i, b := range boxes {
			if !b.canSplit() {
				continue
			}
			if s := b.spread(); split < 0 || s > splitScore {
				split = i
				splitScore = s
			}
		}
		if split < 0 {
			break
		}
		lo, hi := boxes[split].split()
		boxes[split] = lo
		boxes = append(boxes, hi)
	}

	pal := make(Palette, len(boxes))
	for i, b := range boxes {
		pal[i] = b.average()
	}
	return pal
}

// colorBox is an axis-aligned partition of the sample multiset, used only
// during palette construction.
type colorBox struct {
	samples            []oklab.Color
	minL, maxL         float32
	minA, maxA         float32
	minB, maxB         float32
}

func newColorBox(samples []oklab.Color) *colorBox {
	b := &colorBox{samples: samples}
	for i, c := range samples {
		if i == 0 {
			b.minL, b.maxL = c.L, c.L
			b.minA, b.maxA = c.A, c.A
			b.minB, b.maxB = c.B, c.B
			continue
		}
		b.minL = min(b.minL, c.L)
		b.maxL = max(b.maxL, c.L)
		b.minA = min(b.minA, c.A)
		b.maxA = max(b.maxA, c.A)
		b.minB = min(b.minB, c.B)
		b.maxB = max(b.maxB, c.B)
	}
	return b
}

// canSplit reports whether splitting the box can yield distinct entries.
// A box of identical samples has zero extent on every axis; splitting it
// would only manufacture duplicate palette colors.
func (b *colorBox) canSplit() bool {
	if len(b.samples) < 2 {
		return false
	}
	return b.maxL > b.minL || b.maxA > b.minA || b.maxB > b.minB
}

// spread scores the box for split selection. Lightness is weighted twice
// as heavily as the chroma axes: the eye is more sensitive to luminance
// error than to chroma error.
func (b *colorBox) spread() float32 {
	return 2*(b.maxL-b.minL) + (b.maxA - b.minA) + (b.maxB - b.minB)
}

// split sorts the box along its longest axis and cuts at the median
// index.
func (b *colorBox) split() (*colorBox, *colorBox) {
	lRange := b.maxL - b.minL
	aRange := b.maxA - b.minA
	bRange := b.maxB - b.minB

	var key func(c oklab.Color) float32
	switch {
	case lRange >= aRange && lRange >= bRange:
		key = func(c oklab.Color) float32 { return c.L }
	case aRange >= bRange:
		key = func(c oklab.Color) float32 { return c.A }
	default:
		key = func(c oklab.Color) float32 { return c.B }
	}
	sort.SliceStable(b.samples, func(i, j int) bool {
		return key(b.samples[i]) < key(b.samples[j])
	})

	mid := len(b.samples) / 2
	return newColorBox(b.samples[:mid]), newColorBox(b.samples[mid:])
}

// average returns the arithmetic mean of the box's members.
func (b *colorBox) average() oklab.Color {
	var sumL, sumA, sumB float64
	for _, c := range b.samples {
		sumL += float64(c.L)
		sumA += float64(c.A)
		sumB += float64(c.B)
	}
	n := float64(len(b.samples))
	return oklab.Color{
		L: float32(sumL / n),
		A: float32(sumA / n),
		B: float32(sumB / n),
	}
}
