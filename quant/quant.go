// Package quant builds color palettes and maps frames to palette indices.
//
// The package is organized as two small capability interfaces: a
// PaletteBuilder produces a Palette from a pool of working-space samples,
// and a Mapper assigns each pixel of a frame to a palette index. Concrete
// strategies (median cut, temporal error diffusion, blue-noise threshold
// dithering) plug into the same pipeline and are selected by
// configuration rather than by separate code paths.
//
// All color math happens in the OKLab working space; see the oklab
// package.
package quant

import "github.com/deepteams/animgif/oklab"

// MaxPaletteSize is the largest palette an indexed frame can reference.
// GIF color tables hold at most 256 entries.
const MaxPaletteSize = 256

// Palette is an ordered set of working-space colors. Index positions are
// stable once built; frames reference colors by position.
type Palette []oklab.Color

// PaletteBuilder produces a palette of at most targetSize colors that is
// representative of the given samples.
type PaletteBuilder interface {
	Build(samples []oklab.Color, targetSize int) Palette
}

// Mapper assigns every pixel of a frame to a palette index. frameIndex
// increases by one per frame within a batch; stateful mappers (temporal
// error diffusion) rely on frames arriving strictly in order.
type Mapper interface {
	MapFrame(frameIndex int, frame []oklab.Color, width, height int, pal Palette) []uint8
}

// NearestIndex returns the index of the palette color closest to c by
// squared Euclidean distance in OKLab. Ties are broken by the earliest
// palette position. An empty palette maps everything to index 0.
func (p Palette) NearestIndex(c oklab.Color) int {
	best := 0
	bestDist := float32(0)
	for i, pc := range p {
		d := oklab.DistanceSq(c, pc)
		if i == 0 || d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}

// RGB returns the palette as packed 3-byte sRGB entries, in palette order.
func (p Palette) RGB() []byte {
	out := make([]byte, 0, len(p)*3)
	for _, c := range p {
		r, g, b, _ := c.RGBA8()
		out = append(out, r, g, b)
	}
	return out
}

// Nearest is the strengthless Mapper: pixels map straight to their
// nearest palette entry with no perturbation. It is also the strategy
// every ditherer degrades to at zero dithering strength.
type Nearest struct{}

// MapFrame implements Mapper.
func (Nearest) MapFrame(_ int, frame []oklab.Color, width, height int, pal Palette) []uint8 {
	_ = width
	_ = height
	out := make([]uint8, len(frame))
	for i, c := range frame {
		out[i] = uint8(pal.NearestIndex(c))
	}
	return out
}
