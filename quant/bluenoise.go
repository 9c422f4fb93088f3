package quant

import (
	"math"

	"github.com/deepteams/animgif/oklab"
)

// noiseSize is the edge length of the tiled blue-noise matrix.
const noiseSize = 64

// Per-frame tile offsets for the temporal variant. The two factors are
// coprime with the matrix size so the pattern walks the full tile before
// repeating.
const (
	temporalStepX = 7
	temporalStepY = 11
)

// edgeAttenuation is the maximum reduction of dithering strength on hard
// edges in the adaptive variant.
const edgeAttenuation = 0.7

// Perturbation amplitudes per OKLab axis at strength 1. Lightness gets
// the full amplitude; the chroma axes span a narrower numeric range and
// get half.
const (
	noiseAmpL      = 0.5
	noiseAmpChroma = 0.25
)

// blueNoise is a fixed 64×64 low-discrepancy threshold matrix, values in
// [0,1]. The generator is a deterministic integer hash chosen for flat
// low-frequency content when tiled.
var blueNoise = func() [noiseSize][noiseSize]float32 {
	var m [noiseSize][noiseSize]float32
	for y := 0; y < noiseSize; y++ {
		for x := 0; x < noiseSize; x++ {
			v := ((y*67 + x*71) ^ ((y * 13) ^ (x * 17))) % 256
			m[y][x] = float32(v) / 255.0
		}
	}
	return m
}()

// BlueNoiseMode selects a blue-noise dithering variant.
type BlueNoiseMode int

const (
	// BlueNoisePlain tiles the threshold matrix identically on every frame.
	BlueNoisePlain BlueNoiseMode = iota
	// BlueNoiseTemporal shifts the matrix per frame so the dither pattern
	// does not sit still across an animation.
	BlueNoiseTemporal
	// BlueNoiseAdaptive attenuates dithering near luminance edges,
	// preserving detail at boundaries while still breaking up banding in
	// smooth gradients.
	BlueNoiseAdaptive
)

// BlueNoise dithers frames by threshold perturbation against the shared
// blue-noise matrix. It carries no cross-frame state: frames of a batch
// may be mapped in any order and concurrently, each call being
// independent given its frameIndex.
type BlueNoise struct {
	Mode     BlueNoiseMode
	Strength float32 // 0 disables perturbation (plain nearest matching)
}

// NewBlueNoise returns a blue-noise Mapper with the given variant and
// strength. Strength is clamped to [0,1].
func NewBlueNoise(mode BlueNoiseMode, strength float32) *BlueNoise {
	if strength < 0 {
		strength = 0
	} else if strength > 1 {
		strength = 1
	}
	return &BlueNoise{Mode: mode, Strength: strength}
}

// MapFrame implements Mapper.
func (bn *BlueNoise) MapFrame(frameIndex int, frame []oklab.Color, width, height int, pal Palette) []uint8 {
	out := make([]uint8, width*height)
	if bn.Strength == 0 {
		for i, c := range frame {
			out[i] = uint8(pal.NearestIndex(c))
		}
		return out
	}

	var offX, offY int
	if bn.Mode == BlueNoiseTemporal {
		offX = (frameIndex * temporalStepX) % noiseSize
		offY = (frameIndex * temporalStepY) % noiseSize
	}

	var edges []float32
	if bn.Mode == BlueNoiseAdaptive {
		edges = edgeMap(frame, width, height)
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			idx := y*width + x

			strength := bn.Strength
			if edges != nil {
				strength *= 1 - edges[idx]*edgeAttenuation
			}

			noise := blueNoise[(y+offY)%noiseSize][(x+offX)%noiseSize]
			d := (noise - 0.5) * strength

			px := frame[idx]
			perturbed := oklab.Color{
				L: px.L + d*noiseAmpL,
				A: px.A + d*noiseAmpChroma,
				B: px.B + d*noiseAmpChroma,
			}
			out[idx] = uint8(pal.NearestIndex(perturbed))
		}
	}
	return out
}

// edgeMap computes per-pixel edge strength in [0,1] from a Sobel gradient
// of the lightness channel. Border pixels keep strength 0.
func edgeMap(frame []oklab.Color, width, height int) []float32 {
	edges := make([]float32, width*height)
	if width < 3 || height < 3 {
		return edges
	}
	lum := func(x, y int) float32 { return frame[y*width+x].L }

	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			gx := lum(x+1, y-1) - lum(x-1, y-1) +
				2*(lum(x+1, y)-lum(x-1, y)) +
				lum(x+1, y+1) - lum(x-1, y+1)
			gy := lum(x-1, y+1) - lum(x-1, y-1) +
				2*(lum(x, y+1)-lum(x, y-1)) +
				lum(x+1, y+1) - lum(x+1, y-1)

			mag := float32(math.Sqrt(float64(gx*gx + gy*gy)))
			if mag > 1 {
				mag = 1
			}
			edges[y*width+x] = mag
		}
	}
	return edges
}
