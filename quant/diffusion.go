package quant

import "github.com/deepteams/animgif/oklab"

// Error diffusion weights, in 32nds. The kernel spreads the residual over
// five forward/below neighbors:
//
//	        *   5   3
//	2   4   5
//
// Compared to the classic two-large-weight Floyd-Steinberg kernel, the
// wider spread keeps repeated dithering of near-identical animation
// frames from locking into directional "marching ants" patterns.
const (
	weightRight1    = 5.0 / 32.0
	weightRight2    = 3.0 / 32.0
	weightDownLeft2 = 2.0 / 32.0
	weightDownLeft1 = 4.0 / 32.0
	weightDown      = 5.0 / 32.0
)

// errorDecay scales the previous frame's residual field before it seeds
// the next frame. Without the decay, error carried across hundreds of
// frames drifts unbounded.
const errorDecay = 0.7

// errorFeedback is the fraction of the carried error applied to a pixel
// before palette matching.
const errorFeedback = 0.5

// TemporalDiffusion dithers frames with error diffusion whose residual
// field persists across frames. One value must dither one batch: the
// carried error field is owned exclusively by this instance, frames must
// arrive strictly in order, and MapFrame must not be called concurrently.
//
// Strength in (0,1] scales how much quantization residual is propagated;
// at 0 the mapper degrades to plain nearest matching. Call Reset between
// batches, or allocate a fresh value per batch.
type TemporalDiffusion struct {
	// Strength scales the diffused residual. The zero value of the struct
	// has Strength 0; use NewTemporalDiffusion for the full-strength
	// default.
	Strength float32

	errs []float32 // 3 floats per pixel (L, a, b), carried across frames
}

// NewTemporalDiffusion returns a full-strength temporal ditherer.
func NewTemporalDiffusion(strength float32) *TemporalDiffusion {
	if strength < 0 {
		strength = 0
	} else if strength > 1 {
		strength = 1
	}
	return &TemporalDiffusion{Strength: strength}
}

// Reset discards carried error so the ditherer can start a new batch.
func (d *TemporalDiffusion) Reset() {
	d.errs = nil
}

// MapFrame implements Mapper. The frame's residual field becomes the
// carried state for the next frame.
func (d *TemporalDiffusion) MapFrame(_ int, frame []oklab.Color, width, height int, pal Palette) []uint8 {
	out := make([]uint8, width*height)
	if d.Strength == 0 {
		for i, c := range frame {
			out[i] = uint8(pal.NearestIndex(c))
		}
		d.errs = nil
		return out
	}

	errs := make([]float32, width*height*3)
	if len(d.errs) == len(errs) {
		// Seed from the previous frame's residual, decayed.
		for i, e := range d.errs {
			errs[i] = e * errorDecay
		}
	}

	strength := d.Strength
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			idx := y*width + x
			px := frame[idx]

			ei := idx * 3
			perturbed := oklab.Color{
				L: px.L + errs[ei]*errorFeedback,
				A: px.A + errs[ei+1]*errorFeedback,
				B: px.B + errs[ei+2]*errorFeedback,
			}

			pi := pal.NearestIndex(perturbed)
			out[idx] = uint8(pi)
			if len(pal) == 0 {
				continue
			}
			chosen := pal[pi]

			// Residual of the true (unperturbed) color.
			errL := (px.L - chosen.L) * strength
			errA := (px.A - chosen.A) * strength
			errB := (px.B - chosen.B) * strength

			if x+1 < width {
				diffuse(errs, idx+1, errL, errA, errB, weightRight1)
			}
			if x+2 < width {
				diffuse(errs, idx+2, errL, errA, errB, weightRight2)
			}
			if y+1 < height {
				below := idx + width
				if x > 1 {
					diffuse(errs, below-2, errL, errA, errB, weightDownLeft2)
				}
				if x > 0 {
					diffuse(errs, below-1, errL, errA, errB, weightDownLeft1)
				}
				diffuse(errs, below, errL, errA, errB, weightDown)
			}
		}
	}

	d.errs = errs
	return out
}

// diffuse adds a weighted residual to the error accumulator at pixel i.
func diffuse(errs []float32, i int, errL, errA, errB, w float32) {
	ei := i * 3
	errs[ei] += errL * w
	errs[ei+1] += errA * w
	errs[ei+2] += errB * w
}
