package animgif

import (
	"errors"
	"time"
)

// Errors returned by the pipeline.
var (
	ErrInvalidInput = errors.New("animgif: invalid input")
	ErrQuantization = errors.New("animgif: quantization failed")
	ErrEncoding     = errors.New("animgif: encoding failed")
	ErrClosed       = errors.New("animgif: processor is closed")
)

// MaxPaletteSize is the largest palette a GIF color table can hold.
const MaxPaletteSize = 256

// DitherStrategy selects how quantization error is hidden.
type DitherStrategy int

const (
	// DitherNone maps every pixel to its nearest palette entry.
	DitherNone DitherStrategy = iota

	// DitherTemporal diffuses quantization error spatially within each
	// frame and carries a decayed residual into the next frame. Frames
	// are processed strictly in order.
	DitherTemporal

	// DitherBlueNoise perturbs pixels with a fixed blue-noise pattern
	// before matching. Stateless; identical for every frame.
	DitherBlueNoise

	// DitherBlueNoiseTemporal shifts the blue-noise pattern per frame so
	// the grain moves instead of appearing frozen onto the image.
	DitherBlueNoiseTemporal

	// DitherBlueNoiseAdaptive attenuates the noise near luminance edges
	// to keep outlines crisp.
	DitherBlueNoiseAdaptive
)

func (d DitherStrategy) String() string {
	switch d {
	case DitherNone:
		return "none"
	case DitherTemporal:
		return "temporal"
	case DitherBlueNoise:
		return "bluenoise"
	case DitherBlueNoiseTemporal:
		return "bluenoise-temporal"
	case DitherBlueNoiseAdaptive:
		return "bluenoise-adaptive"
	}
	return "unknown"
}

// Options controls the frame pipeline.
type Options struct {
	// PaletteSize is the number of colors to quantize to (1-256).
	// 0 selects the default of 256; negative values are rejected by
	// Process. The written color table is padded to a power of two.
	PaletteSize int

	// Dither selects the error-hiding strategy (default DitherTemporal).
	Dither DitherStrategy

	// DitherStrength scales the dither effect (0-1). At 0 every strategy
	// degenerates to plain nearest matching.
	// The default value -1 (or any value < 0) is treated as 1.
	DitherStrength float32

	// SharedPalette builds one palette from samples pooled across all
	// frames. When false a palette is built per frame and the results
	// are merged into a single global table, since the container written
	// here carries only a global color table.
	SharedPalette bool

	// FPS is the nominal playback rate (default 25). The GIF delay is
	// 100/FPS centiseconds with integer truncation, so rates above 100
	// produce a zero delay.
	FPS int

	// LoopCount is the animation loop count (0 = infinite, default).
	LoopCount int

	// IncludeTensor additionally packs the post-resample RGBA frames
	// into a frame-major voxel tensor returned in Result.Tensor.
	IncludeTensor bool

	// Parallel enables frame-parallel conversion and dithering for the
	// stateless strategies. Temporal diffusion is always sequential.
	Parallel bool

	// TargetSize resamples each frame to a TargetSize x TargetSize
	// square before quantization (0 = keep input dimensions).
	TargetSize int
}

// DefaultOptions returns pipeline options with a 256-color shared palette,
// temporal dithering at full strength, 25 fps, and parallel conversion.
func DefaultOptions() *Options {
	return &Options{
		PaletteSize:    MaxPaletteSize,
		Dither:         DitherTemporal,
		DitherStrength: -1, // sentinel: treated as 1
		SharedPalette:  true,
		FPS:            25,
		Parallel:       true,
	}
}

// sanitized returns a copy with every field clamped to its valid range.
func (o *Options) sanitized() Options {
	s := *o
	if s.PaletteSize == 0 || s.PaletteSize > MaxPaletteSize {
		s.PaletteSize = MaxPaletteSize
	}
	if s.DitherStrength < 0 {
		s.DitherStrength = 1
	} else if s.DitherStrength > 1 {
		s.DitherStrength = 1
	}
	if s.FPS <= 0 {
		s.FPS = 25
	}
	if s.LoopCount < 0 {
		s.LoopCount = 0
	}
	if s.TargetSize < 0 {
		s.TargetSize = 0
	}
	return s
}

// Result holds the pipeline outputs for one frame batch.
type Result struct {
	// GIF is the assembled GIF89a stream.
	GIF []byte

	// Tensor is the frame-major RGBA voxel tensor, nil unless
	// Options.IncludeTensor was set.
	Tensor []byte

	// ByteSize is len(GIF).
	ByteSize int

	// Elapsed is the wall-clock pipeline time.
	Elapsed time.Duration

	// PaletteSize is the number of palette entries actually built,
	// before power-of-two padding.
	PaletteSize int

	// FrameCount is the number of frames encoded.
	FrameCount int
}
