package animgif

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/deepteams/animgif/gif89"
	"github.com/deepteams/animgif/internal/parallel"
	"github.com/deepteams/animgif/internal/pool"
	"github.com/deepteams/animgif/internal/resample"
	"github.com/deepteams/animgif/oklab"
	"github.com/deepteams/animgif/quant"
	"github.com/deepteams/animgif/voxel"
)

// maxSharedSamples bounds the sample set fed to the palette builder when
// pooling pixels across a whole batch. Larger batches are stride-subsampled.
const maxSharedSamples = 1 << 16

// Processor runs the frame pipeline. It owns the dither state for a batch,
// so a single Processor must not be used concurrently; create one per
// goroutine instead. The zero value is not usable, call NewProcessor.
type Processor struct {
	mu     sync.Mutex
	raw    Options // as passed, for boundary validation
	opts   Options // sanitized
	closed bool

	temporal *quant.TemporalDiffusion
}

// NewProcessor returns a Processor with the given options. A nil opts
// selects DefaultOptions.
func NewProcessor(opts *Options) *Processor {
	if opts == nil {
		opts = DefaultOptions()
	}
	s := opts.sanitized()
	return &Processor{
		raw:      *opts,
		opts:     s,
		temporal: quant.NewTemporalDiffusion(s.DitherStrength),
	}
}

// Close releases the processor. Further Process calls return ErrClosed.
func (p *Processor) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.temporal = nil
	return nil
}

// Process runs the full pipeline over a batch of raw frames.
//
// frames holds frameCount RGBA images of width x height pixels, 4 bytes
// per pixel, concatenated frame-major. The input is validated before any
// per-frame work starts.
func (p *Processor) Process(frames []byte, width, height, frameCount int) (*Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrClosed
	}

	start := time.Now()

	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: dimensions %dx%d", ErrInvalidInput, width, height)
	}
	if frameCount <= 0 {
		return nil, fmt.Errorf("%w: frame count %d", ErrInvalidInput, frameCount)
	}
	if p.raw.PaletteSize < 0 {
		return nil, fmt.Errorf("%w: palette size %d", ErrInvalidInput, p.raw.PaletteSize)
	}
	want := width * height * 4 * frameCount
	if len(frames) != want {
		return nil, fmt.Errorf("%w: %d bytes for %d frames of %dx%d, want %d",
			ErrInvalidInput, len(frames), frameCount, width, height, want)
	}

	opts := p.opts
	if opts.TargetSize > 0 && (opts.TargetSize != width || opts.TargetSize != height) {
		frames = resample.Batch(frames, width, height, opts.TargetSize, resample.CatmullRom)
		width, height = opts.TargetSize, opts.TargetSize
	}

	px := width * height
	colors := pool.GetColors(px * frameCount)
	defer pool.PutColors(colors)
	convert := func(i int) error {
		src := frames[i*px*4 : (i+1)*px*4]
		dst := colors[i*px : (i+1)*px]
		for j := range dst {
			dst[j] = oklab.FromRGBA8(src[j*4], src[j*4+1], src[j*4+2])
		}
		return nil
	}
	if opts.Parallel {
		_ = parallel.Frames(frameCount, convert)
	} else {
		for i := 0; i < frameCount; i++ {
			_ = convert(i)
		}
	}

	pal := p.buildPalette(colors, px, frameCount, opts)
	if len(pal) == 0 {
		return nil, fmt.Errorf("%w: empty palette", ErrQuantization)
	}

	indexed, err := p.mapFrames(colors, width, height, frameCount, pal, opts)
	if err != nil {
		return nil, err
	}

	enc, err := gif89.NewEncoder(width, height, pal.RGB())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	enc.SetLoopCount(opts.LoopCount)
	delay := 100 / opts.FPS
	for i := 0; i < frameCount; i++ {
		if err := enc.AddFrame(indexed[i], delay); err != nil {
			return nil, fmt.Errorf("%w: frame %d: %v", ErrEncoding, i, err)
		}
	}
	var buf bytes.Buffer
	if err := enc.Assemble(&buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoding, err)
	}

	res := &Result{
		GIF:         buf.Bytes(),
		ByteSize:    buf.Len(),
		PaletteSize: len(pal),
		FrameCount:  frameCount,
	}

	if opts.IncludeTensor {
		tensor, err := voxel.Pack(frames, voxel.Shape{Width: width, Height: height, Depth: frameCount})
		if err != nil {
			return nil, fmt.Errorf("%w: tensor: %v", ErrInvalidInput, err)
		}
		res.Tensor = tensor
	}

	res.Elapsed = time.Since(start)
	return res, nil
}

// buildPalette builds the global color table. Shared mode pools samples
// across all frames; per-frame mode builds a palette per frame and merges
// the entries, since the output carries a single global table.
func (p *Processor) buildPalette(colors []oklab.Color, px, frameCount int, opts Options) quant.Palette {
	var mc quant.MedianCut

	if opts.SharedPalette {
		return mc.Build(subsample(colors, maxSharedSamples), opts.PaletteSize)
	}

	merged := make([]oklab.Color, 0, frameCount*opts.PaletteSize)
	for i := 0; i < frameCount; i++ {
		frame := colors[i*px : (i+1)*px]
		merged = append(merged, mc.Build(subsample(frame, maxSharedSamples), opts.PaletteSize)...)
	}
	if len(merged) <= opts.PaletteSize {
		return quant.Palette(merged)
	}
	return mc.Build(merged, opts.PaletteSize)
}

// subsample stride-samples colors down to at most limit entries.
func subsample(colors []oklab.Color, limit int) []oklab.Color {
	if len(colors) <= limit {
		return colors
	}
	stride := (len(colors) + limit - 1) / limit
	out := make([]oklab.Color, 0, limit)
	for i := 0; i < len(colors); i += stride {
		out = append(out, colors[i])
	}
	return out
}

// mapFrames runs the selected ditherer over every frame. Temporal
// diffusion is strictly sequential; the blue-noise and nearest mappers
// are stateless and run frame-parallel when enabled.
func (p *Processor) mapFrames(colors []oklab.Color, width, height, frameCount int, pal quant.Palette, opts Options) ([][]uint8, error) {
	px := width * height
	indexed := make([][]uint8, frameCount)

	if opts.Dither == DitherTemporal && opts.DitherStrength > 0 {
		p.temporal.Reset()
		for i := 0; i < frameCount; i++ {
			indexed[i] = p.temporal.MapFrame(i, colors[i*px:(i+1)*px], width, height, pal)
		}
		return indexed, nil
	}

	var mapper quant.Mapper
	switch opts.Dither {
	case DitherNone, DitherTemporal:
		mapper = quant.Nearest{}
	case DitherBlueNoise:
		mapper = quant.NewBlueNoise(quant.BlueNoisePlain, opts.DitherStrength)
	case DitherBlueNoiseTemporal:
		mapper = quant.NewBlueNoise(quant.BlueNoiseTemporal, opts.DitherStrength)
	case DitherBlueNoiseAdaptive:
		mapper = quant.NewBlueNoise(quant.BlueNoiseAdaptive, opts.DitherStrength)
	default:
		return nil, fmt.Errorf("%w: unknown dither strategy %d", ErrInvalidInput, opts.Dither)
	}

	mapOne := func(i int) error {
		indexed[i] = mapper.MapFrame(i, colors[i*px:(i+1)*px], width, height, pal)
		return nil
	}
	if opts.Parallel {
		_ = parallel.Frames(frameCount, mapOne)
	} else {
		for i := 0; i < frameCount; i++ {
			_ = mapOne(i)
		}
	}
	return indexed, nil
}

// Process runs the pipeline once with a throwaway Processor.
// A nil opts selects DefaultOptions.
func Process(frames []byte, width, height, frameCount int, opts *Options) (*Result, error) {
	p := NewProcessor(opts)
	defer p.Close()
	return p.Process(frames, width, height, frameCount)
}
