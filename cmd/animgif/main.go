// Command animgif quantizes image sequences into animated GIF89a files.
//
// Usage:
//
//	animgif enc [options] <input...>   PNG/JPEG frames or animated GIF → GIF
//	animgif info <input.gif>           Display GIF structure summary
package main

import (
	"flag"
	"fmt"
	"image"
	"image/draw"
	"image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"strings"

	"github.com/deepteams/animgif"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "enc":
		err = runEnc(os.Args[2:])
	case "info":
		err = runInfo(os.Args[2:])
	case "-h", "-help", "--help", "help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "animgif: unknown command %q\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "animgif: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage:
  animgif enc [options] <input...>   Encode PNG/JPEG frames or an animated GIF
  animgif info <input.gif>           Display GIF structure summary

Run "animgif <command> -h" for command-specific options.
`)
}

func runEnc(args []string) error {
	fs := flag.NewFlagSet("enc", flag.ContinueOnError)
	colors := fs.Int("colors", 256, "palette size 1-256")
	dither := fs.String("dither", "temporal", "dither strategy: none/temporal/bluenoise/bluenoise-temporal/bluenoise-adaptive")
	strength := fs.Float64("strength", 1, "dither strength 0-1")
	perFrame := fs.Bool("per_frame_palette", false, "build a palette per frame and merge")
	fps := fs.Int("fps", 25, "playback rate in frames per second")
	loop := fs.Int("loop", 0, "loop count (0=infinite)")
	size := fs.Int("size", 0, "resample frames to a square edge (0=keep)")
	serial := fs.Bool("serial", false, "disable frame-parallel processing")
	output := fs.String("o", "out.gif", "output path")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("enc: missing input files\nUsage: animgif enc [options] <input...>")
	}

	strategy, err := parseDither(*dither)
	if err != nil {
		return err
	}

	frames, width, height, count, err := loadFrames(fs.Args())
	if err != nil {
		return err
	}

	res, err := animgif.Process(frames, width, height, count, &animgif.Options{
		PaletteSize:    *colors,
		Dither:         strategy,
		DitherStrength: float32(*strength),
		SharedPalette:  !*perFrame,
		FPS:            *fps,
		LoopCount:      *loop,
		TargetSize:     *size,
		Parallel:       !*serial,
	})
	if err != nil {
		return err
	}

	if err := os.WriteFile(*output, res.GIF, 0o644); err != nil {
		return fmt.Errorf("enc: writing %s: %w", *output, err)
	}
	fmt.Fprintf(os.Stderr, "animgif: %s: %d frames, %d colors, %d bytes in %v\n",
		*output, res.FrameCount, res.PaletteSize, res.ByteSize, res.Elapsed)
	return nil
}

func parseDither(name string) (animgif.DitherStrategy, error) {
	switch strings.ToLower(name) {
	case "none":
		return animgif.DitherNone, nil
	case "temporal":
		return animgif.DitherTemporal, nil
	case "bluenoise":
		return animgif.DitherBlueNoise, nil
	case "bluenoise-temporal":
		return animgif.DitherBlueNoiseTemporal, nil
	case "bluenoise-adaptive":
		return animgif.DitherBlueNoiseAdaptive, nil
	}
	return 0, fmt.Errorf("unknown dither strategy %q", name)
}

// loadFrames reads the inputs into one frame-major RGBA buffer. A single
// animated GIF input contributes all of its frames; otherwise each input
// file is one frame and all must share dimensions.
func loadFrames(paths []string) ([]byte, int, int, int, error) {
	if len(paths) == 1 && strings.HasSuffix(strings.ToLower(paths[0]), ".gif") {
		return loadAnimatedGIF(paths[0])
	}

	var buf []byte
	var width, height int
	for i, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, 0, 0, 0, err
		}
		img, _, err := image.Decode(f)
		f.Close()
		if err != nil {
			return nil, 0, 0, 0, fmt.Errorf("decoding %s: %w", path, err)
		}
		b := img.Bounds()
		if i == 0 {
			width, height = b.Dx(), b.Dy()
		} else if b.Dx() != width || b.Dy() != height {
			return nil, 0, 0, 0, fmt.Errorf("%s is %dx%d, want %dx%d like the first frame",
				path, b.Dx(), b.Dy(), width, height)
		}
		buf = appendRGBA(buf, img)
	}
	return buf, width, height, len(paths), nil
}

// loadAnimatedGIF flattens an animated GIF into full frames, honoring the
// previous canvas so partially-updated frames come out complete.
func loadAnimatedGIF(path string) ([]byte, int, int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, 0, err
	}
	defer f.Close()

	g, err := gif.DecodeAll(f)
	if err != nil {
		return nil, 0, 0, 0, fmt.Errorf("decoding %s: %w", path, err)
	}
	if len(g.Image) == 0 {
		return nil, 0, 0, 0, fmt.Errorf("%s has no frames", path)
	}

	width, height := g.Config.Width, g.Config.Height
	if width == 0 || height == 0 {
		b := g.Image[0].Bounds()
		width, height = b.Dx(), b.Dy()
	}

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	var buf []byte
	for _, frame := range g.Image {
		draw.Draw(canvas, frame.Bounds(), frame, frame.Bounds().Min, draw.Over)
		buf = append(buf, canvas.Pix...)
	}
	return buf, width, height, len(g.Image), nil
}

// appendRGBA appends img's pixels as tightly-packed RGBA bytes.
func appendRGBA(buf []byte, img image.Image) []byte {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Stride == rgba.Bounds().Dx()*4 {
		return append(buf, rgba.Pix...)
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return append(buf, rgba.Pix...)
}

func runInfo(args []string) error {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("info: missing input file\nUsage: animgif info <input.gif>")
	}
	path := fs.Arg(0)

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return err
	}
	g, err := gif.DecodeAll(f)
	if err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}

	fmt.Printf("File:       %s (%d bytes)\n", path, st.Size())
	fmt.Printf("Dimensions: %dx%d\n", g.Config.Width, g.Config.Height)
	fmt.Printf("Frames:     %d\n", len(g.Image))
	switch {
	case g.LoopCount == 0:
		fmt.Println("Loop:       infinite")
	case g.LoopCount < 0:
		fmt.Println("Loop:       once")
	default:
		fmt.Printf("Loop:       %d\n", g.LoopCount)
	}
	if len(g.Image) > 0 {
		fmt.Printf("Palette:    %d entries\n", len(g.Image[0].Palette))
		total := 0
		for _, d := range g.Delay {
			total += d
		}
		fmt.Printf("Duration:   %d.%02ds\n", total/100, total%100)
	}
	return nil
}
