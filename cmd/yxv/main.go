// Command yxv packs voxel tensors into YXV container files and back.
//
// Usage:
//
//	yxv pack [options] <input.gif>     Animated GIF → YXV tensor file
//	yxv unpack [options] <input.yxv>   YXV → raw frame-major tensor bytes
//	yxv info <input.yxv>               Display container header
//	yxv validate <input.yxv>           Verify structure and checksum
//	yxv extract [options] <input.yxv>  Write one tensor frame as PNG
//	yxv togif [options] <input.yxv>    Re-encode the tensor as animated GIF
package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/png"
	"os"

	"github.com/deepteams/animgif"
	"github.com/deepteams/animgif/voxel"
	"github.com/deepteams/animgif/yxv"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "pack":
		err = runPack(os.Args[2:])
	case "unpack":
		err = runUnpack(os.Args[2:])
	case "info":
		err = runInfo(os.Args[2:])
	case "validate":
		err = runValidate(os.Args[2:])
	case "extract":
		err = runExtract(os.Args[2:])
	case "togif":
		err = runToGIF(os.Args[2:])
	case "-h", "-help", "--help", "help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "yxv: unknown command %q\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "yxv: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage:
  yxv pack [options] <input.gif>     Pack an animated GIF into a YXV tensor file
  yxv unpack [options] <input.yxv>   Unpack a YXV file to raw tensor bytes
  yxv info <input.yxv>               Display container header
  yxv validate <input.yxv>           Verify structure and checksum
  yxv extract [options] <input.yxv>  Write one tensor frame as PNG
  yxv togif [options] <input.yxv>    Re-encode the tensor as animated GIF

Run "yxv <command> -h" for command-specific options.
`)
}

func runPack(args []string) error {
	fs := flag.NewFlagSet("pack", flag.ContinueOnError)
	output := fs.String("o", "out.yxv", "output path")
	raw := fs.Bool("raw", false, "store the tensor uncompressed")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("pack: missing input file")
	}

	tensor, shape, palette, err := loadGIFTensor(fs.Arg(0))
	if err != nil {
		return err
	}

	comp := yxv.CompressionZstd
	if *raw {
		comp = yxv.CompressionNone
	}
	c := &yxv.Container{Shape: shape, Compression: comp, Palette: palette, Tensor: tensor}

	f, err := os.Create(*output)
	if err != nil {
		return err
	}
	defer f.Close()
	n, err := c.WriteTo(f)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "yxv: %s: %dx%dx%d tensor, %s, %d bytes\n",
		*output, shape.Width, shape.Height, shape.Depth, comp, n)
	return nil
}

// loadGIFTensor flattens an animated GIF into a frame-major tensor. The
// global color table, when present, rides along as the container palette.
func loadGIFTensor(path string) ([]byte, voxel.Shape, []byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, voxel.Shape{}, nil, err
	}
	defer f.Close()

	g, err := gif.DecodeAll(f)
	if err != nil {
		return nil, voxel.Shape{}, nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	if len(g.Image) == 0 {
		return nil, voxel.Shape{}, nil, fmt.Errorf("%s has no frames", path)
	}

	width, height := g.Config.Width, g.Config.Height
	if width == 0 || height == 0 {
		b := g.Image[0].Bounds()
		width, height = b.Dx(), b.Dy()
	}
	shape := voxel.Shape{Width: width, Height: height, Depth: len(g.Image)}

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	frames := make([]byte, 0, shape.TensorBytes())
	for _, frame := range g.Image {
		draw.Draw(canvas, frame.Bounds(), frame, frame.Bounds().Min, draw.Over)
		frames = append(frames, canvas.Pix...)
	}

	palette := paletteBytes(g.Image[0].Palette)

	tensor, err := voxel.Pack(frames, shape)
	if err != nil {
		return nil, voxel.Shape{}, nil, err
	}
	return tensor, shape, palette, nil
}

// paletteBytes flattens a color table into the container's fixed 768-byte
// RGB palette block. An empty or oversized table yields nil so the
// container's palette flag stays clear.
func paletteBytes(pal color.Palette) []byte {
	if len(pal) == 0 || len(pal) > 256 {
		return nil
	}
	out := make([]byte, 768)
	for i, c := range pal {
		r, g, b, _ := c.RGBA()
		out[i*3] = byte(r >> 8)
		out[i*3+1] = byte(g >> 8)
		out[i*3+2] = byte(b >> 8)
	}
	return out
}

func runUnpack(args []string) error {
	fs := flag.NewFlagSet("unpack", flag.ContinueOnError)
	output := fs.String("o", "out.bin", "output path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("unpack: missing input file")
	}

	c, err := readContainer(fs.Arg(0))
	if err != nil {
		return err
	}
	if err := os.WriteFile(*output, c.Tensor, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "yxv: %s: %d tensor bytes\n", *output, len(c.Tensor))
	return nil
}

func runInfo(args []string) error {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("info: missing input file")
	}
	path := fs.Arg(0)

	st, err := os.Stat(path)
	if err != nil {
		return err
	}
	c, err := readContainer(path)
	if err != nil {
		return err
	}

	fmt.Printf("File:        %s (%d bytes)\n", path, st.Size())
	fmt.Printf("Shape:       %dx%dx%d\n", c.Shape.Width, c.Shape.Height, c.Shape.Depth)
	fmt.Printf("Tensor:      %d bytes\n", len(c.Tensor))
	fmt.Printf("Compression: %s\n", c.Compression)
	if c.Palette != nil {
		fmt.Println("Palette:     present (768 bytes)")
	} else {
		fmt.Println("Palette:     none")
	}
	return nil
}

func runValidate(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("validate: missing input file")
	}
	path := fs.Arg(0)

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := yxv.Validate(f); err != nil {
		return err
	}
	fmt.Printf("%s: OK\n", path)
	return nil
}

func runExtract(args []string) error {
	fs := flag.NewFlagSet("extract", flag.ContinueOnError)
	frame := fs.Int("z", 0, "frame index to extract")
	output := fs.String("o", "frame.png", "output path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("extract: missing input file")
	}

	c, err := readContainer(fs.Arg(0))
	if err != nil {
		return err
	}
	pix, err := c.ExtractFrame(*frame)
	if err != nil {
		return err
	}

	img := &image.RGBA{
		Pix:    pix,
		Stride: c.Shape.Width * 4,
		Rect:   image.Rect(0, 0, c.Shape.Width, c.Shape.Height),
	}
	f, err := os.Create(*output)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "yxv: %s: frame %d of %s\n", *output, *frame, fs.Arg(0))
	return nil
}

func runToGIF(args []string) error {
	fs := flag.NewFlagSet("togif", flag.ContinueOnError)
	output := fs.String("o", "out.gif", "output path")
	colors := fs.Int("colors", 256, "palette size 1-256")
	strength := fs.Float64("strength", 1, "dither strength 0-1")
	fps := fs.Int("fps", 25, "playback rate in frames per second")
	smooth := fs.Int("smooth", 0, "box-blur kernel edge for 3D smoothing (odd, 0=off)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("togif: missing input file")
	}

	c, err := readContainer(fs.Arg(0))
	if err != nil {
		return err
	}

	tensor := c.Tensor
	if *smooth > 0 {
		k := *smooth
		kernel := make([]float32, k*k*k)
		for i := range kernel {
			kernel[i] = 1 / float32(len(kernel))
		}
		tensor, err = voxel.Convolve3D(tensor, c.Shape, kernel, k)
		if err != nil {
			return err
		}
	}

	res, err := animgif.Process(tensor, c.Shape.Width, c.Shape.Height, c.Shape.Depth, &animgif.Options{
		PaletteSize:    *colors,
		Dither:         animgif.DitherTemporal,
		DitherStrength: float32(*strength),
		SharedPalette:  true,
		FPS:            *fps,
		Parallel:       true,
	})
	if err != nil {
		return err
	}
	if err := os.WriteFile(*output, res.GIF, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "yxv: %s: %d frames, %d bytes\n", *output, res.FrameCount, res.ByteSize)
	return nil
}

func readContainer(path string) (*yxv.Container, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return yxv.Read(f)
}
