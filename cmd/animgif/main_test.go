package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/deepteams/animgif"
)

func TestParseDither(t *testing.T) {
	tests := []struct {
		in   string
		want animgif.DitherStrategy
	}{
		{"none", animgif.DitherNone},
		{"temporal", animgif.DitherTemporal},
		{"TEMPORAL", animgif.DitherTemporal},
		{"bluenoise", animgif.DitherBlueNoise},
		{"bluenoise-temporal", animgif.DitherBlueNoiseTemporal},
		{"bluenoise-adaptive", animgif.DitherBlueNoiseAdaptive},
	}
	for _, tt := range tests {
		got, err := parseDither(tt.in)
		if err != nil {
			t.Errorf("parseDither(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseDither(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if _, err := parseDither("ordered"); err == nil {
		t.Error("parseDither accepted an unknown strategy")
	}
}

func writeTestPNG(t *testing.T, path string, w, h int, c color.Color) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadFramesFromImages(t *testing.T) {
	dir := t.TempDir()
	p1 := filepath.Join(dir, "a.png")
	p2 := filepath.Join(dir, "b.png")
	writeTestPNG(t, p1, 8, 6, color.RGBA{255, 0, 0, 255})
	writeTestPNG(t, p2, 8, 6, color.RGBA{0, 0, 255, 255})

	frames, w, h, n, err := loadFrames([]string{p1, p2})
	if err != nil {
		t.Fatal(err)
	}
	if w != 8 || h != 6 || n != 2 {
		t.Fatalf("got %dx%d x%d frames", w, h, n)
	}
	if len(frames) != 8*6*4*2 {
		t.Fatalf("buffer length = %d", len(frames))
	}
	if frames[0] != 255 || frames[2] != 0 {
		t.Error("first frame is not red")
	}
	second := frames[8*6*4:]
	if second[0] != 0 || second[2] != 255 {
		t.Error("second frame is not blue")
	}
}

func TestLoadFramesMismatchedDims(t *testing.T) {
	dir := t.TempDir()
	p1 := filepath.Join(dir, "a.png")
	p2 := filepath.Join(dir, "b.png")
	writeTestPNG(t, p1, 8, 8, color.Black)
	writeTestPNG(t, p2, 4, 4, color.Black)

	if _, _, _, _, err := loadFrames([]string{p1, p2}); err == nil {
		t.Error("mismatched frame dimensions accepted")
	}
}

func TestLoadFramesFromAnimatedGIF(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.gif")

	batch := make([]byte, 8*8*4*3)
	for f := 0; f < 3; f++ {
		for i := f * 8 * 8 * 4; i < (f+1)*8*8*4; i += 4 {
			batch[i] = byte(f * 100)
			batch[i+3] = 255
		}
	}
	res, err := animgif.Process(batch, 8, 8, 3, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(src, res.GIF, 0o644); err != nil {
		t.Fatal(err)
	}

	frames, w, h, n, err := loadFrames([]string{src})
	if err != nil {
		t.Fatal(err)
	}
	if w != 8 || h != 8 || n != 3 {
		t.Fatalf("got %dx%d x%d frames", w, h, n)
	}
	if len(frames) != 8*8*4*3 {
		t.Fatalf("buffer length = %d", len(frames))
	}
}
