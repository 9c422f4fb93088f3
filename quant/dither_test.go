package quant

import (
	"bytes"
	"testing"

	"github.com/deepteams/animgif/oklab"
)

// gradientFrame builds a width×height frame sweeping gray levels plus a
// per-frame seed shift.
func gradientFrame(width, height, seed int) []oklab.Color {
	frame := make([]oklab.Color, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := uint8((x*255/width + seed*3) & 0xFF)
			frame[y*width+x] = oklab.FromRGBA8(v, v, v)
		}
	}
	return frame
}

func grayPalette(n int) Palette {
	return (MedianCut{}).Build(gradientSamples(n*4), n)
}

func TestNearestIdempotent(t *testing.T) {
	// A frame whose pixels are exactly palette entries must reproduce its
	// own indices.
	pal := grayPalette(16)
	frame := make([]oklab.Color, len(pal))
	copy(frame, pal)

	for _, m := range []Mapper{
		Nearest{},
		NewTemporalDiffusion(0),
		NewBlueNoise(BlueNoisePlain, 0),
		NewBlueNoise(BlueNoiseTemporal, 0),
		NewBlueNoise(BlueNoiseAdaptive, 0),
	} {
		idx := m.MapFrame(0, frame, len(frame), 1, pal)
		for i, v := range idx {
			if int(v) != i {
				t.Fatalf("%T: pixel %d mapped to %d", m, i, v)
			}
		}
	}
}

func TestTemporalDeterminism(t *testing.T) {
	const w, h, frames = 32, 32, 6
	pal := grayPalette(8)

	run := func() [][]uint8 {
		d := NewTemporalDiffusion(1)
		var out [][]uint8
		for f := 0; f < frames; f++ {
			out = append(out, d.MapFrame(f, gradientFrame(w, h, f), w, h, pal))
		}
		return out
	}

	a, b := run(), run()
	for f := range a {
		if !bytes.Equal(a[f], b[f]) {
			t.Fatalf("frame %d differs between identical runs", f)
		}
	}
}

func TestTemporalCarriesState(t *testing.T) {
	const w, h = 16, 16
	pal := grayPalette(4)
	frame := gradientFrame(w, h, 0)

	d := NewTemporalDiffusion(1)
	first := d.MapFrame(0, frame, w, h, pal)
	second := d.MapFrame(1, frame, w, h, pal)

	fresh := NewTemporalDiffusion(1)
	freshFirst := fresh.MapFrame(0, frame, w, h, pal)

	if !bytes.Equal(first, freshFirst) {
		t.Error("first frame depends on state it should not have")
	}
	// The carried residual must influence the second frame of a coarse
	// palette gradient.
	if bytes.Equal(first, second) {
		t.Error("carried error had no effect on the second frame")
	}

	d.Reset()
	afterReset := d.MapFrame(0, frame, w, h, pal)
	if !bytes.Equal(afterReset, freshFirst) {
		t.Error("Reset did not clear carried error")
	}
}

func TestTemporalIndicesInRange(t *testing.T) {
	const w, h = 24, 24
	pal := grayPalette(5)
	d := NewTemporalDiffusion(1)
	for f := 0; f < 3; f++ {
		idx := d.MapFrame(f, gradientFrame(w, h, f), w, h, pal)
		if len(idx) != w*h {
			t.Fatalf("frame %d: %d indices, want %d", f, len(idx), w*h)
		}
		for i, v := range idx {
			if int(v) >= len(pal) {
				t.Fatalf("frame %d pixel %d: index %d out of palette range %d", f, i, v, len(pal))
			}
		}
	}
}

func TestBlueNoiseTemporalShiftsPattern(t *testing.T) {
	const w, h = 64, 64
	pal := grayPalette(4)
	frame := gradientFrame(w, h, 0)

	bn := NewBlueNoise(BlueNoiseTemporal, 0.8)
	f0 := bn.MapFrame(0, frame, w, h, pal)
	f1 := bn.MapFrame(1, frame, w, h, pal)
	if bytes.Equal(f0, f1) {
		t.Error("temporal variant produced identical patterns on consecutive frames")
	}

	plain := NewBlueNoise(BlueNoisePlain, 0.8)
	p0 := plain.MapFrame(0, frame, w, h, pal)
	p1 := plain.MapFrame(1, frame, w, h, pal)
	if !bytes.Equal(p0, p1) {
		t.Error("plain variant should not vary with frame index")
	}
}

func TestBlueNoiseStatelessOrderIndependent(t *testing.T) {
	const w, h = 32, 32
	pal := grayPalette(6)
	bn := NewBlueNoise(BlueNoiseTemporal, 0.6)

	frames := [][]oklab.Color{
		gradientFrame(w, h, 0),
		gradientFrame(w, h, 1),
		gradientFrame(w, h, 2),
	}
	forward := make([][]uint8, len(frames))
	for i, f := range frames {
		forward[i] = bn.MapFrame(i, f, w, h, pal)
	}
	for i := len(frames) - 1; i >= 0; i-- {
		got := bn.MapFrame(i, frames[i], w, h, pal)
		if !bytes.Equal(got, forward[i]) {
			t.Fatalf("frame %d depends on call order", i)
		}
	}
}

func TestEdgeMap(t *testing.T) {
	const w, h = 16, 16
	// Left half black, right half white: a hard vertical edge.
	frame := make([]oklab.Color, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(0)
			if x >= w/2 {
				v = 255
			}
			frame[y*w+x] = oklab.FromRGBA8(v, v, v)
		}
	}
	edges := edgeMap(frame, w, h)
	for i, e := range edges {
		if e < 0 || e > 1 {
			t.Fatalf("edge strength %g at %d outside [0,1]", e, i)
		}
	}
	// The edge column must score higher than the flat interior.
	mid := edges[(h/2)*w+w/2-1]
	flat := edges[(h/2)*w+2]
	if mid <= flat {
		t.Errorf("edge strength %g not above flat-region strength %g", mid, flat)
	}
	if edges[0] != 0 {
		t.Errorf("border pixel edge strength = %g, want 0", edges[0])
	}
}

func TestEdgeMapTinyFrame(t *testing.T) {
	frame := gradientFrame(2, 2, 0)
	edges := edgeMap(frame, 2, 2)
	for _, e := range edges {
		if e != 0 {
			t.Fatal("sub-3x3 frame should produce a zero edge map")
		}
	}
}

func TestBlueNoiseAdaptiveReducesEdgeDither(t *testing.T) {
	const w, h = 64, 64
	pal := grayPalette(4)
	frame := gradientFrame(w, h, 0)

	plain := NewBlueNoise(BlueNoisePlain, 1).MapFrame(0, frame, w, h, pal)
	adaptive := NewBlueNoise(BlueNoiseAdaptive, 1).MapFrame(0, frame, w, h, pal)
	if len(plain) != len(adaptive) {
		t.Fatal("length mismatch")
	}
	// Both are valid index maps over the same palette.
	for i := range adaptive {
		if int(adaptive[i]) >= len(pal) {
			t.Fatalf("index %d out of range at %d", adaptive[i], i)
		}
	}
}

func BenchmarkTemporalDiffusion(b *testing.B) {
	const w, h = 64, 64
	pal := grayPalette(64)
	frame := gradientFrame(w, h, 0)
	d := NewTemporalDiffusion(1)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		d.MapFrame(i, frame, w, h, pal)
	}
}

func BenchmarkBlueNoise(b *testing.B) {
	const w, h = 64, 64
	pal := grayPalette(64)
	frame := gradientFrame(w, h, 0)
	bn := NewBlueNoise(BlueNoiseTemporal, 0.8)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		bn.MapFrame(i, frame, w, h, pal)
	}
}
