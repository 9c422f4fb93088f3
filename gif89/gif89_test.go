package gif89

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image/gif"
	"testing"
)

// testPalette returns a packed-RGB gray ramp of n entries.
func testPalette(n int) []byte {
	pal := make([]byte, 0, n*3)
	for i := 0; i < n; i++ {
		v := byte(i * 255 / max(n-1, 1))
		pal = append(pal, v, v, v)
	}
	return pal
}

func TestNewEncoderValidation(t *testing.T) {
	tests := []struct {
		name    string
		w, h    int
		palette []byte
		wantErr error
	}{
		{"zero width", 0, 8, testPalette(4), ErrCanvasSize},
		{"negative height", 8, -1, testPalette(4), ErrCanvasSize},
		{"oversize", MaxDimension + 1, 8, testPalette(4), ErrCanvasSize},
		{"empty palette", 8, 8, nil, ErrPaletteEmpty},
		{"ragged palette", 8, 8, []byte{1, 2, 3, 4}, ErrPaletteFormat},
		{"too many colors", 8, 8, testPalette(257), ErrPaletteTooLarge},
		{"ok", 8, 8, testPalette(16), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEncoder(tt.w, tt.h, tt.palette)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("NewEncoder() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPalettePadding(t *testing.T) {
	tests := []struct {
		entries int
		padded  int
	}{
		{1, 2},
		{2, 2},
		{3, 4},
		{5, 8},
		{17, 32},
		{64, 64},
		{100, 128},
		{256, 256},
	}
	for _, tt := range tests {
		e, err := NewEncoder(4, 4, testPalette(tt.entries))
		if err != nil {
			t.Fatalf("entries=%d: %v", tt.entries, err)
		}
		if got := e.PaletteEntries(); got != tt.padded {
			t.Errorf("entries=%d: padded to %d, want %d", tt.entries, got, tt.padded)
		}
	}
}

func TestPalettePaddedWithBlack(t *testing.T) {
	e, err := NewEncoder(2, 2, []byte{10, 20, 30, 40, 50, 60, 70, 80, 90})
	if err != nil {
		t.Fatal(err)
	}
	// 3 entries pad to 4; the filler entry must be black.
	if e.PaletteEntries() != 4 {
		t.Fatalf("padded entries = %d, want 4", e.PaletteEntries())
	}
	tail := e.palette[9:12]
	if tail[0] != 0 || tail[1] != 0 || tail[2] != 0 {
		t.Errorf("padding entry = %v, want black", tail)
	}
}

func TestAddFrameValidation(t *testing.T) {
	e, err := NewEncoder(4, 4, testPalette(4))
	if err != nil {
		t.Fatal(err)
	}
	if err := e.AddFrame(make([]byte, 15), 10); !errors.Is(err, ErrFrameSize) {
		t.Errorf("short frame error = %v, want ErrFrameSize", err)
	}
	bad := make([]byte, 16)
	bad[7] = 200 // beyond the 4-entry padded table
	if err := e.AddFrame(bad, 10); !errors.Is(err, ErrIndexRange) {
		t.Errorf("out-of-range index error = %v, want ErrIndexRange", err)
	}
	if err := e.AddFrame(make([]byte, 16), 10); err != nil {
		t.Errorf("valid frame rejected: %v", err)
	}
}

func TestAssembleEmpty(t *testing.T) {
	e, err := NewEncoder(4, 4, testPalette(4))
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Assemble(&bytes.Buffer{}); !errors.Is(err, ErrNoFrames) {
		t.Errorf("Assemble() = %v, want ErrNoFrames", err)
	}
}

func TestStreamStructure(t *testing.T) {
	const w, h = 64, 64
	e, err := NewEncoder(w, h, testPalette(64))
	if err != nil {
		t.Fatal(err)
	}
	e.SetLoopCount(0)
	for f := 0; f < 8; f++ {
		indices := make([]byte, w*h)
		for i := range indices {
			indices[i] = byte((i + f) % 64)
		}
		if err := e.AddFrame(indices, 4); err != nil {
			t.Fatal(err)
		}
	}

	var buf bytes.Buffer
	if err := e.Assemble(&buf); err != nil {
		t.Fatal(err)
	}
	data := buf.Bytes()

	if string(data[:6]) != Signature {
		t.Errorf("signature = %q, want %q", data[:6], Signature)
	}
	if gotW := binary.LittleEndian.Uint16(data[6:8]); gotW != w {
		t.Errorf("declared width = %d, want %d", gotW, w)
	}
	if gotH := binary.LittleEndian.Uint16(data[8:10]); gotH != h {
		t.Errorf("declared height = %d, want %d", gotH, h)
	}
	if data[len(data)-1] != Trailer {
		t.Errorf("trailer = %#x, want %#x", data[len(data)-1], Trailer)
	}

	// The stream must round-trip through the standard library decoder.
	g, err := gif.DecodeAll(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("stdlib decode: %v", err)
	}
	if len(g.Image) != 8 {
		t.Errorf("decoded frame count = %d, want 8", len(g.Image))
	}
	if g.LoopCount != 0 {
		t.Errorf("loop count = %d, want 0 (infinite)", g.LoopCount)
	}
	for i, d := range g.Delay {
		if d != 4 {
			t.Errorf("frame %d delay = %d, want 4", i, d)
		}
	}
	b := g.Image[0].Bounds()
	if b.Dx() != w || b.Dy() != h {
		t.Errorf("decoded size = %dx%d, want %dx%d", b.Dx(), b.Dy(), w, h)
	}
}

func TestIndicesSurviveRoundTrip(t *testing.T) {
	const w, h = 16, 16
	e, err := NewEncoder(w, h, testPalette(16))
	if err != nil {
		t.Fatal(err)
	}
	indices := make([]byte, w*h)
	for i := range indices {
		indices[i] = byte(i % 16)
	}
	if err := e.AddFrame(indices, 2); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := e.Assemble(&buf); err != nil {
		t.Fatal(err)
	}
	g, err := gif.DecodeAll(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(g.Image[0].Pix, indices) {
		t.Error("decoded pixel indices differ from input")
	}
}

func TestTwoEntryPalette(t *testing.T) {
	// All-black and all-white batches come in with tiny palettes; the
	// encoder must still produce a decodable stream.
	for _, entries := range []int{1, 2} {
		e, err := NewEncoder(8, 8, testPalette(entries))
		if err != nil {
			t.Fatalf("entries=%d: %v", entries, err)
		}
		if err := e.AddFrame(make([]byte, 64), 10); err != nil {
			t.Fatalf("entries=%d: %v", entries, err)
		}
		var buf bytes.Buffer
		if err := e.Assemble(&buf); err != nil {
			t.Fatalf("entries=%d: %v", entries, err)
		}
		if _, err := gif.DecodeAll(&buf); err != nil {
			t.Fatalf("entries=%d: stdlib decode: %v", entries, err)
		}
	}
}

func TestFiniteLoopCount(t *testing.T) {
	e, err := NewEncoder(4, 4, testPalette(4))
	if err != nil {
		t.Fatal(err)
	}
	e.SetLoopCount(5)
	if err := e.AddFrame(make([]byte, 16), 1); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := e.Assemble(&buf); err != nil {
		t.Fatal(err)
	}
	g, err := gif.DecodeAll(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if g.LoopCount != 5 {
		t.Errorf("loop count = %d, want 5", g.LoopCount)
	}
}

func TestDelayClamping(t *testing.T) {
	e, err := NewEncoder(2, 2, testPalette(2))
	if err != nil {
		t.Fatal(err)
	}
	if err := e.AddFrame(make([]byte, 4), -7); err != nil {
		t.Fatal(err)
	}
	if e.frames[0].delayCS != 0 {
		t.Errorf("negative delay stored as %d, want 0", e.frames[0].delayCS)
	}
	if err := e.AddFrame(make([]byte, 4), 0x10000); err != nil {
		t.Fatal(err)
	}
	if e.frames[1].delayCS != 0xFFFF {
		t.Errorf("oversize delay stored as %d, want 0xFFFF", e.frames[1].delayCS)
	}
}

func BenchmarkAssemble(b *testing.B) {
	const w, h = 64, 64
	indices := make([]byte, w*h)
	for i := range indices {
		indices[i] = byte(i % 64)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e, _ := NewEncoder(w, h, testPalette(64))
		for f := 0; f < 8; f++ {
			e.AddFrame(indices, 4)
		}
		e.Assemble(&bytes.Buffer{})
	}
}
