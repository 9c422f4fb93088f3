// Package gif89 assembles multi-frame indexed-color GIF89a streams.
//
// The encoder takes pre-quantized frames (one palette index per pixel)
// plus a global color table and writes the container structure: signature,
// logical screen descriptor, global color table, NETSCAPE looping
// extension, one graphic-control + image-descriptor + LZW data record per
// frame, and the trailer. Quantization and dithering happen upstream; see
// the quant package.
//
// Only global-palette encoding is supported. The GIF format permits
// per-frame local color tables, but every frame written by this encoder
// references the global table.
package gif89

import (
	"compress/lzw"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Signature is the 6-byte header every GIF89a stream starts with.
const Signature = "GIF89a"

// Trailer is the final byte of every GIF stream.
const Trailer = 0x3B

// MaxDimension is the largest width or height a GIF logical screen can
// declare (16-bit fields).
const MaxDimension = 0xFFFF

// MaxPaletteSize is the largest color table the format can carry.
const MaxPaletteSize = 256

// Block introducers and labels from the GIF89a specification.
const (
	blockExtension      = 0x21
	blockImage          = 0x2C
	labelGraphicControl = 0xF9
	labelApplication    = 0xFF
)

// disposalKeep leaves the previous frame in place when the next one is
// drawn ("do not dispose"). Animations composed of full frames rely on
// this so partially transparent rendering surfaces do not flicker.
const disposalKeep = 1

var (
	ErrNoFrames        = errors.New("gif89: no frames to assemble")
	ErrCanvasSize      = errors.New("gif89: invalid canvas dimensions")
	ErrPaletteEmpty    = errors.New("gif89: empty palette")
	ErrPaletteTooLarge = errors.New("gif89: palette exceeds 256 entries")
	ErrPaletteFormat   = errors.New("gif89: palette length not a multiple of 3")
	ErrFrameSize       = errors.New("gif89: frame index count does not match canvas")
	ErrIndexRange      = errors.New("gif89: pixel index outside palette")
)

type frame struct {
	indices []byte
	delayCS int // hundredths of a second
}

// Encoder assembles a GIF89a stream from indexed frames.
type Encoder struct {
	width     int
	height    int
	loopCount int
	palette   []byte // packed RGB triples, padded to a power of two
	colorBits int    // log2(padded palette size)
	frames    []frame
}

// NewEncoder creates an encoder for the given canvas size and global
// palette (packed RGB triples, at most 256 entries). The palette is
// padded with black to the next power-of-two entry count, as the format
// requires.
func NewEncoder(width, height int, paletteRGB []byte) (*Encoder, error) {
	if width <= 0 || height <= 0 || width > MaxDimension || height > MaxDimension {
		return nil, fmt.Errorf("%w: %dx%d", ErrCanvasSize, width, height)
	}
	if len(paletteRGB) == 0 {
		return nil, ErrPaletteEmpty
	}
	if len(paletteRGB)%3 != 0 {
		return nil, ErrPaletteFormat
	}
	entries := len(paletteRGB) / 3
	if entries > MaxPaletteSize {
		return nil, fmt.Errorf("%w: %d", ErrPaletteTooLarge, entries)
	}

	bits := paletteBits(entries)
	padded := make([]byte, (1<<bits)*3)
	copy(padded, paletteRGB)

	return &Encoder{
		width:     width,
		height:    height,
		palette:   padded,
		colorBits: bits,
	}, nil
}

// paletteBits returns the smallest n in [1,8] with 2^n >= entries. The
// format cannot express a 1-entry table, so the minimum is 2 colors.
func paletteBits(entries int) int {
	bits := 1
	for 1<<bits < entries {
		bits++
	}
	return bits
}

// PaletteEntries returns the padded size of the global color table.
func (e *Encoder) PaletteEntries() int {
	return len(e.palette) / 3
}

// SetLoopCount sets the NETSCAPE looping directive. Zero means loop
// forever; values are clamped to the 16-bit field.
func (e *Encoder) SetLoopCount(count int) {
	if count < 0 {
		count = 0
	} else if count > 0xFFFF {
		count = 0xFFFF
	}
	e.loopCount = count
}

// AddFrame appends one frame of palette indices with a display delay in
// hundredths of a second. The index count must equal width×height and
// every index must fall inside the padded palette. A zero delay is legal
// (most viewers substitute a minimum of their own).
func (e *Encoder) AddFrame(indices []byte, delayCS int) error {
	if len(indices) != e.width*e.height {
		return fmt.Errorf("%w: got %d indices, want %d",
			ErrFrameSize, len(indices), e.width*e.height)
	}
	limit := byte(e.PaletteEntries() - 1)
	for i, v := range indices {
		if v > limit {
			return fmt.Errorf("%w: index %d at pixel %d, palette has %d entries",
				ErrIndexRange, v, i, e.PaletteEntries())
		}
	}
	if delayCS < 0 {
		delayCS = 0
	} else if delayCS > 0xFFFF {
		delayCS = 0xFFFF
	}
	e.frames = append(e.frames, frame{indices: indices, delayCS: delayCS})
	return nil
}

// NumFrames returns the number of frames added so far.
func (e *Encoder) NumFrames() int {
	return len(e.frames)
}

// Assemble writes the complete GIF89a stream to w. At least one frame
// must have been added.
func (e *Encoder) Assemble(w io.Writer) error {
	if len(e.frames) == 0 {
		return ErrNoFrames
	}

	bw := &errWriter{w: w}

	// Header and logical screen descriptor.
	bw.writeString(Signature)
	bw.writeUint16(uint16(e.width))
	bw.writeUint16(uint16(e.height))
	// Packed fields: global color table present, 8-bit color resolution,
	// table size as log2(entries)-1.
	bw.writeByte(0x80 | 0x70 | byte(e.colorBits-1))
	bw.writeByte(0) // background color index
	bw.writeByte(0) // pixel aspect ratio: unspecified
	bw.write(e.palette)

	e.writeLoopExtension(bw)

	for i := range e.frames {
		if err := e.writeFrame(bw, &e.frames[i]); err != nil {
			return err
		}
	}

	bw.writeByte(Trailer)
	return bw.err
}

// writeLoopExtension emits the NETSCAPE2.0 application extension carrying
// the loop count (0 = infinite).
func (e *Encoder) writeLoopExtension(bw *errWriter) {
	bw.writeByte(blockExtension)
	bw.writeByte(labelApplication)
	bw.writeByte(11)
	bw.writeString("NETSCAPE2.0")
	bw.writeByte(3) // sub-block size
	bw.writeByte(1) // looping sub-block ID
	bw.writeUint16(uint16(e.loopCount))
	bw.writeByte(0) // block terminator
}

// writeFrame emits one graphic control extension, image descriptor, and
// LZW-compressed index stream.
func (e *Encoder) writeFrame(bw *errWriter, f *frame) error {
	// Graphic control extension.
	bw.writeByte(blockExtension)
	bw.writeByte(labelGraphicControl)
	bw.writeByte(4)
	bw.writeByte(disposalKeep << 2)
	bw.writeUint16(uint16(f.delayCS))
	bw.writeByte(0) // transparent color index (unused)
	bw.writeByte(0) // block terminator

	// Image descriptor: full-canvas frame, no local color table.
	bw.writeByte(blockImage)
	bw.writeUint16(0) // left
	bw.writeUint16(0) // top
	bw.writeUint16(uint16(e.width))
	bw.writeUint16(uint16(e.height))
	bw.writeByte(0)

	// LZW-compressed indices in 255-byte sub-blocks.
	litWidth := e.colorBits
	if litWidth < 2 {
		litWidth = 2
	}
	bw.writeByte(byte(litWidth))
	if bw.err != nil {
		return bw.err
	}

	blocks := &blockWriter{w: bw}
	lw := lzw.NewWriter(blocks, lzw.LSB, litWidth)
	if _, err := lw.Write(f.indices); err != nil {
		return fmt.Errorf("gif89: compressing frame: %w", err)
	}
	if err := lw.Close(); err != nil {
		return fmt.Errorf("gif89: compressing frame: %w", err)
	}
	if err := blocks.close(); err != nil {
		return err
	}
	return bw.err
}

// errWriter wraps an io.Writer, latching the first error so the encoder
// body can stay free of per-write error plumbing.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) write(p []byte) {
	if ew.err != nil {
		return
	}
	_, ew.err = ew.w.Write(p)
}

func (ew *errWriter) writeByte(b byte) {
	ew.write([]byte{b})
}

func (ew *errWriter) writeString(s string) {
	ew.write([]byte(s))
}

func (ew *errWriter) writeUint16(v uint16) {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	ew.write(buf[:])
}

// blockWriter chops an LZW byte stream into GIF data sub-blocks of at
// most 255 bytes, each prefixed by its length, and emits the 0x00
// terminator on close.
type blockWriter struct {
	w   *errWriter
	buf [255]byte
	n   int
}

func (b *blockWriter) Write(p []byte) (int, error) {
	total := len(p)
	for len(p) > 0 {
		n := copy(b.buf[b.n:], p)
		b.n += n
		p = p[n:]
		if b.n == len(b.buf) {
			b.flush()
		}
	}
	if b.w.err != nil {
		return 0, b.w.err
	}
	return total, nil
}

func (b *blockWriter) flush() {
	if b.n == 0 {
		return
	}
	b.w.writeByte(byte(b.n))
	b.w.write(b.buf[:b.n])
	b.n = 0
}

func (b *blockWriter) close() error {
	b.flush()
	b.w.writeByte(0)
	return b.w.err
}
