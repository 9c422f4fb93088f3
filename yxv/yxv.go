// Package yxv reads and writes the YXV on-disk container for voxel
// tensors.
//
// A YXV file wraps one frame-major RGBA tensor (see the voxel package)
// with its dimensions, an optional 256-entry RGB palette, a CRC-32
// checksum of the raw tensor, and optional zstd compression:
//
//	offset  size  field
//	0       4     magic "YXV1"
//	4       1     version (1)
//	5       1     flags (bit 0: palette present)
//	6       1     compression (0 = none, 1 = zstd)
//	7       1     reserved (0)
//	8       4     width  (uint32 LE)
//	12      4     height (uint32 LE)
//	16      4     depth  (uint32 LE)
//	20      4     CRC-32 (IEEE) of the uncompressed tensor (uint32 LE)
//	24      4     payload length in bytes (uint32 LE)
//	28      768   RGB palette (only when flags bit 0 is set)
//	...           payload (tensor, possibly compressed)
package yxv

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/deepteams/animgif/internal/pool"
	"github.com/deepteams/animgif/voxel"
)

// Magic identifies a YXV stream.
const Magic = "YXV1"

// Version is the only format version this package reads and writes.
const Version = 1

const (
	headerSize  = 28
	paletteSize = 768 // 256 RGB triples
	flagPalette = 1 << 0
)

// Compression selects the payload codec.
type Compression uint8

const (
	CompressionNone Compression = 0
	CompressionZstd Compression = 1
)

// String implements fmt.Stringer.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

var (
	ErrBadMagic       = errors.New("yxv: bad magic")
	ErrBadVersion     = errors.New("yxv: unsupported version")
	ErrBadCompression = errors.New("yxv: unknown compression type")
	ErrBadShape       = errors.New("yxv: invalid dimensions")
	ErrTensorSize     = errors.New("yxv: tensor length does not match dimensions")
	ErrPaletteSize    = errors.New("yxv: palette must be 768 bytes")
	ErrChecksum       = errors.New("yxv: checksum mismatch")
	ErrTruncated      = errors.New("yxv: truncated stream")
)

// Container is an in-memory YXV file.
type Container struct {
	Shape       voxel.Shape
	Compression Compression
	// Palette optionally carries 256 packed RGB entries (768 bytes).
	Palette []byte
	// Tensor is the uncompressed frame-major RGBA tensor.
	Tensor []byte
}

// zstd codecs are stateless after construction and shared process-wide,
// following the klauspost/compress EncodeAll/DecodeAll usage pattern.
var (
	zstdOnce sync.Once
	zstdEnc  *zstd.Encoder
	zstdDec  *zstd.Decoder
)

func zstdCodecs() (*zstd.Encoder, *zstd.Decoder) {
	zstdOnce.Do(func() {
		var err error
		zstdEnc, err = zstd.NewWriter(nil,
			zstd.WithEncoderConcurrency(1),
			zstd.WithEncoderLevel(zstd.SpeedBetterCompression),
		)
		if err != nil {
			panic("yxv: zstd encoder init: " + err.Error())
		}
		zstdDec, err = zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
		if err != nil {
			panic("yxv: zstd decoder init: " + err.Error())
		}
	})
	return zstdEnc, zstdDec
}

// validate checks the container's fields for structural consistency.
func (c *Container) validate() error {
	if !c.Shape.Valid() {
		return fmt.Errorf("%w: %dx%dx%d", ErrBadShape, c.Shape.Width, c.Shape.Height, c.Shape.Depth)
	}
	if len(c.Tensor) != c.Shape.TensorBytes() {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrTensorSize, len(c.Tensor), c.Shape.TensorBytes())
	}
	if c.Palette != nil && len(c.Palette) != paletteSize {
		return fmt.Errorf("%w: got %d bytes", ErrPaletteSize, len(c.Palette))
	}
	switch c.Compression {
	case CompressionNone, CompressionZstd:
	default:
		return fmt.Errorf("%w: %d", ErrBadCompression, c.Compression)
	}
	return nil
}

// WriteTo serializes the container. It implements io.WriterTo.
func (c *Container) WriteTo(w io.Writer) (int64, error) {
	if err := c.validate(); err != nil {
		return 0, err
	}

	payload := c.Tensor
	if c.Compression == CompressionZstd {
		enc, _ := zstdCodecs()
		scratch := pool.GetBytes(len(c.Tensor))[:0]
		payload = enc.EncodeAll(c.Tensor, scratch)
		defer pool.PutBytes(payload)
	}

	var hdr [headerSize]byte
	copy(hdr[0:4], Magic)
	hdr[4] = Version
	if c.Palette != nil {
		hdr[5] |= flagPalette
	}
	hdr[6] = byte(c.Compression)
	binary.LittleEndian.PutUint32(hdr[8:12], uint32(c.Shape.Width))
	binary.LittleEndian.PutUint32(hdr[12:16], uint32(c.Shape.Height))
	binary.LittleEndian.PutUint32(hdr[16:20], uint32(c.Shape.Depth))
	binary.LittleEndian.PutUint32(hdr[20:24], crc32.ChecksumIEEE(c.Tensor))
	binary.LittleEndian.PutUint32(hdr[24:28], uint32(len(payload)))

	var n int64
	wn, err := w.Write(hdr[:])
	n += int64(wn)
	if err != nil {
		return n, err
	}
	if c.Palette != nil {
		wn, err = w.Write(c.Palette)
		n += int64(wn)
		if err != nil {
			return n, err
		}
	}
	wn, err = w.Write(payload)
	n += int64(wn)
	return n, err
}

// Read parses a YXV stream, decompresses the tensor, and verifies the
// checksum.
func Read(r io.Reader) (*Container, error) {
	var hdr [headerSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrTruncated, err)
	}
	if string(hdr[0:4]) != Magic {
		return nil, ErrBadMagic
	}
	if hdr[4] != Version {
		return nil, fmt.Errorf("%w: %d", ErrBadVersion, hdr[4])
	}

	c := &Container{
		Compression: Compression(hdr[6]),
		Shape: voxel.Shape{
			Width:  int(binary.LittleEndian.Uint32(hdr[8:12])),
			Height: int(binary.LittleEndian.Uint32(hdr[12:16])),
			Depth:  int(binary.LittleEndian.Uint32(hdr[16:20])),
		},
	}
	if !c.Shape.Valid() {
		return nil, fmt.Errorf("%w: %dx%dx%d", ErrBadShape, c.Shape.Width, c.Shape.Height, c.Shape.Depth)
	}
	wantCRC := binary.LittleEndian.Uint32(hdr[20:24])
	payloadLen := int(binary.LittleEndian.Uint32(hdr[24:28]))

	if hdr[5]&flagPalette != 0 {
		c.Palette = make([]byte, paletteSize)
		if _, err := io.ReadFull(r, c.Palette); err != nil {
			return nil, fmt.Errorf("%w: palette: %v", ErrTruncated, err)
		}
	}

	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("%w: payload: %v", ErrTruncated, err)
	}

	switch c.Compression {
	case CompressionNone:
		c.Tensor = payload
	case CompressionZstd:
		_, dec := zstdCodecs()
		tensor, err := dec.DecodeAll(payload, make([]byte, 0, c.Shape.TensorBytes()))
		if err != nil {
			return nil, fmt.Errorf("yxv: zstd decode: %w", err)
		}
		c.Tensor = tensor
	default:
		return nil, fmt.Errorf("%w: %d", ErrBadCompression, c.Compression)
	}

	if len(c.Tensor) != c.Shape.TensorBytes() {
		return nil, fmt.Errorf("%w: got %d bytes, want %d",
			ErrTensorSize, len(c.Tensor), c.Shape.TensorBytes())
	}
	if got := crc32.ChecksumIEEE(c.Tensor); got != wantCRC {
		return nil, fmt.Errorf("%w: got %08x, want %08x", ErrChecksum, got, wantCRC)
	}
	return c, nil
}

// Validate parses a stream and reports the first structural or checksum
// problem, without retaining the tensor.
func Validate(r io.Reader) error {
	_, err := Read(r)
	return err
}

// ExtractFrame returns a copy of the z-th frame of the container's
// tensor.
func (c *Container) ExtractFrame(z int) ([]byte, error) {
	return voxel.ExtractFrame(c.Tensor, c.Shape, z)
}
