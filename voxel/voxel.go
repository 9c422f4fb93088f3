// Package voxel packs sequences of RGBA frames into dense frame-major
// 3-D sample grids and provides coordinate mapping and an optional 3-D
// convolution pass over them.
//
// A tensor is a flat byte buffer indexed by (x, y, z, channel): all
// pixels of frame 0, then frame 1, and so on, 4 bytes per voxel. Every
// consumer of a tensor assumes exactly this ordering.
package voxel

import (
	"errors"
	"fmt"

	"github.com/deepteams/animgif/internal/parallel"
)

// Channels is the number of bytes per voxel (RGBA).
const Channels = 4

var (
	ErrShape      = errors.New("voxel: invalid shape")
	ErrSize       = errors.New("voxel: buffer length does not match shape")
	ErrFrameRange = errors.New("voxel: frame index out of range")
	ErrKernel     = errors.New("voxel: kernel size must be odd and positive")
	ErrKernelLen  = errors.New("voxel: kernel length must equal size cubed")
)

// Shape describes the logical dimensions of a tensor. Depth is the
// number of frames (the z axis).
type Shape struct {
	Width  int
	Height int
	Depth  int
}

// Cube returns a shape with all three edges equal.
func Cube(edge int) Shape {
	return Shape{Width: edge, Height: edge, Depth: edge}
}

// Valid reports whether all dimensions are positive.
func (s Shape) Valid() bool {
	return s.Width > 0 && s.Height > 0 && s.Depth > 0
}

// FrameBytes returns the byte size of one frame (z slice).
func (s Shape) FrameBytes() int {
	return s.Width * s.Height * Channels
}

// TensorBytes returns the byte size of the whole tensor.
func (s Shape) TensorBytes() int {
	return s.Width * s.Height * s.Depth * Channels
}

// Offset maps voxel coordinates to the byte offset of its first channel:
// ((z*height + y)*width + x) * 4. The ordering is load-bearing; every
// other component assumes it.
func Offset(x, y, z int, s Shape) int {
	return ((z*s.Height+y)*s.Width + x) * Channels
}

// Pack validates that frames holds exactly shape.TensorBytes() bytes of
// frame-major RGBA data and returns an independent copy. No resampling
// happens here: callers feed same-sized frames (see internal/resample
// for the nearest-neighbor fallback when capture dimensions differ).
func Pack(frames []byte, s Shape) ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %dx%dx%d", ErrShape, s.Width, s.Height, s.Depth)
	}
	if len(frames) != s.TensorBytes() {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrSize, len(frames), s.TensorBytes())
	}
	out := make([]byte, len(frames))
	copy(out, frames)
	return out, nil
}

// ExtractFrame returns a copy of the z-th frame of the tensor.
func ExtractFrame(tensor []byte, s Shape, z int) ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %dx%dx%d", ErrShape, s.Width, s.Height, s.Depth)
	}
	if z < 0 || z >= s.Depth {
		return nil, fmt.Errorf("%w: %d not in [0,%d)", ErrFrameRange, z, s.Depth)
	}
	if len(tensor) != s.TensorBytes() {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrSize, len(tensor), s.TensorBytes())
	}
	fb := s.FrameBytes()
	out := make([]byte, fb)
	copy(out, tensor[z*fb:(z+1)*fb])
	return out, nil
}

// Convolve3D applies a size×size×size kernel over the tensor and returns
// a new tensor. size must be odd. Out-of-range sample coordinates are
// clamped to the valid axis range (no wrapping, no zero padding), so a
// uniform tensor convolved with any normalized kernel stays uniform.
// Output frames are computed independently, one frame per worker.
func Convolve3D(tensor []byte, s Shape, kernel []float32, size int) ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %dx%dx%d", ErrShape, s.Width, s.Height, s.Depth)
	}
	if len(tensor) != s.TensorBytes() {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrSize, len(tensor), s.TensorBytes())
	}
	if size <= 0 || size%2 == 0 {
		return nil, fmt.Errorf("%w: got %d", ErrKernel, size)
	}
	if len(kernel) != size*size*size {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrKernelLen, len(kernel), size*size*size)
	}

	half := size / 2
	out := make([]byte, len(tensor))

	err := parallel.Frames(s.Depth, func(z int) error {
		convolveFrame(tensor, out, s, kernel, size, half, z)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// convolveFrame computes one output z slice. Writes are confined to that
// slice, so frames can run concurrently.
func convolveFrame(tensor, out []byte, s Shape, kernel []float32, size, half, z int) {
	for y := 0; y < s.Height; y++ {
		for x := 0; x < s.Width; x++ {
			var acc [Channels]float32

			for kz := -half; kz <= half; kz++ {
				sz := clamp(z+kz, 0, s.Depth-1)
				for ky := -half; ky <= half; ky++ {
					sy := clamp(y+ky, 0, s.Height-1)
					for kx := -half; kx <= half; kx++ {
						sx := clamp(x+kx, 0, s.Width-1)

						ki := ((kz+half)*size+(ky+half))*size + (kx + half)
						w := kernel[ki]
						vi := Offset(sx, sy, sz, s)
						for c := 0; c < Channels; c++ {
							acc[c] += float32(tensor[vi+c]) * w
						}
					}
				}
			}

			oi := Offset(x, y, z, s)
			for c := 0; c < Channels; c++ {
				out[oi+c] = clampByte(acc[c])
			}
		}
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampByte(v float32) byte {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return byte(v + 0.5)
}
