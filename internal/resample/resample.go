// Package resample rescales raw RGBA frame buffers to a target square
// edge. The pipeline's quantizer and tensor builder both require all
// frames of a batch to share one size; callers feeding captures of a
// different resolution go through here first.
package resample

import (
	"image"

	"golang.org/x/image/draw"
)

// Filter selects the resampling kernel.
type Filter int

const (
	// NearestNeighbor point-samples the source. Fast, and exact for
	// integer upscaling of synthetic content.
	NearestNeighbor Filter = iota
	// CatmullRom is a sharp cubic kernel, the quality choice for
	// photographic downscaling.
	CatmullRom
)

// Frame rescales one width×height RGBA frame to edge×edge. The input is
// returned unchanged (not copied) when it is already the target size.
func Frame(src []byte, width, height, edge int, filter Filter) []byte {
	if width == edge && height == edge {
		return src
	}

	in := &image.NRGBA{
		Pix:    src,
		Stride: width * 4,
		Rect:   image.Rect(0, 0, width, height),
	}
	out := image.NewNRGBA(image.Rect(0, 0, edge, edge))

	var scaler draw.Scaler
	switch filter {
	case CatmullRom:
		scaler = draw.CatmullRom
	default:
		scaler = draw.NearestNeighbor
	}
	scaler.Scale(out, out.Rect, in, in.Rect, draw.Src, nil)
	return out.Pix
}

// Batch rescales every frame of a packed frame-major buffer to edge×edge,
// returning a new packed buffer. The input buffer length must be a
// multiple of width×height×4.
func Batch(frames []byte, width, height, edge int, filter Filter) []byte {
	frameSize := width * height * 4
	if frameSize == 0 {
		return nil
	}
	n := len(frames) / frameSize
	if width == edge && height == edge {
		return frames
	}
	out := make([]byte, 0, n*edge*edge*4)
	for i := 0; i < n; i++ {
		out = append(out, Frame(frames[i*frameSize:(i+1)*frameSize], width, height, edge, filter)...)
	}
	return out
}
