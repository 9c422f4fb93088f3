// Package oklab converts between 8-bit sRGB pixels and the OKLab
// perceptually uniform color space.
//
// OKLab (https://bottosson.github.io/posts/oklab/) represents a color as
// a lightness value L and two opponent chroma axes a (green-red) and
// b (blue-yellow). Euclidean distance in OKLab tracks perceived color
// difference far better than distance in sRGB, which makes it the
// working space for palette construction and dithering.
package oklab

import "math"

// Color is a single pixel in OKLab coordinates.
type Color struct {
	L float32 // lightness
	A float32 // green-red axis
	B float32 // blue-yellow axis
}

// srgbToLinear applies the inverse sRGB transfer curve to a normalized
// channel value.
func srgbToLinear(c float64) float64 {
	if c <= 0.04045 {
		return c / 12.92
	}
	return math.Pow((c+0.055)/1.055, 2.4)
}

// linearToSRGB applies the sRGB transfer curve to a linear channel value.
func linearToSRGB(c float64) float64 {
	if c <= 0.0031308 {
		return c * 12.92
	}
	return 1.055*math.Pow(c, 1.0/2.4) - 0.055
}

// FromRGBA8 converts a single RGBA pixel to OKLab. The alpha channel is
// ignored; GIF output carries no per-pixel transparency.
func FromRGBA8(r, g, b uint8) Color {
	lr := srgbToLinear(float64(r) / 255.0)
	lg := srgbToLinear(float64(g) / 255.0)
	lb := srgbToLinear(float64(b) / 255.0)

	// Linear sRGB to LMS cone response.
	l := 0.4122214708*lr + 0.5363325363*lg + 0.0514459929*lb
	m := 0.2119034982*lr + 0.6806995451*lg + 0.1073969566*lb
	s := 0.0883024619*lr + 0.2817188376*lg + 0.6299787005*lb

	lc := math.Cbrt(l)
	mc := math.Cbrt(m)
	sc := math.Cbrt(s)

	return Color{
		L: float32(0.2104542553*lc + 0.7936177850*mc - 0.0040720468*sc),
		A: float32(1.9779984951*lc - 2.4285922050*mc + 0.4505937099*sc),
		B: float32(0.0259040371*lc + 0.7827717662*mc - 0.8086757660*sc),
	}
}

// RGBA8 converts the color back to 8-bit sRGB with full opacity.
// Out-of-gamut results are clamped to [0,255] per channel.
func (c Color) RGBA8() (r, g, b, a uint8) {
	lc := float64(c.L) + 0.3963377774*float64(c.A) + 0.2158037573*float64(c.B)
	mc := float64(c.L) - 0.1055613458*float64(c.A) - 0.0638541728*float64(c.B)
	sc := float64(c.L) - 0.0894841775*float64(c.A) - 1.2914855480*float64(c.B)

	l := lc * lc * lc
	m := mc * mc * mc
	s := sc * sc * sc

	lr := 4.0767416621*l - 3.3077115913*m + 0.2309699292*s
	lg := -1.2684380046*l + 2.6097574011*m - 0.3413193965*s
	lb := -0.0041960863*l - 0.7034186147*m + 1.7076147010*s

	return quantize(linearToSRGB(lr)), quantize(linearToSRGB(lg)), quantize(linearToSRGB(lb)), 255
}

// quantize clamps a normalized channel value and requantizes to 8 bits.
func quantize(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255.0 + 0.5)
}

// FromRGBA converts a packed RGBA byte buffer (4 bytes per pixel) to a
// slice of OKLab colors. The buffer length must be a multiple of 4;
// trailing bytes are ignored.
func FromRGBA(buf []byte) []Color {
	n := len(buf) / 4
	out := make([]Color, n)
	for i := 0; i < n; i++ {
		p := buf[i*4:]
		out[i] = FromRGBA8(p[0], p[1], p[2])
	}
	return out
}

// AppendRGBA converts colors back to packed RGBA bytes, appending to dst.
// Alpha is always 255.
func AppendRGBA(dst []byte, colors []Color) []byte {
	for _, c := range colors {
		r, g, b, a := c.RGBA8()
		dst = append(dst, r, g, b, a)
	}
	return dst
}

// DistanceSq returns the squared Euclidean distance between two colors
// in OKLab coordinates.
func DistanceSq(x, y Color) float32 {
	dl := x.L - y.L
	da := x.A - y.A
	db := x.B - y.B
	return dl*dl + da*da + db*db
}
