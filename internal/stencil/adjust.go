package stencil

import "math"

// ContrastFactor returns the classic contrast curve multiplier
// 259*(c+255) / (255*(259-c)). contrast is clamped to [-100, 100], so the
// denominator never reaches zero. A contrast of 0 yields exactly 1.
func ContrastFactor(contrast float64) float64 {
	contrast = clampFloat(contrast, -100, 100)
	return 259 * (contrast + 255) / (255 * (259 - contrast))
}

// AdjustColor applies contrast and brightness to every RGB channel of src and
// returns a new buffer. Alpha is copied unchanged.
//
// Each channel c becomes clamp(factor*(c-128)+128+brightness, 0, 255), rounded
// to the nearest integer. contrast = 0 and brightness = 0 is the identity.
func AdjustColor(src *RasterBuffer, contrast, brightness float64) *RasterBuffer {
	brightness = clampFloat(brightness, -100, 100)
	factor := ContrastFactor(contrast)

	// 256-entry lookup table: the transform depends only on the input byte.
	var lut [256]uint8
	for i := range lut {
		lut[i] = uint8(math.Round(clampFloat(factor*(float64(i)-128)+128+brightness, 0, 255)))
	}

	dst := &RasterBuffer{Width: src.Width, Height: src.Height, Pix: make([]uint8, len(src.Pix))}
	stride := src.Width * 4
	parallelRows(src.Height, func(start, end int) {
		for i := start * stride; i < end*stride; i += 4 {
			dst.Pix[i] = lut[src.Pix[i]]
			dst.Pix[i+1] = lut[src.Pix[i+1]]
			dst.Pix[i+2] = lut[src.Pix[i+2]]
			dst.Pix[i+3] = src.Pix[i+3]
		}
	})
	return dst
}

// Luminance returns the ITU-R BT.601 weighted brightness of an RGB triple.
func Luminance(r, g, b float64) float64 {
	return 0.299*r + 0.587*g + 0.114*b
}

// ToLuminance reduces an adjusted buffer to per-pixel float64 luminance.
// No rounding is applied, so downstream convolutions see the full precision.
func ToLuminance(src *RasterBuffer) *LuminanceBuffer {
	dst := newLuminanceBuffer(src.Width, src.Height)
	parallelRows(src.Height, func(start, end int) {
		for p := start * src.Width; p < end*src.Width; p++ {
			i := p * 4
			dst.Values[p] = Luminance(float64(src.Pix[i]), float64(src.Pix[i+1]), float64(src.Pix[i+2]))
		}
	})
	return dst
}
