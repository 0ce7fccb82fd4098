package stencil

import "math"

var (
	sobelX = [3][3]float64{
		{-1, 0, 1},
		{-2, 0, 2},
		{-1, 0, 1},
	}
	sobelY = [3][3]float64{
		{-1, -2, -1},
		{0, 0, 0},
		{1, 2, 1},
	}
)

// Sobel computes the gradient magnitude of src with the standard 3x3 kernels,
// scaled by edgeIntensity/20.
//
// The one-pixel border ring is left at zero: there is no wraparound and no
// extrapolation. Images narrower or shorter than 3 pixels therefore produce an
// all-zero map.
func Sobel(src *LuminanceBuffer, edgeIntensity float64) *LuminanceBuffer {
	gain := clampFloat(edgeIntensity, 0, 200) / 20
	w, h := src.Width, src.Height
	dst := newLuminanceBuffer(w, h)
	if w < 3 || h < 3 {
		return dst
	}

	parallelRows(h, func(start, end int) {
		for y := max(start, 1); y < min(end, h-1); y++ {
			for x := 1; x < w-1; x++ {
				var gx, gy float64
				for ky := -1; ky <= 1; ky++ {
					base := (y + ky) * w
					for kx := -1; kx <= 1; kx++ {
						v := src.Values[base+x+kx]
						gx += v * sobelX[ky+1][kx+1]
						gy += v * sobelY[ky+1][kx+1]
					}
				}
				dst.Values[y*w+x] = math.Sqrt(gx*gx+gy*gy) * gain
			}
		}
	})
	return dst
}

// IsThresholdLine reports whether a luminance value falls below the cut,
// normally Settings.Threshold (detail*2.55).
func IsThresholdLine(lum, threshold float64) bool {
	return lum < threshold
}
