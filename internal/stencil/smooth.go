package stencil

import "math"

// BoxBlur averages each value over a (2r+1)x(2r+1) window, r = floor(smoothing).
//
// Samples falling outside the buffer are left out of both the sum and the
// count, so borders are an edge-aware mean rather than being darkened by zero
// padding. r = 0 returns an unmodified copy.
//
// The square window is separable: a horizontal pass followed by a vertical pass
// gives the same mean as the 2D window because the valid region is always a
// rectangle.
func BoxBlur(src *LuminanceBuffer, smoothing float64) *LuminanceBuffer {
	r := int(math.Floor(clampFloat(smoothing, 0, 10)))
	if r == 0 {
		return src.Clone()
	}

	w, h := src.Width, src.Height
	horiz := newLuminanceBuffer(w, h)
	parallelRows(h, func(start, end int) {
		for y := start; y < end; y++ {
			row := src.Values[y*w : (y+1)*w]
			out := horiz.Values[y*w : (y+1)*w]
			for x := 0; x < w; x++ {
				lo, hi := max(0, x-r), min(w-1, x+r)
				var sum float64
				for k := lo; k <= hi; k++ {
					sum += row[k]
				}
				out[x] = sum / float64(hi-lo+1)
			}
		}
	})

	dst := newLuminanceBuffer(w, h)
	parallelRows(h, func(start, end int) {
		for y := start; y < end; y++ {
			lo, hi := max(0, y-r), min(h-1, y+r)
			n := float64(hi - lo + 1)
			for x := 0; x < w; x++ {
				var sum float64
				for k := lo; k <= hi; k++ {
					sum += horiz.Values[k*w+x]
				}
				dst.Values[y*w+x] = sum / n
			}
		}
	})
	return dst
}
