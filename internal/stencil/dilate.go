package stencil

import "math"

// DilationRadius returns floor(thickness/2), or 0 for thickness <= 1.
func DilationRadius(thickness float64) int {
	thickness = clampFloat(thickness, 1, 10)
	if thickness <= 1 {
		return 0
	}
	return int(math.Floor(thickness / 2))
}

// Dilate thickens lines in a magnitude map by replacing each value with the
// maximum inside a square window of radius DilationRadius(thickness). The
// window is clipped at the borders. thickness <= 1 returns an unmodified copy.
//
// Like BoxBlur the square max filter is separable into a row pass and a
// column pass.
func Dilate(src *LuminanceBuffer, thickness float64) *LuminanceBuffer {
	r := DilationRadius(thickness)
	if r == 0 {
		return src.Clone()
	}

	w, h := src.Width, src.Height
	horiz := newLuminanceBuffer(w, h)
	parallelRows(h, func(start, end int) {
		for y := start; y < end; y++ {
			row := src.Values[y*w : (y+1)*w]
			for x := 0; x < w; x++ {
				m := row[x]
				for k := max(0, x-r); k <= min(w-1, x+r); k++ {
					if row[k] > m {
						m = row[k]
					}
				}
				horiz.Values[y*w+x] = m
			}
		}
	})

	dst := newLuminanceBuffer(w, h)
	parallelRows(h, func(start, end int) {
		for y := start; y < end; y++ {
			lo, hi := max(0, y-r), min(h-1, y+r)
			for x := 0; x < w; x++ {
				m := horiz.Values[y*w+x]
				for k := lo; k <= hi; k++ {
					if v := horiz.Values[k*w+x]; v > m {
						m = v
					}
				}
				dst.Values[y*w+x] = m
			}
		}
	})
	return dst
}
