package stencil

// mixedLuminanceCut is the fixed dark cut OR-ed into the edge rule in mixed mode.
const mixedLuminanceCut = 128

// IsLine applies the per-mode line rule to one pixel, before inversion.
//
//	edge:      magnitude > threshold
//	threshold: lum < threshold
//	mixed:     magnitude > threshold || lum < 128
func IsLine(mode Mode, magnitude, lum, threshold float64) bool {
	switch mode {
	case ModeThreshold:
		return IsThresholdLine(lum, threshold)
	case ModeMixed:
		return magnitude > threshold || lum < mixedLuminanceCut
	default:
		return magnitude > threshold
	}
}

// Composite classifies every pixel and paints the final stencil: opaque
// LineColor for line pixels, opaque white otherwise. Invert swaps the two
// classes. FlipX is applied once at the very end by reading each row mirrored.
//
// magnitude may be nil in threshold mode; it is never read there.
func Composite(magnitude, lum *LuminanceBuffer, s Settings) *RasterBuffer {
	s = s.Normalize()
	w, h := lum.Width, lum.Height
	t := s.Threshold()
	line := s.LineColor

	dst := &RasterBuffer{Width: w, Height: h, Pix: make([]uint8, w*h*4)}
	parallelRows(h, func(start, end int) {
		for p := start * w; p < end*w; p++ {
			var mag float64
			if magnitude != nil {
				mag = magnitude.Values[p]
			}
			isLine := IsLine(s.Mode, mag, lum.Values[p], t)
			if s.Invert {
				isLine = !isLine
			}

			i := p * 4
			if isLine {
				dst.Pix[i], dst.Pix[i+1], dst.Pix[i+2] = line.R, line.G, line.B
			} else {
				dst.Pix[i], dst.Pix[i+1], dst.Pix[i+2] = 255, 255, 255
			}
			dst.Pix[i+3] = 255
		}
	})

	if s.FlipX {
		return FlipHorizontal(dst)
	}
	return dst
}

// FlipHorizontal returns a mirrored copy: output (x, y) reads input
// (width-1-x, y). Applying it twice restores the original exactly.
func FlipHorizontal(src *RasterBuffer) *RasterBuffer {
	w := src.Width
	dst := &RasterBuffer{Width: w, Height: src.Height, Pix: make([]uint8, len(src.Pix))}
	parallelRows(src.Height, func(start, end int) {
		for y := start; y < end; y++ {
			row := y * w * 4
			for x := 0; x < w; x++ {
				copy(dst.Pix[row+x*4:row+x*4+4], src.Pix[row+(w-1-x)*4:row+(w-1-x)*4+4])
			}
		}
	})
	return dst
}
