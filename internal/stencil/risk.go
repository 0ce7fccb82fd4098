package stencil

import (
	"github.com/lucasb-eyer/go-colorful"
)

// Thermal transfer paper bleeds where large dark areas meet: mid-tone regions
// of the photo that the pipeline turned into solid black tend to fuse.
const (
	riskBlackLuminance = 50
	riskOpaqueAlpha    = 200
	riskRedLow         = 100
	riskRedHigh        = 200
	riskOverlayAlpha   = 200
)

// RiskAlertColor is painted at flagged pixels of the risk overlay.
var RiskAlertColor = colorful.Color{R: 1, G: 0.2, B: 0}

// RiskReport summarises a thermal risk scan.
type RiskReport struct {
	BlackPixels   int     `json:"black_pixels"`
	FlaggedPixels int     `json:"flagged_pixels"`
	MeanDensity   float64 `json:"mean_density"` // average 3x3 black count over black pixels
	MaxDensity    int     `json:"max_density"`  // 0-9
}

// AnalyzeThermalRisk scans the final stencil for black line pixels
// (luminance < 50, alpha > 200) and flags those whose original, pre-adjustment
// pixel was a mid-tone (red in [100, 200), alpha > 200).
//
// For each black pixel the number of black pixels in its 3x3 neighbourhood
// (itself included) is counted for the report. flipX must match the setting
// used to render final, so that each stencil pixel is compared with the source
// pixel it was read from.
//
// The returned overlay has the same dimensions as final and is transparent
// except for RiskAlertColor at alpha 200 on flagged pixels.
func AnalyzeThermalRisk(final, original *RasterBuffer, flipX bool) (*RasterBuffer, RiskReport) {
	w, h := final.Width, final.Height
	black := make([]bool, w*h)
	for p := range black {
		i := p * 4
		lum := Luminance(float64(final.Pix[i]), float64(final.Pix[i+1]), float64(final.Pix[i+2]))
		black[p] = lum < riskBlackLuminance && final.Pix[i+3] > riskOpaqueAlpha
	}

	ar, ag, ab := RiskAlertColor.RGB255()
	overlay := &RasterBuffer{Width: w, Height: h, Pix: make([]uint8, w*h*4)}
	var report RiskReport
	var densitySum int

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !black[y*w+x] {
				continue
			}
			report.BlackPixels++

			density := 0
			for ny := max(0, y-1); ny <= min(h-1, y+1); ny++ {
				for nx := max(0, x-1); nx <= min(w-1, x+1); nx++ {
					if black[ny*w+nx] {
						density++
					}
				}
			}
			densitySum += density
			report.MaxDensity = max(report.MaxDensity, density)

			ox := x
			if flipX {
				ox = w - 1 - x
			}
			if ox >= original.Width || y >= original.Height {
				continue
			}
			red, _, _, alpha := original.RGBAAt(ox, y)
			if red < riskRedLow || red >= riskRedHigh || alpha <= riskOpaqueAlpha {
				continue
			}

			report.FlaggedPixels++
			i := (y*w + x) * 4
			overlay.Pix[i], overlay.Pix[i+1], overlay.Pix[i+2], overlay.Pix[i+3] = ar, ag, ab, riskOverlayAlpha
		}
	}

	if report.BlackPixels > 0 {
		report.MeanDensity = float64(densitySum) / float64(report.BlackPixels)
	}
	return overlay, report
}
