package stencil

import (
	"context"
	"image"

	"github.com/anthonynsimon/bild/blend"
)

// Options carries per-call switches that live outside Settings.
type Options struct {
	// ThermalWarnings enables the thermal risk overlay.
	ThermalWarnings bool
}

// Result is the output of one pipeline run. Overlay and Report are nil unless
// Options.ThermalWarnings was set.
type Result struct {
	Stencil  *RasterBuffer
	Overlay  *RasterBuffer
	Report   *RiskReport
	Settings Settings // normalized settings actually used
}

// Preview composites the risk overlay over the stencil for display. Without
// an overlay it returns the stencil alone.
func (r *Result) Preview() image.Image {
	if r.Overlay == nil {
		return r.Stencil.NRGBA()
	}
	return blend.Normal(r.Stencil.NRGBA(), r.Overlay.NRGBA())
}

// Compute runs the full pipeline on src. See ComputeContext.
func Compute(src *RasterBuffer, s Settings, opts Options) (*Result, error) {
	return ComputeContext(context.Background(), src, s, opts)
}

// ComputeContext runs the full pipeline:
//
//	adjust -> luminance -> smooth -> {sobel + dilate | threshold} -> composite [-> risk]
//
// Settings are normalized first. The context is checked between stages; a
// cancelled run returns ctx.Err() and no partial result. The only other error
// is a *ConfigurationError for a malformed source buffer.
func ComputeContext(ctx context.Context, src *RasterBuffer, s Settings, opts Options) (*Result, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	s = s.Normalize()

	stages := []func(){}
	var (
		adjusted *RasterBuffer
		lum      *LuminanceBuffer
		mag      *LuminanceBuffer
		final    *RasterBuffer
	)
	stages = append(stages,
		func() { adjusted = AdjustColor(src, s.Contrast, s.Brightness) },
		func() { lum = ToLuminance(adjusted) },
		func() { lum = BoxBlur(lum, s.Smoothing) },
	)
	if s.Mode != ModeThreshold {
		stages = append(stages,
			func() { mag = Sobel(lum, s.EdgeIntensity) },
			func() { mag = Dilate(mag, s.Thickness) },
		)
	}
	stages = append(stages, func() { final = Composite(mag, lum, s) })

	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		stage()
	}

	result := &Result{Stencil: final, Settings: s}
	if opts.ThermalWarnings {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		overlay, report := AnalyzeThermalRisk(final, src, s.FlipX)
		result.Overlay = overlay
		result.Report = &report
	}
	return result, nil
}
