package stencil

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// DefaultMaxDimension caps the longest side of a source image before it enters
// the pipeline.
const DefaultMaxDimension = 2048

// ConfigurationError reports input that cannot be processed at all, such as a
// zero-sized image or an empty tile grid. It is raised before any buffer is
// allocated.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// RasterBuffer is an 8-bit RGBA pixel buffer with straight alpha: colour
// channels are never premultiplied.
//
// Invariant: len(Pix) == Width*Height*4.
type RasterBuffer struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewRasterBuffer allocates a zeroed (fully transparent) buffer.
func NewRasterBuffer(width, height int) (*RasterBuffer, error) {
	if err := validateDimensions(width, height); err != nil {
		return nil, err
	}
	return &RasterBuffer{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height*4),
	}, nil
}

// Validate checks the dimension and length invariants.
func (b *RasterBuffer) Validate() error {
	if b == nil {
		return &ConfigurationError{Field: "buffer", Reason: "nil"}
	}
	if err := validateDimensions(b.Width, b.Height); err != nil {
		return err
	}
	if len(b.Pix) != b.Width*b.Height*4 {
		return &ConfigurationError{
			Field:  "buffer",
			Reason: fmt.Sprintf("pixel data length %d does not match %dx%d RGBA", len(b.Pix), b.Width, b.Height),
		}
	}
	return nil
}

// Clone returns a deep copy.
func (b *RasterBuffer) Clone() *RasterBuffer {
	pix := make([]uint8, len(b.Pix))
	copy(pix, b.Pix)
	return &RasterBuffer{Width: b.Width, Height: b.Height, Pix: pix}
}

// RGBAAt returns the four channels of pixel (x, y).
func (b *RasterBuffer) RGBAAt(x, y int) (r, g, bl, a uint8) {
	i := (y*b.Width + x) * 4
	return b.Pix[i], b.Pix[i+1], b.Pix[i+2], b.Pix[i+3]
}

// NRGBA wraps a copy of the buffer as an *image.NRGBA. Both hold straight
// (non-premultiplied) RGBA, so the bytes carry over unchanged.
func (b *RasterBuffer) NRGBA() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, b.Width, b.Height))
	copy(img.Pix, b.Pix)
	return img
}

// FromImage converts any image into a RasterBuffer, translating its bounds so
// that the top-left pixel becomes (0,0). Premultiplied sources are
// un-premultiplied.
func FromImage(img image.Image) (*RasterBuffer, error) {
	if img == nil {
		return nil, &ConfigurationError{Field: "image", Reason: "nil"}
	}
	bounds := img.Bounds()
	if err := validateDimensions(bounds.Dx(), bounds.Dy()); err != nil {
		return nil, err
	}

	nrgba := imaging.Clone(img)
	return &RasterBuffer{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Pix:    nrgba.Pix,
	}, nil
}

// Prepare downscales img so that its longest side is at most maxDimension,
// preserving aspect ratio, and converts the result to a RasterBuffer.
// Images already within the cap are converted without resampling.
// A maxDimension <= 0 selects DefaultMaxDimension.
func Prepare(img image.Image, maxDimension int) (*RasterBuffer, error) {
	if img == nil {
		return nil, &ConfigurationError{Field: "image", Reason: "nil"}
	}
	if maxDimension <= 0 {
		maxDimension = DefaultMaxDimension
	}
	bounds := img.Bounds()
	if err := validateDimensions(bounds.Dx(), bounds.Dy()); err != nil {
		return nil, err
	}

	if bounds.Dx() > maxDimension || bounds.Dy() > maxDimension {
		img = imaging.Fit(img, maxDimension, maxDimension, imaging.Lanczos)
	}
	return FromImage(img)
}

// LuminanceBuffer holds one float64 brightness value per pixel, indexed like
// RasterBuffer.
type LuminanceBuffer struct {
	Width  int
	Height int
	Values []float64
}

func newLuminanceBuffer(width, height int) *LuminanceBuffer {
	return &LuminanceBuffer{
		Width:  width,
		Height: height,
		Values: make([]float64, width*height),
	}
}

// At returns the value at (x, y).
func (l *LuminanceBuffer) At(x, y int) float64 {
	return l.Values[y*l.Width+x]
}

// Clone returns a deep copy.
func (l *LuminanceBuffer) Clone() *LuminanceBuffer {
	values := make([]float64, len(l.Values))
	copy(values, l.Values)
	return &LuminanceBuffer{Width: l.Width, Height: l.Height, Values: values}
}

func validateDimensions(width, height int) error {
	if width <= 0 || height <= 0 {
		return &ConfigurationError{
			Field:  "dimensions",
			Reason: fmt.Sprintf("width and height must be positive, got %dx%d", width, height),
		}
	}
	return nil
}
