package layout

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/golang/geo/r2"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/ironsheep/thermal-stencil/internal/stencil"
)

// MinScale keeps a placed image from collapsing to nothing.
const MinScale = 0.01

// Placement positions a source image on a board, in board pixels.
type Placement struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Scale    float64 `json:"scale"`
	Rotation float64 `json:"rotation"` // degrees, clockwise
}

// Size returns the on-board size of an imgW x imgH image.
func (p Placement) Size(imgW, imgH int) (w, h float64) {
	return float64(imgW) * p.Scale, float64(imgH) * p.Scale
}

// Center returns the rotation centre of the placed image.
func (p Placement) Center(imgW, imgH int) r2.Point {
	w, h := p.Size(imgW, imgH)
	return r2.Point{X: p.X + w/2, Y: p.Y + h/2}
}

// FitPlacement scales an image to fit inside the board and centres it,
// without rotation.
func FitPlacement(boardW, boardH, imgW, imgH int) Placement {
	if imgW <= 0 || imgH <= 0 {
		return Placement{Scale: 1}
	}
	scale := math.Min(float64(boardW)/float64(imgW), float64(boardH)/float64(imgH))
	scale = math.Max(scale, MinScale)
	return Placement{
		X:     (float64(boardW) - float64(imgW)*scale) / 2,
		Y:     (float64(boardH) - float64(imgH)*scale) / 2,
		Scale: scale,
	}
}

// ResizeByDimension recomputes Scale from a manually edited width or height,
// both in board pixels. Editing forms submit both fields, so the dimension
// that moved further from the current derived size is taken as the edited one;
// ties go to width. Position and rotation are kept. Non-positive input leaves
// the placement unchanged.
func (m *Mapper) ResizeByDimension(p Placement, imgW, imgH int, newW, newH float64) Placement {
	if imgW <= 0 || imgH <= 0 {
		return p
	}
	curW, curH := p.Size(imgW, imgH)

	if math.Abs(newW-curW) >= math.Abs(newH-curH) {
		if newW <= 0 {
			return p
		}
		p.Scale = math.Max(newW/float64(imgW), MinScale)
	} else {
		if newH <= 0 {
			return p
		}
		p.Scale = math.Max(newH/float64(imgH), MinScale)
	}
	return p
}

// ResizeByCm is ResizeByDimension with the edited size given in centimetres.
func (m *Mapper) ResizeByCm(p Placement, imgW, imgH int, widthCm, heightCm float64) Placement {
	return m.ResizeByDimension(p, imgW, imgH, m.units.CmToPixels(widthCm), m.units.CmToPixels(heightCm))
}

// PlacedSizeCm returns the physical size of a placed image.
func (m *Mapper) PlacedSizeCm(p Placement, imgW, imgH int) (widthCm, heightCm float64) {
	w, h := p.Size(imgW, imgH)
	return m.units.PixelsToCm(w), m.units.PixelsToCm(h)
}

// placementTransform maps source pixel coordinates to board coordinates:
// scale, then rotate about the image centre, then translate so the unrotated
// box starts at (X, Y).
func placementTransform(p Placement, src image.Rectangle) f64.Aff3 {
	iw, ih := float64(src.Dx()), float64(src.Dy())
	s := p.Scale
	rad := p.Rotation * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)
	cx, cy := p.X+s*iw/2, p.Y+s*ih/2

	a, b := s*cos, -s*sin
	d, e := s*sin, s*cos
	// Source coordinates are absolute, so fold the -Min and -size/2 shifts in.
	ox, oy := float64(src.Min.X)+iw/2, float64(src.Min.Y)+ih/2
	return f64.Aff3{
		a, b, cx - a*ox - b*oy,
		d, e, cy - d*ox - e*oy,
	}
}

// ComposeBoard renders img onto a white board of the preset's screen size.
func (m *Mapper) ComposeBoard(preset BoardPreset, img image.Image, p Placement) (*stencil.RasterBuffer, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, &stencil.ConfigurationError{Field: "image", Reason: "source image is empty"}
	}
	if p.Scale <= 0 {
		return nil, &stencil.ConfigurationError{Field: "placement", Reason: "scale must be positive"}
	}
	bw, bh := m.BoardPixels(preset)
	board := image.NewNRGBA(image.Rect(0, 0, bw, bh))
	draw.Draw(board, board.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	xdraw.BiLinear.Transform(board, placementTransform(p, img.Bounds()), img, img.Bounds(), xdraw.Over, nil)

	return &stencil.RasterBuffer{Width: bw, Height: bh, Pix: board.Pix}, nil
}
