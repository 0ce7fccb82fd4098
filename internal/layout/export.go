package layout

import (
	"fmt"
	"image"
	"math"
	"strconv"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/thermal-stencil/internal/stencil"
)

// SplitMode selects how a board is divided into sheets.
type SplitMode string

const (
	// SplitHorizontal cuts the board into side-by-side strips (1 x n).
	SplitHorizontal SplitMode = "horizontal"
	// SplitVertical cuts the board into stacked strips (n x 1).
	SplitVertical SplitMode = "vertical"
	// SplitGrid uses the requested rows and cols.
	SplitGrid SplitMode = "grid"
	// SplitQuadrant is a fixed 2x2 split with named corners.
	SplitQuadrant SplitMode = "quadrant"
)

// quadrantNames are indexed by row*2+col.
var quadrantNames = [4]string{"TopLeft", "TopRight", "BottomLeft", "BottomRight"}

// SegmentPlan describes a requested split.
type SegmentPlan struct {
	Mode  SplitMode `json:"mode"`
	Count int       `json:"count,omitempty"` // strips for horizontal/vertical
	Rows  int       `json:"rows,omitempty"`  // grid only
	Cols  int       `json:"cols,omitempty"`  // grid only
	// Overlap in pixels of the export-scaled board; 0 selects DefaultOverlap.
	Overlap int `json:"overlap,omitempty"`
}

// Grid resolves the plan for a preset into rows and cols. Presets with
// QuadrantSplit always yield the 2x2 quadrant plan.
func (p SegmentPlan) Grid(preset BoardPreset) (SplitMode, int, int) {
	if preset.QuadrantSplit {
		return SplitQuadrant, 2, 2
	}
	switch p.Mode {
	case SplitHorizontal:
		return SplitHorizontal, 1, p.Count
	case SplitVertical:
		return SplitVertical, p.Count, 1
	case SplitQuadrant:
		return SplitQuadrant, 2, 2
	default:
		return SplitGrid, p.Rows, p.Cols
	}
}

// ExportedSegment is one printable, non-blank tile.
type ExportedSegment struct {
	Name     string `json:"name"`
	FileName string `json:"file_name"`
	Tile     Tile   `json:"tile"`
}

// SegmentName names the tile at (r, c): quadrant position names for
// quadrant splits, otherwise the 1-based ordinal in row-major order.
func SegmentName(mode SplitMode, cols, r, c int) string {
	if mode == SplitQuadrant && r < 2 && c < 2 {
		return quadrantNames[r*2+c]
	}
	return strconv.Itoa(r*cols + c + 1)
}

// ExportBoard rescales a screen-resolution board to export DPI.
func (m *Mapper) ExportBoard(board *stencil.RasterBuffer) (*stencil.RasterBuffer, error) {
	if err := board.Validate(); err != nil {
		return nil, err
	}
	w, h := m.ExportPixels(board.Width, board.Height)
	if w == board.Width && h == board.Height {
		return board.Clone(), nil
	}
	scaled := imaging.Resize(board.NRGBA(), w, h, imaging.Lanczos)
	return stencil.FromImage(scaled)
}

// ExportSegments scales the board to export DPI, segments it according to the
// plan, and returns the non-blank tiles in row-major order. When every tile is
// blank the error is ErrNoContent.
func (m *Mapper) ExportSegments(board *stencil.RasterBuffer, preset BoardPreset, plan SegmentPlan) ([]ExportedSegment, error) {
	mode, rows, cols := plan.Grid(preset)
	if rows <= 0 || cols <= 0 {
		return nil, &stencil.ConfigurationError{
			Field:  "grid",
			Reason: fmt.Sprintf("rows and cols must be positive, got %dx%d", rows, cols),
		}
	}

	scaled, err := m.ExportBoard(board)
	if err != nil {
		return nil, err
	}
	tiles, err := Segment(scaled, rows, cols, SegmentOptions{Overlap: plan.Overlap})
	if err != nil {
		return nil, err
	}

	var out []ExportedSegment
	for _, t := range tiles {
		if !t.HasContent {
			continue
		}
		name := SegmentName(mode, cols, t.Row, t.Col)
		out = append(out, ExportedSegment{
			Name:     name,
			FileName: fmt.Sprintf("segment_%s.png", name),
			Tile:     t,
		})
	}
	if len(out) == 0 {
		return nil, ErrNoContent
	}
	return out, nil
}

// CropRect is a rectangle in board pixels.
type CropRect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Normalize flips negative extents so that W and H are non-negative.
func (c CropRect) Normalize() CropRect {
	if c.W < 0 {
		c.X, c.W = c.X+c.W, -c.W
	}
	if c.H < 0 {
		c.Y, c.H = c.Y+c.H, -c.H
	}
	return c
}

// CropFromPoints builds a normalized rectangle spanning two corners.
func CropFromPoints(x0, y0, x1, y1 float64) CropRect {
	return CropRect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}.Normalize()
}

// CropExport is a single cropped sheet.
type CropExport struct {
	FileName string                `json:"file_name"`
	WidthCm  float64               `json:"width_cm"`
	HeightCm float64               `json:"height_cm"`
	Data     *stencil.RasterBuffer `json:"-"`
}

// ExportCrop cuts one region out of the export-scaled board. The crop is given
// in screen board pixels, clipped to the board, and named by its physical size,
// e.g. "crop_12.5x20.0cm.png". A crop without any area is a configuration
// error; a blank one is ErrNoContent.
func (m *Mapper) ExportCrop(board *stencil.RasterBuffer, crop CropRect) (*CropExport, error) {
	if err := board.Validate(); err != nil {
		return nil, err
	}
	crop = crop.Normalize()
	screen := image.Rect(
		int(math.Floor(crop.X)), int(math.Floor(crop.Y)),
		int(math.Ceil(crop.X+crop.W)), int(math.Ceil(crop.Y+crop.H)),
	).Intersect(image.Rect(0, 0, board.Width, board.Height))
	if screen.Empty() {
		return nil, &stencil.ConfigurationError{Field: "crop", Reason: "crop does not overlap the board"}
	}

	scaled, err := m.ExportBoard(board)
	if err != nil {
		return nil, err
	}
	s := m.units.ExportScale()
	rect := image.Rect(
		int(math.Round(float64(screen.Min.X)*s)), int(math.Round(float64(screen.Min.Y)*s)),
		int(math.Round(float64(screen.Max.X)*s)), int(math.Round(float64(screen.Max.Y)*s)),
	).Intersect(image.Rect(0, 0, scaled.Width, scaled.Height))

	data, err := stencil.FromImage(imaging.Crop(scaled.NRGBA(), rect))
	if err != nil {
		return nil, err
	}
	if !HasContent(data.Pix) {
		return nil, ErrNoContent
	}

	wcm := m.units.PixelsToCm(float64(screen.Dx()))
	hcm := m.units.PixelsToCm(float64(screen.Dy()))
	return &CropExport{
		FileName: fmt.Sprintf("crop_%.1fx%.1fcm.png", wcm, hcm),
		WidthCm:  wcm,
		HeightCm: hcm,
		Data:     data,
	}, nil
}
