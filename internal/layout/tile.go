package layout

import (
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/thermal-stencil/internal/stencil"
)

const (
	// DefaultOverlap is the band, in pixels of the segmented buffer, that
	// neighbouring tiles share.
	DefaultOverlap = 50
	// DefaultMarkArm is the half-length of a registration crosshair.
	DefaultMarkArm = 10
	// ContentSampleStride is the byte step of the blank-tile scan. It is a
	// multiple of 4 so every sample lands on a red channel.
	ContentSampleStride = 40
	// contentCutoff: a sampled channel below this counts as ink.
	contentCutoff = 250
)

// DefaultMarkColor is the registration mark color.
var DefaultMarkColor = color.NRGBA{R: 0, G: 0, B: 0, A: 255}

// Tile is one grid cell of a segmented board.
type Tile struct {
	Row     int `json:"row"`
	Col     int `json:"col"`
	OriginX int `json:"origin_x"`
	OriginY int `json:"origin_y"`
	Width   int `json:"width"`
	Height  int `json:"height"`
	// Core is the cell's own region in board coordinates, excluding overlap.
	Core       image.Rectangle       `json:"-"`
	Data       *stencil.RasterBuffer `json:"-"`
	HasContent bool                  `json:"has_content"`
}

// Bounds returns the tile's source rectangle in board coordinates.
func (t Tile) Bounds() image.Rectangle {
	return image.Rect(t.OriginX, t.OriginY, t.OriginX+t.Width, t.OriginY+t.Height)
}

// SegmentOptions tunes Segment. Zero values select the defaults.
type SegmentOptions struct {
	Overlap   int
	MarkArm   int
	MarkColor color.Color
}

func (o SegmentOptions) withDefaults() SegmentOptions {
	if o.Overlap <= 0 {
		o.Overlap = DefaultOverlap
	}
	if o.MarkArm <= 0 {
		o.MarkArm = DefaultMarkArm
	}
	if o.MarkColor == nil {
		o.MarkColor = DefaultMarkColor
	}
	return o
}

// CellRect computes the source rectangle of cell (r, c):
//
//	cellW = ceil(W/cols), cellH = ceil(H/rows)
//	x = max(0, c*cellW - (c>0 ? overlap : 0))
//	w = min(W-x, cellW + (c>0 ? overlap : 0) + (c<cols-1 ? overlap : 0))
//
// and likewise for y and h.
func CellRect(boardW, boardH, rows, cols, r, c, overlap int) image.Rectangle {
	cellW := (boardW + cols - 1) / cols
	cellH := (boardH + rows - 1) / rows

	lead := func(i int) int {
		if i > 0 {
			return overlap
		}
		return 0
	}
	trail := func(i, n int) int {
		if i < n-1 {
			return overlap
		}
		return 0
	}

	x := max(0, c*cellW-lead(c))
	y := max(0, r*cellH-lead(r))
	w := min(boardW-x, cellW+lead(c)+trail(c, cols))
	h := min(boardH-y, cellH+lead(r)+trail(r, rows))
	return image.Rect(x, y, x+w, y+h)
}

// coreRect is cell (r, c) without any overlap, clipped to the board.
func coreRect(boardW, boardH, rows, cols, r, c int) image.Rectangle {
	cellW := (boardW + cols - 1) / cols
	cellH := (boardH + rows - 1) / rows
	return image.Rect(c*cellW, r*cellH, (c+1)*cellW, (r+1)*cellH).Intersect(image.Rect(0, 0, boardW, boardH))
}

// Segment cuts board into a rows x cols grid of overlapping tiles, in
// row-major order. Each tile is a white canvas with its board region composited
// on top; HasContent is decided by a stride scan of that region before the
// registration marks are drawn. Cells left without any pixels of their own
// (more columns than board pixels) are skipped.
//
// Tiles are built concurrently; each goroutine writes only its own tile.
func Segment(board *stencil.RasterBuffer, rows, cols int, opts SegmentOptions) ([]Tile, error) {
	if rows <= 0 || cols <= 0 {
		return nil, &stencil.ConfigurationError{
			Field:  "grid",
			Reason: fmt.Sprintf("rows and cols must be positive, got %dx%d", rows, cols),
		}
	}
	if err := board.Validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	src := board.NRGBA()
	tiles := make([]*Tile, rows*cols)

	var g errgroup.Group
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			r, c := r, c
			core := coreRect(board.Width, board.Height, rows, cols, r, c)
			if core.Empty() {
				continue
			}
			g.Go(func() error {
				tile, err := buildTile(src, board.Width, board.Height, rows, cols, r, c, core, opts)
				if err != nil {
					return err
				}
				tiles[r*cols+c] = tile
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]Tile, 0, len(tiles))
	for _, t := range tiles {
		if t != nil {
			out = append(out, *t)
		}
	}
	return out, nil
}

func buildTile(src image.Image, boardW, boardH, rows, cols, r, c int, core image.Rectangle, opts SegmentOptions) (*Tile, error) {
	rect := CellRect(boardW, boardH, rows, cols, r, c, opts.Overlap)

	canvas := imaging.New(rect.Dx(), rect.Dy(), color.White)
	canvas = imaging.Overlay(canvas, imaging.Crop(src, rect), image.Point{}, 1.0)
	data, err := stencil.FromImage(canvas)
	if err != nil {
		return nil, err
	}

	tile := &Tile{
		Row:        r,
		Col:        c,
		OriginX:    rect.Min.X,
		OriginY:    rect.Min.Y,
		Width:      rect.Dx(),
		Height:     rect.Dy(),
		Core:       core,
		Data:       data,
		HasContent: HasContent(data.Pix),
	}

	local := core.Sub(rect.Min)
	if r > 0 || c > 0 {
		drawCrosshair(data, local.Min.X, local.Min.Y, opts.MarkArm, opts.MarkColor)
	}
	drawCrosshair(data, local.Max.X-1, local.Max.Y-1, opts.MarkArm, opts.MarkColor)
	return tile, nil
}

// HasContent reports whether any sampled pixel has a red, green or blue
// channel below 250. Only every ContentSampleStride-th byte is inspected.
func HasContent(pix []uint8) bool {
	for i := 0; i+2 < len(pix); i += ContentSampleStride {
		if pix[i] < contentCutoff || pix[i+1] < contentCutoff || pix[i+2] < contentCutoff {
			return true
		}
	}
	return false
}

// drawCrosshair draws a one-pixel "+" centred on (cx, cy), clipped to buf.
func drawCrosshair(buf *stencil.RasterBuffer, cx, cy, arm int, c color.Color) {
	nc := color.NRGBAModel.Convert(c).(color.NRGBA)
	set := func(x, y int) {
		if x < 0 || y < 0 || x >= buf.Width || y >= buf.Height {
			return
		}
		i := (y*buf.Width + x) * 4
		buf.Pix[i], buf.Pix[i+1], buf.Pix[i+2], buf.Pix[i+3] = nc.R, nc.G, nc.B, nc.A
	}
	for d := -arm; d <= arm; d++ {
		set(cx+d, cy)
		set(cx, cy+d)
	}
}
