package layout

import (
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/ironsheep/thermal-stencil/internal/stencil"
)

// solidImage creates a uniformly colored image.
func solidImage(width, height int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestFitPlacement(t *testing.T) {
	p := FitPlacement(200, 100, 50, 50)
	if p.Scale != 2 {
		t.Errorf("scale: got %v, want 2", p.Scale)
	}
	if p.X != 50 || p.Y != 0 {
		t.Errorf("origin: got (%v,%v), want (50,0)", p.X, p.Y)
	}
	if p.Rotation != 0 {
		t.Errorf("rotation: got %v, want 0", p.Rotation)
	}
}

func TestResizeByDimension(t *testing.T) {
	m := defaultMapper(t)
	start := Placement{X: 5, Y: 6, Scale: 1, Rotation: 30}

	tests := []struct {
		name       string
		newW, newH float64
		wantScale  float64
	}{
		{"width edited", 300, 100, 1.5},
		{"height edited", 200, 150, 1.5},
		{"both changed, height further", 210, 300, 3},
		{"both changed, width further", 400, 120, 2},
		{"tie goes to width", 250, 150, 1.25},
		{"unchanged", 200, 100, 1},
		{"non-positive edit ignored", -10, 100, 1},
		{"tiny clamps to minimum", 0.001, 100, MinScale},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.ResizeByDimension(start, 200, 100, tt.newW, tt.newH)
			if math.Abs(got.Scale-tt.wantScale) > 1e-9 {
				t.Errorf("scale: got %v, want %v", got.Scale, tt.wantScale)
			}
			if got.X != start.X || got.Y != start.Y || got.Rotation != start.Rotation {
				t.Errorf("position or rotation changed: %+v", got)
			}
		})
	}
}

func TestResizeByCm(t *testing.T) {
	m := defaultMapper(t)
	got := m.ResizeByCm(Placement{Scale: 0.5}, 96, 96, 5.08, 1.27)
	if math.Abs(got.Scale-2) > 1e-9 {
		t.Errorf("scale: got %v, want 2", got.Scale)
	}

	w, h := m.PlacedSizeCm(got, 96, 96)
	if math.Abs(w-5.08) > 1e-9 || math.Abs(h-5.08) > 1e-9 {
		t.Errorf("placed size: got %vx%v cm, want 5.08x5.08", w, h)
	}
}

func TestComposeBoard(t *testing.T) {
	m, preset := miniMapper(t, false)
	img := solidImage(10, 10, color.Black)

	board, err := m.ComposeBoard(preset, img, Placement{X: 10, Y: 20, Scale: 2})
	if err != nil {
		t.Fatalf("ComposeBoard failed: %v", err)
	}
	if board.Width != 96 || board.Height != 96 {
		t.Fatalf("board size: got %dx%d, want 96x96", board.Width, board.Height)
	}

	tests := []struct {
		x, y  int
		black bool
	}{
		{15, 25, true},
		{29, 39, true},
		{5, 5, false},
		{31, 41, false},
		{95, 95, false},
	}
	for _, tt := range tests {
		r, _, _, a := board.RGBAAt(tt.x, tt.y)
		if a != 255 {
			t.Errorf("(%d,%d): board should be opaque, alpha %d", tt.x, tt.y, a)
		}
		if isBlack := r < 10; isBlack != tt.black {
			t.Errorf("(%d,%d): red %d, want black=%v", tt.x, tt.y, r, tt.black)
		}
	}
}

func TestComposeBoard_Rotation(t *testing.T) {
	m, preset := miniMapper(t, false)
	img := solidImage(20, 10, color.Black)

	// Centre (48,48); a quarter turn makes the strip 10 wide and 20 tall.
	board, err := m.ComposeBoard(preset, img, Placement{X: 38, Y: 43, Scale: 1, Rotation: 90})
	if err != nil {
		t.Fatalf("ComposeBoard failed: %v", err)
	}

	if r, _, _, _ := board.RGBAAt(48, 40); r > 10 {
		t.Errorf("(48,40) should be covered after rotation, red %d", r)
	}
	if r, _, _, _ := board.RGBAAt(40, 48); r < 245 {
		t.Errorf("(40,48) should be uncovered after rotation, red %d", r)
	}
}

func TestComposeBoard_OffsetSourceBounds(t *testing.T) {
	m, preset := miniMapper(t, false)
	full := solidImage(40, 40, color.White)
	for y := 20; y < 40; y++ {
		for x := 20; x < 40; x++ {
			full.Set(x, y, color.Black)
		}
	}
	sub := full.SubImage(image.Rect(20, 20, 40, 40))

	board, err := m.ComposeBoard(preset, sub, Placement{X: 0, Y: 0, Scale: 1})
	if err != nil {
		t.Fatalf("ComposeBoard failed: %v", err)
	}
	if r, _, _, _ := board.RGBAAt(10, 10); r > 10 {
		t.Errorf("sub-image should land at the placement origin, red %d", r)
	}
	if r, _, _, _ := board.RGBAAt(30, 30); r < 245 {
		t.Errorf("outside the placed image should stay white, red %d", r)
	}
}

func TestComposeBoard_InvalidInput(t *testing.T) {
	m, preset := miniMapper(t, false)

	tests := []struct {
		name string
		img  image.Image
		p    Placement
	}{
		{"nil image", nil, Placement{Scale: 1}},
		{"empty image", image.NewNRGBA(image.Rect(0, 0, 0, 0)), Placement{Scale: 1}},
		{"zero scale", solidImage(2, 2, color.Black), Placement{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.ComposeBoard(preset, tt.img, tt.p)
			var cfgErr *stencil.ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Errorf("got %v, want *ConfigurationError", err)
			}
		})
	}
}
