package layout

import (
	"errors"
	"image"
	"testing"

	"github.com/ironsheep/thermal-stencil/internal/stencil"
)

func TestSegmentPlan_Grid(t *testing.T) {
	plain := BoardPreset{Name: "plain", WidthCm: 1, HeightCm: 1}
	quad := BoardPreset{Name: "quad", WidthCm: 1, HeightCm: 1, QuadrantSplit: true}

	tests := []struct {
		name     string
		plan     SegmentPlan
		preset   BoardPreset
		wantMode SplitMode
		wantRows int
		wantCols int
	}{
		{"horizontal strips", SegmentPlan{Mode: SplitHorizontal, Count: 3}, plain, SplitHorizontal, 1, 3},
		{"vertical strips", SegmentPlan{Mode: SplitVertical, Count: 4}, plain, SplitVertical, 4, 1},
		{"grid", SegmentPlan{Mode: SplitGrid, Rows: 2, Cols: 5}, plain, SplitGrid, 2, 5},
		{"quadrant", SegmentPlan{Mode: SplitQuadrant}, plain, SplitQuadrant, 2, 2},
		{"quadrant preset overrides", SegmentPlan{Mode: SplitHorizontal, Count: 3}, quad, SplitQuadrant, 2, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mode, rows, cols := tt.plan.Grid(tt.preset)
			if mode != tt.wantMode || rows != tt.wantRows || cols != tt.wantCols {
				t.Errorf("got %s %dx%d, want %s %dx%d", mode, rows, cols, tt.wantMode, tt.wantRows, tt.wantCols)
			}
		})
	}
}

func TestSegmentName(t *testing.T) {
	tests := []struct {
		mode SplitMode
		cols int
		r, c int
		want string
	}{
		{SplitQuadrant, 2, 0, 0, "TopLeft"},
		{SplitQuadrant, 2, 0, 1, "TopRight"},
		{SplitQuadrant, 2, 1, 0, "BottomLeft"},
		{SplitQuadrant, 2, 1, 1, "BottomRight"},
		{SplitGrid, 3, 0, 0, "1"},
		{SplitGrid, 3, 1, 2, "6"},
		{SplitHorizontal, 4, 0, 3, "4"},
	}
	for _, tt := range tests {
		if got := SegmentName(tt.mode, tt.cols, tt.r, tt.c); got != tt.want {
			t.Errorf("SegmentName(%s, %d, %d, %d) = %q, want %q", tt.mode, tt.cols, tt.r, tt.c, got, tt.want)
		}
	}
}

func TestExportBoard(t *testing.T) {
	m := defaultMapper(t)

	scaled, err := m.ExportBoard(whiteBoard(96, 48))
	if err != nil {
		t.Fatalf("ExportBoard failed: %v", err)
	}
	if scaled.Width != 300 || scaled.Height != 150 {
		t.Errorf("got %dx%d, want 300x150", scaled.Width, scaled.Height)
	}

	if _, err := m.ExportBoard(&stencil.RasterBuffer{}); err == nil {
		t.Error("expected error for empty board")
	}
}

func TestExportSegments_QuadrantNames(t *testing.T) {
	m, preset := miniMapper(t, true)
	board := whiteBoard(96, 96)
	fillRect(board, image.Rect(0, 0, 96, 96), 0)

	segs, err := m.ExportSegments(board, preset, SegmentPlan{Mode: SplitHorizontal, Count: 3})
	if err != nil {
		t.Fatalf("ExportSegments failed: %v", err)
	}

	want := []string{"TopLeft", "TopRight", "BottomLeft", "BottomRight"}
	if len(segs) != len(want) {
		t.Fatalf("got %d segments, want %d", len(segs), len(want))
	}
	for i, s := range segs {
		if s.Name != want[i] {
			t.Errorf("segment %d: name %q, want %q", i, s.Name, want[i])
		}
		if s.FileName != "segment_"+want[i]+".png" {
			t.Errorf("segment %d: file name %q", i, s.FileName)
		}
	}
}

func TestExportSegments_SkipsBlankTiles(t *testing.T) {
	m, preset := miniMapper(t, false)
	board := whiteBoard(96, 96)
	// Ink only in the first few columns; after export this is x < ~32 of 300.
	fillRect(board, image.Rect(0, 0, 10, 96), 0)

	segs, err := m.ExportSegments(board, preset, SegmentPlan{Mode: SplitHorizontal, Count: 3})
	if err != nil {
		t.Fatalf("ExportSegments failed: %v", err)
	}
	if len(segs) != 1 {
		t.Fatalf("got %d segments, want 1", len(segs))
	}
	if segs[0].Name != "1" || segs[0].FileName != "segment_1.png" {
		t.Errorf("got %q / %q, want 1 / segment_1.png", segs[0].Name, segs[0].FileName)
	}
	if segs[0].Tile.Width != 150 || segs[0].Tile.Height != 300 {
		t.Errorf("tile size: got %dx%d, want 150x300", segs[0].Tile.Width, segs[0].Tile.Height)
	}
}

func TestExportSegments_BlankBoard(t *testing.T) {
	m, preset := miniMapper(t, false)

	_, err := m.ExportSegments(whiteBoard(96, 96), preset, SegmentPlan{Mode: SplitGrid, Rows: 2, Cols: 2})
	if !errors.Is(err, ErrNoContent) {
		t.Errorf("got %v, want ErrNoContent", err)
	}
}

func TestExportSegments_InvalidPlan(t *testing.T) {
	m, preset := miniMapper(t, false)

	_, err := m.ExportSegments(whiteBoard(96, 96), preset, SegmentPlan{Mode: SplitHorizontal})
	var cfgErr *stencil.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Errorf("got %v, want *ConfigurationError", err)
	}
}

func TestCropFromPoints(t *testing.T) {
	got := CropFromPoints(10, 10, 0, 5)
	want := CropRect{X: 0, Y: 5, W: 10, H: 5}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestExportCrop(t *testing.T) {
	m, _ := miniMapper(t, false)
	board := whiteBoard(96, 96)
	fillRect(board, image.Rect(0, 0, 96, 96), 0)

	tests := []struct {
		name string
		crop CropRect
	}{
		{"dragged down-right", CropRect{X: 10, Y: 10, W: 48, H: 48}},
		{"dragged up-left", CropRect{X: 58, Y: 58, W: -48, H: -48}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := m.ExportCrop(board, tt.crop)
			if err != nil {
				t.Fatalf("ExportCrop failed: %v", err)
			}
			if out.FileName != "crop_1.3x1.3cm.png" {
				t.Errorf("file name: got %q", out.FileName)
			}
			if out.Data.Width != 150 || out.Data.Height != 150 {
				t.Errorf("size: got %dx%d, want 150x150", out.Data.Width, out.Data.Height)
			}
		})
	}
}

func TestExportCrop_ClipsToBoard(t *testing.T) {
	m, _ := miniMapper(t, false)
	board := whiteBoard(96, 96)
	fillRect(board, image.Rect(0, 0, 96, 96), 0)

	out, err := m.ExportCrop(board, CropRect{X: 48, Y: 0, W: 200, H: 96})
	if err != nil {
		t.Fatalf("ExportCrop failed: %v", err)
	}
	if out.FileName != "crop_1.3x2.5cm.png" {
		t.Errorf("file name: got %q", out.FileName)
	}
}

func TestExportCrop_Errors(t *testing.T) {
	m, _ := miniMapper(t, false)

	_, err := m.ExportCrop(whiteBoard(96, 96), CropRect{X: 10, Y: 10, W: 20, H: 20})
	if !errors.Is(err, ErrNoContent) {
		t.Errorf("blank crop: got %v, want ErrNoContent", err)
	}

	_, err = m.ExportCrop(whiteBoard(96, 96), CropRect{X: 200, Y: 200, W: 10, H: 10})
	var cfgErr *stencil.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Errorf("crop outside board: got %v, want *ConfigurationError", err)
	}
}
