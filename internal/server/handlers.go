package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strings"
	"time"

	"github.com/ironsheep/thermal-stencil/internal/imaging"
	"github.com/ironsheep/thermal-stencil/internal/layout"
	"github.com/ironsheep/thermal-stencil/internal/render"
	"github.com/ironsheep/thermal-stencil/internal/stencil"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "stencil_render", "board_export_segments").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	start := time.Now()
	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.log.Error(component, err, map[string]interface{}{"tool": params.Name})
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}
	s.log.Debug(component, "tool call finished", map[string]interface{}{
		"tool":     params.Name,
		"duration": time.Since(start),
	})

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "image_load":
		return s.handleImageLoad(args)

	// Stencil
	case "stencil_render":
		return s.handleStencilRender(ctx, args)
	case "stencil_thermal_risk":
		return s.handleStencilThermalRisk(ctx, args)

	// Board layout
	case "board_presets":
		return s.handleBoardPresets()
	case "board_compose":
		return s.handleBoardCompose(ctx, args)
	case "board_resize_placement":
		return s.handleBoardResizePlacement(args)
	case "board_pointer":
		return s.handleBoardPointer(args)

	// Export
	case "board_export_segments":
		return s.handleBoardExportSegments(ctx, args)
	case "board_export_crop":
		return s.handleBoardExportCrop(ctx, args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// decodeArgs unmarshals tool arguments; absent arguments decode as {}.
func decodeArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 || string(args) == "null" {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// preview encodes img scaled so its longest side is at most maxSide. A
// non-positive maxSide means no preview.
func preview(img image.Image, maxSide int) (*imaging.EncodedImage, error) {
	if maxSide <= 0 {
		return nil, nil
	}
	b := img.Bounds()
	return imaging.EncodePNG(img, imaging.FitScale(b.Dx(), b.Dy(), maxSide))
}

// === Image Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

// === Stencil Handlers ===

type stencilRenderArgs struct {
	Path            string                 `json:"path"`
	Settings        map[string]interface{} `json:"settings"`
	ThermalWarnings bool                   `json:"thermal_warnings"`
	OutputPath      string                 `json:"output_path"`
	OverlayPath     string                 `json:"overlay_path"`
	PreviewMax      int                    `json:"preview_max"`
}

type stencilRenderResult struct {
	Token       uint64                `json:"token"`
	Superseded  bool                  `json:"superseded,omitempty"`
	Width       int                   `json:"width,omitempty"`
	Height      int                   `json:"height,omitempty"`
	Settings    *stencil.Settings     `json:"settings,omitempty"`
	Risk        *stencil.RiskReport   `json:"risk,omitempty"`
	OutputPath  string                `json:"output_path,omitempty"`
	OverlayPath string                `json:"overlay_path,omitempty"`
	Preview     *imaging.EncodedImage `json:"preview,omitempty"`
}

// handleStencilRender goes through the debounced renderer. A call that is
// overtaken by a newer stencil_render before it commits returns only its token
// with superseded set.
func (s *Server) handleStencilRender(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a stencilRenderArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	settings, err := stencil.DecodeSettings(a.Settings)
	if err != nil {
		return nil, err
	}
	src, err := s.cache.Prepared(a.Path)
	if err != nil {
		return nil, err
	}

	token, err := s.renderer.Request(src, settings, stencil.Options{ThermalWarnings: a.ThermalWarnings})
	if err != nil {
		return nil, err
	}
	commit, err := s.renderer.Await(ctx, token)
	if errors.Is(err, render.ErrSuperseded) {
		return &stencilRenderResult{Token: token, Superseded: true}, nil
	}
	if err != nil {
		return nil, err
	}
	if commit.Err != nil {
		return nil, commit.Err
	}

	res := commit.Result
	out := &stencilRenderResult{
		Token:    token,
		Width:    res.Stencil.Width,
		Height:   res.Stencil.Height,
		Settings: &res.Settings,
		Risk:     res.Report,
	}
	if a.OutputPath != "" {
		if err := imaging.SavePNG(a.OutputPath, res.Stencil.NRGBA()); err != nil {
			return nil, err
		}
		out.OutputPath = a.OutputPath
	}
	if a.OverlayPath != "" && res.Overlay != nil {
		if err := imaging.SavePNG(a.OverlayPath, res.Overlay.NRGBA()); err != nil {
			return nil, err
		}
		out.OverlayPath = a.OverlayPath
	}
	if out.Preview, err = preview(res.Preview(), a.PreviewMax); err != nil {
		return nil, err
	}
	return out, nil
}

type stencilThermalRiskArgs struct {
	Path        string                 `json:"path"`
	Settings    map[string]interface{} `json:"settings"`
	OverlayPath string                 `json:"overlay_path"`
	PreviewMax  int                    `json:"preview_max"`
}

type stencilThermalRiskResult struct {
	stencil.RiskReport
	Width       int                   `json:"width"`
	Height      int                   `json:"height"`
	OverlayPath string                `json:"overlay_path,omitempty"`
	Preview     *imaging.EncodedImage `json:"preview,omitempty"`
}

func (s *Server) handleStencilThermalRisk(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a stencilThermalRiskArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	settings, err := stencil.DecodeSettings(a.Settings)
	if err != nil {
		return nil, err
	}
	src, err := s.cache.Prepared(a.Path)
	if err != nil {
		return nil, err
	}

	res, err := stencil.ComputeContext(ctx, src, settings, stencil.Options{ThermalWarnings: true})
	if err != nil {
		return nil, err
	}

	out := &stencilThermalRiskResult{
		RiskReport: *res.Report,
		Width:      res.Stencil.Width,
		Height:     res.Stencil.Height,
	}
	if a.OverlayPath != "" {
		if err := imaging.SavePNG(a.OverlayPath, res.Overlay.NRGBA()); err != nil {
			return nil, err
		}
		out.OverlayPath = a.OverlayPath
	}
	if out.Preview, err = preview(res.Preview(), a.PreviewMax); err != nil {
		return nil, err
	}
	return out, nil
}

// === Board Handlers ===

// boardArgs identifies what is placed where. Every board tool accepts it.
type boardArgs struct {
	Path      string                 `json:"path"`
	Board     string                 `json:"board"`
	Raw       bool                   `json:"raw"` // place the photo instead of its stencil
	Settings  map[string]interface{} `json:"settings"`
	Placement *layout.Placement      `json:"placement"`
}

// scene is a resolved boardArgs.
type scene struct {
	preset    layout.BoardPreset
	img       image.Image
	placement layout.Placement
}

func (s *Server) preset(name string) (layout.BoardPreset, error) {
	if name == "" {
		return s.mapper.Presets()[0], nil
	}
	return s.mapper.Preset(name)
}

// placedImage returns the raster that goes on the board: the decoded photo
// for raw, otherwise the stencil of its working buffer.
func (s *Server) placedImage(ctx context.Context, a boardArgs) (image.Image, error) {
	if a.Path == "" {
		return nil, fmt.Errorf("path is required")
	}
	if a.Raw {
		return s.cache.Load(a.Path)
	}
	settings, err := stencil.DecodeSettings(a.Settings)
	if err != nil {
		return nil, err
	}
	src, err := s.cache.Prepared(a.Path)
	if err != nil {
		return nil, err
	}
	res, err := stencil.ComputeContext(ctx, src, settings, stencil.Options{})
	if err != nil {
		return nil, err
	}
	return res.Stencil.NRGBA(), nil
}

// placedSize is the pixel size of the placed raster without computing it.
func (s *Server) placedSize(a boardArgs) (int, int, error) {
	if a.Path == "" {
		return 0, 0, fmt.Errorf("path is required")
	}
	if a.Raw {
		dims, err := imaging.GetDimensions(s.cache, a.Path)
		if err != nil {
			return 0, 0, err
		}
		return dims.Width, dims.Height, nil
	}
	src, err := s.cache.Prepared(a.Path)
	if err != nil {
		return 0, 0, err
	}
	return src.Width, src.Height, nil
}

// resolvePlacement returns the requested placement, or one that fits the
// image to the board.
func (s *Server) resolvePlacement(preset layout.BoardPreset, p *layout.Placement, imgW, imgH int) layout.Placement {
	if p != nil {
		return *p
	}
	bw, bh := s.mapper.BoardPixels(preset)
	return layout.FitPlacement(bw, bh, imgW, imgH)
}

func (s *Server) resolveScene(ctx context.Context, a boardArgs) (*scene, error) {
	preset, err := s.preset(a.Board)
	if err != nil {
		return nil, err
	}
	img, err := s.placedImage(ctx, a)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	return &scene{
		preset:    preset,
		img:       img,
		placement: s.resolvePlacement(preset, a.Placement, b.Dx(), b.Dy()),
	}, nil
}

func (s *Server) compose(ctx context.Context, a boardArgs) (*scene, *stencil.RasterBuffer, error) {
	sc, err := s.resolveScene(ctx, a)
	if err != nil {
		return nil, nil, err
	}
	board, err := s.mapper.ComposeBoard(sc.preset, sc.img, sc.placement)
	if err != nil {
		return nil, nil, err
	}
	return sc, board, nil
}

type presetInfo struct {
	layout.BoardPreset
	WidthPx        int `json:"width_px"`
	HeightPx       int `json:"height_px"`
	ExportWidthPx  int `json:"export_width_px"`
	ExportHeightPx int `json:"export_height_px"`
}

type boardPresetsResult struct {
	Units   layout.Units `json:"units"`
	Presets []presetInfo `json:"presets"`
}

func (s *Server) handleBoardPresets() (interface{}, error) {
	out := &boardPresetsResult{Units: s.mapper.Units()}
	for _, p := range s.mapper.Presets() {
		w, h := s.mapper.BoardPixels(p)
		ew, eh := s.mapper.ExportPixels(w, h)
		out.Presets = append(out.Presets, presetInfo{
			BoardPreset:    p,
			WidthPx:        w,
			HeightPx:       h,
			ExportWidthPx:  ew,
			ExportHeightPx: eh,
		})
	}
	return out, nil
}

type boardComposeArgs struct {
	boardArgs
	OutputPath string `json:"output_path"`
	PreviewMax int    `json:"preview_max"`
}

type boardComposeResult struct {
	Board          string                `json:"board"`
	BoardWidth     int                   `json:"board_width"`
	BoardHeight    int                   `json:"board_height"`
	ImageWidth     int                   `json:"image_width"`
	ImageHeight    int                   `json:"image_height"`
	Placement      layout.Placement      `json:"placement"`
	PlacedWidthCm  float64               `json:"placed_width_cm"`
	PlacedHeightCm float64               `json:"placed_height_cm"`
	OutputPath     string                `json:"output_path,omitempty"`
	Preview        *imaging.EncodedImage `json:"preview,omitempty"`
}

func (s *Server) handleBoardCompose(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a boardComposeArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	sc, board, err := s.compose(ctx, a.boardArgs)
	if err != nil {
		return nil, err
	}

	b := sc.img.Bounds()
	wcm, hcm := s.mapper.PlacedSizeCm(sc.placement, b.Dx(), b.Dy())
	out := &boardComposeResult{
		Board:          sc.preset.Name,
		BoardWidth:     board.Width,
		BoardHeight:    board.Height,
		ImageWidth:     b.Dx(),
		ImageHeight:    b.Dy(),
		Placement:      sc.placement,
		PlacedWidthCm:  wcm,
		PlacedHeightCm: hcm,
	}
	if a.OutputPath != "" {
		if err := imaging.SavePNG(a.OutputPath, board.NRGBA()); err != nil {
			return nil, err
		}
		out.OutputPath = a.OutputPath
	}
	if out.Preview, err = preview(board.NRGBA(), a.PreviewMax); err != nil {
		return nil, err
	}
	return out, nil
}

type boardResizeArgs struct {
	boardArgs
	WidthCm  *float64 `json:"width_cm"`
	HeightCm *float64 `json:"height_cm"`
	WidthPx  *float64 `json:"width_px"`
	HeightPx *float64 `json:"height_px"`
}

type boardResizeResult struct {
	Placement layout.Placement `json:"placement"`
	WidthPx   float64          `json:"width_px"`
	HeightPx  float64          `json:"height_px"`
	WidthCm   float64          `json:"width_cm"`
	HeightCm  float64          `json:"height_cm"`
}

// handleBoardResizePlacement applies a manual size edit. Omitted dimensions
// keep their current value, so the edited one always wins.
func (s *Server) handleBoardResizePlacement(args json.RawMessage) (interface{}, error) {
	var a boardResizeArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	preset, err := s.preset(a.Board)
	if err != nil {
		return nil, err
	}
	imgW, imgH, err := s.placedSize(a.boardArgs)
	if err != nil {
		return nil, err
	}
	p := s.resolvePlacement(preset, a.Placement, imgW, imgH)

	curW, curH := p.Size(imgW, imgH)
	curWcm, curHcm := s.mapper.PlacedSizeCm(p, imgW, imgH)
	switch {
	case a.WidthCm != nil || a.HeightCm != nil:
		p = s.mapper.ResizeByCm(p, imgW, imgH, orDefault(a.WidthCm, curWcm), orDefault(a.HeightCm, curHcm))
	case a.WidthPx != nil || a.HeightPx != nil:
		p = s.mapper.ResizeByDimension(p, imgW, imgH, orDefault(a.WidthPx, curW), orDefault(a.HeightPx, curH))
	default:
		return nil, fmt.Errorf("one of width_cm, height_cm, width_px or height_px is required")
	}

	w, h := p.Size(imgW, imgH)
	wcm, hcm := s.mapper.PlacedSizeCm(p, imgW, imgH)
	return &boardResizeResult{Placement: p, WidthPx: w, HeightPx: h, WidthCm: wcm, HeightCm: hcm}, nil
}

func orDefault(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

type pointerEventArgs struct {
	Kind string  `json:"kind"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

type boardPointerArgs struct {
	boardArgs
	CropTool bool               `json:"crop_tool"`
	Events   []pointerEventArgs `json:"events"`
}

type boardPointerResult struct {
	Mode      string           `json:"mode"`
	Modes     []string         `json:"modes"` // mode after each event
	Placement layout.Placement `json:"placement"`
	Crop      *layout.CropRect `json:"crop,omitempty"`
}

// handleBoardPointer replays a gesture through the interaction state machine.
func (s *Server) handleBoardPointer(args json.RawMessage) (interface{}, error) {
	var a boardPointerArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	preset, err := s.preset(a.Board)
	if err != nil {
		return nil, err
	}
	imgW, imgH, err := s.placedSize(a.boardArgs)
	if err != nil {
		return nil, err
	}

	st := layout.Interaction{
		CropTool:    a.CropTool,
		ImageWidth:  imgW,
		ImageHeight: imgH,
		Placement:   s.resolvePlacement(preset, a.Placement, imgW, imgH),
	}
	out := &boardPointerResult{}
	for i, ev := range a.Events {
		kind, err := parsePointerKind(ev.Kind)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		st, _ = layout.Reduce(st, layout.PointerEvent{Kind: kind, X: ev.X, Y: ev.Y})
		out.Modes = append(out.Modes, st.Mode.String())
	}

	out.Mode = st.Mode.String()
	out.Placement = st.Placement
	if a.CropTool {
		crop := st.Crop
		out.Crop = &crop
	}
	return out, nil
}

func parsePointerKind(s string) (layout.PointerKind, error) {
	switch strings.ToLower(s) {
	case "down":
		return layout.PointerDown, nil
	case "move":
		return layout.PointerMove, nil
	case "up":
		return layout.PointerUp, nil
	default:
		return 0, fmt.Errorf("unknown pointer event kind: %q", s)
	}
}

// === Export Handlers ===

type boardExportSegmentsArgs struct {
	boardArgs
	Split     layout.SegmentPlan `json:"split"`
	OutputDir string             `json:"output_dir"`
}

type segmentInfo struct {
	Name     string `json:"name"`
	FileName string `json:"file_name"`
	Row      int    `json:"row"`
	Col      int    `json:"col"`
	OriginX  int    `json:"origin_x"`
	OriginY  int    `json:"origin_y"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

type boardExportSegmentsResult struct {
	Board    string        `json:"board"`
	Mode     string        `json:"mode"`
	Rows     int           `json:"rows"`
	Cols     int           `json:"cols"`
	Segments []segmentInfo `json:"segments"`
	Files    []string      `json:"files"`
}

func (s *Server) handleBoardExportSegments(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a boardExportSegmentsArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.OutputDir == "" {
		return nil, fmt.Errorf("output_dir is required")
	}
	if a.Split.Mode == "" {
		a.Split.Mode = layout.SplitQuadrant
		if a.Split.Rows > 0 || a.Split.Cols > 0 {
			a.Split.Mode = layout.SplitGrid
		}
	}

	sc, board, err := s.compose(ctx, a.boardArgs)
	if err != nil {
		return nil, err
	}
	segs, err := s.mapper.ExportSegments(board, sc.preset, a.Split)
	if err != nil {
		return nil, err
	}

	mode, rows, cols := a.Split.Grid(sc.preset)
	out := &boardExportSegmentsResult{
		Board: sc.preset.Name,
		Mode:  string(mode),
		Rows:  rows,
		Cols:  cols,
	}
	files := make([]imaging.OutputFile, 0, len(segs))
	for _, seg := range segs {
		out.Segments = append(out.Segments, segmentInfo{
			Name:     seg.Name,
			FileName: seg.FileName,
			Row:      seg.Tile.Row,
			Col:      seg.Tile.Col,
			OriginX:  seg.Tile.OriginX,
			OriginY:  seg.Tile.OriginY,
			Width:    seg.Tile.Width,
			Height:   seg.Tile.Height,
		})
		files = append(files, imaging.OutputFile{Name: seg.FileName, Image: seg.Tile.Data.NRGBA()})
	}

	written, err := imaging.WriteAll(a.OutputDir, files)
	out.Files = written
	if err != nil {
		return nil, fmt.Errorf("export incomplete (%d of %d written): %w", len(written), len(files), err)
	}
	s.log.Info(component, "segments exported", map[string]interface{}{
		"board": sc.preset.Name,
		"count": len(written),
		"dir":   a.OutputDir,
	})
	return out, nil
}

type boardExportCropArgs struct {
	boardArgs
	Crop      layout.CropRect `json:"crop"`
	OutputDir string          `json:"output_dir"`
}

type boardExportCropResult struct {
	FileName string  `json:"file_name"`
	Path     string  `json:"path"`
	WidthCm  float64 `json:"width_cm"`
	HeightCm float64 `json:"height_cm"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
}

func (s *Server) handleBoardExportCrop(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a boardExportCropArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.OutputDir == "" {
		return nil, fmt.Errorf("output_dir is required")
	}

	_, board, err := s.compose(ctx, a.boardArgs)
	if err != nil {
		return nil, err
	}
	crop, err := s.mapper.ExportCrop(board, a.Crop)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(a.OutputDir, crop.FileName)
	if err := imaging.SavePNG(path, crop.Data.NRGBA()); err != nil {
		return nil, err
	}
	return &boardExportCropResult{
		FileName: crop.FileName,
		Path:     path,
		WidthCm:  crop.WidthCm,
		HeightCm: crop.HeightCm,
		Width:    crop.Data.Width,
		Height:   crop.Data.Height,
	}, nil
}
