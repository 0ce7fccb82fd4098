package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the source photo",
	}
}

func settingsProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "object",
		"description": "Stencil settings. Missing keys keep their defaults; out-of-range values are clamped.",
		"properties": map[string]interface{}{
			"contrast":      map[string]interface{}{"type": "number", "description": "-100..100, default 20"},
			"brightness":    map[string]interface{}{"type": "number", "description": "-100..100, default 0"},
			"edgeIntensity": map[string]interface{}{"type": "number", "description": "0..200, default 100"},
			"thickness":     map[string]interface{}{"type": "number", "description": "Line thickness 1..10, default 2"},
			"detail":        map[string]interface{}{"type": "number", "description": "0..100, higher keeps more lines. Default 50"},
			"smoothing":     map[string]interface{}{"type": "number", "description": "Box blur radius 0..10, default 1"},
			"mode": map[string]interface{}{
				"type":        "string",
				"enum":        []string{"edge", "threshold", "mixed"},
				"description": "Line classification. Default edge",
			},
			"invert":    map[string]interface{}{"type": "boolean", "description": "Swap line and background"},
			"flipX":     map[string]interface{}{"type": "boolean", "description": "Mirror horizontally for transfer paper"},
			"lineColor": map[string]interface{}{"type": "string", "description": "Line color as #RRGGBB, default #000000"},
		},
	}
}

func previewProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": "If positive, include a base64 PNG preview whose longest side is at most this many pixels",
	}
}

// boardProperties are shared by every board_* tool.
func boardProperties() map[string]interface{} {
	return map[string]interface{}{
		"path": pathProperty(),
		"board": map[string]interface{}{
			"type":        "string",
			"description": "Board preset name (see board_presets). Default is the first preset",
		},
		"raw": map[string]interface{}{
			"type":        "boolean",
			"description": "Place the photo itself instead of its stencil",
		},
		"settings": settingsProperty(),
		"placement": map[string]interface{}{
			"type":        "object",
			"description": "Image placement in board pixels. Default fits and centres the image",
			"properties": map[string]interface{}{
				"x":        map[string]interface{}{"type": "number", "description": "Left edge of the unrotated image"},
				"y":        map[string]interface{}{"type": "number", "description": "Top edge of the unrotated image"},
				"scale":    map[string]interface{}{"type": "number", "description": "Uniform scale factor"},
				"rotation": map[string]interface{}{"type": "number", "description": "Clockwise degrees about the image centre"},
			},
		},
	}
}

func withProperties(base map[string]interface{}, extra map[string]interface{}) map[string]interface{} {
	for k, v := range extra {
		base[k] = v
	}
	return base
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Source image
		{
			Name:        "image_load",
			Description: "Load a photo and return its dimensions, format and the size of the working buffer the stencil is computed on.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},

		// Stencil
		{
			Name:        "stencil_render",
			Description: "Render a stencil from a photo. Calls are debounced: a newer stencil_render that arrives before this one commits supersedes it, and the older call returns only its token with superseded=true.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":     pathProperty(),
					"settings": settingsProperty(),
					"thermal_warnings": map[string]interface{}{
						"type":        "boolean",
						"description": "Also compute the thermal risk report and red overlay",
					},
					"output_path": map[string]interface{}{
						"type":        "string",
						"description": "Optional path to write the stencil PNG",
					},
					"overlay_path": map[string]interface{}{
						"type":        "string",
						"description": "Optional path to write the risk overlay PNG (requires thermal_warnings)",
					},
					"preview_max": previewProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "stencil_thermal_risk",
			Description: "Compute the stencil and flag black line pixels that came from mid-tone regions of the photo, where thermal transfer paper tends to bleed. Returns counts, 3x3 black density statistics and an optional red overlay.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":     pathProperty(),
					"settings": settingsProperty(),
					"overlay_path": map[string]interface{}{
						"type":        "string",
						"description": "Optional path to write the risk overlay PNG",
					},
					"preview_max": previewProperty(),
				},
				"required": []string{"path"},
			},
		},

		// Board layout
		{
			Name:        "board_presets",
			Description: "List the board presets with their physical size and pixel sizes at screen and export resolution.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "board_compose",
			Description: "Place the stencil (or the raw photo) on a board and render the board at screen resolution.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(boardProperties(), map[string]interface{}{
					"output_path": map[string]interface{}{
						"type":        "string",
						"description": "Optional path to write the composed board PNG",
					},
					"preview_max": previewProperty(),
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "board_resize_placement",
			Description: "Resize a placement by entering a physical size (cm) or an on-board size (px). The aspect ratio is kept; the dimension that changed more wins.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(boardProperties(), map[string]interface{}{
					"width_cm":  map[string]interface{}{"type": "number", "description": "Target width in centimetres"},
					"height_cm": map[string]interface{}{"type": "number", "description": "Target height in centimetres"},
					"width_px":  map[string]interface{}{"type": "number", "description": "Target width in board pixels"},
					"height_px": map[string]interface{}{"type": "number", "description": "Target height in board pixels"},
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "board_pointer",
			Description: "Replay pointer events over the board: drag inside to move, drag a corner to scale about the centre, drag the handle above the image to rotate, or draw a crop with crop_tool.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(boardProperties(), map[string]interface{}{
					"crop_tool": map[string]interface{}{
						"type":        "boolean",
						"description": "Pointer-down starts a crop rectangle instead of hit testing",
					},
					"events": map[string]interface{}{
						"type":        "array",
						"description": "Pointer events in board pixels",
						"items": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"kind": map[string]interface{}{"type": "string", "enum": []string{"down", "move", "up"}},
								"x":    map[string]interface{}{"type": "number"},
								"y":    map[string]interface{}{"type": "number"},
							},
							"required": []string{"kind", "x", "y"},
						},
					},
				}),
				"required": []string{"path", "events"},
			},
		},

		// Export
		{
			Name:        "board_export_segments",
			Description: "Export the board at print resolution split into overlapping sheets with registration marks. Blank sheets are skipped. Boards with a quadrant preset always export TopLeft/TopRight/BottomLeft/BottomRight.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(boardProperties(), map[string]interface{}{
					"split": map[string]interface{}{
						"type":        "object",
						"description": "Split plan. Default is a 2x2 quadrant split",
						"properties": map[string]interface{}{
							"mode": map[string]interface{}{
								"type": "string",
								"enum": []string{"horizontal", "vertical", "grid", "quadrant"},
							},
							"count":   map[string]interface{}{"type": "integer", "description": "Strips for horizontal/vertical"},
							"rows":    map[string]interface{}{"type": "integer", "description": "Grid rows"},
							"cols":    map[string]interface{}{"type": "integer", "description": "Grid columns"},
							"overlap": map[string]interface{}{"type": "integer", "description": "Overlap band in export pixels, default 50"},
						},
					},
					"output_dir": map[string]interface{}{
						"type":        "string",
						"description": "Directory to write segment_<name>.png files into",
					},
				}),
				"required": []string{"path", "output_dir"},
			},
		},
		{
			Name:        "board_export_crop",
			Description: "Export one rectangle of the board at print resolution, named by its physical size (crop_<w>x<h>cm.png).",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(boardProperties(), map[string]interface{}{
					"crop": map[string]interface{}{
						"type":        "object",
						"description": "Crop rectangle in board pixels; negative w/h are normalized",
						"properties": map[string]interface{}{
							"x": map[string]interface{}{"type": "number"},
							"y": map[string]interface{}{"type": "number"},
							"w": map[string]interface{}{"type": "number"},
							"h": map[string]interface{}{"type": "number"},
						},
						"required": []string{"x", "y", "w", "h"},
					},
					"output_dir": map[string]interface{}{
						"type":        "string",
						"description": "Directory to write the crop PNG into",
					},
				}),
				"required": []string{"path", "crop", "output_dir"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
