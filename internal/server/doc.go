// Package server implements the MCP (Model Context Protocol) server for the
// thermal stencil tools.
//
// This package provides a JSON-RPC 2.0 server that exposes stencil rendering,
// board layout and print export through the MCP protocol, so that an MCP
// client can turn a photo into transfer-ready sheets.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Requests are handled concurrently and responses carry the request ID, so
// they may be written in a different order than the requests arrived.
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Source image:
//   - image_load: Load a photo and report its size and working buffer
//
// Stencil:
//   - stencil_render: Debounced stencil render with optional risk overlay
//   - stencil_thermal_risk: Thermal risk report for a settings set
//
// Board layout:
//   - board_presets: List board presets and their pixel sizes
//   - board_compose: Place the stencil or photo on a board
//   - board_resize_placement: Resize a placement by cm or px
//   - board_pointer: Move, scale, rotate or draw a crop with pointer events
//
// Export:
//   - board_export_segments: Split the board into sheets with registration marks
//   - board_export_crop: Export one rectangle of the board
//
// # Rendering
//
// stencil_render calls share one debounced renderer. Each call takes a new
// token; only the call holding the latest token when the computation finishes
// gets a result, earlier ones report superseded=true. The other tools compute
// synchronously.
//
// # Image Caching
//
// Decoded photos and their downscaled working buffers are cached by path for
// the lifetime of the server process.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// # Usage
//
//	srv, err := server.New(config.Default(), logger.Nop{}, "dev")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer srv.Close()
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
