// Package imaging handles image I/O around the stencil and layout engines.
//
// It owns everything that touches the filesystem or a wire format, keeping
// the stencil and layout packages free of I/O:
//
//   - ImageCache decodes source photographs once and keeps both the decoded
//     image and its capped working buffer.
//   - EncodePNG turns results into base64 PNG payloads for tool responses.
//   - SavePNG and WriteAll write exported sheets to disk.
//
// # Coordinate System
//
// Pixel coordinates are 0-based with (0,0) at the top-left corner, X
// increasing rightward and Y increasing downward.
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. Cached images and working buffers are
// shared between callers and must be treated as read-only.
//
// # Error Handling
//
// Load and decode failures are wrapped with the operation that failed.
// WriteAll does not stop at the first failed file; it reports every failure
// as a single combined error (see go.uber.org/multierr).
package imaging
