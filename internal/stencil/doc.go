// Package stencil converts raster photographs into binary line-art stencils
// for thermal transfer printing.
//
// The conversion is a deterministic pipeline of pixel kernels:
//
//  1. Colour adjustment: contrast and brightness applied per channel
//  2. Luminance: ITU-R BT.601 weights (0.299*R + 0.587*G + 0.114*B) kept as float64
//  3. Smoothing: edge-aware box blur
//  4. Edge extraction: Sobel gradient magnitude, or a direct luminance cut
//  5. Line dilation: square max filter to thicken detected lines
//  6. Compositing: line colour or white per pixel, with invert and mirror
//  7. Thermal risk (optional): overlay marking mid-tone areas that became
//     dense black and are likely to bleed on transfer paper
//
// # Ownership
//
// Every stage allocates and returns a fresh buffer. Inputs are never modified
// and outputs never alias inputs, so Compute is a pure function of its source
// buffer and Settings.
//
// # Coordinate System
//
// Buffers are stored row-major with (0,0) at the top-left corner. Pixel (x, y)
// of a RasterBuffer lives at Pix[(y*Width+x)*4 : (y*Width+x)*4+4] in R, G, B, A
// order; the same (x, y) of a LuminanceBuffer lives at Values[y*Width+x].
//
// # Thread Safety
//
// All functions are stateless and safe for concurrent use. Inside a single call,
// rows are split into bands that are processed in parallel; each band writes only
// to its own rows of the output.
//
// # Error Handling
//
// Only boundary validation can fail: a zero-dimension source or a buffer whose
// pixel slice does not match its dimensions is rejected with a
// *ConfigurationError before any allocation. Out-of-range Settings are clamped,
// never rejected.
package stencil
