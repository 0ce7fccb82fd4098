// Package layout places stencils on physical print boards and cuts boards into
// print-ready sheets.
//
// # Units
//
// Boards are designed on screen at Units.ScreenDPI (96) and exported at
// Units.ExportDPI (300). One centimetre is ScreenDPI/2.54 board pixels. Every
// export first rescales the whole board by ExportDPI/ScreenDPI so that output
// pixel dimensions are DPI-accurate, then tiles or crops the scaled board.
//
// # Boards and Placement
//
// Board sizes come from an explicit preset table handed to NewMapper; nothing
// is global. A Placement positions a source image on a board: X and Y are the
// top-left corner of the unrotated image box in board pixels, Scale multiplies
// the image's native size, and Rotation (degrees, clockwise) turns the image
// about the centre of that box.
//
// # Segmentation
//
// Segment splits a board into a rows x cols grid. Neighbouring tiles share a
// band of Overlap pixels, and crosshair registration marks are drawn at the
// corners of each tile's own cell so that printed sheets can be realigned.
// Blank tiles are dropped at export; if nothing is left, ErrNoContent is
// returned instead of writing empty files.
//
// # Interaction
//
// Reduce is a pure state machine that turns pointer events into new Placement
// and CropRect values. It owns no pixel data.
package layout
