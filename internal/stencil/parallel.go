package stencil

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// minBandRows keeps tiny images on a single goroutine.
const minBandRows = 16

// parallelRows runs fn over [0, height) split into contiguous row bands.
// fn must only write to rows in [start, end) of its output.
func parallelRows(height int, fn func(start, end int)) {
	if height <= 0 {
		return
	}

	workers := runtime.GOMAXPROCS(0)
	if maxBands := (height + minBandRows - 1) / minBandRows; workers > maxBands {
		workers = maxBands
	}
	if workers <= 1 {
		fn(0, height)
		return
	}

	chunk := (height + workers - 1) / workers
	var g errgroup.Group
	for start := 0; start < height; start += chunk {
		start, end := start, min(start+chunk, height)
		g.Go(func() error {
			fn(start, end)
			return nil
		})
	}
	_ = g.Wait()
}
