package imaging

import (
	"fmt"
	"image"
	_ "image/gif" // Register GIF format decoder
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/anthonynsimon/bild/imgio"

	"github.com/ironsheep/thermal-stencil/internal/stencil"
)

// ImageCache provides thread-safe caching of source photographs.
//
// Two forms are kept per path: the decoded image as read from disk, and the
// working buffer produced by stencil.Prepare (downscaled so its longest side
// is at most the cache's max dimension). The working buffer is what the
// stencil pipeline consumes; the decoded image is what gets placed on a board.
//
// ImageCache is safe for concurrent use by multiple goroutines.
//
// # Memory Management
//
// Cached images remain in memory until explicitly removed via Evict() or Clear().
//
// # Example Usage
//
//	cache := imaging.NewImageCache(stencil.DefaultMaxDimension)
//	src, err := cache.Prepared("/path/to/photo.jpg")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	res, err := stencil.Compute(src, stencil.DefaultSettings(), stencil.Options{})
type ImageCache struct {
	maxDimension int

	mu      sync.RWMutex
	entries map[string]*cacheEntry
}

type cacheEntry struct {
	img      image.Image
	prepared *stencil.RasterBuffer
}

// NewImageCache creates an empty cache. A non-positive maxDimension selects
// stencil.DefaultMaxDimension.
func NewImageCache(maxDimension int) *ImageCache {
	if maxDimension <= 0 {
		maxDimension = stencil.DefaultMaxDimension
	}
	return &ImageCache{
		maxDimension: maxDimension,
		entries:      make(map[string]*cacheEntry),
	}
}

// MaxDimension returns the working-buffer size cap.
func (c *ImageCache) MaxDimension() int {
	return c.maxDimension
}

// Load retrieves an image from the cache or decodes it from disk.
//
// Supported formats are PNG, JPEG and GIF. The image is cached under the exact
// path string provided; relative and absolute paths to the same file are
// separate entries.
func (c *ImageCache) Load(path string) (image.Image, error) {
	c.mu.RLock()
	if e, ok := c.entries[path]; ok {
		c.mu.RUnlock()
		return e.img, nil
	}
	c.mu.RUnlock()

	img, err := imgio.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load image: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[path]; ok {
		return e.img, nil
	}
	c.entries[path] = &cacheEntry{img: img}
	return img, nil
}

// Prepared returns the working buffer for path, loading and downscaling the
// image on first use. Callers must not modify the returned buffer.
func (c *ImageCache) Prepared(path string) (*stencil.RasterBuffer, error) {
	img, err := c.Load(path)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	e := c.entries[path]
	if e != nil && e.prepared != nil {
		c.mu.RUnlock()
		return e.prepared, nil
	}
	c.mu.RUnlock()

	buf, err := stencil.Prepare(img, c.maxDimension)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[path]
	if !ok {
		// Evicted while preparing.
		return buf, nil
	}
	if e.prepared == nil {
		e.prepared = buf
	}
	return e.prepared, nil
}

// Clear removes all images from the cache.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*cacheEntry)
	c.mu.Unlock()
}

// Evict removes a specific image from the cache by its path.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.entries, path)
	c.mu.Unlock()
}

// Len returns the number of cached paths.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// ImageInfo contains metadata about a loaded source image.
type ImageInfo struct {
	// Width and Height are the decoded size in pixels.
	Width  int `json:"width"`
	Height int `json:"height"`

	// WorkingWidth and WorkingHeight are the size of the buffer the stencil
	// pipeline runs on, after the max-dimension cap.
	WorkingWidth  int `json:"working_width"`
	WorkingHeight int `json:"working_height"`

	// Format is detected from the file extension: "png", "jpeg", "gif", or "unknown".
	Format string `json:"format"`

	// ColorDepth indicates the bit depth per channel: "8-bit" or "16-bit".
	ColorDepth string `json:"color_depth"`

	// HasAlpha indicates whether the decoded image carries an alpha channel.
	HasAlpha bool `json:"has_alpha"`

	FileSizeBytes int64 `json:"file_size_bytes"`
}

// LoadImageInfo loads an image (and its working buffer) into the cache and
// describes it.
func LoadImageInfo(cache *ImageCache, path string) (*ImageInfo, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}
	prepared, err := cache.Prepared(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	format := "unknown"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		format = "png"
	case ".jpg", ".jpeg":
		format = "jpeg"
	case ".gif":
		format = "gif"
	}

	hasAlpha := false
	colorDepth := "8-bit"
	switch img.(type) {
	case *image.RGBA, *image.NRGBA:
		hasAlpha = true
	case *image.RGBA64, *image.NRGBA64:
		hasAlpha = true
		colorDepth = "16-bit"
	case *image.Gray16:
		colorDepth = "16-bit"
	}

	bounds := img.Bounds()
	return &ImageInfo{
		Width:         bounds.Dx(),
		Height:        bounds.Dy(),
		WorkingWidth:  prepared.Width,
		WorkingHeight: prepared.Height,
		Format:        format,
		ColorDepth:    colorDepth,
		HasAlpha:      hasAlpha,
		FileSizeBytes: stat.Size(),
	}, nil
}

// DimensionsResult contains the width and height of an image.
type DimensionsResult struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// GetDimensions returns the decoded size of an image, loading it if needed.
func GetDimensions(cache *ImageCache, path string) (*DimensionsResult, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	return &DimensionsResult{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}
