package imaging

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/anthonynsimon/bild/imgio"
	"go.uber.org/multierr"
)

// OutputFile is one image to be written under an export directory.
type OutputFile struct {
	Name  string
	Image image.Image
}

// SavePNG writes img to path as PNG, creating parent directories.
func SavePNG(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := imgio.Save(path, img, imgio.PNGEncoder()); err != nil {
		return fmt.Errorf("failed to save %s: %w", filepath.Base(path), err)
	}
	return nil
}

// WriteAll saves every file under dir. It keeps going after a failure and
// returns the paths that were written along with all errors combined.
func WriteAll(dir string, files []OutputFile) ([]string, error) {
	var (
		written []string
		errs    error
	)
	for _, f := range files {
		if f.Name == "" || filepath.Base(f.Name) != f.Name {
			errs = multierr.Append(errs, fmt.Errorf("invalid output name %q", f.Name))
			continue
		}
		path := filepath.Join(dir, f.Name)
		if err := SavePNG(path, f.Image); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		written = append(written, path)
	}
	return written, errs
}
