package layout

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/ironsheep/thermal-stencil/internal/stencil"
)

// ErrNoContent is returned when every tile (or the crop) of an export is blank.
var ErrNoContent = errors.New("no active content to export")

const cmPerInch = 2.54

// Units holds the DPI constants used for physical conversions.
type Units struct {
	ScreenDPI float64 `json:"screen_dpi" yaml:"screen_dpi"`
	ExportDPI float64 `json:"export_dpi" yaml:"export_dpi"`
}

// DefaultUnits returns 96 DPI on screen and 300 DPI on export.
func DefaultUnits() Units {
	return Units{ScreenDPI: 96, ExportDPI: 300}
}

// CmToPx is the number of board pixels per centimetre.
func (u Units) CmToPx() float64 {
	return u.ScreenDPI / cmPerInch
}

// CmToPixels converts a length in centimetres to board pixels.
func (u Units) CmToPixels(cm float64) float64 {
	return cm * u.CmToPx()
}

// PixelsToCm converts a length in board pixels to centimetres.
func (u Units) PixelsToCm(px float64) float64 {
	return px / u.CmToPx()
}

// ExportScale is the factor applied to the board before export.
func (u Units) ExportScale() float64 {
	return u.ExportDPI / u.ScreenDPI
}

// BoardPreset is one entry of the board table.
type BoardPreset struct {
	Name     string  `json:"name" yaml:"name"`
	WidthCm  float64 `json:"width_cm" yaml:"width_cm"`
	HeightCm float64 `json:"height_cm" yaml:"height_cm"`
	// QuadrantSplit forces a 2x2 TopLeft/TopRight/BottomLeft/BottomRight
	// export regardless of the requested split.
	QuadrantSplit bool `json:"quadrant_split" yaml:"quadrant_split"`
}

// DefaultPresets returns the built-in board table: an 11x17 in tabloid sheet
// and a 17x22 in poster assembled from four quadrants.
func DefaultPresets() []BoardPreset {
	return []BoardPreset{
		{Name: "tabloid", WidthCm: 27.94, HeightCm: 43.18},
		{Name: "poster", WidthCm: 43.18, HeightCm: 55.88, QuadrantSplit: true},
	}
}

// Mapper is the physical layout engine. It is immutable after construction
// and safe for concurrent use.
type Mapper struct {
	units   Units
	presets []BoardPreset
}

// NewMapper validates units and presets and returns a Mapper that owns copies
// of them.
func NewMapper(units Units, presets []BoardPreset) (*Mapper, error) {
	if units.ScreenDPI <= 0 || units.ExportDPI <= 0 {
		return nil, &stencil.ConfigurationError{
			Field:  "units",
			Reason: fmt.Sprintf("DPI must be positive, got screen=%v export=%v", units.ScreenDPI, units.ExportDPI),
		}
	}
	if len(presets) == 0 {
		return nil, &stencil.ConfigurationError{Field: "presets", Reason: "at least one board preset is required"}
	}

	seen := make(map[string]bool, len(presets))
	for _, p := range presets {
		key := strings.ToLower(p.Name)
		switch {
		case key == "":
			return nil, &stencil.ConfigurationError{Field: "presets", Reason: "preset name is empty"}
		case seen[key]:
			return nil, &stencil.ConfigurationError{Field: "presets", Reason: fmt.Sprintf("duplicate preset %q", p.Name)}
		case p.WidthCm <= 0 || p.HeightCm <= 0:
			return nil, &stencil.ConfigurationError{Field: "presets", Reason: fmt.Sprintf("preset %q has non-positive size", p.Name)}
		}
		seen[key] = true
	}

	return &Mapper{
		units:   units,
		presets: append([]BoardPreset(nil), presets...),
	}, nil
}

// Units returns the mapper's DPI constants.
func (m *Mapper) Units() Units {
	return m.units
}

// Presets returns a copy of the board table.
func (m *Mapper) Presets() []BoardPreset {
	return append([]BoardPreset(nil), m.presets...)
}

// Preset looks a board up by name, case-insensitively.
func (m *Mapper) Preset(name string) (BoardPreset, error) {
	for _, p := range m.presets {
		if strings.EqualFold(p.Name, name) {
			return p, nil
		}
	}
	return BoardPreset{}, fmt.Errorf("unknown board preset: %s", name)
}

// BoardPixels returns the on-screen pixel size of a preset.
func (m *Mapper) BoardPixels(p BoardPreset) (width, height int) {
	return int(math.Round(m.units.CmToPixels(p.WidthCm))), int(math.Round(m.units.CmToPixels(p.HeightCm)))
}

// ExportPixels returns the pixel size a board of the given screen size has
// after export scaling.
func (m *Mapper) ExportPixels(width, height int) (int, int) {
	s := m.units.ExportScale()
	return max(1, int(math.Round(float64(width)*s))), max(1, int(math.Round(float64(height)*s)))
}
