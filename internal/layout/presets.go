package layout

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// presetFile is the on-disk shape of a board table:
//
//	units:
//	  screen_dpi: 96
//	  export_dpi: 300
//	presets:
//	  - name: tabloid
//	    width_cm: 27.94
//	    height_cm: 43.18
//	  - name: poster
//	    width_cm: 43.18
//	    height_cm: 55.88
//	    quadrant_split: true
type presetFile struct {
	Units   *Units        `yaml:"units"`
	Presets []BoardPreset `yaml:"presets"`
}

// LoadPresets decodes a YAML board table. Units are optional; fallback is used
// when the document has none.
func LoadPresets(r io.Reader, fallback Units) (Units, []BoardPreset, error) {
	var f presetFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return Units{}, nil, fmt.Errorf("failed to decode board presets: %w", err)
	}

	units := fallback
	if f.Units != nil {
		units = *f.Units
	}
	return units, f.Presets, nil
}

// LoadPresetsFile reads a YAML board table from disk and builds a Mapper from it.
func LoadPresetsFile(path string, fallback Units) (*Mapper, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open board presets: %w", err)
	}
	defer f.Close()

	units, presets, err := LoadPresets(f, fallback)
	if err != nil {
		return nil, err
	}
	return NewMapper(units, presets)
}
