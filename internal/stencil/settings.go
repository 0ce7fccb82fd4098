package stencil

import (
	"fmt"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/mitchellh/mapstructure"
)

// Mode selects how line pixels are classified.
type Mode string

const (
	// ModeEdge draws pixels whose dilated Sobel magnitude exceeds the detail threshold.
	ModeEdge Mode = "edge"
	// ModeThreshold draws pixels darker than the detail threshold.
	ModeThreshold Mode = "threshold"
	// ModeMixed draws pixels satisfying either the edge rule or luminance below 128.
	ModeMixed Mode = "mixed"
)

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeEdge, ModeThreshold, ModeMixed:
		return true
	}
	return false
}

// RGB represents an RGB color with 8-bit components.
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Black is the fallback line color.
var Black = RGB{}

// Hex returns the "#rrggbb" form.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// ParseLineColor parses a CSS-style hex color ("#rgb" or "#rrggbb").
// Anything unparseable yields Black.
func ParseLineColor(s string) RGB {
	s = strings.TrimSpace(s)
	if s == "" {
		return Black
	}
	s = "#" + strings.TrimPrefix(s, "#")
	// colorful.Hex scans with Sscanf, which accepts short or trailing-garbage
	// input, so the shape is checked first.
	if len(s) != 4 && len(s) != 7 {
		return Black
	}
	if strings.Trim(s[1:], "0123456789abcdefABCDEF") != "" {
		return Black
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return Black
	}
	r, g, b := c.RGB255()
	return RGB{R: r, G: g, B: b}
}

// Settings controls every stage of the pipeline. It is a value type: pass it
// by value and derive modified copies instead of mutating shared instances.
type Settings struct {
	Contrast      float64 `json:"contrast"`      // -100..100
	Brightness    float64 `json:"brightness"`    // -100..100
	EdgeIntensity float64 `json:"edgeIntensity"` // 0..200
	Thickness     float64 `json:"thickness"`     // 1..10
	Detail        float64 `json:"detail"`        // 0..100
	Smoothing     float64 `json:"smoothing"`     // 0..10
	Mode          Mode    `json:"mode"`
	Invert        bool    `json:"invert"`
	FlipX         bool    `json:"flipX"`
	LineColor     RGB     `json:"lineColor"`
}

// DefaultSettings returns the starting point used for a freshly loaded photo.
func DefaultSettings() Settings {
	return Settings{
		Contrast:      20,
		Brightness:    0,
		EdgeIntensity: 100,
		Thickness:     2,
		Detail:        50,
		Smoothing:     1,
		Mode:          ModeEdge,
		LineColor:     Black,
	}
}

// Normalize returns a copy with every numeric field clamped to its documented
// range and an unknown mode replaced by ModeEdge. NaN values collapse to the
// lower bound.
func (s Settings) Normalize() Settings {
	s.Contrast = clampFloat(s.Contrast, -100, 100)
	s.Brightness = clampFloat(s.Brightness, -100, 100)
	s.EdgeIntensity = clampFloat(s.EdgeIntensity, 0, 200)
	s.Thickness = clampFloat(s.Thickness, 1, 10)
	s.Detail = clampFloat(s.Detail, 0, 100)
	s.Smoothing = clampFloat(s.Smoothing, 0, 10)
	if !s.Mode.Valid() {
		s.Mode = ModeEdge
	}
	return s
}

// Threshold is the detail-derived cut shared by the edge and threshold rules.
func (s Settings) Threshold() float64 {
	return s.Detail * 2.55
}

// DecodeSettings builds Settings from a loosely typed map, as persisted by a
// host application. Keys use the JSON field names. Numbers may arrive as
// strings, lineColor may be a hex string or an {r,g,b} map, and missing keys
// keep their DefaultSettings value. The result is normalized.
func DecodeSettings(raw map[string]interface{}) (Settings, error) {
	s := DefaultSettings()
	if raw == nil {
		return s, nil
	}

	// lineColor is resolved here: a bad hex string falls back to black
	// instead of failing the whole decode, and components are clamped.
	fields := make(map[string]interface{}, len(raw))
	for k, v := range raw {
		fields[k] = v
	}
	switch v := fields["lineColor"].(type) {
	case string:
		c := ParseLineColor(v)
		fields["lineColor"] = map[string]interface{}{"r": c.R, "g": c.G, "b": c.B}
	case map[string]interface{}:
		c, err := decodeColorMap(v)
		if err != nil {
			return Settings{}, err
		}
		fields["lineColor"] = map[string]interface{}{"r": c.R, "g": c.G, "b": c.B}
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           &s,
	})
	if err != nil {
		return Settings{}, fmt.Errorf("failed to create settings decoder: %w", err)
	}
	if err := decoder.Decode(fields); err != nil {
		return Settings{}, fmt.Errorf("failed to decode settings: %w", err)
	}
	return s.Normalize(), nil
}

// decodeColorMap reads an {r,g,b} map, clamping each component to 0..255.
// Missing components are 0.
func decodeColorMap(m map[string]interface{}) (RGB, error) {
	var c struct {
		R float64 `json:"r"`
		G float64 `json:"g"`
		B float64 `json:"b"`
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           &c,
	})
	if err != nil {
		return RGB{}, fmt.Errorf("failed to create color decoder: %w", err)
	}
	if err := decoder.Decode(m); err != nil {
		return RGB{}, fmt.Errorf("failed to decode lineColor: %w", err)
	}
	return RGB{R: clampChannel(c.R), G: clampChannel(c.G), B: clampChannel(c.B)}, nil
}

func clampChannel(v float64) uint8 {
	return uint8(math.Round(clampFloat(v, 0, 255)))
}

func clampFloat(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
