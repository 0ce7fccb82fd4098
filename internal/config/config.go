// Package config reads server settings from the environment.
//
// Every variable is optional:
//
//	STENCIL_LOG_LEVEL      debug | info | warn | error (default info)
//	STENCIL_LOG_FORMAT     json | console (default json)
//	STENCIL_SCREEN_DPI     board pixels per inch (default 96)
//	STENCIL_EXPORT_DPI     exported pixels per inch (default 300)
//	STENCIL_MAX_DIMENSION  longest side of a prepared source image (default 2048)
//	STENCIL_DEBOUNCE_MS    quiet period before a render starts (default 150)
//	STENCIL_PRESETS_FILE   YAML board table replacing the built-in presets
package config

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/ironsheep/thermal-stencil/internal/layout"
	"github.com/ironsheep/thermal-stencil/internal/logger"
	"github.com/ironsheep/thermal-stencil/internal/render"
	"github.com/ironsheep/thermal-stencil/internal/stencil"
)

const envPrefix = "STENCIL_"

// Log formats.
const (
	LogFormatJSON    = "json"
	LogFormatConsole = "console"
)

// Config is the resolved server configuration.
type Config struct {
	LogLevel     string  `mapstructure:"LOG_LEVEL"`
	LogFormat    string  `mapstructure:"LOG_FORMAT"`
	ScreenDPI    float64 `mapstructure:"SCREEN_DPI"`
	ExportDPI    float64 `mapstructure:"EXPORT_DPI"`
	MaxDimension int     `mapstructure:"MAX_DIMENSION"`
	DebounceMS   int     `mapstructure:"DEBOUNCE_MS"`
	PresetsFile  string  `mapstructure:"PRESETS_FILE"`
}

// Default returns the configuration used when no variables are set.
func Default() Config {
	u := layout.DefaultUnits()
	return Config{
		LogLevel:     "info",
		LogFormat:    LogFormatJSON,
		ScreenDPI:    u.ScreenDPI,
		ExportDPI:    u.ExportDPI,
		MaxDimension: stencil.DefaultMaxDimension,
		DebounceMS:   int(render.DefaultDelay / time.Millisecond),
	}
}

// Load reads the process environment.
func Load() (Config, error) {
	return FromEnv(os.Environ())
}

// FromEnv resolves a configuration from KEY=VALUE pairs. Unrelated and empty
// variables are ignored.
func FromEnv(environ []string) (Config, error) {
	raw := make(map[string]interface{})
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, envPrefix) || strings.TrimSpace(value) == "" {
			continue
		}
		raw[strings.TrimPrefix(key, envPrefix)] = strings.TrimSpace(value)
	}

	cfg := Default()
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &cfg,
	})
	if err != nil {
		return Config{}, err
	}
	if err := dec.Decode(raw); err != nil {
		return Config{}, fmt.Errorf("invalid environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks ranges and the log level.
func (c Config) Validate() error {
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return &stencil.ConfigurationError{Field: envPrefix + "LOG_LEVEL", Reason: err.Error()}
	}
	switch strings.ToLower(c.LogFormat) {
	case LogFormatJSON, LogFormatConsole:
	default:
		return &stencil.ConfigurationError{Field: envPrefix + "LOG_FORMAT", Reason: fmt.Sprintf("unknown format %q", c.LogFormat)}
	}
	if c.ScreenDPI <= 0 {
		return &stencil.ConfigurationError{Field: envPrefix + "SCREEN_DPI", Reason: "must be positive"}
	}
	if c.ExportDPI <= 0 {
		return &stencil.ConfigurationError{Field: envPrefix + "EXPORT_DPI", Reason: "must be positive"}
	}
	if c.MaxDimension <= 0 {
		return &stencil.ConfigurationError{Field: envPrefix + "MAX_DIMENSION", Reason: "must be positive"}
	}
	if c.DebounceMS < 0 {
		return &stencil.ConfigurationError{Field: envPrefix + "DEBOUNCE_MS", Reason: "must not be negative"}
	}
	return nil
}

// Logger builds the configured logger writing to w.
func (c Config) Logger(w io.Writer) (logger.Logger, error) {
	level, err := logger.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(c.LogFormat, LogFormatConsole) {
		return logger.NewConsoleLogger(w, level), nil
	}
	return logger.NewZerolog(w, level), nil
}

// Units returns the configured DPI pair.
func (c Config) Units() layout.Units {
	return layout.Units{ScreenDPI: c.ScreenDPI, ExportDPI: c.ExportDPI}
}

// Debounce returns the render debounce window.
func (c Config) Debounce() time.Duration {
	return time.Duration(c.DebounceMS) * time.Millisecond
}

// Mapper builds the layout engine. A presets file replaces the built-in board
// table; its own units section, when present, overrides the configured DPIs.
func (c Config) Mapper() (*layout.Mapper, error) {
	if c.PresetsFile == "" {
		return layout.NewMapper(c.Units(), layout.DefaultPresets())
	}
	return layout.LoadPresetsFile(c.PresetsFile, c.Units())
}
