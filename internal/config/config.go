// Package config loads host settings from defaults, an optional YAML file and
// the environment. Command-line flags are applied last by each binary.
package config

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rook-computer/confetti/internal/confetti"
)

const (
	EnvPreset     = "CONFETTI_PRESET"
	EnvDurationMs = "CONFETTI_DURATION_MS"
	EnvStdioLog   = "CONFETTI_STDIO_LOG"
	EnvListenAddr = "CONFETTI_LISTEN"
	EnvDevMode    = "CONFETTI_DEV"
)

type Config struct {
	Preset string `yaml:"preset"`
	// DurationMs overrides the preset's default run length when non-zero.
	DurationMs int `yaml:"duration_ms"`
	// FPS of zero leaves the host's own default frame rate.
	FPS      int      `yaml:"fps"`
	Listen   string   `yaml:"listen"`
	Dev      bool     `yaml:"dev"`
	LogLevel string   `yaml:"log_level"`
	Palette  []string `yaml:"palette"`
	Caption  string   `yaml:"caption"`
	// Auto activates the effect once at startup.
	Auto     bool   `yaml:"auto"`
	StdioLog string `yaml:"stdio_log"`
}

// Default returns the built-in settings for a host listening on listen.
func Default(listen string) Config {
	return Config{
		Preset:   "classic",
		Listen:   listen,
		LogLevel: "info",
		Caption:  "confetti",
	}
}

// Load layers path (when non-empty) and the environment over base.
func Load(path string, base Config) (Config, error) {
	cfg := base
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv(EnvPreset); v != "" {
		cfg.Preset = v
	}
	if v := os.Getenv(EnvDurationMs); v != "" {
		ms, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s must be an integer (got %q): %w", EnvDurationMs, v, err)
		}
		cfg.DurationMs = ms
	}
	if v := os.Getenv(EnvListenAddr); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv(EnvDevMode); v != "" {
		dev, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s must be a boolean (got %q): %w", EnvDevMode, v, err)
		}
		cfg.Dev = dev
	}
	if v := os.Getenv(EnvStdioLog); v != "" {
		cfg.StdioLog = v
	}
	return nil
}

// Validate checks the fields that would otherwise fail later at runtime.
func (c Config) Validate() error {
	var errs []error
	if _, err := confetti.PresetByName(c.Preset); err != nil {
		errs = append(errs, err)
	}
	if err := c.checkDuration(); err != nil {
		errs = append(errs, err)
	}
	if c.FPS < 0 || c.FPS > 240 {
		errs = append(errs, fmt.Errorf("fps must be between 0 and 240 (got %d)", c.FPS))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if _, err := ParsePalette(c.Palette); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Effect resolves the preset with the configured palette and duration.
func (c Config) Effect() (confetti.Preset, error) {
	preset, err := confetti.PresetByName(c.Preset)
	if err != nil {
		return confetti.Preset{}, err
	}
	palette, err := ParsePalette(c.Palette)
	if err != nil {
		return confetti.Preset{}, err
	}
	if len(palette) > 0 {
		preset.Palette = palette
	}
	if err := c.checkDuration(); err != nil {
		return confetti.Preset{}, err
	}
	if c.DurationMs > 0 {
		preset.Duration = c.Duration()
	}
	return preset, nil
}

// MaxDurationMs is the largest duration_ms that fits a time.Duration.
const MaxDurationMs = math.MaxInt64 / int64(time.Millisecond)

func (c Config) checkDuration() error {
	if c.DurationMs < 0 {
		return fmt.Errorf("duration_ms must not be negative (got %d)", c.DurationMs)
	}
	if int64(c.DurationMs) > MaxDurationMs {
		return fmt.Errorf("duration_ms must be at most %d (got %d)", MaxDurationMs, c.DurationMs)
	}
	return nil
}

// Duration returns DurationMs as a time.Duration.
func (c Config) Duration() time.Duration {
	return time.Duration(c.DurationMs) * time.Millisecond
}

// ParsePalette parses a list of #rgb, #rrggbb or #rrggbbaa colours.
func ParsePalette(values []string) ([]color.NRGBA, error) {
	if len(values) == 0 {
		return nil, nil
	}
	out := make([]color.NRGBA, 0, len(values))
	for _, v := range values {
		c, err := ParseHexColor(v)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func ParseHexColor(s string) (color.NRGBA, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(s), "#")
	switch len(raw) {
	case 3:
		raw = string([]byte{raw[0], raw[0], raw[1], raw[1], raw[2], raw[2]}) + "ff"
	case 6:
		raw += "ff"
	case 8:
	default:
		return color.NRGBA{}, fmt.Errorf("invalid colour %q", s)
	}
	v, err := strconv.ParseUint(raw, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

// Level is a log level name understood by the app logger.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

func ParseLevel(s string) (Level, error) {
	switch Level(strings.ToLower(strings.TrimSpace(s))) {
	case "", LevelInfo:
		return LevelInfo, nil
	case LevelDebug:
		return LevelDebug, nil
	case LevelError:
		return LevelError, nil
	default:
		return "", fmt.Errorf("unknown log level %q", s)
	}
}
