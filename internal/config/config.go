// Package config loads asmbridge.toml and turns it into options for the
// assembler, the diagnostic renderers and the logger.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"golang.org/x/term"

	"asmbridge/internal/asm"
	"asmbridge/internal/diagfmt"
	"asmbridge/internal/logging"
)

const (
	// EnvConfig names the config file read by the shared library.
	EnvConfig = "ASMBRIDGE_CONFIG"
	// FileName is looked up in the working directory by the CLI.
	FileName = "asmbridge.toml"
)

type Config struct {
	Diagnostics Diagnostics `toml:"diagnostics"`
	Assembler   Assembler   `toml:"assembler"`
	Log         Log         `toml:"log"`
	Cache       Cache       `toml:"cache"`
}

type Diagnostics struct {
	Format   string `toml:"format"`
	Color    string `toml:"color"` // auto | on | off
	Context  int    `toml:"context"`
	PathMode string `toml:"path_mode"`
	Width    int    `toml:"width"`
	Max      int    `toml:"max"`
}

type Assembler struct {
	ISA              string `toml:"isa"`
	MaxSize          uint64 `toml:"max_size"`
	WarnUnusedLabels bool   `toml:"warn_unused_labels"`
}

type Log struct {
	Level string `toml:"level"`
}

type Cache struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Diagnostics: Diagnostics{
			Format:   "pretty",
			Color:    "auto",
			Context:  1,
			PathMode: "auto",
			Max:      100,
		},
		Assembler: Assembler{WarnUnusedLabels: true},
		Log:       Log{Level: "disabled"},
		Cache:     Cache{Enabled: true},
	}
}

// Load reads path on top of the defaults. Unknown keys are an error.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadOptional is Load, except that a missing file yields the defaults.
func LoadOptional(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return Load(path)
}

// FromEnv is how the shared library configures itself: the file named by
// ASMBRIDGE_CONFIG, then environment overrides.
func FromEnv() (Config, error) {
	cfg, err := LoadOptional(os.Getenv(EnvConfig))
	if err != nil {
		return Config{}, err
	}
	cfg.ApplyEnv(os.Getenv)
	return cfg, cfg.Validate()
}

// ApplyEnv applies ASMBRIDGE_LOG_LEVEL, ASMBRIDGE_NO_COLOR and NO_COLOR.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if lvl := strings.TrimSpace(getenv(logging.EnvLogLevel)); lvl != "" {
		c.Log.Level = lvl
	}
	if v, err := strconv.ParseBool(strings.TrimSpace(getenv(logging.EnvLogNoColor))); err == nil && v {
		c.Diagnostics.Color = "off"
	}
	// https://no-color.org
	if getenv("NO_COLOR") != "" {
		c.Diagnostics.Color = "off"
	}
}

// Validate checks every enumerated value.
func (c *Config) Validate() error {
	if _, err := diagfmt.ParseFormat(c.Diagnostics.Format); err != nil {
		return err
	}
	if _, err := diagfmt.ParsePathMode(c.Diagnostics.PathMode); err != nil {
		return err
	}
	if _, err := parseColor(c.Diagnostics.Color); err != nil {
		return err
	}
	if c.Diagnostics.Context < 0 || c.Diagnostics.Context > 10 {
		return fmt.Errorf("diagnostics.context must be within 0..10, got %d", c.Diagnostics.Context)
	}
	if c.Diagnostics.Width < 0 || c.Diagnostics.Width > 255 {
		return fmt.Errorf("diagnostics.width must be within 0..255, got %d", c.Diagnostics.Width)
	}
	if c.Diagnostics.Max < 0 {
		return fmt.Errorf("diagnostics.max must not be negative, got %d", c.Diagnostics.Max)
	}
	if _, ok := logging.ParseLevel(c.Log.Level); !ok {
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}
	return nil
}

type colorMode uint8

const (
	colorAuto colorMode = iota
	colorOn
	colorOff
)

func parseColor(s string) (colorMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return colorAuto, nil
	case "on", "always", "true":
		return colorOn, nil
	case "off", "never", "false":
		return colorOff, nil
	}
	return colorAuto, fmt.Errorf("diagnostics.color must be auto, on or off, got %q", s)
}

// StderrIsTerminal is the default color probe.
func StderrIsTerminal() bool {
	return term.IsTerminal(int(os.Stderr.Fd())) // #nosec G115 -- fd fits in int
}

// RenderOptions converts the [diagnostics] table. isTTY decides "auto".
func (c *Config) RenderOptions(isTTY func() bool) (diagfmt.Options, error) {
	format, err := diagfmt.ParseFormat(c.Diagnostics.Format)
	if err != nil {
		return diagfmt.Options{}, err
	}
	pathMode, err := diagfmt.ParsePathMode(c.Diagnostics.PathMode)
	if err != nil {
		return diagfmt.Options{}, err
	}
	mode, err := parseColor(c.Diagnostics.Color)
	if err != nil {
		return diagfmt.Options{}, err
	}
	color := mode == colorOn
	if mode == colorAuto && isTTY != nil {
		color = isTTY()
	}

	opts := diagfmt.DefaultOptions()
	opts.Format = format
	opts.Pretty.Color = color
	opts.Pretty.Context = int8(c.Diagnostics.Context) // #nosec G115 -- validated
	opts.Pretty.PathMode = pathMode
	opts.Pretty.Width = uint8(c.Diagnostics.Width) // #nosec G115 -- validated
	opts.JSON.PathMode = pathMode
	return opts, nil
}

// AssemblerOptions resolves the ISA and combines [assembler] with the
// renderer settings.
func (c *Config) AssemblerOptions(isTTY func() bool) (asm.Options, error) {
	isa, err := asm.ResolveISA(c.Assembler.ISA)
	if err != nil {
		return asm.Options{}, err
	}
	render, err := c.RenderOptions(isTTY)
	if err != nil {
		return asm.Options{}, err
	}
	return asm.Options{
		ISA:              isa,
		MaxSize:          c.Assembler.MaxSize,
		MaxDiagnostics:   c.Diagnostics.Max,
		WarnUnusedLabels: c.Assembler.WarnUnusedLabels,
		Render:           render,
	}, nil
}

// CacheDir returns [cache].dir or the per-user cache directory.
func (c *Config) CacheDir() (string, error) {
	if c.Cache.Dir != "" {
		return c.Cache.Dir, nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate cache directory: %w", err)
	}
	return filepath.Join(base, "asmbridge"), nil
}
