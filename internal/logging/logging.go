// Package logging builds the zerolog loggers used by the CLI and the shared
// library.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	EnvLogLevel   = "ASMBRIDGE_LOG_LEVEL"
	EnvLogNoColor = "ASMBRIDGE_NO_COLOR"
)

// Options describes one logger.
type Options struct {
	App   string
	Level string // see ParseLevel; empty means info
	// Console selects human-readable output instead of JSON lines.
	Console bool
	NoColor bool
	Out     io.Writer // os.Stderr when nil
}

// New returns a logger for opts. An unknown level is an error.
func New(opts Options) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if strings.TrimSpace(opts.Level) != "" {
		lvl, ok := ParseLevel(opts.Level)
		if !ok {
			return zerolog.Nop(), fmt.Errorf("unknown log level %q", opts.Level)
		}
		level = lvl
	}
	if level == zerolog.Disabled {
		return zerolog.Nop(), nil
	}

	out := opts.Out
	if out == nil {
		out = os.Stderr
	}
	if opts.Console {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
			NoColor:    opts.NoColor,
		}
	}
	ctx := zerolog.New(out).Level(level).With().Timestamp()
	if opts.App != "" {
		ctx = ctx.Str("app", opts.App)
	}
	return ctx.Logger(), nil
}

// ParseLevel accepts the usual level names and a few aliases.
func ParseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "disable", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.NoLevel, false
	}
}

// LevelFromEnv returns the level named by ASMBRIDGE_LOG_LEVEL, if any.
func LevelFromEnv() (string, bool) {
	raw := strings.TrimSpace(os.Getenv(EnvLogLevel))
	if _, ok := ParseLevel(raw); !ok {
		return "", false
	}
	return raw, true
}
