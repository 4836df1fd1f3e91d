package diagfmt

import (
	"fmt"
	"strings"
)

// PathMode specifies how file paths are displayed.
type PathMode uint8

const (
	// PathModeAuto keeps short or relative paths and shortens long absolute ones.
	PathModeAuto PathMode = iota
	// PathModeAbsolute always uses absolute paths.
	PathModeAbsolute
	PathModeRelative
	PathModeBasename
)

// ParsePathMode accepts auto|absolute|relative|basename.
func ParsePathMode(s string) (PathMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return PathModeAuto, nil
	case "absolute":
		return PathModeAbsolute, nil
	case "relative":
		return PathModeRelative, nil
	case "basename":
		return PathModeBasename, nil
	}
	return PathModeAuto, fmt.Errorf("unknown path mode %q (must be auto, absolute, relative or basename)", s)
}

func (m PathMode) String() string {
	switch m {
	case PathModeAbsolute:
		return "absolute"
	case PathModeRelative:
		return "relative"
	case PathModeBasename:
		return "basename"
	default:
		return "auto"
	}
}

// Format selects a renderer.
type Format uint8

const (
	FormatPretty Format = iota
	FormatJSON
	FormatShort
	// FormatOff disables rendering entirely.
	FormatOff
)

// ParseFormat accepts pretty|json|short|off.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "pretty":
		return FormatPretty, nil
	case "json":
		return FormatJSON, nil
	case "short":
		return FormatShort, nil
	case "off", "none":
		return FormatOff, nil
	}
	return FormatPretty, fmt.Errorf("unknown diagnostics format %q (must be pretty, json, short or off)", s)
}

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatShort:
		return "short"
	case FormatOff:
		return "off"
	default:
		return "pretty"
	}
}

// PrettyOpts configures pretty-printing of diagnostics.
type PrettyOpts struct {
	Color       bool
	Context     int8 // строк контекста до и после
	PathMode    PathMode
	Width       uint8 // максимальная ширина строки исходника, 0 - не ограничено
	ShowNotes   bool
	ShowSummary bool
}

// JSONOpts configures JSON output of diagnostics.
type JSONOpts struct {
	IncludePositions bool // добавить line/col
	PathMode         PathMode
	Max              int // обрезка вывода, не Bag
	IncludeNotes     bool
}

// Options bundles everything a renderer switch needs.
type Options struct {
	Format Format
	Pretty PrettyOpts
	JSON   JSONOpts
}

// DefaultOptions returns pretty output with notes, one context line and no color.
func DefaultOptions() Options {
	return Options{
		Format: FormatPretty,
		Pretty: PrettyOpts{
			Context:     1,
			ShowNotes:   true,
			ShowSummary: true,
		},
		JSON: JSONOpts{
			IncludePositions: true,
			IncludeNotes:     true,
		},
	}
}

func formatPath(mode PathMode) string {
	return mode.String()
}
