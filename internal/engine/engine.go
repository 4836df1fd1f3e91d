// Package engine declares the contract between the FFI boundary and the
// assembler that does the actual work. The boundary never looks inside a
// Report; it only asks whether it has errors and, if so, prints it.
package engine

import (
	"io"

	"asmbridge/internal/source"
)

// Report is the diagnostic outcome of one compilation.
type Report interface {
	HasErrors() bool
	// Print renders the report. Spans in the report refer to file 0 of files,
	// which must hold the text passed to Compile.
	Print(w io.Writer, files *source.FileSet) error
}

// Engine turns assembly text into bytes. A nil slice means no output was
// produced; an empty non-nil slice is a valid, empty program.
type Engine interface {
	Compile(text string) ([]byte, Report)
}

// Func adapts a plain function to Engine.
type Func func(text string) ([]byte, Report)

func (f Func) Compile(text string) ([]byte, Report) { return f(text) }
