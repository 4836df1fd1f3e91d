package asm

import (
	"io"

	"asmbridge/internal/diag"
	"asmbridge/internal/diagfmt"
	"asmbridge/internal/source"
)

// Report is the diagnostic outcome of one Compile call.
type Report struct {
	bag    *diag.Bag
	render diagfmt.Options
}

func (r *Report) HasErrors() bool { return r.bag.HasErrors() }

// HasWarnings reports whether any warning was recorded.
func (r *Report) HasWarnings() bool { return r.bag.HasWarnings() }

// Bag exposes the collected diagnostics.
func (r *Report) Bag() *diag.Bag { return r.bag }

// Print renders every diagnostic with the configured formatter.
func (r *Report) Print(w io.Writer, files *source.FileSet) error {
	r.bag.Sort()
	return diagfmt.Render(w, r.bag, files, r.render)
}
