// Package asm is a table-driven two-pass assembler. Instruction sets are
// described in TOML; tiny8 is built in.
//
// Syntax, one statement per line:
//
//	label:  mnemonic op, op   ; comment
//	NAME = expr
//	#d8 1, 2, "raw"   #d16 …   #str "nul-terminated"
//	#org addr         #align n  #res n
//
// Expressions are sums of numbers, character literals and symbols.
package asm

import (
	"asmbridge/internal/diag"
	"asmbridge/internal/diagfmt"
	"asmbridge/internal/engine"
	"asmbridge/internal/source"
)

// VirtualFileName is the display name of text passed to Compile.
const VirtualFileName = "str"

// Options configures an Assembler.
type Options struct {
	ISA *ISA // nil means DefaultISA
	// MaxSize caps the output below the ISA address space; 0 means no cap.
	MaxSize          uint64
	MaxDiagnostics   int
	WarnUnusedLabels bool
	Render           diagfmt.Options
}

// Assembler implements engine.Engine. It keeps no state between calls and
// may be used from several goroutines.
type Assembler struct {
	opts Options
}

var _ engine.Engine = (*Assembler)(nil)

func New(opts Options) *Assembler {
	if opts.ISA == nil {
		opts.ISA = DefaultISA()
	}
	if opts.Render == (diagfmt.Options{}) {
		opts.Render = diagfmt.DefaultOptions()
	}
	return &Assembler{opts: opts}
}

// ISA returns the instruction set in use.
func (a *Assembler) ISA() *ISA { return a.opts.ISA }

// Compile assembles text as a virtual file named "str".
func (a *Assembler) Compile(text string) ([]byte, engine.Report) {
	fs := source.NewFileSet()
	id := fs.AddVirtual(VirtualFileName, []byte(text))
	out, rep := a.AssembleFile(fs.Get(id))
	return out, rep
}

// AssembleFile assembles one file of a FileSet. The returned slice is nil
// when the report has errors and non-nil (possibly empty) otherwise.
func (a *Assembler) AssembleFile(f *source.File) ([]byte, *Report) {
	bag := diag.NewBag(a.opts.MaxDiagnostics)
	rep := diag.NewDedupReporter(diag.BagReporter{Bag: bag})

	as := newAssembler(a.opts.ISA, f, rep, a.opts.MaxSize)
	out := as.run(a.opts.WarnUnusedLabels)

	report := &Report{bag: bag, render: a.opts.Render}
	if bag.HasErrors() {
		return nil, report
	}
	if out == nil {
		out = []byte{}
	}
	return out, report
}
