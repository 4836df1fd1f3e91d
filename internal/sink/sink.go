// Package sink delivers compilation diagnostics somewhere a human can read
// them. The boundary hands over the report together with the source text;
// spans in the report are resolved against a virtual file named "str".
package sink

import (
	"io"
	"os"
	"sync"

	"asmbridge/internal/engine"
	"asmbridge/internal/source"
)

// FileName is the synthetic name under which source text is shown.
const FileName = "str"

// Sink receives reports that have errors.
type Sink interface {
	Diagnostics(report engine.Report, text string)
}

// WriterSink prints reports to W, os.Stderr when W is nil.
type WriterSink struct {
	W io.Writer
	// OnError is called when printing fails; nil ignores the failure.
	OnError func(error)
}

// Stderr returns the default sink.
func Stderr() *WriterSink {
	return &WriterSink{W: os.Stderr}
}

func (s *WriterSink) Diagnostics(report engine.Report, text string) {
	if report == nil {
		return
	}
	w := s.W
	if w == nil {
		w = os.Stderr
	}
	if err := report.Print(w, Files(text)); err != nil && s.OnError != nil {
		s.OnError(err)
	}
}

// Files builds the file set reports are printed against: text is file 0.
func Files(text string) *source.FileSet {
	fs := source.NewFileSet()
	fs.AddVirtual(FileName, []byte(text))
	return fs
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) Diagnostics(engine.Report, string) {}

// FuncSink adapts a function to Sink.
type FuncSink func(report engine.Report, text string)

func (f FuncSink) Diagnostics(report engine.Report, text string) { f(report, text) }

// Locked serializes calls to another sink. The bare WriterSink does not
// synchronize, so concurrent reports may interleave.
func Locked(s Sink) Sink {
	return &lockedSink{next: s}
}

type lockedSink struct {
	mu   sync.Mutex
	next Sink
}

func (l *lockedSink) Diagnostics(report engine.Report, text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.next.Diagnostics(report, text)
}
