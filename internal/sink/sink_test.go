package sink

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"asmbridge/internal/diag"
	"asmbridge/internal/diagfmt"
	"asmbridge/internal/engine"
	"asmbridge/internal/source"
)

// stubReport prints one error at bytes [start, end) of file 0.
type stubReport struct {
	start, end uint32
	failWith   error
}

func (r stubReport) HasErrors() bool { return true }

func (r stubReport) Print(w io.Writer, files *source.FileSet) error {
	if r.failWith != nil {
		return r.failWith
	}
	bag := diag.NewBag(0)
	bag.Add(diag.NewError(diag.SemaUnknownMnemonic, source.Span{File: 0, Start: r.start, End: r.end}, "unknown mnemonic 'foo'"))
	return diagfmt.Short(w, bag, files)
}

func TestWriterSinkUsesVirtualFile(t *testing.T) {
	var buf bytes.Buffer
	s := &WriterSink{W: &buf}
	s.Diagnostics(stubReport{start: 4, end: 7}, "nop\nfoo\n")

	if got, want := buf.String(), "error SEM3001 str:2:1 unknown mnemonic 'foo'\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestWriterSinkReportsPrintErrors(t *testing.T) {
	boom := errors.New("boom")
	var got error
	s := &WriterSink{W: io.Discard, OnError: func(err error) { got = err }}
	s.Diagnostics(stubReport{failWith: boom}, "")
	if !errors.Is(got, boom) {
		t.Errorf("OnError got %v", got)
	}

	// без OnError ошибка просто теряется
	(&WriterSink{W: io.Discard}).Diagnostics(stubReport{failWith: boom}, "")
}

func TestWriterSinkNilReport(t *testing.T) {
	var buf bytes.Buffer
	(&WriterSink{W: &buf}).Diagnostics(nil, "nop")
	if buf.Len() != 0 {
		t.Errorf("nil report printed %q", buf.String())
	}
}

func TestFuncAndNopSink(t *testing.T) {
	var seen string
	var s Sink = FuncSink(func(_ engine.Report, text string) { seen = text })
	s.Diagnostics(stubReport{}, "abc")
	if seen != "abc" {
		t.Errorf("FuncSink saw %q", seen)
	}
	NopSink{}.Diagnostics(stubReport{}, "abc")
}

func TestLockedSink(t *testing.T) {
	var mu sync.Mutex
	var lines []string
	inner := FuncSink(func(_ engine.Report, text string) {
		mu.Lock()
		lines = append(lines, text)
		mu.Unlock()
	})
	s := Locked(inner)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Diagnostics(stubReport{}, strings.Repeat("x", i))
		}()
	}
	wg.Wait()
	if len(lines) != 8 {
		t.Errorf("got %d calls", len(lines))
	}
}
