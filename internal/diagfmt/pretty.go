package diagfmt

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"asmbridge/internal/diag"
	"asmbridge/internal/source"
)

const tabWidth = 4

type palette struct {
	err     *color.Color
	warning *color.Color
	info    *color.Color
	note    *color.Color
	gutter  *color.Color
	caret   map[diag.Severity]*color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		err:     color.New(color.FgRed, color.Bold),
		warning: color.New(color.FgYellow, color.Bold),
		info:    color.New(color.FgCyan, color.Bold),
		note:    color.New(color.FgBlue, color.Bold),
		gutter:  color.New(color.FgBlue),
	}
	p.caret = map[diag.Severity]*color.Color{
		diag.SevError:   p.err,
		diag.SevWarning: p.warning,
		diag.SevInfo:    p.info,
	}
	for _, c := range []*color.Color{p.err, p.warning, p.info, p.note, p.gutter} {
		// color.NoColor глобален; управляем каждым объектом явно
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(sev diag.Severity) *color.Color {
	if c, ok := p.caret[sev]; ok {
		return c
	}
	return p.info
}

// errWriter remembers the first write error so rendering code stays linear.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

// Pretty форматирует диагностики в человекочитаемый вид.
// Идёт по bag.Items() (ожидается bag.Sort() заранее).
// Для каждого diag печатает:
//
//	<path>:<line>:<col>: <SEV> <CODE>: <Message>
//
// затем контекст строки с подчёркиванием ^~~~ по Span, затем Notes.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) error {
	ew := &errWriter{w: w}
	pal := newPalette(opts.Color)

	items := bag.Items()
	for i := range items {
		renderDiagnostic(ew, &items[i], fs, opts, pal)
	}

	if opts.ShowSummary && len(items) > 0 {
		renderSummary(ew, bag, pal)
	}
	return ew.err
}

func renderDiagnostic(ew *errWriter, d *diag.Diagnostic, fs *source.FileSet, opts PrettyOpts, pal palette) {
	f := fs.Get(d.Primary.File)
	if f == nil {
		ew.printf("%s %s: %s\n", pal.severity(d.Severity).Sprint(d.Severity.String()), d.Code.ID(), d.Message)
		return
	}
	start, end := fs.Resolve(d.Primary)
	path := f.FormatPath(formatPath(opts.PathMode), fs.BaseDir())

	ew.printf("%s:%d:%d: %s %s: %s\n",
		path, start.Line, start.Col,
		pal.severity(d.Severity).Sprint(d.Severity.String()),
		d.Code.ID(),
		d.Message,
	)
	renderExcerpt(ew, f, start, end, opts, pal, pal.severity(d.Severity))

	if !opts.ShowNotes {
		return
	}
	for _, n := range d.Notes {
		nf := fs.Get(n.Span.File)
		if nf == nil {
			ew.printf("  %s %s\n", pal.note.Sprint("note:"), n.Msg)
			continue
		}
		ns, _ := fs.Resolve(n.Span)
		ew.printf("  %s %s:%d:%d: %s\n", pal.note.Sprint("note:"),
			nf.FormatPath(formatPath(opts.PathMode), fs.BaseDir()), ns.Line, ns.Col, n.Msg)
	}
}

// renderExcerpt prints the primary line with context and an underline.
// Multi-line spans are underlined up to the end of the first line.
func renderExcerpt(ew *errWriter, f *source.File, start, end source.LineCol, opts PrettyOpts, pal palette, accent *color.Color) {
	lineCount := f.LineCount()
	if lineCount == 0 {
		return
	}
	ctx := uint32(max(opts.Context, 0))
	first := uint32(1)
	if start.Line > ctx {
		first = start.Line - ctx
	}
	last := min(start.Line+ctx, lineCount)
	gutterWidth := len(strconv.FormatUint(uint64(last), 10))

	for ln := first; ln <= last; ln++ {
		line := f.GetLine(ln)
		shown := clipLine(expandTabs(line), opts.Width)
		ew.printf("%s %s\n", pal.gutter.Sprintf("%*d |", gutterWidth, ln), shown)
		if ln != start.Line {
			continue
		}

		startCol := int(start.Col) - 1
		endCol := len(line)
		if end.Line == start.Line {
			endCol = int(end.Col) - 1
		}
		startCol = min(max(startCol, 0), len(line))
		endCol = min(max(endCol, startCol), len(line))

		pad := runewidth.StringWidth(expandTabs(line[:startCol]))
		width := runewidth.StringWidth(expandTabs(line[startCol:endCol]))
		if opts.Width > 0 && pad >= int(opts.Width) {
			continue
		}
		ew.printf("%s %s%s\n",
			pal.gutter.Sprintf("%*s |", gutterWidth, ""),
			strings.Repeat(" ", pad),
			accent.Sprint(underline(width)),
		)
	}
}

func underline(width int) string {
	if width <= 1 {
		return "^"
	}
	return "^" + strings.Repeat("~", width-1)
}

func expandTabs(s string) string {
	if !strings.Contains(s, "\t") {
		return s
	}
	return strings.ReplaceAll(s, "\t", strings.Repeat(" ", tabWidth))
}

func clipLine(s string, width uint8) string {
	if width == 0 {
		return s
	}
	return runewidth.Truncate(s, int(width), "…")
}

func renderSummary(ew *errWriter, bag *diag.Bag, pal palette) {
	errs := bag.Count(diag.SevError)
	warns := bag.Count(diag.SevWarning)
	parts := make([]string, 0, 3)
	if errs > 0 {
		parts = append(parts, pal.err.Sprint(plural(errs, "error")))
	}
	if warns > 0 {
		parts = append(parts, pal.warning.Sprint(plural(warns, "warning")))
	}
	if dropped := bag.Dropped(); dropped > 0 {
		parts = append(parts, fmt.Sprintf("%d more not shown", dropped))
	}
	if len(parts) == 0 {
		return
	}
	ew.printf("%s\n", strings.Join(parts, ", "))
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return strconv.Itoa(n) + " " + word + "s"
}
