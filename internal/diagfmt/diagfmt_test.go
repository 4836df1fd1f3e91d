package diagfmt

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"asmbridge/internal/diag"
	"asmbridge/internal/source"
)

func sampleBag(t *testing.T) (*diag.Bag, *source.FileSet) {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("str", []byte("start:\n\tnop\n\tfoo r1, 5\nhalt\n"))

	bag := diag.NewBag(10)
	bag.Add(diag.NewError(diag.SemaUnknownMnemonic, source.Span{File: id, Start: 13, End: 16}, "unknown mnemonic 'foo'").
		WithNote(source.Span{File: id, Start: 0, End: 5}, "in block 'start'"))
	bag.Add(diag.New(diag.SevWarning, diag.SemaUnusedLabel, source.Span{File: id, Start: 0, End: 5}, "label 'start' is never used"))
	bag.Sort()
	return bag, fs
}

func TestPrettyPlain(t *testing.T) {
	bag, fs := sampleBag(t)

	var buf bytes.Buffer
	opts := DefaultOptions().Pretty
	if err := Pretty(&buf, bag, fs, opts); err != nil {
		t.Fatalf("Pretty: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"str:1:1: WARNING SEM3010: label 'start' is never used",
		"str:3:2: ERROR SEM3001: unknown mnemonic 'foo'",
		"3 |     foo r1, 5",
		"  |     ^~~\n",
		"note: str:1:1: in block 'start'",
		"1 error, 1 warning",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Error("color escapes in plain output")
	}
}

func TestPrettyColor(t *testing.T) {
	bag, fs := sampleBag(t)
	var buf bytes.Buffer
	opts := DefaultOptions().Pretty
	opts.Color = true
	if err := Pretty(&buf, bag, fs, opts); err != nil {
		t.Fatalf("Pretty: %v", err)
	}
	if !strings.Contains(buf.String(), "\x1b[") {
		t.Error("expected ANSI escapes when color is on")
	}
}

func TestPrettyWidthClipsSource(t *testing.T) {
	fs := source.NewFileSet()
	long := "#d8 " + strings.Repeat("1, ", 40) + "999"
	id := fs.AddVirtual("str", []byte(long))
	bag := diag.NewBag(1)
	bag.Add(diag.NewError(diag.SemaValueOutOfRange, source.Span{File: id, Start: 124, End: 127}, "value 999 does not fit in 8 bits"))

	var buf bytes.Buffer
	if err := Pretty(&buf, bag, fs, PrettyOpts{Width: 20}); err != nil {
		t.Fatalf("Pretty: %v", err)
	}
	if !strings.Contains(buf.String(), "…") {
		t.Errorf("expected clipped line:\n%s", buf.String())
	}
	if strings.Contains(buf.String(), "^") {
		t.Errorf("caret beyond the clip width must be omitted:\n%s", buf.String())
	}
}

func TestJSON(t *testing.T) {
	bag, fs := sampleBag(t)
	var buf bytes.Buffer
	opts := DefaultOptions().JSON
	if err := JSON(&buf, bag, fs, opts); err != nil {
		t.Fatalf("JSON: %v", err)
	}

	var out DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("invalid json: %v\n%s", err, buf.String())
	}
	if out.Count != 2 || out.Errors != 1 || out.Warnings != 1 {
		t.Fatalf("counts = %+v", out)
	}
	d := out.Diagnostics[1]
	if d.Code != "SEM3001" || d.Location.File != "str" || d.Location.StartLine != 3 || d.Location.StartCol != 2 {
		t.Errorf("unexpected diagnostic %+v", d)
	}
	if len(d.Notes) != 1 {
		t.Errorf("notes = %+v", d.Notes)
	}
}

func TestJSONMax(t *testing.T) {
	bag, fs := sampleBag(t)
	out := BuildDiagnosticsOutput(bag, fs, JSONOpts{Max: 1})
	if out.Count != 1 {
		t.Fatalf("Count = %d", out.Count)
	}
	if out.Diagnostics[0].Location.StartLine != 0 {
		t.Error("positions must be omitted unless requested")
	}
}

func TestRenderDispatch(t *testing.T) {
	bag, fs := sampleBag(t)

	var buf bytes.Buffer
	if err := Render(&buf, bag, fs, Options{Format: FormatOff}); err != nil || buf.Len() != 0 {
		t.Fatalf("off must write nothing, got %q (%v)", buf.String(), err)
	}
	if err := Render(&buf, bag, fs, Options{Format: FormatShort}); err != nil {
		t.Fatalf("short: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "warning SEM3010 str:1:1") {
		t.Errorf("short output = %q", buf.String())
	}
}

func TestParseFormatAndPathMode(t *testing.T) {
	for _, s := range []string{"pretty", "JSON", "short", "off", ""} {
		if _, err := ParseFormat(s); err != nil {
			t.Errorf("ParseFormat(%q): %v", s, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("expected error for xml")
	}
	m, err := ParsePathMode("basename")
	if err != nil || m != PathModeBasename {
		t.Errorf("ParsePathMode = %v, %v", m, err)
	}
	if _, err := ParsePathMode("weird"); err == nil {
		t.Error("expected error for unknown path mode")
	}
}
