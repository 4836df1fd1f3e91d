package source

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileSetVersioning(t *testing.T) {
	fs := NewFileSet()

	id1 := fs.Add("prog.asm", []byte("nop"), 0)
	id2 := fs.Add("prog.asm", []byte("halt"), 0)
	if id1 != 0 || id2 != 1 {
		t.Fatalf("unexpected ids %d, %d", id1, id2)
	}

	latest, ok := fs.GetLatest("prog.asm")
	if !ok || latest != id2 {
		t.Fatalf("GetLatest = %d, %v; want %d", latest, ok, id2)
	}
	if string(fs.Get(id1).Content) != "nop" {
		t.Errorf("old version lost: %q", fs.Get(id1).Content)
	}
	if fs.Len() != 2 {
		t.Errorf("Len() = %d, want 2", fs.Len())
	}
}

func TestGetUnknownID(t *testing.T) {
	fs := NewFileSet()
	if fs.Get(3) != nil {
		t.Fatal("expected nil for unknown id")
	}
}

func TestAddVirtualLineIdx(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("str", []byte("a\nb\n"))
	f := fs.Get(id)

	want := []uint32{1, 3}
	if len(f.LineIdx) != len(want) {
		t.Fatalf("LineIdx = %v, want %v", f.LineIdx, want)
	}
	for i := range want {
		if f.LineIdx[i] != want[i] {
			t.Errorf("LineIdx[%d] = %d, want %d", i, f.LineIdx[i], want[i])
		}
	}
	if f.Flags&FileVirtual == 0 {
		t.Error("virtual flag not set")
	}
	if f.LineCount() != 2 {
		t.Errorf("LineCount() = %d, want 2", f.LineCount())
	}
}

func TestResolve(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("str", []byte("nop\n  ld r1, 5\nhalt"))

	tests := []struct {
		name       string
		span       Span
		start, end LineCol
	}{
		{"first line", Span{File: id, Start: 0, End: 3}, LineCol{1, 1}, LineCol{1, 4}},
		{"second line", Span{File: id, Start: 6, End: 8}, LineCol{2, 3}, LineCol{2, 5}},
		{"last line", Span{File: id, Start: 15, End: 19}, LineCol{3, 1}, LineCol{3, 5}},
		{"clamped", Span{File: id, Start: 100, End: 200}, LineCol{3, 5}, LineCol{3, 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := fs.Resolve(tt.span)
			if start != tt.start || end != tt.end {
				t.Errorf("Resolve(%v) = %v, %v; want %v, %v", tt.span, start, end, tt.start, tt.end)
			}
		})
	}
}

func TestGetLine(t *testing.T) {
	fs := NewFileSet()
	f := fs.Get(fs.AddVirtual("str", []byte("one\ntwo\n\nfour")))

	tests := []struct {
		line uint32
		want string
	}{
		{0, ""},
		{1, "one"},
		{2, "two"},
		{3, ""},
		{4, "four"},
		{5, ""},
	}
	for _, tt := range tests {
		if got := f.GetLine(tt.line); got != tt.want {
			t.Errorf("GetLine(%d) = %q, want %q", tt.line, got, tt.want)
		}
	}
}

func TestLoadNormalizesBOMAndCRLF(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prog.asm")
	if err := os.WriteFile(path, []byte("\xEF\xBB\xBFnop\r\nhalt\r\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	fs := NewFileSet()
	id, err := fs.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	f := fs.Get(id)
	if string(f.Content) != "nop\nhalt\n" {
		t.Errorf("content = %q", f.Content)
	}
	if f.Flags&FileHadBOM == 0 || f.Flags&FileNormalizedCRLF == 0 {
		t.Errorf("flags = %b", f.Flags)
	}
}

func TestLoadMissingFile(t *testing.T) {
	fs := NewFileSet()
	if _, err := fs.Load(filepath.Join(t.TempDir(), "missing.asm")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestFormatPathModes(t *testing.T) {
	fs := NewFileSet()
	f := fs.Get(fs.Add("/home/user/project/src/boot.asm", nil, 0))

	if got := f.FormatPath("basename", ""); got != "boot.asm" {
		t.Errorf("basename = %q", got)
	}
	if got := f.FormatPath("relative", "/home/user/project"); got != "src/boot.asm" {
		t.Errorf("relative = %q", got)
	}
	if got := f.FormatPath("absolute", ""); got != "/home/user/project/src/boot.asm" {
		t.Errorf("absolute = %q", got)
	}

	v := fs.Get(fs.AddVirtual("str", nil))
	if got := v.FormatPath("absolute", ""); got != "str" {
		t.Errorf("virtual files keep their name, got %q", got)
	}
}

func TestRelativePathOutsideBaseFallsBackToAbsolute(t *testing.T) {
	tmp := t.TempDir()
	target := filepath.Join(tmp, "other", "file.asm")

	got, err := RelativePath(target, filepath.Join(tmp, "base"))
	if err != nil {
		t.Fatalf("RelativePath returned error: %v", err)
	}
	if want := normalizePath(target); got != want {
		t.Fatalf("expected absolute fallback %q, got %q", want, got)
	}
}
