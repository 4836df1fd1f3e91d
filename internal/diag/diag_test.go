package diag

import (
	"testing"

	"asmbridge/internal/source"
)

func TestBagLimitStillTracksErrors(t *testing.T) {
	bag := NewBag(1)
	sp := source.Span{Start: 0, End: 1}

	if !bag.Add(New(SevWarning, SemaUnusedLabel, sp, "unused")) {
		t.Fatal("first diagnostic must fit")
	}
	if bag.Add(NewError(SemaUndefinedSymbol, sp, "undefined")) {
		t.Fatal("second diagnostic must be dropped")
	}
	if bag.Len() != 1 || bag.Dropped() != 1 {
		t.Fatalf("Len=%d Dropped=%d", bag.Len(), bag.Dropped())
	}
	if !bag.HasErrors() {
		t.Fatal("dropped error must still count")
	}
}

func TestBagUnlimited(t *testing.T) {
	bag := NewBag(0)
	for i := 0; i < 100; i++ {
		bag.Add(New(SevInfo, SemaInfo, source.Span{Start: uint32(i)}, "x"))
	}
	if bag.Len() != 100 {
		t.Fatalf("Len = %d", bag.Len())
	}
	if bag.HasErrors() || bag.HasWarnings() {
		t.Fatal("info diagnostics are neither errors nor warnings")
	}
	if bag.Count(SevInfo) != 100 {
		t.Fatalf("Count(SevInfo) = %d", bag.Count(SevInfo))
	}
}

func TestNilBag(t *testing.T) {
	var bag *Bag
	if bag.HasErrors() || bag.Len() != 0 || bag.Items() != nil {
		t.Fatal("nil bag must behave as empty")
	}
}

func TestBagSort(t *testing.T) {
	bag := NewBag(10)
	bag.Add(New(SevWarning, SemaUnusedLabel, source.Span{Start: 5, End: 6}, "b"))
	bag.Add(NewError(SemaOperandKind, source.Span{Start: 5, End: 6}, "a"))
	bag.Add(NewError(SemaUnknownMnemonic, source.Span{Start: 1, End: 2}, "c"))
	bag.Sort()

	got := []string{bag.Items()[0].Message, bag.Items()[1].Message, bag.Items()[2].Message}
	want := []string{"c", "a", "b"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestDedupReporter(t *testing.T) {
	bag := NewBag(10)
	r := NewDedupReporter(BagReporter{Bag: bag})
	sp := source.Span{Start: 2, End: 4}

	for i := 0; i < 3; i++ {
		ReportError(r, SemaUndefinedSymbol, sp, "undefined symbol 'loop'").Emit()
	}
	ReportError(r, SemaUndefinedSymbol, source.Span{Start: 9, End: 11}, "undefined symbol 'loop'").Emit()

	if bag.Len() != 2 {
		t.Fatalf("expected 2 unique diagnostics, got %d", bag.Len())
	}
	if got := r.Suppressed(); got != 2 {
		t.Errorf("Suppressed() = %d, want 2", got)
	}
	// другой уровень при том же месте и тексте не считается повтором
	ReportWarning(r, SemaUndefinedSymbol, sp, "undefined symbol 'loop'").Emit()
	if bag.Len() != 3 {
		t.Errorf("severity must be part of the key, got %d diagnostics", bag.Len())
	}
	var nilReporter *DedupReporter
	nilReporter.Report(SemaUndefinedSymbol, SevError, sp, "x", nil)
	if nilReporter.Suppressed() != 0 {
		t.Error("nil reporter must report zero")
	}
}

func TestReportBuilderEmitsOnce(t *testing.T) {
	bag := NewBag(10)
	b := ReportWarning(BagReporter{Bag: bag}, SemaUnusedLabel, source.Span{}, "unused").
		WithNote(source.Span{Start: 1, End: 2}, "here")
	b.Emit()
	b.Emit()
	if bag.Len() != 1 {
		t.Fatalf("Len = %d", bag.Len())
	}
	if len(bag.Items()[0].Notes) != 1 {
		t.Fatal("note lost")
	}
}

func TestCodeID(t *testing.T) {
	tests := []struct {
		code Code
		want string
	}{
		{LexBadNumber, "LEX1004"},
		{SynUnknownDirective, "SYN2004"},
		{SemaUndefinedSymbol, "SEM3004"},
		{IOInvalidEncoding, "IO4002"},
		{ObsTimings, "OBS6001"},
		{UnknownCode, "E0000"},
	}
	for _, tt := range tests {
		if got := tt.code.ID(); got != tt.want {
			t.Errorf("ID(%d) = %q, want %q", tt.code, got, tt.want)
		}
	}
	if Code(3999).Title() != "Unknown error" {
		t.Error("unknown codes must fall back to the generic title")
	}
}

func TestFormatShort(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("str", []byte("nop\nfoo r1\n"))

	diags := []Diagnostic{
		New(SevWarning, SemaUnusedLabel, source.Span{File: id, Start: 0, End: 3}, "label\nunused"),
		NewError(SemaUnknownMnemonic, source.Span{File: id, Start: 4, End: 7}, "unknown mnemonic 'foo'").
			WithNote(source.Span{File: id, Start: 0, End: 3}, "previous instruction"),
	}

	want := "warning SEM3010 str:1:1 label unused\n" +
		"note SEM3001 str:1:1 previous instruction\n" +
		"error SEM3001 str:2:1 unknown mnemonic 'foo'"
	if got := FormatShort(diags, fs, true); got != want {
		t.Fatalf("unexpected short diagnostics:\nwant:\n%s\n\ngot:\n%s", want, got)
	}
	if FormatShort(nil, fs, true) != "" {
		t.Fatal("empty input must render empty")
	}
}
