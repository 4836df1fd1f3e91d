package source

import "testing"

func TestSpanCover(t *testing.T) {
	tests := []struct {
		name string
		a, b Span
		want Span
	}{
		{"disjoint", Span{0, 2, 4}, Span{0, 8, 10}, Span{0, 2, 10}},
		{"nested", Span{0, 2, 10}, Span{0, 4, 6}, Span{0, 2, 10}},
		{"other file", Span{0, 2, 4}, Span{1, 0, 10}, Span{0, 2, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Cover(tt.b); got != tt.want {
				t.Errorf("Cover = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSpanLenAndContains(t *testing.T) {
	s := Span{File: 0, Start: 3, End: 9}
	if s.Len() != 6 || s.Empty() {
		t.Fatalf("Len/Empty wrong for %v", s)
	}
	if (Span{End: 1, Start: 5}).Len() != 0 {
		t.Error("inverted span must have zero length")
	}
	if !s.Contains(Span{File: 0, Start: 3, End: 9}) {
		t.Error("span must contain itself")
	}
	if s.Contains(Span{File: 0, Start: 2, End: 4}) {
		t.Error("overlapping span is not contained")
	}
	if s.String() != "0:3-9" {
		t.Errorf("String() = %q", s.String())
	}
}
