package boundary

import "testing"

func TestDecodeSource(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
		offset  int
	}{
		{name: "ascii", in: "nop\n", want: "nop\n"},
		{name: "empty", in: "", want: ""},
		{name: "multibyte", in: "; привет\nnop", want: "; привет\nnop"},
		{name: "invalid byte", in: "ab\xffcd", wantErr: true, offset: 2},
		{name: "truncated rune", in: "h\xc3\xa9llo\xc3", wantErr: true, offset: 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, off, err := decodeSource(cstr(tt.in))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if off != tt.offset {
					t.Errorf("offset = %d, want %d", off, tt.offset)
				}
				return
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
