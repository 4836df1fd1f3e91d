package fuzztests

import (
	"bytes"
	"testing"
	"unsafe"

	"asmbridge/internal/asm"
	"asmbridge/internal/boundary"
	"asmbridge/internal/cmem"
	"asmbridge/internal/sink"
	"asmbridge/internal/status"
)

// FuzzBoundaryRoundTrip feeds arbitrary bytes through the C entry points
// backed by the real C heap: every Ok result must match the engine and be
// released by Free.
func FuzzBoundaryRoundTrip(f *testing.F) {
	addCorpusSeeds(f)
	f.Add([]byte{0xff, 0xfe, 'n', 'o', 'p'})
	f.Add([]byte("nop\x00garbage after terminator"))

	a := asm.New(asm.Options{})
	var heap cmem.Heap
	b := boundary.New(a, &heap, boundary.WithSink(sink.NopSink{}))

	f.Fuzz(func(t *testing.T, input []byte) {
		input = clampSeed(input)
		text := input
		if i := bytes.IndexByte(text, 0); i >= 0 {
			text = text[:i]
		}
		cstr := append(append([]byte(nil), text...), 0)

		var bin *byte
		var n uintptr
		code := b.Assemble(&cstr[0], &bin, &n)
		if !code.Valid() {
			t.Fatalf("invalid status %d", code)
		}

		switch code {
		case status.Ok:
			want, _ := a.Compile(string(text))
			got := unsafe.Slice(bin, max(n, 1))[:n]
			if !bytes.Equal(got, want) {
				t.Fatalf("boundary bytes % X, engine bytes % X", got, want)
			}
			if c := b.Free(bin, n); c != status.Ok {
				t.Fatalf("Free = %s", c)
			}
		case status.Failed, status.InvalidEncoding:
			if bin != nil || n != 0 {
				t.Fatalf("%s must leave the out slots untouched", code)
			}
		default:
			t.Fatalf("unexpected status %s for a valid call", code)
		}
		if live := heap.Live(); live != 0 {
			t.Fatalf("%d C blocks still live", live)
		}
	})
}
