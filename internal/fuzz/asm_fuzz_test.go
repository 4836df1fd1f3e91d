package fuzztests

import (
	"testing"
	"time"

	"asmbridge/internal/asm"
	"asmbridge/internal/source"
	"asmbridge/internal/testkit"
)

// assembleTimeout bounds a single input; exceeding it means a loop in
// error recovery.
const assembleTimeout = 5 * time.Second

func FuzzAssemble(f *testing.F) {
	addCorpusSeeds(f)
	a := asm.New(asm.Options{MaxDiagnostics: 128, WarnUnusedLabels: true})
	f.Fuzz(func(t *testing.T, input []byte) {
		input = clampSeed(input)

		fs := source.NewFileSet()
		file := fs.Get(fs.AddVirtual(asm.VirtualFileName, input))
		out, rep := a.AssembleFile(file)

		if rep.HasErrors() != (out == nil) {
			t.Fatalf("errors=%v but output nil=%v", rep.HasErrors(), out == nil)
		}
		diags := rep.Bag().Items()
		if err := testkit.CheckDiagnosticSpans(diags, file); err != nil {
			t.Fatal(err)
		}
		if err := testkit.CheckNonEmptyErrors(diags, file); err != nil {
			t.Fatal(err)
		}
		if uint64(len(out)) > a.ISA().MaxSize() {
			t.Fatalf("output of %d bytes exceeds the address space", len(out))
		}
	})
}

func FuzzAssembleNoHang(f *testing.F) {
	addCorpusSeeds(f)
	f.Add([]byte("a = b + c\nb = c + a\nc = a\n"))
	f.Add([]byte("#org 0xFFFF\n#d16 1\n"))
	f.Add([]byte(",,,:::===\n"))

	a := asm.New(asm.Options{})
	f.Fuzz(func(t *testing.T, input []byte) {
		input = clampSeed(input)
		done := make(chan struct{})
		go func() {
			defer close(done)
			_, _ = a.Compile(string(input))
		}()
		select {
		case <-done:
		case <-time.After(assembleTimeout):
			t.Fatalf("assembler hang detected: input (%d bytes): %q", len(input), truncateForLog(input, 200))
		}
	})
}

func truncateForLog(input []byte, maxLen int) []byte {
	if len(input) <= maxLen {
		return input
	}
	return append(input[:maxLen:maxLen], "..."...)
}
