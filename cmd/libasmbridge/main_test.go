package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"asmbridge/internal/config"
	"asmbridge/internal/status"
)

func TestNewBridgeFallsBackOnBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "asmbridge.toml")
	if err := os.WriteFile(path, []byte("[diagnostics]\nformat = \"xml\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(config.EnvConfig, path)

	b := newBridge()
	src := append([]byte("nop"), 0)
	var bin *byte
	var n uintptr
	if got := b.Assemble(&src[0], &bin, &n); got != status.Ok {
		t.Fatalf("Assemble = %v", got)
	}
	if n != 1 || *bin != 0x00 {
		t.Errorf("got len %d", n)
	}
	if heap.Live() != 1 {
		t.Errorf("live blocks = %d", heap.Live())
	}
	if got := b.Free(bin, n); got != status.Ok {
		t.Fatalf("Free = %v", got)
	}
	if heap.Live() != 0 {
		t.Errorf("live blocks after free = %d", heap.Live())
	}
}

func strPtr(s string) *string { return &s }

func TestExportedAssemble(t *testing.T) {
	t.Setenv(config.EnvConfig, "")
	tests := []struct {
		name      string
		src       *string
		withBin   bool
		withLen   bool
		want      status.Code
		out       []byte
		untouched bool
	}{
		{name: "nop", src: strPtr("nop"), withBin: true, withLen: true, want: status.Ok, out: []byte{0x00}},
		{name: "empty program", src: strPtr(""), withBin: true, withLen: true, want: status.Ok, out: []byte{}},
		{name: "null source", withBin: true, withLen: true, want: status.NullAssembly, untouched: true},
		{name: "null source and slots", want: status.NullAssembly, untouched: true},
		{name: "failed keeps slots", src: strPtr("foo r1"), withBin: true, withLen: true, want: status.Failed, untouched: true},
		{name: "failed without slots", src: strPtr("foo r1"), want: status.Failed, untouched: true},
		{name: "null binary slot", src: strPtr("nop"), withLen: true, want: status.NullBinary, untouched: true},
		{name: "null length slot", src: strPtr("nop"), withBin: true, want: status.NullBinaryLen, untouched: true},
		{name: "invalid encoding", src: strPtr("nop\xff"), withBin: true, withLen: true, want: status.InvalidEncoding, untouched: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := callAssemble(tt.src, tt.withBin, tt.withLen)
			if got.code != tt.want {
				t.Fatalf("code = %s, want %s", got.code, tt.want)
			}
			if got.code == status.Ok {
				if !bytes.Equal(got.out, tt.out) {
					t.Errorf("out = % X, want % X", got.out, tt.out)
				}
				if got.freeCode != status.Ok {
					t.Errorf("free_binary = %s", got.freeCode)
				}
			} else if got.untouched != tt.untouched {
				t.Errorf("slots untouched = %v, want %v", got.untouched, tt.untouched)
			}
			if live := heap.Live(); live != 0 {
				t.Errorf("live C blocks = %d", live)
			}
		})
	}
}

func TestExportedFreeNull(t *testing.T) {
	for _, n := range []uint{0, 1, 64} {
		if got := callFreeNull(n); got != status.NullBinary {
			t.Errorf("free_binary(NULL, %d) = %s", n, got)
		}
	}
}

func TestExportedResultName(t *testing.T) {
	want := []string{"Ok", "Failed", "NullAssembly", "NullBinary", "NullBinaryLen", "InvalidEncoding"}
	for code, name := range want {
		if got := resultName(uint32(code)); got != name {
			t.Errorf("asm_result_name(%d) = %q, want %q", code, got, name)
		}
	}
	if got := resultName(uint32(len(want))); got != "Unknown" {
		t.Errorf("out of range name = %q", got)
	}
}

func TestGuardRecoversPanic(t *testing.T) {
	got := guarded(func() status.Code { panic("boom") })
	if got != status.Failed {
		t.Fatalf("guard = %s, want Failed", got)
	}
	if got := guarded(func() status.Code { return status.NullBinaryLen }); got != status.NullBinaryLen {
		t.Errorf("guard passthrough = %s", got)
	}
}
