package cmem

import (
	"testing"
	"unsafe"
)

func TestHeapRoundTrip(t *testing.T) {
	var h Heap
	p, err := h.Alloc(4)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if p == nil {
		t.Fatal("nil block")
	}
	buf := unsafe.Slice((*byte)(p), 4)
	copy(buf, []byte{1, 2, 3, 4})
	if buf[3] != 4 {
		t.Errorf("block content = % X", buf)
	}
	if h.Live() != 1 {
		t.Errorf("Live = %d", h.Live())
	}
	h.Free(p, 4)
	if h.Live() != 0 {
		t.Errorf("Live after free = %d", h.Live())
	}
}
