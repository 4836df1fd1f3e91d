// Package cmem allocates output blocks on the C heap so that foreign
// callers can hold them without interference from the Go garbage collector.
package cmem

/*
#include <stdlib.h>
*/
import "C"

import (
	"errors"
	"sync/atomic"
	"unsafe"
)

// ErrOutOfMemory is returned when malloc fails.
var ErrOutOfMemory = errors.New("cmem: malloc returned NULL")

// Heap is an allocator backed by malloc and free.
type Heap struct {
	live atomic.Int64
}

func (h *Heap) Alloc(n uintptr) (unsafe.Pointer, error) {
	p := C.malloc(C.size_t(n))
	if p == nil {
		return nil, ErrOutOfMemory
	}
	h.live.Add(1)
	return p, nil
}

func (h *Heap) Free(p unsafe.Pointer, _ uintptr) {
	C.free(p)
	h.live.Add(-1)
}

// Live is the number of blocks allocated and not yet freed.
func (h *Heap) Live() int64 {
	return h.live.Load()
}
