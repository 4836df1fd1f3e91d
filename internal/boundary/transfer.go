package boundary

import "unsafe"

// transfer is the ownership record of one output block. It is move-only:
// relinquish hands the block to the caller and empties the record, after
// which only reclaim can rebuild it from the pointer and length the caller
// gives back.
type transfer struct {
	ptr unsafe.Pointer
	len uintptr
	cap uintptr // allocated size, never below one byte
}

// allocSize is the size requested for a payload of n bytes. An empty
// program still gets a distinct non-NULL block.
func allocSize(n uintptr) uintptr { return max(n, 1) }

func newTransfer(alloc Allocator, payload []byte) (transfer, error) {
	n := uintptr(len(payload))
	p, err := alloc.Alloc(allocSize(n))
	if err != nil {
		return transfer{}, err
	}
	if n > 0 {
		copy(unsafe.Slice((*byte)(p), n), payload)
	}
	return transfer{ptr: p, len: n, cap: allocSize(n)}, nil
}

func (t *transfer) relinquish() (*byte, uintptr) {
	p, n := (*byte)(t.ptr), t.len
	*t = transfer{}
	return p, n
}

// reclaim rebuilds the record of a block previously relinquished.
func reclaim(p *byte, n uintptr) transfer {
	return transfer{ptr: unsafe.Pointer(p), len: n, cap: allocSize(n)}
}

func (t *transfer) free(alloc Allocator) {
	if t.ptr == nil {
		return
	}
	alloc.Free(t.ptr, t.cap)
	*t = transfer{}
}
