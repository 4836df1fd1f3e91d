package boundary

import "unsafe"

// Allocator owns the memory blocks handed across the boundary. Blocks must
// come from an allocator the foreign side cannot see moving, in practice
// the C heap (see internal/cmem).
type Allocator interface {
	// Alloc returns a block of at least n bytes, n >= 1.
	Alloc(n uintptr) (unsafe.Pointer, error)
	// Free releases a block obtained from Alloc; size is the requested size.
	Free(p unsafe.Pointer, size uintptr)
}
