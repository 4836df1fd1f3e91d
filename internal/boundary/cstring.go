package boundary

import (
	"unsafe"

	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

// borrowCString views the NUL-terminated bytes at p without copying.
// The slice is only valid while the caller keeps the buffer alive.
func borrowCString(p *byte) []byte {
	n := 0
	for *(*byte)(unsafe.Add(unsafe.Pointer(p), n)) != 0 {
		n++
	}
	return unsafe.Slice(p, n)
}

// decodeSource copies the borrowed source text into Go memory, rejecting
// anything that is not UTF-8. On failure it returns the byte offset of the
// first invalid sequence.
func decodeSource(p *byte) (string, int, error) {
	raw := borrowCString(p)
	out, n, err := transform.Bytes(encoding.UTF8Validator, raw)
	if err != nil {
		return "", n, err
	}
	return string(out), 0, nil
}
