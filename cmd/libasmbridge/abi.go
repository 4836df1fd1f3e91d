package main

/*
#include <stdlib.h>
#include <stdint.h>

typedef uint32_t AsmResult;
*/
import "C"

import (
	"unsafe"

	"asmbridge/internal/status"
)

// Helpers below drive the exported functions with C-typed arguments, the
// way a C caller does. _test.go files cannot use cgo, so they live here.

const sentinelLen = 0x5A5A

// abiCall is the observable outcome of one assemble_str_to_binary call.
type abiCall struct {
	code      status.Code
	out       []byte // copy of the transferred buffer on Ok
	untouched bool   // both provided slots still hold their sentinels
	freeCode  status.Code
}

// callAssemble passes src as a C string (NULL when src is nil). Slots that
// are provided start with sentinel values; an Ok result is copied and
// released with free_binary.
func callAssemble(src *string, withBin, withLen bool) abiCall {
	var csrc *C.char
	if src != nil {
		csrc = C.CString(*src)
		defer C.free(unsafe.Pointer(csrc))
	}

	sentinel := (*C.uchar)(C.malloc(1))
	defer C.free(unsafe.Pointer(sentinel))
	bin := sentinel
	n := C.size_t(sentinelLen)

	var binSlot **C.uchar
	var lenSlot *C.size_t
	if withBin {
		binSlot = &bin
	}
	if withLen {
		lenSlot = &n
	}

	res := abiCall{code: status.Code(assemble_str_to_binary(csrc, binSlot, lenSlot))}
	res.untouched = bin == sentinel && n == sentinelLen
	if res.code == status.Ok {
		res.out = C.GoBytes(unsafe.Pointer(bin), C.int(n))
		res.freeCode = status.Code(free_binary(bin, n))
	}
	return res
}

// callFreeNull calls free_binary with a NULL pointer.
func callFreeNull(n uint) status.Code {
	return status.Code(free_binary(nil, C.size_t(n)))
}

// resultName returns asm_result_name(code) as a Go string.
func resultName(code uint32) string {
	return C.GoString(asm_result_name(C.AsmResult(code)))
}

// guarded runs fn behind the same panic barrier as the exports.
func guarded(fn func() status.Code) status.Code {
	return status.Code(guard(fn))
}
