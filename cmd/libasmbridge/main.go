// Command libasmbridge is built with -buildmode=c-shared and exports the
// C API declared in libasmbridge.h:
//
//	go build -buildmode=c-shared -o libasmbridge.so ./cmd/libasmbridge
//
// Configuration is read once, on the first call, from the file named by
// ASMBRIDGE_CONFIG plus environment overrides.
package main

/*
#include <stddef.h>
#include <stdint.h>

typedef uint32_t AsmResult;
*/
import "C"

import (
	"fmt"
	"os"
	"sync"
	"unsafe"

	"github.com/rs/zerolog"

	"asmbridge/internal/asm"
	"asmbridge/internal/boundary"
	"asmbridge/internal/cmem"
	"asmbridge/internal/config"
	"asmbridge/internal/diagfmt"
	"asmbridge/internal/logging"
	"asmbridge/internal/sink"
	"asmbridge/internal/status"
)

var (
	bridgeOnce sync.Once
	bridge     *boundary.Boundary
	heap       cmem.Heap

	resultNames []*C.char // never freed
	unknownName *C.char
)

func init() {
	for _, code := range status.All() {
		resultNames = append(resultNames, C.CString(code.String()))
	}
	unknownName = C.CString(status.Code(^uint32(0)).String())
}

func instance() *boundary.Boundary {
	bridgeOnce.Do(func() { bridge = newBridge() })
	return bridge
}

// newBridge never fails: broken configuration is reported on stderr and
// replaced by defaults.
func newBridge() *boundary.Boundary {
	cfg, cfgErr := config.FromEnv()
	if cfgErr != nil {
		cfg = config.Default()
	}
	log, err := logging.New(logging.Options{App: "libasmbridge", Level: cfg.Log.Level})
	if err != nil {
		log = zerolog.Nop()
	}
	if cfgErr != nil {
		fmt.Fprintf(os.Stderr, "asmbridge: ignoring configuration: %v\n", cfgErr)
		log.Error().Err(cfgErr).Msg("invalid configuration, using defaults")
	}

	opts, err := cfg.AssemblerOptions(config.StderrIsTerminal)
	if err != nil {
		fmt.Fprintf(os.Stderr, "asmbridge: %v\n", err)
		log.Error().Err(err).Msg("falling back to the built-in ISA")
		opts = asm.Options{MaxDiagnostics: cfg.Diagnostics.Max}
	}

	var out sink.Sink = &sink.WriterSink{
		W: os.Stderr,
		OnError: func(err error) {
			log.Warn().Err(err).Msg("failed to print diagnostics")
		},
	}
	if opts.Render.Format == diagfmt.FormatOff {
		out = sink.NopSink{}
	}

	eng := asm.New(opts)
	log.Debug().Str("isa", eng.ISA().Name).Str("format", opts.Render.Format.String()).Msg("initialized")
	return boundary.New(eng, &heap, boundary.WithSink(out), boundary.WithLogger(log))
}

// guard keeps panics raised outside the boundary (during initialization)
// from crossing into C.
func guard(fn func() status.Code) (res C.AsmResult) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "asmbridge: internal error: %v\n", r)
			res = C.AsmResult(status.Failed)
		}
	}()
	return C.AsmResult(fn())
}

//export assemble_str_to_binary
func assemble_str_to_binary(assembly *C.char, binary **C.uchar, binaryLen *C.size_t) C.AsmResult {
	return guard(func() status.Code {
		return instance().Assemble(
			(*byte)(unsafe.Pointer(assembly)),
			(**byte)(unsafe.Pointer(binary)),
			(*uintptr)(unsafe.Pointer(binaryLen)),
		)
	})
}

//export free_binary
func free_binary(binary *C.uchar, binaryLen C.size_t) C.AsmResult {
	return guard(func() status.Code {
		return instance().Free((*byte)(unsafe.Pointer(binary)), uintptr(binaryLen))
	})
}

//export asm_result_name
func asm_result_name(code C.AsmResult) *C.char {
	if c := status.Code(code); c.Valid() {
		return resultNames[c]
	}
	return unknownName
}

func main() {}
