// Package boundary implements the two operations exported to C callers:
// assembling a NUL-terminated source string into a heap block the caller
// owns, and releasing that block again.
//
// Ownership of an output block moves through four states:
//
//	unowned -> engine-owned -> transferred -> released
//
// The engine owns its result slice until Assemble copies it into a block
// from the Allocator and writes both out-slots; from then on the caller owns
// the block until it passes it back to Free. Out-slots are checked before
// anything is allocated, so a missing slot never leaks a block.
package boundary

import (
	"fmt"

	"github.com/rs/zerolog"

	"asmbridge/internal/engine"
	"asmbridge/internal/sink"
	"asmbridge/internal/status"
)

// Boundary is immutable after New and safe for concurrent use as long as
// its engine, allocator and sink are.
type Boundary struct {
	engine engine.Engine
	alloc  Allocator
	sink   sink.Sink
	log    zerolog.Logger
}

// Option configures a Boundary.
type Option func(*Boundary)

// WithSink replaces the default stderr sink.
func WithSink(s sink.Sink) Option {
	return func(b *Boundary) {
		if s != nil {
			b.sink = s
		}
	}
}

// WithLogger sets the logger for transfer and contract-violation events.
func WithLogger(l zerolog.Logger) Option {
	return func(b *Boundary) { b.log = l }
}

// New binds an engine to the allocator that owns transferred buffers.
// Diagnostics go to stderr and logging is off unless options say otherwise.
func New(e engine.Engine, alloc Allocator, opts ...Option) *Boundary {
	b := &Boundary{
		engine: e,
		alloc:  alloc,
		sink:   sink.Stderr(),
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Assemble compiles the NUL-terminated text at assembly. On Ok it stores a
// new block and its length in *binary and *binaryLen; on any other result
// neither slot is written. Diagnostics are printed through the sink whenever
// the report has errors.
func (b *Boundary) Assemble(assembly *byte, binary **byte, binaryLen *uintptr) (code status.Code) {
	defer b.recoverInto(&code, "assemble")

	if assembly == nil {
		b.violation(status.NullAssembly)
		return status.NullAssembly
	}
	text, bad, err := decodeSource(assembly)
	if err != nil {
		b.log.Warn().Err(err).Int("offset", bad).Msg("source text is not valid UTF-8")
		return status.InvalidEncoding
	}

	out, report := b.engine.Compile(text)
	if report != nil && report.HasErrors() {
		b.sink.Diagnostics(report, text)
	}
	if out == nil {
		b.log.Debug().Int("source_len", len(text)).Msg("assembly failed")
		return status.Failed
	}

	// слоты проверяются до выделения памяти
	switch {
	case binary == nil:
		b.violation(status.NullBinary)
		return status.NullBinary
	case binaryLen == nil:
		b.violation(status.NullBinaryLen)
		return status.NullBinaryLen
	}

	t, err := newTransfer(b.alloc, out)
	if err != nil {
		b.log.Error().Err(err).Int("len", len(out)).Msg("failed to allocate output block")
		return status.Failed
	}
	*binary, *binaryLen = t.relinquish()
	b.log.Debug().Uint64("len", uint64(*binaryLen)).Msg("binary transferred")
	return status.Ok
}

// Free releases a block returned by Assemble. n must be the length that
// Assemble reported. Double frees and foreign pointers are not detected.
func (b *Boundary) Free(binary *byte, n uintptr) (code status.Code) {
	defer b.recoverInto(&code, "free")

	if binary == nil {
		b.violation(status.NullBinary)
		return status.NullBinary
	}
	t := reclaim(binary, n)
	t.free(b.alloc)
	b.log.Debug().Uint64("len", uint64(n)).Msg("binary released")
	return status.Ok
}

func (b *Boundary) violation(code status.Code) {
	b.log.Warn().Stringer("result", code).Msg("caller contract violation")
}

// recoverInto keeps a Go panic from unwinding into the foreign caller.
func (b *Boundary) recoverInto(code *status.Code, op string) {
	r := recover()
	if r == nil {
		return
	}
	b.log.Error().Str("op", op).Err(fmt.Errorf("panic: %v", r)).Msg("recovered panic at boundary")
	*code = status.Failed
}
