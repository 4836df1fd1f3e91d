// Package diag defines the diagnostic model produced by the assembler engine.
//
// # Data model
//
// Diagnostic is the central record:
//
//   - Severity – Info, Warning or Error. Only errors make a report "have errors"
//     and only errors suppress assembler output.
//   - Code – compact numeric identifier (see codes.go) with a stable string ID
//     such as SEM3004.
//   - Message – short, actionable text.
//   - Primary – the byte span the finding points at.
//   - Notes – optional secondary spans, e.g. "first defined here".
//
// # Emitting diagnostics
//
// Assembler passes report through a Reporter so that emission is decoupled from
// storage. BagReporter stores into a Bag; DedupReporter drops repeats produced
// when both passes evaluate the same operand.
//
// Package diag does no rendering beyond the stable single-line FormatShort.
// Pretty and JSON output live in internal/diagfmt.
package diag
