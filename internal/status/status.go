// Package status defines the closed set of outcome codes returned by every
// boundary operation. The numeric values are part of the C ABI (AsmResult)
// and must never be renumbered.
package status

import "fmt"

// Code is the outcome of a boundary call. It mirrors the C typedef
// `typedef uint32_t AsmResult`.
type Code uint32

const (
	// Ok means the call succeeded and its outputs were delivered.
	Ok Code = 0
	// Failed means the call ran but produced no output.
	Failed Code = 1
	// NullAssembly: the source text pointer was NULL.
	NullAssembly Code = 2
	// NullBinary: the binary pointer (or the out-slot for it) was NULL.
	NullBinary Code = 3
	// NullBinaryLen: the out-slot for the binary length was NULL.
	NullBinaryLen Code = 4
	// InvalidEncoding: the source text is not valid UTF-8.
	InvalidEncoding Code = 5
)

var names = [...]string{
	Ok:              "Ok",
	Failed:          "Failed",
	NullAssembly:    "NullAssembly",
	NullBinary:      "NullBinary",
	NullBinaryLen:   "NullBinaryLen",
	InvalidEncoding: "InvalidEncoding",
}

// All lists every defined code in numeric order.
func All() []Code {
	return []Code{Ok, Failed, NullAssembly, NullBinary, NullBinaryLen, InvalidEncoding}
}

// Valid reports whether c belongs to the closed set.
func (c Code) Valid() bool {
	return int(c) < len(names)
}

// IsContractViolation reports whether the caller broke an argument contract.
func (c Code) IsContractViolation() bool {
	return c >= NullAssembly && c <= InvalidEncoding
}

func (c Code) String() string {
	if !c.Valid() {
		return "Unknown"
	}
	return names[c]
}

// Err converts a non-Ok code into an error, nil for Ok.
func (c Code) Err() error {
	if c == Ok {
		return nil
	}
	return fmt.Errorf("asm result %d (%s)", uint32(c), c)
}
