package diag

import (
	"fmt"
)

type Code uint16

const (
	// Неизвестная ошибка
	UnknownCode Code = 0

	// Лексические
	LexInfo               Code = 1000
	LexUnknownChar        Code = 1001
	LexUnterminatedString Code = 1002
	LexUnterminatedChar   Code = 1003
	LexBadNumber          Code = 1004
	LexBadEscape          Code = 1005

	// Синтаксические
	SynInfo             Code = 2000
	SynUnexpectedToken  Code = 2001
	SynExpectOperand    Code = 2002
	SynExpectComma      Code = 2003
	SynUnknownDirective Code = 2004
	SynExpectString     Code = 2005
	SynExpectValue      Code = 2006
	SynTrailingTokens   Code = 2007

	// Ассемблирование
	SemaInfo             Code = 3000
	SemaUnknownMnemonic  Code = 3001
	SemaOperandCount     Code = 3002
	SemaOperandKind      Code = 3003
	SemaUndefinedSymbol  Code = 3004
	SemaDuplicateSymbol  Code = 3005
	SemaValueOutOfRange  Code = 3006
	SemaOriginBackward   Code = 3007
	SemaProgramTooLarge  Code = 3008
	SemaBadAlignment     Code = 3009
	SemaUnusedLabel      Code = 3010
	SemaBranchOutOfRange Code = 3011

	// Ошибки I/O
	IOLoadFileError    Code = 4001
	IOInvalidEncoding  Code = 4002
	IOWriteOutputError Code = 4003

	// Observability
	ObsInfo    Code = 6000
	ObsTimings Code = 6001
)

var codeDescription = map[Code]string{
	UnknownCode:           "Unknown error",
	LexInfo:               "Lexical information",
	LexUnknownChar:        "Unknown character",
	LexUnterminatedString: "Unterminated string",
	LexUnterminatedChar:   "Unterminated character literal",
	LexBadNumber:          "Bad number",
	LexBadEscape:          "Bad escape sequence",
	SynInfo:               "Syntax information",
	SynUnexpectedToken:    "Unexpected token",
	SynExpectOperand:      "Expected operand",
	SynExpectComma:        "Expected comma",
	SynUnknownDirective:   "Unknown directive",
	SynExpectString:       "Expected string literal",
	SynExpectValue:        "Expected value",
	SynTrailingTokens:     "Unexpected tokens at end of line",
	SemaInfo:              "Assembler information",
	SemaUnknownMnemonic:   "Unknown mnemonic",
	SemaOperandCount:      "Wrong number of operands",
	SemaOperandKind:       "Wrong operand kind",
	SemaUndefinedSymbol:   "Undefined symbol",
	SemaDuplicateSymbol:   "Duplicate symbol",
	SemaValueOutOfRange:   "Value out of range",
	SemaOriginBackward:    "Origin moves backward",
	SemaProgramTooLarge:   "Program too large",
	SemaBadAlignment:      "Invalid alignment",
	SemaUnusedLabel:       "Unused label",
	SemaBranchOutOfRange:  "Branch target out of range",
	IOLoadFileError:       "I/O load file error",
	IOInvalidEncoding:     "Invalid text encoding",
	IOWriteOutputError:    "I/O write output error",
	ObsInfo:               "Observability information",
	ObsTimings:            "Pipeline timings",
}

// ID returns the stable identifier, e.g. SEM3004.
func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("LEX%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("SYN%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("SEM%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("OBS%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
