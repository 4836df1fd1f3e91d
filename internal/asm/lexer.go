package asm

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"fortio.org/safecast"

	"asmbridge/internal/diag"
	"asmbridge/internal/source"
)

type tokenKind uint8

const (
	tokEOF tokenKind = iota
	tokNewline
	tokIdent
	tokDirective // #name
	tokNumber
	tokString
	tokComma
	tokColon
	tokEquals
	tokPlus
	tokMinus
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of input"
	case tokNewline:
		return "end of line"
	case tokIdent:
		return "identifier"
	case tokDirective:
		return "directive"
	case tokNumber:
		return "number"
	case tokString:
		return "string"
	case tokComma:
		return "','"
	case tokColon:
		return "':'"
	case tokEquals:
		return "'='"
	case tokPlus:
		return "'+'"
	case tokMinus:
		return "'-'"
	}
	return "token"
}

type token struct {
	kind  tokenKind
	span  source.Span
	text  string // identifier / directive name without '#'
	value int64  // tokNumber, also char literals
	str   []byte // tokString, unescaped
}

// lexer разбивает исходник на токены; ошибки уходят в Reporter,
// после ошибки лексер продолжает со следующего байта.
type lexer struct {
	file  *source.File
	off   uint32
	limit uint32
	rep   diag.Reporter
}

func newLexer(f *source.File, rep diag.Reporter) *lexer {
	limit, err := safecast.Conv[uint32](len(f.Content))
	if err != nil {
		panic(fmt.Errorf("len file content overflow: %w", err))
	}
	return &lexer{file: f, limit: limit, rep: rep}
}

func (lx *lexer) eof() bool { return lx.off >= lx.limit }

func (lx *lexer) peek() byte {
	if lx.eof() {
		return 0
	}
	return lx.file.Content[lx.off]
}

func (lx *lexer) peekAt(n uint32) byte {
	if lx.off+n >= lx.limit {
		return 0
	}
	return lx.file.Content[lx.off+n]
}

func (lx *lexer) span(start uint32) source.Span {
	return source.Span{File: lx.file.ID, Start: start, End: lx.off}
}

// all returns every token including a trailing tokEOF.
func (lx *lexer) all() []token {
	var out []token
	for {
		tok := lx.next()
		out = append(out, tok)
		if tok.kind == tokEOF {
			return out
		}
	}
}

func (lx *lexer) next() token {
	lx.skipTrivia()
	start := lx.off
	if lx.eof() {
		return token{kind: tokEOF, span: lx.span(start)}
	}

	c := lx.peek()
	switch {
	case c == '\n':
		lx.off++
		return token{kind: tokNewline, span: lx.span(start)}
	case c == ',':
		lx.off++
		return token{kind: tokComma, span: lx.span(start)}
	case c == ':':
		lx.off++
		return token{kind: tokColon, span: lx.span(start)}
	case c == '=':
		lx.off++
		return token{kind: tokEquals, span: lx.span(start)}
	case c == '+':
		lx.off++
		return token{kind: tokPlus, span: lx.span(start)}
	case c == '-':
		lx.off++
		return token{kind: tokMinus, span: lx.span(start)}
	case c == '#' && isIdentStart(lx.peekAt(1)):
		lx.off++
		name := lx.scanWord()
		return token{kind: tokDirective, span: lx.span(start), text: strings.ToLower(name)}
	case isDigit(c):
		return lx.scanNumber()
	case isIdentStart(c):
		name := lx.scanWord()
		return token{kind: tokIdent, span: lx.span(start), text: name}
	case c == '"':
		return lx.scanString()
	case c == '\'':
		return lx.scanChar()
	}

	r, size := utf8.DecodeRune(lx.file.Content[lx.off:lx.limit])
	lx.off += uint32(size)
	diag.ReportError(lx.rep, diag.LexUnknownChar, lx.span(start), fmt.Sprintf("unexpected character %q", r)).Emit()
	return lx.next()
}

func (lx *lexer) skipTrivia() {
	for !lx.eof() {
		c := lx.peek()
		switch {
		case c == ' ' || c == '\t' || c == '\r':
			lx.off++
		case c == ';' || (c == '/' && lx.peekAt(1) == '/'):
			for !lx.eof() && lx.peek() != '\n' {
				lx.off++
			}
		default:
			return
		}
	}
}

func (lx *lexer) scanWord() string {
	start := lx.off
	for !lx.eof() && isIdentPart(lx.peek()) {
		lx.off++
	}
	return string(lx.file.Content[start:lx.off])
}

func (lx *lexer) scanNumber() token {
	start := lx.off
	text := lx.scanWord()
	sp := lx.span(start)

	digits := text
	// ведущий ноль без префикса: десятичное, не восьмеричное
	if len(digits) > 1 && digits[0] == '0' && isDigit(digits[1]) {
		digits = strings.TrimLeft(digits, "0")
		if digits == "" {
			digits = "0"
		}
	}
	v, err := strconv.ParseInt(digits, 0, 64)
	if err != nil {
		diag.ReportError(lx.rep, diag.LexBadNumber, sp, fmt.Sprintf("invalid number %q", text)).Emit()
		return token{kind: tokNumber, span: sp}
	}
	return token{kind: tokNumber, span: sp, value: v}
}

func (lx *lexer) scanString() token {
	start := lx.off
	lx.off++ // opening quote
	var out []byte
	for {
		if lx.eof() || lx.peek() == '\n' {
			diag.ReportError(lx.rep, diag.LexUnterminatedString, lx.span(start), "unterminated string literal").Emit()
			return token{kind: tokString, span: lx.span(start), str: out}
		}
		c := lx.peek()
		if c == '"' {
			lx.off++
			return token{kind: tokString, span: lx.span(start), str: out}
		}
		if c == '\\' {
			b, ok := lx.scanEscape()
			if ok {
				out = append(out, b)
			}
			continue
		}
		out = append(out, c)
		lx.off++
	}
}

func (lx *lexer) scanChar() token {
	start := lx.off
	lx.off++ // opening quote
	var v byte
	switch {
	case lx.eof() || lx.peek() == '\n' || lx.peek() == '\'':
		diag.ReportError(lx.rep, diag.LexUnterminatedChar, lx.span(start), "empty or unterminated character literal").Emit()
		if lx.peek() == '\'' {
			lx.off++
		}
		return token{kind: tokNumber, span: lx.span(start)}
	case lx.peek() == '\\':
		v, _ = lx.scanEscape()
	default:
		v = lx.peek()
		lx.off++
	}
	if lx.peek() != '\'' {
		diag.ReportError(lx.rep, diag.LexUnterminatedChar, lx.span(start), "unterminated character literal").Emit()
		return token{kind: tokNumber, span: lx.span(start), value: int64(v)}
	}
	lx.off++
	return token{kind: tokNumber, span: lx.span(start), value: int64(v)}
}

// scanEscape consumes a backslash sequence and returns the byte it denotes.
func (lx *lexer) scanEscape() (byte, bool) {
	start := lx.off
	lx.off++ // '\'
	if lx.eof() {
		diag.ReportError(lx.rep, diag.LexBadEscape, lx.span(start), "incomplete escape sequence").Emit()
		return 0, false
	}
	c := lx.peek()
	lx.off++
	switch c {
	case 'n':
		return '\n', true
	case 't':
		return '\t', true
	case 'r':
		return '\r', true
	case '0':
		return 0, true
	case '\\', '\'', '"':
		return c, true
	case 'x':
		hi, lo := lx.peek(), lx.peekAt(1)
		if isHex(hi) && isHex(lo) {
			lx.off += 2
			return hexVal(hi)<<4 | hexVal(lo), true
		}
	}
	diag.ReportError(lx.rep, diag.LexBadEscape, lx.span(start), fmt.Sprintf("unknown escape sequence \\%c", c)).Emit()
	return 0, false
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isHex(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func hexVal(c byte) byte {
	switch {
	case isDigit(c):
		return c - '0'
	case c >= 'a':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '.' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}
