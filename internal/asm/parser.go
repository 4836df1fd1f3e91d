package asm

import (
	"fmt"

	"asmbridge/internal/diag"
	"asmbridge/internal/source"
)

type stmtKind uint8

const (
	stmtEmpty stmtKind = iota // only labels, or nothing
	stmtInstr
	stmtDirective
	stmtConst
)

// term is one signed summand of an expression: a literal or a symbol.
type term struct {
	neg   bool
	sym   string // empty for literals
	value int64
	span  source.Span
}

// expr is a sum of terms, e.g. `table + 2 - base`.
type expr struct {
	terms []term
	span  source.Span
}

type operand struct {
	isReg bool
	reg   uint8
	isStr bool
	str   []byte
	expr  expr
	span  source.Span
}

type label struct {
	name string
	span source.Span
}

type stmt struct {
	labels   []label
	kind     stmtKind
	name     string // mnemonic, directive or constant name
	nameSpan source.Span
	operands []operand
	span     source.Span

	// filled by the layout pass
	addr uint32
	rule *Rule
	size uint32
}

// abandon keeps the labels of a broken statement so that later references
// to them do not cascade into undefined-symbol errors.
func (st *stmt) abandon() *stmt {
	st.kind = stmtEmpty
	st.operands = nil
	if len(st.labels) == 0 {
		return nil
	}
	return st
}

type parser struct {
	toks []token
	pos  int
	isa  *ISA
	rep  diag.Reporter
}

func parse(toks []token, isa *ISA, rep diag.Reporter) []*stmt {
	p := &parser{toks: toks, isa: isa, rep: rep}
	var out []*stmt
	for p.peek().kind != tokEOF {
		if st := p.parseLine(); st != nil {
			out = append(out, st)
		}
	}
	return out
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) peekN(n int) token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *parser) bump() token {
	tok := p.toks[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func atLineEnd(k tokenKind) bool { return k == tokNewline || k == tokEOF }

// skipLine drops the rest of the current line after a syntax error.
func (p *parser) skipLine() {
	for !atLineEnd(p.peek().kind) {
		p.pos++
	}
	if p.peek().kind == tokNewline {
		p.pos++
	}
}

// endLine expects the end of the statement.
func (p *parser) endLine() bool {
	tok := p.peek()
	if atLineEnd(tok.kind) {
		p.bump()
		return true
	}
	rest := tok.span
	for !atLineEnd(p.peek().kind) {
		rest = rest.Cover(p.bump().span)
	}
	p.bump()
	diag.ReportError(p.rep, diag.SynTrailingTokens, rest, "unexpected tokens at end of statement").Emit()
	return false
}

func (p *parser) parseLine() *stmt {
	st := &stmt{span: p.peek().span}

	for p.peek().kind == tokIdent && p.peekN(1).kind == tokColon {
		name := p.bump()
		colon := p.bump()
		st.labels = append(st.labels, label{name: name.text, span: name.span})
		st.span = st.span.Cover(colon.span)
	}

	tok := p.peek()
	switch {
	case atLineEnd(tok.kind):
		p.bump()
		if len(st.labels) == 0 {
			return nil
		}
		return st
	case tok.kind == tokIdent && p.peekN(1).kind == tokEquals:
		p.bump()
		p.bump()
		st.kind = stmtConst
		st.name, st.nameSpan = tok.text, tok.span
		e, ok := p.parseExpr()
		if !ok {
			p.skipLine()
			return st.abandon()
		}
		st.operands = []operand{{expr: e, span: e.span}}
	case tok.kind == tokDirective:
		p.bump()
		st.kind = stmtDirective
		st.name, st.nameSpan = tok.text, tok.span
		if !p.parseOperands(st, false) {
			return st.abandon()
		}
	case tok.kind == tokIdent:
		p.bump()
		st.kind = stmtInstr
		st.name, st.nameSpan = tok.text, tok.span
		if !p.parseOperands(st, true) {
			return st.abandon()
		}
	default:
		diag.ReportError(p.rep, diag.SynUnexpectedToken, tok.span,
			fmt.Sprintf("expected instruction, directive or label, found %s", tok.kind)).Emit()
		p.skipLine()
		return nil
	}

	for _, op := range st.operands {
		st.span = st.span.Cover(op.span)
	}
	st.span = st.span.Cover(st.nameSpan)
	p.endLine()
	return st
}

// parseOperands reads a comma separated operand list up to the end of line.
// It returns false when the line was abandoned after an error.
func (p *parser) parseOperands(st *stmt, allowRegs bool) bool {
	if atLineEnd(p.peek().kind) {
		return true
	}
	for {
		op, ok := p.parseOperand(allowRegs)
		if !ok {
			p.skipLine()
			return false
		}
		st.operands = append(st.operands, op)
		if p.peek().kind != tokComma {
			return true
		}
		comma := p.bump()
		if atLineEnd(p.peek().kind) {
			diag.ReportError(p.rep, diag.SynExpectOperand, comma.span, "expected operand after ','").Emit()
			p.skipLine()
			return false
		}
	}
}

func (p *parser) parseOperand(allowRegs bool) (operand, bool) {
	tok := p.peek()
	if tok.kind == tokString {
		p.bump()
		return operand{isStr: true, str: tok.str, span: tok.span}, true
	}
	if allowRegs && tok.kind == tokIdent && !isExprOp(p.peekN(1).kind) {
		if idx, ok := p.isa.Register(tok.text); ok {
			p.bump()
			return operand{isReg: true, reg: idx, span: tok.span}, true
		}
	}
	e, ok := p.parseExpr()
	if !ok {
		return operand{}, false
	}
	return operand{expr: e, span: e.span}, true
}

func isExprOp(k tokenKind) bool { return k == tokPlus || k == tokMinus }

func (p *parser) parseExpr() (expr, bool) {
	var e expr
	neg := false
	first := true
	for {
		tok := p.peek()
		switch {
		case tok.kind == tokMinus && first:
			// унарный минус у первого слагаемого
			p.bump()
			neg = true
			e.span = tok.span
			first = false
			continue
		case tok.kind == tokNumber:
			p.bump()
			e.terms = append(e.terms, term{neg: neg, value: tok.value, span: tok.span})
		case tok.kind == tokIdent:
			p.bump()
			e.terms = append(e.terms, term{neg: neg, sym: tok.text, span: tok.span})
		default:
			what := "value"
			if atLineEnd(tok.kind) {
				what = "value before end of line"
			}
			diag.ReportError(p.rep, diag.SynExpectValue, tok.span, fmt.Sprintf("expected %s, found %s", what, tok.kind)).Emit()
			return expr{}, false
		}
		if len(e.terms) == 1 && !neg {
			e.span = tok.span
		} else {
			e.span = e.span.Cover(tok.span)
		}
		first = false

		switch p.peek().kind {
		case tokPlus:
			p.bump()
			neg = false
		case tokMinus:
			p.bump()
			neg = true
		default:
			return e, true
		}
	}
}
