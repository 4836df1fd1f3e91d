package asm

import (
	"fmt"
	"math/bits"
	"strings"

	"asmbridge/internal/diag"
	"asmbridge/internal/source"
)

type symKind uint8

const (
	symLabel symKind = iota
	symConst
)

type symbol struct {
	name string
	kind symKind
	span source.Span

	def *stmt // constant definition

	placed   bool // label address is known
	resolved bool // constant value is known
	visiting bool
	value    int64
	used     bool
}

// assembler holds the state of one compilation. Both passes walk the same
// statement list; the layout pass assigns addresses and sizes, the emit pass
// writes bytes.
type assembler struct {
	isa     *ISA
	file    *source.File
	rep     diag.Reporter
	limit   uint64
	symbols map[string]*symbol
	order   []*symbol

	tooLarge bool
}

func newAssembler(isa *ISA, file *source.File, rep diag.Reporter, limit uint64) *assembler {
	if limit == 0 || limit > isa.MaxSize() {
		limit = isa.MaxSize()
	}
	return &assembler{
		isa:     isa,
		file:    file,
		rep:     rep,
		limit:   limit,
		symbols: make(map[string]*symbol),
	}
}

func (a *assembler) run(warnUnused bool) []byte {
	toks := newLexer(a.file, a.rep).all()
	stmts := parse(toks, a.isa, a.rep)

	a.declare(stmts)
	end := a.place(stmts)
	var out []byte
	if !a.tooLarge {
		out = a.emit(stmts, end)
	}

	for _, sym := range a.order {
		if sym.kind == symConst && !sym.resolved {
			a.evalConst(sym)
		}
	}
	if warnUnused {
		for _, sym := range a.order {
			if sym.kind == symLabel && !sym.used {
				diag.ReportWarning(a.rep, diag.SemaUnusedLabel, sym.span,
					fmt.Sprintf("label '%s' is never used", sym.name)).Emit()
			}
		}
	}
	return out
}

// declare registers every label and constant so that forward references
// resolve and duplicates are reported at the second definition.
func (a *assembler) declare(stmts []*stmt) {
	define := func(name string, sp source.Span, kind symKind, def *stmt) {
		if prev, ok := a.symbols[name]; ok {
			diag.ReportError(a.rep, diag.SemaDuplicateSymbol, sp,
				fmt.Sprintf("symbol '%s' is already defined", name)).
				WithNote(prev.span, "previous definition is here").Emit()
			return
		}
		if _, isReg := a.isa.Register(name); isReg {
			diag.ReportError(a.rep, diag.SemaDuplicateSymbol, sp,
				fmt.Sprintf("'%s' is a register name and cannot be redefined", name)).Emit()
			return
		}
		sym := &symbol{name: name, kind: kind, span: sp, def: def}
		a.symbols[name] = sym
		a.order = append(a.order, sym)
	}
	for _, st := range stmts {
		for _, l := range st.labels {
			define(l.name, l.span, symLabel, nil)
		}
		if st.kind == stmtConst {
			define(st.name, st.nameSpan, symConst, st)
		}
	}
}

// place is the layout pass. It returns the final program size.
func (a *assembler) place(stmts []*stmt) uint64 {
	var pc uint64
	for _, st := range stmts {
		for _, l := range st.labels {
			if sym := a.symbols[l.name]; sym != nil && sym.kind == symLabel && sym.span == l.span {
				sym.placed = true
				sym.value = int64(pc) // #nosec G115 -- pc never exceeds the address space
			}
		}
		st.addr = uint32(pc) // #nosec G115 -- checked against limit below

		var size uint64
		switch st.kind {
		case stmtInstr:
			if st.rule = a.match(st); st.rule != nil {
				size = uint64(st.rule.Size())
			}
		case stmtDirective:
			size = a.directiveSize(st, pc)
		}
		if pc+size > a.limit {
			diag.ReportError(a.rep, diag.SemaProgramTooLarge, st.span,
				fmt.Sprintf("program exceeds the %d byte address space of %s", a.limit, a.isa.Name)).Emit()
			a.tooLarge = true
			return pc
		}
		st.size = uint32(size) // #nosec G115 -- bounded by limit
		pc += size
	}
	return pc
}

// match selects the instruction form by operand count and register
// positions. Values are not needed, so sizes are known in the first pass.
func (a *assembler) match(st *stmt) *Rule {
	forms := a.isa.Forms(st.name)
	if len(forms) == 0 {
		diag.ReportError(a.rep, diag.SemaUnknownMnemonic, st.nameSpan,
			fmt.Sprintf("unknown mnemonic '%s'", st.name)).Emit()
		return nil
	}
	for i, op := range st.operands {
		if op.isStr {
			diag.ReportError(a.rep, diag.SemaOperandKind, op.span,
				fmt.Sprintf("operand %d of '%s' cannot be a string", i+1, st.name)).Emit()
			return nil
		}
	}

	var sameCount []*Rule
	for _, r := range forms {
		if len(r.Operands) == len(st.operands) {
			sameCount = append(sameCount, r)
		}
	}
	if len(sameCount) == 0 {
		diag.ReportError(a.rep, diag.SemaOperandCount, st.span,
			fmt.Sprintf("'%s' expects %s, got %d", st.name, expectedCounts(forms), len(st.operands))).Emit()
		return nil
	}

	for _, r := range sameCount {
		if shapeMatches(r, st.operands) {
			return r
		}
	}

	r := sameCount[0]
	for i, op := range st.operands {
		want := r.Operands[i] == OpReg
		if op.isReg == want {
			continue
		}
		msg := fmt.Sprintf("operand %d of '%s' must be a register", i+1, st.name)
		if !want {
			msg = fmt.Sprintf("operand %d of '%s' must be a value, not a register", i+1, st.name)
		}
		b := diag.ReportError(a.rep, diag.SemaOperandKind, op.span, msg)
		if len(forms) > 1 {
			b.WithNote(st.nameSpan, "accepted forms: "+describeForms(forms))
		}
		b.Emit()
		break
	}
	return nil
}

func shapeMatches(r *Rule, ops []operand) bool {
	for i, k := range r.Operands {
		if (k == OpReg) != ops[i].isReg {
			return false
		}
	}
	return true
}

func expectedCounts(forms []*Rule) string {
	seen := make(map[int]bool)
	var counts []string
	for _, r := range forms {
		n := len(r.Operands)
		if seen[n] {
			continue
		}
		seen[n] = true
		counts = append(counts, fmt.Sprint(n))
	}
	noun := "operands"
	if len(counts) == 1 && counts[0] == "1" {
		noun = "operand"
	}
	return strings.Join(counts, " or ") + " " + noun
}

func describeForms(forms []*Rule) string {
	parts := make([]string, 0, len(forms))
	for _, r := range forms {
		kinds := make([]string, len(r.Operands))
		for i, k := range r.Operands {
			kinds[i] = k.String()
		}
		parts = append(parts, strings.TrimSpace(r.Mnemonic+" "+strings.Join(kinds, ", ")))
	}
	return strings.Join(parts, "; ")
}

func (a *assembler) directiveSize(st *stmt, pc uint64) uint64 {
	switch st.name {
	case "d8", "db":
		var n uint64
		for _, op := range st.operands {
			if op.isStr {
				n += uint64(len(op.str))
			} else {
				n++
			}
		}
		return n
	case "d16", "dw":
		for _, op := range st.operands {
			if op.isStr {
				diag.ReportError(a.rep, diag.SemaOperandKind, op.span, "#d16 does not accept strings").Emit()
				return 0
			}
		}
		return 2 * uint64(len(st.operands))
	case "str":
		var n uint64
		for _, op := range st.operands {
			if !op.isStr {
				diag.ReportError(a.rep, diag.SynExpectString, op.span, "#str expects string literals").Emit()
				continue
			}
			n += uint64(len(op.str)) + 1
		}
		return n
	case "align":
		v, ok := a.layoutValue(st)
		if !ok {
			return 0
		}
		if v <= 0 || bits.OnesCount64(uint64(v)) != 1 {
			diag.ReportError(a.rep, diag.SemaBadAlignment, st.operands[0].span,
				fmt.Sprintf("alignment must be a positive power of two, got %d", v)).Emit()
			return 0
		}
		align := uint64(v)
		return (align - pc%align) % align
	case "org":
		v, ok := a.layoutValue(st)
		if !ok {
			return 0
		}
		if v < 0 || uint64(v) < pc {
			diag.ReportError(a.rep, diag.SemaOriginBackward, st.operands[0].span,
				fmt.Sprintf("#org %d would move backward from address %d", v, pc)).Emit()
			return 0
		}
		return uint64(v) - pc
	case "res":
		v, ok := a.layoutValue(st)
		if !ok {
			return 0
		}
		if v < 0 {
			diag.ReportError(a.rep, diag.SemaValueOutOfRange, st.operands[0].span,
				fmt.Sprintf("#res size must not be negative, got %d", v)).Emit()
			return 0
		}
		return uint64(v)
	}
	diag.ReportError(a.rep, diag.SynUnknownDirective, st.nameSpan,
		fmt.Sprintf("unknown directive '#%s'", st.name)).Emit()
	return 0
}

// layoutValue evaluates the single operand of #org, #align and #res. It
// must not depend on labels that come later in the program.
func (a *assembler) layoutValue(st *stmt) (int64, bool) {
	if len(st.operands) != 1 {
		diag.ReportError(a.rep, diag.SemaOperandCount, st.span,
			fmt.Sprintf("#%s expects 1 operand, got %d", st.name, len(st.operands))).Emit()
		return 0, false
	}
	op := st.operands[0]
	if op.isStr {
		diag.ReportError(a.rep, diag.SemaOperandKind, op.span,
			fmt.Sprintf("#%s expects a number", st.name)).Emit()
		return 0, false
	}
	return a.eval(op.expr)
}

func (a *assembler) eval(e expr) (int64, bool) {
	var sum int64
	ok := true
	for _, t := range e.terms {
		v := t.value
		if t.sym != "" {
			var good bool
			v, good = a.lookup(t)
			if !good {
				ok = false
				continue
			}
		}
		if t.neg {
			v = -v
		}
		sum += v
	}
	return sum, ok
}

func (a *assembler) lookup(t term) (int64, bool) {
	sym, found := a.symbols[t.sym]
	if !found {
		diag.ReportError(a.rep, diag.SemaUndefinedSymbol, t.span,
			fmt.Sprintf("undefined symbol '%s'", t.sym)).Emit()
		return 0, false
	}
	sym.used = true
	switch sym.kind {
	case symLabel:
		if !sym.placed {
			diag.ReportError(a.rep, diag.SemaUndefinedSymbol, t.span,
				fmt.Sprintf("label '%s' is used before its address is known", t.sym)).
				WithNote(sym.span, "label is defined here").Emit()
			return 0, false
		}
		return sym.value, true
	default:
		return a.evalConst(sym)
	}
}

func (a *assembler) evalConst(sym *symbol) (int64, bool) {
	if sym.resolved {
		return sym.value, true
	}
	if sym.visiting {
		diag.ReportError(a.rep, diag.SemaUndefinedSymbol, sym.span,
			fmt.Sprintf("constant '%s' depends on itself", sym.name)).Emit()
		return 0, false
	}
	if len(sym.def.operands) == 0 {
		return 0, false
	}
	sym.visiting = true
	v, ok := a.eval(sym.def.operands[0].expr)
	sym.visiting = false
	if ok {
		sym.value = v
		sym.resolved = true
	}
	return v, ok
}

// emit is the second pass. It returns nil when nothing can be produced.
func (a *assembler) emit(stmts []*stmt, end uint64) []byte {
	out := make([]byte, end)
	for _, st := range stmts {
		if uint64(st.addr)+uint64(st.size) > end {
			continue
		}
		buf := out[st.addr : st.addr+st.size]
		switch st.kind {
		case stmtInstr:
			if st.rule != nil && len(buf) == int(st.rule.Size()) {
				a.encode(st, buf)
			}
		case stmtDirective:
			a.data(st, buf)
		}
	}
	return out
}

func (a *assembler) encode(st *stmt, buf []byte) {
	n := copy(buf, st.rule.Opcode)
	next := int64(st.addr) + int64(st.size)
	for i, kind := range st.rule.Operands {
		op := st.operands[i]
		switch kind {
		case OpReg:
			buf[n] = op.reg
		case OpImm8:
			if v, ok := a.eval(op.expr); ok && a.fits(v, 8, op.span) {
				buf[n] = byte(v)
			}
		case OpImm16:
			if v, ok := a.eval(op.expr); ok && a.fits(v, 16, op.span) {
				a.put16(buf[n:], v)
			}
		case OpRel8:
			if v, ok := a.eval(op.expr); ok {
				rel := v - next
				if rel < -128 || rel > 127 {
					diag.ReportError(a.rep, diag.SemaBranchOutOfRange, op.span,
						fmt.Sprintf("branch target is %d bytes away, must be within -128..127", rel)).Emit()
				} else {
					buf[n] = byte(int8(rel))
				}
			}
		}
		n += int(kind.Size())
	}
}

func (a *assembler) data(st *stmt, buf []byte) {
	switch st.name {
	case "d8", "db":
		n := 0
		for _, op := range st.operands {
			if op.isStr {
				n += copy(buf[n:], op.str)
				continue
			}
			if v, ok := a.eval(op.expr); ok && a.fits(v, 8, op.span) {
				buf[n] = byte(v)
			}
			n++
		}
	case "d16", "dw":
		if len(buf) != 2*len(st.operands) {
			return
		}
		for i, op := range st.operands {
			if v, ok := a.eval(op.expr); ok && a.fits(v, 16, op.span) {
				a.put16(buf[2*i:], v)
			}
		}
	case "str":
		n := 0
		for _, op := range st.operands {
			if op.isStr {
				n += copy(buf[n:], op.str)
				buf[n] = 0
				n++
			}
		}
	}
	// #org, #align and #res leave zero fill
}

// fits accepts both signed and unsigned readings of a width-bit value.
func (a *assembler) fits(v int64, width uint, sp source.Span) bool {
	lo := -(int64(1) << (width - 1))
	hi := int64(1)<<width - 1
	if v < lo || v > hi {
		diag.ReportError(a.rep, diag.SemaValueOutOfRange, sp,
			fmt.Sprintf("value %d does not fit in %d bits", v, width)).Emit()
		return false
	}
	return true
}

func (a *assembler) put16(buf []byte, v int64) {
	u := uint16(v) // #nosec G115 -- range checked by fits
	if a.isa.BigEndian {
		buf[0], buf[1] = byte(u>>8), byte(u)
		return
	}
	buf[0], buf[1] = byte(u), byte(u>>8)
}
