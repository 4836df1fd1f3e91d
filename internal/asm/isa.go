package asm

import (
	"crypto/sha256"
	"embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

//go:embed isa/*.toml
var builtinISAFS embed.FS

// DefaultISAName is the instruction set used when none is configured.
const DefaultISAName = "tiny8"

// OperandKind describes how an operand is encoded.
type OperandKind uint8

const (
	OpReg OperandKind = iota + 1
	OpImm8
	OpImm16
	OpRel8
)

func (k OperandKind) String() string {
	switch k {
	case OpReg:
		return "reg"
	case OpImm8:
		return "imm8"
	case OpImm16:
		return "imm16"
	case OpRel8:
		return "rel8"
	}
	return "unknown"
}

// Size returns the number of encoded bytes.
func (k OperandKind) Size() uint32 {
	if k == OpImm16 {
		return 2
	}
	return 1
}

func parseOperandKind(s string) (OperandKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "reg":
		return OpReg, nil
	case "imm8":
		return OpImm8, nil
	case "imm16":
		return OpImm16, nil
	case "rel8":
		return OpRel8, nil
	}
	return 0, fmt.Errorf("unknown operand kind %q", s)
}

// Rule is one encodable form of a mnemonic.
type Rule struct {
	Mnemonic string
	Opcode   []byte
	Operands []OperandKind
}

// Size is the encoded length of the instruction.
func (r *Rule) Size() uint32 {
	n := uint32(len(r.Opcode))
	for _, k := range r.Operands {
		n += k.Size()
	}
	return n
}

// ISA is a table-driven instruction set.
type ISA struct {
	Name        string
	AddressBits uint8
	BigEndian   bool
	Registers   []string

	rules    map[string][]*Rule // lower-case mnemonic -> forms
	order    []*Rule
	regIndex map[string]uint8
	digest   [32]byte
}

type isaFile struct {
	Name        string     `toml:"name"`
	AddressBits uint8      `toml:"address_bits"`
	Endian      string     `toml:"endian"`
	Registers   []string   `toml:"registers"`
	Instr       []ruleFile `toml:"instr"`
}

type ruleFile struct {
	Mnemonic string   `toml:"mnemonic"`
	Opcode   []int64  `toml:"opcode"`
	Operands []string `toml:"operands"`
}

// ParseISA decodes an ISA description from TOML.
func ParseISA(data []byte) (*ISA, error) {
	var raw isaFile
	meta, err := toml.Decode(string(data), &raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ISA TOML: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown ISA keys: %v", undecoded)
	}
	isa, err := raw.build()
	if err != nil {
		return nil, err
	}
	isa.digest = sha256.Sum256(data)
	return isa, nil
}

// LoadISA reads an ISA description from a TOML file.
func LoadISA(path string) (*ISA, error) {
	// #nosec G304 -- path comes from configuration
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ISA: %w", err)
	}
	isa, err := ParseISA(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return isa, nil
}

// BuiltinISA returns an embedded instruction set by name.
func BuiltinISA(name string) (*ISA, error) {
	data, err := builtinISAFS.ReadFile("isa/" + name + ".toml")
	if err != nil {
		return nil, fmt.Errorf("no built-in ISA %q", name)
	}
	return ParseISA(data)
}

// DefaultISA returns the built-in tiny8 instruction set.
func DefaultISA() *ISA {
	isa, err := BuiltinISA(DefaultISAName)
	if err != nil {
		// встроенный файл проверяется тестами
		panic(err)
	}
	return isa
}

// ResolveISA loads path when set, otherwise the default ISA.
func ResolveISA(path string) (*ISA, error) {
	if path == "" {
		return DefaultISA(), nil
	}
	if !strings.ContainsAny(path, `/\.`) {
		return BuiltinISA(path)
	}
	return LoadISA(path)
}

func (f *isaFile) build() (*ISA, error) {
	if strings.TrimSpace(f.Name) == "" {
		return nil, errors.New("ISA name is required")
	}
	isa := &ISA{
		Name:        f.Name,
		AddressBits: f.AddressBits,
		Registers:   f.Registers,
		rules:       make(map[string][]*Rule),
		regIndex:    make(map[string]uint8),
	}
	if isa.AddressBits == 0 {
		isa.AddressBits = 16
	}
	if isa.AddressBits > 32 {
		return nil, fmt.Errorf("address_bits %d exceeds 32", isa.AddressBits)
	}
	switch strings.ToLower(f.Endian) {
	case "", "little":
	case "big":
		isa.BigEndian = true
	default:
		return nil, fmt.Errorf("endian must be little or big, got %q", f.Endian)
	}

	if len(f.Registers) > 256 {
		return nil, fmt.Errorf("too many registers: %d", len(f.Registers))
	}
	for i, r := range f.Registers {
		key := strings.ToLower(r)
		if _, dup := isa.regIndex[key]; dup {
			return nil, fmt.Errorf("duplicate register %q", r)
		}
		isa.regIndex[key] = uint8(i)
	}

	for i, rf := range f.Instr {
		rule, err := rf.build()
		if err != nil {
			return nil, fmt.Errorf("instr #%d (%s): %w", i+1, rf.Mnemonic, err)
		}
		key := strings.ToLower(rule.Mnemonic)
		if _, isReg := isa.regIndex[key]; isReg {
			return nil, fmt.Errorf("instr #%d: mnemonic %q collides with a register", i+1, rule.Mnemonic)
		}
		for _, other := range isa.rules[key] {
			if sameShape(other.Operands, rule.Operands) {
				return nil, fmt.Errorf("instr #%d: duplicate form of %q", i+1, rule.Mnemonic)
			}
		}
		isa.rules[key] = append(isa.rules[key], rule)
		isa.order = append(isa.order, rule)
	}
	if len(isa.order) == 0 {
		return nil, errors.New("ISA defines no instructions")
	}
	return isa, nil
}

func (rf *ruleFile) build() (*Rule, error) {
	if strings.TrimSpace(rf.Mnemonic) == "" || !isIdentStart(rf.Mnemonic[0]) {
		return nil, fmt.Errorf("invalid mnemonic %q", rf.Mnemonic)
	}
	if len(rf.Opcode) == 0 {
		return nil, errors.New("opcode is empty")
	}
	rule := &Rule{Mnemonic: rf.Mnemonic, Opcode: make([]byte, len(rf.Opcode))}
	for i, b := range rf.Opcode {
		if b < 0 || b > 0xFF {
			return nil, fmt.Errorf("opcode byte %d out of range", b)
		}
		rule.Opcode[i] = byte(b)
	}
	for _, s := range rf.Operands {
		k, err := parseOperandKind(s)
		if err != nil {
			return nil, err
		}
		rule.Operands = append(rule.Operands, k)
	}
	return rule, nil
}

// sameShape reports whether two operand lists are indistinguishable at the
// syntax level: same count and registers in the same positions.
func sameShape(a, b []OperandKind) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if (a[i] == OpReg) != (b[i] == OpReg) {
			return false
		}
	}
	return true
}

// Register returns the index of a register name (case-insensitive).
func (isa *ISA) Register(name string) (uint8, bool) {
	idx, ok := isa.regIndex[strings.ToLower(name)]
	return idx, ok
}

// Forms returns all rules for a mnemonic (case-insensitive).
func (isa *ISA) Forms(mnemonic string) []*Rule {
	return isa.rules[strings.ToLower(mnemonic)]
}

// Rules returns every rule in declaration order.
func (isa *ISA) Rules() []*Rule {
	return isa.order
}

// MaxSize is the size of the address space in bytes.
func (isa *ISA) MaxSize() uint64 {
	return uint64(1) << isa.AddressBits
}

// Fingerprint identifies the ISA contents, for cache keys.
func (isa *ISA) Fingerprint() [32]byte {
	return isa.digest
}
