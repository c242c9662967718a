package riscv

import (
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/rvcorn/rvcorn/go/models"
)

type Format int

const (
	FormatNone Format = iota
	FormatR
	FormatR4
	FormatI
	FormatIShift
	FormatLoad
	FormatS
	FormatB
	FormatU
	FormatJ
	FormatCSR
	FormatCSRI
	FormatFR
	FormatFR1 // one source, rm
	FormatAMO
	FormatLR
	FormatFence
)

// Definition describes one instruction. Template is 32 characters (spaces are
// ignored), most significant bit first: '0' and '1' must match, anything else
// is an operand bit.
type Definition struct {
	Name     string
	Usage    string
	Desc     string
	Format   Format
	Template string
	// 0 for both, otherwise the only XLEN this encoding exists in
	XLEN int
	// operands held in floating point registers: 1 rd, 2 rs1, 4 rs2
	FP   uint8
	Exec func(h *Hart, s *Statement) error

	mask  uint32
	match uint32
}

func (d *Definition) compile() error {
	bits := strings.Replace(d.Template, " ", "", -1)
	if len(bits) != 32 {
		return errors.Errorf("%s: template has %d bits", d.Name, len(bits))
	}
	d.mask, d.match = 0, 0
	for i, c := range bits {
		bit := uint32(1) << uint(31-i)
		switch c {
		case '0':
			d.mask |= bit
		case '1':
			d.mask |= bit
			d.match |= bit
		}
	}
	return nil
}

func (d *Definition) Matches(raw uint32) bool {
	return raw&d.mask == d.match
}

// Overlaps reports whether some encoding matches both d and o.
func (d *Definition) Overlaps(o *Definition) bool {
	return (d.match^o.match)&d.mask&o.mask == 0
}

// InstructionSet is the immutable decode table for one XLEN.
type InstructionSet struct {
	XLEN int
	defs []*Definition
	// indexed by the 7-bit major opcode
	byOpcode [128][]*Definition
	byName   map[string]*Definition
}

// NewInstructionSet compiles the catalog for xlen. Any two definitions that
// can match the same encoding are a configuration error.
func NewInstructionSet(xlen int) (*InstructionSet, error) {
	return NewInstructionSetFrom(xlen, Catalog())
}

func NewInstructionSetFrom(xlen int, catalog []*Definition) (*InstructionSet, error) {
	if xlen != 32 && xlen != 64 {
		return nil, models.NewConfigError("isa", "unsupported XLEN %d", xlen)
	}
	is := &InstructionSet{XLEN: xlen, byName: make(map[string]*Definition)}
	for _, tmpl := range catalog {
		if tmpl.XLEN != 0 && tmpl.XLEN != xlen {
			continue
		}
		d := *tmpl
		if err := d.compile(); err != nil {
			return nil, models.NewConfigError("isa", "%v", err)
		}
		if d.mask&0x7f != 0x7f {
			return nil, models.NewConfigError("isa", "%s does not fix its opcode", d.Name)
		}
		for _, other := range is.defs {
			if d.Overlaps(other) {
				return nil, models.NewConfigError("isa", "%s overlaps %s", d.Name, other.Name)
			}
		}
		def := &d
		is.defs = append(is.defs, def)
		is.byOpcode[def.match&0x7f] = append(is.byOpcode[def.match&0x7f], def)
		if _, ok := is.byName[def.Name]; !ok {
			is.byName[def.Name] = def
		}
	}
	return is, nil
}

// Decode returns the single definition matching raw.
func (is *InstructionSet) Decode(raw uint32) (*Definition, error) {
	for _, d := range is.byOpcode[raw&0x7f] {
		if d.Matches(raw) {
			return d, nil
		}
	}
	return nil, &Trap{Cause: CauseIllegal, Value: uint64(raw), Msg: "no instruction matches encoding"}
}

func (is *InstructionSet) Lookup(name string) *Definition {
	return is.byName[name]
}

// Definitions returns the definitions sorted by name.
func (is *InstructionSet) Definitions() []*Definition {
	out := append([]*Definition(nil), is.defs...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// NewStatement decodes raw as fetched from addr.
func (is *InstructionSet) NewStatement(addr uint64, raw uint32) (*Statement, error) {
	def, err := is.Decode(raw)
	if err != nil {
		return nil, err
	}
	s := &Statement{Addr: addr, Raw: raw, Def: def}
	s.extract()
	return s, nil
}
