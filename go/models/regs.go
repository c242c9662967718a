package models

import (
	"sort"

	"github.com/lunixbochs/fvbommel-util/sortorder"
)

type Reg struct {
	// register file, one of the cpu.REG_* values
	File int
	Enum int
	Name string
}

type RegVal struct {
	Reg
	Val uint64
	// shown in the default register view
	Default bool
}

// RegDumper is anything that can list its registers and their values.
type RegDumper interface {
	RegDump() []RegVal
	Bits() uint
}

type regList []RegVal

func (r regList) Len() int           { return len(r) }
func (r regList) Swap(i, j int)      { r[i], r[j] = r[j], r[i] }
func (r regList) Less(i, j int) bool { return sortorder.NaturalLess(r[i].Name, r[j].Name) }

// SortRegs orders registers by name, with numeric suffixes compared as
// numbers so x2 sorts before x10.
func SortRegs(regs []RegVal) []RegVal {
	out := append(regList(nil), regs...)
	sort.Sort(out)
	return out
}

// SortNames orders names the same way.
func SortNames(names []string) []string {
	out := append([]string(nil), names...)
	sort.Slice(out, func(i, j int) bool { return sortorder.NaturalLess(out[i], out[j]) })
	return out
}
