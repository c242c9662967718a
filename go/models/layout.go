package models

import (
	"sort"

	"github.com/rvcorn/rvcorn/go/models/cpu"
)

// MemoryConfig describes where the text, data and kernel segments live and the
// conventional pointers inside them.
type MemoryConfig struct {
	Name string

	TextBase  uint64
	TextLimit uint64 // address of the last text word

	DataBase      uint64
	StaticData    uint64 // start of .data
	GlobalPointer uint64
	HeapBase      uint64
	StackPointer  uint64
	DataLimit     uint64

	KernelBase  uint64
	MMIOBase    uint64
	KernelLimit uint64
}

var layouts = map[string]*MemoryConfig{
	"default": {
		Name:      "default",
		TextBase:  0x00400000,
		TextLimit: 0x0ffffffc,

		DataBase:      0x10000000,
		StaticData:    0x10010000,
		GlobalPointer: 0x10008000,
		HeapBase:      0x10040000,
		StackPointer:  0x7fffeffc,
		DataLimit:     0x7fffffff,

		KernelBase:  0x80000000,
		MMIOBase:    0xffff0000,
		KernelLimit: 0xffffffff,
	},
	"compact-data": {
		Name:      "compact-data",
		TextBase:  0x3000,
		TextLimit: 0x3ffc,

		DataBase:      0x0000,
		StaticData:    0x0000,
		GlobalPointer: 0x1800,
		HeapBase:      0x2000,
		StackPointer:  0x2ffc,
		DataLimit:     0x2fff,

		KernelBase:  0x4000,
		MMIOBase:    0x7f00,
		KernelLimit: 0x7fff,
	},
	"compact-text": {
		Name:      "compact-text",
		TextBase:  0x0000,
		TextLimit: 0x0ffc,

		DataBase:      0x1000,
		StaticData:    0x2000,
		GlobalPointer: 0x1800,
		HeapBase:      0x3000,
		StackPointer:  0x3ffc,
		DataLimit:     0x3fff,

		KernelBase:  0x4000,
		MMIOBase:    0x7f00,
		KernelLimit: 0x7fff,
	},
}

func DefaultLayout() *MemoryConfig {
	l := *layouts["default"]
	return &l
}

// Layout returns a copy of a named preset.
func Layout(name string) (*MemoryConfig, error) {
	l, ok := layouts[name]
	if !ok {
		return nil, NewConfigError("memory", "unknown layout %q", name)
	}
	tmp := *l
	return &tmp, nil
}

func LayoutNames() []string {
	var names []string
	for name := range layouts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Segments builds the segment table. Text is only writable with selfModifying set.
func (m *MemoryConfig) Segments(selfModifying bool) []*cpu.Segment {
	textProt := cpu.PROT_READ | cpu.PROT_EXEC
	if selfModifying {
		textProt |= cpu.PROT_WRITE
	}
	return []*cpu.Segment{
		{Name: "text", Base: m.TextBase, Limit: m.TextLimit + 3, Prot: textProt},
		{Name: "data", Base: m.DataBase, Limit: m.DataLimit, Prot: cpu.PROT_READ | cpu.PROT_WRITE},
		{Name: "kernel", Base: m.KernelBase, Limit: m.KernelLimit, Prot: cpu.PROT_READ | cpu.PROT_WRITE},
	}
}

// InText reports whether addr is a valid instruction address.
func (m *MemoryConfig) InText(addr uint64) bool {
	return addr >= m.TextBase && addr <= m.TextLimit
}
