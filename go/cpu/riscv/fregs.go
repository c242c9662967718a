package riscv

import (
	"math"

	"github.com/rvcorn/rvcorn/go/models/cpu"
)

const (
	nanBox       = 0xffffffff00000000
	canonicalNaN = 0x7fc00000
)

// FRegs is the floating point register file. Cells are 64 bits wide and
// single precision values are NaN-boxed into the upper half.
type FRegs struct {
	*cpu.Regs
}

func NewFRegs() *FRegs {
	return &FRegs{cpu.NewRegs(64, cpu.REG_FLOAT, fregNames)}
}

// Bits32 unboxes a single precision value. A cell that is not properly
// NaN-boxed reads as the canonical NaN.
func (f *FRegs) Bits32(i uint8) uint32 {
	v := f.Get(int(i))
	if v&nanBox != nanBox {
		return canonicalNaN
	}
	return uint32(v)
}

func (f *FRegs) Float32(i uint8) float32 {
	return math.Float32frombits(f.Bits32(i))
}

func (f *FRegs) SetBits32(i uint8, v uint32) error {
	_, err := f.Update(int(i), nanBox|uint64(v))
	return err
}

func (f *FRegs) SetFloat32(i uint8, v float32) error {
	return f.SetBits32(i, math.Float32bits(v))
}

func (f *FRegs) Float64(i uint8) float64 {
	return math.Float64frombits(f.Get(int(i)))
}

func (f *FRegs) SetFloat64(i uint8, v float64) error {
	_, err := f.Update(int(i), math.Float64bits(v))
	return err
}
