package riscv

import (
	"encoding/binary"
	"testing"

	"github.com/rvcorn/rvcorn/go/models"
	"github.com/rvcorn/rvcorn/go/models/cpu"
)

// minimal encoders, enough to build test programs

func rtype(f7, rs2, rs1, f3, rd, op uint32) uint32 {
	return f7<<25 | rs2<<20 | rs1<<15 | f3<<12 | rd<<7 | op
}

func itype(imm int32, rs1, f3, rd, op uint32) uint32 {
	return uint32(imm)<<20 | rs1<<15 | f3<<12 | rd<<7 | op
}

func stype(imm int32, rs2, rs1, f3, op uint32) uint32 {
	u := uint32(imm)
	return (u>>5&0x7f)<<25 | rs2<<20 | rs1<<15 | f3<<12 | (u&0x1f)<<7 | op
}

func btype(imm int32, rs2, rs1, f3 uint32) uint32 {
	u := uint32(imm)
	return (u>>12&1)<<31 | (u>>5&0x3f)<<25 | rs2<<20 | rs1<<15 | f3<<12 | (u>>1&0xf)<<8 | (u>>11&1)<<7 | OP_BRANCH
}

func utype(imm20, rd, op uint32) uint32 {
	return imm20<<12 | rd<<7 | op
}

func jtype(imm int32, rd uint32) uint32 {
	u := uint32(imm)
	return (u>>20&1)<<31 | (u>>1&0x3ff)<<21 | (u>>11&1)<<20 | (u>>12&0xff)<<12 | rd<<7 | OP_JAL
}

func csrtype(csr, rs1, f3, rd uint32) uint32 {
	return csr<<20 | rs1<<15 | f3<<12 | rd<<7 | OP_SYSTEM
}

func addi(rd, rs1 uint32, imm int32) uint32 { return itype(imm, rs1, 0, rd, OP_IMM) }

const (
	insEcall  = 0x00000073
	insEbreak = 0x00100073
	insUret   = 0x00200073
)

// newHart builds a hart over the compact-text layout: text at 0, data at 0x1000.
func newHart(t testing.TB, xlen int) *Hart {
	layout, err := models.Layout("compact-text")
	if err != nil {
		t.Fatal(err)
	}
	isa, err := NewInstructionSet(xlen)
	if err != nil {
		t.Fatal(err)
	}
	mem, err := cpu.NewMem(uint(xlen), layout.Segments(false))
	if err != nil {
		t.Fatal(err)
	}
	return NewHart(0, isa, mem, layout)
}

// program writes words into text starting at addr.
func program(t testing.TB, h *Hart, addr uint64, words ...uint32) {
	buf := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(buf[i*4:], w)
	}
	if err := h.Mem.Poke(addr, buf); err != nil {
		t.Fatal(err)
	}
}

func steps(t testing.TB, h *Hart, n int) {
	for i := 0; i < n; i++ {
		if err := h.Step(); err != nil {
			t.Fatalf("step %d at %#x: %v", i, h.PC(), err)
		}
	}
}

func asTrap(t testing.TB, err error) *Trap {
	trap, ok := err.(*Trap)
	if !ok {
		t.Fatalf("expected a trap, got %v", err)
	}
	return trap
}
