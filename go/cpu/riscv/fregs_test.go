package riscv

import (
	"math"
	"testing"
)

func TestNaNBoxing(t *testing.T) {
	f := NewFRegs()
	if err := f.SetFloat32(1, 1.25); err != nil {
		t.Fatal(err)
	}
	if v := f.Get(1); v != nanBox|uint64(math.Float32bits(1.25)) {
		t.Errorf("cell %#x", v)
	}
	if f.Float32(1) != 1.25 {
		t.Error("round trip")
	}
	f.SetFloat64(2, 1.25)
	if f.Bits32(2) != canonicalNaN {
		t.Error("an unboxed double read as a single")
	}
	if f.Float64(2) != 1.25 {
		t.Error("double round trip")
	}
	if f.Bits32(3) != canonicalNaN {
		t.Error("reset cell is not a NaN")
	}
}

func TestFClass(t *testing.T) {
	tests := []struct {
		bits uint32
		want uint64
	}{
		{0xff800000, 1 << 0},
		{math.Float32bits(-1), 1 << 1},
		{0x80000001, 1 << 2},
		{0x80000000, 1 << 3},
		{0, 1 << 4},
		{1, 1 << 5},
		{math.Float32bits(1), 1 << 6},
		{0x7f800000, 1 << 7},
		{0x7f800001, 1 << 8},
		{canonicalNaN, 1 << 9},
	}
	for _, test := range tests {
		if v := fclass(test.bits); v != test.want {
			t.Errorf("fclass(%#x) = %#x, want %#x", test.bits, v, test.want)
		}
	}
}

func TestFloatToIntSaturation(t *testing.T) {
	tests := []struct {
		in       float32
		unsigned bool
		want     uint64
	}{
		{-1, true, 0},
		{float32(math.Inf(1)), false, 0x7fffffff},
		{float32(math.Inf(-1)), false, 0xffffffff80000000},
		{4294967296, true, 0xffffffffffffffff},
		{-3.5, false, 0xfffffffffffffffc},
	}
	for _, test := range tests {
		h := newHart(t, 64)
		h.SetFloat32(1, test.in)
		s := &Statement{Rd: A0, Rs1: 1, Rm: RM_RNE, Raw: 0}
		if err := fpToInt(32, test.unsigned)(h, s); err != nil {
			t.Fatal(err)
		}
		if v := h.Reg(A0); v != test.want {
			t.Errorf("convert %v unsigned=%v: %#x, want %#x", test.in, test.unsigned, v, test.want)
		}
	}
}

func TestRoundingModes(t *testing.T) {
	third := 1.0 / 3
	tie := 1 + math.Pow(2, -24)
	tests := []struct {
		v    float64
		rm   uint8
		want uint32
	}{
		{third, RM_RNE, 0x3eaaaaab},
		{third, RM_RTZ, 0x3eaaaaaa},
		{third, RM_RDN, 0x3eaaaaaa},
		{third, RM_RUP, 0x3eaaaaab},
		{-third, RM_RTZ, 0xbeaaaaaa},
		{-third, RM_RDN, 0xbeaaaaab},
		{-third, RM_RUP, 0xbeaaaaaa},
		{tie, RM_RNE, 0x3f800000},
		{tie, RM_RMM, 0x3f800001},
		{-tie, RM_RMM, 0xbf800001},
		{1.5, RM_RDN, 0x3fc00000},
		{math.MaxFloat32 * 2, RM_RTZ, 0x7f7fffff},
		{math.MaxFloat32 * 2, RM_RUP, 0x7f800000},
		{-math.MaxFloat32 * 2, RM_RUP, 0xff7fffff},
	}
	for _, test := range tests {
		if got := math.Float32bits(round32(test.v, test.rm)); got != test.want {
			t.Errorf("round32(%v, %d) = %#x, want %#x", test.v, test.rm, got, test.want)
		}
	}
}

func TestArithRoundingMode(t *testing.T) {
	div := fpArith(func(a, b float64) float64 { return a / b })
	for _, test := range []struct {
		rm   uint8
		want uint32
	}{{RM_RNE, 0x3eaaaaab}, {RM_RTZ, 0x3eaaaaaa}} {
		h := newHart(t, 32)
		h.SetFloat32(1, 1)
		h.SetFloat32(2, 3)
		s := &Statement{Rd: 3, Rs1: 1, Rs2: 2, Rm: test.rm}
		if err := div(h, s); err != nil {
			t.Fatal(err)
		}
		if got := h.F.Bits32(3); got != test.want {
			t.Errorf("rm %d: %#x, want %#x", test.rm, got, test.want)
		}
		if v, _ := h.CSR.Get(CSR_FFLAGS); v != FLAG_NX {
			t.Errorf("rm %d: fflags %#x", test.rm, v)
		}
	}

	// overflow toward zero saturates and still reports OF
	mul := fpArith(func(a, b float64) float64 { return a * b })
	h := newHart(t, 32)
	h.SetFloat32(1, math.MaxFloat32)
	h.SetFloat32(2, 2)
	if err := mul(h, &Statement{Rd: 3, Rs1: 1, Rs2: 2, Rm: RM_RTZ}); err != nil {
		t.Fatal(err)
	}
	if got := h.F.Bits32(3); got != 0x7f7fffff {
		t.Errorf("overflow: %#x", got)
	}
	if v, _ := h.CSR.Get(CSR_FFLAGS); v != FLAG_OF|FLAG_NX {
		t.Errorf("overflow fflags %#x", v)
	}
}
