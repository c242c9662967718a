package riscv

import (
	"math/bits"
)

// mulh returns the upper XLEN bits of the 2*XLEN-bit product.
func (h *Hart) mulh(a, b uint64, sa, sb bool) uint64 {
	if h.XLEN == 32 {
		x, y := int64(uint32(a)), int64(uint32(b))
		if sa {
			x = int64(int32(a))
		}
		if sb {
			y = int64(int32(b))
		}
		if !sa && !sb {
			return (uint64(uint32(a)) * uint64(uint32(b))) >> 32
		}
		return uint64((x * y) >> 32)
	}
	hi, _ := bits.Mul64(a, b)
	if sa && int64(a) < 0 {
		hi -= b
	}
	if sb && int64(b) < 0 {
		hi -= a
	}
	return hi
}

func (h *Hart) div(a, b uint64) uint64 {
	if b&h.Regs.Mask() == 0 {
		return ^uint64(0)
	}
	// the most negative value divided by -1 overflows back to itself
	return uint64(h.signed(a) / h.signed(b))
}

func (h *Hart) rem(a, b uint64) uint64 {
	if b&h.Regs.Mask() == 0 {
		return a
	}
	return uint64(h.signed(a) % h.signed(b))
}

func divw(a, b uint64) uint64 {
	if uint32(b) == 0 {
		return ^uint64(0)
	}
	return uint64(int64(int32(a) / int32(b)))
}

func remw(a, b uint64) uint64 {
	if uint32(b) == 0 {
		return sext32(a)
	}
	return uint64(int64(int32(a) % int32(b)))
}

func divuw(a, b uint64) uint64 {
	if uint32(b) == 0 {
		return ^uint64(0)
	}
	return sext32(uint64(uint32(a) / uint32(b)))
}

func remuw(a, b uint64) uint64 {
	if uint32(b) == 0 {
		return sext32(a)
	}
	return sext32(uint64(uint32(a) % uint32(b)))
}

// M extension: multiply and divide.
var mulDefs = []*Definition{
	{Name: "mul", Usage: "mul t1,t2,t3", Desc: "Multiplication, low XLEN bits", Format: FormatR,
		Template: "0000001 ttttt sssss 000 fffff 0110011",
		Exec: regOp(func(h *Hart, a, b uint64) uint64 { return a * b })},
	{Name: "mulh", Usage: "mulh t1,t2,t3", Desc: "Multiplication, high bits of signed product", Format: FormatR,
		Template: "0000001 ttttt sssss 001 fffff 0110011",
		Exec: regOp(func(h *Hart, a, b uint64) uint64 { return h.mulh(a, b, true, true) })},
	{Name: "mulhsu", Usage: "mulhsu t1,t2,t3", Desc: "Multiplication, high bits of signed by unsigned product", Format: FormatR,
		Template: "0000001 ttttt sssss 010 fffff 0110011",
		Exec: regOp(func(h *Hart, a, b uint64) uint64 { return h.mulh(a, b, true, false) })},
	{Name: "mulhu", Usage: "mulhu t1,t2,t3", Desc: "Multiplication, high bits of unsigned product", Format: FormatR,
		Template: "0000001 ttttt sssss 011 fffff 0110011",
		Exec: regOp(func(h *Hart, a, b uint64) uint64 { return h.mulh(a, b, false, false) })},
	{Name: "div", Usage: "div t1,t2,t3", Desc: "Division", Format: FormatR,
		Template: "0000001 ttttt sssss 100 fffff 0110011",
		Exec: regOp(func(h *Hart, a, b uint64) uint64 { return h.div(a, b) })},
	{Name: "divu", Usage: "divu t1,t2,t3", Desc: "Division (unsigned)", Format: FormatR,
		Template: "0000001 ttttt sssss 101 fffff 0110011",
		Exec: regOp(func(h *Hart, a, b uint64) uint64 {
			if b == 0 {
				return ^uint64(0)
			}
			return a / b
		})},
	{Name: "rem", Usage: "rem t1,t2,t3", Desc: "Remainder", Format: FormatR,
		Template: "0000001 ttttt sssss 110 fffff 0110011",
		Exec: regOp(func(h *Hart, a, b uint64) uint64 { return h.rem(a, b) })},
	{Name: "remu", Usage: "remu t1,t2,t3", Desc: "Remainder (unsigned)", Format: FormatR,
		Template: "0000001 ttttt sssss 111 fffff 0110011",
		Exec: regOp(func(h *Hart, a, b uint64) uint64 {
			if b == 0 {
				return a
			}
			return a % b
		})},

	{Name: "mulw", Usage: "mulw t1,t2,t3", Desc: "Multiplication, 32 bit", Format: FormatR, XLEN: 64,
		Template: "0000001 ttttt sssss 000 fffff 0111011",
		Exec: regOp(func(h *Hart, a, b uint64) uint64 { return sext32(a * b) })},
	{Name: "divw", Usage: "divw t1,t2,t3", Desc: "Division, 32 bit", Format: FormatR, XLEN: 64,
		Template: "0000001 ttttt sssss 100 fffff 0111011",
		Exec: regOp(func(h *Hart, a, b uint64) uint64 { return divw(a, b) })},
	{Name: "divuw", Usage: "divuw t1,t2,t3", Desc: "Division (unsigned), 32 bit", Format: FormatR, XLEN: 64,
		Template: "0000001 ttttt sssss 101 fffff 0111011",
		Exec: regOp(func(h *Hart, a, b uint64) uint64 { return divuw(a, b) })},
	{Name: "remw", Usage: "remw t1,t2,t3", Desc: "Remainder, 32 bit", Format: FormatR, XLEN: 64,
		Template: "0000001 ttttt sssss 110 fffff 0111011",
		Exec: regOp(func(h *Hart, a, b uint64) uint64 { return remw(a, b) })},
	{Name: "remuw", Usage: "remuw t1,t2,t3", Desc: "Remainder (unsigned), 32 bit", Format: FormatR, XLEN: 64,
		Template: "0000001 ttttt sssss 111 fffff 0111011",
		Exec: regOp(func(h *Hart, a, b uint64) uint64 { return remuw(a, b) })},
}
