package riscv

func (h *Hart) amoOperand(v uint64, size int) uint64 {
	if size == 4 {
		return sext32(v)
	}
	return v
}

func amo(size int, f func(h *Hart, a, b uint64, size int) uint64) execFn {
	return func(h *Hart, s *Statement) error {
		addr := h.x(s.Rs1)
		v, err := h.load(addr, size)
		if err != nil {
			return err
		}
		old := h.amoOperand(v, size)
		val := f(h, old, h.amoOperand(h.x(s.Rs2), size), size)
		if err := h.store(addr, size, trunc(val, size)); err != nil {
			return err
		}
		h.reserved = false
		return h.setx(s.Rd, old)
	}
}

func loadReserved(size int) execFn {
	return func(h *Hart, s *Statement) error {
		addr := h.x(s.Rs1)
		v, err := h.load(addr, size)
		if err != nil {
			return err
		}
		h.reserved, h.reservation = true, addr
		return h.setx(s.Rd, h.amoOperand(v, size))
	}
}

func storeConditional(size int) execFn {
	return func(h *Hart, s *Statement) error {
		addr := h.x(s.Rs1)
		if !h.reserved || h.reservation != addr {
			h.reserved = false
			return h.setx(s.Rd, 1)
		}
		if err := h.store(addr, size, trunc(h.x(s.Rs2), size)); err != nil {
			return err
		}
		h.reserved = false
		return h.setx(s.Rd, 0)
	}
}

func amoSigned(v uint64, size int) int64 {
	if size == 4 {
		return int64(int32(v))
	}
	return int64(v)
}

var (
	amoSwap = func(h *Hart, a, b uint64, size int) uint64 { return b }
	amoAdd  = func(h *Hart, a, b uint64, size int) uint64 { return a + b }
	amoXor  = func(h *Hart, a, b uint64, size int) uint64 { return a ^ b }
	amoAnd  = func(h *Hart, a, b uint64, size int) uint64 { return a & b }
	amoOr   = func(h *Hart, a, b uint64, size int) uint64 { return a | b }
	amoMin  = func(h *Hart, a, b uint64, size int) uint64 {
		if amoSigned(a, size) < amoSigned(b, size) {
			return a
		}
		return b
	}
	amoMax = func(h *Hart, a, b uint64, size int) uint64 {
		if amoSigned(a, size) > amoSigned(b, size) {
			return a
		}
		return b
	}
	amoMinu = func(h *Hart, a, b uint64, size int) uint64 {
		if trunc(a, size) < trunc(b, size) {
			return a
		}
		return b
	}
	amoMaxu = func(h *Hart, a, b uint64, size int) uint64 {
		if trunc(a, size) > trunc(b, size) {
			return a
		}
		return b
	}
)

type amoKind struct {
	name  string
	funct string
	f     func(h *Hart, a, b uint64, size int) uint64
	desc  string
}

var amoKinds = []amoKind{
	{"amoswap", "00001", amoSwap, "swap"},
	{"amoadd", "00000", amoAdd, "add"},
	{"amoxor", "00100", amoXor, "XOR"},
	{"amoand", "01100", amoAnd, "AND"},
	{"amoor", "01000", amoOr, "OR"},
	{"amomin", "10000", amoMin, "minimum"},
	{"amomax", "10100", amoMax, "maximum"},
	{"amominu", "11000", amoMinu, "unsigned minimum"},
	{"amomaxu", "11100", amoMaxu, "unsigned maximum"},
}

// A extension: load-reserved/store-conditional and atomic memory operations.
func atomicDefs() []*Definition {
	var defs []*Definition
	widths := []struct {
		suffix, funct3 string
		size, xlen     int
	}{
		{".w", "010", 4, 0},
		{".d", "011", 8, 64},
	}
	for _, w := range widths {
		defs = append(defs,
			&Definition{Name: "lr" + w.suffix, Usage: "lr" + w.suffix + " t1,(t2)", Desc: "Load reserved",
				Format: FormatLR, XLEN: w.xlen, Exec: loadReserved(w.size),
				Template: "00010 aa 00000 sssss " + w.funct3 + " fffff 0101111"},
			&Definition{Name: "sc" + w.suffix, Usage: "sc" + w.suffix + " t1,t2,(t3)", Desc: "Store conditional",
				Format: FormatAMO, XLEN: w.xlen, Exec: storeConditional(w.size),
				Template: "00011 aa ttttt sssss " + w.funct3 + " fffff 0101111"},
		)
		for _, k := range amoKinds {
			defs = append(defs, &Definition{
				Name:     k.name + w.suffix,
				Usage:    k.name + w.suffix + " t1,t2,(t3)",
				Desc:     "Atomic " + k.desc,
				Format:   FormatAMO,
				XLEN:     w.xlen,
				Template: k.funct + " aa ttttt sssss " + w.funct3 + " fffff 0101111",
				Exec:     amo(w.size, k.f),
			})
		}
	}
	return defs
}
