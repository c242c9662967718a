package riscv

type execFn func(h *Hart, s *Statement) error

func (h *Hart) x(i uint8) uint64 {
	return h.Regs.Get(int(i))
}

// signed interprets an XLEN-wide register value as a signed integer.
func (h *Hart) signed(v uint64) int64 {
	if h.XLEN == 32 {
		return int64(int32(v))
	}
	return int64(v)
}

func (h *Hart) setx(i uint8, v uint64) error {
	_, err := h.Regs.Update(int(i), v)
	return err
}

func sext32(v uint64) uint64 {
	return uint64(int64(int32(v)))
}

func (h *Hart) shamt(v uint64) uint64 {
	return v & uint64(h.XLEN-1)
}

func (h *Hart) effAddr(s *Statement) uint64 {
	return (h.x(s.Rs1) + uint64(s.Imm)) & h.Regs.Mask()
}

// jump sets the next program counter, checking instruction alignment.
func (h *Hart) jump(target uint64) error {
	target &= h.Regs.Mask()
	if target&3 != 0 {
		return &Trap{Cause: CauseInstrMisaligned, Value: target}
	}
	h.next = target
	return nil
}

func (h *Hart) load(addr uint64, size int) (uint64, error) {
	return h.Mem.Read(addr, size)
}

func (h *Hart) store(addr uint64, size int, val uint64) error {
	return h.Mem.Write(addr, size, val, h.Journal())
}

func rbool(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func trunc(v uint64, size int) uint64 {
	if size >= 8 {
		return v
	}
	return v & (1<<(uint(size)*8) - 1)
}

// rd <- f(rs1, imm)
func immOp(f func(h *Hart, a uint64, imm int64) uint64) execFn {
	return func(h *Hart, s *Statement) error {
		return h.setx(s.Rd, f(h, h.x(s.Rs1), s.Imm))
	}
}

// rd <- f(rs1, rs2)
func regOp(f func(h *Hart, a, b uint64) uint64) execFn {
	return func(h *Hart, s *Statement) error {
		return h.setx(s.Rd, f(h, h.x(s.Rs1), h.x(s.Rs2)))
	}
}

func branch(cond func(h *Hart, a, b uint64) bool) execFn {
	return func(h *Hart, s *Statement) error {
		if cond(h, h.x(s.Rs1), h.x(s.Rs2)) {
			return h.jump(s.Addr + uint64(s.Imm))
		}
		return nil
	}
}

func loadOp(size int, signed bool) execFn {
	return func(h *Hart, s *Statement) error {
		v, err := h.load(h.effAddr(s), size)
		if err != nil {
			return err
		}
		if signed {
			shift := uint(64 - size*8)
			v = uint64(int64(v<<shift) >> shift)
		}
		return h.setx(s.Rd, v)
	}
}

func storeOp(size int) execFn {
	return func(h *Hart, s *Statement) error {
		return h.store(h.effAddr(s), size, trunc(h.x(s.Rs2), size))
	}
}
