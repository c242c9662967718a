package riscv

// csrOp reads the csr into rd and writes f(old, operand) back. Writes are
// skipped when the operand cannot change anything, so read-only counters stay
// readable with csrrs/csrrc.
func csrOp(imm, always bool, f func(old, v uint64) uint64) execFn {
	return func(h *Hart, s *Statement) error {
		old, err := h.CSR.Get(s.Csr)
		if err != nil {
			return err
		}
		var v uint64
		write := always
		if imm {
			v = uint64(s.Imm)
			write = write || v != 0
		} else {
			v = h.x(s.Rs1)
			write = write || s.Rs1 != ZERO
		}
		if write {
			if _, err := h.CSR.Update(s.Csr, f(old, v)); err != nil {
				return err
			}
		}
		return h.setx(s.Rd, old)
	}
}

func csrWrite(old, v uint64) uint64 { return v }
func csrSet(old, v uint64) uint64   { return old | v }
func csrClear(old, v uint64) uint64 { return old &^ v }

var systemDefs = []*Definition{
	{Name: "ecall", Usage: "ecall", Desc: "Issue a system call", Format: FormatNone,
		Template: "000000000000 00000 000 00000 1110011",
		Exec: func(h *Hart, s *Statement) error {
			if h.Sys == nil {
				return &Trap{Cause: CauseEcall, Msg: "no system call handler"}
			}
			return h.Sys.Syscall(h)
		}},
	{Name: "ebreak", Usage: "ebreak", Desc: "Pause execution", Format: FormatNone,
		Template: "000000000001 00000 000 00000 1110011",
		Exec: func(h *Hart, s *Statement) error {
			return &Trap{Cause: CauseBreakpoint, Value: s.Addr}
		}},
	{Name: "uret", Usage: "uret", Desc: "Return from a user trap handler", Format: FormatNone,
		Template: "0000000 00010 00000 000 00000 1110011",
		Exec: func(h *Hart, s *Statement) error {
			status, _ := h.CSR.Get(CSR_USTATUS)
			epc, _ := h.CSR.Get(CSR_UEPC)
			if err := h.jump(epc); err != nil {
				return err
			}
			status &^= USTATUS_UIE
			if status&USTATUS_UPIE != 0 {
				status |= USTATUS_UIE
			}
			_, err := h.CSR.Update(CSR_USTATUS, status|USTATUS_UPIE)
			return err
		}},
	{Name: "wfi", Usage: "wfi", Desc: "Wait for interrupt", Format: FormatNone,
		Template: "0001000 00101 00000 000 00000 1110011",
		Exec:     func(h *Hart, s *Statement) error { return nil }},

	{Name: "csrrw", Usage: "csrrw t0,fcsr,t1", Desc: "Atomic read/write csr", Format: FormatCSR,
		Template: "cccccccccccc sssss 001 fffff 1110011", Exec: csrOp(false, true, csrWrite)},
	{Name: "csrrs", Usage: "csrrs t0,fcsr,t1", Desc: "Atomic read and set bits in csr", Format: FormatCSR,
		Template: "cccccccccccc sssss 010 fffff 1110011", Exec: csrOp(false, false, csrSet)},
	{Name: "csrrc", Usage: "csrrc t0,fcsr,t1", Desc: "Atomic read and clear bits in csr", Format: FormatCSR,
		Template: "cccccccccccc sssss 011 fffff 1110011", Exec: csrOp(false, false, csrClear)},
	{Name: "csrrwi", Usage: "csrrwi t0,fcsr,10", Desc: "Atomic read/write csr immediate", Format: FormatCSRI,
		Template: "cccccccccccc sssss 101 fffff 1110011", Exec: csrOp(true, true, csrWrite)},
	{Name: "csrrsi", Usage: "csrrsi t0,fcsr,10", Desc: "Atomic read and set csr bits immediate", Format: FormatCSRI,
		Template: "cccccccccccc sssss 110 fffff 1110011", Exec: csrOp(true, false, csrSet)},
	{Name: "csrrci", Usage: "csrrci t0,fcsr,10", Desc: "Atomic read and clear csr bits immediate", Format: FormatCSRI,
		Template: "cccccccccccc sssss 111 fffff 1110011", Exec: csrOp(true, false, csrClear)},
}
