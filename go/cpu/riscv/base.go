package riscv

// RV32I and RV64I base integer instructions.
var baseDefs = []*Definition{
	{Name: "lui", Usage: "lui t1,100000", Desc: "Load upper immediate", Format: FormatU,
		Template: "iiiiiiiiiiiiiiiiiiii fffff 0110111",
		Exec: func(h *Hart, s *Statement) error {
			return h.setx(s.Rd, uint64(s.Imm))
		}},
	{Name: "auipc", Usage: "auipc t1,100000", Desc: "Add upper immediate to pc", Format: FormatU,
		Template: "iiiiiiiiiiiiiiiiiiii fffff 0010111",
		Exec: func(h *Hart, s *Statement) error {
			return h.setx(s.Rd, s.Addr+uint64(s.Imm))
		}},
	{Name: "jal", Usage: "jal t1,target", Desc: "Jump and link", Format: FormatJ,
		Template: "iiiiiiiiiiiiiiiiiiii fffff 1101111",
		Exec: func(h *Hart, s *Statement) error {
			if err := h.jump(s.Addr + uint64(s.Imm)); err != nil {
				return err
			}
			return h.setx(s.Rd, s.Addr+4)
		}},
	{Name: "jalr", Usage: "jalr t1,t2,-100", Desc: "Jump and link register", Format: FormatI,
		Template: "iiiiiiiiiiii sssss 000 fffff 1100111",
		Exec: func(h *Hart, s *Statement) error {
			if err := h.jump(h.effAddr(s) &^ 1); err != nil {
				return err
			}
			return h.setx(s.Rd, s.Addr+4)
		}},

	{Name: "beq", Usage: "beq t1,t2,label", Desc: "Branch if equal", Format: FormatB,
		Template: "iiiiiii ttttt sssss 000 iiiii 1100011",
		Exec: branch(func(h *Hart, a, b uint64) bool { return a == b })},
	{Name: "bne", Usage: "bne t1,t2,label", Desc: "Branch if not equal", Format: FormatB,
		Template: "iiiiiii ttttt sssss 001 iiiii 1100011",
		Exec: branch(func(h *Hart, a, b uint64) bool { return a != b })},
	{Name: "blt", Usage: "blt t1,t2,label", Desc: "Branch if less than", Format: FormatB,
		Template: "iiiiiii ttttt sssss 100 iiiii 1100011",
		Exec: branch(func(h *Hart, a, b uint64) bool { return h.signed(a) < h.signed(b) })},
	{Name: "bge", Usage: "bge t1,t2,label", Desc: "Branch if greater than or equal", Format: FormatB,
		Template: "iiiiiii ttttt sssss 101 iiiii 1100011",
		Exec: branch(func(h *Hart, a, b uint64) bool { return h.signed(a) >= h.signed(b) })},
	{Name: "bltu", Usage: "bltu t1,t2,label", Desc: "Branch if less than (unsigned)", Format: FormatB,
		Template: "iiiiiii ttttt sssss 110 iiiii 1100011",
		Exec: branch(func(h *Hart, a, b uint64) bool { return a < b })},
	{Name: "bgeu", Usage: "bgeu t1,t2,label", Desc: "Branch if greater than or equal (unsigned)", Format: FormatB,
		Template: "iiiiiii ttttt sssss 111 iiiii 1100011",
		Exec: branch(func(h *Hart, a, b uint64) bool { return a >= b })},

	{Name: "lb", Usage: "lb t1,-100(t2)", Desc: "Load byte", Format: FormatLoad,
		Template: "iiiiiiiiiiii sssss 000 fffff 0000011", Exec: loadOp(1, true)},
	{Name: "lh", Usage: "lh t1,-100(t2)", Desc: "Load half", Format: FormatLoad,
		Template: "iiiiiiiiiiii sssss 001 fffff 0000011", Exec: loadOp(2, true)},
	{Name: "lw", Usage: "lw t1,-100(t2)", Desc: "Load word", Format: FormatLoad,
		Template: "iiiiiiiiiiii sssss 010 fffff 0000011", Exec: loadOp(4, true)},
	{Name: "ld", Usage: "ld t1,-100(t2)", Desc: "Load double word", Format: FormatLoad, XLEN: 64,
		Template: "iiiiiiiiiiii sssss 011 fffff 0000011", Exec: loadOp(8, false)},
	{Name: "lbu", Usage: "lbu t1,-100(t2)", Desc: "Load byte unsigned", Format: FormatLoad,
		Template: "iiiiiiiiiiii sssss 100 fffff 0000011", Exec: loadOp(1, false)},
	{Name: "lhu", Usage: "lhu t1,-100(t2)", Desc: "Load half unsigned", Format: FormatLoad,
		Template: "iiiiiiiiiiii sssss 101 fffff 0000011", Exec: loadOp(2, false)},
	{Name: "lwu", Usage: "lwu t1,-100(t2)", Desc: "Load word unsigned", Format: FormatLoad, XLEN: 64,
		Template: "iiiiiiiiiiii sssss 110 fffff 0000011", Exec: loadOp(4, false)},

	{Name: "sb", Usage: "sb t1,-100(t2)", Desc: "Store byte", Format: FormatS,
		Template: "iiiiiii ttttt sssss 000 iiiii 0100011", Exec: storeOp(1)},
	{Name: "sh", Usage: "sh t1,-100(t2)", Desc: "Store half", Format: FormatS,
		Template: "iiiiiii ttttt sssss 001 iiiii 0100011", Exec: storeOp(2)},
	{Name: "sw", Usage: "sw t1,-100(t2)", Desc: "Store word", Format: FormatS,
		Template: "iiiiiii ttttt sssss 010 iiiii 0100011", Exec: storeOp(4)},
	{Name: "sd", Usage: "sd t1,-100(t2)", Desc: "Store double word", Format: FormatS, XLEN: 64,
		Template: "iiiiiii ttttt sssss 011 iiiii 0100011", Exec: storeOp(8)},

	{Name: "addi", Usage: "addi t1,t2,-100", Desc: "Addition immediate", Format: FormatI,
		Template: "iiiiiiiiiiii sssss 000 fffff 0010011",
		Exec: immOp(func(h *Hart, a uint64, imm int64) uint64 { return a + uint64(imm) })},
	{Name: "slti", Usage: "slti t1,t2,-100", Desc: "Set less than immediate", Format: FormatI,
		Template: "iiiiiiiiiiii sssss 010 fffff 0010011",
		Exec: immOp(func(h *Hart, a uint64, imm int64) uint64 { return rbool(h.signed(a) < imm) })},
	{Name: "sltiu", Usage: "sltiu t1,t2,-100", Desc: "Set less than immediate (unsigned)", Format: FormatI,
		Template: "iiiiiiiiiiii sssss 011 fffff 0010011",
		Exec: immOp(func(h *Hart, a uint64, imm int64) uint64 { return rbool(a < uint64(imm)&h.Regs.Mask()) })},
	{Name: "xori", Usage: "xori t1,t2,-100", Desc: "Bitwise XOR immediate", Format: FormatI,
		Template: "iiiiiiiiiiii sssss 100 fffff 0010011",
		Exec: immOp(func(h *Hart, a uint64, imm int64) uint64 { return a ^ uint64(imm) })},
	{Name: "ori", Usage: "ori t1,t2,-100", Desc: "Bitwise OR immediate", Format: FormatI,
		Template: "iiiiiiiiiiii sssss 110 fffff 0010011",
		Exec: immOp(func(h *Hart, a uint64, imm int64) uint64 { return a | uint64(imm) })},
	{Name: "andi", Usage: "andi t1,t2,-100", Desc: "Bitwise AND immediate", Format: FormatI,
		Template: "iiiiiiiiiiii sssss 111 fffff 0010011",
		Exec: immOp(func(h *Hart, a uint64, imm int64) uint64 { return a & uint64(imm) })},

	{Name: "slli", Usage: "slli t1,t2,10", Desc: "Shift left logical immediate", Format: FormatIShift, XLEN: 32,
		Template: "0000000 ttttt sssss 001 fffff 0010011", Exec: immOp(slli)},
	{Name: "srli", Usage: "srli t1,t2,10", Desc: "Shift right logical immediate", Format: FormatIShift, XLEN: 32,
		Template: "0000000 ttttt sssss 101 fffff 0010011", Exec: immOp(srli)},
	{Name: "srai", Usage: "srai t1,t2,10", Desc: "Shift right arithmetic immediate", Format: FormatIShift, XLEN: 32,
		Template: "0100000 ttttt sssss 101 fffff 0010011", Exec: immOp(srai)},
	{Name: "slli", Usage: "slli t1,t2,33", Desc: "Shift left logical immediate", Format: FormatIShift, XLEN: 64,
		Template: "000000 tttttt sssss 001 fffff 0010011", Exec: immOp(slli)},
	{Name: "srli", Usage: "srli t1,t2,33", Desc: "Shift right logical immediate", Format: FormatIShift, XLEN: 64,
		Template: "000000 tttttt sssss 101 fffff 0010011", Exec: immOp(srli)},
	{Name: "srai", Usage: "srai t1,t2,33", Desc: "Shift right arithmetic immediate", Format: FormatIShift, XLEN: 64,
		Template: "010000 tttttt sssss 101 fffff 0010011", Exec: immOp(srai)},

	{Name: "add", Usage: "add t1,t2,t3", Desc: "Addition", Format: FormatR,
		Template: "0000000 ttttt sssss 000 fffff 0110011",
		Exec: regOp(func(h *Hart, a, b uint64) uint64 { return a + b })},
	{Name: "sub", Usage: "sub t1,t2,t3", Desc: "Subtraction", Format: FormatR,
		Template: "0100000 ttttt sssss 000 fffff 0110011",
		Exec: regOp(func(h *Hart, a, b uint64) uint64 { return a - b })},
	{Name: "sll", Usage: "sll t1,t2,t3", Desc: "Shift left logical", Format: FormatR,
		Template: "0000000 ttttt sssss 001 fffff 0110011",
		Exec: regOp(func(h *Hart, a, b uint64) uint64 { return a << h.shamt(b) })},
	{Name: "slt", Usage: "slt t1,t2,t3", Desc: "Set less than", Format: FormatR,
		Template: "0000000 ttttt sssss 010 fffff 0110011",
		Exec: regOp(func(h *Hart, a, b uint64) uint64 { return rbool(h.signed(a) < h.signed(b)) })},
	{Name: "sltu", Usage: "sltu t1,t2,t3", Desc: "Set less than (unsigned)", Format: FormatR,
		Template: "0000000 ttttt sssss 011 fffff 0110011",
		Exec: regOp(func(h *Hart, a, b uint64) uint64 { return rbool(a < b) })},
	{Name: "xor", Usage: "xor t1,t2,t3", Desc: "Bitwise XOR", Format: FormatR,
		Template: "0000000 ttttt sssss 100 fffff 0110011",
		Exec: regOp(func(h *Hart, a, b uint64) uint64 { return a ^ b })},
	{Name: "srl", Usage: "srl t1,t2,t3", Desc: "Shift right logical", Format: FormatR,
		Template: "0000000 ttttt sssss 101 fffff 0110011",
		Exec: regOp(func(h *Hart, a, b uint64) uint64 { return a >> h.shamt(b) })},
	{Name: "sra", Usage: "sra t1,t2,t3", Desc: "Shift right arithmetic", Format: FormatR,
		Template: "0100000 ttttt sssss 101 fffff 0110011",
		Exec: regOp(func(h *Hart, a, b uint64) uint64 { return uint64(h.signed(a) >> h.shamt(b)) })},
	{Name: "or", Usage: "or t1,t2,t3", Desc: "Bitwise OR", Format: FormatR,
		Template: "0000000 ttttt sssss 110 fffff 0110011",
		Exec: regOp(func(h *Hart, a, b uint64) uint64 { return a | b })},
	{Name: "and", Usage: "and t1,t2,t3", Desc: "Bitwise AND", Format: FormatR,
		Template: "0000000 ttttt sssss 111 fffff 0110011",
		Exec: regOp(func(h *Hart, a, b uint64) uint64 { return a & b })},

	{Name: "addiw", Usage: "addiw t1,t2,-100", Desc: "Addition immediate, 32 bit", Format: FormatI, XLEN: 64,
		Template: "iiiiiiiiiiii sssss 000 fffff 0011011",
		Exec: immOp(func(h *Hart, a uint64, imm int64) uint64 { return sext32(a + uint64(imm)) })},
	{Name: "slliw", Usage: "slliw t1,t2,10", Desc: "Shift left logical immediate, 32 bit", Format: FormatIShift, XLEN: 64,
		Template: "0000000 ttttt sssss 001 fffff 0011011",
		Exec: immOp(func(h *Hart, a uint64, imm int64) uint64 { return sext32(uint64(uint32(a) << uint(imm))) })},
	{Name: "srliw", Usage: "srliw t1,t2,10", Desc: "Shift right logical immediate, 32 bit", Format: FormatIShift, XLEN: 64,
		Template: "0000000 ttttt sssss 101 fffff 0011011",
		Exec: immOp(func(h *Hart, a uint64, imm int64) uint64 { return sext32(uint64(uint32(a) >> uint(imm))) })},
	{Name: "sraiw", Usage: "sraiw t1,t2,10", Desc: "Shift right arithmetic immediate, 32 bit", Format: FormatIShift, XLEN: 64,
		Template: "0100000 ttttt sssss 101 fffff 0011011",
		Exec: immOp(func(h *Hart, a uint64, imm int64) uint64 { return uint64(int64(int32(a) >> uint(imm))) })},
	{Name: "addw", Usage: "addw t1,t2,t3", Desc: "Addition, 32 bit", Format: FormatR, XLEN: 64,
		Template: "0000000 ttttt sssss 000 fffff 0111011",
		Exec: regOp(func(h *Hart, a, b uint64) uint64 { return sext32(a + b) })},
	{Name: "subw", Usage: "subw t1,t2,t3", Desc: "Subtraction, 32 bit", Format: FormatR, XLEN: 64,
		Template: "0100000 ttttt sssss 000 fffff 0111011",
		Exec: regOp(func(h *Hart, a, b uint64) uint64 { return sext32(a - b) })},
	{Name: "sllw", Usage: "sllw t1,t2,t3", Desc: "Shift left logical, 32 bit", Format: FormatR, XLEN: 64,
		Template: "0000000 ttttt sssss 001 fffff 0111011",
		Exec: regOp(func(h *Hart, a, b uint64) uint64 { return sext32(uint64(uint32(a) << (b & 31))) })},
	{Name: "srlw", Usage: "srlw t1,t2,t3", Desc: "Shift right logical, 32 bit", Format: FormatR, XLEN: 64,
		Template: "0000000 ttttt sssss 101 fffff 0111011",
		Exec: regOp(func(h *Hart, a, b uint64) uint64 { return sext32(uint64(uint32(a) >> (b & 31))) })},
	{Name: "sraw", Usage: "sraw t1,t2,t3", Desc: "Shift right arithmetic, 32 bit", Format: FormatR, XLEN: 64,
		Template: "0100000 ttttt sssss 101 fffff 0111011",
		Exec: regOp(func(h *Hart, a, b uint64) uint64 { return uint64(int64(int32(a) >> (b & 31))) })},

	{Name: "fence", Usage: "fence", Desc: "Order memory accesses", Format: FormatFence,
		Template: "0000 pppp cccc 00000 000 00000 0001111",
		Exec: func(h *Hart, s *Statement) error { return nil }},
	{Name: "fence.i", Usage: "fence.i", Desc: "Synchronize instruction and data streams", Format: FormatNone,
		Template: "000000000000 00000 001 00000 0001111",
		Exec: func(h *Hart, s *Statement) error {
			h.cache = make(map[uint64]*Statement)
			return nil
		}},
}

func slli(h *Hart, a uint64, imm int64) uint64 { return a << uint(imm) }

func srli(h *Hart, a uint64, imm int64) uint64 { return a >> uint(imm) }

func srai(h *Hart, a uint64, imm int64) uint64 { return uint64(h.signed(a) >> uint(imm)) }
