package riscv

import (
	"fmt"
)

// Statement is one decoded occurrence of an instruction.
type Statement struct {
	Addr uint64
	Raw  uint32
	Def  *Definition

	Rd, Rs1, Rs2, Rs3 uint8
	Rm                uint8
	Imm               int64
	Csr               uint16

	// assembler source, for display only
	Source string
}

func (s *Statement) extract() {
	raw := s.Raw
	rd := uint8(bitrange(raw, 11, 7))
	rs1 := uint8(bitrange(raw, 19, 15))
	rs2 := uint8(bitrange(raw, 24, 20))
	switch s.Def.Format {
	case FormatR, FormatAMO, FormatLR:
		s.Rd, s.Rs1, s.Rs2 = rd, rs1, rs2
	case FormatR4:
		s.Rd, s.Rs1, s.Rs2 = rd, rs1, rs2
		s.Rs3 = uint8(bitrange(raw, 31, 27))
		s.Rm = uint8(bitrange(raw, 14, 12))
	case FormatFR, FormatFR1:
		s.Rd, s.Rs1, s.Rs2 = rd, rs1, rs2
		s.Rm = uint8(bitrange(raw, 14, 12))
	case FormatI, FormatLoad:
		s.Rd, s.Rs1 = rd, rs1
		s.Imm = immI(raw)
	case FormatIShift:
		s.Rd, s.Rs1 = rd, rs1
		s.Imm = int64(bitrange(raw, 25, 20))
	case FormatS:
		s.Rs1, s.Rs2 = rs1, rs2
		s.Imm = immS(raw)
	case FormatB:
		s.Rs1, s.Rs2 = rs1, rs2
		s.Imm = immB(raw)
	case FormatU:
		s.Rd = rd
		s.Imm = immU(raw)
	case FormatJ:
		s.Rd = rd
		s.Imm = immJ(raw)
	case FormatCSR:
		s.Rd, s.Rs1 = rd, rs1
		s.Csr = uint16(bitrange(raw, 31, 20))
	case FormatCSRI:
		s.Rd = rd
		s.Imm = int64(rs1)
		s.Csr = uint16(bitrange(raw, 31, 20))
	case FormatFence:
		s.Imm = int64(bitrange(raw, 27, 20))
	}
}

func (s *Statement) reg(pos uint, n uint8) string {
	if s.Def.FP&(1<<pos) != 0 {
		return FRegName(int(n))
	}
	return RegName(int(n))
}

func (s *Statement) String() string {
	d := s.Def
	if d == nil {
		return fmt.Sprintf(".word 0x%08x", s.Raw)
	}
	name := d.Name
	switch d.Format {
	case FormatR, FormatFR:
		return fmt.Sprintf("%s %s, %s, %s", name, s.reg(0, s.Rd), s.reg(1, s.Rs1), s.reg(2, s.Rs2))
	case FormatFR1:
		return fmt.Sprintf("%s %s, %s", name, s.reg(0, s.Rd), s.reg(1, s.Rs1))
	case FormatR4:
		return fmt.Sprintf("%s %s, %s, %s, %s", name, FRegName(int(s.Rd)), FRegName(int(s.Rs1)),
			FRegName(int(s.Rs2)), FRegName(int(s.Rs3)))
	case FormatI, FormatIShift:
		return fmt.Sprintf("%s %s, %s, %d", name, RegName(int(s.Rd)), RegName(int(s.Rs1)), s.Imm)
	case FormatLoad:
		return fmt.Sprintf("%s %s, %d(%s)", name, s.reg(0, s.Rd), s.Imm, RegName(int(s.Rs1)))
	case FormatS:
		return fmt.Sprintf("%s %s, %d(%s)", name, s.reg(0, s.Rs2), s.Imm, RegName(int(s.Rs1)))
	case FormatB:
		return fmt.Sprintf("%s %s, %s, 0x%x", name, RegName(int(s.Rs1)), RegName(int(s.Rs2)), s.Addr+uint64(s.Imm))
	case FormatU:
		return fmt.Sprintf("%s %s, 0x%x", name, RegName(int(s.Rd)), uint32(s.Imm)>>12)
	case FormatJ:
		return fmt.Sprintf("%s %s, 0x%x", name, RegName(int(s.Rd)), s.Addr+uint64(s.Imm))
	case FormatCSR:
		return fmt.Sprintf("%s %s, %s, %s", name, RegName(int(s.Rd)), CSRName(s.Csr), RegName(int(s.Rs1)))
	case FormatCSRI:
		return fmt.Sprintf("%s %s, %s, %d", name, RegName(int(s.Rd)), CSRName(s.Csr), s.Imm)
	case FormatAMO:
		return fmt.Sprintf("%s %s, %s, (%s)", name, RegName(int(s.Rd)), RegName(int(s.Rs2)), RegName(int(s.Rs1)))
	case FormatLR:
		return fmt.Sprintf("%s %s, (%s)", name, RegName(int(s.Rd)), RegName(int(s.Rs1)))
	}
	return name
}
