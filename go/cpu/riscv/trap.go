package riscv

import (
	"fmt"

	"github.com/rvcorn/rvcorn/go/models/cpu"
)

// Cause is a trap cause code. The top bit of the XLEN-wide ucause register marks
// an interrupt; here it is kept in a separate flag until delivery.
type Cause uint64

const (
	CauseInstrMisaligned Cause = 0
	CauseInstrAccess     Cause = 1
	CauseIllegal         Cause = 2
	CauseBreakpoint      Cause = 3
	CauseLoadMisaligned  Cause = 4
	CauseLoadAccess      Cause = 5
	CauseStoreMisaligned Cause = 6
	CauseStoreAccess     Cause = 7
	CauseEcall           Cause = 8
)

// interrupt causes
const (
	CauseSoftwareInt Cause = 0
	CauseTimerInt    Cause = 4
	CauseExternalInt Cause = 8
)

var exceptionNames = map[Cause]string{
	CauseInstrMisaligned: "instruction address misaligned",
	CauseInstrAccess:     "instruction access fault",
	CauseIllegal:         "illegal instruction",
	CauseBreakpoint:      "breakpoint",
	CauseLoadMisaligned:  "load address misaligned",
	CauseLoadAccess:      "load access fault",
	CauseStoreMisaligned: "store address misaligned",
	CauseStoreAccess:     "store access fault",
	CauseEcall:           "environment call",
}

var interruptNames = map[Cause]string{
	CauseSoftwareInt: "software interrupt",
	CauseTimerInt:    "timer interrupt",
	CauseExternalInt: "external interrupt",
}

// Trap is a guest-visible exception or interrupt. It carries the cause, the
// associated value written to utval, and the statement that raised it, if any.
type Trap struct {
	Cause     Cause
	Interrupt bool
	Value     uint64
	Stmt      *Statement
	Msg       string

	// fetch faults are never vectored
	fatal bool
}

func (t *Trap) Error() string {
	name := exceptionNames[t.Cause]
	if t.Interrupt {
		name = interruptNames[t.Cause]
	}
	if name == "" {
		name = fmt.Sprintf("cause %d", t.Cause)
	}
	s := fmt.Sprintf("%s (value 0x%x)", name, t.Value)
	if t.Stmt != nil {
		s += fmt.Sprintf(" at 0x%08x: %s", t.Stmt.Addr, t.Stmt)
	}
	if t.Msg != "" {
		s += ": " + t.Msg
	}
	return s
}

// Code returns the value written to ucause for an XLEN-bit hart.
func (t *Trap) Code(xlen int) uint64 {
	code := uint64(t.Cause)
	if t.Interrupt {
		code |= 1 << uint(xlen-1)
	}
	return code
}

func Exception(cause Cause, value uint64, msg string) *Trap {
	return &Trap{Cause: cause, Value: value, Msg: msg}
}

// memTrap translates a memory model failure into the matching exception.
func memTrap(err *cpu.MemError) *Trap {
	var cause Cause
	switch err.Enum {
	case cpu.MEM_READ_ALIGN:
		cause = CauseLoadMisaligned
	case cpu.MEM_WRITE_ALIGN:
		cause = CauseStoreMisaligned
	case cpu.MEM_FETCH_ALIGN:
		cause = CauseInstrMisaligned
	case cpu.MEM_WRITE_UNMAPPED, cpu.MEM_WRITE_PROT:
		cause = CauseStoreAccess
	case cpu.MEM_FETCH_UNMAPPED, cpu.MEM_FETCH_PROT:
		cause = CauseInstrAccess
	default:
		cause = CauseLoadAccess
	}
	return &Trap{Cause: cause, Value: err.Addr, Msg: err.Error()}
}
