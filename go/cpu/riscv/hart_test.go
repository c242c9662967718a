package riscv

import (
	"fmt"
	"math"
	"testing"

	"github.com/rvcorn/rvcorn/go/models"
	"github.com/rvcorn/rvcorn/go/models/cpu"
)

func TestAddiDecrement(t *testing.T) {
	h := newHart(t, 32)
	program(t, h, 0, addi(T0, T0, -1))
	h.SetReg(T0, 5)
	steps(t, h, 1)
	if v := h.Reg(T0); v != 4 {
		t.Errorf("t0 = %d, want 4", v)
	}
	if h.PC() != 4 {
		t.Errorf("pc = %#x, want 4", h.PC())
	}
	if h.Retired() != 1 {
		t.Errorf("retired %d instructions", h.Retired())
	}
}

func TestDroppedOff(t *testing.T) {
	h := newHart(t, 32)
	program(t, h, 0, addi(T0, T0, 1))
	steps(t, h, 1)
	if err := h.Step(); err != ErrDroppedOff {
		t.Fatalf("expected ErrDroppedOff, got %v", err)
	}
	if h.PC() != 4 || h.Reg(T0) != 1 {
		t.Error("dropping off changed state")
	}
}

func TestResetValues(t *testing.T) {
	h := newHart(t, 32)
	if h.Reg(SP) != h.Layout.StackPointer || h.Reg(GP) != h.Layout.GlobalPointer {
		t.Errorf("sp %#x gp %#x", h.Reg(SP), h.Reg(GP))
	}
	h.SetReg(ZERO, 5)
	if h.Reg(ZERO) != 0 {
		t.Error("zero register was written")
	}
}

var aluTests = []struct {
	xlen int
	name string
	ins  uint32
	a, b uint64
	want uint64
}{
	{32, "add", rtype(0, A1, A0, 0, A2, OP_OP), 7, 0xfffffffd, 4},
	{32, "sub", rtype(0x20, A1, A0, 0, A2, OP_OP), 0, 1, 0xffffffff},
	{32, "sra", rtype(0x20, A1, A0, 5, A2, OP_OP), 0x80000000, 4, 0xf8000000},
	{32, "srl", rtype(0, A1, A0, 5, A2, OP_OP), 0x80000000, 36, 0x08000000},
	{32, "slt", rtype(0, A1, A0, 2, A2, OP_OP), 0xffffffff, 0, 1},
	{32, "sltu", rtype(0, A1, A0, 3, A2, OP_OP), 0xffffffff, 0, 0},
	{32, "mul", rtype(1, A1, A0, 0, A2, OP_OP), 0x10000, 0x10001, 0x10000},
	{32, "mulh", rtype(1, A1, A0, 1, A2, OP_OP), 0x80000000, 0x80000000, 0x40000000},
	{32, "mulhu", rtype(1, A1, A0, 3, A2, OP_OP), 0xffffffff, 0xffffffff, 0xfffffffe},
	{32, "div by zero", rtype(1, A1, A0, 4, A2, OP_OP), 7, 0, 0xffffffff},
	{32, "divu by zero", rtype(1, A1, A0, 5, A2, OP_OP), 7, 0, 0xffffffff},
	{32, "rem by zero", rtype(1, A1, A0, 6, A2, OP_OP), 7, 0, 7},
	{32, "div overflow", rtype(1, A1, A0, 4, A2, OP_OP), 0x80000000, 0xffffffff, 0x80000000},
	{32, "rem overflow", rtype(1, A1, A0, 6, A2, OP_OP), 0x80000000, 0xffffffff, 0},
	{32, "lui", utype(0x12345, A2, OP_LUI), 0, 0, 0x12345000},
	{32, "auipc", utype(1, A2, OP_AUIPC), 0, 0, 0x1000},
	{32, "sltiu", itype(-1, A0, 3, A2, OP_IMM), 5, 0, 1},
	{32, "srai", itype(0x400|31, A0, 5, A2, OP_IMM), 0x80000000, 0, 0xffffffff},
	{64, "addw", rtype(0, A1, A0, 0, A2, OP_OP_32), 0x7fffffff, 1, 0xffffffff80000000},
	{64, "addiw", itype(-1, A0, 0, A2, OP_IMM_32), 0, 0, 0xffffffffffffffff},
	{64, "slli", itype(33, A0, 1, A2, OP_IMM), 1, 0, 1 << 33},
	{64, "srl", rtype(0, A1, A0, 5, A2, OP_OP), 1 << 63, 63, 1},
	{64, "mulh", rtype(1, A1, A0, 1, A2, OP_OP), math.MaxUint64, math.MaxUint64, 0},
	{64, "mulhsu", rtype(1, A1, A0, 2, A2, OP_OP), math.MaxUint64, math.MaxUint64, math.MaxUint64},
	{64, "divw by zero", rtype(1, A1, A0, 4, A2, OP_OP_32), 7, 0, math.MaxUint64},
	{64, "remuw", rtype(1, A1, A0, 7, A2, OP_OP_32), 0xffffffff, 0x10, 0xf},
}

func TestALU(t *testing.T) {
	for _, test := range aluTests {
		h := newHart(t, test.xlen)
		program(t, h, 0, test.ins)
		h.SetReg(A0, test.a)
		h.SetReg(A1, test.b)
		if err := h.Step(); err != nil {
			t.Errorf("RV%d %s: %v", test.xlen, test.name, err)
			continue
		}
		if v := h.Reg(A2); v != test.want {
			t.Errorf("RV%d %s: %#x, want %#x", test.xlen, test.name, v, test.want)
		}
	}
}

func TestJumps(t *testing.T) {
	h := newHart(t, 32)
	program(t, h, 0,
		jtype(8, RA),
		0,
		btype(-8, ZERO, ZERO, 0),
	)
	steps(t, h, 1)
	if h.PC() != 8 || h.Reg(RA) != 4 {
		t.Fatalf("jal: pc %#x ra %#x", h.PC(), h.Reg(RA))
	}
	steps(t, h, 1)
	if h.PC() != 0 {
		t.Fatalf("beq: pc %#x", h.PC())
	}

	// jalr clears bit 0 but a target aligned only to 2 still faults
	h = newHart(t, 32)
	program(t, h, 0, itype(0, A0, 0, RA, OP_JALR))
	h.SetReg(A0, 3)
	trap := asTrap(t, h.Step())
	if trap.Cause != CauseInstrMisaligned || trap.Value != 2 {
		t.Errorf("jalr: %v", trap)
	}
	if h.Reg(RA) != 0 || h.PC() != 0 {
		t.Error("faulting jalr changed state")
	}
}

func TestLoadStore(t *testing.T) {
	h := newHart(t, 32)
	program(t, h, 0,
		stype(4, T1, T0, 2, OP_STORE),
		itype(4, T0, 2, T2, OP_LOAD),
		itype(4, T0, 0, T3, OP_LOAD),
		itype(4, T0, 4, T4, OP_LOAD),
		itype(6, T0, 1, T5, OP_LOAD),
	)
	h.SetReg(T0, 0x1000)
	h.SetReg(T1, 0xdeadbeef)
	steps(t, h, 5)
	want := map[int]uint64{T2: 0xdeadbeef, T3: 0xffffffef, T4: 0xef, T5: 0xffffdead}
	for reg, v := range want {
		if h.Reg(reg) != v {
			t.Errorf("%s = %#x, want %#x", RegName(reg), h.Reg(reg), v)
		}
	}
}

var memFaultTests = []struct {
	name  string
	ins   uint32
	base  uint64
	cause Cause
	value uint64
}{
	{"store to text", stype(0, T1, T0, 2, OP_STORE), 0x0, CauseStoreAccess, 0x0},
	{"misaligned load", itype(0, T0, 2, T2, OP_LOAD), 0x1001, CauseLoadMisaligned, 0x1001},
	{"misaligned store", stype(0, T1, T0, 1, OP_STORE), 0x1003, CauseStoreMisaligned, 0x1003},
	{"unmapped load", itype(0, T0, 2, T2, OP_LOAD), 0x9000, CauseLoadAccess, 0x9000},
	{"unmapped store", stype(0, T1, T0, 0, OP_STORE), 0x9000, CauseStoreAccess, 0x9000},
}

func TestMemoryFaults(t *testing.T) {
	for _, test := range memFaultTests {
		h := newHart(t, 32)
		program(t, h, 0, test.ins)
		h.SetReg(T0, test.base)
		h.SetReg(T1, 0x55)
		err := h.Step()
		trap, ok := err.(*Trap)
		if !ok {
			t.Errorf("%s: expected a trap, got %v", test.name, err)
			continue
		}
		if trap.Cause != test.cause || trap.Value != test.value {
			t.Errorf("%s: cause %d value %#x", test.name, trap.Cause, trap.Value)
		}
		if trap.Stmt == nil || trap.Stmt.Addr != 0 {
			t.Errorf("%s: trap lost its statement", test.name)
		}
		if h.PC() != 0 || h.Reg(T2) != 0 || h.Retired() != 0 {
			t.Errorf("%s: faulting instruction changed state", test.name)
		}
	}
}

func TestFetchFault(t *testing.T) {
	h := newHart(t, 32)
	h.SetPC(0x1000)
	h.CSR.Update(CSR_USTATUS, USTATUS_UIE)
	h.CSR.Update(CSR_UTVEC, 0x100)
	program(t, h, 0x100, insUret)
	trap := asTrap(t, h.Step())
	if trap.Cause != CauseInstrAccess {
		t.Errorf("fetch from data: %v", trap)
	}
	if h.PC() != 0x1000 {
		t.Error("fetch fault was delivered to a handler")
	}
}

func TestTrapDelivery(t *testing.T) {
	h := newHart(t, 32)
	program(t, h, 0, itype(0, T0, 2, T2, OP_LOAD))
	program(t, h, 0x100, insUret)
	h.SetReg(T0, 0x9000)
	h.CSR.Update(CSR_UTVEC, 0x100)
	h.CSR.Update(CSR_USTATUS, USTATUS_UIE)
	steps(t, h, 1)
	if h.PC() != 0x100 {
		t.Fatalf("pc %#x, want handler", h.PC())
	}
	csrs := map[uint16]uint64{
		CSR_UCAUSE:  uint64(CauseLoadAccess),
		CSR_UEPC:    0,
		CSR_UTVAL:   0x9000,
		CSR_USTATUS: USTATUS_UPIE,
	}
	for num, want := range csrs {
		if v, _ := h.CSR.Get(num); v != want {
			t.Errorf("%s = %#x, want %#x", CSRName(num), v, want)
		}
	}
	steps(t, h, 1)
	if h.PC() != 0 {
		t.Errorf("uret returned to %#x", h.PC())
	}
	if v, _ := h.CSR.Get(CSR_USTATUS); v != USTATUS_UIE|USTATUS_UPIE {
		t.Errorf("ustatus after uret: %#x", v)
	}
}

func TestTrapWithoutHandler(t *testing.T) {
	h := newHart(t, 32)
	program(t, h, 0, itype(0, T0, 2, T2, OP_LOAD))
	h.SetReg(T0, 0x9000)
	h.CSR.Update(CSR_USTATUS, USTATUS_UIE)
	// nothing is written at the vector
	h.CSR.Update(CSR_UTVEC, 0x200)
	asTrap(t, h.Step())
	csrs := map[uint16]uint64{
		CSR_UCAUSE:  uint64(CauseLoadAccess),
		CSR_UEPC:    0,
		CSR_UTVAL:   0x9000,
		CSR_USTATUS: USTATUS_UIE,
	}
	for num, want := range csrs {
		if v, _ := h.CSR.Get(num); v != want {
			t.Errorf("%s = %#x, want %#x", CSRName(num), v, want)
		}
	}
	if h.PC() != 0 || h.Retired() != 0 {
		t.Errorf("unhandled trap moved pc to %#x", h.PC())
	}
	// invalid vector mode
	h.CSR.Update(CSR_UTVEC, 0x202)
	program(t, h, 0x200, insUret)
	asTrap(t, h.Step())
}

func TestInterruptPriority(t *testing.T) {
	tests := []struct {
		pending uint64
		target  uint64
		cause   Cause
	}{
		{INT_EXTERNAL | INT_SOFTWARE | INT_TIMER, 0x120, CauseExternalInt},
		{INT_SOFTWARE | INT_TIMER, 0x100, CauseSoftwareInt},
		{INT_TIMER, 0x110, CauseTimerInt},
	}
	for _, test := range tests {
		h := newHart(t, 32)
		program(t, h, 0, addi(ZERO, ZERO, 0))
		program(t, h, 0x100, addi(ZERO, ZERO, 0), 0, 0, 0, addi(ZERO, ZERO, 0), 0, 0, 0, addi(ZERO, ZERO, 0))
		h.CSR.Update(CSR_UTVEC, 0x100|1)
		h.CSR.Update(CSR_UIE, INT_EXTERNAL|INT_SOFTWARE|INT_TIMER)
		h.CSR.Update(CSR_UIP, test.pending)
		h.CSR.Update(CSR_USTATUS, USTATUS_UIE)
		steps(t, h, 1)
		if h.PC() != test.target {
			t.Errorf("pending %#x: vectored to %#x, want %#x", test.pending, h.PC(), test.target)
		}
		if v, _ := h.CSR.Get(CSR_UCAUSE); v != uint64(test.cause)|1<<31 {
			t.Errorf("pending %#x: ucause %#x", test.pending, v)
		}
		if v, _ := h.CSR.Get(CSR_UEPC); v != 0 {
			t.Errorf("pending %#x: uepc %#x", test.pending, v)
		}
	}
}

func TestRaise(t *testing.T) {
	h := newHart(t, 32)
	program(t, h, 0, addi(ZERO, ZERO, 0), addi(ZERO, ZERO, 0))
	program(t, h, 0x100, addi(ZERO, ZERO, 0))
	h.CSR.Update(CSR_UTVEC, 0x100)
	h.CSR.Update(CSR_UIE, INT_TIMER)
	h.Raise(CauseTimerInt)
	if v, _ := h.CSR.Get(CSR_UIP); v != 0 {
		t.Fatalf("uip %#x before a step", v)
	}
	// interrupts are disabled, the bit only becomes pending
	steps(t, h, 1)
	if v, _ := h.CSR.Get(CSR_UIP); v != INT_TIMER || h.PC() != 4 {
		t.Fatalf("uip %#x pc %#x", v, h.PC())
	}
	h.CSR.Update(CSR_USTATUS, USTATUS_UIE)
	steps(t, h, 1)
	if h.PC() != 0x100 {
		t.Errorf("pc %#x, want handler", h.PC())
	}
	h.Raise(CauseSoftwareInt)
	h.Reset()
	if h.pending != 0 {
		t.Error("reset kept a posted interrupt")
	}
}

func TestEbreakPauses(t *testing.T) {
	h := newHart(t, 32)
	program(t, h, 0, insEbreak)
	trap := asTrap(t, h.Step())
	if trap.Cause != CauseBreakpoint || trap.Value != 0 {
		t.Errorf("ebreak: %v", trap)
	}
	if h.PC() != 4 || h.Retired() != 1 {
		t.Errorf("ebreak did not retire: pc %#x", h.PC())
	}
}

func TestEcall(t *testing.T) {
	h := newHart(t, 32)
	program(t, h, 0, insEcall, insEcall)
	trap := asTrap(t, h.Step())
	if trap.Cause != CauseEcall {
		t.Errorf("ecall without handler: %v", trap)
	}

	h.Sys = SyscallFunc(func(h *Hart) error {
		if h.Reg(A7) == 10 {
			return models.ExitStatus(3)
		}
		return h.SetReg(A0, 42)
	})
	steps(t, h, 1)
	if h.Reg(A0) != 42 || h.PC() != 4 {
		t.Errorf("ecall: a0 %d pc %#x", h.Reg(A0), h.PC())
	}
	h.SetReg(A7, 10)
	err := h.Step()
	if code, ok := models.AsExit(err); !ok || code != 3 {
		t.Errorf("exit: %v", err)
	}
	if h.PC() != 8 {
		t.Error("exit did not commit the instruction")
	}
}

func TestCSRInstructions(t *testing.T) {
	h := newHart(t, 32)
	program(t, h, 0,
		csrtype(CSR_FRM, 3, 5, ZERO),
		csrtype(CSR_CYCLE, ZERO, 2, A0),
		csrtype(CSR_FCSR, ZERO, 2, A1),
		csrtype(CSR_CYCLE, A0, 1, ZERO),
	)
	steps(t, h, 3)
	if v, _ := h.CSR.Get(CSR_FRM); v != 3 {
		t.Errorf("frm = %d", v)
	}
	if h.Reg(A0) != 1 {
		t.Errorf("cycle read %d, want 1", h.Reg(A0))
	}
	if h.Reg(A1) != 3<<5 {
		t.Errorf("fcsr read %#x", h.Reg(A1))
	}
	trap := asTrap(t, h.Step())
	if trap.Cause != CauseIllegal {
		t.Errorf("write to cycle: %v", trap)
	}

	h64 := newHart(t, 64)
	program(t, h64, 0, csrtype(CSR_CYCLEH, ZERO, 2, A0))
	if trap := asTrap(t, h64.Step()); trap.Cause != CauseIllegal {
		t.Errorf("cycleh on RV64: %v", trap)
	}
}

func fp(f7, rs2, rs1, rm, rd uint32) uint32 { return rtype(f7, rs2, rs1, rm, rd, OP_FP) }

func TestFloat(t *testing.T) {
	h := newHart(t, 32)
	program(t, h, 0,
		fp(0x00, 2, 1, RM_RNE, 3),
		fp(0x0c, 0, 1, RM_DYN, 4),
		fp(0x60, 0, 5, RM_RTZ, A0),
		fp(0x60, 0, 6, RM_RNE, A1),
		fp(0x10, 1, 1, 1, 7),
		1<<27|2<<20|1<<15|3<<7|OP_MADD,
		fp(0x70, 0, 1, 0, A2),
		fp(0x68, 0, A3, RM_RNE, 8),
		fp(0x70, 0, 7, 1, A4),
	)
	h.SetFloat32(0, 0)
	h.SetFloat32(1, 1.5)
	h.SetFloat32(2, 2.25)
	h.F.SetBits32(5, canonicalNaN)
	h.SetFloat32(6, 2.5)
	h.SetReg(A3, 0xfffffff9)

	steps(t, h, 1)
	if v := h.Float32(3); v != 3.75 {
		t.Errorf("fadd.s = %v", v)
	}
	steps(t, h, 1)
	if v := h.Float32(4); !math.IsInf(float64(v), 1) {
		t.Errorf("fdiv.s by zero = %v", v)
	}
	if v, _ := h.CSR.Get(CSR_FFLAGS); v != FLAG_DZ {
		t.Errorf("fflags after divide by zero: %#x", v)
	}
	h.CSR.Update(CSR_FFLAGS, 0)
	steps(t, h, 1)
	if h.Reg(A0) != 0x7fffffff {
		t.Errorf("fcvt.w.s NaN = %#x", h.Reg(A0))
	}
	steps(t, h, 1)
	if h.Reg(A1) != 2 {
		t.Errorf("fcvt.w.s 2.5 = %d", h.Reg(A1))
	}
	if v, _ := h.CSR.Get(CSR_FFLAGS); v != FLAG_NV|FLAG_NX {
		t.Errorf("fflags after conversions: %#x", v)
	}
	steps(t, h, 1)
	if v := h.Float32(7); v != -1.5 {
		t.Errorf("fsgnjn.s = %v", v)
	}
	steps(t, h, 1)
	if v := h.Float32(3); v != 4.875 {
		t.Errorf("fmadd.s = %v", v)
	}
	steps(t, h, 1)
	if h.Reg(A2) != 0x3fc00000 {
		t.Errorf("fmv.x.w = %#x", h.Reg(A2))
	}
	steps(t, h, 1)
	if v := h.Float32(8); v != -7 {
		t.Errorf("fcvt.s.w = %v", v)
	}
	steps(t, h, 1)
	if h.Reg(A4) != 1<<1 {
		t.Errorf("fclass.s -1.5 = %#x", h.Reg(A4))
	}
}

func TestFloatLoadStore(t *testing.T) {
	h := newHart(t, 32)
	program(t, h, 0,
		stype(0, 1, T0, 2, OP_STORE_FP),
		itype(0, T0, 2, 4, OP_LOAD_FP),
	)
	h.SetReg(T0, 0x1000)
	h.SetFloat32(1, -0.5)
	steps(t, h, 2)
	if w, _ := h.Mem.LoadWord(0x1000); w != math.Float32bits(-0.5) {
		t.Errorf("fsw stored %#x", w)
	}
	if v := h.F.Get(4); v != nanBox|uint64(math.Float32bits(-0.5)) {
		t.Errorf("flw did not NaN-box: %#x", v)
	}
}

func TestFloatReservedRounding(t *testing.T) {
	h := newHart(t, 32)
	program(t, h, 0, fp(0, 2, 1, 5, 3))
	if trap := asTrap(t, h.Step()); trap.Cause != CauseIllegal {
		t.Errorf("reserved rm: %v", trap)
	}
}

func TestAtomics(t *testing.T) {
	h := newHart(t, 32)
	program(t, h, 0,
		rtype(0x08, 0, T0, 2, A0, OP_AMO),
		rtype(0x0c, A2, T0, 2, A1, OP_AMO),
		rtype(0x0c, A2, T0, 2, A1, OP_AMO),
		rtype(0x00, A2, T0, 2, A3, OP_AMO),
		rtype(0x40, A4, T0, 2, A5, OP_AMO),
	)
	h.SetReg(T0, 0x1000)
	h.SetReg(A2, 99)
	h.SetReg(A4, 0xffffffff)
	h.Mem.StoreWord(0x1000, 10)
	steps(t, h, 2)
	if h.Reg(A0) != 10 || h.Reg(A1) != 0 {
		t.Fatalf("lr/sc: a0 %d a1 %d", h.Reg(A0), h.Reg(A1))
	}
	steps(t, h, 1)
	if h.Reg(A1) != 1 {
		t.Error("sc succeeded without a reservation")
	}
	steps(t, h, 1)
	if w, _ := h.Mem.LoadWord(0x1000); h.Reg(A3) != 99 || w != 198 {
		t.Errorf("amoadd.w: old %d new %d", h.Reg(A3), w)
	}
	steps(t, h, 1)
	if w, _ := h.Mem.LoadWord(0x1000); h.Reg(A5) != 198 || w != 0xffffffff {
		t.Errorf("amomin.w: old %d new %#x", h.Reg(A5), w)
	}
}

type stepLog struct {
	begins, ends, discards int
	records                []string
}

func (s *stepLog) Begin(hart int, pc uint64) { s.begins++ }
func (s *stepLog) End()                      { s.ends++ }
func (s *stepLog) Discard()                  { s.discards++ }

func (s *stepLog) RecordReg(file, enum int, old uint64) {
	s.records = append(s.records, fmt.Sprintf("reg %d.%d=%#x", file, enum, old))
}

func (s *stepLog) RecordMem(addr uint64, old uint32, present bool) {
	s.records = append(s.records, fmt.Sprintf("mem %#x=%#x %v", addr, old, present))
}

func TestRecorderFrames(t *testing.T) {
	h := newHart(t, 32)
	log := &stepLog{}
	h.SetRecorder(log)
	program(t, h, 0, addi(T0, T0, 1), stype(0, T0, T1, 2, OP_STORE), stype(0, T0, ZERO, 2, OP_STORE))
	h.SetReg(T1, 0x1000)
	log.records = nil
	steps(t, h, 2)
	if log.begins != 2 || log.ends != 2 {
		t.Errorf("frames: %d begun %d ended", log.begins, log.ends)
	}
	want := []string{
		fmt.Sprintf("reg %d.%d=0x0", cpu.REG_INT, T0),
		fmt.Sprintf("reg %d.%d=0x0", cpu.REG_CSR, CSR_CYCLE),
		fmt.Sprintf("reg %d.%d=0x0", cpu.REG_CSR, CSR_INSTRET),
		"mem 0x1000=0x0 false",
	}
	for i, rec := range want {
		if i >= len(log.records) || log.records[i] != rec {
			t.Fatalf("records %q, want prefix %q", log.records, want)
		}
	}
	asTrap(t, h.Step())
	if log.discards != 1 || log.ends != 2 {
		t.Errorf("faulting step: %d discarded %d ended", log.discards, log.ends)
	}
}

func TestCodeHook(t *testing.T) {
	h := newHart(t, 32)
	program(t, h, 0, addi(T0, T0, 1), addi(T0, T0, 1), addi(T0, T0, 1))
	var seen []uint64
	hook, err := h.HookAdd(cpu.HOOK_CODE, func(c cpu.Cpu, addr uint64, size uint32) {
		seen = append(seen, addr)
	}, 4, 8)
	if err != nil {
		t.Fatal(err)
	}
	steps(t, h, 3)
	if len(seen) != 2 || seen[0] != 4 || seen[1] != 8 {
		t.Errorf("code hook saw %#x", seen)
	}
	h.HookDel(hook)
}

func TestStartUntil(t *testing.T) {
	h := newHart(t, 32)
	program(t, h, 0, addi(T0, T0, 1), addi(T0, T0, 1), addi(T0, T0, 1))
	if err := h.Start(0, 8); err != nil {
		t.Fatal(err)
	}
	if h.PC() != 8 || h.Reg(T0) != 2 {
		t.Errorf("pc %#x t0 %d", h.PC(), h.Reg(T0))
	}
	if err := h.Start(8, 0x100); err != ErrDroppedOff {
		t.Errorf("ran past the program: %v", err)
	}
}

func TestSelfModifying(t *testing.T) {
	h := newHart(t, 32)
	if err := h.Mem.SetProt("text", cpu.PROT_ALL); err != nil {
		t.Fatal(err)
	}
	// overwrite the next instruction with addi t0, t0, 5
	program(t, h, 0, stype(4, T1, ZERO, 2, OP_STORE), addi(T0, T0, 1))
	h.SetReg(T1, uint64(addi(T0, T0, 5)))
	if s := h.Statement(4); s == nil || s.Imm != 1 {
		t.Fatal("bad initial decode")
	}
	steps(t, h, 1)
	if s := h.Statement(4); s == nil || s.Imm != 5 {
		t.Fatal("decode cache kept the old instruction")
	}
	steps(t, h, 1)
	if h.Reg(T0) != 5 {
		t.Errorf("t0 = %d", h.Reg(T0))
	}
}

func BenchmarkStep(b *testing.B) {
	h := newHart(b, 32)
	program(b, h, 0, addi(T0, T0, 1), jtype(-4, ZERO))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		h.Step()
	}
}
