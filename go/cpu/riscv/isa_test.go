package riscv

import (
	"testing"

	"github.com/rvcorn/rvcorn/go/models"
)

func TestCatalogCompiles(t *testing.T) {
	for _, xlen := range []int{32, 64} {
		isa, err := NewInstructionSet(xlen)
		if err != nil {
			t.Fatalf("RV%d: %v", xlen, err)
		}
		if isa.Lookup("addi") == nil || isa.Lookup("fadd.s") == nil || isa.Lookup("amoadd.w") == nil {
			t.Errorf("RV%d: missing core instructions", xlen)
		}
	}
	if _, err := NewInstructionSet(16); err == nil {
		t.Error("accepted XLEN 16")
	}
}

func TestCatalogXLEN(t *testing.T) {
	rv32, _ := NewInstructionSet(32)
	rv64, _ := NewInstructionSet(64)
	for _, name := range []string{"ld", "sd", "addiw", "lr.d", "fcvt.l.s"} {
		if rv32.Lookup(name) != nil {
			t.Errorf("RV32 has %s", name)
		}
		if rv64.Lookup(name) == nil {
			t.Errorf("RV64 lacks %s", name)
		}
	}
	if rv64.Lookup("slli").Template == rv32.Lookup("slli").Template {
		t.Error("slli shares one shift amount width across XLENs")
	}
}

func TestOverlapRejected(t *testing.T) {
	catalog := []*Definition{
		{Name: "one", Template: "iiiiiiiiiiii sssss 000 fffff 0010011"},
		{Name: "two", Template: "000000000000 sssss 000 fffff 0010011"},
	}
	_, err := NewInstructionSetFrom(32, catalog)
	if _, ok := models.AsConfig(err); !ok {
		t.Fatalf("expected a config error, got %v", err)
	}
	// the opcode must be fixed
	_, err = NewInstructionSetFrom(32, []*Definition{{Name: "loose", Template: "0000000000000000000000000 iiiiiii"}})
	if err == nil {
		t.Error("accepted a definition without a fixed opcode")
	}
	_, err = NewInstructionSetFrom(32, []*Definition{{Name: "short", Template: "0000 0010011"}})
	if err == nil {
		t.Error("accepted a short template")
	}
}

var decodeTests = []struct {
	raw  uint32
	xlen int
	name string
	text string
}{
	{0xfff28293, 32, "addi", "addi t0, t0, -1"},
	{0x02b50533, 32, "mul", "mul a0, a0, a1"},
	{0x0002a303, 32, "lw", "lw t1, 0(t0)"},
	{0x0062a223, 32, "sw", "sw t1, 4(t0)"},
	{0x003170d3, 32, "fadd.s", "fadd.s ft1, ft2, ft3"},
	{0xc0002573, 32, "csrrs", "csrrs a0, cycle, zero"},
	{insEcall, 32, "ecall", "ecall"},
	{insEbreak, 64, "ebreak", "ebreak"},
	{insUret, 32, "uret", "uret"},
	{0x0002b303, 64, "ld", "ld t1, 0(t0)"},
	{0x100526af, 32, "lr.w", "lr.w a3, (a0)"},
}

func TestDecode(t *testing.T) {
	for _, test := range decodeTests {
		isa, _ := NewInstructionSet(test.xlen)
		s, err := isa.NewStatement(0, test.raw)
		if err != nil {
			t.Errorf("%#08x: %v", test.raw, err)
			continue
		}
		if s.Def.Name != test.name {
			t.Errorf("%#08x: decoded as %s, want %s", test.raw, s.Def.Name, test.name)
		}
		if s.String() != test.text {
			t.Errorf("%#08x: %q != %q", test.raw, s.String(), test.text)
		}
	}
}

func TestDecodeIllegal(t *testing.T) {
	rv32, _ := NewInstructionSet(32)
	for _, raw := range []uint32{0, 0xffffffff, 0x0002b303} {
		_, err := rv32.Decode(raw)
		trap, ok := err.(*Trap)
		if !ok || trap.Cause != CauseIllegal || trap.Value != uint64(raw) {
			t.Errorf("%#08x: %v", raw, err)
		}
	}
}

func TestImmediates(t *testing.T) {
	if v := immB(btype(-8, 0, 0, 0)); v != -8 {
		t.Errorf("branch immediate: %d", v)
	}
	if v := immJ(jtype(0x7fe, 0)); v != 0x7fe {
		t.Errorf("jump immediate: %d", v)
	}
	if v := immS(stype(-100, 0, 0, 0, OP_STORE)); v != -100 {
		t.Errorf("store immediate: %d", v)
	}
	if v := immU(utype(0xfffff, 0, OP_LUI)); v != -4096 {
		t.Errorf("upper immediate: %d", v)
	}
}

func BenchmarkDecode(b *testing.B) {
	isa, _ := NewInstructionSet(32)
	for i := 0; i < b.N; i++ {
		isa.Decode(0x003170d3)
	}
}
