package riscv

// integer registers
const (
	ZERO = iota
	RA
	SP
	GP
	TP
	T0
	T1
	T2
	S0
	S1
	A0
	A1
	A2
	A3
	A4
	A5
	A6
	A7
	S2
	S3
	S4
	S5
	S6
	S7
	S8
	S9
	S10
	S11
	T3
	T4
	T5
	T6
)

var regNames = []string{
	"zero", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

// floating point argument registers
const (
	FA0 = 10
	FA1 = 11
)

var fregNames = []string{
	"ft0", "ft1", "ft2", "ft3", "ft4", "ft5", "ft6", "ft7",
	"fs0", "fs1", "fa0", "fa1", "fa2", "fa3", "fa4", "fa5",
	"fa6", "fa7", "fs2", "fs3", "fs4", "fs5", "fs6", "fs7",
	"fs8", "fs9", "fs10", "fs11", "ft8", "ft9", "ft10", "ft11",
}

// control and status registers
const (
	CSR_USTATUS  = 0x000
	CSR_FFLAGS   = 0x001
	CSR_FRM      = 0x002
	CSR_FCSR     = 0x003
	CSR_UIE      = 0x004
	CSR_UTVEC    = 0x005
	CSR_USCRATCH = 0x040
	CSR_UEPC     = 0x041
	CSR_UCAUSE   = 0x042
	CSR_UTVAL    = 0x043
	CSR_UIP      = 0x044

	CSR_CYCLE    = 0xC00
	CSR_TIME     = 0xC01
	CSR_INSTRET  = 0xC02
	CSR_CYCLEH   = 0xC80
	CSR_TIMEH    = 0xC81
	CSR_INSTRETH = 0xC82
)

// ustatus bits
const (
	USTATUS_UIE  = 0x1
	USTATUS_UPIE = 0x10
)

// uie / uip bits
const (
	INT_SOFTWARE = 0x1
	INT_TIMER    = 0x10
	INT_EXTERNAL = 0x100
)

// fflags bits
const (
	FLAG_NX = 0x1
	FLAG_UF = 0x2
	FLAG_OF = 0x4
	FLAG_DZ = 0x8
	FLAG_NV = 0x10
)

// rounding modes
const (
	RM_RNE = 0
	RM_RTZ = 1
	RM_RDN = 2
	RM_RUP = 3
	RM_RMM = 4
	RM_DYN = 7
)

// major opcodes
const (
	OP_LOAD     = 0x03
	OP_LOAD_FP  = 0x07
	OP_MISC_MEM = 0x0f
	OP_IMM      = 0x13
	OP_AUIPC    = 0x17
	OP_IMM_32   = 0x1b
	OP_STORE    = 0x23
	OP_STORE_FP = 0x27
	OP_AMO      = 0x2f
	OP_OP       = 0x33
	OP_LUI      = 0x37
	OP_OP_32    = 0x3b
	OP_MADD     = 0x43
	OP_MSUB     = 0x47
	OP_NMSUB    = 0x4b
	OP_NMADD    = 0x4f
	OP_FP       = 0x53
	OP_BRANCH   = 0x63
	OP_JALR     = 0x67
	OP_JAL      = 0x6f
	OP_SYSTEM   = 0x73
)

// RegByName resolves an ABI name ("t0") or a numeric name ("x5") to an integer register.
func RegByName(name string) (int, bool) {
	for i, n := range regNames {
		if n == name {
			return i, true
		}
	}
	if name == "fp" {
		return S0, true
	}
	return numbered(name, "x")
}

// FRegByName resolves "fa0" or "f10" to a floating point register.
func FRegByName(name string) (int, bool) {
	for i, n := range fregNames {
		if n == name {
			return i, true
		}
	}
	return numbered(name, "f")
}

func numbered(name, prefix string) (int, bool) {
	if len(name) < 2 || len(name) > 3 || name[:1] != prefix {
		return 0, false
	}
	n := 0
	for _, c := range name[1:] {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	if n > 31 || (len(name) == 3 && name[1] == '0') {
		return 0, false
	}
	return n, true
}

func RegName(i int) string {
	if i < 0 || i >= len(regNames) {
		return "?"
	}
	return regNames[i]
}

func FRegName(i int) string {
	if i < 0 || i >= len(fregNames) {
		return "?"
	}
	return fregNames[i]
}
