package cpu

// hook types
const (
	// hook CPU interrupts and traps
	HOOK_INTR = 1

	// hook each executed instruction
	HOOK_CODE = 4

	// hook each register file write
	HOOK_REG = 16

	// hook (after) each memory read/write
	HOOK_MEM_READ  = 1024
	HOOK_MEM_WRITE = 2048
	HOOK_MEM_FETCH = 4096

	// hook all memory errors
	HOOK_MEM_ERR = 1008
)

// these errors are used for HOOK_MEM_ERR and MemError.Enum
const (
	MEM_READ_UNMAPPED  = 19
	MEM_WRITE_UNMAPPED = 20
	MEM_FETCH_UNMAPPED = 21
	MEM_WRITE_PROT     = 12
	MEM_READ_PROT      = 13
	MEM_FETCH_PROT     = 14
	MEM_READ_ALIGN     = 25
	MEM_WRITE_ALIGN    = 26
	MEM_FETCH_ALIGN    = 27
)

// these constants are used for memory protections
const (
	PROT_NONE  = 0
	PROT_READ  = 1
	PROT_WRITE = 2
	PROT_EXEC  = 4
	PROT_ALL   = 7
)

// these constants are used in a hook to specify the type of memory access
const (
	MEM_WRITE = 16
	MEM_READ  = 17
	MEM_FETCH = 18
)

// register files passed to HOOK_REG callbacks
const (
	REG_INT = iota
	REG_FLOAT
	REG_CSR
	REG_PC
)
