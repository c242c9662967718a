package cpu

// This interface abstracts the minimum functionality tooling requires from a simulated hart.
type Cpu interface {
	// register IO
	RegRead(reg int) (uint64, error)
	RegWrite(reg int, val uint64) error
	PC() uint64

	// execution
	Step() error
	Stop() error

	// hooks
	HookAdd(htype int, cb interface{}, begin, end uint64) (Hook, error)
	HookDel(hook Hook) error

	// save/restore register state
	ContextSave(reuse interface{}) (interface{}, error)
	ContextRestore(ctx interface{}) error
}
