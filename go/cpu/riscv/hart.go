package riscv

import (
	"context"
	"io/ioutil"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/rvcorn/rvcorn/go/models"
	"github.com/rvcorn/rvcorn/go/models/cpu"
)

// ErrDroppedOff ends a run normally: the program counter reached a text word
// that was never written.
var ErrDroppedOff = errors.New("dropped off bottom")

// Recorder groups the mutations of one step so they can be undone together.
type Recorder interface {
	cpu.Journal
	Begin(hart int, pc uint64)
	End()
	Discard()
}

type Syscaller interface {
	Syscall(h *Hart) error
}

type SyscallFunc func(h *Hart) error

func (f SyscallFunc) Syscall(h *Hart) error { return f(h) }

// Hart is one instruction execution context. Memory is shared between harts;
// everything else here is private to the hart.
type Hart struct {
	*cpu.Hooks
	*cpu.Regs
	F   *FRegs
	CSR *CSRFile
	Mem *cpu.Mem

	ID     int
	XLEN   int
	ISA    *InstructionSet
	Layout *models.MemoryConfig
	Sys    Syscaller
	Log    logrus.FieldLogger

	pc    uint64
	entry uint64
	next  uint64
	rec   Recorder
	cache map[uint64]*Statement
	ctx   context.Context

	reserved    bool
	reservation uint64

	exitRequest int32
	// interrupt bits posted from other goroutines, moved into uip by Step
	pending uint32
}

func NewHart(id int, isa *InstructionSet, mem *cpu.Mem, layout *models.MemoryConfig) *Hart {
	discard := logrus.New()
	discard.Out = ioutil.Discard
	h := &Hart{
		Regs:   cpu.NewRegs(uint(isa.XLEN), cpu.REG_INT, regNames),
		F:      NewFRegs(),
		CSR:    NewCSRFile(isa.XLEN),
		Mem:    mem,
		ID:     id,
		XLEN:   isa.XLEN,
		ISA:    isa,
		Layout: layout,
		Log:    discard,
		entry:  layout.TextBase,
		cache:  make(map[uint64]*Statement),
		ctx:    context.Background(),
	}
	h.Regs.Zero = ZERO
	h.Regs.SetReset(SP, layout.StackPointer)
	h.Regs.SetReset(GP, layout.GlobalPointer)
	h.Hooks = cpu.NewHooks(h, nil)
	h.Regs.SetHooks(h.Hooks)
	h.F.SetHooks(h.Hooks)
	h.CSR.SetHooks(h.Hooks)
	h.Reset()
	return h
}

// SetRecorder routes every register, csr and memory change through r. nil disables recording.
func (h *Hart) SetRecorder(r Recorder) {
	h.rec = r
	var j cpu.Journal
	if r != nil {
		j = r
	}
	h.Regs.Journal = j
	h.F.Journal = j
	h.CSR.Journal = j
}

func (h *Hart) Journal() cpu.Journal {
	if h.rec == nil {
		return nil
	}
	return h.rec
}

func (h *Hart) SetContext(ctx context.Context) { h.ctx = ctx }

// Done is closed when the current run is cancelled.
func (h *Hart) Done() <-chan struct{} { return h.ctx.Done() }

func (h *Hart) HartID() int { return h.ID }

func (h *Hart) Bits() uint { return uint(h.XLEN) }

func (h *Hart) Memory() *cpu.Mem { return h.Mem }

func (h *Hart) PC() uint64 { return h.pc }

func (h *Hart) SetPC(pc uint64) {
	h.pc = pc & h.Regs.Mask()
	h.OnReg(cpu.REG_PC, 0, h.pc)
}

// SetEntry changes the address Reset puts in the program counter.
func (h *Hart) SetEntry(pc uint64) {
	h.entry = pc
}

// Retired counts committed steps. It follows instret, so backstep rewinds it.
func (h *Hart) Retired() uint64 { return h.CSR.raw(CSR_INSTRET) }

func (h *Hart) Reg(enum int) uint64 { return h.Regs.Get(enum) }

func (h *Hart) SetReg(enum int, val uint64) error {
	_, err := h.Regs.Update(enum, val)
	return err
}

func (h *Hart) Float32(i int) float32 { return h.F.Float32(uint8(i)) }

func (h *Hart) Float64(i int) float64 { return h.F.Float64(uint8(i)) }

func (h *Hart) SetFloat32(i int, v float32) error { return h.F.SetFloat32(uint8(i), v) }

func (h *Hart) SetFloat64(i int, v float64) error { return h.F.SetFloat64(uint8(i), v) }

// RestoreReg puts a register of any file back without journaling.
func (h *Hart) RestoreReg(file, enum int, val uint64) error {
	switch file {
	case cpu.REG_INT:
		return h.Regs.Restore(enum, val)
	case cpu.REG_FLOAT:
		return h.F.Restore(enum, val)
	case cpu.REG_CSR:
		return h.CSR.Restore(uint16(enum), val)
	case cpu.REG_PC:
		h.SetPC(val)
		return nil
	}
	return errors.Errorf("unknown register file %d", file)
}

// Reset restores every register to its reset value and forgets decoded statements.
func (h *Hart) Reset() {
	h.Regs.Reset()
	h.F.Reset()
	h.CSR.Reset()
	h.SetPC(h.entry)
	h.cache = make(map[uint64]*Statement)
	h.reserved = false
	atomic.StoreInt32(&h.exitRequest, 0)
	atomic.StoreUint32(&h.pending, 0)
}

// Raise posts a pending interrupt. It is safe to call while the hart runs on
// another goroutine; the bit reaches uip at the start of the next step.
func (h *Hart) Raise(cause Cause) {
	bit := uint32(1) << uint(cause)
	for {
		old := atomic.LoadUint32(&h.pending)
		if atomic.CompareAndSwapUint32(&h.pending, old, old|bit) {
			return
		}
	}
}

func (h *Hart) takePending() {
	if bits := atomic.SwapUint32(&h.pending, 0); bits != 0 {
		h.CSR.SetBits(CSR_UIP, uint64(bits))
	}
}

// Annotate attaches s.Source to the instruction at s.Addr. The instruction is
// decoded again from s.Raw; a Def that disagrees with the encoding is an error.
func (h *Hart) Annotate(s *Statement) error {
	d, err := h.ISA.NewStatement(s.Addr, s.Raw)
	if err != nil {
		if s.Def == nil {
			return nil
		}
		return errors.Wrapf(err, "%s at 0x%x", s.Def.Name, s.Addr)
	}
	if s.Def != nil && s.Def.Name != d.Def.Name {
		return errors.Errorf("%s at 0x%x is encoded as %s (0x%08x)", s.Def.Name, s.Addr, d.Def.Name, s.Raw)
	}
	d.Source = s.Source
	h.cache[s.Addr] = d
	return nil
}

// Statement returns the decoded instruction at addr, or nil if there is none.
func (h *Hart) Statement(addr uint64) *Statement {
	raw, ok := h.Mem.RawWord(addr)
	if !ok {
		return nil
	}
	s, err := h.decode(addr, raw)
	if err != nil {
		return nil
	}
	return s
}

func (h *Hart) decode(addr uint64, raw uint32) (*Statement, error) {
	if s, ok := h.cache[addr]; ok && s.Raw == raw && s.Def != nil {
		return s, nil
	}
	s, err := h.ISA.NewStatement(addr, raw)
	if err != nil {
		return nil, err
	}
	h.cache[addr] = s
	return s, nil
}

// Step executes one instruction, or delivers one trap. A returned *Trap was not
// handled by the guest and ends the run; ErrDroppedOff and models.ExitStatus
// end it normally.
func (h *Hart) Step() error {
	pc := h.pc
	if h.rec != nil {
		h.rec.Begin(h.ID, pc)
	}
	h.takePending()
	stmt, err := h.step(pc)
	if trap, ok := err.(*Trap); ok {
		if trap.Stmt == nil {
			trap.Stmt = stmt
		}
		h.recordTrap(trap, pc)
		if h.deliver(trap, pc) {
			err = nil
		} else if trap.Cause == CauseBreakpoint && !trap.Interrupt && stmt != nil {
			// an unhandled ebreak pauses after the instruction
			h.SetPC(pc + 4)
			h.retire()
			return trap
		} else {
			// nothing retired, but the trap CSRs changed and stay undoable
			if h.rec != nil {
				h.rec.End()
			}
			return trap
		}
	}
	if err != nil {
		if _, exit := models.AsExit(err); exit {
			h.SetPC(h.next)
			h.retire()
			return err
		}
		if h.rec != nil {
			h.rec.Discard()
		}
		return err
	}
	h.retire()
	return nil
}

func (h *Hart) retire() {
	h.CSR.Tick()
	if h.rec != nil {
		h.rec.End()
	}
}

func (h *Hart) step(pc uint64) (*Statement, error) {
	if trap := h.pendingInterrupt(); trap != nil {
		return nil, trap
	}
	raw, present, err := h.Mem.Fetch(pc)
	if err != nil {
		trap := &Trap{Cause: CauseInstrAccess, Value: pc, Msg: err.Error()}
		if merr, ok := err.(*cpu.MemError); ok && merr.Misaligned() {
			trap.Cause = CauseInstrMisaligned
		}
		trap.fatal = true
		return nil, trap
	}
	if !present {
		return nil, ErrDroppedOff
	}
	stmt, err := h.decode(pc, raw)
	if err != nil {
		return nil, err
	}
	h.OnCode(pc, 4)
	h.next = pc + 4
	if err := stmt.Def.Exec(h, stmt); err != nil {
		return stmt, h.translate(stmt, err)
	}
	h.SetPC(h.next)
	return stmt, nil
}

// translate turns failures from the register files and memory into traps.
func (h *Hart) translate(stmt *Statement, err error) error {
	switch e := errors.Cause(err).(type) {
	case *Trap:
		if e.Stmt == nil {
			e.Stmt = stmt
		}
		return e
	case *cpu.MemError:
		trap := memTrap(e)
		trap.Stmt = stmt
		return trap
	}
	switch errors.Cause(err) {
	case ErrUnavailableCsr, ErrReadOnlyCsr:
		return &Trap{Cause: CauseIllegal, Value: uint64(stmt.Raw), Stmt: stmt, Msg: err.Error()}
	}
	return err
}

func (h *Hart) pendingInterrupt() *Trap {
	status, _ := h.CSR.Get(CSR_USTATUS)
	if status&USTATUS_UIE == 0 {
		return nil
	}
	ie, _ := h.CSR.Get(CSR_UIE)
	ip, _ := h.CSR.Get(CSR_UIP)
	pending := ie & ip
	switch {
	case pending&INT_EXTERNAL != 0:
		return &Trap{Cause: CauseExternalInt, Interrupt: true}
	case pending&INT_SOFTWARE != 0:
		return &Trap{Cause: CauseSoftwareInt, Interrupt: true}
	case pending&INT_TIMER != 0:
		return &Trap{Cause: CauseTimerInt, Interrupt: true}
	}
	return nil
}

// handler reports whether guest code exists at a trap vector target.
func (h *Hart) handler(addr uint64) bool {
	if !h.Layout.InText(addr) {
		return false
	}
	_, ok := h.Mem.RawWord(addr)
	return ok
}

// recordTrap writes ucause, uepc and utval, whether or not a handler runs.
func (h *Hart) recordTrap(trap *Trap, pc uint64) {
	h.CSR.Update(CSR_UCAUSE, trap.Code(h.XLEN))
	h.CSR.Update(CSR_UEPC, pc)
	h.CSR.Update(CSR_UTVAL, trap.Value)
}

// deliver vectors a recorded trap to the guest handler. It returns false,
// leaving pc and ustatus alone, when user interrupts are disabled or no
// handler is installed.
func (h *Hart) deliver(trap *Trap, pc uint64) bool {
	status, _ := h.CSR.Get(CSR_USTATUS)
	if trap.fatal || status&USTATUS_UIE == 0 {
		return false
	}
	tvec, _ := h.CSR.Get(CSR_UTVEC)
	base, mode := tvec&^3, tvec&3
	if mode > 1 {
		return false
	}
	target := base
	if trap.Interrupt && mode == 1 {
		target += 4 * uint64(trap.Cause)
	}
	if !h.handler(target) {
		return false
	}
	code := trap.Code(h.XLEN)
	h.CSR.Update(CSR_USTATUS, status&^USTATUS_UIE|USTATUS_UPIE)
	h.SetPC(target)
	h.Log.WithFields(logrus.Fields{"hart": h.ID, "pc": pc, "cause": code}).Debugf("trap: %v", trap)
	h.OnIntr(code, trap.Value)
	return true
}

// Start runs from begin until the program counter reaches until, an error
// occurs, or Stop is called.
func (h *Hart) Start(begin, until uint64) error {
	atomic.StoreInt32(&h.exitRequest, 0)
	h.SetPC(begin)
	for h.pc != until && atomic.LoadInt32(&h.exitRequest) == 0 {
		if err := h.Step(); err != nil {
			return err
		}
	}
	return nil
}

func (h *Hart) Stop() error {
	atomic.StoreInt32(&h.exitRequest, 1)
	return nil
}

func (h *Hart) ContextSave(reuse interface{}) (interface{}, error) {
	return h.Regs.ContextSave(reuse)
}

func (h *Hart) ContextRestore(ctx interface{}) error {
	return h.Regs.ContextRestore(ctx)
}

// RegDump lists the program counter, the integer registers and the float
// registers. Float registers are left out of the default view.
func (h *Hart) RegDump() []models.RegVal {
	out := make([]models.RegVal, 0, 1+h.Regs.Len()+h.F.Len())
	out = append(out, models.RegVal{Reg: models.Reg{File: cpu.REG_PC, Name: "pc"}, Val: h.pc, Default: true})
	for i := 1; i < h.Regs.Len(); i++ {
		out = append(out, models.RegVal{
			Reg:     models.Reg{File: cpu.REG_INT, Enum: i, Name: h.Regs.Name(i)},
			Val:     h.Regs.Get(i),
			Default: true,
		})
	}
	for i := 0; i < h.F.Len(); i++ {
		out = append(out, models.RegVal{
			Reg: models.Reg{File: cpu.REG_FLOAT, Enum: i, Name: h.F.Name(i)},
			Val: h.F.Get(i),
		})
	}
	return out
}

// State captures the hart for a savestate.
func (h *Hart) State() models.HartState {
	s := models.HartState{ID: uint16(h.ID), PC: h.pc}
	for i := 0; i < h.Regs.Len(); i++ {
		s.Regs = append(s.Regs, h.Regs.Get(i))
	}
	for i := 0; i < h.F.Len(); i++ {
		s.F = append(s.F, h.F.Get(i))
	}
	csrs := h.CSR.Snapshot()
	for _, num := range h.CSR.Backing() {
		s.CSR = append(s.CSR, models.CSRState{Num: num, Val: csrs[num]})
	}
	return s
}

// LoadState restores a hart captured by State. Nothing is journaled and the
// decode cache is cleared.
func (h *Hart) LoadState(s models.HartState) error {
	if len(s.Regs) != h.Regs.Len() || len(s.F) != h.F.Len() {
		return errors.Errorf("savestate hart %d has %d/%d registers, want %d/%d", s.ID, len(s.Regs), len(s.F), h.Regs.Len(), h.F.Len())
	}
	for i, v := range s.Regs {
		if err := h.Regs.Restore(i, v); err != nil {
			return err
		}
	}
	for i, v := range s.F {
		if err := h.F.Restore(i, v); err != nil {
			return err
		}
	}
	for _, c := range s.CSR {
		if err := h.CSR.Restore(c.Num, c.Val); err != nil {
			return errors.Wrapf(err, "csr 0x%x", c.Num)
		}
	}
	h.SetPC(s.PC)
	h.cache = make(map[uint64]*Statement)
	h.reserved = false
	return nil
}
