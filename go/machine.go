// Package rvcorn drives one or more RISC-V harts over shared memory: loading
// programs, running and pausing them, breakpoints, and stepping back.
package rvcorn

import (
	"os"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/rvcorn/rvcorn/go/cpu/riscv"
	"github.com/rvcorn/rvcorn/go/loader"
	"github.com/rvcorn/rvcorn/go/models"
	"github.com/rvcorn/rvcorn/go/models/cpu"
	"github.com/rvcorn/rvcorn/go/models/record"
	"github.com/rvcorn/rvcorn/go/syscalls"
)

type State int

const (
	// no program loaded
	StateEmpty State = iota
	StateReady
	StateRunning
	StatePaused
	StateStopped
)

var stateNames = []string{"empty", "ready", "running", "paused", "stopped"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

type Machine struct {
	Config  *models.Config
	Layout  *models.MemoryConfig
	ISA     *riscv.InstructionSet
	Mem     *cpu.Mem
	Harts   []*riscv.Hart
	Kernel  *syscalls.Kernel
	History *record.Backstepper
	Symbols models.Symbols
	Log     logrus.FieldLogger

	mu     sync.Mutex
	state  State
	last   *models.Notice
	cur    int
	// skip the breakpoint check on the first step of the next run
	skipOnce bool
	resume   bool
	image  map[uint64]uint32
	annot  []*riscv.Statement

	breakpoints map[uint64]*models.Breakpoint
	subs        map[int]func(*models.Notice)
	nextSub     int

	// set while a run, step, backstep or reset owns the machine
	busy     int32
	pauseReq int32
	stopReq  int32
	cancel   func()
	done     chan struct{}

	status []*models.StatusDiff
	loops  []*models.LoopDetect
}

// NewMachine builds memory, harts and the syscall kernel from config.
func NewMachine(config *models.Config) (*Machine, error) {
	config.Init()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	isa, err := riscv.NewInstructionSet(config.XLEN)
	if err != nil {
		return nil, err
	}
	layout := config.Memory
	mem, err := cpu.NewMem(uint(config.XLEN), layout.Segments(config.SelfModifyingCode))
	if err != nil {
		return nil, err
	}
	table, err := loadTable(config.SyscallOverrides)
	if err != nil {
		return nil, err
	}
	kernel, err := syscalls.NewKernel(table, config)
	if err != nil {
		return nil, err
	}
	m := &Machine{
		Config:      config,
		Layout:      layout,
		ISA:         isa,
		Mem:         mem,
		Kernel:      kernel,
		History:     record.NewBackstepper(config.Backstep, config.BackstepLimit),
		Log:         config.Log,
		breakpoints: make(map[uint64]*models.Breakpoint),
		subs:        make(map[int]func(*models.Notice)),
	}
	sys := riscv.SyscallFunc(func(h *riscv.Hart) error { return kernel.Dispatch(h) })
	for i := 0; i < config.Harts; i++ {
		h := riscv.NewHart(i, isa, mem, layout)
		h.Sys = sys
		h.Log = config.Log
		h.SetRecorder(m.History)
		m.Harts = append(m.Harts, h)
		m.status = append(m.status, &models.StatusDiff{Src: h})
	}
	if err := m.addTraceHooks(); err != nil {
		return nil, err
	}
	return m, nil
}

func loadTable(path string) (*syscalls.Table, error) {
	var user []syscalls.Override
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, models.NewConfigError("syscalls", "%v", err)
		}
		defer f.Close()
		if user, err = syscalls.ParseOverrides(f); err != nil {
			return nil, err
		}
	}
	return syscalls.DefaultTable(user)
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Last returns the notice that ended the most recent run, or nil.
func (m *Machine) Last() *models.Notice {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

func (m *Machine) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// LoadProgram places assembled statements into text. Each statement keeps
// its source text for display.
func (m *Machine) LoadProgram(stmts []*riscv.Statement) error {
	if !m.acquire() {
		return errors.WithStack(models.ErrIllegalState)
	}
	defer m.release()
	m.Mem.Reset()
	for _, s := range stmts {
		if !m.Layout.InText(s.Addr) {
			return models.NewConfigError("program", "statement at 0x%x is outside text", s.Addr)
		}
		var p [4]byte
		m.Mem.ByteOrder().PutUint32(p[:], s.Raw)
		if err := m.Mem.Poke(s.Addr, p[:]); err != nil {
			return errors.Wrapf(err, "loading statement at 0x%x", s.Addr)
		}
		if err := m.Harts[0].Annotate(s); err != nil {
			return models.NewConfigError("program", "%v", err)
		}
	}
	m.annot = stmts
	m.Symbols = nil
	m.loaded()
	return nil
}

// LoadImage places a parsed image and uses its entry point and symbols.
func (m *Machine) LoadImage(img *loader.Image) error {
	if !m.acquire() {
		return errors.WithStack(models.ErrIllegalState)
	}
	defer m.release()
	if img.Bits != 0 && img.Bits != m.Config.XLEN {
		return models.NewConfigError("loader", "%d-bit image on a %d-bit machine", img.Bits, m.Config.XLEN)
	}
	m.Mem.Reset()
	if err := img.Apply(m.Mem); err != nil {
		return err
	}
	if img.HasEntry {
		for _, h := range m.Harts {
			h.SetEntry(img.Entry)
		}
	}
	m.annot = nil
	m.Symbols = img.Symbols
	m.loaded()
	return nil
}

func (m *Machine) loaded() {
	m.image = m.Mem.Snapshot()
	m.reset()
}

// Reset restores the loaded program and every register, clears history and
// returns to Ready.
func (m *Machine) Reset() error {
	if !m.acquire() {
		return errors.WithStack(models.ErrIllegalState)
	}
	defer m.release()
	if m.State() == StateEmpty {
		return errors.WithStack(models.ErrIllegalState)
	}
	m.reset()
	return nil
}

func (m *Machine) reset() {
	m.Mem.Reset()
	for addr, val := range m.image {
		m.Mem.RestoreWord(addr, val, true)
	}
	m.Kernel.Reset()
	m.History.Clear()
	for i, h := range m.Harts {
		h.Reset()
		for _, s := range m.annot {
			// checked by LoadProgram
			h.Annotate(s)
		}
		m.status[i] = &models.StatusDiff{Src: h}
	}
	m.mu.Lock()
	m.state = StateReady
	m.last = nil
	m.cur = 0
	m.skipOnce = false
	m.mu.Unlock()
}

// Interrupt raises a pending user interrupt on hart. It may be called while
// the machine runs.
func (m *Machine) Interrupt(hart int, cause riscv.Cause) error {
	if hart < 0 || hart >= len(m.Harts) {
		return errors.Errorf("no hart %d", hart)
	}
	if cause >= 32 {
		return errors.Errorf("bad interrupt cause %d", cause)
	}
	m.Harts[hart].Raise(cause)
	return nil
}

// HookAdd registers an observer on memory (HOOK_MEM_*) or on every hart.
func (m *Machine) HookAdd(htype int, cb interface{}, begin, end uint64) ([]cpu.Hook, error) {
	if htype == cpu.HOOK_MEM_ERR || htype&(cpu.HOOK_MEM_READ|cpu.HOOK_MEM_WRITE|cpu.HOOK_MEM_FETCH) != 0 {
		hh, err := m.Mem.HookAdd(htype, cb, begin, end)
		if err != nil {
			return nil, err
		}
		return []cpu.Hook{hh}, nil
	}
	var hooks []cpu.Hook
	for _, h := range m.Harts {
		hh, err := h.HookAdd(htype, cb, begin, end)
		if err != nil {
			m.HookDel(hooks)
			return nil, err
		}
		hooks = append(hooks, hh)
	}
	return hooks, nil
}

func (m *Machine) HookDel(hooks []cpu.Hook) {
	for _, hh := range hooks {
		m.Mem.HookDel(hh)
		for _, h := range m.Harts {
			h.HookDel(hh)
		}
	}
}

// Subscribe calls fn with every run notice. Callbacks must not re-enter the
// machine; doing so returns models.ErrIllegalState.
func (m *Machine) Subscribe(fn func(*models.Notice)) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextSub++
	m.subs[m.nextSub] = fn
	return m.nextSub
}

func (m *Machine) Unsubscribe(id int) {
	m.mu.Lock()
	delete(m.subs, id)
	m.mu.Unlock()
}

func (m *Machine) publish(n *models.Notice) {
	m.mu.Lock()
	subs := make([]func(*models.Notice), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()
	for _, fn := range subs {
		fn(n)
	}
}

func (m *Machine) AddBreakpoint(desc string) (*models.Breakpoint, error) {
	b, err := models.ParseBreakpoint(desc, m.Symbols)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.breakpoints[b.Addr] = b
	m.mu.Unlock()
	return b, nil
}

func (m *Machine) RemoveBreakpoint(addr uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.breakpoints[addr]
	delete(m.breakpoints, addr)
	return ok
}

func (m *Machine) Breakpoints() []*models.Breakpoint {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Breakpoint, 0, len(m.breakpoints))
	for _, b := range m.breakpoints {
		out = append(out, b)
	}
	return out
}

// Symbolicate names addr from the loaded symbols, or returns "".
func (m *Machine) Symbolicate(addr uint64) string {
	return m.Symbols.Symbolicate(addr)
}

// Retired is the total number of committed steps across harts.
func (m *Machine) Retired() uint64 {
	var n uint64
	for _, h := range m.Harts {
		n += h.Retired()
	}
	return n
}

// RestoreReg, RestoreWord and RestorePC implement record.Restorer.
func (m *Machine) RestoreReg(hart, file, enum int, val uint64) error {
	if hart < 0 || hart >= len(m.Harts) {
		return errors.Errorf("no hart %d", hart)
	}
	return m.Harts[hart].RestoreReg(file, enum, val)
}

func (m *Machine) RestoreWord(addr uint64, val uint32, present bool) error {
	return m.Mem.RestoreWord(addr, val, present)
}

func (m *Machine) RestorePC(hart int, pc uint64) error {
	if hart < 0 || hart >= len(m.Harts) {
		return errors.Errorf("no hart %d", hart)
	}
	m.Harts[hart].SetPC(pc)
	return nil
}

var _ record.Restorer = (*Machine)(nil)
