package cpu

import (
	"github.com/pkg/errors"
)

// bunch of wrapper types
type Hook interface{}

// type CodeCb func(Cpu, uint64, uint32)
// type IntrCb func(Cpu, uint64, uint64)
// type RegCb func(Cpu, int, int, uint64)
// type MemCb func(Cpu, int, uint64, int, int64)
// type MemFaultCb func(Cpu, int, uint64, int, int64) bool

type hookInfo struct {
	htype int
	start uint64
	end   uint64
}

func (h *hookInfo) Type() int {
	return h.htype
}

// start > end matches every address, the same convention Unicorn uses
func (h *hookInfo) Contains(addr uint64) bool {
	return h.start > h.end || addr >= h.start && addr <= h.end
}

type hinfo interface {
	Type() int
}

type codeHook struct {
	hookInfo
	cb func(Cpu, uint64, uint32)
}

type intrHook struct {
	hookInfo
	cb func(Cpu, uint64, uint64)
}

type regHook struct {
	hookInfo
	cb func(Cpu, int, int, uint64)
}

type memHook struct {
	hookInfo
	cb func(Cpu, int, uint64, int, int64)
}

type memFaultHook struct {
	hookInfo
	cb func(Cpu, int, uint64, int, int64) bool
}

// Hooks is a set of observer callbacks. Callbacks run synchronously on the
// goroutine that triggered them. A panicking callback is dropped for that event
// and never interrupts the caller.
type Hooks struct {
	cpu Cpu

	code     []*codeHook
	intr     []*intrHook
	reg      []*regHook
	mem      []*memHook
	memFault []*memFaultHook
}

// creates &Hooks{}, optionally attaching to a *Mem instance
func NewHooks(cpu Cpu, mem *Mem) *Hooks {
	h := &Hooks{cpu: cpu}
	if mem != nil {
		// mem will dispatch hooks automatically
		mem.hooks = h
	}
	return h
}

func (h *Hooks) HookAdd(htype int, cb interface{}, start uint64, end uint64) (Hook, error) {
	info := hookInfo{htype, start, end}
	var hook interface{}
	var ok bool
	switch htype {
	case HOOK_CODE:
		hh := &codeHook{hookInfo: info}
		if hh.cb, ok = cb.(func(Cpu, uint64, uint32)); ok {
			h.code, hook = append(h.code, hh), hh
		}

	case HOOK_INTR:
		hh := &intrHook{hookInfo: info}
		if hh.cb, ok = cb.(func(Cpu, uint64, uint64)); ok {
			h.intr, hook = append(h.intr, hh), hh
		}

	case HOOK_REG:
		hh := &regHook{hookInfo: info}
		if hh.cb, ok = cb.(func(Cpu, int, int, uint64)); ok {
			h.reg, hook = append(h.reg, hh), hh
		}

	case HOOK_MEM_READ, HOOK_MEM_WRITE, HOOK_MEM_FETCH, HOOK_MEM_READ | HOOK_MEM_WRITE:
		hh := &memHook{hookInfo: info}
		if hh.cb, ok = cb.(func(Cpu, int, uint64, int, int64)); ok {
			h.mem, hook = append(h.mem, hh), hh
		}

	case HOOK_MEM_ERR:
		hh := &memFaultHook{hookInfo: info}
		if hh.cb, ok = cb.(func(Cpu, int, uint64, int, int64) bool); ok {
			h.memFault, hook = append(h.memFault, hh), hh
		}

	default:
		return nil, errors.Errorf("unknown hook type: %d", htype)
	}
	if !ok {
		return nil, errors.Errorf("wrong callback type for hook %d: %T", htype, cb)
	}
	return hook, nil
}

func (h *Hooks) HookDel(hh Hook) error {
	info, ok := hh.(hinfo)
	if !ok {
		return errors.Errorf("not a hook: %T", hh)
	}
	switch info.Type() {
	case HOOK_CODE:
		var tmp []*codeHook
		for _, v := range h.code {
			if v != hh {
				tmp = append(tmp, v)
			}
		}
		h.code = tmp
	case HOOK_INTR:
		var tmp []*intrHook
		for _, v := range h.intr {
			if v != hh {
				tmp = append(tmp, v)
			}
		}
		h.intr = tmp
	case HOOK_REG:
		var tmp []*regHook
		for _, v := range h.reg {
			if v != hh {
				tmp = append(tmp, v)
			}
		}
		h.reg = tmp
	case HOOK_MEM_READ, HOOK_MEM_WRITE, HOOK_MEM_FETCH, HOOK_MEM_READ | HOOK_MEM_WRITE:
		var tmp []*memHook
		for _, v := range h.mem {
			if v != hh {
				tmp = append(tmp, v)
			}
		}
		h.mem = tmp
	case HOOK_MEM_ERR:
		var tmp []*memFaultHook
		for _, v := range h.memFault {
			if v != hh {
				tmp = append(tmp, v)
			}
		}
		h.memFault = tmp
	}
	return nil
}

// observers must never break the simulation
func guard(f func()) {
	defer func() { recover() }()
	f()
}

func (h *Hooks) OnCode(addr uint64, size uint32) {
	for _, v := range h.code {
		if v.Contains(addr) {
			guard(func() { v.cb(h.cpu, addr, size) })
		}
	}
}

func (h *Hooks) OnIntr(cause, value uint64) {
	for _, v := range h.intr {
		guard(func() { v.cb(h.cpu, cause, value) })
	}
}

func (h *Hooks) OnReg(file, enum int, val uint64) {
	for _, v := range h.reg {
		if v.Contains(uint64(enum)) {
			guard(func() { v.cb(h.cpu, file, enum, val) })
		}
	}
}

func accessType(access int) int {
	switch access {
	case MEM_WRITE:
		return HOOK_MEM_WRITE
	case MEM_FETCH:
		return HOOK_MEM_FETCH
	default:
		return HOOK_MEM_READ
	}
}

func (h *Hooks) OnMem(access int, addr uint64, size int, val int64) {
	want := accessType(access)
	for _, v := range h.mem {
		if v.htype&want != 0 && v.Contains(addr) {
			guard(func() { v.cb(h.cpu, access, addr, size, val) })
		}
	}
}

func (h *Hooks) OnFault(access int, addr uint64, size int, val int64) bool {
	handled := false
	for _, v := range h.memFault {
		if v.Contains(addr) {
			guard(func() { handled = v.cb(h.cpu, access, addr, size, val) })
			if handled {
				return true
			}
		}
	}
	return false
}

func (h *Hooks) hasMem() bool {
	return len(h.mem) > 0 || len(h.memFault) > 0
}
