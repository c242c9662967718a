package cpu

import (
	"fmt"
	"github.com/pkg/errors"
	"testing"
)

func callAll(h *Hooks) {
	h.OnCode(0x1001, 2)
	h.OnIntr(3, 4)
	h.OnReg(REG_INT, 5, 6)
	h.OnMem(MEM_WRITE, 0x1002, 4, -1)
	h.OnFault(MEM_WRITE_UNMAPPED, 0x1003, 8, -2)
}

func makeHooks() *Hooks {
	return NewHooks(nil, nil)
}

// this test ensures it's safe to dispatch all hooks while empty
func TestHooksEmpty(t *testing.T) {
	callAll(makeHooks())
}

// checks if two lists of strings are equal
func strseq(a []string, b []string) error {
	if len(a) != len(b) {
		return errors.Errorf("output list length mismatch: %q != %q", a, b)
	}
	for i, v := range a {
		if v != b[i] {
			return errors.Errorf("output list value mismatch: %s != %s", v, b[i])
		}
	}
	return nil
}

// generic hook tests
func TestHooks(t *testing.T) {
	h := makeHooks()
	compare := []string{
		"code(0x1001, 0x2)", "intr(3, 4)", "reg(0, 5, 0x6)",
		"mem(16, 0x1002, 4, -0x1)", "fault(20, 0x1003, 8, -0x2)",
	}
	var results []string
	codeCb := func(_ Cpu, addr uint64, size uint32) {
		results = append(results, fmt.Sprintf("code(%#x, %#x)", addr, size))
	}
	intrCb := func(_ Cpu, cause, value uint64) {
		results = append(results, fmt.Sprintf("intr(%d, %d)", cause, value))
	}
	regCb := func(_ Cpu, file, enum int, val uint64) {
		results = append(results, fmt.Sprintf("reg(%d, %d, %#x)", file, enum, val))
	}
	writeCb := func(_ Cpu, access int, addr uint64, size int, val int64) {
		results = append(results, fmt.Sprintf("mem(%d, %#x, %d, %#x)", access, addr, size, val))
	}
	faultCb := func(_ Cpu, access int, addr uint64, size int, val int64) bool {
		results = append(results, fmt.Sprintf("fault(%d, %#x, %d, %#x)", access, addr, size, val))
		return val == 42
	}
	var hooks []Hook
	addHooks := func(h *Hooks) {
		add := func(htype int, cb interface{}) {
			hh, err := h.HookAdd(htype, cb, 1, 0)
			if err != nil {
				t.Fatal(err)
			}
			hooks = append(hooks, hh)
		}
		add(HOOK_CODE, codeCb)
		add(HOOK_INTR, intrCb)
		add(HOOK_REG, regCb)
		add(HOOK_MEM_WRITE, writeCb)
		add(HOOK_MEM_ERR, faultCb)
	}
	removeHooks := func(h *Hooks) {
		for _, v := range hooks {
			if err := h.HookDel(v); err != nil {
				t.Fatal(err)
			}
		}
		hooks = nil
	}
	// test add, call
	addHooks(h)
	callAll(h)

	if err := strseq(results, compare); err != nil {
		t.Fatal(err)
	}
	results = nil

	// test remove, add, remove, add, call
	removeHooks(h)
	addHooks(h)
	removeHooks(h)
	addHooks(h)
	callAll(h)

	if err := strseq(results, compare); err != nil {
		t.Fatal(err)
	}
	results = nil

	// test remove, remove, add, add, call
	removeHooks(h)
	removeHooks(h)
	addHooks(h)
	addHooks(h)
	callAll(h)

	compare2 := make([]string, 0, len(compare)*2)
	for _, v := range compare {
		compare2 = append(append(compare2, v), v)
	}
	if err := strseq(results, compare2); err != nil {
		t.Fatal(err)
	}
	results = nil

	if h.OnFault(MEM_WRITE_UNMAPPED, 0, 0, 42) != true {
		t.Fatal("OnFault positive return does not seem to work")
	}
	if h.OnFault(MEM_WRITE_UNMAPPED, 0, 0, 0) != false {
		t.Fatal("OnFault negative return does not seem to work")
	}
}

func TestHookWrongCallback(t *testing.T) {
	h := makeHooks()
	if _, err := h.HookAdd(HOOK_CODE, func() {}, 1, 0); err == nil {
		t.Fatal("HookAdd accepted a mismatched callback")
	}
	if _, err := h.HookAdd(12345, func() {}, 1, 0); err == nil {
		t.Fatal("HookAdd accepted an unknown hook type")
	}
}

// a panicking observer must not take down the caller or starve later observers
func TestHookPanic(t *testing.T) {
	h := makeHooks()
	called := false
	h.HookAdd(HOOK_REG, func(Cpu, int, int, uint64) { panic("observer bug") }, 1, 0)
	h.HookAdd(HOOK_REG, func(Cpu, int, int, uint64) { called = true }, 1, 0)
	h.OnReg(REG_INT, 1, 2)
	if !called {
		t.Fatal("second observer was not called")
	}
}

// read hooks must not see writes and vice versa
func TestHookMemAccess(t *testing.T) {
	h := makeHooks()
	var reads, writes int
	h.HookAdd(HOOK_MEM_READ, func(Cpu, int, uint64, int, int64) { reads++ }, 1, 0)
	h.HookAdd(HOOK_MEM_WRITE, func(Cpu, int, uint64, int, int64) { writes++ }, 1, 0)
	h.OnMem(MEM_READ, 0, 4, 0)
	h.OnMem(MEM_WRITE, 0, 4, 0)
	h.OnMem(MEM_WRITE, 0, 4, 0)
	if reads != 1 || writes != 2 {
		t.Fatalf("got %d reads, %d writes; expected 1, 2", reads, writes)
	}
}

// positive and negative tests for each hook type with start-end range enabled
func TestHookRange(t *testing.T) {
	h := makeHooks()
	// we should get 0x1000-0x1fff results, but not the 0x0 or 0x2000 results
	compare := []string{
		"code(0x1000, 0x1)", "mem(16, 0x1000, 8, 0x0)", "fault(20, 0x1000, 8, 0x0)",
		"code(0x1fff, 0x1)",
	}
	var results []string
	codeCb := func(_ Cpu, addr uint64, size uint32) {
		results = append(results, fmt.Sprintf("code(%#x, %#x)", addr, size))
	}
	writeCb := func(_ Cpu, access int, addr uint64, size int, val int64) {
		results = append(results, fmt.Sprintf("mem(%d, %#x, %d, %#x)", access, addr, size, val))
	}
	faultCb := func(_ Cpu, access int, addr uint64, size int, val int64) bool {
		results = append(results, fmt.Sprintf("fault(%d, %#x, %d, %#x)", access, addr, size, val))
		return false
	}
	if _, err := h.HookAdd(HOOK_CODE, codeCb, 0x1000, 0x1fff); err != nil {
		t.Fatal(err)
	}
	if _, err := h.HookAdd(HOOK_MEM_WRITE, writeCb, 0x1000, 0x1fff); err != nil {
		t.Fatal(err)
	}
	if _, err := h.HookAdd(HOOK_MEM_ERR, faultCb, 0x1000, 0x1fff); err != nil {
		t.Fatal(err)
	}
	for addr := uint64(0); addr < 0x4000; addr += 0x1000 {
		h.OnCode(addr, 1)
		h.OnMem(MEM_WRITE, addr, 8, 0)
		h.OnFault(MEM_WRITE_UNMAPPED, addr, 8, 0)
	}
	h.OnCode(0x1fff, 1)
	if err := strseq(results, compare); err != nil {
		t.Fatal(err)
	}
}

func BenchmarkHook(b *testing.B) {
	h := makeHooks()
	codeCb := func(_ Cpu, addr uint64, size uint32) {}
	if _, err := h.HookAdd(HOOK_CODE, codeCb, 0x1000, 0x1fff); err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		h.OnCode(0x1000, 1)
	}
}
