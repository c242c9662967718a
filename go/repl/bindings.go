package repl

import (
	"context"
	"os"
	"os/signal"
	"strconv"

	"github.com/k0kubun/pp/v3"
	"github.com/lunixbochs/luaish"
	"github.com/lunixbochs/luaish-luar"

	"github.com/rvcorn/rvcorn/go/cpu/riscv"
	"github.com/rvcorn/rvcorn/go/dump"
	"github.com/rvcorn/rvcorn/go/models"
	"github.com/rvcorn/rvcorn/go/models/cpu"
)

var cpuEnums = map[string]lua.LInt{
	"HOOK_INTR":      cpu.HOOK_INTR,
	"HOOK_CODE":      cpu.HOOK_CODE,
	"HOOK_REG":       cpu.HOOK_REG,
	"HOOK_MEM_READ":  cpu.HOOK_MEM_READ,
	"HOOK_MEM_WRITE": cpu.HOOK_MEM_WRITE,
	"HOOK_MEM_FETCH": cpu.HOOK_MEM_FETCH,
	"HOOK_MEM_ERR":   cpu.HOOK_MEM_ERR,

	"PROT_NONE":  cpu.PROT_NONE,
	"PROT_READ":  cpu.PROT_READ,
	"PROT_WRITE": cpu.PROT_WRITE,
	"PROT_EXEC":  cpu.PROT_EXEC,
	"PROT_ALL":   cpu.PROT_ALL,

	"MEM_READ":  cpu.MEM_READ,
	"MEM_WRITE": cpu.MEM_WRITE,
	"MEM_FETCH": cpu.MEM_FETCH,
}

func (L *Lua) printFunc(_ *lua.LState) int {
	L.PrettyPrint(L.args(), false)
	return 0
}

func (L *Lua) intFunc(_ *lua.LState) int {
	switch v := L.CheckAny(1).(type) {
	case lua.LString:
		if n, err := strconv.ParseInt(string(v), 0, 64); err == nil {
			L.Push(lua.LInt(n))
			return 1
		}
	case lua.LFloat:
		L.Push(lua.LInt(v))
		return 1
	case lua.LInt:
		L.Push(v)
		return 1
	}
	return 0
}

func (L *Lua) loadBindings() error {
	L.SetGlobal("print", L.NewFunction(L.printFunc))
	L.SetGlobal("int", L.NewFunction(L.intFunc))

	enums := L.NewTable()
	for k, v := range cpuEnums {
		enums.RawSetString(k, v)
	}
	L.SetGlobal("cpu", enums)

	L.SetGlobal("m", L.SetFuncs(L.NewTable(), L.exports()))
	L.SetGlobal("ms", luar.New(L.LState, L.m))

	if err := L.DoString(sugarRc); err != nil {
		return err
	}
	return L.DoString(cmdRc)
}

func (L *Lua) exports() map[string]lua.LGFunction {
	return map[string]lua.LGFunction{
		"step":  L.step,
		"cont":  L.cont,
		"back":  L.back,
		"reset": L.reset,

		"brk":    L.brk,
		"unbrk":  L.unbrk,
		"breaks": L.breaks,

		"read":  L.read,
		"write": L.write,
		"regs":  L.regs,
		"dis":   L.dis,
		"view":  L.view,
		"dump":  L.dump,
		"sym":   L.sym,

		"hart":    L.selectHart,
		"irq":     L.irq,
		"state":   L.state,
		"history": L.history,
		"save":    L.save,
		"restore": L.restore,

		"hook_add": L.hookAdd,
		"hook_del": L.hookDel,
	}
}

func (L *Lua) checkErr(err error) {
	if err != nil {
		L.RaiseError("%s", err.Error())
	}
}

func (L *Lua) optInt(n int, def int64) int64 {
	if L.GetTop() < n || L.Get(n) == lua.LNil {
		return def
	}
	return int64(L.CheckInt(n))
}

func (L *Lua) optAddr(n int) uint64 {
	if L.GetTop() < n || L.Get(n) == lua.LNil {
		return L.Hart().PC()
	}
	return L.CheckUint64(n)
}

// runMachine runs in the background so an interrupt can pause it, then shows
// the stop notice and the registers that changed.
func (L *Lua) runMachine(max int64) *models.Notice {
	// pull in register edits made earlier in this chunk
	L.EnvFromLua()
	if err := L.m.Start(context.Background(), max); err != nil {
		L.checkErr(err)
	}
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	done := make(chan *models.Notice, 1)
	go func() { done <- L.m.Wait() }()
	var n *models.Notice
	select {
	case n = <-done:
	case <-sigs:
		L.m.Pause()
		n = <-done
	}
	signal.Stop(sigs)

	if n != nil {
		L.Printf("%s\n", n)
		L.hart = n.Hart
	}
	L.showChanges(true)
	L.EnvToLua()
	return n
}

func (L *Lua) showChanges(onlyChanged bool) {
	color := L.m.Config.Color
	for i, s := range L.status {
		if len(L.status) > 1 {
			L.Printf("hart %d:\n", i)
		}
		L.Printf("%s", s.Changes(onlyChanged).String(color))
	}
}

func (L *Lua) step(_ *lua.LState) int {
	L.runMachine(L.optInt(1, 1))
	return 0
}

func (L *Lua) cont(_ *lua.LState) int {
	L.runMachine(L.optInt(1, 0))
	return 0
}

func (L *Lua) back(_ *lua.LState) int {
	L.EnvFromLua()
	count := L.optInt(1, 1)
	var undone int64
	for ; undone < count; undone++ {
		ok, err := L.m.BackStep()
		L.checkErr(err)
		if !ok {
			break
		}
	}
	L.showChanges(true)
	L.EnvToLua()
	L.Push(lua.LInt(undone))
	return 1
}

func (L *Lua) reset(_ *lua.LState) int {
	L.checkErr(L.m.Reset())
	L.EnvToLua()
	return 0
}

func (L *Lua) brk(_ *lua.LState) int {
	b, err := L.m.AddBreakpoint(L.CheckString(1))
	L.checkErr(err)
	b.Temp = L.GetTop() >= 2 && lua.LVAsBool(L.Get(2))
	L.Printf("Breakpoint at %s\n", b)
	L.Push(lua.LInt(b.Addr))
	return 1
}

func (L *Lua) unbrk(_ *lua.LState) int {
	L.Push(lua.LBool(L.m.RemoveBreakpoint(L.CheckUint64(1))))
	return 1
}

func (L *Lua) breaks(_ *lua.LState) int {
	tbl := L.NewTable()
	for i, b := range L.m.Breakpoints() {
		L.RawSetInt(tbl, i+1, lua.LString(b.String()))
	}
	L.Push(tbl)
	return 1
}

func (L *Lua) read(_ *lua.LState) int {
	addr := L.optAddr(1)
	count := L.optInt(2, 1)
	tbl := L.NewTable()
	for i := int64(0); i < count; i++ {
		val, err := L.m.Mem.LoadWord(addr + uint64(i)*4)
		L.checkErr(err)
		L.RawSetInt(tbl, int(i)+1, lua.LInt(val))
	}
	L.Push(tbl)
	return 1
}

func (L *Lua) write(_ *lua.LState) int {
	L.checkErr(L.m.Mem.StoreWord(L.CheckUint64(1), uint32(L.CheckUint64(2))))
	return 0
}

func (L *Lua) regs(_ *lua.LState) int {
	L.showChanges(false)
	return 0
}

func (L *Lua) dis(_ *lua.LState) int {
	h := L.Hart()
	addr := L.optAddr(1)
	count := L.optInt(2, 8)
	for i := int64(0); i < count; i++ {
		a := addr + uint64(i)*4
		s := h.Statement(a)
		if s == nil {
			break
		}
		label := ""
		if sym := L.m.Symbolicate(a); sym != "" {
			label = " <" + sym + ">"
		}
		marker := "  "
		if a == h.PC() {
			marker = "=>"
		}
		L.Printf("%s 0x%08x%s: %08x  %s\n", marker, a, label, s.Raw, s)
	}
	return 0
}

func (L *Lua) view(_ *lua.LState) int {
	addr := L.optAddr(1)
	count := int(L.optInt(2, 16))
	for _, line := range dump.View(L.m.Mem, addr, count, 4) {
		L.Printf("%s\n", line)
	}
	return 0
}

// dump(format, first, last[, path]) writes memory in a dump format to path,
// or to the repl output.
func (L *Lua) dump(_ *lua.LState) int {
	f, err := dump.Lookup(L.CheckString(1))
	L.checkErr(err)
	first, last := L.CheckUint64(2), L.CheckUint64(3)
	if L.GetTop() >= 4 && L.Get(4) != lua.LNil {
		out, err := os.Create(L.CheckString(4))
		L.checkErr(err)
		defer out.Close()
		L.checkErr(f.Dump(out, L.m.Mem, first, last))
		return 0
	}
	L.checkErr(f.Dump(L.Writer, L.m.Mem, first, last))
	return 0
}

func (L *Lua) sym(_ *lua.LState) int {
	L.Push(lua.LString(L.m.Symbolicate(L.CheckUint64(1))))
	return 1
}

func (L *Lua) selectHart(_ *lua.LState) int {
	if L.GetTop() >= 1 && L.Get(1) != lua.LNil {
		n := L.CheckInt(1)
		if n < 0 || n >= len(L.m.Harts) {
			L.RaiseError("no hart %d", n)
		}
		L.EnvFromLua()
		L.hart = n
		L.EnvToLua()
	}
	L.Push(lua.LInt(L.hart))
	return 1
}

func (L *Lua) irq(_ *lua.LState) int {
	L.checkErr(L.m.Interrupt(L.hart, riscv.Cause(L.CheckUint64(1))))
	return 0
}

type machineState struct {
	State       string
	Hart        int
	PC          uint64
	Retired     uint64
	Breakpoints []string
	History     int
	Dropped     uint64
	Last        string
}

func (L *Lua) state(_ *lua.LState) int {
	st := machineState{
		State:   L.m.State().String(),
		Hart:    L.hart,
		PC:      L.Hart().PC(),
		Retired: L.m.Retired(),
		History: L.m.History.Depth(),
		Dropped: L.m.History.Dropped(),
	}
	for _, b := range L.m.Breakpoints() {
		st.Breakpoints = append(st.Breakpoints, b.String())
	}
	if n := L.m.Last(); n != nil {
		st.Last = n.String()
	}
	p := pp.New()
	p.SetColoringEnabled(L.m.Config.Color)
	L.Printf("%s\n", p.Sprint(st))
	return 0
}

// history([path]) returns the backstep depth, exporting it to path if given.
func (L *Lua) history(_ *lua.LState) int {
	if L.GetTop() >= 1 && L.Get(1) != lua.LNil {
		out, err := os.Create(L.CheckString(1))
		L.checkErr(err)
		defer out.Close()
		_, err = L.m.History.WriteTo(out)
		L.checkErr(err)
	}
	L.Push(lua.LInt(L.m.History.Depth()))
	return 1
}

func (L *Lua) save(_ *lua.LState) int {
	out, err := os.Create(L.CheckString(1))
	L.checkErr(err)
	defer out.Close()
	L.checkErr(L.m.Save(out))
	return 0
}

func (L *Lua) restore(_ *lua.LState) int {
	in, err := os.Open(L.CheckString(1))
	L.checkErr(err)
	defer in.Close()
	L.checkErr(L.m.Restore(in))
	L.EnvToLua()
	return 0
}

// luaHook wraps fn as a callback of the shape htype expects.
func (L *Lua) luaHook(htype int, fn *lua.LFunction) interface{} {
	call := func(args ...lua.LValue) {
		if err := L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, args...); err != nil {
			L.Println(err)
		}
	}
	switch htype {
	case cpu.HOOK_CODE:
		return func(_ cpu.Cpu, addr uint64, size uint32) {
			call(lua.LInt(addr), lua.LInt(size))
		}
	case cpu.HOOK_INTR:
		return func(_ cpu.Cpu, cause, pc uint64) {
			call(lua.LInt(cause), lua.LInt(pc))
		}
	case cpu.HOOK_REG:
		return func(_ cpu.Cpu, file, enum int, val uint64) {
			call(lua.LInt(file), lua.LInt(enum), lua.LInt(val))
		}
	case cpu.HOOK_MEM_ERR:
		return func(_ cpu.Cpu, access int, addr uint64, size int, val int64) bool {
			call(lua.LInt(access), lua.LInt(addr), lua.LInt(size), lua.LInt(val))
			return false
		}
	}
	return func(_ cpu.Cpu, access int, addr uint64, size int, val int64) {
		call(lua.LInt(access), lua.LInt(addr), lua.LInt(size), lua.LInt(val))
	}
}

// hook_add(type, fn[, start, end]) returns an id for hook_del.
func (L *Lua) hookAdd(_ *lua.LState) int {
	htype := L.CheckInt(1)
	fn := L.CheckFunction(2)
	start, end := uint64(1), uint64(0)
	if L.GetTop() >= 3 && L.Get(3) != lua.LNil {
		start = L.CheckUint64(3)
		end = start
		if L.GetTop() >= 4 && L.Get(4) != lua.LNil {
			end = L.CheckUint64(4)
		}
	}
	hooks, err := L.m.HookAdd(htype, L.luaHook(htype, fn), start, end)
	L.checkErr(err)
	L.nextHook++
	L.hooks[L.nextHook] = hooks
	L.Push(lua.LInt(L.nextHook))
	return 1
}

func (L *Lua) hookDel(_ *lua.LState) int {
	id := L.CheckInt(1)
	if hooks, ok := L.hooks[id]; ok {
		L.m.HookDel(hooks)
		delete(L.hooks, id)
	}
	return 0
}
