package repl

import (
	"fmt"
	"io"
	"strings"

	"github.com/lunixbochs/luaish"
	"github.com/lunixbochs/luaish/parse"
	"github.com/pkg/errors"
	"github.com/shibukawa/configdir"

	rvcorn "github.com/rvcorn/rvcorn/go"
	"github.com/rvcorn/rvcorn/go/cpu/riscv"
	"github.com/rvcorn/rvcorn/go/models"
	"github.com/rvcorn/rvcorn/go/models/cpu"
)

// Lua evaluates debugger commands against a machine. Registers of the
// selected hart are visible as globals ("pc", "t0", ...) while a chunk runs,
// and assignments to them are written back afterwards.
type Lua struct {
	*lua.LState
	io.Writer

	m    *rvcorn.Machine
	hart int

	status  []*models.StatusDiff
	preRegs []models.RegVal

	hooks    map[int][]cpu.Hook
	nextHook int
}

func NewLua(m *rvcorn.Machine, w io.Writer) (*Lua, error) {
	L := &Lua{
		LState: lua.NewState(),
		Writer: w,
		m:      m,
		hooks:  make(map[int][]cpu.Hook),
	}
	for _, h := range m.Harts {
		L.status = append(L.status, &models.StatusDiff{Src: h})
	}
	if err := L.loadBindings(); err != nil {
		L.Close()
		return nil, errors.Wrap(err, "failed to load repl bindings")
	}
	return L, nil
}

// LoadInit runs init.lish from each user config folder.
func (L *Lua) LoadInit() {
	dirs := configdir.New("rvcorn", "lua")
	for _, folder := range dirs.QueryFolders(configdir.All) {
		if data, err := folder.ReadFile("init.lish"); err == nil {
			if err := L.DoString(string(data)); err != nil {
				L.Printf("error in %s/init.lish: %v\n", folder.Path, err)
			}
		}
	}
}

func (L *Lua) SetOutput(w io.Writer) {
	L.Writer = w
}

func (L *Lua) Hart() *riscv.Hart {
	return L.m.Harts[L.hart]
}

// EnvToLua publishes the selected hart's registers and the statement at pc.
func (L *Lua) EnvToLua() {
	h := L.Hart()
	L.preRegs = h.RegDump()
	for _, r := range L.preRegs {
		if r.Default {
			L.SetGlobal(r.Name, lua.LInt(r.Val))
		}
	}
	L.SetGlobal("hart", lua.LInt(L.hart))
	if s := h.Statement(h.PC()); s != nil {
		L.SetGlobal("ins", lua.LString(s.String()))
	} else {
		L.SetGlobal("ins", lua.LNil)
	}
}

// EnvFromLua writes back any register global the chunk changed.
func (L *Lua) EnvFromLua() {
	h := L.Hart()
	for _, r := range L.preRegs {
		if !r.Default {
			continue
		}
		v, ok := L.GetGlobal(r.Name).(lua.LInt)
		if !ok {
			L.Printf("could not restore %s: bad type: %v\n", r.Name, L.GetGlobal(r.Name))
			continue
		}
		if uint64(v) == r.Val {
			continue
		}
		if r.File == cpu.REG_PC {
			h.SetPC(uint64(v))
		} else if err := h.SetReg(r.Enum, uint64(v)); err != nil {
			L.Printf("could not set %s: %v\n", r.Name, err)
		}
	}
}

func (L *Lua) postRun(lv []lua.LValue) {
	// a lone function result is called with no arguments
	if len(lv) == 1 && lv[0].Type() == lua.LTFunction {
		if lv2, err := L.call(lv[0].(*lua.LFunction)); err != nil {
			L.Println(err)
			lv = nil
		} else {
			lv = lv2
		}
	}
	if len(lv) > 0 && !(len(lv) == 1 && lv[0] == lua.LNil) {
		L.PrettyPrint(lv, true)
	}

	switch len(lv) {
	case 0:
		L.SetGlobal("_", lua.LNil)
	case 1:
		L.SetGlobal("_", lv[0])
	default:
		tmp := L.NewTable()
		for i, v := range lv {
			L.RawSetInt(tmp, i+1, v)
		}
		L.SetGlobal("_", tmp)
	}
	L.EnvFromLua()
}

// loadstring compiles lines, first as an expression. incomplete is true when
// the parser ran out of input.
func (L *Lua) loadstring(lines []string, expr bool) (fn *lua.LFunction, incomplete bool, err error) {
	code := strings.Join(lines, "\n")
	if len(lines) == 1 && expr {
		code = "return " + code
	}
	fn, err = L.LoadString(code)
	if err == nil {
		return fn, false, nil
	}
	if lerr, ok := err.(*lua.ApiError); ok {
		if perr, ok := lerr.Cause.(*parse.Error); ok {
			if perr.Pos.Line == parse.EOF {
				return nil, true, err
			} else if expr {
				return L.loadstring(lines, false)
			}
		}
	}
	return nil, false, err
}

// Exec runs a chunk, returning true if more input is needed. Errors are
// printed.
func (L *Lua) Exec(lines []string) bool {
	if len(lines) == 0 {
		return true
	}
	fn, incomplete, err := L.loadstring(lines, true)
	if incomplete {
		return true
	}
	if err != nil {
		L.Println(err)
		return false
	}
	L.EnvToLua()
	lv, err := L.call(fn)
	if err != nil {
		L.Println(err)
	}
	L.postRun(lv)
	return false
}

func (L *Lua) args() []lua.LValue {
	lv := make([]lua.LValue, L.GetTop())
	for i := range lv {
		lv[i] = L.CheckAny(i + 1)
	}
	return lv
}

func (L *Lua) call(fn *lua.LFunction) ([]lua.LValue, error) {
	L.SetTop(0)
	L.Push(fn)
	if err := L.PCall(0, lua.MultRet, nil); err != nil {
		return nil, err
	}
	return L.args(), nil
}

func (L *Lua) Printf(f string, arg ...interface{}) {
	fmt.Fprintf(L, f, arg...)
}

func (L *Lua) Println(arg ...interface{}) {
	fmt.Fprintln(L, arg...)
}
