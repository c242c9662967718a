// Package repl is an interactive debugger console. Lines are evaluated as
// Lua against a machine; see help() for the commands.
package repl

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/chzyer/readline"
	"github.com/shibukawa/configdir"

	rvcorn "github.com/rvcorn/rvcorn/go"
)

type Repl struct {
	m   *rvcorn.Machine
	lua *Lua
	rl  *readline.Instance

	multiline bool
	lines     []string
}

func NewRepl(m *rvcorn.Machine) (*Repl, error) {
	dirs := configdir.New("rvcorn", "repl")
	cache := dirs.QueryCacheFolder()
	historyPath := ""
	if err := cache.MkdirAll(); err == nil {
		historyPath = filepath.Join(cache.Path, "history")
	}
	rl, err := readline.NewEx(&readline.Config{
		InterruptPrompt: "\n",
		HistoryFile:     historyPath,
	})
	if err != nil {
		return nil, err
	}
	L, err := NewLua(m, rl.Stderr())
	if err != nil {
		rl.Close()
		return nil, err
	}
	L.LoadInit()
	return &Repl{m: m, lua: L, rl: rl}, nil
}

// Stderr is a writer that redraws the prompt around its output.
func (r *Repl) Stderr() io.Writer {
	return r.rl.Stderr()
}

func (r *Repl) setPrompt() {
	h := r.lua.Hart()
	prompt := fmt.Sprintf("0x%08x> ", h.PC())
	if len(r.m.Harts) > 1 {
		prompt = fmt.Sprintf("[%d] %s", h.ID, prompt)
	}
	r.rl.SetPrompt(prompt)
}

func (r *Repl) reset() {
	r.lines = nil
	r.multiline = false
	r.setPrompt()
}

// Run reads and evaluates lines until EOF. An empty line repeats the last
// command.
func (r *Repl) Run() error {
	defer r.Close()
	r.setPrompt()
	for {
		line, err := r.rl.Readline()
		if err == readline.ErrInterrupt {
			r.reset()
			continue
		} else if err == io.EOF {
			return nil
		} else if err != nil {
			return err
		}
		if !r.multiline {
			if line != "" {
				r.lines = []string{line}
			} else if r.lines == nil {
				continue
			}
		} else {
			r.lines = append(r.lines, line)
		}
		if r.lua.Exec(r.lines) {
			r.rl.SetPrompt("... ")
			r.multiline = true
		} else {
			r.multiline = false
			r.setPrompt()
		}
	}
}

func (r *Repl) Close() {
	r.lua.Close()
	r.rl.Close()
}
