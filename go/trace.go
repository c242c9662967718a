package rvcorn

import (
	"fmt"
	"io"

	"github.com/rvcorn/rvcorn/go/models"
	"github.com/rvcorn/rvcorn/go/models/cpu"
)

// addTraceHooks prints executed instructions and memory writes to
// Config.Output when tracing is enabled.
func (m *Machine) addTraceHooks() error {
	out := m.Config.Output
	if m.Config.TraceExec {
		for _, h := range m.Harts {
			h := h
			var loops *models.LoopDetect
			if m.Config.TraceLoop > 0 {
				loops = models.NewLoopDetect(m.Config.TraceLoop)
				m.loops = append(m.loops, loops)
			}
			_, err := h.HookAdd(cpu.HOOK_CODE, func(_ cpu.Cpu, addr uint64, size uint32) {
				if loops != nil {
					skip, run := loops.Update(addr)
					if run != nil {
						printLoop(out, h.ID, run)
					}
					if skip {
						return
					}
				}
				label := m.Symbolicate(addr)
				if label != "" {
					label = " <" + label + ">"
				}
				stmt := h.Statement(addr)
				text := "?"
				if stmt != nil {
					text = stmt.String()
				}
				fmt.Fprintf(out, "[%d] 0x%08x%s: %s\n", h.ID, addr, label, text)
			}, 1, 0)
			if err != nil {
				return err
			}
		}
	}
	if m.Config.TraceMem {
		_, err := m.Mem.HookAdd(cpu.HOOK_MEM_WRITE, func(_ cpu.Cpu, access int, addr uint64, size int, val int64) {
			fmt.Fprintf(out, "    W 0x%08x [%d] = 0x%x\n", addr, size, uint64(val))
		}, 1, 0)
		if err != nil {
			return err
		}
	}
	return nil
}

// traceStep prints the registers the last step on hart changed.
func (m *Machine) traceStep(hart int) {
	if !m.Config.TraceReg {
		return
	}
	if s := m.status[hart].Changes(true).String(m.Config.Color); s != "" {
		fmt.Fprint(m.Config.Output, s)
	}
}

func printLoop(out io.Writer, hart int, run *models.LoopRun) {
	fmt.Fprintf(out, "[%d] ... %d-instruction loop at 0x%08x, %d more passes (%d skipped)\n",
		hart, len(run.Body), run.Body[0], run.Passes, run.Skipped)
}

// flushLoops reports loops still being collapsed when a run stops.
func (m *Machine) flushLoops() {
	for i, l := range m.loops {
		if run := l.Flush(); run != nil {
			printLoop(m.Config.Output, i, run)
		}
	}
}
