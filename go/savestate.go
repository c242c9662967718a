package rvcorn

import (
	"io"

	"github.com/pkg/errors"

	"github.com/rvcorn/rvcorn/go/models"
)

// Save writes a snapshot of every hart, memory and the heap break. History
// is not saved.
func (m *Machine) Save(w io.Writer) error {
	if !m.acquire() {
		return errors.WithStack(models.ErrIllegalState)
	}
	defer m.release()
	state := &models.SaveState{XLEN: m.Config.XLEN, Break: m.Kernel.Break()}
	for _, h := range m.Harts {
		state.Harts = append(state.Harts, h.State())
	}
	m.Mem.Written(func(addr uint64, val uint32) {
		state.Words = append(state.Words, models.WordState{Addr: addr, Val: val})
	})
	_, err := state.WriteTo(w)
	return err
}

// Restore loads a snapshot written by Save. The machine must have the same
// XLEN and hart count. History is cleared and the machine is Paused.
func (m *Machine) Restore(r io.Reader) error {
	state, err := models.ReadSaveState(r)
	if err != nil {
		return err
	}
	if !m.acquire() {
		return errors.WithStack(models.ErrIllegalState)
	}
	defer m.release()
	if state.XLEN != m.Config.XLEN || len(state.Harts) != len(m.Harts) {
		return models.NewConfigError("savestate", "snapshot is %d-bit with %d harts, machine is %d-bit with %d",
			state.XLEN, len(state.Harts), m.Config.XLEN, len(m.Harts))
	}
	m.Mem.Reset()
	for _, w := range state.Words {
		if err := m.Mem.RestoreWord(w.Addr, w.Val, true); err != nil {
			return errors.Wrapf(err, "restoring 0x%x", w.Addr)
		}
	}
	for i, h := range m.Harts {
		if err := h.LoadState(state.Harts[i]); err != nil {
			return err
		}
	}
	m.Kernel.SetBreak(state.Break)
	m.History.Clear()
	m.mu.Lock()
	if m.image == nil {
		m.image = m.Mem.Snapshot()
	}
	m.state = StatePaused
	m.last = nil
	m.cur = 0
	m.skipOnce = false
	m.mu.Unlock()
	return nil
}
