package cpu

import (
	"github.com/pkg/errors"
)

var ErrInvalidReg = errors.New("invalid register")

// Regs is a fixed file of registers indexed from zero. It implements register
// and context methods conforming to cpu.Cpu.
type Regs struct {
	File int
	// Zero names a register wired to 0, or -1.
	Zero int
	// Journal sees the old value of every register changed through Update.
	Journal Journal

	mask  uint64
	names []string
	vals  []uint64
	reset []uint64
	hooks *Hooks
}

func NewRegs(bits uint, file int, names []string) *Regs {
	return &Regs{
		File:  file,
		Zero:  -1,
		mask:  ^uint64(0) >> (64 - bits),
		names: names,
		vals:  make([]uint64, len(names)),
		reset: make([]uint64, len(names)),
	}
}

// SetHooks routes change notifications through h.
func (r *Regs) SetHooks(h *Hooks) { r.hooks = h }

func (r *Regs) Len() int { return len(r.vals) }

func (r *Regs) Mask() uint64 { return r.mask }

func (r *Regs) Name(enum int) string {
	if enum < 0 || enum >= len(r.names) {
		return ""
	}
	return r.names[enum]
}

func (r *Regs) Lookup(name string) (int, bool) {
	for i, n := range r.names {
		if n == name {
			return i, true
		}
	}
	return 0, false
}

func (r *Regs) RegRead(enum int) (uint64, error) {
	if enum < 0 || enum >= len(r.vals) {
		return 0, ErrInvalidReg
	}
	return r.vals[enum], nil
}

// Get is RegRead for callers holding a valid enum.
func (r *Regs) Get(enum int) uint64 {
	if enum < 0 || enum >= len(r.vals) {
		return 0
	}
	return r.vals[enum]
}

func (r *Regs) RegWrite(enum int, val uint64) error {
	_, err := r.Update(enum, val)
	return err
}

// Update stores val and returns the previous value. Writes to the zero
// register are accepted and discarded.
func (r *Regs) Update(enum int, val uint64) (uint64, error) {
	if enum < 0 || enum >= len(r.vals) {
		return 0, ErrInvalidReg
	}
	prev := r.vals[enum]
	if enum == r.Zero {
		return prev, nil
	}
	val &= r.mask
	if r.Journal != nil {
		r.Journal.RecordReg(r.File, enum, prev)
	}
	r.vals[enum] = val
	if r.hooks != nil {
		r.hooks.OnReg(r.File, enum, val)
	}
	return prev, nil
}

// Restore sets a register without journaling, used when undoing a step.
func (r *Regs) Restore(enum int, val uint64) error {
	if enum < 0 || enum >= len(r.vals) {
		return ErrInvalidReg
	}
	if enum == r.Zero {
		return nil
	}
	r.vals[enum] = val & r.mask
	if r.hooks != nil {
		r.hooks.OnReg(r.File, enum, r.vals[enum])
	}
	return nil
}

func (r *Regs) SetReset(enum int, val uint64) error {
	if enum < 0 || enum >= len(r.reset) {
		return ErrInvalidReg
	}
	if enum != r.Zero {
		r.reset[enum] = val & r.mask
	}
	return nil
}

// Reset puts every register back to its reset value.
func (r *Regs) Reset() {
	copy(r.vals, r.reset)
	if r.hooks != nil {
		for i, v := range r.vals {
			r.hooks.OnReg(r.File, i, v)
		}
	}
}

func (r *Regs) ContextSave(reuse interface{}) (interface{}, error) {
	var s []uint64
	if reuse != nil {
		var ok bool
		if s, ok = reuse.([]uint64); !ok {
			return nil, errors.New("incorrect context type")
		}
	}
	return append(s[:0], r.vals...), nil
}

func (r *Regs) ContextRestore(ctx interface{}) error {
	if s, ok := ctx.([]uint64); !ok || len(s) != len(r.vals) {
		return errors.New("incorrect context type")
	} else {
		copy(r.vals, s)
		return nil
	}
}
