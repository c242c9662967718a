package models

import (
	"fmt"
	"strings"

	"github.com/mgutz/ansi"
)

// StatusDiff tracks register values between calls to Changes.
type StatusDiff struct {
	Src     RegDumper
	oldRegs map[Reg]uint64
}

var chSame = ansi.ColorCode("default:default")
var chNew = ansi.ColorCode("default+bu:default")

func colorPad(s, color string, pad int) string {
	length := len(s)
	s = color + s + ansi.Reset
	if length < pad {
		s = strings.Repeat(" ", pad-length) + s
	}
	return s
}

type ChangeMask struct {
	Old, New string
	Changed  bool
}

type Change struct {
	Reg
	Old, New uint64
}

func (c *Change) Changed() bool {
	return c.Old != c.New
}

// Mask splits the hex renderings of the old and new values into runs of
// matching and differing digits.
func (c *Change) Mask(digits int) []ChangeMask {
	hexFmt := fmt.Sprintf("%%0%dx", digits)
	s1, s2 := fmt.Sprintf(hexFmt, c.New), fmt.Sprintf(hexFmt, c.Old)
	var masks []ChangeMask
	pos := 0
	for i := 1; i <= len(s1); i++ {
		if i == len(s1) || (s1[i] == s2[i]) != (s1[pos] == s2[pos]) {
			masks = append(masks, ChangeMask{
				New:     s1[pos:i],
				Old:     s2[pos:i],
				Changed: s1[pos] != s2[pos],
			})
			pos = i
		}
	}
	return masks
}

func (c *Change) String(digits int, color bool) string {
	hexFmt := fmt.Sprintf("%%0%dx", digits)
	if !c.Changed() {
		return fmt.Sprintf("  %4s 0x"+hexFmt, c.Name, c.New)
	}
	if !color {
		return fmt.Sprintf("+ %4s 0x"+hexFmt, c.Name, c.New)
	}
	var out strings.Builder
	fmt.Fprintf(&out, "  %s 0x", colorPad(c.Name, chNew, 4))
	for _, mask := range c.Mask(digits) {
		col := chSame
		if mask.Changed {
			col = chNew
		}
		out.WriteString(col + mask.New)
	}
	out.WriteString(ansi.Reset)
	return out.String()
}

type Changes struct {
	// hex digits per value
	Digits  int
	Changes []*Change
}

// String lays the changes out in columns, filled top to bottom.
func (cs *Changes) String(color bool) string {
	if len(cs.Changes) == 0 {
		return ""
	}
	cols := 4
	rows := (len(cs.Changes) + cols - 1) / cols
	var out strings.Builder
	for i := 0; i < rows; i++ {
		var line []string
		for j := 0; j < cols; j++ {
			if idx := j*rows + i; idx < len(cs.Changes) {
				line = append(line, cs.Changes[idx].String(cs.Digits, color))
			}
		}
		out.WriteString(strings.Join(line, " "))
		out.WriteByte('\n')
	}
	return out.String()
}

func (cs *Changes) Changed() []*Change {
	var ret []*Change
	for _, c := range cs.Changes {
		if c.Changed() {
			ret = append(ret, c)
		}
	}
	return ret
}

func (cs *Changes) Count() int {
	return len(cs.Changed())
}

func (cs *Changes) Find(name string) *Change {
	for _, c := range cs.Changes {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Changes compares the current registers against the previous call. With
// onlyChanged, unchanged and non-default registers are left out.
func (s *StatusDiff) Changes(onlyChanged bool) *Changes {
	regs := s.Src.RegDump()
	cs := make([]*Change, 0, len(regs))
	for _, reg := range regs {
		if onlyChanged && !reg.Default {
			continue
		}
		change := &Change{Reg: reg.Reg, New: reg.Val, Old: s.oldRegs[reg.Reg]}
		if s.oldRegs == nil {
			change.Old = reg.Val
		}
		if !onlyChanged || change.Changed() {
			cs = append(cs, change)
		}
	}
	s.oldRegs = make(map[Reg]uint64, len(regs))
	for _, r := range regs {
		s.oldRegs[r.Reg] = r.Val
	}
	return &Changes{Digits: int(s.Src.Bits() / 4), Changes: cs}
}
