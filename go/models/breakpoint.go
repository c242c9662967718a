package models

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/pkg/errors"
)

var breakRe = regexp.MustCompile(`^(?:\*?(?P<addr>0x[0-9a-fA-F]+|\d+)|(?P<sym>[A-Za-z_.$][\w.$]*)(?P<off>\+(?:0x[0-9a-fA-F]+|\d+))?)$`)

var BreakpointParseErr = fmt.Errorf("breakpoint parse failed")

// Breakpoint pauses a run before the instruction at Addr executes.
type Breakpoint struct {
	Desc string
	Addr uint64

	// symbol and offset, resolved into Addr
	Sym string
	Off uint64

	// Temp breakpoints are removed after they are hit once.
	Temp bool
	Hits int
}

// ParseBreakpoint accepts 0xADDR, a decimal address, sym, or sym+0xOFF.
// Symbols are looked up in syms.
func ParseBreakpoint(desc string, syms Symbols) (*Breakpoint, error) {
	r := breakRe.FindStringSubmatch(desc)
	if len(r) == 0 {
		return nil, errors.Wrapf(BreakpointParseErr, "%q", desc)
	}
	addrG, sym, offG := r[1], r[2], r[3]
	b := &Breakpoint{Desc: desc, Sym: sym}
	var err error
	if addrG != "" {
		b.Addr, err = strconv.ParseUint(addrG, 0, 64)
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse int")
		}
		return b, nil
	}
	if offG != "" {
		b.Off, err = strconv.ParseUint(offG[1:], 0, 64)
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse int")
		}
	}
	found, ok := syms.Lookup(sym)
	if !ok {
		return nil, errors.Errorf("no symbol %q", sym)
	}
	b.Addr = found.Start + b.Off
	return b, nil
}

func (b *Breakpoint) String() string {
	if b.Sym != "" {
		return fmt.Sprintf("0x%x (%s)", b.Addr, b.Desc)
	}
	return fmt.Sprintf("0x%x", b.Addr)
}
