package models

import (
	"strings"
	"testing"
)

type fakeRegs struct {
	vals []uint64
}

func (f *fakeRegs) RegDump() []RegVal {
	names := []string{"pc", "ra", "sp", "ft0"}
	out := make([]RegVal, len(f.vals))
	for i, v := range f.vals {
		out[i] = RegVal{Reg: Reg{Enum: i, Name: names[i]}, Val: v, Default: names[i] != "ft0"}
	}
	return out
}

func (f *fakeRegs) Bits() uint { return 32 }

func TestStatusDiff(t *testing.T) {
	regs := &fakeRegs{vals: []uint64{0x400000, 0, 0x7fffeffc, 0}}
	diff := &StatusDiff{Src: regs}
	if n := diff.Changes(true).Count(); n != 0 {
		t.Fatalf("first snapshot reported %d changes", n)
	}
	regs.vals = []uint64{0x400004, 0, 0x7fffeff8, 5}
	cs := diff.Changes(true)
	if len(cs.Changes) != 2 || cs.Find("pc") == nil || cs.Find("sp") == nil {
		t.Fatalf("changes: %+v", cs.Changes)
	}
	out := cs.String(false)
	if !strings.Contains(out, "+   pc 0x00400004") || !strings.Contains(out, "+   sp 0x7fffeff8") {
		t.Fatalf("plain output %q", out)
	}
	if colored := cs.String(true); !strings.Contains(colored, "\x1b[") {
		t.Fatalf("colored output has no escapes: %q", colored)
	}
	all := diff.Changes(false)
	if len(all.Changes) != 4 || all.Count() != 0 {
		t.Fatalf("full listing: %d entries, %d changed", len(all.Changes), all.Count())
	}
}

func TestChangeMask(t *testing.T) {
	c := &Change{Old: 0x12345678, New: 0x12ff5679}
	masks := c.Mask(8)
	want := []ChangeMask{
		{Old: "12", New: "12"},
		{Old: "34", New: "ff", Changed: true},
		{Old: "567", New: "567"},
		{Old: "8", New: "9", Changed: true},
	}
	if len(masks) != len(want) {
		t.Fatalf("masks %+v", masks)
	}
	for i := range want {
		if masks[i] != want[i] {
			t.Errorf("mask %d: got %+v, want %+v", i, masks[i], want[i])
		}
	}
}

func TestParseBreakpoint(t *testing.T) {
	syms := NewSymbols([]Symbol{{Name: "main", Start: 0x400000}, {Name: "loop.1", Start: 0x400020}})
	tests := []struct {
		desc string
		addr uint64
		ok   bool
	}{
		{"0x400010", 0x400010, true},
		{"*0x400010", 0x400010, true},
		{"4194320", 4194320, true},
		{"main", 0x400000, true},
		{"main+0x8", 0x400008, true},
		{"loop.1+4", 0x400024, true},
		{"missing", 0, false},
		{"main+", 0, false},
		{"", 0, false},
	}
	for _, test := range tests {
		b, err := ParseBreakpoint(test.desc, syms)
		if test.ok != (err == nil) {
			t.Errorf("%q: err = %v", test.desc, err)
			continue
		}
		if test.ok && b.Addr != test.addr {
			t.Errorf("%q: addr 0x%x, want 0x%x", test.desc, b.Addr, test.addr)
		}
	}
}

func TestSortNames(t *testing.T) {
	got := SortNames([]string{"x10", "x2", "a1", "x1"})
	want := []string{"a1", "x1", "x2", "x10"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
