package models

import (
	"fmt"
	"sort"
)

type Symbol struct {
	Name  string
	Start uint64
	Size  uint64
}

func (s Symbol) Contains(addr uint64) bool {
	return s.Start <= addr && (addr < s.Start+s.Size || s.Size == 0 && addr == s.Start)
}

// Symbols is a symbol table ordered by address.
type Symbols []Symbol

func NewSymbols(syms []Symbol) Symbols {
	out := append(Symbols(nil), syms...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// Lookup finds a symbol by name.
func (s Symbols) Lookup(name string) (Symbol, bool) {
	for _, sym := range s {
		if sym.Name == name {
			return sym, true
		}
	}
	return Symbol{}, false
}

// At returns the symbol starting exactly at addr.
func (s Symbols) At(addr uint64) (Symbol, bool) {
	i := sort.Search(len(s), func(i int) bool { return s[i].Start >= addr })
	if i < len(s) && s[i].Start == addr {
		return s[i], true
	}
	return Symbol{}, false
}

// Symbolicate names addr as sym+0xoff using the closest symbol containing it.
func (s Symbols) Symbolicate(addr uint64) string {
	i := sort.Search(len(s), func(i int) bool { return s[i].Start > addr })
	for i--; i >= 0; i-- {
		sym := s[i]
		if !sym.Contains(addr) {
			continue
		}
		if dist := addr - sym.Start; dist > 0 {
			return fmt.Sprintf("%s+0x%x", sym.Name, dist)
		}
		return sym.Name
	}
	return ""
}
