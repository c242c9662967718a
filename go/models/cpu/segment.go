package cpu

import (
	"fmt"
	"sort"
)

// Segment is a named region of the address space with an access policy.
// Limit is the last valid byte address, so a segment may end at the top of memory.
type Segment struct {
	Name  string
	Base  uint64
	Limit uint64
	Prot  int
}

func (s *Segment) String() string {
	prots := []int{PROT_READ, PROT_WRITE, PROT_EXEC}
	chars := []string{"r", "w", "x"}
	prot := ""
	for i := range prots {
		if s.Prot&prots[i] != 0 {
			prot += chars[i]
		} else {
			prot += "-"
		}
	}
	return fmt.Sprintf("0x%08x-0x%08x %s [%s]", s.Base, s.Limit, prot, s.Name)
}

func (s *Segment) Contains(addr uint64) bool {
	return addr >= s.Base && addr <= s.Limit
}

// ContainsRange reports whether every byte of [addr, addr+size) is inside the segment.
func (s *Segment) ContainsRange(addr, size uint64) bool {
	if size == 0 {
		return s.Contains(addr)
	}
	end := addr + size - 1
	return end >= addr && s.Contains(addr) && s.Contains(end)
}

func (s *Segment) Overlaps(o *Segment) bool {
	return s.Base <= o.Limit && o.Base <= s.Limit
}

type Segments []*Segment

func (s Segments) Len() int           { return len(s) }
func (s Segments) Less(i, j int) bool { return s[i].Base < s[j].Base }
func (s Segments) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }

// Find returns the segment containing addr, or nil. Expects s to be sorted.
func (s Segments) Find(addr uint64) *Segment {
	i := sort.Search(len(s), func(i int) bool { return s[i].Limit >= addr })
	if i < len(s) && s[i].Contains(addr) {
		return s[i]
	}
	return nil
}

func (s Segments) Named(name string) *Segment {
	for _, seg := range s {
		if seg.Name == name {
			return seg
		}
	}
	return nil
}
