package syscalls

import (
	"bufio"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/rvcorn/rvcorn/go/models"
)

// Unassigned marks a catalog entry without a default number.
const Unassigned = -1

// Syscall names a service. Number is the value of a7 that selects it.
type Syscall struct {
	Name   string
	Number int
	Desc   string
}

// Override rebinds a syscall number by name.
type Override struct {
	Name   string
	Number int
	// source line, for diagnostics
	Line int
}

// DefaultOverrides numbers the catalog entries that have no default.
const DefaultOverrides = `# services without a default number
Brk = 214
`

// Catalog lists every service with its default number.
func Catalog() []Syscall {
	return []Syscall{
		{"PrintInt", 1, "print the integer in a0"},
		{"PrintFloat", 2, "print the float in fa0"},
		{"PrintDouble", 3, "print the double in fa0"},
		{"PrintString", 4, "print the NUL-terminated string at a0"},
		{"ReadInt", 5, "read an integer into a0"},
		{"ReadFloat", 6, "read a float into fa0"},
		{"ReadDouble", 7, "read a double into fa0"},
		{"ReadString", 8, "read a line into the buffer at a0, at most a1-1 bytes"},
		{"Sbrk", 9, "grow the heap by a0 bytes, returning the old break"},
		{"Exit", 10, "exit with code 0"},
		{"PrintChar", 11, "print the character in a0"},
		{"ReadChar", 12, "read a character into a0"},
		{"GetCWD", 17, "copy the working directory into the buffer at a0"},
		{"Time", 30, "milliseconds since the epoch into a0 (low) and a1 (high)"},
		{"Sleep", 32, "sleep for a0 milliseconds"},
		{"PrintIntHex", 34, "print a0 as 8 hex digits"},
		{"PrintIntBinary", 35, "print a0 as 32 binary digits"},
		{"PrintIntUnsigned", 36, "print a0 as an unsigned integer"},
		{"RandSeed", 40, "seed random stream a0 with a1"},
		{"RandInt", 41, "next integer from random stream a0"},
		{"RandIntRange", 42, "next integer in [0, a1) from random stream a0"},
		{"RandFloat", 43, "next float in [0, 1) from random stream a0"},
		{"Close", 57, "close file descriptor a0"},
		{"LSeek", 62, "seek file descriptor a0 to offset a1 from a2"},
		{"Read", 63, "read up to a2 bytes from a0 into the buffer at a1"},
		{"Write", 64, "write a2 bytes from the buffer at a1 to a0"},
		{"Exit2", 93, "exit with code a0"},
		{"Open", 1024, "open the file named at a0 with flags a1"},
		{"Brk", Unassigned, "set the heap break to a0"},
	}
}

// ParseOverrides reads "name = number" lines. Blank lines and # comments are ignored.
func ParseOverrides(r io.Reader) ([]Override, error) {
	var out []Override
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		parts := strings.SplitN(text, "=", 2)
		if len(parts) != 2 {
			return nil, models.NewConfigError("syscalls", "line %d: expected name = number", line)
		}
		name := strings.TrimSpace(parts[0])
		num, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 0, 32)
		if err != nil || name == "" {
			return nil, models.NewConfigError("syscalls", "line %d: bad override %q", line, text)
		}
		out = append(out, Override{Name: name, Number: int(num), Line: line})
	}
	if err := scanner.Err(); err != nil {
		return nil, models.NewConfigError("syscalls", "%v", err)
	}
	return out, nil
}

// MergeOverrides appends the base overrides whose names user does not mention.
func MergeOverrides(base, user []Override) []Override {
	named := make(map[string]bool, len(user))
	for _, o := range user {
		named[o.Name] = true
	}
	out := append([]Override(nil), user...)
	for _, o := range base {
		if !named[o.Name] {
			out = append(out, o)
		}
	}
	return out
}

// Table is the frozen number to service mapping.
type Table struct {
	all    []*Syscall
	byNum  map[int]*Syscall
	byName map[string]*Syscall
}

// NewTable applies overrides to a copy of catalog. Every override must name a
// distinct catalog entry, every unassigned entry must be numbered by an
// override, and final numbers must be unique.
func NewTable(catalog []Syscall, overrides []Override) (*Table, error) {
	t := &Table{
		byNum:  make(map[int]*Syscall),
		byName: make(map[string]*Syscall),
	}
	for i := range catalog {
		sys := catalog[i]
		if _, ok := t.byName[sys.Name]; ok {
			return nil, models.NewConfigError("syscalls", "duplicate syscall name %q", sys.Name)
		}
		t.byName[sys.Name] = &sys
		t.all = append(t.all, &sys)
	}
	seen := make(map[string]bool)
	for _, o := range overrides {
		sys, ok := t.byName[o.Name]
		if !ok {
			return nil, models.NewConfigError("syscalls", "override for unknown syscall %q", o.Name)
		}
		if seen[o.Name] {
			return nil, models.NewConfigError("syscalls", "syscall %q overridden twice", o.Name)
		}
		if sys.Number != Unassigned {
			return nil, models.NewConfigError("syscalls", "override for %q, which already has number %d", o.Name, sys.Number)
		}
		if o.Number < 0 {
			return nil, models.NewConfigError("syscalls", "negative number %d for %q", o.Number, o.Name)
		}
		seen[o.Name] = true
		sys.Number = o.Number
	}
	for _, sys := range t.all {
		if sys.Number == Unassigned {
			return nil, models.NewConfigError("syscalls", "syscall %q has no number", sys.Name)
		}
		if other, ok := t.byNum[sys.Number]; ok {
			return nil, models.NewConfigError("syscalls", "%q and %q share number %d", other.Name, sys.Name, sys.Number)
		}
		t.byNum[sys.Number] = sys
	}
	sort.Slice(t.all, func(i, j int) bool { return t.all[i].Number < t.all[j].Number })
	return t, nil
}

// DefaultTable builds the catalog with DefaultOverrides and user overrides applied.
func DefaultTable(user []Override) (*Table, error) {
	base, err := ParseOverrides(strings.NewReader(DefaultOverrides))
	if err != nil {
		return nil, err
	}
	return NewTable(Catalog(), MergeOverrides(base, user))
}

func (t *Table) Find(num int) *Syscall {
	return t.byNum[num]
}

func (t *Table) ByName(name string) *Syscall {
	return t.byName[name]
}

// All returns the services ordered by number.
func (t *Table) All() []*Syscall {
	return append([]*Syscall(nil), t.all...)
}
