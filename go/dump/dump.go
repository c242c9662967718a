// Package dump writes ranges of simulated memory in the formats other tools read.
package dump

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/rvcorn/rvcorn/go/models"
	"github.com/rvcorn/rvcorn/go/models/cpu"
)

// Memory is the part of *cpu.Mem a dump reads.
type Memory interface {
	RawWord(addr uint64) (uint32, bool)
}

var _ Memory = (*cpu.Mem)(nil)

// Format dumps the words from first through last inclusive, stopping at the
// first word that was never written.
type Format struct {
	Name string
	Desc string
	Dump func(w io.Writer, mem Memory, first, last uint64) error
}

var formats = map[string]*Format{}

func register(f *Format) {
	formats[f.Name] = f
}

// Lookup finds a format by name.
func Lookup(name string) (*Format, error) {
	f, ok := formats[name]
	if !ok {
		return nil, models.NewConfigError("dump", "unknown format %q (have %s)", name, strings.Join(Names(), ", "))
	}
	return f, nil
}

func Names() []string {
	names := make([]string, 0, len(formats))
	for name := range formats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func All() []*Format {
	var out []*Format
	for _, name := range Names() {
		out = append(out, formats[name])
	}
	return out
}

// Words collects the present words in [first, last].
func Words(mem Memory, first, last uint64) []uint32 {
	var out []uint32
	first &^= 3
	for addr := first; addr <= last; addr += 4 {
		val, ok := mem.RawWord(addr)
		if !ok {
			break
		}
		out = append(out, val)
		if addr+4 < addr {
			break
		}
	}
	return out
}

func textDump(line func(val uint32) string) func(io.Writer, Memory, uint64, uint64) error {
	return func(w io.Writer, mem Memory, first, last uint64) error {
		bw := bufio.NewWriter(w)
		for _, val := range Words(mem, first, last) {
			bw.WriteString(line(val))
			bw.WriteByte('\n')
		}
		return errors.Wrap(bw.Flush(), "dump")
	}
}

func printable(b byte) byte {
	if b >= 0x20 && b <= 0x7e {
		return b
	}
	return '.'
}

func init() {
	register(&Format{
		Name: "binary",
		Desc: "raw little-endian bytes, 4 per word",
		Dump: func(w io.Writer, mem Memory, first, last uint64) error {
			words := Words(mem, first, last)
			buf := make([]byte, 4*len(words))
			for i, val := range words {
				binary.LittleEndian.PutUint32(buf[i*4:], val)
			}
			_, err := w.Write(buf)
			return errors.Wrap(err, "dump")
		},
	})
	register(&Format{
		Name: "hextext",
		Desc: "one word per line as 8 hex digits",
		Dump: textDump(func(val uint32) string { return fmt.Sprintf("%08x", val) }),
	})
	register(&Format{
		Name: "binarytext",
		Desc: "one word per line as 32 binary digits",
		Dump: textDump(func(val uint32) string { return fmt.Sprintf("%032b", val) }),
	})
	register(&Format{
		Name: "asciitext",
		Desc: "one word per line as 4 characters in memory order, '.' for unprintable bytes",
		Dump: textDump(func(val uint32) string {
			var p [4]byte
			binary.LittleEndian.PutUint32(p[:], val)
			for i := range p {
				p[i] = printable(p[i])
			}
			return string(p[:])
		}),
	})
	register(&Format{
		Name: "intelhex",
		Desc: "Intel HEX records of 16 bytes",
		Dump: IntelHex,
	})
}
