package dump

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// View renders count words from addr as lines of perLine words followed by
// their characters. Words never written show as dashes.
func View(mem Memory, addr uint64, count, perLine int) []string {
	if perLine <= 0 {
		perLine = 4
	}
	addr &^= 3
	var out []string
	for i := 0; i < count; i += perLine {
		lineAddr := addr + uint64(i)*4
		blocks := make([]string, 0, perLine)
		tail := make([]byte, 0, perLine*4)
		for j := i; j < i+perLine && j < count; j++ {
			val, ok := mem.RawWord(addr + uint64(j)*4)
			if !ok {
				blocks = append(blocks, "--------")
				tail = append(tail, "    "...)
				continue
			}
			blocks = append(blocks, fmt.Sprintf("%08x", val))
			var p [4]byte
			binary.LittleEndian.PutUint32(p[:], val)
			for _, b := range p {
				tail = append(tail, printable(b))
			}
		}
		out = append(out, fmt.Sprintf("0x%08x: %s [%s]", lineAddr, strings.Join(blocks, " "), tail))
	}
	return out
}
