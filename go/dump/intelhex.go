package dump

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// Intel HEX record types
const (
	IHexData        = 0
	IHexEOF         = 1
	IHexExtLinear   = 4
	IHexStartLinear = 5
)

// IHexRecord formats one record with its checksum.
func IHexRecord(typ byte, addr uint16, data []byte) string {
	sum := byte(len(data)) + byte(addr>>8) + byte(addr) + typ
	s := fmt.Sprintf(":%02X%04X%02X", len(data), addr, typ)
	for _, b := range data {
		sum += b
		s += fmt.Sprintf("%02X", b)
	}
	return s + fmt.Sprintf("%02X", -sum)
}

// IntelHex writes data records of up to 16 bytes, an extended linear address
// record whenever the upper 16 address bits change, and an EOF record.
func IntelHex(w io.Writer, mem Memory, first, last uint64) error {
	bw := bufio.NewWriter(w)
	base := first &^ 3
	var upper uint64
	var start uint64
	data := make([]byte, 0, 16)
	flush := func() {
		if len(data) > 0 {
			fmt.Fprintln(bw, IHexRecord(IHexData, uint16(start), data))
			data = data[:0]
		}
	}
	for i, val := range Words(mem, first, last) {
		addr := base + uint64(i)*4
		if addr>>16 != upper {
			flush()
			upper = addr >> 16
			var ext [2]byte
			binary.BigEndian.PutUint16(ext[:], uint16(upper))
			fmt.Fprintln(bw, IHexRecord(IHexExtLinear, 0, ext[:]))
		}
		if len(data) == 0 {
			start = addr
		}
		var p [4]byte
		binary.LittleEndian.PutUint32(p[:], val)
		data = append(data, p[:]...)
		if len(data) == 16 {
			flush()
		}
	}
	flush()
	fmt.Fprintln(bw, IHexRecord(IHexEOF, 0, nil))
	return errors.Wrap(bw.Flush(), "dump")
}
