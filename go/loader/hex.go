package loader

import (
	"bufio"
	"encoding/binary"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/rvcorn/rvcorn/go/dump"
	"github.com/rvcorn/rvcorn/go/models"
)

func isHexText(text string) bool {
	for _, line := range strings.Fields(text) {
		if len(line) > 8 {
			return false
		}
		if _, err := strconv.ParseUint(line, 16, 32); err != nil {
			return false
		}
	}
	return true
}

// parseHexText reads one word per line, as written by the hextext dump format.
func parseHexText(p []byte, base uint64) (*Image, error) {
	var data []byte
	scanner := bufio.NewScanner(strings.NewReader(string(p)))
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		val, err := strconv.ParseUint(strings.TrimPrefix(text, "0x"), 16, 32)
		if err != nil {
			return nil, models.NewConfigError("loader", "hextext line %d: %q is not a word", line, text)
		}
		var w [4]byte
		binary.LittleEndian.PutUint32(w[:], uint32(val))
		data = append(data, w[:]...)
	}
	return parseBinary(data, base)
}

// parseIntelHex reads data, extended segment, extended linear and start
// address records. Adjacent records are merged into one chunk.
func parseIntelHex(p []byte, base uint64) (*Image, error) {
	img := &Image{}
	var upper uint64
	scanner := bufio.NewScanner(strings.NewReader(string(p)))
	line := 0
	bad := func(format string, a ...interface{}) error {
		return models.NewConfigError("loader", "intelhex line %d: "+format, append([]interface{}{line}, a...)...)
	}
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if text[0] != ':' {
			return nil, bad("missing ':'")
		}
		raw, err := hex.DecodeString(text[1:])
		if err != nil || len(raw) < 5 {
			return nil, bad("malformed record")
		}
		count := int(raw[0])
		if len(raw) != count+5 {
			return nil, bad("length %d does not match byte count %d", len(raw)-5, count)
		}
		var sum byte
		for _, b := range raw {
			sum += b
		}
		if sum != 0 {
			return nil, bad("checksum mismatch")
		}
		addr := uint64(binary.BigEndian.Uint16(raw[1:3]))
		data := raw[4 : 4+count]
		switch raw[3] {
		case dump.IHexData:
			img.place(upper+addr, data)
		case dump.IHexEOF:
			return img, nil
		case 2:
			if count != 2 {
				return nil, bad("bad extended segment address")
			}
			upper = uint64(binary.BigEndian.Uint16(data)) << 4
		case dump.IHexExtLinear:
			if count != 2 {
				return nil, bad("bad extended linear address")
			}
			upper = uint64(binary.BigEndian.Uint16(data)) << 16
		case 3:
			// start segment address, CS:IP
			if count != 4 {
				return nil, bad("bad start segment address")
			}
			img.Entry = uint64(binary.BigEndian.Uint16(data[:2]))<<4 + uint64(binary.BigEndian.Uint16(data[2:]))
			img.HasEntry = true
		case dump.IHexStartLinear:
			if count != 4 {
				return nil, bad("bad start linear address")
			}
			img.Entry = uint64(binary.BigEndian.Uint32(data))
			img.HasEntry = true
		default:
			return nil, bad("unknown record type %d", raw[3])
		}
	}
	return img, nil
}

func (i *Image) place(addr uint64, data []byte) {
	if n := len(i.Chunks); n > 0 {
		last := &i.Chunks[n-1]
		if last.Addr+uint64(len(last.Data)) == addr {
			last.Data = append(last.Data, data...)
			return
		}
	}
	i.Chunks = append(i.Chunks, Chunk{Addr: addr, Data: append([]byte(nil), data...)})
}
