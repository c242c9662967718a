package loader

import (
	"bytes"
	"debug/elf"
	"io"

	"github.com/pkg/errors"

	"github.com/rvcorn/rvcorn/go/models"
)

var elfMagic = []byte{0x7f, 0x45, 0x4c, 0x46}

func getMagic(r io.ReaderAt) []byte {
	ret := make([]byte, 4)
	r.ReadAt(ret, 0)
	return ret
}

func MatchElf(r io.ReaderAt) bool {
	return bytes.Equal(getMagic(r), elfMagic)
}

func parseElf(p []byte, base uint64) (*Image, error) {
	file, err := elf.NewFile(bytes.NewReader(p))
	if err != nil {
		return nil, errors.Wrap(err, "elf")
	}
	defer file.Close()
	if file.Machine != elf.EM_RISCV {
		return nil, models.NewConfigError("loader", "unsupported ELF machine %s", file.Machine)
	}
	if file.Data != elf.ELFDATA2LSB {
		return nil, models.NewConfigError("loader", "big-endian ELF images are not supported")
	}
	img := &Image{Entry: file.Entry, HasEntry: true}
	switch file.Class {
	case elf.ELFCLASS32:
		img.Bits = 32
	case elf.ELFCLASS64:
		img.Bits = 64
	default:
		return nil, models.NewConfigError("loader", "unknown ELF class %s", file.Class)
	}
	for _, prog := range file.Progs {
		if prog.Type != elf.PT_LOAD || prog.Memsz == 0 {
			continue
		}
		if prog.Filesz > prog.Memsz {
			return nil, models.NewConfigError("loader", "segment at 0x%x has more file bytes than memory", prog.Vaddr)
		}
		// the tail past Filesz is zero fill
		data := make([]byte, prog.Memsz)
		if _, err := io.ReadFull(prog.Open(), data[:prog.Filesz]); err != nil {
			return nil, errors.Wrapf(err, "reading segment at 0x%x", prog.Vaddr)
		}
		img.Chunks = append(img.Chunks, Chunk{Addr: prog.Vaddr, Data: data})
	}
	syms, err := file.Symbols()
	if err != nil && err != elf.ErrNoSymbols {
		return nil, errors.Wrap(err, "elf symbols")
	}
	var out []models.Symbol
	for _, sym := range syms {
		typ := elf.ST_TYPE(sym.Info)
		if sym.Name == "" || sym.Section == elf.SHN_UNDEF || (typ != elf.STT_FUNC && typ != elf.STT_NOTYPE && typ != elf.STT_OBJECT) {
			continue
		}
		out = append(out, models.Symbol{Name: sym.Name, Start: sym.Value, Size: sym.Size})
	}
	img.Symbols = models.NewSymbols(out)
	return img, nil
}
