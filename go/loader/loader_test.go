package loader

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/rvcorn/rvcorn/go/dump"
	"github.com/rvcorn/rvcorn/go/models"
	"github.com/rvcorn/rvcorn/go/models/cpu"
)

// elf32 builds a minimal RV32 executable with one loadable segment.
func elf32(machine elf.Machine, entry, vaddr uint64, code []byte, memsz uint32) []byte {
	var buf bytes.Buffer
	le := binary.LittleEndian
	hdr := elf.Header32{
		Type:      uint16(elf.ET_EXEC),
		Machine:   uint16(machine),
		Version:   uint32(elf.EV_CURRENT),
		Entry:     uint32(entry),
		Phoff:     52,
		Ehsize:    52,
		Phentsize: 32,
		Phnum:     1,
	}
	copy(hdr.Ident[:], elfMagic)
	hdr.Ident[elf.EI_CLASS] = byte(elf.ELFCLASS32)
	hdr.Ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	hdr.Ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)
	binary.Write(&buf, le, hdr)
	binary.Write(&buf, le, elf.Prog32{
		Type:   uint32(elf.PT_LOAD),
		Off:    84,
		Vaddr:  uint32(vaddr),
		Paddr:  uint32(vaddr),
		Filesz: uint32(len(code)),
		Memsz:  memsz,
		Flags:  uint32(elf.PF_R | elf.PF_X),
		Align:  4,
	})
	buf.Write(code)
	return buf.Bytes()
}

func newMem(t *testing.T) *cpu.Mem {
	layout, err := models.Layout("default")
	if err != nil {
		t.Fatal(err)
	}
	mem, err := cpu.NewMem(32, layout.Segments(false))
	if err != nil {
		t.Fatal(err)
	}
	return mem
}

func TestElf(t *testing.T) {
	code := []byte{0x93, 0x00, 0x50, 0x00, 0x73, 0x00, 0x00, 0x00}
	p := elf32(elf.EM_RISCV, 0x00400004, 0x00400000, code, 12)
	if Detect(p) != "elf" {
		t.Fatalf("detected %s", Detect(p))
	}
	img, err := Load(p, "auto", 0)
	if err != nil {
		t.Fatal(err)
	}
	if !img.HasEntry || img.Entry != 0x00400004 || img.Bits != 32 {
		t.Fatalf("entry 0x%x bits %d", img.Entry, img.Bits)
	}
	if len(img.Chunks) != 1 || img.Size() != 12 {
		t.Fatalf("chunks %+v", img.Chunks)
	}
	mem := newMem(t)
	if err := img.Apply(mem); err != nil {
		t.Fatal(err)
	}
	if w, ok := mem.RawWord(0x00400000); !ok || w != 0x00500093 {
		t.Fatalf("word 0 = 0x%x, %v", w, ok)
	}
	// zero fill is still written
	if w, ok := mem.RawWord(0x00400008); !ok || w != 0 {
		t.Fatalf("word 2 = 0x%x, %v", w, ok)
	}
}

func TestElfWrongMachine(t *testing.T) {
	p := elf32(elf.EM_386, 0, 0x00400000, []byte{0, 0, 0, 0}, 4)
	if _, err := Load(p, "elf", 0); err == nil {
		t.Fatal("expected an error for an x86 image")
	} else if _, ok := models.AsConfig(err); !ok {
		t.Fatalf("%T is not a config error", err)
	}
}

func TestHexText(t *testing.T) {
	src := "00500093\nfff08093\n\n00000073\n"
	if Detect([]byte(src)) != "hextext" {
		t.Fatalf("detected %s", Detect([]byte(src)))
	}
	img, err := Load([]byte(src), "auto", 0x00400000)
	if err != nil {
		t.Fatal(err)
	}
	mem := newMem(t)
	if err := img.Apply(mem); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	format, _ := dump.Lookup("hextext")
	format.Dump(&out, mem, 0x00400000, 0x00400fff)
	if out.String() != "00500093\nfff08093\n00000073\n" {
		t.Fatalf("round trip: %q", out.String())
	}
	if _, err := Load([]byte("123\nxyz\n"), "hextext", 0); err == nil {
		t.Fatal("expected an error for a bad word")
	}
}

func TestIntelHexRoundTrip(t *testing.T) {
	mem := newMem(t)
	words := []uint32{0x00500093, 0xfff08093, 0x00000073, 1, 2, 3}
	buf := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(buf[i*4:], w)
	}
	if err := mem.Poke(0x00400000, buf); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	if err := dump.IntelHex(&out, mem, 0x00400000, 0x00400100); err != nil {
		t.Fatal(err)
	}
	img, err := Load(out.Bytes(), "auto", 0)
	if err != nil {
		t.Fatal(err)
	}
	if img.Format != "intelhex" || len(img.Chunks) != 1 || img.Chunks[0].Addr != 0x00400000 {
		t.Fatalf("image %+v", img)
	}
	if !bytes.Equal(img.Chunks[0].Data, buf) {
		t.Fatalf("data %x, want %x", img.Chunks[0].Data, buf)
	}
}

func TestIntelHexErrors(t *testing.T) {
	tests := []string{
		"00000001FF",
		":0000000100",
		":01000000",
		":020000090000F5",
		":zz",
	}
	for _, src := range tests {
		if _, err := Load([]byte(src), "intelhex", 0); err == nil {
			t.Errorf("%q: expected an error", src)
		}
	}
	img, err := Load([]byte(":0400000500400000B7\n:00000001FF\n"), "intelhex", 0)
	if err != nil {
		t.Fatal(err)
	}
	if !img.HasEntry || img.Entry != 0x00400000 {
		t.Fatalf("entry 0x%x", img.Entry)
	}
}

func TestBinary(t *testing.T) {
	img, err := LoadReader(strings.NewReader("\x93\x00\x50\x00"), "binary", 0x00400000)
	if err != nil {
		t.Fatal(err)
	}
	if len(img.Chunks) != 1 || img.Chunks[0].Addr != 0x00400000 {
		t.Fatalf("image %+v", img)
	}
	if _, err := Load(nil, "coff", 0); err == nil {
		t.Fatal("expected an unknown format error")
	}
}

func TestApplyUnmapped(t *testing.T) {
	img := &Image{Chunks: []Chunk{{Addr: 0x0, Data: []byte{1, 2, 3, 4}}}}
	if err := img.Apply(newMem(t)); err == nil {
		t.Fatal("expected a failure below the text segment")
	}
}
