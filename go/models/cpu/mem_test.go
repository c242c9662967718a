package cpu

import (
	"testing"
)

func makeMem(t testing.TB) *Mem {
	segs := []*Segment{
		{Name: "text", Base: 0x1000, Limit: 0x1fff, Prot: PROT_READ | PROT_EXEC},
		{Name: "data", Base: 0x2000, Limit: 0x2fff, Prot: PROT_READ | PROT_WRITE},
		{Name: "rodata", Base: 0x3000, Limit: 0x3fff, Prot: PROT_READ},
		{Name: "kernel", Base: 0x8000, Limit: 0xffff, Prot: PROT_READ | PROT_WRITE},
	}
	mem, err := NewMem(16, segs)
	if err != nil {
		t.Fatal(err)
	}
	return mem
}

func memEnum(err error) int {
	if merr, ok := err.(*MemError); ok {
		return merr.Enum
	}
	return -1
}

func TestMemSegments(t *testing.T) {
	if _, err := NewMem(16, []*Segment{{Name: "big", Base: 0, Limit: 0x10000}}); err == nil {
		t.Error("mapped a segment outside memory range")
	}
	overlap := []*Segment{
		{Name: "a", Base: 0x1000, Limit: 0x1fff},
		{Name: "b", Base: 0x1ffc, Limit: 0x2fff},
	}
	if _, err := NewMem(32, overlap); err == nil {
		t.Error("mapped overlapping segments")
	}
	mem := makeMem(t)
	if seg := mem.SegmentFor(0x2abc); seg == nil || seg.Name != "data" {
		t.Errorf("SegmentFor(0x2abc) = %v", seg)
	}
	if seg := mem.SegmentFor(0x4000); seg != nil {
		t.Errorf("SegmentFor(0x4000) = %v, expected nil", seg)
	}
	if err := mem.SetProt("text", PROT_ALL); err != nil {
		t.Fatal(err)
	}
	if err := mem.StoreWord(0x1000, 1); err != nil {
		t.Errorf("write to text failed after SetProt: %v", err)
	}
}

func TestMemWordRoundTrip(t *testing.T) {
	mem := makeMem(t)
	for addr := uint64(0x2000); addr < 0x3000; addr += 4 {
		val := uint32(addr*2654435761) ^ 0xdeadbeef
		if err := mem.StoreWord(addr, val); err != nil {
			t.Fatalf("StoreWord(%#x) failed: %v", addr, err)
		}
		if got, err := mem.LoadWord(addr); err != nil {
			t.Fatalf("LoadWord(%#x) failed: %v", addr, err)
		} else if got != val {
			t.Fatalf("LoadWord(%#x) = %#x, expected %#x", addr, got, val)
		}
	}
}

func TestMemMisaligned(t *testing.T) {
	mem := makeMem(t)
	for _, addr := range []uint64{0x2001, 0x2002, 0x2003, 0x2ffd} {
		if err := mem.StoreWord(addr, 0x11223344); memEnum(err) != MEM_WRITE_ALIGN {
			t.Errorf("StoreWord(%#x) returned %v, expected misaligned write", addr, err)
		}
		if _, err := mem.LoadWord(addr); memEnum(err) != MEM_READ_ALIGN {
			t.Errorf("LoadWord(%#x) returned %v, expected misaligned read", addr, err)
		}
	}
	if err := mem.StoreHalf(0x2001, 1); memEnum(err) != MEM_WRITE_ALIGN {
		t.Errorf("StoreHalf(0x2001) returned %v", err)
	}
	if err := mem.StoreDouble(0x2004, 1); memEnum(err) != MEM_WRITE_ALIGN {
		t.Errorf("StoreDouble(0x2004) returned %v", err)
	}
	if err := mem.StoreByte(0x2003, 1); err != nil {
		t.Errorf("StoreByte(0x2003) failed: %v", err)
	}
	snap := mem.Snapshot()
	if len(snap) != 1 || snap[0x2000] != 0x01000000 {
		t.Fatalf("misaligned accesses changed memory: %#v", snap)
	}
}

func TestMemProt(t *testing.T) {
	mem := makeMem(t)
	if err := mem.StoreWord(0x1000, 1); memEnum(err) != MEM_WRITE_PROT {
		t.Errorf("write to text returned %v", err)
	}
	if err := mem.StoreWord(0x3000, 1); memEnum(err) != MEM_WRITE_PROT {
		t.Errorf("write to rodata returned %v", err)
	}
	if _, err := mem.LoadWord(0x1000); err != nil {
		t.Errorf("read from text failed: %v", err)
	}
	if _, _, err := mem.Fetch(0x2000); memEnum(err) != MEM_FETCH_PROT {
		t.Errorf("fetch from data returned %v", err)
	}
	if _, _, err := mem.Fetch(0x1002); memEnum(err) != MEM_FETCH_ALIGN {
		t.Errorf("misaligned fetch returned %v", err)
	}
	if _, present, err := mem.Fetch(0x1000); err != nil || present {
		t.Errorf("fetch of unwritten text returned present=%v err=%v", present, err)
	}
	if _, err := mem.LoadWord(0x4000); memEnum(err) != MEM_READ_UNMAPPED {
		t.Errorf("read past last segment returned %v", err)
	}
	if err := mem.StoreByte(0x4000, 1); memEnum(err) != MEM_WRITE_UNMAPPED {
		t.Errorf("write past last segment returned %v", err)
	}
}

func TestMemLanes(t *testing.T) {
	mem := makeMem(t)
	mem.StoreWord(0x2000, 0x04030201)
	if b, _ := mem.LoadByte(0x2001); b != 2 {
		t.Errorf("LoadByte(0x2001) = %#x", b)
	}
	if h, _ := mem.LoadHalf(0x2002); h != 0x0403 {
		t.Errorf("LoadHalf(0x2002) = %#x", h)
	}
	mem.StoreByte(0x2003, 0xff)
	if w, _ := mem.LoadWord(0x2000); w != 0xff030201 {
		t.Errorf("LoadWord(0x2000) = %#x after StoreByte", w)
	}
	mem.StoreHalf(0x2000, 0xbeef)
	if w, _ := mem.LoadWord(0x2000); w != 0xff03beef {
		t.Errorf("LoadWord(0x2000) = %#x after StoreHalf", w)
	}
	mem.StoreDouble(0x2008, 0x1122334455667788)
	lo, _ := mem.LoadWord(0x2008)
	hi, _ := mem.LoadWord(0x200c)
	if lo != 0x55667788 || hi != 0x11223344 {
		t.Errorf("StoreDouble lanes: lo=%#x hi=%#x", lo, hi)
	}
	if d, _ := mem.LoadDouble(0x2008); d != 0x1122334455667788 {
		t.Errorf("LoadDouble = %#x", d)
	}
}

type memLog struct {
	words []string
}

func (m *memLog) RecordReg(file, enum int, old uint64) {}

func (m *memLog) RecordMem(addr uint64, old uint32, present bool) {
	m.words = append(m.words, sprintWord(addr, old, present))
}

func sprintWord(addr uint64, val uint32, present bool) string {
	if !present {
		return "absent"
	}
	return "present"
}

func TestMemJournal(t *testing.T) {
	mem := makeMem(t)
	log := &memLog{}
	mem.Write(0x2002, 2, 0xaaaa, log)
	mem.Write(0x2000, 2, 0xbbbb, log)
	mem.Write(0x3000, 4, 1, log)
	if err := strseq(log.words, []string{"absent", "present"}); err != nil {
		t.Fatal(err)
	}
}

func TestMemRawAndRestore(t *testing.T) {
	mem := makeMem(t)
	if _, ok := mem.RawWord(0x2000); ok {
		t.Fatal("RawWord reported an unwritten word as present")
	}
	mem.StoreWord(0x2000, 42)
	if v, ok := mem.RawWord(0x2002); !ok || v != 42 {
		t.Fatalf("RawWord(0x2002) = %d, %v", v, ok)
	}
	if err := mem.RestoreWord(0x2000, 0, false); err != nil {
		t.Fatal(err)
	}
	if _, ok := mem.RawWord(0x2000); ok {
		t.Fatal("RestoreWord(absent) left the word present")
	}
	if err := mem.RestoreWord(0x4000, 0, true); err == nil {
		t.Fatal("RestoreWord outside any segment succeeded")
	}
	mem.StoreWord(0x8000, 1)
	mem.Reset()
	if len(mem.Snapshot()) != 0 {
		t.Fatal("Reset() left words behind")
	}
}

func TestMemUnaligned(t *testing.T) {
	mem := makeMem(t)
	if err := mem.WriteUnaligned(0x2ffe, []byte("abcd"), nil); err == nil {
		t.Fatal("WriteUnaligned into rodata succeeded")
	}
	if _, ok := mem.RawWord(0x2ffc); ok {
		t.Fatal("failed WriteUnaligned modified memory")
	}
	if err := mem.WriteUnaligned(0x2001, []byte("hi there\x00"), nil); err != nil {
		t.Fatal(err)
	}
	if s, err := mem.ReadString(0x2001, 64); err != nil || s != "hi there" {
		t.Fatalf("ReadString = %q, %v", s, err)
	}
	if s, _ := mem.ReadString(0x2001, 2); s != "hi" {
		t.Fatalf("ReadString with max 2 = %q", s)
	}
	p := make([]byte, 3)
	if err := mem.ReadUnaligned(0x2002, p); err != nil || string(p) != "i t" {
		t.Fatalf("ReadUnaligned = %q, %v", p, err)
	}
}

func TestMemPoke(t *testing.T) {
	mem := makeMem(t)
	// text is not writable, but images are loaded into it
	if err := mem.Poke(0x1002, []byte{1, 2, 3, 4, 5, 6, 7}); err != nil {
		t.Fatal(err)
	}
	if w, _ := mem.RawWord(0x1000); w != 0x02010000 {
		t.Errorf("first word: %#x", w)
	}
	if w, _ := mem.RawWord(0x1004); w != 0x06050403 {
		t.Errorf("second word: %#x", w)
	}
	if w, _ := mem.RawWord(0x1008); w != 0x07 {
		t.Errorf("third word: %#x", w)
	}
	if err := mem.Poke(0x3ffe, []byte{1, 2, 3}); memEnum(err) != MEM_WRITE_UNMAPPED {
		t.Errorf("poke past a segment: %v", err)
	}
	if _, ok := mem.RawWord(0x3ffc); ok {
		t.Error("failed poke modified memory")
	}
}

func TestMemHooks(t *testing.T) {
	mem := makeMem(t)
	var writes []uint64
	var faults int
	mem.HookAdd(HOOK_MEM_WRITE, func(_ Cpu, access int, addr uint64, size int, val int64) {
		writes = append(writes, addr)
	}, 1, 0)
	mem.HookAdd(HOOK_MEM_ERR, func(_ Cpu, access int, addr uint64, size int, val int64) bool {
		faults++
		return false
	}, 1, 0)
	mem.StoreWord(0x2000, 1)
	mem.StoreWord(0x2001, 1)
	mem.StoreByte(0x2005, 1)
	if len(writes) != 2 || writes[0] != 0x2000 || writes[1] != 0x2005 || faults != 1 {
		t.Fatalf("writes=%#v faults=%d", writes, faults)
	}
}

// observers may touch memory without deadlocking
func TestMemHookReentry(t *testing.T) {
	mem := makeMem(t)
	var seen uint32
	mem.HookAdd(HOOK_MEM_WRITE, func(_ Cpu, access int, addr uint64, size int, val int64) {
		seen, _ = mem.RawWord(addr)
	}, 1, 0)
	mem.StoreWord(0x2000, 7)
	if seen != 7 {
		t.Fatalf("observer saw %d", seen)
	}
}

func BenchmarkMemWord(b *testing.B) {
	mem := makeMem(b)
	for i := 0; i < b.N; i++ {
		addr := 0x2000 + uint64(i*4)&0xfff
		mem.StoreWord(addr, uint32(i))
		mem.LoadWord(addr)
	}
}
