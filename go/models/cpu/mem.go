package cpu

import (
	"encoding/binary"
	"fmt"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

type MemError struct {
	Addr uint64
	Size int
	Enum int
}

func (m *MemError) Error() string {
	reason := "memory error"
	switch m.Enum {
	case MEM_WRITE_UNMAPPED:
		reason = "unmapped write"
	case MEM_READ_UNMAPPED:
		reason = "unmapped read"
	case MEM_FETCH_UNMAPPED:
		reason = "unmapped fetch"
	case MEM_WRITE_PROT:
		reason = "protected write"
	case MEM_READ_PROT:
		reason = "protected read"
	case MEM_FETCH_PROT:
		reason = "protected fetch"
	case MEM_WRITE_ALIGN:
		reason = "misaligned write"
	case MEM_READ_ALIGN:
		reason = "misaligned read"
	case MEM_FETCH_ALIGN:
		reason = "misaligned fetch"
	}
	return fmt.Sprintf("%s at 0x%x(%d)", reason, m.Addr, m.Size)
}

func (m *MemError) Misaligned() bool {
	return m.Enum == MEM_READ_ALIGN || m.Enum == MEM_WRITE_ALIGN || m.Enum == MEM_FETCH_ALIGN
}

// Journal receives the previous contents of registers and memory words before
// a write changes them.
type Journal interface {
	RecordReg(file, enum int, old uint64)
	RecordMem(addr uint64, old uint32, present bool)
}

type memEvent struct {
	access int
	addr   uint64
	size   int
	val    int64
}

// Mem is sparse, segmented, little-endian guest memory shared by every hart.
// Each access holds the lock for its own duration only.
type Mem struct {
	mu sync.Mutex

	bits uint
	// methods return an error for addresses that do not fit inside mask
	mask uint64
	segs Segments

	pages map[uint64]*page
	last  *page

	// Mem.hooks is set when passing *Mem to NewHooks()
	hooks *Hooks
	order binary.ByteOrder
}

func NewMem(bits uint, segs []*Segment) (*Mem, error) {
	m := &Mem{
		bits:  bits,
		mask:  ^uint64(0) >> (64 - bits),
		pages: make(map[uint64]*page),
		order: binary.LittleEndian,
	}
	m.segs = append(m.segs, segs...)
	sort.Sort(m.segs)
	for i, s := range m.segs {
		if s.Limit < s.Base || s.Limit&m.mask != s.Limit {
			return nil, errors.Errorf("segment %s outside memory range", s)
		}
		if i > 0 && m.segs[i-1].Overlaps(s) {
			return nil, errors.Errorf("segment %s overlaps %s", m.segs[i-1], s)
		}
	}
	NewHooks(nil, m)
	return m, nil
}

func (m *Mem) Bits() uint { return m.bits }

func (m *Mem) ByteOrder() binary.ByteOrder { return m.order }

func (m *Mem) HookAdd(htype int, cb interface{}, begin, end uint64) (Hook, error) {
	return m.hooks.HookAdd(htype, cb, begin, end)
}

func (m *Mem) HookDel(hook Hook) error {
	return m.hooks.HookDel(hook)
}

func (m *Mem) Segments() Segments {
	return append(Segments(nil), m.segs...)
}

func (m *Mem) SegmentFor(addr uint64) *Segment {
	return m.segs.Find(addr)
}

func (m *Mem) Segment(name string) *Segment {
	return m.segs.Named(name)
}

// SetProt changes the access policy of a named segment.
func (m *Mem) SetProt(name string, prot int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	seg := m.segs.Named(name)
	if seg == nil {
		return errors.Errorf("no segment named %q", name)
	}
	seg.Prot = prot
	return nil
}

func (m *Mem) check(addr uint64, size int, access int) error {
	var align, unmapped, prot, want int
	switch access {
	case MEM_WRITE:
		align, unmapped, prot, want = MEM_WRITE_ALIGN, MEM_WRITE_UNMAPPED, MEM_WRITE_PROT, PROT_WRITE
	case MEM_FETCH:
		align, unmapped, prot, want = MEM_FETCH_ALIGN, MEM_FETCH_UNMAPPED, MEM_FETCH_PROT, PROT_EXEC
	default:
		align, unmapped, prot, want = MEM_READ_ALIGN, MEM_READ_UNMAPPED, MEM_READ_PROT, PROT_READ
	}
	if size > 1 && addr%uint64(size) != 0 {
		return &MemError{Addr: addr, Size: size, Enum: align}
	}
	if addr&m.mask != addr {
		return &MemError{Addr: addr, Size: size, Enum: unmapped}
	}
	seg := m.segs.Find(addr)
	if seg == nil || !seg.ContainsRange(addr, uint64(size)) {
		return &MemError{Addr: addr, Size: size, Enum: unmapped}
	}
	if seg.Prot&want != want {
		return &MemError{Addr: addr, Size: size, Enum: prot}
	}
	return nil
}

func (m *Mem) page(addr uint64, create bool) *page {
	base := addr &^ pageMask
	if m.last != nil && m.last.addr == base {
		return m.last
	}
	p, ok := m.pages[base]
	if !ok {
		if !create {
			return nil
		}
		p = newPage(base)
		m.pages[base] = p
	}
	m.last = p
	return p
}

func (m *Mem) word(addr uint64) (uint32, bool) {
	if p := m.page(addr, false); p != nil {
		return p.get(addr)
	}
	return 0, false
}

func (m *Mem) setWord(addr uint64, val uint32, j Journal) {
	p := m.page(addr, true)
	if j != nil {
		old, present := p.get(addr)
		j.RecordMem(addr&^3, old, present)
	}
	p.set(addr, val)
}

// load assumes an aligned, checked access
func (m *Mem) load(addr uint64, size int) uint64 {
	if size == 8 {
		lo, _ := m.word(addr)
		hi, _ := m.word(addr + 4)
		return uint64(hi)<<32 | uint64(lo)
	}
	w, _ := m.word(addr &^ 3)
	if size == 4 {
		return uint64(w)
	}
	shift := (addr & 3) * 8
	return uint64(w>>shift) & (1<<(uint(size)*8) - 1)
}

func (m *Mem) store(addr uint64, size int, val uint64, j Journal) {
	switch size {
	case 8:
		m.setWord(addr, uint32(val), j)
		m.setWord(addr+4, uint32(val>>32), j)
	case 4:
		m.setWord(addr, uint32(val), j)
	default:
		base := addr &^ 3
		w, _ := m.word(base)
		shift := (addr & 3) * 8
		lane := uint32(1)<<(uint(size)*8) - 1
		w = w&^(lane<<shift) | (uint32(val)&lane)<<shift
		m.setWord(base, w, j)
	}
}

func (m *Mem) fault(err error, addr uint64, size int, val uint64) error {
	if merr, ok := err.(*MemError); ok && m.hooks != nil {
		m.hooks.OnFault(merr.Enum, addr, size, int64(val))
	}
	return err
}

// Read an aligned value of 1, 2, 4 or 8 bytes, checking segment protections.
func (m *Mem) Read(addr uint64, size int) (uint64, error) {
	if size != 1 && size != 2 && size != 4 && size != 8 {
		return 0, errors.Errorf("unsupported read size: %d", size)
	}
	m.mu.Lock()
	if err := m.check(addr, size, MEM_READ); err != nil {
		m.mu.Unlock()
		return 0, m.fault(err, addr, size, 0)
	}
	val := m.load(addr, size)
	m.mu.Unlock()
	m.hooks.OnMem(MEM_READ, addr, size, int64(val))
	return val, nil
}

// Write an aligned value of 1, 2, 4 or 8 bytes. The previous contents of each
// touched word are reported to j, which may be nil. Nothing is modified on error.
func (m *Mem) Write(addr uint64, size int, val uint64, j Journal) error {
	if size != 1 && size != 2 && size != 4 && size != 8 {
		return errors.Errorf("unsupported write size: %d", size)
	}
	m.mu.Lock()
	if err := m.check(addr, size, MEM_WRITE); err != nil {
		m.mu.Unlock()
		return m.fault(err, addr, size, val)
	}
	m.store(addr, size, val, j)
	m.mu.Unlock()
	m.hooks.OnMem(MEM_WRITE, addr, size, int64(val))
	return nil
}

func (m *Mem) LoadByte(addr uint64) (uint8, error) {
	v, err := m.Read(addr, 1)
	return uint8(v), err
}

func (m *Mem) LoadHalf(addr uint64) (uint16, error) {
	v, err := m.Read(addr, 2)
	return uint16(v), err
}

func (m *Mem) LoadWord(addr uint64) (uint32, error) {
	v, err := m.Read(addr, 4)
	return uint32(v), err
}

func (m *Mem) LoadDouble(addr uint64) (uint64, error) {
	return m.Read(addr, 8)
}

func (m *Mem) StoreByte(addr uint64, val uint8) error {
	return m.Write(addr, 1, uint64(val), nil)
}

func (m *Mem) StoreHalf(addr uint64, val uint16) error {
	return m.Write(addr, 2, uint64(val), nil)
}

func (m *Mem) StoreWord(addr uint64, val uint32) error {
	return m.Write(addr, 4, uint64(val), nil)
}

func (m *Mem) StoreDouble(addr uint64, val uint64) error {
	return m.Write(addr, 8, val, nil)
}

// Fetch reads an instruction word. present is false for a word that was never written.
func (m *Mem) Fetch(addr uint64) (uint32, bool, error) {
	m.mu.Lock()
	if err := m.check(addr, 4, MEM_FETCH); err != nil {
		m.mu.Unlock()
		return 0, false, m.fault(err, addr, 4, 0)
	}
	w, present := m.word(addr)
	m.mu.Unlock()
	if present {
		m.hooks.OnMem(MEM_FETCH, addr, 4, int64(w))
	}
	return w, present, nil
}

// RawWord returns the word containing addr without protection checks or
// materializing storage. ok is false if the word was never written.
func (m *Mem) RawWord(addr uint64) (uint32, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.word(addr &^ 3)
}

// RestoreWord puts a word back into a previous state, including "never written".
func (m *Mem) RestoreWord(addr uint64, val uint32, present bool) error {
	addr &^= 3
	m.mu.Lock()
	if addr&m.mask != addr || m.segs.Find(addr) == nil {
		m.mu.Unlock()
		return &MemError{Addr: addr, Size: 4, Enum: MEM_WRITE_UNMAPPED}
	}
	if present {
		m.page(addr, true).set(addr, val)
	} else if p := m.page(addr, false); p != nil {
		p.clear(addr)
		if p.empty() {
			delete(m.pages, p.addr)
			m.last = nil
		}
	}
	m.mu.Unlock()
	m.hooks.OnMem(MEM_WRITE, addr, 4, int64(val))
	return nil
}

// Poke writes p at addr ignoring protections, for loading program images.
// Every byte must be mapped.
func (m *Mem) Poke(addr uint64, p []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range p {
		a := addr + uint64(i)
		if a&m.mask != a || m.segs.Find(a) == nil {
			return &MemError{Addr: a, Size: 1, Enum: MEM_WRITE_UNMAPPED}
		}
	}
	for i := 0; i < len(p); {
		a := addr + uint64(i)
		if a&3 == 0 && len(p)-i >= 4 {
			m.store(a, 4, uint64(m.order.Uint32(p[i:])), nil)
			i += 4
			continue
		}
		m.store(a, 1, uint64(p[i]), nil)
		i++
	}
	return nil
}

// ReadUnaligned fills p from addr one byte at a time.
func (m *Mem) ReadUnaligned(addr uint64, p []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range p {
		if err := m.check(addr+uint64(i), 1, MEM_READ); err != nil {
			return err
		}
	}
	for i := range p {
		p[i] = byte(m.load(addr+uint64(i), 1))
	}
	return nil
}

// WriteUnaligned stores p at addr one byte at a time. The whole range is
// checked before anything is written.
func (m *Mem) WriteUnaligned(addr uint64, p []byte, j Journal) error {
	m.mu.Lock()
	for i := range p {
		if err := m.check(addr+uint64(i), 1, MEM_WRITE); err != nil {
			m.mu.Unlock()
			return err
		}
	}
	for i, b := range p {
		m.store(addr+uint64(i), 1, uint64(b), j)
	}
	m.mu.Unlock()
	m.hooks.OnMem(MEM_WRITE, addr, len(p), 0)
	return nil
}

// ReadString reads a NUL-terminated string of at most max bytes.
func (m *Mem) ReadString(addr uint64, max int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var buf []byte
	for i := 0; i < max; i++ {
		a := addr + uint64(i)
		if err := m.check(a, 1, MEM_READ); err != nil {
			return "", err
		}
		b := byte(m.load(a, 1))
		if b == 0 {
			break
		}
		buf = append(buf, b)
	}
	return string(buf), nil
}

// Written calls fn for every present word in address order.
func (m *Mem) Written(fn func(addr uint64, val uint32)) {
	m.mu.Lock()
	bases := make([]uint64, 0, len(m.pages))
	for base := range m.pages {
		bases = append(bases, base)
	}
	sort.Slice(bases, func(i, j int) bool { return bases[i] < bases[j] })
	type pair struct {
		addr uint64
		val  uint32
	}
	var words []pair
	for _, base := range bases {
		m.pages[base].present(func(addr uint64, val uint32) {
			words = append(words, pair{addr, val})
		})
	}
	m.mu.Unlock()
	for _, w := range words {
		fn(w.addr, w.val)
	}
}

// Snapshot returns every present word keyed by address.
func (m *Mem) Snapshot() map[uint64]uint32 {
	out := make(map[uint64]uint32)
	m.Written(func(addr uint64, val uint32) {
		out[addr] = val
	})
	return out
}

// Reset forgets every written word.
func (m *Mem) Reset() {
	m.mu.Lock()
	m.pages = make(map[uint64]*page)
	m.last = nil
	m.mu.Unlock()
}
