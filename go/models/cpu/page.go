package cpu

const (
	pageShift = 12
	pageSize  = 1 << pageShift
	pageWords = pageSize / 4
	pageMask  = pageSize - 1
)

// page backs 4KiB of guest memory. Words only count as present once written.
type page struct {
	addr    uint64
	words   [pageWords]uint32
	written [pageWords / 64]uint64
}

func newPage(addr uint64) *page {
	return &page{addr: addr &^ pageMask}
}

func wordIndex(addr uint64) int {
	return int(addr&pageMask) >> 2
}

func (p *page) get(addr uint64) (uint32, bool) {
	i := wordIndex(addr)
	return p.words[i], p.written[i/64]&(1<<uint(i%64)) != 0
}

func (p *page) set(addr uint64, val uint32) {
	i := wordIndex(addr)
	p.words[i] = val
	p.written[i/64] |= 1 << uint(i%64)
}

func (p *page) clear(addr uint64) {
	i := wordIndex(addr)
	p.words[i] = 0
	p.written[i/64] &^= 1 << uint(i%64)
}

func (p *page) empty() bool {
	for _, w := range p.written {
		if w != 0 {
			return false
		}
	}
	return true
}

// present calls fn for each written word in address order.
func (p *page) present(fn func(addr uint64, val uint32)) {
	for i := 0; i < pageWords; i++ {
		if p.written[i/64]&(1<<uint(i%64)) != 0 {
			fn(p.addr+uint64(i)*4, p.words[i])
		}
	}
}
