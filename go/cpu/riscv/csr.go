package riscv

import (
	"fmt"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/rvcorn/rvcorn/go/models/cpu"
)

var (
	ErrUnavailableCsr = errors.New("unavailable csr")
	ErrReadOnlyCsr    = errors.New("read-only csr")
)

type csrDef struct {
	num  uint16
	name string
	ro   bool
	// writable bits
	mask uint64

	// aliases view bits [shift, shift+width) of another csr
	alias uint16
	shift uint
	width uint
	// high half of a 64-bit counter on RV32
	high bool
	// 32-bit only
	rv32 bool
}

var csrDefs = []csrDef{
	{num: CSR_USTATUS, name: "ustatus", mask: ^uint64(0)},
	{num: CSR_FFLAGS, name: "fflags", alias: CSR_FCSR, shift: 0, width: 5},
	{num: CSR_FRM, name: "frm", alias: CSR_FCSR, shift: 5, width: 3},
	{num: CSR_FCSR, name: "fcsr", mask: 0xff},
	{num: CSR_UIE, name: "uie", mask: ^uint64(0)},
	{num: CSR_UTVEC, name: "utvec", mask: ^uint64(0)},
	{num: CSR_USCRATCH, name: "uscratch", mask: ^uint64(0)},
	{num: CSR_UEPC, name: "uepc", mask: ^uint64(0)},
	{num: CSR_UCAUSE, name: "ucause", mask: ^uint64(0)},
	{num: CSR_UTVAL, name: "utval", mask: ^uint64(0)},
	{num: CSR_UIP, name: "uip", mask: ^uint64(0)},

	{num: CSR_CYCLE, name: "cycle", ro: true},
	{num: CSR_TIME, name: "time", ro: true},
	{num: CSR_INSTRET, name: "instret", ro: true},
	{num: CSR_CYCLEH, name: "cycleh", ro: true, alias: CSR_CYCLE, high: true, rv32: true},
	{num: CSR_TIMEH, name: "timeh", ro: true, alias: CSR_TIME, high: true, rv32: true},
	{num: CSR_INSTRETH, name: "instreth", ro: true, alias: CSR_INSTRET, high: true, rv32: true},
}

var csrByNum = func() map[uint16]*csrDef {
	m := make(map[uint16]*csrDef)
	for i := range csrDefs {
		m[csrDefs[i].num] = &csrDefs[i]
	}
	return m
}()

func CSRName(num uint16) string {
	if d, ok := csrByNum[num]; ok {
		return d.name
	}
	return fmt.Sprintf("0x%03x", num)
}

// CSRFile holds the user-level control and status registers of one hart.
// Only backing registers have storage; aliases are views computed on access.
type CSRFile struct {
	Journal cpu.Journal

	xlen  int
	mask  uint64
	vals  map[uint16]uint64
	reset map[uint16]uint64
	defs  map[uint16]*csrDef
	hooks *cpu.Hooks
	// time reads a live clock and is not architectural state
	clock func() uint64
}

func NewCSRFile(xlen int) *CSRFile {
	c := &CSRFile{
		xlen:  xlen,
		mask:  ^uint64(0) >> uint(64-xlen),
		vals:  make(map[uint16]uint64),
		reset: make(map[uint16]uint64),
		defs:  make(map[uint16]*csrDef),
		clock: func() uint64 { return uint64(time.Now().UnixNano() / int64(time.Millisecond)) },
	}
	for i := range csrDefs {
		d := &csrDefs[i]
		if d.rv32 && xlen != 32 {
			continue
		}
		c.defs[d.num] = d
		if d.alias == 0 && d.num != CSR_TIME {
			c.vals[d.num] = 0
		}
	}
	return c
}

func (c *CSRFile) SetHooks(h *cpu.Hooks) { c.hooks = h }

func (c *CSRFile) Lookup(name string) (uint16, bool) {
	for num, d := range c.defs {
		if d.name == name {
			return num, true
		}
	}
	return 0, false
}

// Numbers lists every available csr in ascending order.
func (c *CSRFile) Numbers() []uint16 {
	nums := make([]uint16, 0, len(c.defs))
	for num := range c.defs {
		nums = append(nums, num)
	}
	sort.Slice(nums, func(i, j int) bool { return nums[i] < nums[j] })
	return nums
}

// Backing lists the registers that hold state, in ascending order.
func (c *CSRFile) Backing() []uint16 {
	nums := make([]uint16, 0, len(c.vals))
	for num := range c.vals {
		nums = append(nums, num)
	}
	sort.Slice(nums, func(i, j int) bool { return nums[i] < nums[j] })
	return nums
}

func (c *CSRFile) raw(num uint16) uint64 {
	if num == CSR_TIME {
		return c.clock()
	}
	return c.vals[num]
}

func (c *CSRFile) Get(num uint16) (uint64, error) {
	d, ok := c.defs[num]
	if !ok {
		return 0, ErrUnavailableCsr
	}
	if d.alias != 0 || d.high {
		v := c.raw(d.alias)
		if d.high {
			return v >> 32, nil
		}
		return (v >> d.shift) & (1<<d.width - 1), nil
	}
	return c.raw(num) & c.mask, nil
}

// Update writes a csr and returns its previous value. Aliases merge into their
// backing register.
func (c *CSRFile) Update(num uint16, val uint64) (uint64, error) {
	d, ok := c.defs[num]
	if !ok {
		return 0, ErrUnavailableCsr
	}
	if d.ro {
		return 0, ErrReadOnlyCsr
	}
	prev, _ := c.Get(num)
	target, merged := num, val&d.mask
	if d.alias != 0 {
		lane := uint64(1)<<d.width - 1
		target = d.alias
		merged = c.vals[target]&^(lane<<d.shift) | (val&lane)<<d.shift
		merged &= c.defs[target].mask
	}
	c.set(target, merged&c.mask)
	return prev, nil
}

func (c *CSRFile) set(num uint16, val uint64) {
	if c.Journal != nil {
		c.Journal.RecordReg(cpu.REG_CSR, int(num), c.vals[num])
	}
	c.vals[num] = val
	if c.hooks != nil {
		c.hooks.OnReg(cpu.REG_CSR, int(num), val)
	}
}

// SetBits and ClearBits are read-modify-write helpers for flag registers.
func (c *CSRFile) SetBits(num uint16, bits uint64) error {
	v, err := c.Get(num)
	if err != nil {
		return err
	}
	if v|bits == v {
		return nil
	}
	_, err = c.Update(num, v|bits)
	return err
}

func (c *CSRFile) ClearBits(num uint16, bits uint64) error {
	v, err := c.Get(num)
	if err != nil {
		return err
	}
	if v&^bits == v {
		return nil
	}
	_, err = c.Update(num, v&^bits)
	return err
}

// Tick advances the cycle and instret counters by one retired instruction.
func (c *CSRFile) Tick() {
	c.set(CSR_CYCLE, c.vals[CSR_CYCLE]+1)
	c.set(CSR_INSTRET, c.vals[CSR_INSTRET]+1)
}

// Restore puts a backing register back without journaling, ignoring permissions.
func (c *CSRFile) Restore(num uint16, val uint64) error {
	if _, ok := c.vals[num]; !ok {
		return ErrUnavailableCsr
	}
	c.vals[num] = val
	if c.hooks != nil {
		c.hooks.OnReg(cpu.REG_CSR, int(num), val)
	}
	return nil
}

func (c *CSRFile) SetReset(num uint16, val uint64) error {
	if _, ok := c.vals[num]; !ok {
		return ErrUnavailableCsr
	}
	c.reset[num] = val
	return nil
}

func (c *CSRFile) Reset() {
	for num := range c.vals {
		c.vals[num] = c.reset[num]
		if c.hooks != nil {
			c.hooks.OnReg(cpu.REG_CSR, int(num), c.vals[num])
		}
	}
}

// Snapshot copies every backing register.
func (c *CSRFile) Snapshot() map[uint16]uint64 {
	out := make(map[uint16]uint64, len(c.vals))
	for k, v := range c.vals {
		out[k] = v
	}
	return out
}
