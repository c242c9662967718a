package syscalls

import (
	"github.com/rvcorn/rvcorn/go/models/cpu"
)

// Env is the hart state a service may touch.
type Env interface {
	Reg(enum int) uint64
	SetReg(enum int, val uint64) error
	Float32(i int) float32
	Float64(i int) float64
	SetFloat32(i int, v float32) error
	SetFloat64(i int, v float64) error
	Memory() *cpu.Mem
	Journal() cpu.Journal
	Done() <-chan struct{}
	HartID() int
	Bits() uint
}

// argument and result registers
const (
	regA0 = 10
	regA1 = 11
	regA7 = 17

	regFA0 = 10
)

// Buf is a guest memory address passed to a service.
type Buf struct {
	Addr uint64
	env  Env
}

func NewBuf(e Env, addr uint64) Buf {
	return Buf{Addr: addr, env: e}
}

func (b Buf) Read(p []byte) error {
	return b.env.Memory().ReadUnaligned(b.Addr, p)
}

// Write stores p through the hart's journal so the store can be stepped back.
func (b Buf) Write(p []byte) error {
	return b.env.Memory().WriteUnaligned(b.Addr, p, b.env.Journal())
}

// Len is a byte count.
type Len uint64

// Fd is a guest file descriptor.
type Fd int32
