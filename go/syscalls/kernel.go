package syscalls

import (
	"bufio"
	"fmt"
	"io"
	"math/rand"
	"os"
	"reflect"
	"sync"
	"time"

	"github.com/lunixbochs/argjoy"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/rvcorn/rvcorn/go/cpu/riscv"
	"github.com/rvcorn/rvcorn/go/models"
)

// longest string a service reads from guest memory
const maxString = 1 << 16

type handler struct {
	sys    *Syscall
	method reflect.Value
	in     []reflect.Type
}

// Kernel runs the environment services for every hart of a machine.
type Kernel struct {
	Table  *Table
	Argjoy argjoy.Argjoy
	Log    logrus.FieldLogger
	Trace  bool

	handlers map[int]*handler

	mu     sync.Mutex
	env    Env
	argErr error

	stdin  *bufio.Reader
	stdout io.Writer
	files  map[Fd]*os.File
	nextFd Fd

	heapBase uint64
	heapMax  uint64
	brk      uint64

	rands map[uint32]*rand.Rand
	now   func() time.Time
}

// NewKernel binds every entry of table to the Kernel method of the same name.
func NewKernel(table *Table, config *models.Config) (*Kernel, error) {
	k := &Kernel{
		Table:    table,
		Log:      config.Log,
		Trace:    config.TraceSys,
		handlers: make(map[int]*handler),
		stdin:    bufio.NewReader(config.Stdin),
		stdout:   config.Stdout,
		files:    make(map[Fd]*os.File),
		nextFd:   3,
		heapBase: config.Memory.HeapBase,
		heapMax:  config.Memory.StackPointer,
		brk:      config.Memory.HeapBase,
		rands:    make(map[uint32]*rand.Rand),
		now:      time.Now,
	}
	if k.Log == nil {
		k.Log = logrus.StandardLogger()
	}
	instance := reflect.ValueOf(k)
	for _, sys := range table.All() {
		method := instance.MethodByName(sys.Name)
		if !method.IsValid() {
			return nil, models.NewConfigError("syscalls", "no handler for %q", sys.Name)
		}
		typ := method.Type()
		in := make([]reflect.Type, typ.NumIn())
		for i := range in {
			in[i] = typ.In(i)
		}
		if len(in) > 7 {
			return nil, models.NewConfigError("syscalls", "%q takes %d arguments", sys.Name, len(in))
		}
		k.handlers[sys.Number] = &handler{sys: sys, method: method, in: in}
	}
	k.Argjoy.Register(k.argCodec)
	k.Argjoy.Register(argjoy.IntToInt)
	return k, nil
}

func (k *Kernel) argCodec(arg interface{}, vals []interface{}) error {
	reg, ok := vals[0].(uint64)
	if !ok {
		return argjoy.NoMatch
	}
	switch v := arg.(type) {
	case *Buf:
		*v = NewBuf(k.env, reg)
	case *Len:
		*v = Len(reg)
	case *Fd:
		*v = Fd(int32(reg))
	case *int32:
		*v = int32(reg)
	case *uint32:
		*v = uint32(reg)
	case *string:
		s, err := k.env.Memory().ReadString(reg, maxString)
		if err != nil {
			// argjoy only reports that no codec matched, keep the real cause
			k.argErr = err
			return err
		}
		*v = s
	default:
		return argjoy.NoMatch
	}
	return nil
}

// Dispatch runs the service selected by a7 with arguments from a0..a6. An
// unknown number raises an environment call exception carrying the number.
func (k *Kernel) Dispatch(e Env) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	num := int(int32(e.Reg(regA7)))
	h, ok := k.handlers[num]
	if !ok {
		return riscv.Exception(riscv.CauseEcall, uint64(num), fmt.Sprintf("unknown syscall %d", num))
	}
	k.env = e
	k.argErr = nil
	defer func() { k.env = nil }()

	args := make([]uint64, len(h.in))
	for i := range args {
		args[i] = e.Reg(regA0 + i)
	}
	converted, err := k.Argjoy.Convert(h.in, false, args)
	if err != nil {
		if k.argErr != nil {
			return k.argErr
		}
		return models.NewInternalError("syscall "+h.sys.Name, err)
	}
	k.Log.WithFields(logrus.Fields{"hart": e.HartID(), "num": num}).Debug(h.sys.Name)
	var call string
	if k.Trace {
		call = trace(h.sys.Name, converted)
	}
	out := h.method.Call(converted)
	var ret error
	if len(out) > 0 && !out[len(out)-1].IsNil() {
		ret = out[len(out)-1].Interface().(error)
	}
	if k.Trace {
		k.Log.WithField("hart", e.HartID()).Info(call + traceRet(e, ret))
	}
	return ret
}

// CloseAll releases every file the guest left open.
func (k *Kernel) CloseAll() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	var first error
	for fd, f := range k.files {
		if err := f.Close(); err != nil && first == nil {
			first = errors.Wrapf(err, "closing fd %d", fd)
		}
		delete(k.files, fd)
	}
	return first
}

// Reset restores the heap break and closes files, for a fresh run.
func (k *Kernel) Reset() {
	k.CloseAll()
	k.mu.Lock()
	k.brk = k.heapBase
	k.nextFd = 3
	k.rands = make(map[uint32]*rand.Rand)
	k.mu.Unlock()
}

// Break reports the current heap break.
func (k *Kernel) Break() uint64 {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.brk
}

// SetBreak moves the heap break, for savestate restore.
func (k *Kernel) SetBreak(brk uint64) {
	k.mu.Lock()
	k.brk = brk
	k.mu.Unlock()
}
