package record

import (
	"encoding/binary"
	"fmt"
	"io"
)

var order = binary.BigEndian

const (
	OP_NOP = iota
	OP_FRAME

	OP_REG_CHANGE
	OP_MEM_WRITE
)

// Op is one undoable change. Pack/Unpack serialize it for history export.
type Op interface {
	Pack(w io.Writer) (int, error)
	Unpack(r io.Reader) (int, error)
}

func Pack(w io.Writer, op Op) (int, error) {
	var tmp [1]byte
	var e byte
	switch op.(type) {
	case *OpNop:
		e = OP_NOP
	case *OpFrame:
		e = OP_FRAME
	case *OpRegChange:
		e = OP_REG_CHANGE
	case *OpMemWrite:
		e = OP_MEM_WRITE
	default:
		return 0, fmt.Errorf("Unknown OP type: %T", op)
	}
	tmp[0] = e

	total, err := w.Write(tmp[:])
	if err != nil {
		return total, err
	}
	n, err := op.Pack(w)
	return total + n, err
}

func Unpack(r io.Reader) (Op, int, error) {
	var tmp [1]byte
	if _, err := io.ReadFull(r, tmp[:]); err != nil {
		return nil, 0, err
	}
	var op Op
	switch tmp[0] {
	case OP_NOP:
		op = &OpNop{}
	case OP_FRAME:
		op = &OpFrame{}
	case OP_REG_CHANGE:
		op = &OpRegChange{}
	case OP_MEM_WRITE:
		op = &OpMemWrite{}
	default:
		return nil, 0, fmt.Errorf("Unknown op: %d", tmp[0])
	}
	n, err := op.Unpack(r)
	return op, n + 1, err
}

type OpNop struct{}

func (o *OpNop) Pack(w io.Writer) (int, error)   { return 0, nil }
func (o *OpNop) Unpack(r io.Reader) (int, error) { return 0, nil }

// OpRegChange holds the value a register had before it was written.
type OpRegChange struct {
	File  uint8
	Enum  uint16
	Value uint64
}

func (o *OpRegChange) Pack(w io.Writer) (int, error) {
	var tmp [1 + 2 + 8]byte
	tmp[0] = o.File
	order.PutUint16(tmp[1:], o.Enum)
	order.PutUint64(tmp[3:], o.Value)
	return w.Write(tmp[:])
}

func (o *OpRegChange) Unpack(r io.Reader) (int, error) {
	var tmp [1 + 2 + 8]byte
	n, err := io.ReadFull(r, tmp[:])
	if err == nil {
		o.File = tmp[0]
		o.Enum = order.Uint16(tmp[1:])
		o.Value = order.Uint64(tmp[3:])
	}
	return n, err
}

// OpMemWrite holds the word at Addr before a write. Present is false if the
// word had never been written.
type OpMemWrite struct {
	Addr    uint64
	Old     uint32
	Present bool
}

func (o *OpMemWrite) Pack(w io.Writer) (int, error) {
	var tmp [8 + 4 + 1]byte
	order.PutUint64(tmp[:], o.Addr)
	order.PutUint32(tmp[8:], o.Old)
	if o.Present {
		tmp[12] = 1
	}
	return w.Write(tmp[:])
}

func (o *OpMemWrite) Unpack(r io.Reader) (int, error) {
	var tmp [8 + 4 + 1]byte
	n, err := io.ReadFull(r, tmp[:])
	if err == nil {
		o.Addr = order.Uint64(tmp[:])
		o.Old = order.Uint32(tmp[8:])
		o.Present = tmp[12] != 0
	}
	return n, err
}

// OpFrame groups the changes made by one step of one hart.
type OpFrame struct {
	Hart uint16
	PC   uint64
	Ops  []Op
}

func (o *OpFrame) Pack(w io.Writer) (int, error) {
	// pack header
	var tmp [2 + 8 + 4]byte
	order.PutUint16(tmp[:], o.Hart)
	order.PutUint64(tmp[2:], o.PC)
	order.PutUint32(tmp[10:], uint32(len(o.Ops)))
	total, err := w.Write(tmp[:])
	if err != nil {
		return total, err
	}

	// pack sub-ops
	for _, v := range o.Ops {
		if n, err := Pack(w, v); err != nil {
			return total + n, err
		} else {
			total += n
		}
	}
	return total, nil
}

func (o *OpFrame) Unpack(r io.Reader) (int, error) {
	var tmp [2 + 8 + 4]byte
	total, err := io.ReadFull(r, tmp[:])
	if err != nil {
		return total, err
	}
	o.Hart = order.Uint16(tmp[:])
	o.PC = order.Uint64(tmp[2:])
	ops := int(order.Uint32(tmp[10:]))

	// unpack sub-ops
	o.Ops = make([]Op, ops)
	for i := 0; i < ops; i++ {
		op, n, err := Unpack(r)
		if err != nil {
			return total + n, err
		} else {
			total += n
		}
		o.Ops[i] = op
	}
	return total, nil
}
