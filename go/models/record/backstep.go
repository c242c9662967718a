package record

import (
	"io"
	"sync"

	"github.com/golang/snappy"
	"github.com/pkg/errors"

	"github.com/rvcorn/rvcorn/go/models"
)

// Restorer puts machine state back during Undo. Restores are not recorded.
type Restorer interface {
	RestoreReg(hart, file, enum int, val uint64) error
	RestoreWord(addr uint64, val uint32, present bool) error
	RestorePC(hart int, pc uint64) error
}

// Backstepper keeps the history of executed steps as frames of undo ops.
// A positive limit keeps only the latest frames.
type Backstepper struct {
	mu      sync.Mutex
	enabled bool
	limit   int
	frames  []*OpFrame
	// frames before start were dropped by the limit
	start   int
	dropped uint64
	cur     *OpFrame
}

func NewBackstepper(enabled bool, limit int) *Backstepper {
	if limit < 0 {
		limit = 0
	}
	return &Backstepper{enabled: enabled, limit: limit}
}

func (b *Backstepper) Enabled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.enabled
}

// SetEnabled turns recording on or off. Turning it off forgets the history.
func (b *Backstepper) SetEnabled(enabled bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.enabled = enabled
	if !enabled {
		b.clear()
	}
}

func (b *Backstepper) Limit() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.limit
}

func (b *Backstepper) SetLimit(limit int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if limit < 0 {
		limit = 0
	}
	b.limit = limit
	b.trim()
}

// Depth is the number of steps that can be undone.
func (b *Backstepper) Depth() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.frames) - b.start
}

// Dropped counts frames discarded by the limit.
func (b *Backstepper) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

func (b *Backstepper) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clear()
}

func (b *Backstepper) clear() {
	b.frames = nil
	b.start = 0
	b.cur = nil
}

func (b *Backstepper) trim() {
	if b.limit == 0 {
		return
	}
	for len(b.frames)-b.start > b.limit {
		b.frames[b.start] = nil
		b.start++
		b.dropped++
	}
	if b.start > 1024 && b.start*2 > len(b.frames) {
		b.frames = append([]*OpFrame(nil), b.frames[b.start:]...)
		b.start = 0
	}
}

// Begin opens a frame for one step of hart starting at pc.
func (b *Backstepper) Begin(hart int, pc uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.enabled {
		return
	}
	b.cur = &OpFrame{Hart: uint16(hart), PC: pc}
}

func (b *Backstepper) RecordReg(file, enum int, old uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cur != nil {
		b.cur.Ops = append(b.cur.Ops, &OpRegChange{File: uint8(file), Enum: uint16(enum), Value: old})
	}
}

func (b *Backstepper) RecordMem(addr uint64, old uint32, present bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cur != nil {
		b.cur.Ops = append(b.cur.Ops, &OpMemWrite{Addr: addr, Old: old, Present: present})
	}
}

// End commits the open frame.
func (b *Backstepper) End() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cur == nil {
		return
	}
	b.frames = append(b.frames, b.cur)
	b.cur = nil
	b.trim()
}

// Discard drops the open frame. Its changes must already be reverted or never made.
func (b *Backstepper) Discard() {
	b.mu.Lock()
	b.cur = nil
	b.mu.Unlock()
}

// Undo reverts the most recent frame. It returns false when there is no history.
func (b *Backstepper) Undo(r Restorer) (bool, error) {
	b.mu.Lock()
	if len(b.frames) == b.start {
		b.mu.Unlock()
		return false, nil
	}
	frame := b.frames[len(b.frames)-1]
	b.frames[len(b.frames)-1] = nil
	b.frames = b.frames[:len(b.frames)-1]
	b.mu.Unlock()

	hart := int(frame.Hart)
	for i := len(frame.Ops) - 1; i >= 0; i-- {
		var err error
		switch op := frame.Ops[i].(type) {
		case *OpRegChange:
			err = r.RestoreReg(hart, int(op.File), int(op.Enum), op.Value)
		case *OpMemWrite:
			err = r.RestoreWord(op.Addr, op.Old, op.Present)
		case *OpNop:
		default:
			err = errors.Errorf("cannot undo %T", op)
		}
		if err != nil {
			return true, models.NewInternalError("backstep", err)
		}
	}
	if err := r.RestorePC(hart, frame.PC); err != nil {
		return true, models.NewInternalError("backstep", err)
	}
	return true, nil
}

// Frames copies the history, oldest first.
func (b *Backstepper) Frames() []*OpFrame {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*OpFrame(nil), b.frames[b.start:]...)
}

// WriteTo exports the history, oldest frame first, as a snappy stream of packed frames.
func (b *Backstepper) WriteTo(w io.Writer) (int64, error) {
	counter := &countWriter{w: w}
	z := snappy.NewBufferedWriter(counter)
	for _, frame := range b.Frames() {
		if _, err := Pack(z, frame); err != nil {
			return counter.n, err
		}
	}
	err := z.Close()
	return counter.n, err
}

// ReadHistory reads frames written by WriteTo.
func ReadHistory(r io.Reader) ([]*OpFrame, error) {
	z := snappy.NewReader(r)
	var frames []*OpFrame
	for {
		op, _, err := Unpack(z)
		if err == io.EOF {
			return frames, nil
		} else if err != nil {
			return frames, errors.Wrap(err, "read history")
		}
		frame, ok := op.(*OpFrame)
		if !ok {
			return frames, errors.Errorf("unexpected %T in history", op)
		}
		frames = append(frames, frame)
	}
}

type countWriter struct {
	w io.Writer
	n int64
}

func (c *countWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// Peek returns the most recent frame without removing it.
func (b *Backstepper) Peek() *OpFrame {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.frames) == b.start {
		return nil
	}
	return b.frames[len(b.frames)-1]
}
