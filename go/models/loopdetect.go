package models

// LoopRun describes a loop the detector stopped following.
type LoopRun struct {
	Body []uint64
	// complete passes after the one that revealed the loop
	Passes int
	// instructions swallowed, including a trailing partial pass
	Skipped int
}

// LoopDetect watches a stream of pc values for short repeating runs.
type LoopDetect struct {
	max     int
	history []uint64
	body    []uint64
	pos     int
	passes  int
	skipped int
}

// NewLoopDetect follows loops with bodies of up to max instructions.
func NewLoopDetect(max int) *LoopDetect {
	return &LoopDetect{max: max, history: make([]uint64, 0, max*2)}
}

// Update feeds the next pc. skip is true while addr continues a loop that was
// already seen twice. ended is set when addr breaks out of a loop.
func (l *LoopDetect) Update(addr uint64) (skip bool, ended *LoopRun) {
	if l.body != nil {
		if addr == l.body[l.pos] {
			l.skipped++
			if l.pos++; l.pos == len(l.body) {
				l.pos = 0
				l.passes++
			}
			return true, nil
		}
		ended = l.Flush()
	}
	if len(l.history) == cap(l.history) {
		copy(l.history, l.history[1:])
		l.history = l.history[:len(l.history)-1]
	}
	l.history = append(l.history, addr)
	if n := l.detect(); n > 0 {
		l.body = append([]uint64(nil), l.history[len(l.history)-n:]...)
		l.pos, l.passes, l.skipped = 0, 0, 0
		l.history = l.history[:0]
	}
	return false, ended
}

// Flush ends the current loop, if any.
func (l *LoopDetect) Flush() *LoopRun {
	if l.body == nil {
		return nil
	}
	run := &LoopRun{Body: l.body, Passes: l.passes, Skipped: l.skipped}
	l.body = nil
	return run
}

// detect returns the shortest body length whose last two passes match.
func (l *LoopDetect) detect() int {
	h := l.history
outer:
	for n := 1; n <= l.max && n*2 <= len(h); n++ {
		a, b := h[len(h)-n:], h[len(h)-n*2:len(h)-n]
		for i := range a {
			if a[i] != b[i] {
				continue outer
			}
		}
		return n
	}
	return 0
}
