package rvcorn

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/rvcorn/rvcorn/go/cpu/riscv"
	"github.com/rvcorn/rvcorn/go/models"
)

func (m *Machine) acquire() bool {
	return atomic.CompareAndSwapInt32(&m.busy, 0, 1)
}

func (m *Machine) release() {
	atomic.StoreInt32(&m.busy, 0)
}

// prepare checks the machine can run and marks it Running.
func (m *Machine) prepare() error {
	if !m.acquire() {
		return errors.WithStack(models.ErrIllegalState)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.state {
	case StateReady, StatePaused:
	default:
		m.release()
		return errors.Wrapf(models.ErrIllegalState, "machine is %s", m.state)
	}
	m.resume = m.skipOnce
	m.skipOnce = false
	m.state = StateRunning
	atomic.StoreInt32(&m.pauseReq, 0)
	atomic.StoreInt32(&m.stopReq, 0)
	m.done = make(chan struct{})
	return nil
}

// Run executes until maxSteps steps have committed, a breakpoint, Pause,
// Stop, or the program ends. maxSteps <= 0 uses Config.MaxSteps, where 0
// means no limit.
func (m *Machine) Run(ctx context.Context, maxSteps int64) (*models.Notice, error) {
	if err := m.prepare(); err != nil {
		return nil, err
	}
	return m.run(ctx, maxSteps), nil
}

// Step executes exactly one step on the next hart.
func (m *Machine) Step() (*models.Notice, error) {
	return m.Run(context.Background(), 1)
}

// Start runs in the background. Use Wait for the result.
func (m *Machine) Start(ctx context.Context, maxSteps int64) error {
	if err := m.prepare(); err != nil {
		return err
	}
	go m.run(ctx, maxSteps)
	return nil
}

// Pause stops a run at the next step boundary. The run can be resumed.
func (m *Machine) Pause() {
	atomic.StoreInt32(&m.pauseReq, 1)
}

// Stop ends a run at the next step boundary and wakes a sleeping syscall.
// A stopped machine must be Reset before it runs again.
func (m *Machine) Stop() {
	atomic.StoreInt32(&m.stopReq, 1)
	m.mu.Lock()
	cancel := m.cancel
	if m.state == StatePaused || m.state == StateReady {
		m.state = StateStopped
		m.last = &models.Notice{Action: models.ActionStop, Reason: models.ReasonStopped}
	}
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Wait blocks until the current run ends and returns its final notice.
func (m *Machine) Wait() *models.Notice {
	m.mu.Lock()
	done := m.done
	m.mu.Unlock()
	if done != nil {
		<-done
	}
	return m.Last()
}

func (m *Machine) run(parent context.Context, maxSteps int64) *models.Notice {
	defer m.release()
	if maxSteps <= 0 {
		maxSteps = m.Config.MaxSteps
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	m.mu.Lock()
	m.cancel = cancel
	done := m.done
	m.mu.Unlock()
	defer close(done)

	m.publish(&models.Notice{Action: models.ActionStart, MaxSteps: maxSteps})
	m.Log.WithField("max_steps", maxSteps).Debug("run start")
	start := time.Now()
	var steps uint64
	reason, hart, err := m.loop(ctx, maxSteps, &steps)
	m.flushLoops()

	n := &models.Notice{
		Action:   models.ActionStop,
		MaxSteps: maxSteps,
		Steps:    steps,
		Reason:   reason,
		Err:      err,
		Hart:     hart,
		PC:       m.Harts[hart].PC(),
	}
	if elapsed := time.Since(start).Seconds(); elapsed > 0 {
		n.RunSpeed = float64(steps) / elapsed
	}
	m.mu.Lock()
	m.last = n
	m.cancel = nil
	// a breakpoint stop resumes by executing the instruction it guards
	m.skipOnce = reason == models.ReasonBreakpoint && err == nil
	if reason.Terminal() {
		m.state = StateStopped
	} else {
		m.state = StatePaused
	}
	m.mu.Unlock()
	m.Log.WithFields(logrus.Fields{"reason": reason, "steps": steps, "pc": n.PC}).Debug("run stop")
	m.publish(n)
	return n
}

func (m *Machine) loop(ctx context.Context, maxSteps int64, steps *uint64) (models.StopReason, int, error) {
	skip := m.resume
	for {
		cur := m.cur
		h := m.Harts[cur]
		if maxSteps > 0 && int64(*steps) >= maxSteps {
			return models.ReasonStepLimit, cur, nil
		}
		if atomic.LoadInt32(&m.stopReq) != 0 || ctx.Err() != nil {
			return models.ReasonStopped, cur, nil
		}
		if atomic.LoadInt32(&m.pauseReq) != 0 {
			return models.ReasonPaused, cur, nil
		}
		if !skip && m.hasBreakpoint(h.PC()) {
			return models.ReasonBreakpoint, cur, nil
		}
		skip = false

		h.SetContext(ctx)
		err := h.Step()
		m.cur = (cur + 1) % len(m.Harts)
		if err == nil {
			*steps++
			m.traceStep(cur)
			continue
		}
		if _, ok := models.AsExit(err); ok {
			*steps++
			return models.ReasonExit, cur, err
		}
		switch e := errors.Cause(err).(type) {
		case *riscv.Trap:
			if e.Cause == riscv.CauseBreakpoint && !e.Interrupt {
				// the ebreak committed, resume after it
				*steps++
				m.cur = cur
				return models.ReasonBreakpoint, cur, err
			}
			m.cur = cur
			return models.ReasonException, cur, err
		}
		m.cur = cur
		if errors.Cause(err) == riscv.ErrDroppedOff {
			return models.ReasonCliff, cur, nil
		}
		return models.ReasonInternalError, cur, err
	}
}

func (m *Machine) hasBreakpoint(addr uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.breakpoints[addr]
	if ok {
		b.Hits++
		if b.Temp {
			delete(m.breakpoints, addr)
		}
	}
	return ok
}

// BackStep undoes the most recent committed step on any hart. It returns
// false when there is no history. A stopped machine becomes Paused.
func (m *Machine) BackStep() (bool, error) {
	if !m.acquire() {
		return false, errors.WithStack(models.ErrIllegalState)
	}
	defer m.release()
	m.mu.Lock()
	state := m.state
	m.mu.Unlock()
	if state == StateEmpty || state == StateRunning {
		return false, errors.Wrapf(models.ErrIllegalState, "machine is %s", state)
	}
	if !m.History.Enabled() {
		return false, nil
	}
	frame := m.History.Peek()
	ok, err := m.History.Undo(m)
	if err != nil {
		m.mu.Lock()
		m.state = StateStopped
		m.last = &models.Notice{Action: models.ActionStop, Reason: models.ReasonInternalError, Err: err}
		m.mu.Unlock()
		return false, err
	}
	if !ok {
		return false, nil
	}
	m.mu.Lock()
	m.cur = int(frame.Hart)
	m.state = StatePaused
	m.last = nil
	m.skipOnce = true
	m.mu.Unlock()
	return true, nil
}
