package models

import (
	"fmt"
)

type Action int

const (
	ActionStart Action = iota
	ActionStop
)

func (a Action) String() string {
	if a == ActionStart {
		return "start"
	}
	return "stop"
}

type StopReason int

const (
	ReasonNone StopReason = iota
	ReasonBreakpoint
	ReasonStepLimit
	ReasonExit
	ReasonCliff
	ReasonException
	ReasonPaused
	ReasonStopped
	ReasonInternalError
)

var reasonNames = map[StopReason]string{
	ReasonNone:          "none",
	ReasonBreakpoint:    "breakpoint",
	ReasonStepLimit:     "step limit",
	ReasonExit:          "exit",
	ReasonCliff:         "dropped off bottom",
	ReasonException:     "exception",
	ReasonPaused:        "paused",
	ReasonStopped:       "stopped",
	ReasonInternalError: "internal error",
}

func (r StopReason) String() string {
	if s, ok := reasonNames[r]; ok {
		return s
	}
	return fmt.Sprintf("reason(%d)", int(r))
}

// Terminal reports whether a run that stopped for this reason can be resumed.
func (r StopReason) Terminal() bool {
	switch r {
	case ReasonExit, ReasonCliff, ReasonException, ReasonStopped, ReasonInternalError:
		return true
	}
	return false
}

// Notice is published by the machine when a run starts or stops.
type Notice struct {
	Action   Action
	MaxSteps int64
	Steps    uint64
	// instructions per second over the run
	RunSpeed float64
	Reason   StopReason
	Err      error
	Hart     int
	PC       uint64
}

func (n *Notice) String() string {
	if n.Action == ActionStart {
		return fmt.Sprintf("start (max steps %d)", n.MaxSteps)
	}
	s := fmt.Sprintf("stop: %s after %d steps at 0x%x", n.Reason, n.Steps, n.PC)
	if n.Err != nil {
		s += fmt.Sprintf(" (%v)", n.Err)
	}
	return s
}
