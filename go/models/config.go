package models

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

type Config struct {
	// 32 or 64
	XLEN  int
	Harts int

	Memory            *MemoryConfig
	SelfModifyingCode bool

	Backstep      bool
	BackstepLimit int
	// 0 runs without a step budget
	MaxSteps int64

	// path to a name = number syscall override file
	SyscallOverrides string

	Color     bool
	Verbose   bool
	TraceExec bool
	TraceReg  bool
	TraceMem  bool
	TraceSys  bool
	// collapse exec trace loops with bodies up to this many instructions
	TraceLoop int

	// debugging output and logs
	Output io.Writer
	// guest console
	Stdin  io.Reader
	Stdout io.Writer

	Log *logrus.Logger
}

// Init fills unset fields with defaults and returns c.
func (c *Config) Init() *Config {
	if c.XLEN == 0 {
		c.XLEN = 32
	}
	if c.Harts <= 0 {
		c.Harts = 1
	}
	if c.Memory == nil {
		c.Memory = DefaultLayout()
	}
	if c.Output == nil {
		c.Output = os.Stderr
	}
	if c.Stdin == nil {
		c.Stdin = os.Stdin
	}
	if c.Stdout == nil {
		c.Stdout = os.Stdout
	}
	if c.Log == nil {
		c.Log = logrus.New()
		c.Log.Out = c.Output
		c.Log.Formatter = &logrus.TextFormatter{
			DisableColors:    !c.Color,
			DisableTimestamp: true,
		}
		if c.Verbose {
			c.Log.SetLevel(logrus.DebugLevel)
		} else {
			c.Log.SetLevel(logrus.WarnLevel)
		}
	}
	return c
}

func (c *Config) Validate() error {
	if c.XLEN != 32 && c.XLEN != 64 {
		return NewConfigError("xlen", "unsupported XLEN %d", c.XLEN)
	}
	if c.BackstepLimit < 0 {
		return NewConfigError("backstep", "negative history limit %d", c.BackstepLimit)
	}
	return nil
}
