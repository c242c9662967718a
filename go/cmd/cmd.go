package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/pprof"
	"strings"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/shibukawa/configdir"
	"github.com/sirupsen/logrus"

	rvcorn "github.com/rvcorn/rvcorn/go"
	"github.com/rvcorn/rvcorn/go/loader"
	"github.com/rvcorn/rvcorn/go/models"
)

// RvcornCmd builds a machine from command line flags and an image path, then
// hands it to RunMachine.
type RvcornCmd struct {
	Config *models.Config
	Flags  *flag.FlagSet

	SetupFlags func() error
	// defaults to running the program to completion
	RunMachine func(m *rvcorn.Machine) (int, error)
	Teardown   func()

	// the image argument may be left out
	OptionalImage bool

	Machine *rvcorn.Machine
	Out     io.Writer
}

func NewRvcornCmd() *RvcornCmd {
	c := &RvcornCmd{
		Flags: flag.NewFlagSet("cli", flag.ExitOnError),
		Out:   os.Stderr,
	}
	c.RunMachine = c.runToEnd
	return c
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// PrintError prints err and, when it carries one, an aligned stack trace.
func (c *RvcornCmd) PrintError(err error) {
	w := c.Out
	fmt.Fprintf(w, "%s\n", strings.Repeat("-", 40))
	fmt.Fprintf(w, "Error: %s\n", err)
	st, ok := err.(stackTracer)
	if !ok {
		if st, ok = errors.Cause(err).(stackTracer); !ok {
			return
		}
	}
	var frames [][2]string
	width := 0
	for _, f := range st.StackTrace() {
		fileline := fmt.Sprintf("%s:%d", f, f)
		method := fmt.Sprintf("%n", f)
		if len(fileline) > width {
			width = len(fileline)
		}
		frames = append(frames, [2]string{fileline, method})
		if method == "main" {
			break
		}
	}
	for _, f := range frames {
		fmt.Fprintf(w, "%-*s | %s()\n", width, f[0], f[1])
	}
}

// defaultSyscalls finds syscalls.txt in the user config folders.
func defaultSyscalls() string {
	dirs := configdir.New("rvcorn", "")
	if folder := dirs.QueryFolderContainsFile("syscalls.txt"); folder != nil {
		return filepath.Join(folder.Path, "syscalls.txt")
	}
	return ""
}

func (c *RvcornCmd) Run(argv []string) int {
	fs := c.Flags
	xlen := fs.Int("xlen", 32, "register width, 32 or 64")
	harts := fs.Int("harts", 1, "number of harts sharing memory")
	layout := fs.String("layout", "default", "memory layout: "+strings.Join(models.LayoutNames(), ", "))
	smc := fs.Bool("smc", false, "allow self-modifying code (writable text)")
	format := fs.String("format", "auto", "image format: auto, "+strings.Join(loader.Formats(), ", "))
	base := fs.Uint64("base", 0, "load address for raw images (default text base)")

	backstep := fs.Bool("backstep", true, "record history for stepping back")
	history := fs.Int("history", 0, "history limit in steps (0 keeps everything)")
	maxSteps := fs.Int64("max", 0, "stop after this many steps (0 for no limit)")
	syscalls := fs.String("syscalls", defaultSyscalls(), "syscall number override file")

	trace := fs.Bool("trace", false, "enable -etrace -rtrace -mtrace -strace")
	etrace := fs.Bool("etrace", false, "trace execution")
	rtrace := fs.Bool("rtrace", false, "trace register modification")
	mtrace := fs.Bool("mtrace", false, "trace memory writes")
	strace := fs.Bool("strace", false, "trace syscalls")
	loop := fs.Int("loop", 0, "collapse -etrace loops of up to this many instructions")
	tnames := []string{"trace", "etrace", "rtrace", "mtrace", "strace", "loop"}

	verbose := fs.Bool("v", false, "verbose output")
	color := fs.Bool("color", isatty.IsTerminal(os.Stderr.Fd()), "color register output")
	inscount := fs.Bool("inscount", false, "print instruction count after execution")
	outfile := fs.String("o", "", "redirect debugging output to file (default stderr)")
	load := fs.String("load", "", "restore a savestate before running")
	save := fs.String("save", "", "write a savestate after running")

	cpuprofile := fs.String("cpuprofile", "", "write cpu profile to <file>")
	memprofile := fs.String("memprofile", "", "write mem profile to <file>")

	fs.Usage = func() {
		usage := "Usage: %s [options] <image>\n\nOptions:\n"
		if c.OptionalImage {
			usage = "Usage: %s [options] [image]\n\nOptions:\n"
		}
		fmt.Fprintf(c.Out, usage, argv[0])
		var flags, tflags []*flag.Flag
		fs.VisitAll(func(f *flag.Flag) {
			for _, name := range tnames {
				if name == f.Name {
					tflags = append(tflags, f)
					return
				}
			}
			flags = append(flags, f)
		})
		models.PrintFlags(c.Out, flags)
		fmt.Fprintf(c.Out, "\nTrace Options:\n")
		models.PrintFlags(c.Out, tflags)
	}
	if c.SetupFlags != nil {
		if err := c.SetupFlags(); err != nil {
			c.PrintError(err)
			return 1
		}
	}
	fs.Parse(argv[1:])

	args := fs.Args()
	if len(args) < 1 && !c.OptionalImage || len(args) > 1 {
		fs.Usage()
		return 1
	}

	mem, err := models.Layout(*layout)
	if err != nil {
		c.PrintError(err)
		return 1
	}
	config := &models.Config{
		XLEN:              *xlen,
		Harts:             *harts,
		Memory:            mem,
		SelfModifyingCode: *smc,
		Backstep:          *backstep,
		BackstepLimit:     *history,
		MaxSteps:          *maxSteps,
		SyscallOverrides:  *syscalls,

		Color:     *color,
		Verbose:   *verbose,
		TraceExec: *etrace || *trace,
		TraceReg:  *rtrace || *trace,
		TraceMem:  *mtrace || *trace,
		TraceSys:  *strace || *trace,
		TraceLoop: *loop,

		Stdin:  os.Stdin,
		Stdout: os.Stdout,
	}
	if *outfile != "" {
		out, err := os.OpenFile(*outfile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			c.PrintError(errors.WithStack(err))
			return 1
		}
		defer out.Close()
		config.Output = out
	} else if *color {
		config.Output = colorable.NewColorableStderr()
	} else {
		config.Output = os.Stderr
	}
	c.Config = config

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			c.PrintError(errors.WithStack(err))
			return 1
		}
		pprof.StartCPUProfile(f)
	}
	defer func() {
		if *cpuprofile != "" {
			pprof.StopCPUProfile()
		}
		if *memprofile != "" {
			f, err := os.Create(*memprofile)
			if err != nil {
				fmt.Fprintf(c.Out, "could not write heap profile: %s\n", err)
				return
			}
			pprof.WriteHeapProfile(f)
			f.Close()
		}
		if c.Teardown != nil {
			c.Teardown()
		}
	}()

	m, err := rvcorn.NewMachine(config)
	if err != nil {
		c.PrintError(err)
		return 1
	}
	c.Machine = m
	if len(args) > 0 {
		if *base == 0 {
			*base = mem.TextBase
		}
		img, err := loader.LoadFile(args[0], *format, *base)
		if err != nil {
			c.PrintError(err)
			return 1
		}
		if err := m.LoadImage(img); err != nil {
			c.PrintError(err)
			return 1
		}
		m.Log.WithFields(logrus.Fields{"format": img.Format, "bytes": img.Size(), "entry": img.Entry}).Debug("loaded image")
	}
	if *load != "" {
		if err := restoreFile(m, *load); err != nil {
			c.PrintError(err)
			return 1
		}
	}

	code, err := c.RunMachine(m)
	if err != nil {
		c.PrintError(err)
		if code == 0 {
			code = 1
		}
	}
	if *inscount {
		fmt.Fprintf(config.Output, "inscount: %d\n", m.Retired())
	}
	if *save != "" {
		if err := saveFile(m, *save); err != nil {
			c.PrintError(err)
			return 1
		}
	}
	return code
}

// runToEnd runs until the program stops. Interrupt stops the machine.
func (c *RvcornCmd) runToEnd(m *rvcorn.Machine) (int, error) {
	if m.State() == rvcorn.StateEmpty {
		return 1, errors.New("no program loaded")
	}
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	defer signal.Stop(sigs)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-sigs:
			m.Stop()
		case <-ctx.Done():
		}
	}()

	n, err := m.Run(ctx, 0)
	if err != nil {
		return 1, err
	}
	return ExitCode(n)
}

// ExitCode maps a stop notice to a process exit code.
func ExitCode(n *models.Notice) (int, error) {
	switch n.Reason {
	case models.ReasonExit:
		code, _ := models.AsExit(n.Err)
		return int(code), nil
	case models.ReasonCliff, models.ReasonPaused, models.ReasonBreakpoint:
		return 0, nil
	case models.ReasonStepLimit:
		return 2, errors.Errorf("stopped after %d steps at 0x%x", n.Steps, n.PC)
	case models.ReasonStopped:
		return 130, nil
	}
	if n.Err != nil {
		return 1, n.Err
	}
	return 1, errors.Errorf("%s at 0x%x", n.Reason, n.PC)
}

func saveFile(m *rvcorn.Machine, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.WithStack(err)
	}
	if err := m.Save(f); err != nil {
		f.Close()
		return err
	}
	return errors.WithStack(f.Close())
}

func restoreFile(m *rvcorn.Machine, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.WithStack(err)
	}
	defer f.Close()
	return m.Restore(f)
}
