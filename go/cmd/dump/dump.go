package dump

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"

	rvcorn "github.com/rvcorn/rvcorn/go"
	"github.com/rvcorn/rvcorn/go/cmd"
	"github.com/rvcorn/rvcorn/go/dump"
)

func Main(args []string) {
	c := cmd.NewRvcornCmd()
	var format, segment, outfile *string
	var first, last *uint64
	var run, list *bool
	c.SetupFlags = func() error {
		format = c.Flags.String("dump", "hextext", "dump format")
		segment = c.Flags.String("segment", "data", "segment to dump: text, data or kernel")
		first = c.Flags.Uint64("first", 0, "first address (default segment base)")
		last = c.Flags.Uint64("last", 0, "last address, inclusive (default segment limit)")
		outfile = c.Flags.String("out", "", "write the dump to <file> (default stdout)")
		run = c.Flags.Bool("run", true, "run the program before dumping")
		list = c.Flags.Bool("list", false, "list dump formats and exit")
		return nil
	}
	c.OptionalImage = true
	c.RunMachine = func(m *rvcorn.Machine) (int, error) {
		if *list {
			for _, f := range dump.All() {
				fmt.Printf("%-12s %s\n", f.Name, f.Desc)
			}
			return 0, nil
		}
		f, err := dump.Lookup(*format)
		if err != nil {
			return 1, err
		}
		seg := m.Mem.Segment(*segment)
		if seg == nil {
			return 1, errors.Errorf("no segment %q", *segment)
		}
		lo, hi := seg.Base, seg.Limit
		if *first != 0 {
			lo = *first
		}
		if *last != 0 {
			hi = *last
		}

		code := 0
		if *run && m.State() != rvcorn.StateEmpty {
			n, err := m.Run(context.Background(), 0)
			if err != nil {
				return 1, err
			}
			if code, err = cmd.ExitCode(n); err != nil {
				c.PrintError(err)
			}
		}
		var w io.Writer = os.Stdout
		if *outfile != "" {
			out, err := os.Create(*outfile)
			if err != nil {
				return 1, errors.WithStack(err)
			}
			defer out.Close()
			w = out
		}
		return code, f.Dump(w, m.Mem, lo, hi)
	}
	os.Exit(c.Run(args))
}

func init() { cmd.Register("dump", "run a program and dump memory", Main) }
