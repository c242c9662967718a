package history

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/rvcorn/rvcorn/go/cmd"
	"github.com/rvcorn/rvcorn/go/cpu/riscv"
	"github.com/rvcorn/rvcorn/go/models/cpu"
	"github.com/rvcorn/rvcorn/go/models/record"
)

func regName(file uint8, enum uint16) string {
	switch int(file) {
	case cpu.REG_INT:
		return riscv.RegName(int(enum))
	case cpu.REG_FLOAT:
		return riscv.FRegName(int(enum))
	case cpu.REG_CSR:
		return riscv.CSRName(enum)
	}
	return fmt.Sprintf("reg(%d:%d)", file, enum)
}

// PrintPretty writes one line per frame, listing the values each step
// overwrote.
func PrintPretty(w io.Writer, frames []*record.OpFrame) {
	for i, f := range frames {
		var ops []string
		for _, op := range f.Ops {
			switch o := op.(type) {
			case *record.OpRegChange:
				ops = append(ops, fmt.Sprintf("%s=0x%x", regName(o.File, o.Enum), o.Value))
			case *record.OpMemWrite:
				if o.Present {
					ops = append(ops, fmt.Sprintf("[0x%08x]=0x%08x", o.Addr, o.Old))
				} else {
					ops = append(ops, fmt.Sprintf("[0x%08x]=unset", o.Addr))
				}
			}
		}
		fmt.Fprintf(w, "%6d [%d] 0x%08x %s\n", i, f.Hart, f.PC, strings.Join(ops, " "))
	}
}

func PrintJson(w io.Writer, frames []*record.OpFrame) error {
	enc := json.NewEncoder(w)
	for _, f := range frames {
		if err := enc.Encode(f); err != nil {
			return errors.Wrap(err, "error printing frame")
		}
	}
	return nil
}

func Main(args []string) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	asJson := fs.Bool("json", false, "print frames as json")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [-json] <history file>\n", args[0])
		fs.PrintDefaults()
	}
	fs.Parse(args[1:])
	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(1)
	}
	f, err := os.Open(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer f.Close()
	frames, err := record.ReadHistory(f)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *asJson {
		err = PrintJson(os.Stdout, frames)
	} else {
		PrintPretty(os.Stdout, frames)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() { cmd.Register("history", "print an exported backstep history", Main) }
