package repl

import (
	"os"

	rvcorn "github.com/rvcorn/rvcorn/go"
	"github.com/rvcorn/rvcorn/go/cmd"
	"github.com/rvcorn/rvcorn/go/repl"
)

func Main(args []string) {
	c := cmd.NewRvcornCmd()
	c.OptionalImage = true
	c.RunMachine = func(m *rvcorn.Machine) (int, error) {
		r, err := repl.NewRepl(m)
		if err != nil {
			return 1, err
		}
		// keep log lines from clobbering the prompt
		if c.Config.Output == os.Stderr || c.Config.Color {
			c.Config.Log.Out = r.Stderr()
		}
		if err := r.Run(); err != nil {
			return 1, err
		}
		return 0, nil
	}
	os.Exit(c.Run(args))
}

func init() { cmd.Register("repl", "debug a program interactively", Main) }
