package run

import (
	"os"

	"github.com/rvcorn/rvcorn/go/cmd"
)

func Main(args []string) {
	os.Exit(cmd.NewRvcornCmd().Run(args))
}

func init() { cmd.Register("run", "execute a program image", Main) }
