package main

import (
	"github.com/rvcorn/rvcorn/go/cmd"

	_ "github.com/rvcorn/rvcorn/go/cmd/run"

	_ "github.com/rvcorn/rvcorn/go/cmd/dump"
	_ "github.com/rvcorn/rvcorn/go/cmd/history"
	_ "github.com/rvcorn/rvcorn/go/cmd/repl"
)

func main() { cmd.Main() }
