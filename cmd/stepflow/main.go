package main

import (
	"github.com/stepflow/stepflow/cmd/stepflow/commands"
	_ "github.com/stepflow/stepflow/cmd/stepflow/commands/resume"
	_ "github.com/stepflow/stepflow/cmd/stepflow/commands/run"
)

func main() {
	commands.Execute()
}
