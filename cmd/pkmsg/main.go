package main

import (
	"os"

	"github.com/opd-ai/pkmsg/cmd/pkmsg/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
