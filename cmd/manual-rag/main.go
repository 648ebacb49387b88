package main

import (
	"fmt"
	"os"

	"github.com/spherical/manual-rag/cmd/manual-rag/commands"
)

var (
	version = "0.1.0"
)

func main() {
	commands.SetVersion(version)
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
