package main

import (
	"os"

	"escrowgate/internal/cli"
)

// main hands off to the command tree. Wiring lives in internal/cli.
func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
