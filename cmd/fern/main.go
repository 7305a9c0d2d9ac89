package main

import (
	"fmt"
	"os"

	"github.com/Ramsey-B/fern/internal/cli"
)

// Set by ldflags at build time.
var version = "dev"

func main() {
	cli.SetVersionInfo(version)
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
