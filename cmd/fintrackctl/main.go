// Command fintrackctl operates directly on a transaction file, without the
// HTTP server.
package main

import (
	"fmt"
	"os"

	"fintrack/internal/cli"
)

func main() {
	cli.LoadEnvFile()
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
