// Package main is the entry point for the handoff CLI.
//
// Usage:
//
//	handoff [flags] <command> [subcommand] [args]
//
// Commands:
//
//	run        - Run a bounded producer/consumer session
//	history    - List, show and delete recorded session reports
//	schema     - Print the JSON Schema of session profiles
//	version    - Show version information
package main

import (
	"fmt"
	"os"

	"github.com/haivivi/handoff/cmd/handoff/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
