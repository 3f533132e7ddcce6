// Package cli provides output helpers for the handoff command.
//
// This package includes:
//   - Output formatting (YAML, JSON, table)
//   - jq filtering of results before they are printed
//   - Human readable durations
//
// Example usage:
//
//	cli.Output(report, cli.OutputOptions{
//	    Format: cli.FormatTable,
//	    Query:  ".delivered",
//	})
package cli
