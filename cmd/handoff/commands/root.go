package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/haivivi/handoff/cmd/handoff/internal/config"
	"github.com/haivivi/handoff/pkg/cli"
)

var (
	// Global flags
	verbose      bool
	formatOutput string
	outputFile   string
	queryExpr    string

	// Global configuration (loaded at init time)
	globalConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "handoff",
	Short: "Bounded producer/consumer hand-off sessions",
	Long: `handoff - run items through a bounded buffer shared by producers and consumers.

A session starts producers and consumers, moves every item through a
fixed-capacity buffer and reports what happened: how often each side
waited, the peak occupancy and the delivered items.

Data is stored in the OS config directory (override with HANDOFF_CONFIG_DIR):
  macOS:   ~/Library/Application Support/handoff/
  Linux:   ~/.config/handoff/
  Windows: %AppData%/handoff/

Examples:
  # Five items through a buffer of two
  handoff run 1 2 3 4 5 --capacity 2

  # Slow consumer, the producer blocks on a full buffer
  handoff run --count 20 --capacity 3 --consumer-delay 50ms -v

  # Several producers and consumers from a profile
  handoff run -f profile.yaml --producers 3 --consumers 2

  # Recorded sessions
  handoff history list
  handoff history get <id> --query .transitions`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if _, err := cli.ParseFormat(formatOutput); err != nil {
			return err
		}
		setupLogging()
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logs)")
	rootCmd.PersistentFlags().StringVar(&formatOutput, "format", "table", "output format: table, yaml or json")
	rootCmd.PersistentFlags().StringVarP(&outputFile, "output", "o", "", "write output to file")
	rootCmd.PersistentFlags().StringVar(&queryExpr, "query", "", "jq expression applied to the output")
}

// configLoadErr stores the error from config.Load() for deferred reporting.
var configLoadErr error

func initConfig() {
	cfg, err := config.Load()
	if err != nil {
		configLoadErr = err
		return
	}
	globalConfig = cfg
}

// GetConfig returns the global configuration.
func GetConfig() (*config.Config, error) {
	if globalConfig == nil {
		if configLoadErr != nil {
			return nil, fmt.Errorf("config not available: %w", configLoadErr)
		}
		cfg, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("config not available: %w", err)
		}
		globalConfig = cfg
	}
	return globalConfig, nil
}

// IsVerbose returns whether verbose mode is enabled.
func IsVerbose() bool {
	return verbose
}

func setupLogging() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(h))
}

// printResult writes result according to the global output flags.
func printResult(result any) error {
	return cli.Output(result, cli.OutputOptions{
		Format: cli.OutputFormat(formatOutput),
		File:   outputFile,
		Query:  queryExpr,
	})
}
