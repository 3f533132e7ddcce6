package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haivivi/handoff/cmd/handoff/internal/build"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		if formatOutput != "table" || queryExpr != "" {
			return printResult(build.Get())
		}
		fmt.Println(build.String())
		if IsVerbose() {
			if cfg, err := GetConfig(); err == nil {
				fmt.Printf("  data: %s\n", cfg.Dir)
			} else {
				fmt.Printf("  data: (unavailable: %v)\n", err)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
