package commands

import (
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/spf13/cobra"

	"github.com/haivivi/handoff/cmd/handoff/internal/config"
	"github.com/haivivi/handoff/pkg/cli"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON Schema of session profiles",
	Long: `Print the JSON Schema of the YAML profiles accepted by 'handoff run -f'.

The schema is always printed as JSON.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := jsonschema.For[config.Profile](nil)
		if err != nil {
			return err
		}
		return cli.Output(s, cli.OutputOptions{
			Format: cli.FormatJSON,
			File:   outputFile,
			Query:  queryExpr,
		})
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}
