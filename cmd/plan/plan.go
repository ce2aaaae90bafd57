// Package plan provides CLI commands for YAML batch plans.
package plan

import (
	"github.com/spf13/cobra"
)

// NewCommand returns the plan subcommand group.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Run batches of named-range configurations from YAML",
		Long: `A plan lists one or more scan windows and an optional formula rewrite:

  name: tax-2024
  sheet: Tax Calculation
  configurations:
    - range: L200:L408
      columns: [J, K]
      prefix: display_code_
  rewrite:
    scope: all
  output: updated`,
	}

	cmd.AddCommand(newRunCommand())
	cmd.AddCommand(newValidateCommand())
	cmd.AddCommand(newInitCommand())

	return cmd
}
