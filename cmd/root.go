// Package cmd contains all CLI commands for the namekit binary.
package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/klytics/namekit/cmd/completion"
	cmdconfig "github.com/klytics/namekit/cmd/config"
	"github.com/klytics/namekit/cmd/formulas"
	cmdjournal "github.com/klytics/namekit/cmd/journal"
	"github.com/klytics/namekit/cmd/menu"
	cmdnames "github.com/klytics/namekit/cmd/names"
	cmdplan "github.com/klytics/namekit/cmd/plan"
	"github.com/klytics/namekit/cmd/version"
	cmdwatch "github.com/klytics/namekit/cmd/watch"
	"github.com/klytics/namekit/internal/output"
)

var (
	jsonOutput bool
	verbose    bool
	noColor    bool
)

// NewRootCommand creates and returns the root cobra command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "namekit",
		Short: "Named ranges and formula rewriting for Excel workbooks",
		Long: `namekit — named ranges for .xlsx workbooks.

Builds display-code names from a scan window (e.g. display_code_1657 for the
row whose J column holds 1657) and rewrites formulas to refer to cells by those
names instead of by address.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				color.NoColor = true
			}
			if jsonOutput {
				os.Setenv("NAMEKIT_JSON", "true")
			}
		},
	}

	// Global persistent flags
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output as machine-readable JSON")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable ANSI color output")

	// Register subcommands
	rootCmd.AddCommand(cmdnames.NewCommand())
	rootCmd.AddCommand(formulas.NewCommand())
	rootCmd.AddCommand(menu.NewCommand())
	rootCmd.AddCommand(cmdplan.NewCommand())
	rootCmd.AddCommand(cmdwatch.NewCommand())
	rootCmd.AddCommand(cmdconfig.NewCommand())
	rootCmd.AddCommand(cmdjournal.NewCommand())
	rootCmd.AddCommand(completion.NewCommand(rootCmd))
	rootCmd.AddCommand(version.NewCommand())

	return rootCmd
}

// Execute runs the root command and handles any returned errors.
func Execute() {
	rootCmd := NewRootCommand()
	cmd, err := rootCmd.ExecuteC()
	if err == nil {
		return
	}
	if jsonOutput {
		output.PrintJSONError(cmd.CommandPath(), err, output.ExitUserError)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
	os.Exit(output.ExitUserError)
}
