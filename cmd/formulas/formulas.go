// Package formulas provides CLI commands that rewrite cell references into
// named-range references.
package formulas

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/klytics/namekit/internal/config"
	"github.com/klytics/namekit/internal/journal"
	"github.com/klytics/namekit/internal/names"
	"github.com/klytics/namekit/internal/output"
	"github.com/klytics/namekit/internal/rewrite"
)

// NewCommand returns the formulas subcommand group.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "formulas",
		Short: "Rewrite formulas to use named ranges",
		Long:  "Commands that replace cell references in formulas with the names bound to those cells.",
	}

	cmd.AddCommand(newRewriteCommand())
	cmd.AddCommand(newRefsCommand())

	return cmd
}

func openSession(path string) (*names.Session, error) {
	if !strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		return nil, fmt.Errorf("expected an .xlsx file, got %q — use 'namekit formulas <command> <file.xlsx>'", path)
	}
	return names.Open(path)
}

func newRewriteCommand() *cobra.Command {
	var (
		sheet   string
		all     bool
		dryRun  bool
		outPath string
	)

	cmd := &cobra.Command{
		Use:   "rewrite <file.xlsx>",
		Short: "Replace aliased cell references in formulas",
		Long: `Replaces every reference to a named cell with the name, in one sheet or in
all visible sheets. Hidden sheets, merged cells and cells under images are left
alone.

Example:
  namekit formulas rewrite book.xlsx --all
  namekit formulas rewrite book.xlsx --sheet "Tax Calculation" --dry-run`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonFlag, _ := cmd.Flags().GetBool("json")
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if all && sheet != "" {
				return fmt.Errorf("use either --sheet or --all, not both")
			}

			scope := rewrite.AllSheets
			if !all {
				if sheet == "" {
					sheet = cfg.Defaults.Sheet
				}
				scope = rewrite.Scope{Sheet: sheet}
			}

			s, err := openSession(args[0])
			if err != nil {
				return err
			}
			defer s.Close()

			res, err := rewrite.Rewrite(s, scope, rewrite.Options{DryRun: dryRun, Progress: !jsonFlag})
			if err != nil {
				return err
			}

			dest := ""
			if !dryRun {
				dest = config.OutputFor(args[0], outPath)
				if err := s.Workbook().SaveAs(dest); err != nil {
					return err
				}
				j := journal.New(cfg.Journal.Path, cfg.Journal.Enabled)
				ctx := context.Background()
				j.Append(ctx, journal.FromRewrite("formulas rewrite", args[0], res)...)
				j.Append(ctx, journal.Saved("formulas rewrite", args[0], dest))
			}

			if jsonFlag {
				return output.WriteJSON(cmd.OutOrStdout(), "formulas rewrite", map[string]any{
					"result": res,
					"output": dest,
				})
			}

			w := cmd.OutOrStdout()
			for _, sk := range res.SkippedSheets {
				output.Dim(w, "Skipping %s sheet: %s", sk.Visibility, sk.Sheet)
			}
			for _, c := range res.Changes {
				fmt.Fprintf(w, "  %s!%s: %s -> %s\n", c.Sheet, c.Cell, c.Before, c.After)
			}
			for _, warn := range res.Warnings {
				output.Warn(w, "%s", warn)
			}
			if dryRun {
				output.Success(w, "Dry run: %d of %d formula cells would change in %s", res.Modified, res.Scanned, res.Scope)
				return nil
			}
			output.Success(w, "%d of %d formula cells modified in %s", res.Modified, res.Scanned, res.Scope)
			output.Dim(w, "Saved to %s", dest)
			return nil
		},
	}

	cmd.Flags().StringVar(&sheet, "sheet", "", "Rewrite only this sheet (default from config)")
	cmd.Flags().BoolVar(&all, "all", false, "Rewrite all visible sheets")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show the changes without saving")
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Output path (default per output.mode)")

	return cmd
}

func newRefsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refs <file.xlsx>",
		Short: "Show which cells are aliased by which names",
		Long:  "Prints the sheet!cell => name mapping the rewriter uses, plus every defined name it ignores and why.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonFlag, _ := cmd.Flags().GetBool("json")

			s, err := openSession(args[0])
			if err != nil {
				return err
			}
			defer s.Close()

			index, warnings := s.Index()

			if jsonFlag {
				return output.WriteJSON(cmd.OutOrStdout(), "formulas refs", map[string]any{
					"index":    index,
					"warnings": warnings,
				})
			}

			w := cmd.OutOrStdout()
			for _, warn := range warnings {
				output.Warn(w, "%s", warn)
			}
			if index.Len() == 0 {
				output.Dim(w, "No single-cell named ranges found.")
				return nil
			}

			output.Heading(w, "Mapping of sheet and cell addresses to named ranges")
			for _, sheet := range index.Sheets() {
				cells := make([]string, 0, len(index[sheet]))
				for cell := range index[sheet] {
					cells = append(cells, cell)
				}
				sort.Strings(cells)
				for _, cell := range cells {
					fmt.Fprintf(w, "  %s!%s => %s\n", sheet, cell, index[sheet][cell])
				}
			}
			output.Dim(w, "  (%d aliased cells)", index.Len())
			return nil
		},
	}
	return cmd
}
