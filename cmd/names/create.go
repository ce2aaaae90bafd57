package names

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/klytics/namekit/internal/cellref"
	"github.com/klytics/namekit/internal/config"
	"github.com/klytics/namekit/internal/journal"
	namespkg "github.com/klytics/namekit/internal/names"
	"github.com/klytics/namekit/internal/output"
)

func newCreateCommand() *cobra.Command {
	var (
		sheet    string
		rng      string
		columns  string
		prefix   string
		noPrefix bool
		rule     string
		outPath  string
	)

	cmd := &cobra.Command{
		Use:   "create <file.xlsx>",
		Short: "Create named ranges from a scan window",
		Long: `Scans each row of the range and, for the first source column holding a
qualifying value, binds <prefix><value> to the row's cell in the range's first
column. Existing names are replaced.

Example:
  namekit names create book.xlsx --range L200:L408 --columns J,K
  namekit names create book.xlsx --no-prefix --columns M`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonFlag, _ := cmd.Flags().GetBool("json")
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			if !cmd.Flags().Changed("sheet") {
				sheet = cfg.Defaults.Sheet
			}
			if !cmd.Flags().Changed("range") {
				rng = cfg.Defaults.Range
			}
			if !cmd.Flags().Changed("columns") {
				columns = cfg.Defaults.Columns
			}
			if !cmd.Flags().Changed("prefix") {
				prefix = cfg.Defaults.Prefix
			}
			if noPrefix {
				prefix = ""
			}
			if !cmd.Flags().Changed("rule") {
				rule = cfg.Defaults.Rule
			}

			cols, err := cellref.ParseColumnList(columns)
			if err != nil {
				return &namespkg.ConfigError{Field: "columns", Err: err}
			}
			r := namespkg.DefaultRule(prefix)
			if rule != "" {
				if r, err = namespkg.ParseRule(rule); err != nil {
					return err
				}
			}
			scan, err := namespkg.NewScanConfig(sheet, rng, cols, prefix, r)
			if err != nil {
				return err
			}

			s, err := openSession(args[0])
			if err != nil {
				return err
			}
			defer s.Close()

			res, err := namespkg.Build(s, scan)
			if err != nil {
				return err
			}

			dest := config.OutputFor(args[0], outPath)
			if err := s.Workbook().SaveAs(dest); err != nil {
				return err
			}

			j := openJournal(cfg)
			ctx := context.Background()
			j.Append(ctx, journal.FromBuild("names create", args[0], res)...)
			j.Append(ctx, journal.Saved("names create", args[0], dest))

			if jsonFlag {
				return output.WriteJSON(cmd.OutOrStdout(), "names create", map[string]any{
					"result": res,
					"output": dest,
				})
			}
			printBuild(cmd, res, dest)
			return nil
		},
	}

	cmd.Flags().StringVar(&sheet, "sheet", "", "Sheet holding the scan window (default from config)")
	cmd.Flags().StringVar(&rng, "range", "", "Scan window, e.g. L200:L408 (default from config)")
	cmd.Flags().StringVar(&columns, "columns", "", "Source columns searched in order, e.g. J,K (default from config)")
	cmd.Flags().StringVar(&prefix, "prefix", "", "Prefix for new names (default from config)")
	cmd.Flags().BoolVar(&noPrefix, "no-prefix", false, "Use the raw value as the name")
	cmd.Flags().StringVar(&rule, "rule", "", "Qualification rule: tax-code | any | integer (default: tax-code with a prefix, any without)")
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Output path (default per output.mode)")

	return cmd
}

func printBuild(cmd *cobra.Command, res *namespkg.BuildResult, dest string) {
	w := cmd.OutOrStdout()
	output.Heading(w, "%s!%s (columns %v, rule %s)", res.Config.Sheet, res.Config.Range,
		res.Config.SourceColumns, res.Config.Rule)

	replaced := make(map[string]bool, len(res.Replaced))
	for _, n := range res.Replaced {
		replaced[n] = true
	}
	for _, a := range res.Created {
		mark := ""
		if replaced[a.Name] {
			mark = color.New(color.FgHiBlack).Sprint(" (replaced)")
		}
		fmt.Fprintf(w, "  %s -> %s%s\n", a.Name, a.RefersTo, mark)
	}
	for _, f := range res.Failures {
		output.Warn(w, "row %d: %s", f.Row, f.Detail)
	}
	for _, warn := range res.Warnings {
		output.Warn(w, "%s", warn)
	}
	output.Success(w, "%d named ranges created, %d replaced, %d rows skipped", len(res.Created),
		len(res.Replaced), res.SkippedRows)
	output.Dim(w, "Saved to %s", dest)
}
