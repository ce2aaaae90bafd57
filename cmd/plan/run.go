package plan

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/klytics/namekit/internal/config"
	"github.com/klytics/namekit/internal/journal"
	"github.com/klytics/namekit/internal/names"
	"github.com/klytics/namekit/internal/output"
	planpkg "github.com/klytics/namekit/internal/plan"
)

func newRunCommand() *cobra.Command {
	var (
		outPath string
		dryRun  bool
	)

	cmd := &cobra.Command{
		Use:   "run <plan.yaml> <file.xlsx>",
		Short: "Apply a plan to a workbook",
		Long: `Runs every configuration of the plan in order, then the rewrite step, and
saves the result to the plan's output. A failing configuration is reported and
the next one runs, unless the plan sets on_failure: stop.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonFlag, _ := cmd.Flags().GetBool("json")
			verbose, _ := cmd.Flags().GetBool("verbose")
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			p, err := planpkg.LoadPlan(args[0])
			if err != nil {
				return err
			}
			s, err := names.Open(args[1])
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			executor := planpkg.NewExecutor(verbose)
			executor.SetProgress(!jsonFlag)
			report, runErr := executor.Run(ctx, s, p)

			dest := ""
			if runErr == nil && !dryRun {
				dest = outPath
				if dest == "" {
					dest = planpkg.OutputPath(p, args[1], cfg.Output.Prefix)
				}
				if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
					return fmt.Errorf("could not create output directory: %w", err)
				}
				if err := s.Workbook().SaveAs(dest); err != nil {
					return err
				}

				var entries []journal.Entry
				for _, step := range report.Steps {
					entries = append(entries, journal.FromBuild("plan run", args[1], step.Build)...)
					entries = append(entries, journal.FromRewrite("plan run", args[1], step.Rewrite)...)
				}
				entries = append(entries, journal.Saved("plan run", args[1], dest))
				journal.New(cfg.Journal.Path, cfg.Journal.Enabled).Append(ctx, entries...)
			}

			if jsonFlag {
				if err := output.WriteJSON(cmd.OutOrStdout(), "plan run", map[string]any{
					"report": report,
					"output": dest,
				}); err != nil {
					return err
				}
				return runErr
			}

			w := cmd.OutOrStdout()
			if report != nil {
				for _, step := range report.Steps {
					switch {
					case step.Error != "":
						fmt.Fprintf(cmd.ErrOrStderr(), "Step %s: FAILED — %s\n", step.StepID, step.Error)
					case step.Build != nil:
						fmt.Fprintf(w, "Step %s: OK (%d names, %d failures)\n", step.StepID,
							len(step.Build.Created), len(step.Build.Failures))
						for _, warn := range step.Build.Warnings {
							output.Warn(w, "%s", warn)
						}
					case step.Rewrite != nil:
						fmt.Fprintf(w, "Step %s: OK (%d of %d formula cells modified)\n", step.StepID,
							step.Rewrite.Modified, step.Rewrite.Scanned)
						for _, warn := range step.Rewrite.Warnings {
							output.Warn(w, "%s", warn)
						}
					}
				}
			}
			if runErr != nil {
				return runErr
			}
			if dest != "" {
				output.Success(w, "Plan %s applied: %d names, %d cells modified", p.Name, report.Created, report.Modified)
				output.Dim(w, "Saved to %s", dest)
			} else {
				output.Success(w, "Plan %s checked: %d names, %d cells would change (not saved)", p.Name,
					report.Created, report.Modified)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Output path (overrides the plan's output)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Run the plan without saving the workbook")

	return cmd
}

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <plan.yaml>",
		Short: "Check a plan without opening a workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonFlag, _ := cmd.Flags().GetBool("json")

			p, err := planpkg.LoadPlan(args[0])
			if err != nil {
				return err
			}
			configs, err := p.ScanConfigs()
			if err != nil {
				return err
			}

			if jsonFlag {
				return output.WriteJSON(cmd.OutOrStdout(), "plan validate", map[string]any{
					"plan":           p.Name,
					"configurations": configs,
					"rewrite":        p.Rewrite != nil,
				})
			}

			w := cmd.OutOrStdout()
			output.Success(w, "Plan %s is valid", p.Name)
			for i, c := range configs {
				fmt.Fprintf(w, "  %d. %s!%s columns %v prefix %q rule %s\n", i+1, c.Sheet, c.Range,
					c.SourceColumns, c.Prefix, c.Rule)
			}
			if p.Rewrite != nil {
				fmt.Fprintf(w, "  rewrite: %s\n", p.Rewrite.ScopeValue())
			}
			return nil
		},
	}
}

func newInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [plan.yaml]",
		Short: "Write a starter plan from the configured defaults",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			path := "plan.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists — use --force to overwrite", path)
			}

			data, err := planpkg.Sample(cfg.Defaults.Sheet, cfg.Defaults.Range, cfg.Defaults.Columns,
				cfg.Defaults.Prefix).Marshal()
			if err != nil {
				return err
			}
			if err := os.WriteFile(path, data, 0644); err != nil {
				return fmt.Errorf("could not write %s: %w", path, err)
			}
			output.Success(cmd.OutOrStdout(), "Wrote %s", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	return cmd
}
