// Package menu provides the interactive "namekit menu" command.
package menu

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/klytics/namekit/internal/config"
	"github.com/klytics/namekit/internal/journal"
	menupkg "github.com/klytics/namekit/internal/menu"
	"github.com/klytics/namekit/internal/names"
	"github.com/klytics/namekit/internal/output"
)

// NewCommand returns the menu command.
func NewCommand() *cobra.Command {
	var noHistory bool

	cmd := &cobra.Command{
		Use:   "menu <file.xlsx>",
		Short: "Interactive session: create names, rewrite formulas, save",
		Long: `Opens the workbook and shows a menu to create named ranges, update formulas,
list names, and save. Every prompt offers a default from the configuration; press
Enter to accept it. Ctrl+C or Ctrl+D leaves without saving.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonFlag, _ := cmd.Flags().GetBool("json")
			path := args[0]
			if !strings.HasSuffix(strings.ToLower(path), ".xlsx") {
				return fmt.Errorf("expected an .xlsx file, got %q — use 'namekit menu <file.xlsx>'", path)
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			d := menupkg.Defaults{
				Sheet:        cfg.Defaults.Sheet,
				Prefix:       cfg.Defaults.Prefix,
				Range:        cfg.Defaults.Range,
				Columns:      cfg.Defaults.Columns,
				OutputPrefix: cfg.Output.Prefix,
			}
			if cfg.Defaults.Rule != "" {
				if d.Rule, err = names.ParseRule(cfg.Defaults.Rule); err != nil {
					return err
				}
			}

			s, err := names.Open(path)
			if err != nil {
				return err
			}
			defer s.Close()

			var (
				prompter menupkg.Prompter
				out      io.Writer = cmd.OutOrStdout()
			)
			if readline.IsTerminal(int(os.Stdin.Fd())) {
				history := config.HistoryPath()
				if noHistory {
					history = ""
				}
				rp, err := menupkg.NewReadlinePrompter(history)
				if err != nil {
					return err
				}
				prompter, out = rp, rp.Stdout()
			} else {
				prompter = menupkg.NewLinePrompter(cmd.InOrStdin(), out)
			}
			defer prompter.Close()

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM)
			defer cancel()

			m := menupkg.New(s, path, prompter, out, d)
			m.SetJournal(journal.New(cfg.Journal.Path, cfg.Journal.Enabled))
			m.SetProgress(!jsonFlag)

			outcome, err := m.Run(ctx)
			if err != nil {
				return err
			}
			if jsonFlag {
				return output.WriteJSON(cmd.OutOrStdout(), "menu", outcome)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&noHistory, "no-history", false, "Do not read or write the prompt history file")

	return cmd
}
