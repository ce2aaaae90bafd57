// Package journal provides the "namekit journal" commands for reviewing the
// record of created names and rewritten formulas.
package journal

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/klytics/namekit/internal/config"
	journalpkg "github.com/klytics/namekit/internal/journal"
)

// NewCommand creates the "journal" command with all subcommands.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "View and manage the change journal",
		Long:  "Every created name, rewritten formula and saved workbook is appended to ~/.namekit/journal.jsonl.",
	}

	cmd.AddCommand(newShowCmd())
	cmd.AddCommand(newClearCmd())
	cmd.AddCommand(newStatusCmd())

	return cmd
}

func journalPath() string {
	cfg, err := config.Load()
	if err != nil || cfg.Journal.Path == "" {
		return config.JournalPath()
	}
	return cfg.Journal.Path
}

func newShowCmd() *cobra.Command {
	var (
		last     int
		kind     string
		since    string
		workbook string
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show recent journal entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := journalPath()
			entries, err := journalpkg.ReadEntries(path)
			if err != nil {
				return err
			}

			var sinceTime, untilTime time.Time
			if since != "" {
				t, err := time.Parse("2006-01-02", since)
				if err != nil {
					return fmt.Errorf("invalid --since date: %w (use YYYY-MM-DD)", err)
				}
				sinceTime = t
			}
			switch kind {
			case "", journalpkg.KindName, journalpkg.KindFormula, journalpkg.KindSave:
			default:
				return fmt.Errorf("invalid --kind %q — use name, formula or save", kind)
			}

			filtered := journalpkg.FilterEntries(entries, sinceTime, untilTime, workbook, kind)

			if last > 0 && len(filtered) > last {
				filtered = filtered[len(filtered)-last:]
			}

			out := cmd.OutOrStdout()
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(filtered)
			}

			if len(filtered) == 0 {
				fmt.Fprintln(out, "No journal entries found.")
				return nil
			}

			fmt.Fprintf(out, "Journal — %d Entries\n", len(filtered))
			fmt.Fprintf(out, "File: %s\n\n", path)

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "TIMESTAMP\tCOMMAND\tKIND\tDETAIL\n")
			for _, e := range filtered {
				ts := e.Timestamp.Format("2006-01-02 15:04:05")
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", ts, e.Command, e.Kind, detail(e))
			}
			tw.Flush()
			return nil
		},
	}

	cmd.Flags().IntVar(&last, "last", 20, "Show last N entries")
	cmd.Flags().StringVar(&kind, "kind", "", "Filter by kind: name, formula, save")
	cmd.Flags().StringVar(&since, "since", "", "Filter entries since date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&workbook, "workbook", "", "Filter by workbook file name")
	return cmd
}

func detail(e journalpkg.Entry) string {
	switch e.Kind {
	case journalpkg.KindName:
		s := fmt.Sprintf("%s -> %s", e.Name, e.RefersTo)
		if e.Replaced {
			s += " (replaced)"
		}
		return s
	case journalpkg.KindFormula:
		return fmt.Sprintf("%s!%s: %s -> %s", e.Sheet, e.Cell, e.Before, e.After)
	case journalpkg.KindSave:
		return fmt.Sprintf("%s -> %s", e.Workbook, e.Output)
	}
	return e.Workbook
}

func newClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear the journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := journalPath()
			if err := journalpkg.Clear(path); err != nil {
				return err
			}
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{"cleared": path})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Journal cleared: %s\n", path)
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show journal path and size",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := journalPath()
			size := journalpkg.Size(path)

			out := cmd.OutOrStdout()
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(out).Encode(map[string]interface{}{
					"path": path,
					"size": size,
				})
			}

			fmt.Fprintf(out, "Journal: %s\n", path)
			if size == 0 {
				fmt.Fprintln(out, "Size:    empty (no entries)")
			} else {
				fmt.Fprintf(out, "Size:    %s\n", formatSize(size))
			}

			entries, _ := journalpkg.ReadEntries(path)
			fmt.Fprintf(out, "Entries: %d\n", len(entries))
			return nil
		},
	}
}

func formatSize(bytes int64) string {
	if bytes < 1024 {
		return fmt.Sprintf("%d B", bytes)
	}
	if bytes < 1024*1024 {
		return fmt.Sprintf("%.1f KB", float64(bytes)/1024)
	}
	return fmt.Sprintf("%.1f MB", float64(bytes)/(1024*1024))
}
