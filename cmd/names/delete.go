package names

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/klytics/namekit/internal/config"
	"github.com/klytics/namekit/internal/formats/xlsx"
	"github.com/klytics/namekit/internal/journal"
	"github.com/klytics/namekit/internal/output"
)

func newDeleteCommand() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "delete <file.xlsx> <name> [name...]",
		Short: "Delete workbook-level named ranges",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonFlag, _ := cmd.Flags().GetBool("json")
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			s, err := openSession(args[0])
			if err != nil {
				return err
			}
			defer s.Close()

			var removed, missing []string
			for _, name := range args[1:] {
				if err := s.Remove(name); err != nil {
					if errors.Is(err, xlsx.ErrNameNotFound) {
						missing = append(missing, name)
						continue
					}
					return fmt.Errorf("could not delete %q: %w", name, err)
				}
				removed = append(removed, name)
			}
			if len(removed) == 0 {
				return fmt.Errorf("none of the names exist in %s — run 'namekit names list %s'", args[0], args[0])
			}

			dest := config.OutputFor(args[0], outPath)
			if err := s.Workbook().SaveAs(dest); err != nil {
				return err
			}
			openJournal(cfg).Append(context.Background(), journal.Saved("names delete", args[0], dest))

			if jsonFlag {
				return output.WriteJSON(cmd.OutOrStdout(), "names delete", map[string]any{
					"removed": removed,
					"missing": missing,
					"output":  dest,
				})
			}

			w := cmd.OutOrStdout()
			for _, name := range missing {
				output.Warn(w, "%s does not exist", name)
			}
			output.Success(w, "Deleted %d names", len(removed))
			output.Dim(w, "Saved to %s", dest)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Output path (default per output.mode)")

	return cmd
}
