// Package names provides CLI commands for building and inspecting the
// workbook's named ranges.
package names

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/klytics/namekit/internal/config"
	"github.com/klytics/namekit/internal/journal"
	namespkg "github.com/klytics/namekit/internal/names"
	"github.com/klytics/namekit/internal/progress"
)

// NewCommand returns the names subcommand group.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "names",
		Short: "Create, list, and delete named ranges",
		Long:  "Commands for the workbook's defined names — build display-code names from a scan window, list them, or remove them.",
	}

	cmd.AddCommand(newCreateCommand())
	cmd.AddCommand(newListCommand())
	cmd.AddCommand(newDeleteCommand())

	return cmd
}

func openSession(path string) (*namespkg.Session, error) {
	if !strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		return nil, fmt.Errorf("expected an .xlsx file, got %q — use 'namekit names <command> <file.xlsx>'", path)
	}
	sp := progress.NewSpinner("Loading " + path)
	sp.Start()
	s, err := namespkg.Open(path)
	if err != nil {
		sp.Stop("Could not load " + path)
		return nil, err
	}
	sp.Stop(fmt.Sprintf("Loaded %s", path))
	return s, nil
}

func openJournal(cfg *config.Config) *journal.Journal {
	return journal.New(cfg.Journal.Path, cfg.Journal.Enabled)
}
