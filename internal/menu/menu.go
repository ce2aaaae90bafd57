// Package menu implements the interactive namekit session: create named
// ranges, rewrite formulas, then save or discard the workbook.
package menu

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/klytics/namekit/internal/cellref"
	"github.com/klytics/namekit/internal/journal"
	"github.com/klytics/namekit/internal/names"
	"github.com/klytics/namekit/internal/rewrite"
)

// Defaults are the values offered at each prompt.
type Defaults struct {
	Sheet        string
	Prefix       string
	Range        string
	Columns      string
	Rule         names.Rule // RuleUnset picks by prefix
	OutputPrefix string
}

// Outcome summarizes how a menu session ended.
type Outcome struct {
	Saved    bool   `json:"saved"`
	Output   string `json:"output,omitempty"`
	Created  int    `json:"created"`
	Modified int    `json:"modified"`
	Commands int    `json:"commands"`
}

// Menu drives one interactive session over an open workbook.
type Menu struct {
	session  *names.Session
	path     string
	prompter Prompter
	out      io.Writer
	defaults Defaults
	journal  *journal.Journal
	progress bool

	outcome Outcome
	start   time.Time
}

var (
	heading = color.New(color.FgCyan, color.Bold)
	success = color.New(color.FgGreen)
	warning = color.New(color.FgYellow)
	failure = color.New(color.FgRed)
)

// New creates a menu for the workbook at path, already opened as s.
func New(s *names.Session, path string, p Prompter, out io.Writer, d Defaults) *Menu {
	if d.OutputPrefix == "" {
		d.OutputPrefix = "updated_"
	}
	return &Menu{session: s, path: path, prompter: p, out: out, defaults: d}
}

// SetJournal records created names, rewritten cells and saves.
func (m *Menu) SetJournal(j *journal.Journal) {
	m.journal = j
}

// SetProgress shows the rewriter's progress bar.
func (m *Menu) SetProgress(on bool) {
	m.progress = on
}

// Run shows the main menu until the user saves or exits. End of input and
// Ctrl+C end the session without saving.
func (m *Menu) Run(ctx context.Context) (*Outcome, error) {
	m.start = time.Now()
	heading.Fprintln(m.out, "=== Excel Formula and Named Range Manager ===")

	for {
		if err := ctx.Err(); err != nil {
			return &m.outcome, err
		}

		fmt.Fprintln(m.out)
		heading.Fprintln(m.out, "--- Main Menu ---")
		fmt.Fprintln(m.out, "1. Create Named Ranges")
		fmt.Fprintln(m.out, "2. Update Formulas")
		fmt.Fprintln(m.out, "3. List Named Ranges")
		fmt.Fprintln(m.out, "4. Save and Exit")
		fmt.Fprintln(m.out, "5. Exit Without Saving")

		choice, err := m.ask("Enter the number corresponding to your choice", "1")
		if err != nil {
			return m.interrupted(err)
		}
		m.outcome.Commands++

		var done bool
		switch choice {
		case "1":
			err = m.createNamedRanges(ctx)
		case "2":
			err = m.updateFormulas(ctx)
		case "3":
			m.listNames()
		case "4":
			done, err = m.save(ctx)
		case "5":
			done, err = m.confirmExit()
		default:
			fmt.Fprintln(m.out, "Invalid choice. Please enter a number between 1 and 5.")
		}
		if err != nil {
			return m.interrupted(err)
		}
		if done {
			return &m.outcome, nil
		}
	}
}

func (m *Menu) interrupted(err error) (*Outcome, error) {
	if errors.Is(err, io.EOF) || errors.Is(err, ErrInterrupted) {
		fmt.Fprintln(m.out)
		fmt.Fprintln(m.out, "Program interrupted. Exiting without saving.")
		return &m.outcome, nil
	}
	return &m.outcome, err
}

// ask shows prompt with its default and returns the trimmed answer, or def
// when the answer is empty.
func (m *Menu) ask(prompt, def string) (string, error) {
	line, err := m.prompter.Prompt(fmt.Sprintf("%s (default: '%s'): ", prompt, def))
	if err != nil {
		return "", err
	}
	if line = strings.TrimSpace(line); line == "" {
		return def, nil
	}
	return line, nil
}

func (m *Menu) errorf(format string, args ...any) {
	failure.Fprintf(m.out, "Error: "+format+"\n", args...)
}

func (m *Menu) chooseSheet(prompt string) (string, bool, error) {
	fmt.Fprintf(m.out, "\nAvailable sheets: %s\n", strings.Join(m.session.Workbook().SheetNames(), ", "))
	name, err := m.ask(prompt, m.defaults.Sheet)
	if err != nil {
		return "", false, err
	}
	sheet, err := m.session.Sheet(name)
	if err != nil {
		m.errorf("%v", err)
		return "", false, nil
	}
	return sheet, true, nil
}

func (m *Menu) createNamedRanges(ctx context.Context) error {
	sheet, ok, err := m.chooseSheet("Enter the sheet name to create/update named ranges")
	if err != nil || !ok {
		return err
	}

	var configs []names.ScanConfig
	for {
		cfg, err := m.askConfiguration(sheet)
		if err != nil {
			return err
		}
		configs = append(configs, cfg)

		more, err := m.ask("Do you want to add another range configuration? (yes/no)", "no")
		if err != nil {
			return err
		}
		if !isYes(more) {
			break
		}
	}

	for _, cfg := range configs {
		fmt.Fprintf(m.out, "\nProcessing %s!%s (columns %s)\n", cfg.Sheet, cfg.Range, strings.Join(cfg.SourceColumns, ","))
		res, err := names.Build(m.session, cfg)
		if err != nil {
			m.errorf("%v", err)
			continue
		}
		m.outcome.Created += len(res.Created)
		m.journal.Append(ctx, journal.FromBuild("menu", m.path, res)...)

		for _, a := range res.Created {
			fmt.Fprintf(m.out, "  %s -> %s\n", a.Name, a.RefersTo)
		}
		for _, f := range res.Failures {
			warning.Fprintf(m.out, "  row %d: %s\n", f.Row, f.Detail)
		}
		for _, w := range res.Warnings {
			warning.Fprintf(m.out, "  %s\n", w)
		}
		success.Fprintf(m.out, "%d named ranges created, %d replaced, %d rows skipped.\n",
			len(res.Created), len(res.Replaced), res.SkippedRows)
	}
	fmt.Fprintln(m.out, "\nNamed range creation completed.")
	return nil
}

// askConfiguration repeats until the answers form a valid configuration.
func (m *Menu) askConfiguration(sheet string) (names.ScanConfig, error) {
	for {
		fmt.Fprintln(m.out)
		heading.Fprintln(m.out, "--- Add a New Named Range Configuration ---")
		fmt.Fprintln(m.out, "1. Named Range with Prefix")
		fmt.Fprintln(m.out, "2. Named Range without Prefix")
		kind, err := m.ask("Enter 1 or 2", "1")
		if err != nil {
			return names.ScanConfig{}, err
		}

		var prefix string
		switch kind {
		case "1":
			if prefix, err = m.ask("Enter the prefix for named ranges", m.defaults.Prefix); err != nil {
				return names.ScanConfig{}, err
			}
		case "2":
		default:
			fmt.Fprintln(m.out, "Invalid choice. Please enter 1 or 2.")
			continue
		}

		rng, err := m.ask("Enter the cell range", m.defaults.Range)
		if err != nil {
			return names.ScanConfig{}, err
		}
		answer, err := m.ask("Enter the columns to search, comma separated", m.defaults.Columns)
		if err != nil {
			return names.ScanConfig{}, err
		}
		columns, err := cellref.ParseColumnList(answer)
		if err != nil {
			m.errorf("%v", err)
			continue
		}

		rule := m.defaults.Rule
		if rule == names.RuleUnset {
			rule = names.DefaultRule(prefix)
		}
		cfg, err := names.NewScanConfig(sheet, rng, columns, prefix, rule)
		if err != nil {
			m.errorf("%v", err)
			continue
		}
		return cfg, nil
	}
}

func (m *Menu) updateFormulas(ctx context.Context) error {
	fmt.Fprintln(m.out)
	heading.Fprintln(m.out, "--- Formula Update Options ---")
	fmt.Fprintln(m.out, "1. Update formulas in a specific sheet")
	fmt.Fprintln(m.out, "2. Update formulas in all sheets")

	var choice string
	for {
		var err error
		if choice, err = m.ask("Enter the number corresponding to your choice", "1"); err != nil {
			return err
		}
		if choice == "1" || choice == "2" {
			break
		}
		fmt.Fprintln(m.out, "Invalid choice. Please enter '1' or '2'.")
	}

	scope := rewrite.AllSheets
	if choice == "1" {
		sheet, ok, err := m.chooseSheet("Enter the sheet name to update")
		if err != nil || !ok {
			return err
		}
		scope = rewrite.Scope{Sheet: sheet}
	}

	res, err := rewrite.Rewrite(m.session, scope, rewrite.Options{Progress: m.progress})
	if err != nil {
		m.errorf("%v", err)
		return nil
	}
	m.outcome.Modified += res.Modified
	m.journal.Append(ctx, journal.FromRewrite("menu", m.path, res)...)

	for _, sk := range res.SkippedSheets {
		fmt.Fprintf(m.out, "Skipping %s sheet: %s\n", sk.Visibility, sk.Sheet)
	}
	for _, c := range res.Changes {
		fmt.Fprintf(m.out, "  %s!%s: %s -> %s\n", c.Sheet, c.Cell, c.Before, c.After)
	}
	for _, w := range res.Warnings {
		warning.Fprintf(m.out, "  %s\n", w)
	}
	success.Fprintf(m.out, "Formula update completed: %d of %d formula cells modified.\n", res.Modified, res.Scanned)
	return nil
}

func (m *Menu) listNames() {
	aliases := m.session.Aliases()
	fmt.Fprintln(m.out)
	if len(aliases) == 0 {
		fmt.Fprintln(m.out, "No named ranges defined.")
		return
	}
	heading.Fprintf(m.out, "--- Named Ranges (%d) ---\n", len(aliases))
	for _, a := range aliases {
		scope := ""
		if a.Scope != "" {
			scope = fmt.Sprintf("  [%s]", a.Scope)
		}
		fmt.Fprintf(m.out, "  %-30s %s%s\n", a.Name, a.RefersTo, scope)
	}
}

// save writes the workbook. A failed save keeps the session open.
func (m *Menu) save(ctx context.Context) (bool, error) {
	fmt.Fprintln(m.out)
	heading.Fprintln(m.out, "--- Saving Workbook ---")
	choice, err := m.ask("Do you want to overwrite the original file or save as a new file? (overwrite/save_as_new)", "save_as_new")
	if err != nil {
		return false, err
	}

	overwrite := strings.EqualFold(choice, "overwrite") || strings.EqualFold(choice, "o")
	output := m.path
	if !overwrite {
		dir, file := filepath.Split(m.path)
		output = filepath.Join(dir, m.defaults.OutputPrefix+file)
	}

	if err := m.session.Workbook().SaveAs(output); err != nil {
		m.errorf("could not save workbook: %v", err)
		fmt.Fprintln(m.out, "The workbook is still open. Choose another option or try again.")
		return false, nil
	}
	m.outcome.Saved = true
	m.outcome.Output = output
	m.journal.Append(ctx, journal.Saved("menu", m.path, output))

	if overwrite {
		success.Fprintf(m.out, "\nOriginal Excel file '%s' has been overwritten.\n", m.path)
	} else {
		success.Fprintf(m.out, "\nUpdated Excel file saved as '%s'.\n", output)
	}
	m.goodbye()
	return true, nil
}

func (m *Menu) confirmExit() (bool, error) {
	answer, err := m.ask("Are you sure you want to exit without saving? (yes/no)", "no")
	if err != nil {
		return false, err
	}
	if isYes(answer) {
		fmt.Fprintln(m.out, "Exiting the program without saving.")
		m.goodbye()
		return true, nil
	}
	fmt.Fprintln(m.out, "Returning to the main menu.")
	return false, nil
}

func (m *Menu) goodbye() {
	fmt.Fprintf(m.out, "Session ended. %d commands run in %s. Goodbye!\n",
		m.outcome.Commands, formatDuration(time.Since(m.start)))
}

func isYes(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "yes" || s == "y"
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm %ds", m, s)
}
