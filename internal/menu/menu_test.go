package menu

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klytics/namekit/internal/cellref"
	"github.com/klytics/namekit/internal/formats/xlsx"
	"github.com/klytics/namekit/internal/journal"
	"github.com/klytics/namekit/internal/names"
)

var testDefaults = Defaults{
	Sheet:   "Tax Calculation",
	Prefix:  "display_code_",
	Range:   "L200:L202",
	Columns: "J,K",
}

func writeBook(t *testing.T) string {
	t.Helper()
	t.Setenv("NAMEKIT_NO_PROGRESS", "1")
	path := filepath.Join(t.TempDir(), "book.xlsx")
	fx := &xlsx.Fixture{Sheets: []xlsx.FixtureSheet{{
		Name: "Tax Calculation",
		Cells: map[string]any{
			"J200": "1657", "L200": 1,
			"K201": 2500, "L201": 2,
			"L202": 3,
		},
		Formulas: map[string]string{"A1": "L200+L201"},
	}}}
	if err := xlsx.WriteFixture(fx, path); err != nil {
		t.Fatalf("WriteFixture failed: %v", err)
	}
	return path
}

func runScript(t *testing.T, path string, lines ...string) (*Outcome, string, *names.Session) {
	t.Helper()
	s, err := names.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	var out bytes.Buffer
	input := strings.Join(lines, "\n")
	if len(lines) > 0 {
		input += "\n"
	}
	m := New(s, path, NewLinePrompter(strings.NewReader(input), &out), &out, testDefaults)
	outcome, err := m.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v\n%s", err, out.String())
	}
	return outcome, out.String(), s
}

func TestCreateUpdateAndSave(t *testing.T) {
	path := writeBook(t)
	outcome, out, _ := runScript(t, path,
		"1", "", "1", "", "", "", "no", // create with defaults
		"2", "2", // update all sheets
		"4", "", // save as new
	)

	if outcome.Created != 2 || outcome.Modified != 1 || !outcome.Saved {
		t.Fatalf("unexpected outcome %+v\n%s", outcome, out)
	}
	want := filepath.Join(filepath.Dir(path), "updated_book.xlsx")
	if outcome.Output != want {
		t.Errorf("expected output %q, got %q", want, outcome.Output)
	}

	saved, err := names.Open(want)
	if err != nil {
		t.Fatalf("saved workbook does not open: %v", err)
	}
	defer saved.Close()
	f, err := saved.Workbook().Formula("Tax Calculation", cellref.MustParse("A1"))
	if err != nil {
		t.Fatalf("Formula failed: %v", err)
	}
	if f != "display_code_1657+display_code_2500" {
		t.Errorf("expected rewritten formula, got %q", f)
	}
	if _, ok := saved.Lookup("display_code_1657"); !ok {
		t.Error("expected display_code_1657 in saved workbook")
	}

	if !strings.Contains(out, "display_code_1657 -> 'Tax Calculation'!$L$200") {
		t.Errorf("expected created name in output:\n%s", out)
	}
}

func TestInvalidColumnsRestartConfiguration(t *testing.T) {
	path := writeBook(t)
	outcome, out, _ := runScript(t, path,
		"1", "", "1", "", "", "J,1",
		"1", "", "", "J,K", "no",
	)

	if !strings.Contains(out, "invalid column letters detected: 1") {
		t.Errorf("expected column error in output:\n%s", out)
	}
	if outcome.Created != 2 {
		t.Errorf("expected 2 names after retry, got %d", outcome.Created)
	}
	if outcome.Saved {
		t.Error("end of input must not save")
	}
	if !strings.Contains(out, "Exiting without saving") {
		t.Errorf("expected exit message:\n%s", out)
	}
}

func TestMultipleConfigurations(t *testing.T) {
	path := writeBook(t)
	outcome, _, s := runScript(t, path,
		"1", "", "1", "a_", "L200:L200", "J", "yes",
		"1", "b_", "L201:L201", "K", "no",
	)
	if outcome.Created != 2 {
		t.Fatalf("expected 2 names, got %d", outcome.Created)
	}
	for _, name := range []string{"a_1657", "b_2500"} {
		if _, ok := s.Lookup(name); !ok {
			t.Errorf("expected %s to exist", name)
		}
	}
}

func TestMissingSheetReturnsToMenu(t *testing.T) {
	path := writeBook(t)
	outcome, out, _ := runScript(t, path, "1", "Nope", "5", "yes")

	if !strings.Contains(out, "sheet not found") || !strings.Contains(out, "Available sheets: Tax Calculation") {
		t.Errorf("expected sheet error:\n%s", out)
	}
	if outcome.Saved || outcome.Created != 0 {
		t.Errorf("unexpected outcome %+v", outcome)
	}
	if !strings.Contains(out, "Exiting the program without saving.") {
		t.Errorf("expected confirmed exit:\n%s", out)
	}
}

func TestExitConfirmationDeclined(t *testing.T) {
	path := writeBook(t)
	_, out, _ := runScript(t, path, "5", "", "9")

	if !strings.Contains(out, "Returning to the main menu.") {
		t.Errorf("expected return to menu:\n%s", out)
	}
	if !strings.Contains(out, "Invalid choice. Please enter a number between 1 and 5.") {
		t.Errorf("expected invalid choice message:\n%s", out)
	}
}

func TestUpdateSpecificSheetRepromptsInvalidChoice(t *testing.T) {
	path := writeBook(t)
	outcome, out, _ := runScript(t, path,
		"1", "", "", "", "", "", "",
		"2", "3", "1", "",
	)
	if !strings.Contains(out, "Invalid choice. Please enter '1' or '2'.") {
		t.Errorf("expected re-prompt:\n%s", out)
	}
	if outcome.Modified != 1 {
		t.Errorf("expected 1 modified cell, got %d", outcome.Modified)
	}
}

func TestListNames(t *testing.T) {
	path := writeBook(t)
	_, out, _ := runScript(t, path, "3", "1", "", "", "", "", "", "", "3")

	if !strings.Contains(out, "No named ranges defined.") {
		t.Errorf("expected empty listing:\n%s", out)
	}
	if !strings.Contains(out, "Named Ranges (2)") {
		t.Errorf("expected listing of 2 names:\n%s", out)
	}
}

func TestOverwrite(t *testing.T) {
	path := writeBook(t)
	outcome, _, _ := runScript(t, path, "1", "", "", "", "", "", "", "4", "overwrite")
	if !outcome.Saved || outcome.Output != path {
		t.Fatalf("expected overwrite of %s, got %+v", path, outcome)
	}

	s, err := names.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if len(s.Aliases()) != 2 {
		t.Errorf("expected 2 names in overwritten file, got %d", len(s.Aliases()))
	}
}

func TestSaveFailureKeepsSessionOpen(t *testing.T) {
	path := writeBook(t)
	s, err := names.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	var out bytes.Buffer
	bad := filepath.Join(t.TempDir(), "missing", "book.xlsx")
	input := strings.NewReader("4\n\n5\nyes\n")
	m := New(s, bad, NewLinePrompter(input, &out), &out, testDefaults)
	outcome, err := m.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if outcome.Saved {
		t.Error("save into a missing directory must fail")
	}
	if !strings.Contains(out.String(), "could not save workbook") {
		t.Errorf("expected save error:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "Exiting the program without saving.") {
		t.Errorf("expected session to continue after failed save:\n%s", out.String())
	}
}

func TestJournalRecordsSession(t *testing.T) {
	path := writeBook(t)
	s, err := names.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	logPath := filepath.Join(t.TempDir(), "journal.jsonl")
	input := strings.NewReader("1\n\n\n\n\n\n\n2\n2\n4\n\n")
	m := New(s, path, NewLinePrompter(input, io.Discard), io.Discard, testDefaults)
	m.SetJournal(journal.New(logPath, true))
	if _, err := m.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	entries, err := journal.ReadEntries(logPath)
	if err != nil {
		t.Fatalf("ReadEntries failed: %v", err)
	}
	kinds := make(map[string]int)
	for _, e := range entries {
		kinds[e.Kind]++
	}
	if kinds[journal.KindName] != 2 || kinds[journal.KindFormula] != 1 || kinds[journal.KindSave] != 1 {
		t.Errorf("unexpected journal kinds %v", kinds)
	}
}

func TestCancelledContext(t *testing.T) {
	path := writeBook(t)
	s, err := names.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := New(s, path, NewLinePrompter(strings.NewReader("1\n"), io.Discard), io.Discard, testDefaults)
	if _, err := m.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestLinePrompterEOF(t *testing.T) {
	var out bytes.Buffer
	p := NewLinePrompter(strings.NewReader("answer\n"), &out)
	line, err := p.Prompt("Q: ")
	if err != nil || line != "answer" {
		t.Fatalf("expected answer, got %q, %v", line, err)
	}
	if _, err := p.Prompt("Q: "); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF, got %v", err)
	}
	if out.String() != "Q: Q: " {
		t.Errorf("expected prompts echoed, got %q", out.String())
	}
}

func TestIsYes(t *testing.T) {
	for _, s := range []string{"yes", "Y", " YES "} {
		if !isYes(s) {
			t.Errorf("expected %q to be yes", s)
		}
	}
	for _, s := range []string{"no", "", "yep"} {
		if isYes(s) {
			t.Errorf("expected %q not to be yes", s)
		}
	}
}
