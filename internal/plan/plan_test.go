package plan

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klytics/namekit/internal/cellref"
	"github.com/klytics/namekit/internal/formats/xlsx"
	"github.com/klytics/namekit/internal/names"
)

const samplePlan = `
name: tax-2024
sheet: Tax Calculation
configurations:
  - id: codes
    range: L200:L202
    columns: [J, K]
    prefix: display_code_
    rule: tax-code
  - range: L300:L301
    columns: "M"
rewrite:
  scope: all
output: updated
`

func TestParsePlan(t *testing.T) {
	p, err := ParsePlan([]byte(samplePlan))
	if err != nil {
		t.Fatalf("ParsePlan failed: %v", err)
	}
	if p.Name != "tax-2024" || len(p.Configurations) != 2 {
		t.Fatalf("unexpected plan %+v", p)
	}
	if cols := p.Configurations[1].Columns; len(cols) != 1 || cols[0] != "M" {
		t.Errorf("expected scalar columns to parse, got %v", cols)
	}

	configs, err := p.ScanConfigs()
	if err != nil {
		t.Fatalf("ScanConfigs failed: %v", err)
	}
	if configs[0].Rule != names.RuleTaxCode || configs[0].Prefix != "display_code_" {
		t.Errorf("unexpected first config %+v", configs[0])
	}
	if configs[1].Rule != names.RuleAnyValue || configs[1].Sheet != "Tax Calculation" {
		t.Errorf("expected default rule and plan sheet, got %+v", configs[1])
	}
	if p.Rewrite.ScopeValue().Sheet != "" {
		t.Errorf("expected all sheets, got %+v", p.Rewrite.ScopeValue())
	}
}

func TestParsePlanErrors(t *testing.T) {
	tests := []struct {
		yaml string
		want string
	}{
		{"sheet: x\n", "missing a 'name'"},
		{"name: empty\n", "no configurations"},
		{"name: p\nconfigurations:\n  - range: L1:L2\n    columns: [J]\n", "has no sheet"},
		{"name: p\nsheet: s\nconfigurations:\n  - range: L1\n    columns: [J]\n", "invalid range"},
		{"name: p\nsheet: s\nconfigurations:\n  - range: L1:L2\n    columns: [JJ]\n", "invalid columns"},
		{"name: p\nsheet: s\nconfigurations:\n  - range: L1:L2\n    columns: [J]\n    rule: loose\n", "invalid rule"},
		{"name: p\nsheet: s\nconfigurations:\n  - id: a\n    range: L1:L2\n    columns: [J]\n  - id: a\n    range: L1:L2\n    columns: [J]\n", "duplicate configuration ID"},
		{"name: p\nsheet: s\nrewrite: {}\non_failure: retry\n", "invalid on_failure"},
		{"name: p\n  bad: [", "invalid plan YAML"},
	}
	for _, tt := range tests {
		_, err := ParsePlan([]byte(tt.yaml))
		if err == nil {
			t.Errorf("expected error containing %q for %q", tt.want, tt.yaml)
			continue
		}
		if !strings.Contains(err.Error(), tt.want) {
			t.Errorf("expected error containing %q, got %q", tt.want, err.Error())
		}
	}
}

func TestLoadPlanMissing(t *testing.T) {
	_, err := LoadPlan(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil || !strings.Contains(err.Error(), "plan file not found") {
		t.Errorf("expected 'plan file not found', got %v", err)
	}
}

func TestSampleRoundTrip(t *testing.T) {
	data, err := Sample("Tax Calculation", "L200:L408", "J,K", "display_code_").Marshal()
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	p, err := ParsePlan(data)
	if err != nil {
		t.Fatalf("sample plan does not parse: %v\n%s", err, data)
	}
	if p.Configurations[0].Rule != "tax-code" || len(p.Configurations[0].Columns) != 2 {
		t.Errorf("unexpected sample %+v", p.Configurations[0])
	}
}

func TestOutputPath(t *testing.T) {
	input := filepath.Join("data", "book.xlsx")
	tests := []struct {
		output string
		want   string
	}{
		{"", filepath.Join("data", "updated_book.xlsx")},
		{"updated", filepath.Join("data", "updated_book.xlsx")},
		{"overwrite", input},
		{"out/${{ input.stem }}-named.xlsx", filepath.Join("data", "out", "book-named.xlsx")},
	}
	for _, tt := range tests {
		got := OutputPath(&Plan{Output: tt.output}, input, "updated_")
		if got != tt.want {
			t.Errorf("OutputPath(%q): expected %q, got %q", tt.output, tt.want, got)
		}
	}

	today := time.Now().Format("2006-01-02")
	if got := OutputPath(&Plan{Output: "${{ date.today }}.xlsx"}, input, "updated_"); !strings.Contains(got, today) {
		t.Errorf("expected today's date in %q", got)
	}
	t.Setenv("NAMEKIT_TEST_DIR", "exports")
	if got := OutputPath(&Plan{Output: "${{ env.NAMEKIT_TEST_DIR }}/x.xlsx"}, input, "updated_"); got != filepath.Join("data", "exports", "x.xlsx") {
		t.Errorf("unexpected env output %q", got)
	}
}

func openFixture(t *testing.T) *names.Session {
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
		Formulas: map[string]string{"A1": "L200+L201", "A2": "L202"},
	}}}
	if err := xlsx.WriteFixture(fx, path); err != nil {
		t.Fatalf("WriteFixture failed: %v", err)
	}
	s, err := names.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestExecutorRun(t *testing.T) {
	s := openFixture(t)
	p, err := ParsePlan([]byte(`
name: run
sheet: Tax Calculation
configurations:
  - range: L200:L202
    columns: [J, K]
    prefix: display_code_
rewrite:
  scope: Tax Calculation
`))
	if err != nil {
		t.Fatalf("ParsePlan failed: %v", err)
	}

	report, err := NewExecutor(false).Run(context.Background(), s, p)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Created != 2 || report.Modified != 1 || len(report.Steps) != 2 {
		t.Fatalf("unexpected report %+v", report)
	}
	f, err := s.Workbook().Formula("Tax Calculation", cellref.MustParse("A1"))
	if err != nil {
		t.Fatalf("Formula failed: %v", err)
	}
	if f != "display_code_1657+display_code_2500" {
		t.Errorf("expected rewritten formula, got %q", f)
	}
}

func TestExecutorContinuesAfterFailure(t *testing.T) {
	s := openFixture(t)
	p := &Plan{
		Name: "mixed",
		Configurations: []Configuration{
			{ID: "missing", Sheet: "Nope", Range: "L200:L202", Columns: ColumnList{"J"}, Prefix: "x_"},
			{ID: "ok", Sheet: "Tax Calculation", Range: "L200:L202", Columns: ColumnList{"J", "K"}, Prefix: "c_"},
		},
	}

	report, err := NewExecutor(false).Run(context.Background(), s, p)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Failed != 1 || report.Created != 2 {
		t.Errorf("unexpected report %+v", report)
	}
	if report.Steps[0].Error == "" {
		t.Error("expected first step to carry its error")
	}

	p.OnFailure = "stop"
	_, err = NewExecutor(false).Run(context.Background(), s, p)
	if !errors.Is(err, names.ErrSheetNotFound) {
		t.Errorf("expected ErrSheetNotFound with on_failure: stop, got %v", err)
	}
}

func TestExecutorCancelled(t *testing.T) {
	s := openFixture(t)
	p := Sample("Tax Calculation", "L200:L202", "J,K", "display_code_")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewExecutor(false).Run(ctx, s, p); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
