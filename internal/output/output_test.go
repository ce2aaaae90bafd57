package output

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestTableRender(t *testing.T) {
	color.NoColor = true
	tbl := &Table{
		Header:   []string{"Name", "Refers To"},
		Rows:     [][]string{{"display_code_1657", "'Tax Calculation'!$L$200"}, {"x", "Sheet1!$A$1"}},
		MaxWidth: 10,
	}
	out := tbl.String()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header, separator and 2 rows, got %d lines:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[2], "display_c~") || strings.Contains(lines[2], "display_co") {
		t.Errorf("expected cell truncated to 10 characters, got %q", lines[2])
	}
	if !strings.HasPrefix(lines[1], "  ----") {
		t.Errorf("expected separator, got %q", lines[1])
	}
}

func TestTableWidthsMinimum(t *testing.T) {
	tbl := &Table{Header: []string{"A"}, Rows: [][]string{{"b", "extra"}}}
	widths := tbl.Widths()
	if len(widths) != 2 || widths[0] != 3 || widths[1] != 5 {
		t.Errorf("unexpected widths %v", widths)
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, "names list", map[string]int{"count": 2}); err != nil {
		t.Fatal(err)
	}
	var result JSONResult
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if !result.OK || result.Command != "names list" || result.Version == "" {
		t.Errorf("unexpected envelope %+v", result)
	}
}

func TestShouldPage(t *testing.T) {
	long := strings.Repeat("line\n", 500)
	var buf bytes.Buffer
	if ShouldPage(&buf, long, 10) {
		t.Error("a buffer must never be paged")
	}
	t.Setenv("NAMEKIT_NO_PAGER", "1")
	if ShouldPage(os.Stdout, long, 10) {
		t.Error("NAMEKIT_NO_PAGER must disable paging")
	}
}
