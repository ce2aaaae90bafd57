package xlsx

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klytics/namekit/internal/cellref"
)

func writeAndOpen(t *testing.T, fx *Fixture) *Workbook {
	t.Helper()
	path := filepath.Join(t.TempDir(), "book.xlsx")
	if err := WriteFixture(fx, path); err != nil {
		t.Fatalf("WriteFixture failed: %v", err)
	}
	wb, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { wb.Close() })
	return wb
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.xlsx"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "file not found") {
		t.Errorf("expected 'file not found' in error, got %q", err.Error())
	}
}

func TestCellKinds(t *testing.T) {
	wb := writeAndOpen(t, &Fixture{Sheets: []FixtureSheet{{
		Name: "Tax Calculation",
		Cells: map[string]any{
			"A1": "1657",
			"A2": 2500,
			"A3": 12.5,
			"A4": true,
			"A5": "  padded  ",
		},
		Formulas: map[string]string{"A6": "SUM(A2:A3)"},
	}}})

	tests := []struct {
		ref  string
		kind ValueKind
		text string
	}{
		{"A1", KindString, "1657"},
		{"A2", KindNumber, "2500"},
		{"A3", KindNumber, "12.5"},
		{"A4", KindBool, "TRUE"},
		{"A5", KindString, "  padded  "},
		{"A6", KindFormula, "=SUM(A2:A3)"},
		{"A7", KindEmpty, ""},
	}
	for _, tt := range tests {
		v, err := wb.Cell("Tax Calculation", cellref.MustParse(tt.ref))
		if err != nil {
			t.Fatalf("Cell(%s) failed: %v", tt.ref, err)
		}
		if v.Kind != tt.kind || v.Text != tt.text {
			t.Errorf("Cell(%s): expected %s %q, got %s %q", tt.ref, tt.kind, tt.text, v.Kind, v.Text)
		}
	}
}

func TestValueConversions(t *testing.T) {
	if n, ok := (Value{Kind: KindNumber, Text: "2500"}).Int(); !ok || n != 2500 {
		t.Errorf("expected 2500, got %d (%v)", n, ok)
	}
	if _, ok := (Value{Kind: KindNumber, Text: "12.5"}).Int(); ok {
		t.Error("expected 12.5 not to be an integer")
	}
	if _, ok := (Value{Kind: KindString, Text: "12"}).Int(); ok {
		t.Error("expected string cell not to report an integer")
	}
	if s := (Value{Kind: KindString, Text: " x1 "}).String(); s != "x1" {
		t.Errorf("expected trimmed string, got %q", s)
	}
	if s := (Value{Kind: KindNumber, Text: "1.50E+1"}).String(); s != "15" {
		t.Errorf("expected 15, got %q", s)
	}
}

func TestVisibility(t *testing.T) {
	wb := writeAndOpen(t, &Fixture{Sheets: []FixtureSheet{
		{Name: "Main"},
		{Name: "Backup", Hidden: true},
		{Name: "Lookup", VeryHidden: true},
	}})

	want := map[string]Visibility{"Main": Visible, "Backup": Hidden, "Lookup": VeryHidden}
	for sheet, vis := range want {
		got, err := wb.Visibility(sheet)
		if err != nil {
			t.Fatalf("Visibility(%s) failed: %v", sheet, err)
		}
		if got != vis {
			t.Errorf("Visibility(%s): expected %s, got %s", sheet, vis, got)
		}
	}

	names := wb.SheetNames()
	if len(names) != 3 || names[0] != "Main" || names[2] != "Lookup" {
		t.Errorf("unexpected sheet order %v", names)
	}
	if !wb.HasSheet("Backup") || wb.HasSheet("backup ") {
		t.Error("HasSheet should match exact names only")
	}
}

func TestFormulaCells(t *testing.T) {
	wb := writeAndOpen(t, &Fixture{Sheets: []FixtureSheet{{
		Name:     "Sheet1",
		Cells:    map[string]any{"A1": 1, "B1": 2},
		Formulas: map[string]string{"C1": "A1+B1", "D4": "C1*2", "B2": "L200"},
	}}})

	cells, failures, err := wb.FormulaCells("Sheet1")
	if err != nil {
		t.Fatalf("FormulaCells failed: %v", err)
	}
	if len(failures) != 0 {
		t.Errorf("expected no failures, got %v", failures)
	}
	if len(cells) != 3 {
		t.Fatalf("expected 3 formula cells, got %+v", cells)
	}
	order := []string{"C1", "B2", "D4"}
	for i, ref := range order {
		if cells[i].Coord.String() != ref {
			t.Errorf("cell %d: expected %s, got %s", i, ref, cells[i].Coord)
		}
	}
	if cells[2].Formula != "C1*2" {
		t.Errorf("expected formula without '=', got %q", cells[2].Formula)
	}
}

func TestSetFormulaAndSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.xlsx")
	fx := &Fixture{Sheets: []FixtureSheet{{
		Name:     "Sheet1",
		Formulas: map[string]string{"A1": "L200*2"},
	}}}
	if err := WriteFixture(fx, path); err != nil {
		t.Fatalf("WriteFixture failed: %v", err)
	}
	wb, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := wb.SetFormula("Sheet1", cellref.MustParse("A1"), "=display_code_1657*2"); err != nil {
		t.Fatalf("SetFormula failed: %v", err)
	}
	if err := wb.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	wb.Close()

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()
	got, err := reopened.Formula("Sheet1", cellref.MustParse("A1"))
	if err != nil {
		t.Fatalf("Formula failed: %v", err)
	}
	if got != "display_code_1657*2" {
		t.Errorf("expected rewritten formula, got %q", got)
	}
}

func TestSaveWithoutPath(t *testing.T) {
	wb := NewWorkbook()
	defer wb.Close()
	if err := wb.Save(); err == nil {
		t.Fatal("expected error saving a workbook without a path")
	}
	if err := wb.SaveAs(filepath.Join(t.TempDir(), "new.xlsx")); err != nil {
		t.Errorf("SaveAs failed: %v", err)
	}
}

func TestMergedRegions(t *testing.T) {
	wb := writeAndOpen(t, &Fixture{Sheets: []FixtureSheet{{
		Name:   "Sheet1",
		Merges: []string{"B2:C3"},
	}}})

	regions, err := wb.MergedRegions("Sheet1")
	if err != nil {
		t.Fatalf("MergedRegions failed: %v", err)
	}
	if len(regions) != 1 {
		t.Fatalf("expected 1 region, got %+v", regions)
	}
	if regions[0].Start.String() != "B2" || regions[0].End.String() != "C3" {
		t.Errorf("unexpected region %+v", regions[0])
	}

	cells := regions[0].NonAnchorCells()
	var refs []string
	for _, c := range cells {
		refs = append(refs, c.String())
	}
	if got := strings.Join(refs, ","); got != "C2,B3,C3" {
		t.Errorf("expected C2,B3,C3, got %s", got)
	}
}

func TestMergedCellsHoldNoContent(t *testing.T) {
	wb := writeAndOpen(t, &Fixture{Sheets: []FixtureSheet{{
		Name:     "Sheet1",
		Cells:    map[string]any{"L200": 1},
		Merges:   []string{"B2:C3"},
		Formulas: map[string]string{"B2": "L200*2"},
	}}})

	cells, _, err := wb.FormulaCells("Sheet1")
	if err != nil {
		t.Fatalf("FormulaCells failed: %v", err)
	}
	if len(cells) != 1 || cells[0].Coord.String() != "B2" {
		t.Errorf("expected only B2, got %+v", cells)
	}

	v, err := wb.Cell("Sheet1", cellref.MustParse("C3"))
	if err != nil {
		t.Fatalf("Cell failed: %v", err)
	}
	if !v.IsEmpty() {
		t.Errorf("expected C3 to be empty, got %+v", v)
	}
	if f, err := wb.Formula("Sheet1", cellref.MustParse("C2")); err != nil || f != "" {
		t.Errorf("expected no formula at C2, got %q, %v", f, err)
	}

	if err := wb.SetFormula("Sheet1", cellref.MustParse("B3"), "1+1"); err == nil {
		t.Error("expected error writing inside a merged region")
	}
	if f, _ := wb.Formula("Sheet1", cellref.MustParse("B2")); f != "L200*2" {
		t.Errorf("anchor formula changed: %q", f)
	}
}

func TestImageAnchors(t *testing.T) {
	wb := writeAndOpen(t, &Fixture{Sheets: []FixtureSheet{{
		Name:   "Sheet1",
		Images: []string{"D5"},
	}}})

	anchors, err := wb.ImageAnchors("Sheet1")
	if err != nil {
		t.Fatalf("ImageAnchors failed: %v", err)
	}
	if len(anchors) != 1 || anchors[0].String() != "D5" {
		t.Errorf("expected [D5], got %v", anchors)
	}
}

func TestDefinedNames(t *testing.T) {
	wb := writeAndOpen(t, &Fixture{
		Sheets: []FixtureSheet{{Name: "Tax Calculation"}},
		Names: []DefinedName{
			{Name: "display_code_1657", RefersTo: "'Tax Calculation'!$L$200"},
			{Name: "local_rate", RefersTo: "'Tax Calculation'!$B$2", Scope: "Tax Calculation"},
		},
	})

	names := wb.DefinedNames()
	if len(names) != 2 {
		t.Fatalf("expected 2 names, got %+v", names)
	}
	byName := map[string]DefinedName{}
	for _, dn := range names {
		byName[dn.Name] = dn
	}
	if dn := byName["display_code_1657"]; dn.Scope != "" || dn.RefersTo != "'Tax Calculation'!$L$200" {
		t.Errorf("unexpected workbook name %+v", dn)
	}
	if dn := byName["local_rate"]; dn.Scope != "Tax Calculation" {
		t.Errorf("expected sheet scope, got %+v", dn)
	}

	if err := wb.SetDefinedName("display_code_2500", "'Tax Calculation'!$L$201"); err != nil {
		t.Fatalf("SetDefinedName failed: %v", err)
	}
	if err := wb.DeleteDefinedName("display_code_1657"); err != nil {
		t.Fatalf("DeleteDefinedName failed: %v", err)
	}
	for _, dn := range wb.DefinedNames() {
		if dn.Name == "display_code_1657" {
			t.Error("expected display_code_1657 to be deleted")
		}
	}

	if err := wb.DeleteDefinedName("missing"); !errors.Is(err, ErrNameNotFound) {
		t.Errorf("expected ErrNameNotFound, got %v", err)
	}
}
