package xlsx

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sort"

	"github.com/xuri/excelize/v2"
)

// Fixture describes a workbook declaratively. It is used to generate sample
// workbooks and test inputs.
type Fixture struct {
	Sheets []FixtureSheet `json:"sheets"`
	Names  []DefinedName  `json:"names,omitempty"`
}

// FixtureSheet is one sheet of a Fixture. Cell values may be string, int,
// float64 or bool. Formulas are given without the leading '='. Shared maps a
// range such as "C1:C3" to the formula of its top-left cell, which the other
// cells of the range inherit as a shared formula.
type FixtureSheet struct {
	Name       string            `json:"name"`
	Cells      map[string]any    `json:"cells,omitempty"`
	Formulas   map[string]string `json:"formulas,omitempty"`
	Shared     map[string]string `json:"shared,omitempty"`
	Merges     []string          `json:"merges,omitempty"`
	Images     []string          `json:"images,omitempty"`
	Hidden     bool              `json:"hidden,omitempty"`
	VeryHidden bool              `json:"veryHidden,omitempty"`
}

// WriteFixture creates a new .xlsx file at path from fx. The first sheet must
// stay visible since it is the active sheet.
func WriteFixture(fx *Fixture, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, sheet := range fx.Sheets {
		sheetName := sheet.Name
		if sheetName == "" {
			sheetName = fmt.Sprintf("Sheet%d", i+1)
		}

		if i == 0 {
			// Rename default sheet
			defaultSheet := f.GetSheetName(0)
			if err := f.SetSheetName(defaultSheet, sheetName); err != nil {
				return fmt.Errorf("could not rename sheet: %w", err)
			}
		} else {
			if _, err := f.NewSheet(sheetName); err != nil {
				return fmt.Errorf("could not create sheet %q: %w", sheetName, err)
			}
		}

		// MergeCell clears non-anchor cells, so merges go first.
		for _, rng := range sheet.Merges {
			start, end, ok := splitRange(rng)
			if !ok {
				return fmt.Errorf("invalid merge range %q", rng)
			}
			if err := f.MergeCell(sheetName, start, end); err != nil {
				return fmt.Errorf("could not merge %s: %w", rng, err)
			}
		}
		for _, rng := range sortedKeys(sheet.Shared) {
			start, _, ok := splitRange(rng)
			if !ok {
				return fmt.Errorf("invalid shared formula range %q", rng)
			}
			typ, ref := excelize.STCellFormulaTypeShared, rng
			opts := excelize.FormulaOpts{Type: &typ, Ref: &ref}
			if err := f.SetCellFormula(sheetName, start, sheet.Shared[rng], opts); err != nil {
				return fmt.Errorf("could not set shared formula %s: %w", rng, err)
			}
		}
		for _, ref := range sortedKeys(sheet.Cells) {
			if err := f.SetCellValue(sheetName, ref, sheet.Cells[ref]); err != nil {
				return fmt.Errorf("could not set cell %s: %w", ref, err)
			}
		}
		for _, ref := range sortedKeys(sheet.Formulas) {
			if err := f.SetCellFormula(sheetName, ref, sheet.Formulas[ref]); err != nil {
				return fmt.Errorf("could not set formula %s: %w", ref, err)
			}
		}
		for _, ref := range sheet.Images {
			if err := addPlaceholderImage(f, sheetName, ref); err != nil {
				return err
			}
		}
		// Formula-only cells carry no cached value, so the used range is
		// recorded explicitly.
		if last, ok := lastCell(sheet); ok {
			if err := f.SetSheetDimension(sheetName, "A1:"+last); err != nil {
				return fmt.Errorf("could not set dimension of %q: %w", sheetName, err)
			}
		}
	}

	// Visibility is applied once every sheet exists.
	for i, sheet := range fx.Sheets {
		if i == 0 || !(sheet.Hidden || sheet.VeryHidden) {
			continue
		}
		if err := f.SetSheetVisible(sheet.Name, false, sheet.VeryHidden); err != nil {
			return fmt.Errorf("could not hide sheet %q: %w", sheet.Name, err)
		}
	}

	for _, dn := range fx.Names {
		if err := f.SetDefinedName(&excelize.DefinedName{Name: dn.Name, RefersTo: dn.RefersTo, Scope: dn.Scope}); err != nil {
			return fmt.Errorf("could not define name %q: %w", dn.Name, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("could not save %s: %w", path, err)
	}

	return nil
}

func addPlaceholderImage(f *excelize.File, sheet, ref string) error {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.Black)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("could not encode placeholder image: %w", err)
	}
	pic := &excelize.Picture{Extension: ".png", File: buf.Bytes(), Format: &excelize.GraphicOptions{}}
	if err := f.AddPictureFromBytes(sheet, ref, pic); err != nil {
		return fmt.Errorf("could not add image at %s: %w", ref, err)
	}
	return nil
}

func lastCell(sheet FixtureSheet) (string, bool) {
	refs := append(sortedKeys(sheet.Cells), sortedKeys(sheet.Formulas)...)
	ranges := append(append([]string{}, sheet.Merges...), sortedKeys(sheet.Shared)...)
	for _, rng := range ranges {
		if _, end, ok := splitRange(rng); ok {
			refs = append(refs, end)
		}
	}
	maxCol, maxRow := 0, 0
	for _, ref := range refs {
		col, row, err := excelize.CellNameToCoordinates(ref)
		if err != nil {
			continue
		}
		maxCol, maxRow = max(maxCol, col), max(maxRow, row)
	}
	if maxCol == 0 {
		return "", false
	}
	last, err := excelize.CoordinatesToCellName(maxCol, maxRow)
	return last, err == nil
}

func splitRange(rng string) (string, string, bool) {
	for i := 0; i < len(rng); i++ {
		if rng[i] == ':' {
			return rng[:i], rng[i+1:], i > 0 && i < len(rng)-1
		}
	}
	return "", "", false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
