// Package xlsx provides the workbook model namekit edits: typed cell access,
// formula cells, merged regions, image anchors and the defined-name table of
// an .xlsx file.
package xlsx

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/klytics/namekit/internal/cellref"
)

// ErrNameNotFound is returned when deleting a defined name that does not exist.
var ErrNameNotFound = errors.New("defined name not found")

// Visibility is the sheet state stored in the workbook.
type Visibility int

const (
	// Visible sheets are shown in the tab bar.
	Visible Visibility = iota
	// Hidden sheets can be unhidden from the Excel UI.
	Hidden
	// VeryHidden sheets can only be unhidden programmatically.
	VeryHidden
)

func (v Visibility) String() string {
	switch v {
	case Hidden:
		return "hidden"
	case VeryHidden:
		return "veryHidden"
	default:
		return "visible"
	}
}

// Workbook is an open .xlsx file.
type Workbook struct {
	Path string
	file *excelize.File

	// non-anchor cells of merged regions, per sheet
	covered map[string]map[string]bool
}

// Open reads an .xlsx file from disk.
func Open(path string) (*Workbook, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("file not found: %s — check that the path is correct", path)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not open %s — is this a valid .xlsx file? %w", path, err)
	}
	return &Workbook{Path: path, file: f}, nil
}

// OpenReader reads an .xlsx file from r. The returned workbook has no path;
// use SaveAs to write it.
func OpenReader(r io.Reader) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("could not read Excel data: %w", err)
	}
	return &Workbook{file: f}, nil
}

// NewWorkbook returns an empty in-memory workbook with one sheet.
func NewWorkbook() *Workbook {
	return &Workbook{file: excelize.NewFile()}
}

// Close releases temporary files held by the underlying reader.
func (wb *Workbook) Close() error {
	return wb.file.Close()
}

// Save writes the workbook back to the path it was opened from.
func (wb *Workbook) Save() error {
	if wb.Path == "" {
		return fmt.Errorf("workbook has no path — use SaveAs")
	}
	return wb.SaveAs(wb.Path)
}

// SaveAs writes the workbook to path.
func (wb *Workbook) SaveAs(path string) error {
	if err := wb.file.SaveAs(path); err != nil {
		return fmt.Errorf("could not save %s: %w", path, err)
	}
	return nil
}

// SheetNames returns the sheet names in workbook order.
func (wb *Workbook) SheetNames() []string {
	return wb.file.GetSheetList()
}

// HasSheet reports whether a sheet with exactly this name exists.
func (wb *Workbook) HasSheet(name string) bool {
	for _, s := range wb.SheetNames() {
		if s == name {
			return true
		}
	}
	return false
}

// Visibility returns the state of a sheet. GetSheetVisible collapses hidden
// and veryHidden, so the state attribute is read from the workbook part.
func (wb *Workbook) Visibility(sheet string) (Visibility, error) {
	visible, err := wb.file.GetSheetVisible(sheet)
	if err != nil {
		return Visible, err
	}
	if visible {
		return Visible, nil
	}
	if wb.file.WorkBook != nil {
		for _, s := range wb.file.WorkBook.Sheets.Sheet {
			if strings.EqualFold(s.Name, sheet) && s.State == "veryHidden" {
				return VeryHidden, nil
			}
		}
	}
	return Hidden, nil
}

// Cell returns the typed value stored at c. Formula cells report KindFormula
// with the formula text, prefixed with '='.
func (wb *Workbook) Cell(sheet string, c cellref.Coordinate) (Value, error) {
	ref := c.String()
	covered, err := wb.isCovered(sheet, ref)
	if err != nil {
		return Value{}, err
	}
	if covered {
		// excelize reports the anchor's content for every merged cell
		return Value{Kind: KindEmpty}, nil
	}
	formula, err := wb.file.GetCellFormula(sheet, ref)
	if err != nil {
		return Value{}, fmt.Errorf("could not read %s!%s: %w", sheet, ref, err)
	}
	if formula != "" {
		return Value{Kind: KindFormula, Text: "=" + formula}, nil
	}

	typ, err := wb.file.GetCellType(sheet, ref)
	if err != nil {
		return Value{}, fmt.Errorf("could not read %s!%s: %w", sheet, ref, err)
	}
	raw, err := wb.file.GetCellValue(sheet, ref, excelize.Options{RawCellValue: true})
	if err != nil {
		return Value{}, fmt.Errorf("could not read %s!%s: %w", sheet, ref, err)
	}
	if raw == "" {
		return Value{Kind: KindEmpty}, nil
	}

	switch typ {
	case excelize.CellTypeBool:
		if raw == "1" {
			return Value{Kind: KindBool, Text: "TRUE"}, nil
		}
		return Value{Kind: KindBool, Text: "FALSE"}, nil
	case excelize.CellTypeUnset, excelize.CellTypeNumber, excelize.CellTypeDate:
		return Value{Kind: KindNumber, Text: raw}, nil
	default:
		return Value{Kind: KindString, Text: raw}, nil
	}
}

// FormulaCell is a cell holding a formula. Formula has no leading '='.
type FormulaCell struct {
	Coord   cellref.Coordinate
	Formula string
}

// FormulaCells lists every formula cell of a sheet in row-major order. Cells
// whose formula cannot be read are returned in the second slice. Non-anchor
// cells of a merged region are not listed.
func (wb *Workbook) FormulaCells(sheet string) ([]FormulaCell, []error, error) {
	maxCol, maxRow, err := wb.extent(sheet)
	if err != nil {
		return nil, nil, err
	}
	covered, err := wb.coveredCells(sheet)
	if err != nil {
		return nil, nil, err
	}

	var cells []FormulaCell
	var failures []error
	for row := 1; row <= maxRow; row++ {
		for col := 1; col <= maxCol; col++ {
			ref, err := excelize.CoordinatesToCellName(col, row)
			if err != nil {
				return nil, nil, fmt.Errorf("invalid cell coordinates: %w", err)
			}
			if covered[ref] {
				continue
			}
			formula, err := wb.file.GetCellFormula(sheet, ref)
			if err != nil {
				failures = append(failures, fmt.Errorf("%s!%s: %w", sheet, ref, err))
				continue
			}
			if formula == "" {
				continue
			}
			coord, err := cellref.ParseCoordinate(ref)
			if err != nil {
				return nil, nil, err
			}
			cells = append(cells, FormulaCell{Coord: coord, Formula: formula})
		}
	}
	return cells, failures, nil
}

// Formula returns the formula text at c, without a leading '='. Non-anchor
// cells of a merged region have none.
func (wb *Workbook) Formula(sheet string, c cellref.Coordinate) (string, error) {
	ref := c.String()
	covered, err := wb.isCovered(sheet, ref)
	if err != nil || covered {
		return "", err
	}
	return wb.file.GetCellFormula(sheet, ref)
}

// SetFormula replaces the formula at c with a plain formula. The cell is
// detached from any shared-formula group first. Non-anchor cells of a merged
// region are rejected, since excelize would write through to the anchor.
func (wb *Workbook) SetFormula(sheet string, c cellref.Coordinate, formula string) error {
	ref := c.String()
	covered, err := wb.isCovered(sheet, ref)
	if err != nil {
		return err
	}
	if covered {
		return fmt.Errorf("cannot set formula at %s!%s — the cell is inside a merged region, only its top-left cell holds content", sheet, ref)
	}
	formula = strings.TrimPrefix(formula, "=")
	if err := wb.file.SetCellFormula(sheet, ref, ""); err != nil {
		return fmt.Errorf("could not clear formula at %s!%s: %w", sheet, ref, err)
	}
	if err := wb.file.SetCellFormula(sheet, ref, formula); err != nil {
		return fmt.Errorf("could not set formula at %s!%s: %w", sheet, ref, err)
	}
	return nil
}

// extent returns the last used column and row, combining the stored
// dimension with the rows actually present.
func (wb *Workbook) extent(sheet string) (int, int, error) {
	rows, err := wb.file.GetRows(sheet)
	if err != nil {
		return 0, 0, fmt.Errorf("could not read sheet %q: %w", sheet, err)
	}
	maxRow := len(rows)
	maxCol := 0
	for _, row := range rows {
		if len(row) > maxCol {
			maxCol = len(row)
		}
	}

	dim, err := wb.file.GetSheetDimension(sheet)
	if err != nil || dim == "" {
		return maxCol, maxRow, nil
	}
	last := dim
	if i := strings.LastIndex(dim, ":"); i >= 0 {
		last = dim[i+1:]
	}
	col, row, err := excelize.CellNameToCoordinates(strings.ReplaceAll(last, "$", ""))
	if err != nil {
		return maxCol, maxRow, nil
	}
	return max(maxCol, col), max(maxRow, row), nil
}

// MergedRegion is a rectangle of merged cells; Start is its anchor.
type MergedRegion struct {
	Start cellref.Coordinate
	End   cellref.Coordinate
}

// NonAnchorCells returns every cell of the region except the anchor.
func (m MergedRegion) NonAnchorCells() []cellref.Coordinate {
	startCol, _ := excelize.ColumnNameToNumber(m.Start.Column)
	endCol, _ := excelize.ColumnNameToNumber(m.End.Column)
	var cells []cellref.Coordinate
	for row := m.Start.Row; row <= m.End.Row; row++ {
		for col := startCol; col <= endCol; col++ {
			if row == m.Start.Row && col == startCol {
				continue
			}
			name, err := excelize.ColumnNumberToName(col)
			if err != nil {
				continue
			}
			cells = append(cells, cellref.Coordinate{Column: name, Row: row})
		}
	}
	return cells
}

// MergedRegions lists the merged ranges of a sheet.
func (wb *Workbook) MergedRegions(sheet string) ([]MergedRegion, error) {
	merges, err := wb.file.GetMergeCells(sheet, true)
	if err != nil {
		return nil, fmt.Errorf("could not read merged cells of %q: %w", sheet, err)
	}
	regions := make([]MergedRegion, 0, len(merges))
	for _, m := range merges {
		start, err := cellref.ParseCoordinate(m.GetStartAxis())
		if err != nil {
			return nil, err
		}
		end, err := cellref.ParseCoordinate(m.GetEndAxis())
		if err != nil {
			return nil, err
		}
		regions = append(regions, MergedRegion{Start: start, End: end})
	}
	return regions, nil
}

func (wb *Workbook) coveredCells(sheet string) (map[string]bool, error) {
	if cells, ok := wb.covered[sheet]; ok {
		return cells, nil
	}
	regions, err := wb.MergedRegions(sheet)
	if err != nil {
		return nil, err
	}
	cells := map[string]bool{}
	for _, r := range regions {
		for _, c := range r.NonAnchorCells() {
			cells[c.String()] = true
		}
	}
	if wb.covered == nil {
		wb.covered = map[string]map[string]bool{}
	}
	wb.covered[sheet] = cells
	return cells, nil
}

func (wb *Workbook) isCovered(sheet, ref string) (bool, error) {
	cells, err := wb.coveredCells(sheet)
	if err != nil {
		return false, err
	}
	return cells[ref], nil
}

// ImageAnchors returns the top-left cell of every picture on a sheet.
func (wb *Workbook) ImageAnchors(sheet string) ([]cellref.Coordinate, error) {
	refs, err := wb.file.GetPictureCells(sheet)
	if err != nil {
		return nil, fmt.Errorf("could not read pictures of %q: %w", sheet, err)
	}
	anchors := make([]cellref.Coordinate, 0, len(refs))
	for _, ref := range refs {
		c, err := cellref.ParseCoordinate(ref)
		if err != nil {
			return nil, err
		}
		anchors = append(anchors, c)
	}
	return anchors, nil
}

// DefinedName is one entry of the workbook's defined-name table. Scope is
// empty for workbook-level names, otherwise the owning sheet.
type DefinedName struct {
	Name     string `json:"name"`
	RefersTo string `json:"refersTo"`
	Scope    string `json:"scope,omitempty"`
}

// DefinedNames returns all defined names in table order.
func (wb *Workbook) DefinedNames() []DefinedName {
	var names []DefinedName
	for _, dn := range wb.file.GetDefinedName() {
		scope := dn.Scope
		if scope == "Workbook" {
			scope = ""
		}
		names = append(names, DefinedName{Name: dn.Name, RefersTo: dn.RefersTo, Scope: scope})
	}
	return names
}

// SetDefinedName adds a workbook-level defined name.
func (wb *Workbook) SetDefinedName(name, refersTo string) error {
	return wb.file.SetDefinedName(&excelize.DefinedName{Name: name, RefersTo: refersTo})
}

// DeleteDefinedName removes a workbook-level defined name.
func (wb *Workbook) DeleteDefinedName(name string) error {
	if err := wb.file.DeleteDefinedName(&excelize.DefinedName{Name: name}); err != nil {
		if errors.Is(err, excelize.ErrDefinedNameScope) {
			return fmt.Errorf("%w: %q", ErrNameNotFound, name)
		}
		return err
	}
	return nil
}
