// Package names owns the workbook's alias table: it reads and writes defined
// names, derives the cell-to-name index used when rewriting formulas, and
// builds new names from a scan of worksheet cells.
package names

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/klytics/namekit/internal/cellref"
	"github.com/klytics/namekit/internal/formats/xlsx"
)

// Alias is one defined name. Sheet and Coord are set only when RefersTo is a
// single cell on a single sheet. Scope is empty for workbook-level names.
type Alias struct {
	Name     string             `json:"name"`
	Sheet    string             `json:"sheet,omitempty"`
	Coord    cellref.Coordinate `json:"coord"`
	RefersTo string             `json:"refersTo"`
	Scope    string             `json:"scope,omitempty"`
}

// SingleCell reports whether the alias resolves to one cell.
func (a Alias) SingleCell() bool {
	return !a.Coord.IsZero()
}

// Session is an open workbook together with the operations that read and
// change its alias table. The builder and the rewriter both go through it.
type Session struct {
	wb *xlsx.Workbook
}

// NewSession wraps an open workbook.
func NewSession(wb *xlsx.Workbook) *Session {
	return &Session{wb: wb}
}

// Open loads the workbook at path into a new session.
func Open(path string) (*Session, error) {
	wb, err := xlsx.Open(path)
	if err != nil {
		return nil, err
	}
	return &Session{wb: wb}, nil
}

// Workbook returns the underlying workbook.
func (s *Session) Workbook() *xlsx.Workbook {
	return s.wb
}

// Close releases the workbook.
func (s *Session) Close() error {
	return s.wb.Close()
}

// Sheet resolves a sheet name. Names must match exactly.
func (s *Session) Sheet(name string) (string, error) {
	if s.wb.HasSheet(name) {
		return name, nil
	}
	return "", fmt.Errorf("%w: %q — available sheets: %s", ErrSheetNotFound, name,
		strings.Join(s.wb.SheetNames(), ", "))
}

// Aliases returns every defined name in table order.
func (s *Session) Aliases() []Alias {
	var aliases []Alias
	for _, dn := range s.wb.DefinedNames() {
		a := Alias{Name: dn.Name, RefersTo: dn.RefersTo, Scope: dn.Scope}
		if sheet, coord, err := cellref.ParseRefersTo(dn.RefersTo); err == nil {
			a.Sheet, a.Coord = sheet, coord
		}
		aliases = append(aliases, a)
	}
	return aliases
}

// Lookup finds a workbook-level alias by exact name.
func (s *Session) Lookup(name string) (Alias, bool) {
	for _, a := range s.Aliases() {
		if a.Scope == "" && a.Name == name {
			return a, true
		}
	}
	return Alias{}, false
}

// Put binds name to the absolute reference of coord on sheet. An existing
// workbook-level name is removed first, so the last write wins. If the new
// name is rejected the previous binding is put back. The returned flag reports
// whether a previous binding was replaced.
func (s *Session) Put(name, sheet string, coord cellref.Coordinate) (bool, error) {
	refersTo := cellref.AbsoluteRef(sheet, coord)
	prev, exists := s.Lookup(name)
	if exists {
		if err := s.wb.DeleteDefinedName(name); err != nil {
			return false, fmt.Errorf("could not remove existing name %q: %w", name, err)
		}
	}
	if err := s.wb.SetDefinedName(name, refersTo); err != nil {
		err = fmt.Errorf("could not create name %q: %w", name, err)
		if exists {
			if rerr := s.wb.SetDefinedName(name, prev.RefersTo); rerr != nil {
				err = errors.Join(err, fmt.Errorf("could not restore %q -> %s, the name is gone: %w", name, prev.RefersTo, rerr))
			}
		}
		return false, err
	}
	return exists, nil
}

// Remove deletes a workbook-level alias.
func (s *Session) Remove(name string) error {
	return s.wb.DeleteDefinedName(name)
}

// Index builds a fresh AliasIndex from the complete alias table.
func (s *Session) Index() (AliasIndex, []string) {
	return BuildIndex(s.Aliases())
}

// AliasIndex maps sheet name to normalized coordinate ("L200") to alias name.
// It is derived from the alias table and never written back.
type AliasIndex map[string]map[string]string

// BuildIndex indexes the single-cell, workbook-level aliases. Every alias
// that cannot be used produces a warning.
func BuildIndex(aliases []Alias) (AliasIndex, []string) {
	index := AliasIndex{}
	var warnings []string
	for _, a := range aliases {
		if a.Scope != "" {
			warnings = append(warnings, fmt.Sprintf("name %q is local to sheet %q and is ignored", a.Name, a.Scope))
			continue
		}
		sheet, coord, err := cellref.ParseRefersTo(a.RefersTo)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("name %q is ignored: %v", a.Name, err))
			continue
		}
		cells, ok := index[sheet]
		if !ok {
			cells = map[string]string{}
			index[sheet] = cells
		}
		key := coord.String()
		if prev, dup := cells[key]; dup {
			warnings = append(warnings, fmt.Sprintf("names %q and %q both refer to '%s'!%s; using %q",
				prev, a.Name, sheet, key, a.Name))
		}
		cells[key] = a.Name
	}
	return index, warnings
}

// Lookup returns the alias bound to coord on sheet.
func (idx AliasIndex) Lookup(sheet string, coord cellref.Coordinate) (string, bool) {
	name, ok := idx[strings.TrimSpace(sheet)][coord.String()]
	return name, ok
}

// Len returns the number of indexed cells.
func (idx AliasIndex) Len() int {
	n := 0
	for _, cells := range idx {
		n += len(cells)
	}
	return n
}

// Sheets returns the indexed sheet names, sorted.
func (idx AliasIndex) Sheets() []string {
	sheets := make([]string, 0, len(idx))
	for sheet := range idx {
		sheets = append(sheets, sheet)
	}
	sort.Strings(sheets)
	return sheets
}
