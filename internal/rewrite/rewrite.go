// Package rewrite replaces cell references in formulas with the defined
// names bound to those cells.
package rewrite

import (
	"fmt"
	"strings"

	"github.com/klytics/namekit/internal/cellref"
	"github.com/klytics/namekit/internal/formats/xlsx"
	"github.com/klytics/namekit/internal/names"
	"github.com/klytics/namekit/internal/progress"
)

// Scope selects the sheets to rewrite. An empty Sheet means every sheet.
type Scope struct {
	Sheet string `json:"sheet,omitempty"`
}

// AllSheets is the scope covering the whole workbook.
var AllSheets = Scope{}

func (s Scope) String() string {
	if s.Sheet == "" {
		return "all sheets"
	}
	return fmt.Sprintf("sheet %q", s.Sheet)
}

// Options control a rewrite run.
type Options struct {
	// DryRun computes the changes without writing them.
	DryRun bool
	// Progress shows a bar per sheet on stderr.
	Progress bool
}

// Change is one rewritten cell. Formulas carry their leading '='.
type Change struct {
	Sheet  string `json:"sheet"`
	Cell   string `json:"cell"`
	Before string `json:"before"`
	After  string `json:"after"`
}

// SkippedSheet is a sheet left alone because it is not visible.
type SkippedSheet struct {
	Sheet      string `json:"sheet"`
	Visibility string `json:"visibility"`
}

// Result summarizes a rewrite run.
type Result struct {
	Scope         Scope          `json:"scope"`
	Modified      int            `json:"modified"`
	Scanned       int            `json:"scanned"`
	Changes       []Change       `json:"changes"`
	SkippedSheets []SkippedSheet `json:"skippedSheets,omitempty"`
	Warnings      []string       `json:"warnings,omitempty"`
	DryRun        bool           `json:"dryRun,omitempty"`
}

// Substitute replaces every reference in formula that has an alias with the
// bare alias name. Unqualified references resolve against sheet. Tokens are
// replaced in one left-to-right pass; replaced text is never scanned again.
func Substitute(formula, sheet string, index names.AliasIndex) string {
	tokens := cellref.Tokenize(formula)
	if len(tokens) == 0 {
		return formula
	}

	var b strings.Builder
	last := 0
	for _, tok := range tokens {
		name, ok := index.Lookup(effectiveSheet(tok, sheet), tok.Coord)
		if !ok {
			continue
		}
		b.WriteString(formula[last:tok.Start])
		b.WriteString(name)
		last = tok.End
	}
	if last == 0 {
		return formula
	}
	b.WriteString(formula[last:])
	return b.String()
}

// SplitRanges lists the ranges in formula where exactly one endpoint has an
// alias. Substitute turns such a range into a name joined to a raw
// reference, which callers should report.
func SplitRanges(formula, sheet string, index names.AliasIndex) []string {
	tokens := cellref.Tokenize(formula)
	var splits []string
	for i := 0; i+1 < len(tokens); i++ {
		left, right := tokens[i], tokens[i+1]
		if left.End+1 != right.Start || formula[left.End] != ':' {
			continue
		}
		_, l := index.Lookup(effectiveSheet(left, sheet), left.Coord)
		_, r := index.Lookup(effectiveSheet(right, sheet), right.Coord)
		if l != r {
			splits = append(splits, formula[left.Start:right.End])
		}
	}
	return splits
}

func effectiveSheet(tok cellref.Token, current string) string {
	if tok.Qualified() {
		return tok.Sheet
	}
	return strings.TrimSpace(current)
}

// Rewrite substitutes aliases into the formula cells of the sheets in scope.
// Hidden and very hidden sheets are reported and skipped. Non-anchor cells of
// merged regions and cells holding an image anchor are never touched. The
// alias index is built once from the session's full alias table.
func Rewrite(s *names.Session, scope Scope, opts Options) (*Result, error) {
	sheets := s.Workbook().SheetNames()
	if scope.Sheet != "" {
		sheet, err := s.Sheet(scope.Sheet)
		if err != nil {
			return nil, &names.ConfigError{Field: "sheet", Err: err}
		}
		sheets = []string{sheet}
	}

	index, warnings := s.Index()
	res := &Result{Scope: scope, Changes: []Change{}, Warnings: warnings, DryRun: opts.DryRun}

	for _, sheet := range sheets {
		vis, err := s.Workbook().Visibility(sheet)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("could not read visibility of %q: %v", sheet, err))
			continue
		}
		if vis != xlsx.Visible {
			res.SkippedSheets = append(res.SkippedSheets, SkippedSheet{Sheet: sheet, Visibility: vis.String()})
			continue
		}
		if err := rewriteSheet(s.Workbook(), sheet, index, opts, res); err != nil {
			return res, err
		}
	}
	res.Modified = len(res.Changes)
	return res, nil
}

func rewriteSheet(wb *xlsx.Workbook, sheet string, index names.AliasIndex, opts Options, res *Result) error {
	excluded, err := exclusions(wb, sheet)
	if err != nil {
		return err
	}
	cells, failures, err := wb.FormulaCells(sheet)
	if err != nil {
		return err
	}
	for _, f := range failures {
		res.Warnings = append(res.Warnings, fmt.Sprintf("skipped unreadable formula %v", f))
	}

	var bar *progress.Bar
	if opts.Progress {
		bar = progress.New(fmt.Sprintf("Rewriting %s", sheet), len(cells))
	}

	changed := map[string]bool{}
	for _, cell := range cells {
		if bar != nil {
			bar.Increment(cell.Coord.String())
		}
		if excluded[cell.Coord.String()] {
			continue
		}
		res.Scanned++
		after := Substitute(cell.Formula, sheet, index)
		if after == cell.Formula {
			continue
		}
		for _, split := range SplitRanges(cell.Formula, sheet, index) {
			res.Warnings = append(res.Warnings, fmt.Sprintf(
				"range %s in %s!%s has a name for only one endpoint", split, sheet, cell.Coord))
		}
		if !opts.DryRun {
			if err := wb.SetFormula(sheet, cell.Coord, after); err != nil {
				res.Warnings = append(res.Warnings, err.Error())
				continue
			}
			if stored, err := wb.Formula(sheet, cell.Coord); err != nil || stored != after {
				res.Warnings = append(res.Warnings, fmt.Sprintf(
					"%s!%s did not keep the rewritten formula (stored %q)", sheet, cell.Coord, stored))
				continue
			}
		}
		changed[cell.Coord.String()] = true
		res.Changes = append(res.Changes, Change{
			Sheet:  sheet,
			Cell:   cell.Coord.String(),
			Before: "=" + cell.Formula,
			After:  "=" + after,
		})
	}
	if bar != nil {
		bar.Finish(fmt.Sprintf("%s: %d formulas scanned", sheet, len(cells)))
	}

	if !opts.DryRun && len(changed) > 0 {
		restoreShared(wb, sheet, cells, changed, excluded, res)
	}
	return nil
}

// restoreShared puts back formulas that vanished when a shared-formula master
// was rewritten. Only unchanged cells outside the exclusion set whose text no
// longer matches are written back.
func restoreShared(wb *xlsx.Workbook, sheet string, cells []xlsx.FormulaCell, changed, excluded map[string]bool, res *Result) {
	for _, cell := range cells {
		ref := cell.Coord.String()
		if changed[ref] || excluded[ref] {
			continue
		}
		current, err := wb.Formula(sheet, cell.Coord)
		if err == nil && current == cell.Formula {
			continue
		}
		if err := wb.SetFormula(sheet, cell.Coord, cell.Formula); err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("could not restore %s!%s: %v", sheet, cell.Coord, err))
		}
	}
}

// exclusions returns the cells that are never rewritten: every non-anchor
// cell of a merged region and every image anchor cell.
func exclusions(wb *xlsx.Workbook, sheet string) (map[string]bool, error) {
	excluded := map[string]bool{}
	regions, err := wb.MergedRegions(sheet)
	if err != nil {
		return nil, err
	}
	for _, r := range regions {
		for _, c := range r.NonAnchorCells() {
			excluded[c.String()] = true
		}
	}
	anchors, err := wb.ImageAnchors(sheet)
	if err != nil {
		return nil, err
	}
	for _, c := range anchors {
		excluded[c.String()] = true
	}
	return excluded, nil
}
