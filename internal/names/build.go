package names

import (
	"errors"
	"fmt"
	"strings"

	"github.com/klytics/namekit/internal/cellref"
)

// ScanConfig is one scan window: the target column and row span taken from a
// range like "L200:L408", the source columns searched in priority order, the
// name prefix and the qualification rule.
type ScanConfig struct {
	Sheet         string   `json:"sheet"`
	Range         string   `json:"range"`
	TargetColumn  string   `json:"targetColumn"`
	EndColumn     string   `json:"-"`
	RowStart      int      `json:"rowStart"`
	RowEnd        int      `json:"rowEnd"`
	SourceColumns []string `json:"sourceColumns"`
	Prefix        string   `json:"prefix,omitempty"`
	Rule          Rule     `json:"rule"`
}

// NewScanConfig validates raw input into a ScanConfig. Every problem is
// returned as a *ConfigError.
func NewScanConfig(sheet, rng string, columns []string, prefix string, rule Rule) (ScanConfig, error) {
	start, end, err := cellref.ParseRange(rng)
	if err != nil {
		return ScanConfig{}, configError("range", err)
	}
	if start.Row > end.Row {
		return ScanConfig{}, configError("range",
			fmt.Errorf("%w %q — the first row must not be after the last row", cellref.ErrInvalidRange, rng))
	}

	if len(columns) == 0 {
		return ScanConfig{}, configError("columns",
			fmt.Errorf("%w: no source columns given — enter letters like 'J,K'", cellref.ErrInvalidColumn))
	}
	cols, err := cellref.ParseColumnList(strings.Join(columns, ","))
	if err != nil {
		return ScanConfig{}, configError("columns", err)
	}

	if _, ok := ruleNames[rule]; !ok {
		return ScanConfig{}, configError("rule", fmt.Errorf("%w: %s", ErrInvalidRule, rule))
	}

	return ScanConfig{
		Sheet:         sheet,
		Range:         strings.TrimSpace(rng),
		TargetColumn:  start.Column,
		EndColumn:     end.Column,
		RowStart:      start.Row,
		RowEnd:        end.Row,
		SourceColumns: cols,
		Prefix:        prefix,
		Rule:          rule,
	}, nil
}

// RowError is an alias that could not be registered.
type RowError struct {
	Row    int    `json:"row"`
	Name   string `json:"name"`
	Detail string `json:"error"`
	Err    error  `json:"-"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

// BuildResult summarizes one Build run.
type BuildResult struct {
	Config      ScanConfig `json:"config"`
	Created     []Alias    `json:"created"`
	Replaced    []string   `json:"replaced,omitempty"`
	Failures    []RowError `json:"failures,omitempty"`
	Warnings    []string   `json:"warnings,omitempty"`
	SkippedRows int        `json:"skippedRows"`
}

// Build scans cfg's window and registers one alias per qualifying row. For
// each row the source columns are read in order and the first value that the
// rule accepts wins. Rows without a qualifying value, or whose target cell is
// empty, are skipped. Registration failures are collected and the scan goes
// on with the next row.
func Build(s *Session, cfg ScanConfig) (*BuildResult, error) {
	if _, ok := ruleNames[cfg.Rule]; !ok {
		return nil, configError("rule", fmt.Errorf("%w: %s", ErrInvalidRule, cfg.Rule))
	}
	sheet, err := s.Sheet(cfg.Sheet)
	if err != nil {
		return nil, configError("sheet", err)
	}

	res := &BuildResult{Config: cfg}
	if cfg.EndColumn != "" && cfg.EndColumn != cfg.TargetColumn {
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"range %s ends in column %s; names point at column %s", cfg.Range, cfg.EndColumn, cfg.TargetColumn))
	}

	for row := cfg.RowStart; row <= cfg.RowEnd; row++ {
		value, ok, err := firstQualifying(s, sheet, cfg, row)
		if err != nil {
			res.Warnings = append(res.Warnings, err.Error())
		}
		if !ok {
			res.SkippedRows++
			continue
		}

		target := cellref.Coordinate{Column: cfg.TargetColumn, Row: row}
		cell, err := s.wb.Cell(sheet, target)
		if err != nil {
			res.Warnings = append(res.Warnings, err.Error())
			res.SkippedRows++
			continue
		}
		if cell.IsEmpty() {
			res.SkippedRows++
			continue
		}

		name := cfg.Prefix + value
		replaced, err := s.Put(name, sheet, target)
		if err != nil {
			res.Failures = append(res.Failures, RowError{Row: row, Name: name, Detail: err.Error(), Err: err})
			continue
		}
		if replaced {
			res.Replaced = append(res.Replaced, name)
		}
		res.Created = append(res.Created, Alias{
			Name:     name,
			Sheet:    sheet,
			Coord:    target,
			RefersTo: cellref.AbsoluteRef(sheet, target),
		})
	}
	return res, nil
}

// firstQualifying returns the rendered value of the first source cell in the
// row that the rule accepts. Unreadable cells are skipped and reported.
func firstQualifying(s *Session, sheet string, cfg ScanConfig, row int) (string, bool, error) {
	var errs []error
	for _, col := range cfg.SourceColumns {
		v, err := s.wb.Cell(sheet, cellref.Coordinate{Column: col, Row: row})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if v.IsEmpty() {
			continue
		}
		if text, ok := cfg.Rule.Qualify(v); ok {
			return text, true, errors.Join(errs...)
		}
	}
	return "", false, errors.Join(errs...)
}
