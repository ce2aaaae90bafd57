// Package cellref parses cell coordinates, scan ranges, defined-name targets and
// the cell references embedded in formula text.
package cellref

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrInvalidCoordinate indicates text that is not a single cell coordinate.
	ErrInvalidCoordinate = errors.New("invalid cell coordinate")
	// ErrInvalidRange indicates a range that is not of the form <cell>:<cell>.
	ErrInvalidRange = errors.New("invalid cell range")
	// ErrInvalidColumn indicates a column outside the accepted letter set.
	ErrInvalidColumn = errors.New("invalid column")
)

const (
	maxColumnLetters = 3
	maxRowDigits     = 7
)

// Coordinate is a single cell address. Column is uppercase, Row is 1-based.
type Coordinate struct {
	Column string `json:"column"`
	Row    int    `json:"row"`
}

// ParseCoordinate parses "L404", "$L$404" or "l404". Anchors are dropped.
func ParseCoordinate(s string) (Coordinate, error) {
	raw := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "$", ""))
	i := 0
	for i < len(raw) && raw[i] >= 'A' && raw[i] <= 'Z' {
		i++
	}
	col, digits := raw[:i], raw[i:]
	if col == "" || len(col) > maxColumnLetters || digits == "" || len(digits) > maxRowDigits {
		return Coordinate{}, fmt.Errorf("%w: %q", ErrInvalidCoordinate, s)
	}
	row, err := strconv.Atoi(digits)
	if err != nil || row < 1 {
		return Coordinate{}, fmt.Errorf("%w: %q", ErrInvalidCoordinate, s)
	}
	return Coordinate{Column: col, Row: row}, nil
}

// MustParse is ParseCoordinate for literals known to be valid.
func MustParse(s string) Coordinate {
	c, err := ParseCoordinate(s)
	if err != nil {
		panic(err)
	}
	return c
}

// String renders the coordinate without anchors, e.g. "L404".
func (c Coordinate) String() string {
	return c.Column + strconv.Itoa(c.Row)
}

// Absolute renders the coordinate with both anchors, e.g. "$L$404".
func (c Coordinate) Absolute() string {
	return "$" + c.Column + "$" + strconv.Itoa(c.Row)
}

// IsZero reports whether c is the zero Coordinate.
func (c Coordinate) IsZero() bool {
	return c.Column == "" && c.Row == 0
}

// ParseRange splits "L200:L408" into its two endpoints.
func ParseRange(s string) (Coordinate, Coordinate, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return Coordinate{}, Coordinate{}, fmt.Errorf("%w %q — use a format like 'L200:L408'", ErrInvalidRange, s)
	}
	start, err := ParseCoordinate(parts[0])
	if err != nil {
		return Coordinate{}, Coordinate{}, fmt.Errorf("%w %q — use a format like 'L200:L408'", ErrInvalidRange, s)
	}
	end, err := ParseCoordinate(parts[1])
	if err != nil {
		return Coordinate{}, Coordinate{}, fmt.Errorf("%w %q — use a format like 'L200:L408'", ErrInvalidRange, s)
	}
	return start, end, nil
}

// ValidateColumn accepts 1-3 letters and returns the uppercase form.
func ValidateColumn(s string) (string, error) {
	col := strings.ToUpper(strings.TrimSpace(s))
	if col == "" || len(col) > maxColumnLetters || !isLetters(col) {
		return "", fmt.Errorf("%w %q — expected 1 to 3 letters", ErrInvalidColumn, s)
	}
	return col, nil
}

// ValidateSourceColumn accepts exactly one letter A-Z.
func ValidateSourceColumn(s string) (string, error) {
	col := strings.ToUpper(strings.TrimSpace(s))
	if len(col) != 1 || !isLetters(col) {
		return "", fmt.Errorf("%w %q — please enter valid column letters (A-Z)", ErrInvalidColumn, s)
	}
	return col, nil
}

// ParseColumnList parses "J,K" into validated source columns. All invalid
// entries are reported in one error.
func ParseColumnList(s string) ([]string, error) {
	var cols, invalid []string
	for _, part := range strings.Split(s, ",") {
		col, err := ValidateSourceColumn(part)
		if err != nil {
			invalid = append(invalid, strings.TrimSpace(part))
			continue
		}
		cols = append(cols, col)
	}
	if len(invalid) > 0 {
		return nil, fmt.Errorf("%w letters detected: %s — please enter valid column letters (A-Z)",
			ErrInvalidColumn, strings.Join(invalid, ", "))
	}
	return cols, nil
}

func isLetters(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return true
}
