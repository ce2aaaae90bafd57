package cellref

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotSingleCell indicates a defined-name target that is not one cell on one sheet.
var ErrNotSingleCell = errors.New("not a single-cell reference")

// QuoteSheet quotes a sheet title for use in a reference, doubling any
// embedded single quotes.
func QuoteSheet(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

// AbsoluteRef renders the fully-qualified absolute reference of a cell,
// e.g. 'Tax Calculation'!$L$200.
func AbsoluteRef(sheet string, c Coordinate) string {
	return QuoteSheet(sheet) + "!" + c.Absolute()
}

// ParseRefersTo parses the target of a defined name. Only a single cell on a
// single sheet is accepted; everything else returns an error wrapping
// ErrNotSingleCell that says what the target looked like.
func ParseRefersTo(refersTo string) (string, Coordinate, error) {
	text := strings.TrimPrefix(strings.TrimSpace(refersTo), "=")
	tokens := Tokenize(text)

	switch {
	case len(tokens) == 1 && tokens[0].Start == 0 && tokens[0].End == len(text) && tokens[0].Qualified():
		return tokens[0].Sheet, tokens[0].Coord, nil
	case len(tokens) == 0:
		return "", Coordinate{}, fmt.Errorf("%w: %q is not a cell reference", ErrNotSingleCell, refersTo)
	case len(tokens) == 2 && strings.Contains(text, ":"):
		return "", Coordinate{}, fmt.Errorf("%w: %q refers to a range", ErrNotSingleCell, refersTo)
	case len(tokens) > 1:
		return "", Coordinate{}, fmt.Errorf("%w: %q refers to multiple areas", ErrNotSingleCell, refersTo)
	case !tokens[0].Qualified():
		return "", Coordinate{}, fmt.Errorf("%w: %q has no sheet name", ErrNotSingleCell, refersTo)
	default:
		return "", Coordinate{}, fmt.Errorf("%w: %q is an expression", ErrNotSingleCell, refersTo)
	}
}
