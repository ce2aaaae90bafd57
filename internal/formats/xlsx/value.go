package xlsx

import (
	"strconv"
	"strings"
)

// ValueKind classifies a stored cell value.
type ValueKind int

const (
	KindEmpty ValueKind = iota
	KindString
	KindNumber
	KindBool
	KindFormula
)

func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindFormula:
		return "formula"
	default:
		return "empty"
	}
}

// Value is a typed cell value. Text holds the stored representation: the raw
// number text for numbers, TRUE/FALSE for booleans, "=..." for formulas.
type Value struct {
	Kind ValueKind
	Text string
}

// IsEmpty reports whether the cell holds nothing.
func (v Value) IsEmpty() bool {
	return v.Kind == KindEmpty
}

// Int returns the value of a number cell stored as a whole number. Numbers
// stored with a fraction or exponent are not integers.
func (v Value) Int() (int64, bool) {
	if v.Kind != KindNumber {
		return 0, false
	}
	n, err := strconv.ParseInt(v.Text, 10, 64)
	return n, err == nil
}

// Float returns the numeric value of a number cell.
func (v Value) Float() (float64, bool) {
	if v.Kind != KindNumber {
		return 0, false
	}
	f, err := strconv.ParseFloat(v.Text, 64)
	return f, err == nil
}

// String returns the trimmed display form used when a value seeds a name.
func (v Value) String() string {
	if v.Kind == KindNumber {
		if f, ok := v.Float(); ok {
			if _, isInt := v.Int(); !isInt {
				return strconv.FormatFloat(f, 'f', -1, 64)
			}
		}
	}
	return strings.TrimSpace(v.Text)
}
