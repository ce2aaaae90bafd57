package names

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/klytics/namekit/internal/formats/xlsx"
)

// Rule decides whether a source cell value may seed an alias name, and how
// the value is rendered into the name.
type Rule int

const (
	// RuleUnset is the zero value; a scan must name its rule explicitly.
	RuleUnset Rule = iota
	// RuleTaxCode accepts a string of exactly four digits or a whole number
	// between 1000 and 9999. Nothing is coerced.
	RuleTaxCode
	// RuleAnyValue accepts any value whose trimmed text is non-empty.
	RuleAnyValue
	// RuleInteger accepts anything that converts to an integer, truncating
	// decimals.
	RuleInteger
)

var ruleNames = map[Rule]string{
	RuleTaxCode:  "tax-code",
	RuleAnyValue: "any",
	RuleInteger:  "integer",
}

func (r Rule) String() string {
	if name, ok := ruleNames[r]; ok {
		return name
	}
	return "unset"
}

// MarshalText renders the rule by name.
func (r Rule) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// ParseRule accepts "tax-code", "any" or "integer".
func ParseRule(s string) (Rule, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for r, name := range ruleNames {
		if key == name {
			return r, nil
		}
	}
	return RuleUnset, fmt.Errorf("%w %q — use one of: tax-code, any, integer", ErrInvalidRule, s)
}

// DefaultRule is the rule used when none is configured: tax codes when names
// carry a prefix, any value when the value is the whole name.
func DefaultRule(prefix string) Rule {
	if prefix != "" {
		return RuleTaxCode
	}
	return RuleAnyValue
}

// Qualify applies the rule to v and returns the text used in the alias name.
func (r Rule) Qualify(v xlsx.Value) (string, bool) {
	if v.IsEmpty() {
		return "", false
	}
	switch r {
	case RuleTaxCode:
		return qualifyTaxCode(v)
	case RuleAnyValue:
		s := v.String()
		return s, s != ""
	case RuleInteger:
		return qualifyInteger(v)
	default:
		return "", false
	}
}

func qualifyTaxCode(v xlsx.Value) (string, bool) {
	switch v.Kind {
	case xlsx.KindString:
		if len(v.Text) != 4 {
			return "", false
		}
		for i := 0; i < len(v.Text); i++ {
			if v.Text[i] < '0' || v.Text[i] > '9' {
				return "", false
			}
		}
		return v.Text, true
	case xlsx.KindNumber:
		n, ok := v.Int()
		if !ok || n < 1000 || n > 9999 {
			return "", false
		}
		return strconv.FormatInt(n, 10), true
	}
	return "", false
}

func qualifyInteger(v xlsx.Value) (string, bool) {
	switch v.Kind {
	case xlsx.KindNumber:
		if n, ok := v.Int(); ok {
			return strconv.FormatInt(n, 10), true
		}
		f, ok := v.Float()
		if !ok || math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) >= math.MaxInt64 {
			return "", false
		}
		return strconv.FormatInt(int64(f), 10), true
	case xlsx.KindString:
		n, err := strconv.ParseInt(strings.TrimSpace(v.Text), 10, 64)
		if err != nil {
			return "", false
		}
		return strconv.FormatInt(n, 10), true
	case xlsx.KindBool:
		if v.Text == "TRUE" {
			return "1", true
		}
		return "0", true
	}
	return "", false
}
