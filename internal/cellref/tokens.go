package cellref

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// refPattern matches an optional sheet qualifier ('quoted', "double quoted" or
// a bare identifier) followed by '!', then a coordinate with optional anchors.
var refPattern = regexp.MustCompile(
	`(?:'((?:[^']|'')+)'!|"([^"]+)"!|([A-Za-z_\p{L}][A-Za-z0-9_.\p{L}]*)!)?(\$?[A-Za-z]{1,3}\$?[0-9]{1,7})`)

// Token is one cell reference found in formula text.
type Token struct {
	Start int        `json:"start"`
	End   int        `json:"end"`
	Text  string     `json:"text"`
	Sheet string     `json:"sheet,omitempty"` // unescaped; empty when unqualified
	Coord Coordinate `json:"coord"`
}

// Qualified reports whether the token names its sheet.
func (t Token) Qualified() bool {
	return t.Sheet != ""
}

// Tokenize returns the cell references in formula, left to right and
// non-overlapping. Matching is purely syntactic: references inside string
// literals are returned too, and each endpoint of a range is its own token.
func Tokenize(formula string) []Token {
	var tokens []Token
	pos := 0
	for pos < len(formula) {
		m := refPattern.FindStringSubmatchIndex(formula[pos:])
		if m == nil {
			break
		}
		start, end := pos+m[0], pos+m[1]
		coord, err := ParseCoordinate(formula[pos+m[8] : pos+m[9]])
		if err != nil || !bounded(formula, start, end) {
			_, size := utf8.DecodeRuneInString(formula[start:])
			pos = start + size
			continue
		}

		tok := Token{Start: start, End: end, Text: formula[start:end], Coord: coord}
		switch {
		case m[2] >= 0:
			tok.Sheet = strings.ReplaceAll(formula[pos+m[2]:pos+m[3]], "''", "'")
		case m[4] >= 0:
			tok.Sheet = formula[pos+m[4] : pos+m[5]]
		case m[6] >= 0:
			tok.Sheet = formula[pos+m[6] : pos+m[7]]
		}
		tok.Sheet = strings.TrimSpace(tok.Sheet)
		tokens = append(tokens, tok)
		pos = end
	}
	return tokens
}

// bounded rejects matches glued to a surrounding identifier or function call,
// e.g. the "A1" in "code_A1" or the "LOG10" in "LOG10(".
func bounded(s string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(s[:start])
		if isIdentRune(r) || r == '.' {
			return false
		}
	}
	if end < len(s) {
		r, _ := utf8.DecodeRuneInString(s[end:])
		if isIdentRune(r) || r == '(' {
			return false
		}
	}
	return true
}

func isIdentRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
