package cellref

import (
	"errors"
	"testing"
)

func TestTokenizeUnqualified(t *testing.T) {
	toks := Tokenize("=L200+L999")
	if len(toks) != 2 {
		t.Fatalf("expected 2 tokens, got %d: %+v", len(toks), toks)
	}
	if toks[0].Text != "L200" || toks[0].Start != 1 || toks[0].End != 5 {
		t.Errorf("unexpected first token %+v", toks[0])
	}
	if toks[1].Coord != (Coordinate{"L", 999}) || toks[1].Qualified() {
		t.Errorf("unexpected second token %+v", toks[1])
	}
}

func TestTokenizeQualifiers(t *testing.T) {
	tests := []struct {
		formula string
		sheet   string
		coord   string
		text    string
	}{
		{"='Sheet1'!$L$404", "Sheet1", "L404", "'Sheet1'!$L$404"},
		{"=Sheet1!A1*2", "Sheet1", "A1", "Sheet1!A1"},
		{`="Tax Calculation"!L200`, "Tax Calculation", "L200", `"Tax Calculation"!L200`},
		{"='It''s here'!B7", "It's here", "B7", "'It''s here'!B7"},
		{"=SUM(Data_2024!c3)", "Data_2024", "C3", "Data_2024!c3"},
	}
	for _, tt := range tests {
		toks := Tokenize(tt.formula)
		if len(toks) != 1 {
			t.Errorf("%s: expected 1 token, got %+v", tt.formula, toks)
			continue
		}
		if toks[0].Sheet != tt.sheet {
			t.Errorf("%s: expected sheet %q, got %q", tt.formula, tt.sheet, toks[0].Sheet)
		}
		if toks[0].Coord.String() != tt.coord {
			t.Errorf("%s: expected coord %s, got %s", tt.formula, tt.coord, toks[0].Coord)
		}
		if toks[0].Text != tt.text {
			t.Errorf("%s: expected text %q, got %q", tt.formula, tt.text, toks[0].Text)
		}
	}
}

func TestTokenizeIgnoresIdentifiers(t *testing.T) {
	for _, formula := range []string{
		"=display_code_1657*2",
		"=LOG10(5)",
		"=ATAN2(1,1)",
		"=code_A1",
		"=R1C1",
		"=A12345678",
	} {
		if toks := Tokenize(formula); len(toks) != 0 {
			t.Errorf("%s: expected no tokens, got %+v", formula, toks)
		}
	}
}

func TestTokenizeRangeEndpoints(t *testing.T) {
	toks := Tokenize("=SUM(A1:A10)")
	if len(toks) != 2 {
		t.Fatalf("expected 2 tokens, got %+v", toks)
	}
	if toks[0].Coord.String() != "A1" || toks[1].Coord.String() != "A10" {
		t.Errorf("unexpected endpoints %+v", toks)
	}
}

func TestTokenizeStringLiteral(t *testing.T) {
	// References in string literals are matched; the grammar is syntactic.
	toks := Tokenize(`=CONCAT("see B2", C3)`)
	if len(toks) != 2 {
		t.Fatalf("expected 2 tokens, got %+v", toks)
	}
	if toks[0].Coord.String() != "B2" {
		t.Errorf("expected B2 from literal, got %s", toks[0].Coord)
	}
}

func TestParseRefersTo(t *testing.T) {
	sheet, coord, err := ParseRefersTo("'Tax Calculation'!$L$200")
	if err != nil {
		t.Fatalf("ParseRefersTo failed: %v", err)
	}
	if sheet != "Tax Calculation" || coord.String() != "L200" {
		t.Errorf("unexpected target %s!%s", sheet, coord)
	}

	sheet, coord, err = ParseRefersTo("=Summary!$B$3")
	if err != nil || sheet != "Summary" || coord.String() != "B3" {
		t.Errorf("unexpected target %s!%s (%v)", sheet, coord, err)
	}

	for _, in := range []string{
		"'Tax Calculation'!$L$200:$L$210",
		"Sheet1!$A$1,Sheet1!$B$1",
		"$A$1",
		"Sheet1!$A:$A",
		"#REF!",
		"0.21",
		"Sheet1!$A$1*2",
	} {
		if _, _, err := ParseRefersTo(in); !errors.Is(err, ErrNotSingleCell) {
			t.Errorf("ParseRefersTo(%q): expected ErrNotSingleCell, got %v", in, err)
		}
	}
}

func TestAbsoluteRef(t *testing.T) {
	got := AbsoluteRef("Bob's Taxes", MustParse("L200"))
	if got != "'Bob''s Taxes'!$L$200" {
		t.Errorf("unexpected reference %q", got)
	}
}
