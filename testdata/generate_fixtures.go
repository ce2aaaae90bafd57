//go:build ignore

// This program generates the sample workbook used by benchmarks and manual
// testing of namekit.
package main

import (
	"fmt"
	"os"

	"github.com/klytics/namekit/internal/formats/xlsx"
)

func main() {
	if err := generateXlsx(); err != nil {
		fmt.Fprintf(os.Stderr, "Error generating sample.xlsx: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Test fixtures generated successfully.")
}

func generateXlsx() error {
	tax := xlsx.FixtureSheet{
		Name:     "Tax Calculation",
		Cells:    map[string]any{"A1": "Line", "J1": "Code", "K1": "Alt code", "L1": "Amount"},
		Formulas: map[string]string{},
		Merges:   []string{"A2:C2"},
	}
	for i := 0; i < 209; i++ {
		row := 200 + i
		// Every third row carries its code in K only.
		col := "J"
		if i%3 == 2 {
			col = "K"
		}
		tax.Cells[fmt.Sprintf("%s%d", col, row)] = fmt.Sprintf("%d", 1600+i)
		tax.Cells[fmt.Sprintf("L%d", row)] = float64(i) * 12.5
		tax.Formulas[fmt.Sprintf("N%d", row)] = fmt.Sprintf("L%d*0.2", row)
	}
	tax.Formulas["L410"] = "SUM(L200:L408)"
	tax.Formulas["L411"] = "L200+L201-L202"

	summary := xlsx.FixtureSheet{
		Name: "Summary",
		Cells: map[string]any{
			"A1": "Total", "A2": "First line", "A3": "Note",
			"B3": "see L200",
		},
		Formulas: map[string]string{
			"B1": "'Tax Calculation'!L410",
			"B2": "'Tax Calculation'!$L$200",
		},
	}

	archive := xlsx.FixtureSheet{
		Name:     "Archive",
		Formulas: map[string]string{"A1": "'Tax Calculation'!L200"},
		Hidden:   true,
	}

	fx := &xlsx.Fixture{Sheets: []xlsx.FixtureSheet{tax, summary, archive}}
	return xlsx.WriteFixture(fx, "testdata/sample.xlsx")
}
