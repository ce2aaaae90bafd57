// Package output provides formatting utilities for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

var (
	headerStyle = color.New(color.Bold, color.FgCyan)
	dim         = color.New(color.FgHiBlack)
)

// Table renders rows under a bold header with columns padded to the widest
// cell, capped at maxWidth. Longer cells are cut with a trailing "~".
type Table struct {
	Header   []string
	Rows     [][]string
	MaxWidth int
}

// Widths returns the rendered width of each column.
func (t *Table) Widths() []int {
	max := t.MaxWidth
	if max <= 0 {
		max = 48
	}
	widths := make([]int, len(t.Header))
	for i, h := range t.Header {
		widths[i] = len(h)
	}
	for _, row := range t.Rows {
		for j, cell := range row {
			for len(widths) <= j {
				widths = append(widths, 0)
			}
			if len(cell) > widths[j] {
				widths[j] = len(cell)
			}
		}
	}
	for i := range widths {
		if widths[i] > max {
			widths[i] = max
		}
		if widths[i] < 3 {
			widths[i] = 3
		}
	}
	return widths
}

// Render writes the table to w.
func (t *Table) Render(w io.Writer) {
	widths := t.Widths()
	printRow(w, t.Header, widths, color.New(color.Bold))

	dim.Fprint(w, "  ")
	for j, cw := range widths {
		if j > 0 {
			dim.Fprint(w, "+-")
		}
		dim.Fprint(w, strings.Repeat("-", cw+1))
	}
	dim.Fprintln(w)

	for _, row := range t.Rows {
		printRow(w, row, widths, nil)
	}
}

// String renders the table without color.
func (t *Table) String() string {
	var sb strings.Builder
	t.Render(&sb)
	return sb.String()
}

func printRow(w io.Writer, row []string, widths []int, style *color.Color) {
	fmt.Fprint(w, "  ")
	for j := range widths {
		if j > 0 {
			fmt.Fprint(w, "| ")
		}
		cell := ""
		if j < len(row) {
			cell = row[j]
		}
		if len(cell) > widths[j] {
			cell = cell[:widths[j]-1] + "~"
		}
		padded := cell + strings.Repeat(" ", widths[j]-len(cell)+1)
		if style != nil {
			style.Fprint(w, padded)
		} else {
			fmt.Fprint(w, padded)
		}
	}
	fmt.Fprintln(w)
}

// Heading writes a bold section title.
func Heading(w io.Writer, format string, args ...interface{}) {
	headerStyle.Fprintf(w, format+"\n", args...)
}

// Dim writes secondary text such as counts and hints.
func Dim(w io.Writer, format string, args ...interface{}) {
	dim.Fprintf(w, format+"\n", args...)
}

// Warn writes a yellow warning line.
func Warn(w io.Writer, format string, args ...interface{}) {
	color.New(color.FgYellow).Fprintf(w, "Warning: "+format+"\n", args...)
}

// Success writes a green confirmation line.
func Success(w io.Writer, format string, args ...interface{}) {
	color.New(color.FgGreen).Fprintf(w, format+"\n", args...)
}
