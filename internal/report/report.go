// Package report renders run summaries as aligned text tables for
// terminal output.
package report

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// Table is a simple header-plus-rows table. Cells may contain any UTF-8
// text; column widths are computed from display width, not byte length.
type Table struct {
	Headers []string
	Rows    [][]string
}

// AddRow appends one row to the table.
func (t *Table) AddRow(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// Render returns the table as pipe-delimited lines with a separator row
// under the headers, every column padded to its widest cell.
func (t *Table) Render() string {
	colCount := len(t.Headers)
	for _, row := range t.Rows {
		if len(row) > colCount {
			colCount = len(row)
		}
	}

	if colCount == 0 {
		return ""
	}

	colWidths := make([]int, colCount)
	measure := func(row []string) {
		for i := 0; i < len(row) && i < colCount; i++ {
			if w := runewidth.StringWidth(row[i]); w > colWidths[i] {
				colWidths[i] = w
			}
		}
	}

	measure(t.Headers)
	for _, row := range t.Rows {
		measure(row)
	}

	for i := range colWidths {
		if colWidths[i] < 3 {
			colWidths[i] = 3
		}
	}

	var sb strings.Builder

	writeRow := func(row []string) {
		sb.WriteString("|")

		for j := 0; j < colCount; j++ {
			content := ""
			if j < len(row) {
				content = row[j]
			}

			sb.WriteString(" ")
			sb.WriteString(content)

			if padding := colWidths[j] - runewidth.StringWidth(content); padding > 0 {
				sb.WriteString(strings.Repeat(" ", padding))
			}

			sb.WriteString(" |")
		}

		sb.WriteString("\n")
	}

	writeRow(t.Headers)

	sb.WriteString("|")
	for j := 0; j < colCount; j++ {
		sb.WriteString(" ")
		sb.WriteString(strings.Repeat("-", colWidths[j]))
		sb.WriteString(" |")
	}
	sb.WriteString("\n")

	for _, row := range t.Rows {
		writeRow(row)
	}

	return sb.String()
}
