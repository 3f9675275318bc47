package report

import (
	"strings"
	"unicode/utf8"
)

// DefaultMinWidths are the minimum column widths of a comparison table. The
// metric name column is wider than the numeric ones.
var DefaultMinWidths = []int{22, 14, 14, 14, 12, 10}

const (
	// fallbackMinWidth applies to columns beyond the configured minimum widths.
	fallbackMinWidth = 10
	// cellPadding is the room kept after the longest value in a column.
	cellPadding = 2
)

// Renderer renders pipe-delimited markdown tables with padded columns.
type Renderer struct {
	minWidths []int
}

// NewRenderer creates a table renderer using DefaultMinWidths.
func NewRenderer() *Renderer {
	return &Renderer{minWidths: DefaultMinWidths}
}

// ColumnWidths measures every data row before anything is emitted: each column
// is as wide as its minimum or its longest cell plus padding, whichever is
// larger. Headers set the column count but never widen a column.
func (r *Renderer) ColumnWidths(headers []string, rows [][]string) []int {
	widths := make([]int, len(headers))
	for i := range widths {
		widths[i] = fallbackMinWidth
		if i < len(r.minWidths) {
			widths[i] = r.minWidths[i]
		}
	}

	measure := func(cells []string) {
		for i := 0; i < len(widths) && i < len(cells); i++ {
			if w := utf8.RuneCountInString(cells[i]) + cellPadding; w > widths[i] {
				widths[i] = w
			}
		}
	}

	for _, row := range rows {
		measure(row)
	}

	return widths
}

// RenderToString renders the table to a string.
func (r *Renderer) RenderToString(headers []string, rows [][]string) string {
	var sb strings.Builder
	r.write(&sb, headers, rows)

	return sb.String()
}

func (r *Renderer) write(sb *strings.Builder, headers []string, rows [][]string) {
	widths := r.ColumnWidths(headers, rows)

	writeLine(sb, headers, widths)

	sep := make([]string, len(widths))
	for i, w := range widths {
		sep[i] = strings.Repeat("-", w)
	}
	sb.WriteString("|-" + strings.Join(sep, "|-") + "|\n")

	for _, row := range rows {
		writeLine(sb, row, widths)
	}
}

// writeLine emits one row with exactly len(widths) cells; missing cells are
// blank and extra cells are dropped.
func writeLine(sb *strings.Builder, cells []string, widths []int) {
	padded := make([]string, len(widths))
	for i, w := range widths {
		var cell string
		if i < len(cells) {
			cell = cells[i]
		}
		padded[i] = padEnd(cell, w)
	}

	sb.WriteString("| " + strings.Join(padded, "| ") + "|\n")
}

func padEnd(s string, width int) string {
	if n := utf8.RuneCountInString(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}

	return s
}
