package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var comparisonHeaders = []string{"Metric", "Latest", "Candidate", "Difference", "Change (%)", "Status"}

func splitLines(t *testing.T, out string) []string {
	t.Helper()

	require.True(t, strings.HasSuffix(out, "\n"), "output must end with a newline")

	return strings.Split(strings.TrimSuffix(out, "\n"), "\n")
}

// cells splits a rendered line on the column joiner, dropping the outer pipes.
func cells(line string) []string {
	inner := strings.TrimSuffix(strings.TrimPrefix(line, "| "), "|")
	return strings.Split(inner, "| ")
}

func TestRenderer_ExactLayout(t *testing.T) {
	r := NewRenderer()

	out := r.RenderToString(comparisonHeaders, [][]string{
		{"Execution Time (ms)", "5224.85", "5225.30", "-0.45", "-0.01%", "Slower"},
	})

	expected := "" +
		"| Metric                | Latest        | Candidate     | Difference    | Change (%)  | Status    |\n" +
		"|-----------------------|---------------|---------------|---------------|-------------|-----------|\n" +
		"| Execution Time (ms)   | 5224.85       | 5225.30       | -0.45         | -0.01%      | Slower    |\n"

	assert.Equal(t, expected, out)
}

func TestRenderer_WidensFromAllRows(t *testing.T) {
	r := NewRenderer()

	rows := [][]string{
		{"Execution Time (ms)", "1.00", "1.00", "0.00", "0.00%", "Same"},
		{"Requests/Second", "18083665.34", "17792828.69", "-290836.65", "-1.61%", "Lower"},
		{"Errors", "0", "1234567890123456", "1234567890123456", "N/A", "More"},
	}

	widths := r.ColumnWidths(comparisonHeaders, rows)
	assert.Equal(t, []int{22, 14, 18, 18, 12, 10}, widths)

	lines := splitLines(t, r.RenderToString(comparisonHeaders, rows))
	require.Len(t, lines, 2+len(rows))

	// Every line has the same length, so the grid is aligned.
	for _, line := range lines[1:] {
		assert.Equal(t, len(lines[0]), len(line), line)
	}
}

func TestRenderer_CellCountAndMinimumWidths(t *testing.T) {
	r := NewRenderer()

	rows := [][]string{
		{"Execution Time (ms)", "1", "2", "3", "4", "5"},
		{"short row"},
		{"a", "b", "c", "d", "e", "f", "extra"},
		{},
	}

	lines := splitLines(t, r.RenderToString(comparisonHeaders, rows))
	header := cells(lines[0])
	require.Len(t, header, len(comparisonHeaders))

	for _, line := range append([]string{lines[0]}, lines[2:]...) {
		got := cells(line)
		require.Len(t, got, len(header), line)

		for i, cell := range got {
			assert.GreaterOrEqual(t, len(cell), DefaultMinWidths[i], "column %d of %q", i, line)
		}
	}

	assert.NotContains(t, lines[4], "extra")
}

func TestRenderer_SeparatorMirrorsWidths(t *testing.T) {
	headers := append(append([]string(nil), comparisonHeaders...), "Notes")
	widths := NewRenderer().ColumnWidths(headers, [][]string{{"x"}})

	lines := splitLines(t, NewRenderer().RenderToString(headers, [][]string{{"x"}}))
	sep := strings.Split(strings.TrimSuffix(strings.TrimPrefix(lines[1], "|-"), "|"), "|-")
	require.Len(t, sep, len(widths))

	for i, dashes := range sep {
		assert.Equal(t, strings.Repeat("-", widths[i]), dashes)
	}
}

func TestRenderer_ColumnsBeyondMinimumsUseFallback(t *testing.T) {
	headers := append(append([]string(nil), comparisonHeaders...), "Extra")

	widths := NewRenderer().ColumnWidths(headers, nil)
	assert.Equal(t, append(append([]int(nil), DefaultMinWidths...), fallbackMinWidth), widths)
}

func TestRenderer_HeadersDoNotWiden(t *testing.T) {
	headers := append(append([]string(nil), comparisonHeaders...), "A header longer than ten")

	widths := NewRenderer().ColumnWidths(headers, [][]string{{"m", "1", "2", "3", "4", "5", "ok"}})
	assert.Equal(t, fallbackMinWidth, widths[6])

	widths = NewRenderer().ColumnWidths(headers, [][]string{{"m", "1", "2", "3", "4", "5", "a much longer cell"}})
	assert.Equal(t, len("a much longer cell")+cellPadding, widths[6])

	lines := splitLines(t, NewRenderer().RenderToString(headers, nil))
	assert.True(t, strings.HasSuffix(lines[0], "| A header longer than ten|"), lines[0])
}

func TestRenderer_HeaderOnly(t *testing.T) {
	lines := splitLines(t, NewRenderer().RenderToString(comparisonHeaders, nil))
	assert.Len(t, lines, 2)
}

func TestRenderer_Idempotent(t *testing.T) {
	r := NewRenderer()
	rows := [][]string{
		{"Execution Time (ms)", "5224.85", "5225.30", "-0.45", "-0.01%", "Slower"},
		{"Average Latency (ms)", "0.03", "0.03", "0.00", "0.00%", "Same"},
	}

	first := r.RenderToString(comparisonHeaders, rows)
	second := r.RenderToString(comparisonHeaders, rows)
	assert.Equal(t, first, second)
}

func TestRenderer_MultibyteCellsPadByRune(t *testing.T) {
	lines := splitLines(t, NewRenderer().RenderToString([]string{"µs"}, [][]string{{"µµµµµµµµµµµµµµµµµµµµµµ"}}))

	// 22 runes plus padding, although the cell is 44 bytes long.
	assert.Equal(t, "| µµµµµµµµµµµµµµµµµµµµµµ  |", lines[2])
	assert.Equal(t, "|-"+strings.Repeat("-", 24)+"|", lines[1])
}
