package output

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/expressjs/perf-runner/internal/compare"
	"github.com/expressjs/perf-runner/internal/format"
	"github.com/expressjs/perf-runner/internal/metrics"
	"github.com/expressjs/perf-runner/internal/report"
	"github.com/olekukonko/tablewriter"
)

// RenderOption configures table rendering
type RenderOption func(*tablewriter.Table)

// WithAutoFormatHeaders enables/disables auto header formatting
func WithAutoFormatHeaders(enable bool) RenderOption {
	return func(t *tablewriter.Table) {
		t.SetAutoFormatHeaders(enable)
	}
}

// TableRenderer draws console tables. Unlike the markdown report tables, these
// are only meant for a terminal.
type TableRenderer struct{}

// RenderToString renders the table into a string.
func (r TableRenderer) RenderToString(headers []string, rows [][]string, opts ...RenderOption) string {
	buf := &bytes.Buffer{}
	r.RenderToWriter(buf, headers, rows, opts...)
	return buf.String()
}

// RenderToWriter renders the table into w.
func (r TableRenderer) RenderToWriter(w io.Writer, headers []string, rows [][]string, opts ...RenderOption) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(headers)

	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("│")
	table.SetRowSeparator("─")
	table.SetHeaderLine(true)
	table.SetBorder(true)
	table.SetTablePadding(" ")
	table.SetNoWhiteSpace(false)

	for _, opt := range opts {
		opt(table)
	}

	table.AppendBulk(rows)
	table.Render()
}

// FolderTable lists every folder of the run with its outcome.
func FolderTable(colors *ColorHelper, renderer TableRenderer, folderMetrics []metrics.FolderMetric) string {
	if len(folderMetrics) == 0 {
		return "No test folders executed"
	}

	headers := []string{"Folder", "Status", "Latest", "Candidate", "Load Test", "Duration", "Details"}
	rows := make([][]string, 0, len(folderMetrics))

	for _, m := range folderMetrics {
		loadTest := colors.Muted("no")
		if m.HasLoadTest {
			loadTest = colors.Success("yes")
		}

		details := ""
		if m.ErrorMessage != "" {
			msg := m.ErrorMessage
			if len(msg) > 50 {
				msg = msg[:47] + "..."
			}

			details = colors.Muted(msg)
		}

		rows = append(rows, []string{
			m.Folder,
			colors.FormatStatus(m.Passed),
			durationOrDash(m.Latest),
			durationOrDash(m.Candidate),
			loadTest,
			format.Duration(m.Duration),
			details,
		})
	}

	return renderer.RenderToString(headers, rows)
}

// ComparisonTable shows a section's comparison rows with colored statuses.
func ComparisonTable(colors *ColorHelper, renderer TableRenderer, section report.Section) string {
	rows := make([][]string, 0, len(section.Comparison.Rows))

	for _, row := range section.Comparison.Rows {
		cells := row.Cells()
		cells[len(cells)-1] = colors.FormatComparison(row.Metric, row.Status)
		rows = append(rows, cells)
	}

	return renderer.RenderToString(compare.Headers, rows, WithAutoFormatHeaders(false))
}

// SummaryTable aggregates the run.
func SummaryTable(colors *ColorHelper, renderer TableRenderer, summary metrics.SummaryMetric) string {
	failed := strconv.Itoa(summary.FailedFolders)
	if summary.FailedFolders > 0 {
		failed = colors.Failure(failed)
	} else {
		failed = colors.Success(failed)
	}

	publishes := summary.Published + summary.PublishFailures

	rows := [][]string{
		{"Folders", colors.Bold(strconv.Itoa(summary.TotalFolders))},
		{"Compared", colors.FormatCount(summary.PassedFolders, summary.TotalFolders)},
		{"Failed", failed},
		{"With Load Test", fmt.Sprintf("%d", summary.LoadTestFolders)},
		{"Published", colors.FormatCount(summary.Published, publishes)},
		{"Total Duration", format.Duration(summary.TotalDuration)},
	}

	return renderer.RenderToString([]string{"Metric", "Value"}, rows)
}

func durationOrDash(d time.Duration) string {
	if d == 0 {
		return "-"
	}

	return format.Duration(d)
}
