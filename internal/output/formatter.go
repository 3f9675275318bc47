// Package output prints run progress and summaries to the console.
package output

import (
	"fmt"
	"io"
	"time"

	"github.com/expressjs/perf-runner/internal/format"
	"github.com/expressjs/perf-runner/internal/metrics"
	"github.com/expressjs/perf-runner/internal/report"
	"github.com/fatih/color"
)

// Formatter provides clean, human-friendly output
type Formatter interface {
	PrintPhase(phase string)
	PrintProgress(message string, duration time.Duration)
	PrintSuccess(message string)
	PrintWarning(message string)
	PrintError(message string, err error)
	PrintComparison(section report.Section)
	PrintReport(document string)
	PrintFolderResults()
	PrintSummary()
}

type formatter struct {
	writer  io.Writer
	verbose bool

	metrics  metrics.Collector
	renderer TableRenderer
	colors   *ColorHelper

	green  *color.Color
	red    *color.Color
	yellow *color.Color
	blue   *color.Color
	gray   *color.Color
}

// NewFormatter creates a new output formatter
func NewFormatter(writer io.Writer, verbose bool, metricsCollector metrics.Collector) Formatter {
	return &formatter{
		writer:   writer,
		verbose:  verbose,
		metrics:  metricsCollector,
		renderer: TableRenderer{},
		colors:   NewColorHelper(),
		green:    color.New(color.FgGreen),
		red:      color.New(color.FgRed),
		yellow:   color.New(color.FgYellow),
		blue:     color.New(color.FgBlue),
		gray:     color.New(color.FgHiBlack),
	}
}

// PrintPhase prints phase separator
func (f *formatter) PrintPhase(phase string) {
	_, _ = f.blue.Fprintf(f.writer, "\n▸ %s\n", phase)
}

// PrintProgress prints progress with timing
func (f *formatter) PrintProgress(message string, duration time.Duration) {
	if duration > 0 {
		_, _ = f.gray.Fprintf(f.writer, "%s (%s)\n", message, format.Duration(duration))
	} else {
		_, _ = fmt.Fprintf(f.writer, "%s\n", message)
	}
}

// PrintSuccess prints a green message
func (f *formatter) PrintSuccess(message string) {
	_, _ = f.green.Fprintf(f.writer, "%s\n", message)
}

// PrintWarning prints a yellow message
func (f *formatter) PrintWarning(message string) {
	_, _ = f.yellow.Fprintf(f.writer, "%s\n", message)
}

// PrintError prints red message + error details
func (f *formatter) PrintError(message string, err error) {
	_, _ = f.red.Fprintf(f.writer, "%s", message)
	if err != nil {
		_, _ = f.red.Fprintf(f.writer, ": %v", err)
	}
	_, _ = fmt.Fprintf(f.writer, "\n")
}

// PrintComparison prints a folder's comparison as a colored console table.
// Only shown in verbose mode; the markdown report carries the same rows.
func (f *formatter) PrintComparison(section report.Section) {
	if !f.verbose || section.Failed() {
		return
	}

	_, _ = fmt.Fprintln(f.writer, ComparisonTable(f.colors, f.renderer, section))
}

// PrintReport prints the markdown report verbatim.
func (f *formatter) PrintReport(document string) {
	_, _ = fmt.Fprintf(f.writer, "\n%s", document)
}

// PrintFolderResults prints a table of folder outcomes
func (f *formatter) PrintFolderResults() {
	_, _ = fmt.Fprintln(f.writer, FolderTable(f.colors, f.renderer, f.metrics.GetFolderMetrics()))
}

// PrintSummary prints a summary table with aggregate statistics
func (f *formatter) PrintSummary() {
	out := SummaryTable(f.colors, f.renderer, f.metrics.GetSummary())
	_, _ = fmt.Fprintln(f.writer, "\n"+f.colors.Header("▸ Summary")+"\n\n"+out)
}
