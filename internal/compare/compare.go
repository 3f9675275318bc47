// Package compare turns a baseline and a candidate record into comparison rows.
package compare

import (
	"strconv"

	"github.com/expressjs/perf-runner/internal/format"
	"github.com/expressjs/perf-runner/internal/record"
)

// Metric names as they appear in the first report column.
const (
	MetricExecutionTime = "Execution Time (ms)"
	MetricLatency       = "Average Latency (ms)"
	MetricThroughput    = "Requests/Second"
	MetricErrors        = "Errors"
)

// Status values. Each metric uses its own pair plus StatusSame.
const (
	StatusFaster = "Faster"
	StatusSlower = "Slower"
	StatusLower  = "Lower"
	StatusHigher = "Higher"
	StatusMore   = "More"
	StatusFewer  = "Fewer"
	StatusSame   = "Same"
)

// NotApplicable replaces a percentage that cannot be computed.
const NotApplicable = "N/A"

// Headers is the column order of a rendered comparison.
var Headers = []string{"Metric", "Latest", "Candidate", "Difference", "Change (%)", "Status"}

// Row is one compared metric, already formatted for display.
type Row struct {
	Metric     string
	Baseline   string
	Candidate  string
	Difference string
	Change     string
	Status     string
}

// Cells returns the row in Headers order.
func (r Row) Cells() []string {
	return []string{r.Metric, r.Baseline, r.Candidate, r.Difference, r.Change, r.Status}
}

// Result is the outcome of comparing two records.
type Result struct {
	Rows []Row
	// HasLoadTest is false when either side lacks a load-test summary, in which
	// case only the execution time row is present.
	HasLoadTest bool
}

// Cells returns every row as a slice of cells.
func (r Result) Cells() [][]string {
	cells := make([][]string, 0, len(r.Rows))
	for _, row := range r.Rows {
		cells = append(cells, row.Cells())
	}

	return cells
}

// direction maps the sign of a difference to a status.
type direction struct {
	positive string
	negative string
}

var (
	executionDirection  = direction{positive: StatusFaster, negative: StatusSlower}
	latencyDirection    = direction{positive: StatusLower, negative: StatusHigher}
	throughputDirection = direction{positive: StatusHigher, negative: StatusLower}
	errorsDirection     = direction{positive: StatusMore, negative: StatusFewer}
)

func (d direction) status(diff float64) string {
	switch {
	case diff > 0:
		return d.positive
	case diff < 0:
		return d.negative
	default:
		return StatusSame
	}
}

// Compare builds the comparison rows for two records of the same test folder.
// Neither record is modified.
func Compare(baseline, candidate *record.Record) Result {
	result := Result{
		Rows: []Row{
			floatRow(MetricExecutionTime, baseline.ExecutionTime(), candidate.ExecutionTime(), lowerIsBetter, executionDirection),
		},
		HasLoadTest: baseline.HasLoadTest() && candidate.HasLoadTest(),
	}

	if !result.HasLoadTest {
		return result
	}

	base, cand := baseline.ClientResults, candidate.ClientResults

	result.Rows = append(result.Rows,
		floatRow(MetricLatency, base.Latency.AverageMs, cand.Latency.AverageMs, lowerIsBetter, latencyDirection),
		floatRow(MetricThroughput, *base.RequestsPerSecond, *cand.RequestsPerSecond, higherIsBetter, throughputDirection),
	)

	if baseline.HasErrorCount() && candidate.HasErrorCount() {
		result.Rows = append(result.Rows, errorsRow(*base.Errors, *cand.Errors))
	}

	return result
}

func lowerIsBetter(baseline, candidate float64) float64  { return baseline - candidate }
func higherIsBetter(baseline, candidate float64) float64 { return candidate - baseline }

func floatRow(metric string, baseline, candidate float64, diffOf func(float64, float64) float64, dir direction) Row {
	diff := diffOf(baseline, candidate)

	return Row{
		Metric:     metric,
		Baseline:   format.Fixed(baseline, 2),
		Candidate:  format.Fixed(candidate, 2),
		Difference: format.Fixed(diff, 2),
		Change:     floatChange(diff, baseline),
		Status:     dir.status(diff),
	}
}

// floatChange is diff relative to baseline. A zero baseline only yields a
// percentage when nothing changed.
func floatChange(diff, baseline float64) string {
	if baseline == 0 {
		if diff == 0 {
			return format.Percent(0)
		}
		return NotApplicable
	}

	return format.Percent(diff / baseline * 100)
}

// errorsRow compares error counts; more errors is worse, so the difference is
// candidate minus baseline and a zero baseline has no percentage.
func errorsRow(baseline, candidate int64) Row {
	diff := candidate - baseline

	change := NotApplicable
	if baseline > 0 {
		change = format.Percent(float64(diff) / float64(baseline) * 100)
	}

	return Row{
		Metric:     MetricErrors,
		Baseline:   strconv.FormatInt(baseline, 10),
		Candidate:  strconv.FormatInt(candidate, 10),
		Difference: strconv.FormatInt(diff, 10),
		Change:     change,
		Status:     errorsDirection.status(float64(diff)),
	}
}
