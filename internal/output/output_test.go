package output

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/expressjs/perf-runner/internal/compare"
	"github.com/expressjs/perf-runner/internal/metrics"
	"github.com/expressjs/perf-runner/internal/record"
	"github.com/expressjs/perf-runner/internal/report"
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func disableColors(t *testing.T) {
	t.Helper()

	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })
}

func TestColorHelper_FormatComparison(t *testing.T) {
	disableColors(t)

	helper := NewColorHelper()

	assert.Equal(t, "Faster", helper.FormatComparison(compare.MetricExecutionTime, compare.StatusFaster))
	assert.Equal(t, "✓ COMPARED", helper.FormatStatus(true))
	assert.Equal(t, "✗ FAILED", helper.FormatStatus(false))
	assert.Equal(t, "2/3", helper.FormatCount(2, 3))
}

func TestImproved(t *testing.T) {
	tests := []struct {
		metric string
		status string
		want   bool
	}{
		{compare.MetricExecutionTime, compare.StatusFaster, true},
		{compare.MetricExecutionTime, compare.StatusSlower, false},
		{compare.MetricLatency, compare.StatusLower, true},
		{compare.MetricLatency, compare.StatusHigher, false},
		{compare.MetricThroughput, compare.StatusHigher, true},
		{compare.MetricThroughput, compare.StatusLower, false},
		{compare.MetricErrors, compare.StatusFewer, true},
		{compare.MetricErrors, compare.StatusMore, false},
	}

	for _, tt := range tests {
		t.Run(tt.metric+"/"+tt.status, func(t *testing.T) {
			assert.Equal(t, tt.want, improved(tt.metric, tt.status))
		})
	}
}

func TestFolderTable(t *testing.T) {
	disableColors(t)

	out := FolderTable(NewColorHelper(), TableRenderer{}, []metrics.FolderMetric{
		{Folder: "hello-world", Passed: true, Latest: 5 * time.Second, Candidate: 5 * time.Second, HasLoadTest: true},
		{Folder: "static-files", ErrorMessage: strings.Repeat("x", 80)},
	})

	assert.Contains(t, out, "hello-world")
	assert.Contains(t, out, "✓ COMPARED")
	assert.Contains(t, out, "✗ FAILED")
	assert.Contains(t, out, strings.Repeat("x", 47)+"...")
	assert.NotContains(t, out, strings.Repeat("x", 48))

	assert.Equal(t, "No test folders executed", FolderTable(NewColorHelper(), TableRenderer{}, nil))
}

func TestFormatter_PrintsSummaryAndComparison(t *testing.T) {
	disableColors(t)

	log := logrus.New()
	log.SetOutput(io.Discard)

	collector := metrics.NewCollector(log)
	require.NoError(t, collector.Start(context.Background()))
	collector.RecordFolder(&metrics.FolderMetric{Folder: "routing", Passed: true})

	var buf bytes.Buffer
	f := NewFormatter(&buf, true, collector)

	section := report.BuildSection(report.NewRenderer(), "routing",
		&record.Record{ServerResults: record.ServerResults{ExecutionTimeMs: record.Float(10)}},
		&record.Record{ServerResults: record.ServerResults{ExecutionTimeMs: record.Float(9)}},
	)

	f.PrintPhase("Comparing")
	f.PrintComparison(section)
	f.PrintError("publish failed", errors.New("timeout"))
	f.PrintSummary()

	out := buf.String()
	assert.Contains(t, out, "▸ Comparing")
	assert.Contains(t, out, "Execution Time (ms)")
	assert.Contains(t, out, "Faster")
	assert.Contains(t, out, "publish failed: timeout")
	assert.Contains(t, out, "▸ Summary")
	assert.Contains(t, out, "1/1")
}

func TestFormatter_ComparisonOnlyWhenVerbose(t *testing.T) {
	disableColors(t)

	log := logrus.New()
	log.SetOutput(io.Discard)

	var buf bytes.Buffer
	f := NewFormatter(&buf, false, metrics.NewCollector(log))

	f.PrintComparison(report.BuildSection(report.NewRenderer(), "routing",
		&record.Record{ServerResults: record.ServerResults{ExecutionTimeMs: record.Float(1)}},
		&record.Record{ServerResults: record.ServerResults{ExecutionTimeMs: record.Float(1)}},
	))

	assert.Empty(t, buf.String())
}
