package report

import (
	"errors"
	"strings"
	"testing"

	"github.com/expressjs/perf-runner/internal/compare"
	"github.com/expressjs/perf-runner/internal/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withLoadTest(executionMs, latencyMs, rps float64, errs int64) *record.Record {
	return &record.Record{
		ServerResults: record.ServerResults{ExecutionTimeMs: record.Float(executionMs)},
		ClientResults: &record.ClientResults{
			Latency:           &record.Latency{AverageMs: latencyMs},
			RequestsPerSecond: record.Float(rps),
			Errors:            record.Int(errs),
		},
	}
}

func withoutLoadTest(executionMs float64) *record.Record {
	return &record.Record{
		ServerResults: record.ServerResults{ExecutionTimeMs: record.Float(executionMs)},
		ClientResults: &record.ClientResults{Latency: &record.Latency{AverageMs: 0}},
	}
}

func TestBuildSection_WithLoadTest(t *testing.T) {
	section := BuildSection(NewRenderer(), "hello-world",
		withLoadTest(5224.85, 0.03, 18083665.34, 0),
		withLoadTest(5225.30, 0.03, 17792828.69, 0),
	)

	require.False(t, section.Failed())
	assert.True(t, section.Comparison.HasLoadTest)
	assert.NotContains(t, section.Body(), LoadTestUnavailableNote)

	lines := strings.Split(strings.TrimSuffix(section.Table, "\n"), "\n")
	require.Len(t, lines, 6)
	assert.Contains(t, lines[2], compare.MetricExecutionTime)
	assert.Contains(t, lines[3], compare.MetricLatency)
	assert.Contains(t, lines[4], compare.MetricThroughput)
	assert.Contains(t, lines[5], compare.MetricErrors)
	assert.Contains(t, lines[5], compare.NotApplicable)
}

func TestBuildSection_WithoutLoadTestAddsNote(t *testing.T) {
	section := BuildSection(NewRenderer(), "static-files",
		withoutLoadTest(3500.25),
		withLoadTest(3400.15, 1, 100, 0),
	)

	assert.False(t, section.Comparison.HasLoadTest)

	body := section.Body()
	assert.True(t, strings.HasSuffix(body, "\n\n"+LoadTestUnavailableNote+"\n"))

	table := strings.TrimSuffix(body, "\n"+LoadTestUnavailableNote+"\n")
	lines := strings.Split(strings.TrimSuffix(table, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.NotContains(t, body, compare.MetricLatency)
	assert.NotContains(t, body, compare.MetricThroughput)
	assert.NotContains(t, body, "| "+compare.MetricErrors)
}

func TestReport_RenderKeepsOrder(t *testing.T) {
	var rep Report
	rep.Add(BuildSection(NewRenderer(), "b-folder", withoutLoadTest(2), withoutLoadTest(1)))
	rep.Add(FailedSection("a-folder", errors.New("workload exited with status 1")))
	rep.Add(BuildSection(NewRenderer(), "c-folder", withoutLoadTest(1), withoutLoadTest(2)))

	out := rep.Render()

	b := strings.Index(out, "### b-folder")
	a := strings.Index(out, "### a-folder")
	c := strings.Index(out, "### c-folder")
	require.True(t, b >= 0 && a > b && c > a, out)

	assert.Contains(t, out, "*Comparison failed: workload exited with status 1*")
	require.Len(t, rep.Failures(), 1)
	assert.Equal(t, "a-folder", rep.Failures()[0].Folder)
}

func TestReport_Document(t *testing.T) {
	var rep Report
	rep.Add(BuildSection(NewRenderer(), "routing", withoutLoadTest(10), withoutLoadTest(10)))

	t.Run("local", func(t *testing.T) {
		doc := rep.Document(Context{NodeVersion: "v20.11.0"})

		assert.True(t, strings.HasPrefix(doc, "## 📊 Performance Comparison (Node.js v20.11.0)\n\n### routing\n\n"))
		assert.NotContains(t, doc, "pull request")
	})

	t.Run("pull request", func(t *testing.T) {
		doc := rep.Document(Context{NodeVersion: "v22.0.0", PullRequest: "6123"})

		assert.Contains(t, doc, "(Node.js v22.0.0)")
		assert.Contains(t, doc, "Results for pull request #6123\n\n### routing")
	})

	t.Run("empty", func(t *testing.T) {
		var empty Report
		assert.Contains(t, empty.Document(Context{NodeVersion: "v20"}), "No test folders were compared")
	})
}

func TestReport_RenderIdempotent(t *testing.T) {
	var rep Report
	rep.Add(BuildSection(NewRenderer(), "routing",
		withLoadTest(5224.85, 0.03, 18083665.34, 0),
		withLoadTest(5225.30, 0.03, 17792828.69, 3),
	))

	assert.Equal(t, rep.Render(), rep.Render())
}
