package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/expressjs/perf-runner/internal/config"
	"github.com/expressjs/perf-runner/internal/record"
	"github.com/expressjs/perf-runner/internal/report"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func saveRecord(t *testing.T, label string, executionMs float64) string {
	t.Helper()

	dir := t.TempDir()
	rec := &record.Record{
		SchemaVersion: record.SchemaVersion,
		Timestamp:     1718000000000,
		ServerResults: record.ServerResults{ExecutionTimeMs: record.Float(executionMs)},
	}

	name, err := rec.Save(dir, label, "hello-world")
	require.NoError(t, err)

	return filepath.Join(dir, name)
}

func TestPrintComparison(t *testing.T) {
	latest := saveRecord(t, record.LabelLatest, 5224.85)
	candidate := saveRecord(t, record.LabelCandidate, 5225.30)

	var buf bytes.Buffer
	require.NoError(t, printComparison(&buf, latest, candidate, "hello-world"))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "\n## 📊 Performance Comparison\n\n### hello-world\n\n| Metric"))
	assert.Contains(t, out, "-0.01%")
	assert.Contains(t, out, "Slower")
	assert.Contains(t, out, report.LoadTestUnavailableNote)
}

func TestPrintComparison_FolderFromFilename(t *testing.T) {
	latest := saveRecord(t, record.LabelLatest, 10)
	candidate := saveRecord(t, record.LabelCandidate, 10)

	var buf bytes.Buffer
	require.NoError(t, printComparison(&buf, latest, candidate, ""))

	assert.Contains(t, buf.String(), "### hello-world\n\n")
	assert.Contains(t, buf.String(), "Same")
}

func TestPrintComparison_UnconventionalNames(t *testing.T) {
	latest := saveRecord(t, record.LabelLatest, 10)
	candidate := saveRecord(t, record.LabelCandidate, 10)

	renamed := filepath.Join(t.TempDir(), "candidate.json")
	require.NoError(t, os.Rename(candidate, renamed))

	var buf bytes.Buffer
	require.NoError(t, printComparison(&buf, latest, renamed, ""))

	assert.NotContains(t, buf.String(), "###")
	assert.Contains(t, buf.String(), "Same")
}

func TestFolderFromFilename(t *testing.T) {
	assert.Equal(t, "json-body-parse", folderFromFilename("/tmp/x/result-candidate-json-body-parse-1718000000000.json"))
	assert.Empty(t, folderFromFilename("candidate.json"))
}

func TestPrintComparison_MalformedRecord(t *testing.T) {
	latest := saveRecord(t, record.LabelLatest, 10)

	broken := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte("{not json"), 0o600))

	err := printComparison(&bytes.Buffer{}, latest, broken, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), broken)
}

func TestLevelFromEnv(t *testing.T) {
	assert.Equal(t, logrus.InfoLevel, levelFromEnv(""))
	assert.Equal(t, logrus.DebugLevel, levelFromEnv("debug"))
	assert.Equal(t, logrus.WarnLevel, levelFromEnv(" warn "))
	assert.Equal(t, logrus.InfoLevel, levelFromEnv("loud"))
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	// A missing default .env is not an error, a missing named file is.
	require.NoError(t, LoadEnvFile(""))
	require.Error(t, LoadEnvFile(filepath.Join(dir, "missing.env")))

	t.Setenv("PERF_RUNNER_TEST_VALUE", "")
	envPath := filepath.Join(dir, "ci.env")
	require.NoError(t, os.WriteFile(envPath, []byte("PERF_RUNNER_TEST_VALUE=from-file\n"), 0o600))
	require.NoError(t, os.Unsetenv("PERF_RUNNER_TEST_VALUE"))

	require.NoError(t, LoadEnvFile(envPath))
	assert.Equal(t, "from-file", os.Getenv("PERF_RUNNER_TEST_VALUE"))
}

func TestLoadRunConfig(t *testing.T) {
	t.Setenv("PACKAGE_NAME", "express")
	t.Setenv("FAILURE_POLICY", "")
	t.Setenv("PR_NUMBER", "")

	cfg, err := loadRunConfig("")
	require.NoError(t, err)
	assert.Equal(t, config.FailFast, cfg.FailurePolicy)

	cfg, err = loadRunConfig("best-effort")
	require.NoError(t, err)
	assert.Equal(t, config.BestEffort, cfg.FailurePolicy)

	_, err = loadRunConfig("sometimes")
	require.Error(t, err)
}

func TestLoadRunConfig_Invalid(t *testing.T) {
	t.Setenv("PACKAGE_NAME", "")

	_, err := loadRunConfig("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestNewNotifiers(t *testing.T) {
	log := logrus.New()

	cfg := &config.Config{PackageName: "express"}
	assert.Equal(t, 0, newNotifiers(log, cfg).Len())

	cfg.PRNumber = "42"
	cfg.GitHubToken = "token"
	cfg.GitHubRepository = "expressjs/express"
	cfg.SlackToken = "xoxb-test"
	cfg.SlackChannel = "#perf"
	assert.Equal(t, 2, newNotifiers(log, cfg).Len())
}
