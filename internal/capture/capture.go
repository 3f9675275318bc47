// Package capture runs a test folder's workload inside a prepared sandbox and
// turns the run into a persisted record.
package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/expressjs/perf-runner/internal/fixture"
	"github.com/expressjs/perf-runner/internal/format"
	"github.com/expressjs/perf-runner/internal/record"
	"github.com/sirupsen/logrus"
)

// Environment variables handed to the workload.
const (
	EnvLabel             = "PERF_LABEL"
	EnvTestFolder        = "PERF_TEST_FOLDER"
	EnvConnections       = "PERF_CONNECTIONS"
	EnvDuration          = "PERF_DURATION"
	EnvClientResultsFile = "PERF_CLIENT_RESULTS_FILE"
)

// ErrNoClientResults is returned when client results are required but the
// workload reported none.
var ErrNoClientResults = errors.New("workload reported no client results")

// Where the client results of a run came from.
const (
	sourceFile   = "file"
	sourceStdout = "stdout"
	sourceNone   = "none"
)

// ClientResultsFile is where the workload may write its load-test summary,
// relative to the sandbox.
const ClientResultsFile = "client-results.json"

// Options configures a Capturer.
type Options struct {
	PackageName string
	// Repo is recorded as the repository URL of the package.
	Repo       string
	GitRef     string
	NodeBinary string

	// RequireClientResults turns a run without a load-test summary into a
	// capture error instead of a record with placeholder client results.
	RequireClientResults bool

	// Stdout and Stderr receive the workload's output as it runs.
	Stdout io.Writer
	Stderr io.Writer
}

// Result is a captured and persisted run.
type Result struct {
	Record   *record.Record
	Filename string
	Path     string
	Elapsed  time.Duration
}

// Capturer runs workloads and records their results.
type Capturer struct {
	opts Options
	host HostInfo
	now  func() time.Time
	log  logrus.FieldLogger
}

// NewCapturer creates a capturer that describes the local host in its records.
func NewCapturer(ctx context.Context, log logrus.FieldLogger, opts Options) *Capturer {
	if opts.NodeBinary == "" {
		opts.NodeBinary = "node"
	}

	if opts.Repo == "" {
		opts.Repo = "https://github.com/expressjs/" + opts.PackageName
	}

	if opts.GitRef == "" {
		opts.GitRef = "unknown"
	}

	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}

	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	c := &Capturer{
		opts: opts,
		now:  time.Now,
		log:  log.WithField("component", "capture"),
	}

	host, err := LocalHost(ctx)
	if err != nil {
		c.log.WithError(err).Warn("host metadata is incomplete")
	}

	c.host = host

	c.log.WithFields(logrus.Fields{
		"platform":  c.host.Platform,
		"arch":      c.host.Arch,
		"cpus":      len(c.host.CPUs),
		"total_mem": format.Bytes(int64(c.host.TotalMem)), //nolint:gosec // G115: host memory fits in int64
	}).Debug("capture host")

	return c
}

// Capture runs the workload of def in sandboxDir under label, then writes the
// record next to it. A workload that exits non-zero is an error; a missing or
// malformed load-test summary is not.
func (c *Capturer) Capture(ctx context.Context, label string, def *fixture.Definition, sandboxDir string) (*Result, error) {
	log := c.log.WithFields(logrus.Fields{
		"label":  label,
		"folder": def.Folder,
	})

	resultsFile := filepath.Join(sandboxDir, ClientResultsFile)
	if err := os.Remove(resultsFile); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("clearing %s: %w", resultsFile, err)
	}

	cmd := exec.CommandContext(ctx, c.opts.NodeBinary, def.Workload) //nolint:gosec // G204: workload script from the test folder settings
	cmd.Dir = sandboxDir
	cmd.Env = append(os.Environ(),
		EnvLabel+"="+label,
		EnvTestFolder+"="+def.Folder,
		EnvConnections+"="+strconv.Itoa(def.Connections),
		EnvDuration+"="+strconv.Itoa(def.Duration),
		EnvClientResultsFile+"="+resultsFile,
	)

	var stdout bytes.Buffer
	cmd.Stdout = io.MultiWriter(c.opts.Stdout, &stdout)
	cmd.Stderr = c.opts.Stderr

	log.WithField("workload", def.Workload).Info("running workload")

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if err != nil {
		return nil, fmt.Errorf("running workload %s for %s/%s: %w", def.Workload, label, def.Folder, err)
	}

	client, source := c.clientResults(log, resultsFile, stdout.Bytes())
	if source == sourceNone && c.opts.RequireClientResults {
		return nil, fmt.Errorf("workload %s for %s/%s: %w", def.Workload, label, def.Folder, ErrNoClientResults)
	}

	log.WithFields(logrus.Fields{
		"elapsed":        format.Duration(elapsed),
		"client_results": source,
	}).Debug("workload finished")

	rec := c.newRecord(def, elapsed, client)

	name, err := rec.Save(sandboxDir, label, def.Folder)
	if err != nil {
		return nil, err
	}

	log.WithField("file", name).Info("saved result")

	return &Result{
		Record:   rec,
		Filename: name,
		Path:     filepath.Join(sandboxDir, name),
		Elapsed:  elapsed,
	}, nil
}

// clientResults prefers the results file and falls back to the stdout block.
func (c *Capturer) clientResults(log logrus.FieldLogger, resultsFile string, stdout []byte) (*record.ClientResults, string) {
	data, err := os.ReadFile(resultsFile) //nolint:gosec // G304: file inside the sandbox we created
	switch {
	case err == nil:
		client, perr := ParseClientResults(data)
		if perr == nil {
			return client, sourceFile
		}

		log.WithError(perr).Warn("ignoring malformed client results file")
	case !os.IsNotExist(err):
		log.WithError(err).Warn("could not read client results file")
	}

	block, ok, err := ExtractBlock(stdout)
	if err != nil {
		log.WithError(err).Warn("client results block may be incomplete")
	}

	if !ok {
		log.Debug("workload reported no client results")
		return placeholderClientResults(), sourceNone
	}

	client, err := ParseClientResults(block)
	if err != nil {
		log.WithError(err).Warn("ignoring malformed client results block")
		return placeholderClientResults(), sourceNone
	}

	return client, sourceStdout
}

func (c *Capturer) newRecord(def *fixture.Definition, elapsed time.Duration, client *record.ClientResults) *record.Record {
	return &record.Record{
		SchemaVersion: record.SchemaVersion,
		Timestamp:     c.now().UnixMilli(),
		RunMetadata: record.RunMetadata{
			Repo:   c.opts.Repo,
			GitRef: c.opts.GitRef,
			ToolSettings: record.ToolSettings{
				Connections: def.Connections,
				Duration:    def.Duration,
			},
		},
		ServerMetadata: c.host.Metadata(true),
		ClientMetadata: c.host.Metadata(false),
		ServerResults: record.ServerResults{
			ExecutionTimeMs: record.Float(format.Milliseconds(elapsed)),
		},
		ClientResults: client,
	}
}

// placeholderClientResults is what a run without a load-test summary records:
// a zero average latency and nothing else.
func placeholderClientResults() *record.ClientResults {
	return &record.ClientResults{Latency: &record.Latency{AverageMs: 0}}
}
