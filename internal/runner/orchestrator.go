// Package runner drives a comparison run: for each test folder it provisions
// both sandboxes, captures both records, compares them from disk and finally
// surfaces the assembled report.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/expressjs/perf-runner/internal/capture"
	"github.com/expressjs/perf-runner/internal/config"
	"github.com/expressjs/perf-runner/internal/fixture"
	"github.com/expressjs/perf-runner/internal/metrics"
	"github.com/expressjs/perf-runner/internal/notify"
	"github.com/expressjs/perf-runner/internal/output"
	"github.com/expressjs/perf-runner/internal/publish"
	"github.com/expressjs/perf-runner/internal/record"
	"github.com/expressjs/perf-runner/internal/report"
	"github.com/expressjs/perf-runner/internal/sandbox"
	"github.com/sirupsen/logrus"
)

// ErrFoldersFailed is returned by best-effort runs in which at least one
// folder could not be compared.
var ErrFoldersFailed = errors.New("some test folders failed")

// labels are run in this order for every folder.
var labels = []string{record.LabelLatest, record.LabelCandidate}

// Provisioner prepares the sandbox of one label and folder.
type Provisioner interface {
	Prepare(ctx context.Context, label, folder, fixtureDir string) (string, error)
}

// Capturer runs a workload and persists its record.
type Capturer interface {
	Capture(ctx context.Context, label string, def *fixture.Definition, sandboxDir string) (*capture.Result, error)
}

// Notifier delivers the finished report.
type Notifier interface {
	Notify(ctx context.Context, report string) error
}

// OrchestratorConfig contains configuration for a run.
type OrchestratorConfig struct {
	Logger           logrus.FieldLogger
	Verbose          bool
	Writer           io.Writer
	MetricsCollector metrics.Collector
	Loader           fixture.Loader
	Sandbox          Provisioner
	Capturer         Capturer

	// Publisher and Notifier are optional.
	Publisher     publish.Publisher
	Notifier      Notifier
	Renderer      *report.Renderer
	FailurePolicy config.FailurePolicy
	ReportContext report.Context
	RunID         string
}

// Outcome is what a run produced.
type Outcome struct {
	RunID    string
	Report   *report.Report
	Document string
}

// Orchestrator coordinates a comparison run.
type Orchestrator struct {
	loader        fixture.Loader
	sandbox       Provisioner
	capturer      Capturer
	publisher     publish.Publisher
	notifier      Notifier
	renderer      *report.Renderer
	policy        config.FailurePolicy
	reportContext report.Context
	runID         string
	log           logrus.FieldLogger
	metrics       metrics.Collector
	formatter     output.Formatter
}

// NewOrchestrator creates a new run orchestrator.
func NewOrchestrator(cfg *OrchestratorConfig) *Orchestrator {
	writer := cfg.Writer
	if writer == nil {
		writer = os.Stdout
	}

	renderer := cfg.Renderer
	if renderer == nil {
		renderer = report.NewRenderer()
	}

	policy := cfg.FailurePolicy
	if policy == "" {
		policy = config.FailFast
	}

	return &Orchestrator{
		loader:        cfg.Loader,
		sandbox:       cfg.Sandbox,
		capturer:      cfg.Capturer,
		publisher:     cfg.Publisher,
		notifier:      cfg.Notifier,
		renderer:      renderer,
		policy:        policy,
		reportContext: cfg.ReportContext,
		runID:         cfg.RunID,
		log:           cfg.Logger.WithField("component", "run_orchestrator"),
		metrics:       cfg.MetricsCollector,
		formatter:     output.NewFormatter(writer, cfg.Verbose, cfg.MetricsCollector),
	}
}

// Start initializes the orchestrator and all its components.
func (o *Orchestrator) Start(ctx context.Context) error {
	if err := o.metrics.Start(ctx); err != nil {
		return fmt.Errorf("starting metrics collector: %w", err)
	}

	o.log.WithField("run_id", o.runID).Debug("run orchestrator started")

	return nil
}

// Stop releases the orchestrator's resources.
func (o *Orchestrator) Stop() error {
	var errs []error

	if c, ok := o.publisher.(publish.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing publishers: %w", err))
		}
	}

	if err := o.metrics.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("stopping metrics collector: %w", err))
	}

	return errors.Join(errs...)
}

// Run compares the given folders, or every discovered folder when none are
// given. Under fail-fast the first folder failure aborts the run and no report
// is posted. Under best-effort failures become report sections and the run
// returns ErrFoldersFailed after the report has been surfaced.
func (o *Orchestrator) Run(ctx context.Context, folders []string) (*Outcome, error) {
	defs, err := o.loader.Select(folders)
	if err != nil {
		return nil, fmt.Errorf("selecting test folders: %w", err)
	}

	o.log.WithFields(logrus.Fields{
		"folders": len(defs),
		"policy":  o.policy,
		"run_id":  o.runID,
	}).Info("starting comparison run")

	outcome := &Outcome{RunID: o.runID, Report: &report.Report{}}

	var failures []error

	for _, def := range defs {
		o.formatter.PrintPhase(fmt.Sprintf("Testing %s", def.Folder))

		section, err := o.runFolder(ctx, def)
		if err == nil {
			outcome.Report.Add(section)
			continue
		}

		o.formatter.PrintError(fmt.Sprintf("%s failed", def.Folder), err)

		if o.policy == config.FailFast || ctx.Err() != nil {
			o.formatter.PrintFolderResults()
			return outcome, fmt.Errorf("test folder %s: %w", def.Folder, err)
		}

		outcome.Report.Add(report.FailedSection(def.Folder, err))
		failures = append(failures, fmt.Errorf("%s: %w", def.Folder, err))
	}

	outcome.Document = outcome.Report.Document(o.reportContext)

	o.formatter.PrintReport(outcome.Document)
	o.deliver(ctx, outcome.Document)

	o.formatter.PrintFolderResults()
	o.formatter.PrintSummary()

	if len(failures) > 0 {
		return outcome, fmt.Errorf("%w: %w", ErrFoldersFailed, errors.Join(failures...))
	}

	return outcome, nil
}

// runFolder captures latest then candidate and compares the persisted records.
func (o *Orchestrator) runFolder(ctx context.Context, def *fixture.Definition) (report.Section, error) {
	start := time.Now()
	metric := &metrics.FolderMetric{Folder: def.Folder, Timestamp: start}

	defer func() {
		metric.Duration = time.Since(start)
		o.metrics.RecordFolder(metric)
	}()

	paths := make(map[string]string, len(labels))

	for _, label := range labels {
		res, err := o.captureLabel(ctx, label, def)
		if err != nil {
			metric.ErrorMessage = err.Error()
			return report.Section{}, err
		}

		switch label {
		case record.LabelLatest:
			metric.Latest = res.Elapsed
		case record.LabelCandidate:
			metric.Candidate = res.Elapsed
		}

		paths[label] = res.Path

		o.publishResult(ctx, label, def.Folder, res)
	}

	baseline, err := record.Load(paths[record.LabelLatest])
	if err != nil {
		metric.ErrorMessage = err.Error()
		return report.Section{}, err
	}

	candidate, err := record.Load(paths[record.LabelCandidate])
	if err != nil {
		metric.ErrorMessage = err.Error()
		return report.Section{}, err
	}

	section := report.BuildSection(o.renderer, def.Folder, baseline, candidate)

	metric.Passed = true
	metric.HasLoadTest = section.Comparison.HasLoadTest

	o.formatter.PrintComparison(section)

	return section, nil
}

func (o *Orchestrator) captureLabel(ctx context.Context, label string, def *fixture.Definition) (*capture.Result, error) {
	prepStart := time.Now()

	dir, err := o.sandbox.Prepare(ctx, label, def.Folder, def.Dir)
	if err != nil {
		return nil, fmt.Errorf("preparing %s sandbox: %w", label, err)
	}

	o.formatter.PrintProgress(fmt.Sprintf("Prepared %s sandbox", label), time.Since(prepStart))

	res, err := o.capturer.Capture(ctx, label, def, dir)
	if err != nil {
		return nil, fmt.Errorf("capturing %s: %w", label, err)
	}

	o.formatter.PrintProgress(fmt.Sprintf("Captured %s → %s", label, res.Filename), res.Elapsed)

	return res, nil
}

func (o *Orchestrator) publishResult(ctx context.Context, label, folder string, res *capture.Result) {
	if o.publisher == nil {
		return
	}

	start := time.Now()

	err := o.publisher.Publish(ctx, publish.Artifact{
		Record: res.Record,
		Label:  label,
		Folder: folder,
		Path:   res.Path,
		RunID:  o.runID,
	})

	o.metrics.RecordPublish(metrics.PublishMetric{
		Label:    label,
		Folder:   folder,
		Failed:   err != nil,
		Duration: time.Since(start),
	})

	if err != nil {
		o.log.WithError(err).WithFields(logrus.Fields{
			"label":  label,
			"folder": folder,
		}).Warn("result not published")
	}
}

func (o *Orchestrator) deliver(ctx context.Context, document string) {
	if o.notifier == nil {
		return
	}

	if err := o.notifier.Notify(ctx, document); err != nil {
		o.formatter.PrintWarning(fmt.Sprintf("Report delivery failed: %v", err))
		return
	}

	o.formatter.PrintSuccess("Report delivered")
}

// Compile-time interface compliance checks
var (
	_ Notifier    = (*notify.Manager)(nil)
	_ Provisioner = (*sandbox.Manager)(nil)
	_ Capturer    = (*capture.Capturer)(nil)
)
