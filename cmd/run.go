package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/expressjs/perf-runner/internal/capture"
	"github.com/expressjs/perf-runner/internal/config"
	"github.com/expressjs/perf-runner/internal/fixture"
	"github.com/expressjs/perf-runner/internal/metrics"
	"github.com/expressjs/perf-runner/internal/notify"
	"github.com/expressjs/perf-runner/internal/publish"
	"github.com/expressjs/perf-runner/internal/report"
	"github.com/expressjs/perf-runner/internal/runner"
	"github.com/expressjs/perf-runner/internal/sandbox"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// Run command flags
	runFailurePolicy string
	runTimeout       time.Duration
	runVerbose       bool
	runOutput        string
)

var runCmd = &cobra.Command{
	Use:   "run [folder...]",
	Short: "Compare the latest release against the candidate build",
	Long: `Run the full comparison pipeline.

For every test folder (all folders under $CANDIDATE_PATH/$TEST_DIR unless some are
named) the command:
- Installs {package}@latest into a fresh sandbox and runs the workload
- Installs the candidate build into a fresh sandbox and runs the workload
- Persists both records and compares them from disk
- Publishes the records to the configured sinks

The assembled report is printed, and posted as a pull request comment when
PR_NUMBER and GITHUB_TOKEN are set.

Example:
  perf-runner run
  perf-runner run hello-world routing --failure-policy best-effort`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runComparison(cmd.Context(), args, runSettings{
			failurePolicy: runFailurePolicy,
			timeout:       runTimeout,
			verbose:       runVerbose,
			output:        runOutput,
		})
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runFailurePolicy, "failure-policy", "", "Override FAILURE_POLICY (fail-fast, best-effort)")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "Overall run timeout (0 disables it)")
	runCmd.Flags().BoolVar(&runVerbose, "verbose", false, "Verbose output")
	runCmd.Flags().StringVar(&runOutput, "output", "", "Also write the report to this file")
}

// runSettings are the per-invocation overrides of a run.
type runSettings struct {
	failurePolicy string
	timeout       time.Duration
	verbose       bool
	output        string
}

func loadRunConfig(failurePolicy string) (*config.Config, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	if failurePolicy != "" {
		policy, err := config.ParseFailurePolicy(failurePolicy)
		if err != nil {
			return nil, err
		}
		cfg.FailurePolicy = policy
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func runComparison(ctx context.Context, folders []string, settings runSettings) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if settings.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, settings.timeout)
		defer cancel()
	}

	cfg, err := loadRunConfig(settings.failurePolicy)
	if err != nil {
		return err
	}

	log := newLogger(settings.verbose)

	orchestrator := setupOrchestrator(ctx, cfg, log, settings.verbose)
	defer func() {
		if err := orchestrator.Stop(); err != nil {
			log.WithError(err).Warn("failed to stop orchestrator")
		}
	}()

	if err := orchestrator.Start(ctx); err != nil {
		return fmt.Errorf("starting orchestrator: %w", err)
	}

	outcome, runErr := orchestrator.Run(ctx, folders)

	if settings.output != "" && outcome != nil && outcome.Document != "" {
		if err := os.WriteFile(settings.output, []byte(outcome.Document), 0o600); err != nil {
			return errors.Join(runErr, fmt.Errorf("writing report to %s: %w", settings.output, err))
		}

		log.WithField("path", settings.output).Info("report written")
	}

	return runErr
}

func setupOrchestrator(ctx context.Context, cfg *config.Config, log *logrus.Logger, verbose bool) *runner.Orchestrator {
	nodeVersion := cfg.NodeVersion
	if nodeVersion == "" {
		nodeVersion = capture.NodeVersion(ctx, cfg.NodeBinary)
	}

	runID := uuid.NewString()

	loader := fixture.NewLoader(log, filepath.Join(cfg.CandidatePath, cfg.TestDir), fixture.Defaults{
		Connections: cfg.Connections,
		Duration:    cfg.Duration,
		Workload:    cfg.WorkloadScript,
	})

	sandboxManager := sandbox.NewManager(log, sandbox.Options{
		Root:           cfg.SandboxRoot,
		PackageName:    cfg.PackageName,
		CandidatePath:  cfg.CandidatePath,
		PackageManager: cfg.PackageManager,
	}, nil)

	capturer := capture.NewCapturer(ctx, log, capture.Options{
		PackageName:          cfg.PackageName,
		Repo:                 cfg.RepoURL(),
		GitRef:               cfg.GitRef,
		NodeBinary:           cfg.NodeBinary,
		RequireClientResults: cfg.RequireClientResults,
	})

	orchestratorCfg := &runner.OrchestratorConfig{
		Logger:           log,
		Verbose:          verbose,
		Writer:           os.Stdout,
		MetricsCollector: metrics.NewCollector(log),
		Loader:           loader,
		Sandbox:          sandboxManager,
		Capturer:         capturer,
		FailurePolicy:    cfg.FailurePolicy,
		ReportContext:    report.Context{NodeVersion: nodeVersion},
		RunID:            runID,
	}

	// Leave the optional collaborators nil when nothing is configured.
	if publishers := publish.FromConfig(ctx, log, cfg); publishers.Len() > 0 {
		log.WithField("publishers", publishers.Names()).Info("publishing results")
		orchestratorCfg.Publisher = publishers
	}

	if notifiers := newNotifiers(log, cfg); notifiers.Len() > 0 {
		orchestratorCfg.Notifier = notifiers
	}

	if cfg.PRMode() {
		orchestratorCfg.ReportContext.PullRequest = cfg.PRNumber
	}

	log.WithFields(logrus.Fields{
		"run_id":       runID,
		"package":      cfg.PackageName,
		"node_version": nodeVersion,
	}).Debug("orchestrator configured")

	return runner.NewOrchestrator(orchestratorCfg)
}

func newNotifiers(log logrus.FieldLogger, cfg *config.Config) *notify.Manager {
	var notifiers []notify.Notifier

	if cfg.PRMode() {
		notifiers = append(notifiers, notify.NewGitHubComment(cfg.GitHubAPIURL, cfg.GitHubRepository, cfg.PRNumber, cfg.GitHubToken))
	}

	if cfg.SlackToken != "" {
		notifiers = append(notifiers, notify.NewSlack(cfg.SlackToken, cfg.SlackChannel))
	}

	return notify.NewManager(log, notifiers...)
}
