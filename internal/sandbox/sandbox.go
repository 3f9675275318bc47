// Package sandbox provisions the throwaway directory a workload runs in: a
// fresh npm project with one version of the package under test installed and
// the test folder's files copied alongside.
package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/expressjs/perf-runner/internal/record"
	"github.com/sirupsen/logrus"
)

var errUnknownLabel = errors.New("unknown label")

// CommandRunner runs an external command inside a directory.
type CommandRunner interface {
	Run(ctx context.Context, dir, name string, args ...string) error
}

// Options configures a Manager.
type Options struct {
	Root           string
	PackageName    string
	CandidatePath  string
	PackageManager string
}

// Manager prepares sandboxes for the two labels.
type Manager struct {
	opts   Options
	runner CommandRunner
	log    logrus.FieldLogger
}

// NewManager creates a sandbox manager. A nil runner executes real commands.
func NewManager(log logrus.FieldLogger, opts Options, runner CommandRunner) *Manager {
	if opts.PackageManager == "" {
		opts.PackageManager = "npm"
	}

	m := &Manager{
		opts: opts,
		log:  log.WithField("component", "sandbox"),
	}

	if runner == nil {
		runner = &execRunner{log: m.log}
	}

	m.runner = runner

	return m
}

// Dir returns the sandbox directory for a label and folder.
func (m *Manager) Dir(label, folder string) string {
	return record.SandboxDir(m.opts.Root, label, folder)
}

// InstallSpec returns what gets installed for a label: the published release
// for latest and the local build for candidate.
func (m *Manager) InstallSpec(label string) (string, error) {
	switch label {
	case record.LabelLatest:
		return m.opts.PackageName + "@latest", nil
	case record.LabelCandidate:
		return m.opts.CandidatePath, nil
	default:
		return "", fmt.Errorf("%w: %q", errUnknownLabel, label)
	}
}

// Prepare recreates the sandbox for label and folder, installs the package and
// copies the fixture files into it. It returns the sandbox directory.
func (m *Manager) Prepare(ctx context.Context, label, folder, fixtureDir string) (string, error) {
	spec, err := m.InstallSpec(label)
	if err != nil {
		return "", err
	}

	dir := m.Dir(label, folder)

	log := m.log.WithFields(logrus.Fields{
		"label":  label,
		"folder": folder,
		"dir":    dir,
	})

	log.Info("preparing sandbox")

	if err := os.RemoveAll(dir); err != nil {
		return "", fmt.Errorf("removing old sandbox %s: %w", dir, err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // G301: sandbox must be readable by the package manager
		return "", fmt.Errorf("creating sandbox %s: %w", dir, err)
	}

	if err := m.runner.Run(ctx, dir, m.opts.PackageManager, "init", "-y"); err != nil {
		return "", fmt.Errorf("initializing project in %s: %w", dir, err)
	}

	log.WithField("spec", spec).Debug("installing package")

	if err := m.runner.Run(ctx, dir, m.opts.PackageManager, "install", spec); err != nil {
		return "", fmt.Errorf("installing %s: %w", spec, err)
	}

	if err := CopyDir(fixtureDir, dir); err != nil {
		return "", fmt.Errorf("copying fixture %s: %w", fixtureDir, err)
	}

	log.Debug("sandbox ready")

	return dir, nil
}

// CopyDir copies the contents of src into dst, preserving file modes.
// Symlinks are recreated with their original target, never followed.
func CopyDir(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}

		target := filepath.Join(dst, rel)

		if d.Type()&fs.ModeSymlink != 0 {
			return copySymlink(path, target)
		}

		if d.IsDir() {
			return os.MkdirAll(target, 0o755) //nolint:gosec // G301: mirrors fixture layout
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		return copyFile(path, target, info.Mode().Perm())
	})
}

func copySymlink(src, dst string) error {
	link, err := os.Readlink(src)
	if err != nil {
		return err
	}

	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return err
	}

	return os.Symlink(link, dst)
}

func copyFile(src, dst string, mode fs.FileMode) error {
	in, err := os.Open(src) //nolint:gosec // G304: fixture files from the configured test directory
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode) //nolint:gosec // G304: destination inside the sandbox
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}

	return out.Close()
}

type execRunner struct {
	log logrus.FieldLogger
}

// Run executes the command, surfacing its output only when it fails.
func (r *execRunner) Run(ctx context.Context, dir, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec // G204: package manager and arguments come from validated config
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.log.WithFields(logrus.Fields{
		"cmd":  name,
		"args": args,
	}).Debug("running command")

	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			_, _ = fmt.Fprintf(os.Stderr, "%s", stderr.String())
		}

		if stdout.Len() > 0 {
			_, _ = fmt.Fprintf(os.Stdout, "%s", stdout.String())
		}

		return fmt.Errorf("%s %v failed: %w", name, args, err)
	}

	return nil
}
