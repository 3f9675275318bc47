// Package fixture discovers test folders and loads their optional perf.yaml
// settings. A test folder holds the workload script and any files it needs; it
// is copied verbatim into each sandbox.
package fixture

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// SettingsFile is the optional per-folder settings file.
const SettingsFile = "perf.yaml"

var (
	errFolderNotFound      = errors.New("test folder not found")
	errNotADirectory       = errors.New("test folder is not a directory")
	errInvalidFolderName   = errors.New("invalid test folder name")
	errNegativeConnections = errors.New("connections must be positive")
	errNegativeDuration    = errors.New("duration must be positive")
	errWorkloadMissing     = errors.New("workload script not found")
	errNoFoldersDiscovered = errors.New("no test folders found")
)

// Defaults are applied to fields a folder's perf.yaml leaves unset.
type Defaults struct {
	Connections int
	Duration    int
	Workload    string
}

// Definition is a test folder ready to be run.
type Definition struct {
	Folder      string `yaml:"-"`
	Dir         string `yaml:"-"`
	Connections int    `yaml:"connections"`
	Duration    int    `yaml:"duration"`
	Workload    string `yaml:"workload"`
	Skip        bool   `yaml:"skip"`
}

// Loader lists and loads test folders.
type Loader interface {
	Discover() ([]string, error)
	Load(folder string) (*Definition, error)
	Select(folders []string) ([]*Definition, error)
}

type loader struct {
	baseDir  string
	defaults Defaults
	log      logrus.FieldLogger
}

// NewLoader creates a loader rooted at baseDir.
func NewLoader(log logrus.FieldLogger, baseDir string, defaults Defaults) Loader {
	return &loader{
		baseDir:  baseDir,
		defaults: defaults,
		log:      log.WithField("component", "fixture_loader"),
	}
}

// Discover returns the visible sub-directories of the test root in lexical order.
func (l *loader) Discover() ([]string, error) {
	entries, err := os.ReadDir(l.baseDir)
	if err != nil {
		return nil, fmt.Errorf("reading test directory %s: %w", l.baseDir, err)
	}

	folders := make([]string, 0, len(entries))

	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		folders = append(folders, entry.Name())
	}

	// os.ReadDir already sorts by name; keep the order explicit.
	sort.Strings(folders)

	l.log.WithField("count", len(folders)).Debug("discovered test folders")

	return folders, nil
}

// Load reads a single folder's settings and applies the defaults.
func (l *loader) Load(folder string) (*Definition, error) {
	if folder == "" || folder != filepath.Base(folder) || strings.HasPrefix(folder, ".") {
		return nil, fmt.Errorf("%w: %q", errInvalidFolderName, folder)
	}

	dir := filepath.Join(l.baseDir, folder)

	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", errFolderNotFound, dir)
		}

		return nil, fmt.Errorf("checking test folder %s: %w", dir, err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", errNotADirectory, dir)
	}

	def := &Definition{}

	path := filepath.Join(dir, SettingsFile)

	data, err := os.ReadFile(path) //nolint:gosec // G304: Reading settings from the configured test directory
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, def); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case os.IsNotExist(err):
		l.log.WithField("folder", folder).Debug("no perf.yaml, using defaults")
	default:
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	def.Folder = folder
	def.Dir = dir
	l.applyDefaults(def)

	if err := validate(def); err != nil {
		return nil, fmt.Errorf("validating %s: %w", folder, err)
	}

	return def, nil
}

// Select loads the given folders, or every discovered folder when none are
// given. Folders marked skip are left out.
func (l *loader) Select(folders []string) ([]*Definition, error) {
	if len(folders) == 0 {
		discovered, err := l.Discover()
		if err != nil {
			return nil, err
		}

		if len(discovered) == 0 {
			return nil, fmt.Errorf("%w in %s", errNoFoldersDiscovered, l.baseDir)
		}

		folders = discovered
	}

	defs := make([]*Definition, 0, len(folders))

	for _, folder := range folders {
		def, err := l.Load(folder)
		if err != nil {
			return nil, err
		}

		if def.Skip {
			l.log.WithField("folder", folder).Info("skipping test folder")
			continue
		}

		defs = append(defs, def)
	}

	return defs, nil
}

func (l *loader) applyDefaults(def *Definition) {
	if def.Connections == 0 {
		def.Connections = l.defaults.Connections
	}

	if def.Duration == 0 {
		def.Duration = l.defaults.Duration
	}

	if def.Workload == "" {
		def.Workload = l.defaults.Workload
	}
}

func validate(def *Definition) error {
	if def.Connections < 0 {
		return fmt.Errorf("%w: %d", errNegativeConnections, def.Connections)
	}

	if def.Duration < 0 {
		return fmt.Errorf("%w: %d", errNegativeDuration, def.Duration)
	}

	if def.Skip {
		return nil
	}

	if _, err := os.Stat(filepath.Join(def.Dir, def.Workload)); err != nil {
		return fmt.Errorf("%w: %s", errWorkloadMissing, def.Workload)
	}

	return nil
}
