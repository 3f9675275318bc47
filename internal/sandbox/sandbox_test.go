package sandbox

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	dir  string
	name string
	args []string
}

type fakeRunner struct {
	calls  []call
	failOn string
}

func (f *fakeRunner) Run(_ context.Context, dir, name string, args ...string) error {
	f.calls = append(f.calls, call{dir: dir, name: name, args: args})

	if f.failOn != "" && len(args) > 0 && args[0] == f.failOn {
		return errors.New("exit status 1")
	}

	return nil
}

func newTestManager(t *testing.T, runner CommandRunner) (*Manager, string) {
	t.Helper()

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	root := filepath.Join(t.TempDir(), "perf-test")

	return NewManager(log, Options{
		Root:          root,
		PackageName:   "express",
		CandidatePath: "/app",
	}, runner), root
}

func writeFixture(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "run-test.mjs"), []byte("console.log('hi')\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "public"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "public", "index.html"), []byte("<h1>hi</h1>"), 0o644))

	return dir
}

func TestInstallSpec(t *testing.T) {
	m, _ := newTestManager(t, &fakeRunner{})

	spec, err := m.InstallSpec("latest")
	require.NoError(t, err)
	assert.Equal(t, "express@latest", spec)

	spec, err = m.InstallSpec("candidate")
	require.NoError(t, err)
	assert.Equal(t, "/app", spec)

	_, err = m.InstallSpec("nightly")
	require.ErrorIs(t, err, errUnknownLabel)
}

func TestPrepare_RunsPackageManagerAndCopiesFixture(t *testing.T) {
	runner := &fakeRunner{}
	m, root := newTestManager(t, runner)
	fixture := writeFixture(t)

	dir, err := m.Prepare(context.Background(), "latest", "hello-world", fixture)
	require.NoError(t, err)

	assert.Equal(t, root+"-latest-hello-world", dir)

	require.Len(t, runner.calls, 2)
	assert.Equal(t, call{dir: dir, name: "npm", args: []string{"init", "-y"}}, runner.calls[0])
	assert.Equal(t, call{dir: dir, name: "npm", args: []string{"install", "express@latest"}}, runner.calls[1])

	content, err := os.ReadFile(filepath.Join(dir, "public", "index.html"))
	require.NoError(t, err)
	assert.Equal(t, "<h1>hi</h1>", string(content))
	assert.FileExists(t, filepath.Join(dir, "run-test.mjs"))
}

func TestPrepare_RecreatesDirectory(t *testing.T) {
	m, _ := newTestManager(t, &fakeRunner{})
	fixture := writeFixture(t)

	dir := m.Dir("candidate", "routing")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	stale := filepath.Join(dir, "result-candidate-routing-1.json")
	require.NoError(t, os.WriteFile(stale, []byte("{}"), 0o600))

	_, err := m.Prepare(context.Background(), "candidate", "routing", fixture)
	require.NoError(t, err)

	assert.NoFileExists(t, stale)
}

func TestPrepare_InstallFailure(t *testing.T) {
	m, _ := newTestManager(t, &fakeRunner{failOn: "install"})

	_, err := m.Prepare(context.Background(), "candidate", "routing", writeFixture(t))
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "installing /app"), err.Error())
}

func TestCopyDir_RecreatesSymlinks(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "shared"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "shared", "data.json"), []byte("{}"), 0o600))
	require.NoError(t, os.Symlink("shared", filepath.Join(src, "linked-dir")))
	require.NoError(t, os.Symlink(filepath.Join("shared", "data.json"), filepath.Join(src, "linked-file.json")))

	dst := t.TempDir()
	require.NoError(t, CopyDir(src, dst))

	for name, want := range map[string]string{
		"linked-dir":       "shared",
		"linked-file.json": filepath.Join("shared", "data.json"),
	} {
		info, err := os.Lstat(filepath.Join(dst, name))
		require.NoError(t, err, name)
		assert.NotZero(t, info.Mode()&os.ModeSymlink, name)

		target, err := os.Readlink(filepath.Join(dst, name))
		require.NoError(t, err)
		assert.Equal(t, want, target)
	}

	data, err := os.ReadFile(filepath.Join(dst, "linked-dir", "data.json"))
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}
