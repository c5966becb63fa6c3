package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sderrors "github.com/shaderdex/shaderdex/internal/errors"
	"github.com/shaderdex/shaderdex/internal/shader"
)

func TestRootCmd_ShowsHelp(t *testing.T) {
	stdout, _, err := execute(t, "--help")

	require.NoError(t, err)
	assert.Contains(t, stdout, "shaderdex", "Help should mention program name")
	assert.Contains(t, stdout, "Usage:", "Help should show usage")
	assert.Contains(t, stdout, "--tags", "Help should list query flags")
}

func TestRootCmd_ShowsVersion(t *testing.T) {
	stdout, _, err := execute(t, "--version")

	require.NoError(t, err)
	assert.Contains(t, stdout, "shaderdex version")
}

func TestRootCmd_RegistersOneFlagPerKind(t *testing.T) {
	cmd := NewRootCmd()

	for _, k := range shader.Kinds() {
		flag := cmd.Flags().Lookup(k.String())
		require.NotNil(t, flag, "kind %s should have a flag", k)
		assert.Equal(t, "bool", flag.Value.Type())
	}
}

func TestRootCmd_EmptyQueryIsUsageError(t *testing.T) {
	dir := writeTestCorpus(t)

	// No clauses at all: the command must refuse to run rather than
	// dump the whole corpus.
	stdout, stderr, err := execute(t, "--json-dir", dir)

	require.Error(t, err)
	assert.True(t, sderrors.IsCode(err, sderrors.ErrCodeEmptyQuery), "got %v", err)
	assert.Contains(t, stdout+stderr, "Usage:", "empty query should print usage")
}

func TestRootCmd_MissingCorpusDirFails(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "does-not-exist")

	_, _, err := execute(t, "--tags", "ocean", "--json-dir", missing)

	require.Error(t, err)
	assert.True(t, sderrors.IsCode(err, sderrors.ErrCodeDirNotFound), "got %v", err)
}

func TestRootCmd_RejectsUnknownLogLevel(t *testing.T) {
	dir := writeTestCorpus(t)

	_, _, err := execute(t, "--log-level", "loud", "--tags", "ocean", "--json-dir", dir)

	require.Error(t, err)
	assert.True(t, sderrors.IsCode(err, sderrors.ErrCodeConfigInvalid), "got %v", err)
}

func TestRootCmd_HasExpectedSubcommands(t *testing.T) {
	root := NewRootCmd()

	for _, name := range []string{"index", "enrich", "serve", "stats", "config", "version"} {
		sub, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}
}

func TestRootCmd_ProfilingFlagsWriteProfiles(t *testing.T) {
	dir := writeTestCorpus(t)
	tmp := t.TempDir()
	cpuPath := filepath.Join(tmp, "cpu.prof")
	memPath := filepath.Join(tmp, "heap.prof")

	_, _, err := execute(t, "--tags", "ocean", "--json-dir", dir,
		"--profile-cpu", cpuPath, "--profile-mem", memPath)

	require.NoError(t, err)
	for _, path := range []string{cpuPath, memPath} {
		info, err := os.Stat(path)
		require.NoError(t, err, "profile %s should exist", path)
		assert.Greater(t, info.Size(), int64(0), "profile %s should not be empty", path)
	}
}
