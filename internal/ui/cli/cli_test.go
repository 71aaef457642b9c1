package cli

import (
	"bytes"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	messy = "from pkg import Thing\ndef f() -> Thing:\n    return Thing()\n"
	tidy  = "def f():\n    from pkg import Thing\n    return Thing()\n"
)

func setupProject(t *testing.T, config string) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "pyshape.toml"), []byte(config), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "mod.py"), []byte(messy), 0o644))
	t.Chdir(root)
	return root
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := NewRootCommand(&stdout, &stderr)
	root.SetArgs(append([]string{"--ui", "off"}, args...))
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var exit *exitError
	if stderrors.As(err, &exit) {
		return exit.code
	}
	return exitFailure
}

const relocateOnly = `options = ["relocate-imports"]
[cache]
enabled = false
`

func TestRunRewritesFiles(t *testing.T) {
	root := setupProject(t, relocateOnly)

	stdout, _, err := execute(t, "run")
	require.NoError(t, err)
	assert.Contains(t, stdout, "reshaped mod.py")

	got, err := os.ReadFile(filepath.Join(root, "mod.py"))
	require.NoError(t, err)
	assert.Equal(t, tidy, string(got))

	_, _, err = execute(t, "check")
	assert.NoError(t, err, "a rewritten tree is clean")
}

func TestCheckLeavesFilesAndExitsDirty(t *testing.T) {
	root := setupProject(t, relocateOnly)

	stdout, _, err := execute(t, "check")
	assert.Equal(t, exitDirty, exitCode(err))
	assert.Contains(t, stdout, "would reshape mod.py")

	got, err := os.ReadFile(filepath.Join(root, "mod.py"))
	require.NoError(t, err)
	assert.Equal(t, messy, string(got))
}

func TestRunCheckSettingActsLikeCheck(t *testing.T) {
	root := setupProject(t, relocateOnly+"[run]\ncheck = true\n")

	_, _, err := execute(t, "run")
	assert.Equal(t, exitDirty, exitCode(err))

	got, err := os.ReadFile(filepath.Join(root, "mod.py"))
	require.NoError(t, err)
	assert.Equal(t, messy, string(got))
}

func TestDiffPrintsUnifiedDiff(t *testing.T) {
	setupProject(t, relocateOnly)

	stdout, stderr, err := execute(t, "diff")
	assert.Equal(t, exitDirty, exitCode(err))
	assert.True(t, strings.HasPrefix(stdout, "--- a/mod.py\n+++ b/mod.py\n"), stdout)
	assert.Contains(t, stdout, "+    from pkg import Thing\n")
	assert.Contains(t, stderr, "would reshape mod.py")
}

func TestOptionsFlagOverridesConfig(t *testing.T) {
	setupProject(t, relocateOnly)

	_, _, err := execute(t, "check", "--options", "order-main-guard")
	assert.NoError(t, err)

	_, _, err = execute(t, "check", "--options", "no-such-pass")
	require.Error(t, err)
	assert.Equal(t, exitFailure, exitCode(err))
	assert.Contains(t, err.Error(), "no-such-pass")
}

func TestExplicitPathArguments(t *testing.T) {
	root := setupProject(t, relocateOnly)
	other := filepath.Join(root, "other.py")
	require.NoError(t, os.WriteFile(other, []byte("import os\n\nos.getcwd()\n"), 0o644))

	_, _, err := execute(t, "check", "other.py")
	assert.NoError(t, err, "only the named file is checked")
}

func TestPassesListsSequence(t *testing.T) {
	setupProject(t, relocateOnly)

	stdout, _, err := execute(t, "passes")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 22)
	assert.True(t, strings.HasPrefix(lines[0], "remove-unused"))
	assert.True(t, strings.HasPrefix(lines[len(lines)-1], "fix-blank-lines"))

	for _, line := range lines {
		fields := strings.Fields(line)
		require.GreaterOrEqual(t, len(fields), 3)
		want := "off"
		if fields[0] == "relocate-imports" {
			want = "on"
		}
		assert.Equal(t, want, fields[2], line)
		if fields[0] == "fix-attrs" {
			assert.Equal(t, "opt-in", fields[1])
		}
	}
}

func TestCacheClear(t *testing.T) {
	setupProject(t, `options = ["relocate-imports"]`)

	stdout, _, err := execute(t, "cache", "clear")
	require.NoError(t, err)
	assert.Contains(t, stdout, "cache is empty")

	_, _, err = execute(t, "run")
	require.NoError(t, err)
	stdout, _, err = execute(t, "check")
	require.NoError(t, err)
	assert.Contains(t, stdout, "1 unchanged")

	stdout, _, err = execute(t, "cache", "clear")
	require.NoError(t, err)
	assert.Contains(t, stdout, "removed 1 cache entries")
}

func TestInvalidConfigFails(t *testing.T) {
	setupProject(t, "version = 7\n")

	_, _, err := execute(t, "check")
	require.Error(t, err)
	assert.Equal(t, exitFailure, exitCode(err))
}

func TestCheckFormats(t *testing.T) {
	setupProject(t, relocateOnly)

	t.Run("SARIF", func(t *testing.T) {
		stdout, _, err := execute(t, "check", "--format", "sarif")
		assert.Equal(t, exitDirty, exitCode(err))
		assert.Contains(t, stdout, `"ruleId": "relocate-imports"`)
		assert.Contains(t, stdout, `"uri": "mod.py"`)
	})

	t.Run("TSV", func(t *testing.T) {
		stdout, _, err := execute(t, "check", "--format", "tsv")
		assert.Equal(t, exitDirty, exitCode(err))
		assert.Contains(t, stdout, "mod.py\tchanged\trelocate-imports\t\t\n")
	})

	t.Run("Unknown", func(t *testing.T) {
		_, _, err := execute(t, "run", "--format", "xml")
		require.Error(t, err)
		got, readErr := os.ReadFile("mod.py")
		require.NoError(t, readErr)
		assert.Equal(t, messy, string(got), "nothing is written for a bad flag")
	})
}

func TestHistoryListsRuns(t *testing.T) {
	setupProject(t, `options = ["relocate-imports"]`)

	stdout, _, err := execute(t, "history")
	require.NoError(t, err)
	assert.Contains(t, stdout, "no runs recorded")

	_, _, err = execute(t, "check")
	require.Equal(t, exitDirty, exitCode(err))
	_, _, err = execute(t, "run")
	require.NoError(t, err)

	stdout, _, err = execute(t, "history")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "Timestamp\tRun\tMode")

	stdout, _, err = execute(t, "history", "--json", "--limit", "1")
	require.NoError(t, err)
	assert.Contains(t, stdout, `"mode": "`)
	assert.Equal(t, 1, strings.Count(stdout, `"run_id"`))
}
