package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	scenariosDir = "../../internal/harness/testdata/scenarios"
	goldenDir    = "../../internal/harness/testdata/golden"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := newRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "reactor", cmd.Use)

	for _, name := range []string{"run", "validate", "test"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}

	level := cmd.PersistentFlags().Lookup("log-level")
	require.NotNil(t, level)
	assert.Equal(t, "warn", level.DefValue)
}

func TestInvalidLogLevel(t *testing.T) {
	_, err := execute(t, "run", "--log-level", "loud", filepath.Join(scenariosDir, "formula-memo.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestRun(t *testing.T) {
	t.Run("prints the trace", func(t *testing.T) {
		out, err := execute(t, "run", filepath.Join(scenariosDir, "formula-memo.yaml"))
		require.NoError(t, err)

		want, err := os.ReadFile(filepath.Join(goldenDir, "formula-memo.golden"))
		require.NoError(t, err)
		assert.Equal(t, string(want), out)
	})

	t.Run("separates scenarios", func(t *testing.T) {
		out, err := execute(t, "run",
			filepath.Join(scenariosDir, "formula-memo.yaml"),
			filepath.Join(scenariosDir, "marker-own.yaml"),
		)
		require.NoError(t, err)
		assert.Contains(t, out, "compute double\n\nscenario marker-own\n")
	})

	t.Run("metrics", func(t *testing.T) {
		out, err := execute(t, "run", "--metrics", filepath.Join(scenariosDir, "formula-memo.yaml"))
		require.NoError(t, err)
		assert.Contains(t, out, `reactor_events_total{kind="compute",status="success"} 5`)
	})

	t.Run("failed expectation", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "wrong.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
name: wrong
description: expects the wrong value
cells:
  - name: a
    value: 1
steps:
  - read: a
    expect: 2
`), 0644))

		out, err := execute(t, "run", path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "1 of 1 scenarios failed")
		assert.Contains(t, out, "read a -> 1\n")
		assert.Contains(t, out, "FAIL wrong")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := execute(t, "run", "nope.yaml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read scenario file")
	})
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("name: bad\n"), 0644))

	good := filepath.Join(scenariosDir, "errors.yaml")

	out, err := execute(t, "validate", good, bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 scenario files are invalid")
	assert.Contains(t, out, "✓ "+good+" (errors, 6 steps)")
	assert.Contains(t, out, "✗ "+bad+": invalid scenario: description is required")
}

func TestTestCommand(t *testing.T) {
	t.Run("matches golden files", func(t *testing.T) {
		out, err := execute(t, "test", scenariosDir, "--golden", goldenDir)
		require.NoError(t, err)
		assert.Contains(t, out, "PASS formula-memo.yaml")
		assert.Contains(t, out, " 0 failed")
	})

	t.Run("default golden dir", func(t *testing.T) {
		_, err := execute(t, "test", scenariosDir)
		require.NoError(t, err)
	})

	t.Run("update then mismatch", func(t *testing.T) {
		dir := t.TempDir()
		scenarios := filepath.Join(dir, "scenarios")
		golden := filepath.Join(dir, "golden")
		require.NoError(t, os.MkdirAll(scenarios, 0o755))

		src, err := os.ReadFile(filepath.Join(scenariosDir, "formula-memo.yaml"))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(scenarios, "formula-memo.yaml"), src, 0o644))

		_, err = execute(t, "test", scenarios)
		require.Error(t, err)

		_, err = execute(t, "test", scenarios, "--update")
		require.NoError(t, err)
		_, err = execute(t, "test", scenarios)
		require.NoError(t, err)

		path := filepath.Join(golden, "formula-memo.golden")
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, []byte(strings.Replace(string(data), "read sum -> 30", "read sum -> 31", 1)), 0o644))

		out, err := execute(t, "test", scenarios)
		require.Error(t, err)
		assert.Contains(t, out, "FAIL formula-memo.yaml")
		assert.Contains(t, out, "-read sum -> 31")
		assert.Contains(t, out, "+read sum -> 30")
	})
}

func TestWriteDiff(t *testing.T) {
	var b strings.Builder
	writeDiff(&b, "a\nb\nc\n", "a\nx\nc\n")
	assert.Equal(t, " a\n-b\n+x\n c\n", b.String())
}
