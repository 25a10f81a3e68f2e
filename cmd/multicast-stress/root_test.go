package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)

	err = cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestRunCommand(t *testing.T) {
	out, _, err := execute(t, "run", "--mutators", "2", "--invokers", "2", "--observers", "8", "--iterations", "50", "--seed", "9")
	require.NoError(t, err)

	require.Contains(t, out, "Invocations:    100")
	require.Contains(t, out, "Mutations:      100")
	require.Contains(t, out, "Violations:     0")
}

func TestRunCommand_Config(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "stress.json")
	require.NoError(t, os.WriteFile(configPath, []byte(`{"mutators": 1, "invokers": 3, "iterations": 10, "observers": 4}`), 0o600))

	out, _, err := execute(t, "run", "--config", configPath, "--iterations", "20")
	require.NoError(t, err)

	require.Contains(t, out, "Invocations:    60")
}

func TestRunCommand_Verbose(t *testing.T) {
	_, errOut, err := execute(t, "run", "-v", "--mutators", "1", "--invokers", "1", "--observers", "2", "--iterations", "5")
	require.NoError(t, err)

	require.Contains(t, errOut, "stress.run.start")
	require.Contains(t, errOut, "multicast.invoke")
}

func TestRunCommand_MissingConfig(t *testing.T) {
	_, _, err := execute(t, "run", "--config", filepath.Join(t.TempDir(), "nope.json"))
	require.ErrorContains(t, err, "failed to read config file")
}

func TestRunCommand_InvalidRatio(t *testing.T) {
	_, _, err := execute(t, "run", "--release-ratio", "2")
	require.ErrorContains(t, err, "release_ratio")
}

func TestRunCommand_ReleaseRatioZero(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "stress.json")
	require.NoError(t, os.WriteFile(configPath, []byte(`{"release_ratio": 0.5}`), 0o600))

	out, _, err := execute(t, "run", "--config", configPath, "--release-ratio", "0",
		"--mutators", "1", "--invokers", "1", "--observers", "8", "--iterations", "20")
	require.NoError(t, err)

	require.Contains(t, out, "Released:       0")
}

func TestRunCommand_Observer(t *testing.T) {
	out, _, err := execute(t, "run", "--observer", "noop", "--mutators", "1", "--invokers", "1", "--observers", "2", "--iterations", "5")
	require.NoError(t, err)
	require.Contains(t, out, "Violations:     0")

	_, _, err = execute(t, "run", "--observer", "missing")
	require.ErrorContains(t, err, `unknown observer "missing"`)
	require.ErrorContains(t, err, "noop, slog")
}

func TestObserversCommand(t *testing.T) {
	out, _, err := execute(t, "observers")
	require.NoError(t, err)

	require.Contains(t, out, "noop\n")
	require.Contains(t, out, "slog\n")
}
