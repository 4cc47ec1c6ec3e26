package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/silverline/internal/cli/config"
)

func TestNewRootCmd(t *testing.T) {
	cmd := NewRootCmd()

	assert.Equal(t, "silverline", cmd.Use)
	for _, name := range []string{"run", "order", "check", "runs", "report", "quarantine", "init", "version", "completion"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}
	for _, flag := range []string{"config", "project-dir", "input-dir", "output-dir", "state", "workers",
		"reference-time", "strict", "max-quarantine-rate", "silver-format", "log-level", "log-format",
		"output-format", "verbose"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestRootCmd_InvalidConfiguration(t *testing.T) {
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)

	dir := t.TempDir()
	path := filepath.Join(dir, "silverline.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_quarantine_rate: 3\n"), 0o600))

	cmd := NewRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"--config", path, "order"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_quarantine_rate")
}

func TestRootCmd_InitAndRun(t *testing.T) {
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)

	dir := t.TempDir()
	root := NewRootCmd()
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))
	root.SetArgs([]string{"init", dir})
	require.NoError(t, root.Execute())

	// the generated project declares sources but ships no data
	var out bytes.Buffer
	root = NewRootCmd()
	root.SetOut(&out)
	root.SetErr(new(bytes.Buffer))
	root.SetArgs([]string{"--project-dir", dir, "-o", "json", "order"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), `"source": "call_transcripts"`)
}

func TestCompletionCommand(t *testing.T) {
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"completion", "bash"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "silverline")
}
