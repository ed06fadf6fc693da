package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

var goldenDir = filepath.Join("..", "..", "..", "internal", "service", "workflow", "testdata", "golden", "hello-workflow-v1")

// goldenFiles copies the golden artifact pair into dir and returns the
// manifest and event log paths.
func goldenFiles(t *testing.T, dir string) (manifestPath, eventLogPath string) {
	t.Helper()
	manifest, err := os.ReadFile(filepath.Join(goldenDir, "manifest.json"))
	require.NoError(t, err)
	events, err := os.ReadFile(filepath.Join(goldenDir, "eventlog.jsonl"))
	require.NoError(t, err)

	manifestPath = filepath.Join(dir, "manifest.json")
	eventLogPath = filepath.Join(dir, "eventlog.jsonl")
	require.NoError(t, os.WriteFile(manifestPath, manifest, 0o600))
	require.NoError(t, os.WriteFile(eventLogPath, events, 0o600))
	return manifestPath, eventLogPath
}

// resetFlags restores every flag of every command to its default, since
// commands and their flag variables are package globals.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// executeCommand runs the root command in an isolated home directory and
// returns stdout, stderr and the exit code.
func executeCommand(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("NO_COLOR", "1")
	resetFlags(rootCmd)
	cfgFile = ""

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	code := exitCode(rootCmd.ExecuteContext(context.Background()), &stderr)
	return stdout.String(), stderr.String(), code
}
