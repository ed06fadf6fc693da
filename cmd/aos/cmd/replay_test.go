package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/aos-replay/internal/core"
	"github.com/hugo-lorenzo-mato/aos-replay/internal/eventlog"
	"github.com/hugo-lorenzo-mato/aos-replay/internal/testutil"
)

func replay(args ...string) (stdout, stderr string, code int) {
	var out, errOut bytes.Buffer
	code = runReplay(context.Background(), args, &out, &errOut)
	return out.String(), errOut.String(), code
}

func TestReplay_GoldenRunVerifies(t *testing.T) {
	manifest, events := goldenFiles(t, t.TempDir())

	stdout, stderr, code := replay("--manifest", manifest, "--eventlog", events)

	assert.Equal(t, exitOK, code)
	assert.Equal(t, "Replay verified for run run-golden-hello-1.\n", stdout)
	assert.Empty(t, stderr)
}

func TestReplay_ArgumentOrderDoesNotMatter(t *testing.T) {
	manifest, events := goldenFiles(t, t.TempDir())

	_, _, code := replay("--eventlog", events, "--manifest", manifest)

	assert.Equal(t, exitOK, code)
}

func TestReplay_UsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no arguments", nil, "Missing required arguments."},
		{"unknown flag", []string{"--verbose"}, "Unknown or incomplete argument: --verbose"},
		{"flag without value", []string{"--manifest", "m.json", "--eventlog"}, "Unknown or incomplete argument: --eventlog"},
		{"positional argument", []string{"m.json"}, "Unknown or incomplete argument: m.json"},
		{"only manifest", []string{"--manifest", "m.json"}, "Both --manifest and --eventlog are required."},
		{"blank event log path", []string{"--manifest", "m.json", "--eventlog", "  "}, "Both --manifest and --eventlog are required."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, stderr, code := replay(tt.args...)

			assert.Equal(t, exitBadInput, code)
			assert.Empty(t, stdout)
			assert.Equal(t, tt.want+"\n"+replayUsage+"\n", stderr)
		})
	}
}

func TestReplay_MissingFile(t *testing.T) {
	dir := t.TempDir()
	manifest, _ := goldenFiles(t, dir)
	missing := filepath.Join(dir, "nope.jsonl")

	_, stderr, code := replay("--manifest", manifest, "--eventlog", missing)

	assert.Equal(t, exitBadInput, code)
	assert.Contains(t, stderr, "Could not find file '"+missing+"'.")
	assert.True(t, strings.HasSuffix(stderr, replayUsage+"\n"))
}

func TestReplay_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	manifest, events := goldenFiles(t, dir)

	t.Run("manifest", func(t *testing.T) {
		bad := testutil.TempFile(t, dir, "bad-manifest.json", []byte("{not json"))
		_, stderr, code := replay("--manifest", bad, "--eventlog", events)
		assert.Equal(t, exitBadInput, code)
		assert.True(t, strings.HasPrefix(stderr, "Invalid JSON input: "))
	})

	t.Run("event log line", func(t *testing.T) {
		bad := testutil.TempFile(t, dir, "bad.jsonl", []byte("not json\n"))
		_, stderr, code := replay("--manifest", manifest, "--eventlog", bad)
		assert.Equal(t, exitBadInput, code)
		assert.True(t, strings.HasPrefix(stderr, "Invalid JSON input: event log line 1"))
	})
}

func TestReplay_InvalidManifest(t *testing.T) {
	dir := t.TempDir()
	_, events := goldenFiles(t, dir)
	data, err := eventlog.EncodeManifest(testutil.NewTestManifest(func(m *core.Manifest) {
		m.RunID = ""
		m.Tools = nil
	}))
	require.NoError(t, err)
	manifest := testutil.TempFile(t, dir, "invalid.json", data)

	stdout, stderr, code := replay("--manifest", manifest, "--eventlog", events)

	assert.Equal(t, exitFailed, code)
	assert.Empty(t, stdout)
	assert.Equal(t, "Manifest validation failed: RunId is required. At least one ToolRef is required.\n", stderr)
}

func TestReplay_EmptyEventLog(t *testing.T) {
	dir := t.TempDir()
	manifest, _ := goldenFiles(t, dir)
	empty := testutil.TempFile(t, dir, "empty.jsonl", []byte("\n\n"))

	_, stderr, code := replay("--manifest", manifest, "--eventlog", empty)

	assert.Equal(t, exitFailed, code)
	assert.Equal(t, "Event log is empty.\n", stderr)
}

func TestReplay_CompletionTimeMismatch(t *testing.T) {
	dir := t.TempDir()
	manifestPath, events := goldenFiles(t, dir)
	raw, err := os.ReadFile(manifestPath)
	require.NoError(t, err)
	m, err := eventlog.DecodeManifest(raw)
	require.NoError(t, err)

	later := m.StartedAtUTC.Add(1)
	m.CompletedAtUTC = &later
	data, err := eventlog.EncodeManifest(m)
	require.NoError(t, err)
	altered := testutil.TempFile(t, dir, "altered.json", data)

	_, stderr, code := replay("--manifest", altered, "--eventlog", events)

	assert.Equal(t, exitFailed, code)
	assert.Equal(t, "Mismatch: CompletedAtUtc differs.\n", stderr)
}

func TestReplay_AlteredEventLog(t *testing.T) {
	dir := t.TempDir()
	manifest, eventsPath := goldenFiles(t, dir)
	raw, err := os.ReadFile(eventsPath)
	require.NoError(t, err)
	altered := testutil.TempFile(t, dir, "altered.jsonl",
		[]byte(strings.Replace(string(raw), `"message":"hello"`, `"message":"HELLO-MISMATCH"`, 1)))

	_, stderr, code := replay("--manifest", manifest, "--eventlog", altered)

	assert.Equal(t, exitFailed, code)
	assert.Equal(t, "Mismatch: Event log bytes differ from replay output.\n", stderr)
}

func TestReplay_FailureFromInvalidReferenceEntry(t *testing.T) {
	dir := t.TempDir()
	_, events := goldenFiles(t, dir)
	data, err := eventlog.EncodeManifest(testutil.NewTestManifest(func(m *core.Manifest) {
		m.Models[0].ModelID = " "
	}))
	require.NoError(t, err)
	manifest := testutil.TempFile(t, dir, "blank-model.json", data)

	_, stderr, code := replay("--manifest", manifest, "--eventlog", events)

	assert.Equal(t, exitFailed, code)
	assert.Equal(t, "Replay failed: workflow.hello.models[0].model_id is required.\n", stderr)
}

func TestReplayCommand_ExitCodeThroughCobra(t *testing.T) {
	manifest, events := goldenFiles(t, t.TempDir())

	stdout, _, code := executeCommand(t, "replay", "--manifest", manifest, "--eventlog", events)
	assert.Equal(t, 0, code)
	assert.Equal(t, "Replay verified for run run-golden-hello-1.\n", stdout)

	_, stderr, code := executeCommand(t, "replay", "--manifest", manifest)
	assert.Equal(t, 2, code)
	assert.Equal(t, "Both --manifest and --eventlog are required.\n"+replayUsage+"\n", stderr)
}
