package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "aos.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoader_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "auto", cfg.Log.Format)
	assert.Equal(t, StoreBackendFile, cfg.Store.Backend)
	assert.Equal(t, ".aos/runs", cfg.Store.Path)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.True(t, cfg.Server.CORS)
	assert.Equal(t, DefaultHelloWorkflow(), cfg.Workflow.Hello)
}

func TestLoader_ConfigFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
store:
  backend: sqlite
  path: /tmp/aos.db
workflow:
  hello:
    models:
      - model_id: b-model
        provider: remote
        version: "2"
      - model_id: a-model
        provider: local
        version: "1"
    tools:
      - tool_id: search
        version: "1.2"
    policy_decisions:
      - policy_id: p1
        decision: deny
`)

	loader := NewLoader().WithConfigFile(path)
	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, path, loader.ConfigFile())
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "auto", cfg.Log.Format)
	assert.Equal(t, StoreBackendSQLite, cfg.Store.Backend)
	assert.Equal(t, "/tmp/aos.db", cfg.Store.Path)

	require.Len(t, cfg.Workflow.Hello.Models, 2)
	assert.Equal(t, "b-model", cfg.Workflow.Hello.Models[0].ModelID)
	assert.Equal(t, "a-model", cfg.Workflow.Hello.Models[1].ModelID)
	assert.Equal(t, []ToolEntry{{ToolID: "search", Version: "1.2"}}, cfg.Workflow.Hello.Tools)
	assert.Equal(t, []PolicyEntry{{PolicyID: "p1", Decision: "deny"}}, cfg.Workflow.Hello.PolicyDecisions)
}

func TestLoader_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "log:\n  level: debug\n")
	t.Setenv("AOS_LOG_LEVEL", "error")
	t.Setenv("AOS_SERVER_PORT", "9191")

	cfg, err := NewLoader().WithConfigFile(path).Load()
	require.NoError(t, err)

	assert.Equal(t, "error", cfg.Log.Level)
	assert.Equal(t, 9191, cfg.Server.Port)
}

func TestLoader_MissingExplicitFile(t *testing.T) {
	_, err := NewLoader().WithConfigFile(filepath.Join(t.TempDir(), "nope.yaml")).Load()
	assert.Error(t, err)
}

func TestLoader_MalformedFile(t *testing.T) {
	path := writeConfig(t, "log: [unterminated\n")
	_, err := NewLoader().WithConfigFile(path).Load()
	assert.Error(t, err)
}

func TestLoader_UserConfigFallback(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	dir := filepath.Join(home, ".config", "aos")
	require.NoError(t, os.MkdirAll(dir, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server:\n  port: 7000\n"), 0o600))

	loader := NewLoader()
	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, filepath.Join(dir, "config.yaml"), loader.ConfigFile())
}

func TestLoader_Reload(t *testing.T) {
	path := writeConfig(t, "log:\n  level: debug\n")
	loader := NewLoader().WithConfigFile(path)
	_, err := loader.Load()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: warn\n"), 0o600))
	cfg, err := loader.Reload()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestDefaultConfigYAML_MatchesLoaderDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".aos.yaml")
	require.NoError(t, WriteDefaultConfig(path, false))

	fromFile, err := NewLoader().WithConfigFile(path).Load()
	require.NoError(t, err)

	t.Setenv("HOME", t.TempDir())
	builtIn, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, builtIn, fromFile)
}

func TestWriteDefaultConfig_RefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".aos.yaml")
	require.NoError(t, os.WriteFile(path, []byte("custom: true\n"), 0o600))

	assert.Error(t, WriteDefaultConfig(path, false))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "custom: true\n", string(data))

	require.NoError(t, WriteDefaultConfig(path, true))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfigYAML, string(data))
}

func TestAtomicWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "file.json")

	require.NoError(t, AtomicWrite(path, []byte("one")))
	require.NoError(t, os.Chmod(path, 0o640))
	require.NoError(t, AtomicWrite(path, []byte("two")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())
}
